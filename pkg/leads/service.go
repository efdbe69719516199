// Package leads implements the lead pipeline: intake with agent assignment,
// scoped listings, status changes, conversion into students and the
// per-lead conversation log.
package leads

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jordanlanch/campusflow/pkg/audit"
	"github.com/jordanlanch/campusflow/pkg/domain"
	"github.com/jordanlanch/campusflow/pkg/leadassignment"
	"github.com/jordanlanch/campusflow/pkg/metrics"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/notification"
	"github.com/jordanlanch/campusflow/pkg/phone"
	"github.com/jordanlanch/campusflow/pkg/store"
)

// Messages returned to clients.
const (
	MsgNotFound         = "Lead no encontrado"
	MsgNoAccess         = "No tienes acceso a este lead"
	MsgInvalidStatus    = "Estado de lead inválido"
	MsgStatusLocked     = "El lead ya fue convertido en estudiante y su estado no puede cambiar"
	MsgNotEnrolled      = "El lead debe estar en Etapa 4 - Inscrito para convertirlo en estudiante"
	MsgAlreadyConverted = "Este lead ya fue convertido en estudiante"
	MsgIncomingCreated  = "Lead creado exitosamente"

	// IncomingCreatedBy marks leads pushed by the automation webhook.
	IncomingCreatedBy     = "n8n_webhook"
	defaultIncomingDetail = "N8N Webhook"
)

// StudentCreator creates the student a lead converts into.
type StudentCreator interface {
	Create(ctx context.Context, req models.CreateStudentRequest, actor *models.User) (*models.Student, error)
}

// Notifier dispatches lead events.
type Notifier interface {
	Dispatch(ctx context.Context, event string, data map[string]interface{}, agent *models.User) notification.Report
}

// Service handles lead operations
type Service struct {
	leads         store.Leads
	conversations store.Conversations
	users         store.Users
	assigner      *leadassignment.Service
	students      StudentCreator
	audit         *audit.Service
	notifier      Notifier
	metrics       *metrics.Metrics
	region        string
	now           func() time.Time
}

// NewService creates a new lead service. notifier and m may be nil.
func NewService(st *store.Store, assigner *leadassignment.Service, students StudentCreator, auditSvc *audit.Service, notifier Notifier, m *metrics.Metrics, region string) *Service {
	return &Service{
		leads:         st.Leads,
		conversations: st.Conversations,
		users:         st.Users,
		assigner:      assigner,
		students:      students,
		audit:         auditSvc,
		notifier:      notifier,
		metrics:       m,
		region:        region,
		now:           time.Now,
	}
}

// Create registers a manual lead and assigns it.
func (s *Service) Create(ctx context.Context, req models.CreateLeadRequest, actor *models.User) (*models.Lead, error) {
	source := req.Source
	if source == "" {
		source = models.SourceManual
	}
	lead := &models.Lead{
		FullName:       strings.TrimSpace(req.FullName),
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:          s.normalizePhone(req.Phone),
		CareerInterest: strings.TrimSpace(req.CareerInterest),
		Source:         source,
		SourceDetail:   req.SourceDetail,
		Notes:          req.Notes,
		CreatedBy:      actor.ID,
	}
	_, err := s.insert(ctx, lead, req.AssignedAgentID, actor)
	if err != nil {
		return nil, err
	}
	return lead, nil
}

// CreateIncoming registers a lead pushed by an external automation.
func (s *Service) CreateIncoming(ctx context.Context, req models.IncomingLeadRequest) (*models.IncomingLeadResponse, error) {
	number := req.Phone
	if strings.TrimSpace(number) == "" {
		number = req.WhatsAppNumber
	}
	detail := req.SourceDetail
	if detail == "" {
		detail = defaultIncomingDetail
	}

	lead := &models.Lead{
		FullName:       strings.TrimSpace(req.FullName),
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:          s.normalizePhone(number),
		CareerInterest: strings.TrimSpace(req.CareerInterest),
		Source:         models.SourceWebhook,
		SourceDetail:   detail,
		CreatedBy:      IncomingCreatedBy,
	}
	assignment, err := s.insert(ctx, lead, "", nil)
	if err != nil {
		return nil, err
	}

	return &models.IncomingLeadResponse{
		Success:       true,
		LeadID:        lead.ID,
		Message:       MsgIncomingCreated,
		AssignedAgent: assignment.AgentName,
	}, nil
}

func (s *Service) insert(ctx context.Context, lead *models.Lead, explicitAgentID string, actor *models.User) (*leadassignment.Assignment, error) {
	assignment, err := s.assigner.Assign(ctx, lead.CareerInterest, explicitAgentID, actor)
	if err != nil {
		return nil, domain.NewInternalError("", err)
	}

	now := s.now().UTC()
	lead.ID = models.NewID(models.PrefixLead)
	lead.Status = models.StatusInformacion
	lead.AssignedAgentID = assignment.AgentID
	lead.AssignedAgentName = assignment.AgentName
	lead.CreatedAt = now
	lead.UpdatedAt = now

	if err := s.leads.Create(ctx, lead); err != nil {
		return nil, domain.NewInternalError("", fmt.Errorf("failed to create lead: %w", err))
	}
	log.Printf("✅ Lead %s created (source: %s, assignment: %s)", lead.ID, lead.Source, assignment.Type)
	s.metrics.RecordLeadCreated(lead.Source)

	s.notify(ctx, models.EventLeadCreated, lead, assignment.Agent)
	return assignment, nil
}

func (s *Service) notify(ctx context.Context, event string, lead *models.Lead, agent *models.User) {
	if s.notifier == nil {
		return
	}
	s.notifier.Dispatch(ctx, event, notification.LeadData(lead), agent)
}

func (s *Service) normalizePhone(p string) string {
	if strings.TrimSpace(p) == "" {
		return ""
	}
	return phone.BestEffort(p, s.region)
}

// List returns leads matching f, newest first. Agents only see their own.
func (s *Service) List(ctx context.Context, f models.LeadFilter, actor *models.User) ([]*models.Lead, error) {
	if actor.Role == models.RoleAgente {
		f.AssignedAgentID = actor.ID
	}
	if f.Status != "" && !models.IsValidLeadStatus(f.Status) {
		return nil, domain.NewValidationError(MsgInvalidStatus)
	}
	leads, err := s.leads.List(ctx, f)
	if err != nil {
		return nil, domain.NewInternalError("", fmt.Errorf("failed to list leads: %w", err))
	}
	return leads, nil
}

// Get returns one lead. Agents may only read leads assigned to them.
func (s *Service) Get(ctx context.Context, id string, actor *models.User) (*models.Lead, error) {
	lead, err := s.leads.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NewNotFoundError(MsgNotFound)
		}
		return nil, domain.NewInternalError("", fmt.Errorf("failed to get lead: %w", err))
	}
	if actor != nil && actor.Role == models.RoleAgente && lead.AssignedAgentID != actor.ID {
		return nil, domain.NewForbiddenError(MsgNoAccess)
	}
	return lead, nil
}

// Update applies the non-nil fields of req.
func (s *Service) Update(ctx context.Context, id string, req models.UpdateLeadRequest, actor *models.User) (*models.Lead, error) {
	lead, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	if req.Status != nil && *req.Status != lead.Status {
		if !models.IsValidLeadStatus(*req.Status) {
			return nil, domain.NewValidationError(MsgInvalidStatus)
		}
		if lead.Converted() {
			return nil, domain.NewValidationError(MsgStatusLocked)
		}
		lead.Status = *req.Status
	}
	if req.FullName != nil {
		lead.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Email != nil {
		lead.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Phone != nil {
		lead.Phone = s.normalizePhone(*req.Phone)
	}
	if req.CareerInterest != nil {
		lead.CareerInterest = strings.TrimSpace(*req.CareerInterest)
	}
	if req.Source != nil {
		lead.Source = *req.Source
	}
	if req.SourceDetail != nil {
		lead.SourceDetail = *req.SourceDetail
	}
	if req.Notes != nil {
		lead.Notes = *req.Notes
	}
	if req.AssignedAgentID != nil && *req.AssignedAgentID != lead.AssignedAgentID {
		lead.AssignedAgentID = *req.AssignedAgentID
		lead.AssignedAgentName = ""
		if lead.AssignedAgentID != "" {
			if agent, err := s.users.GetByID(ctx, lead.AssignedAgentID); err == nil {
				lead.AssignedAgentName = agent.Name
			}
		}
	}
	lead.UpdatedAt = s.now().UTC()

	if err := s.leads.Update(ctx, lead); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NewNotFoundError(MsgNotFound)
		}
		return nil, domain.NewInternalError("", fmt.Errorf("failed to update lead: %w", err))
	}

	s.notify(ctx, models.EventLeadUpdated, lead, nil)
	return lead, nil
}

// Delete removes a lead and its conversation.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.leads.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NewNotFoundError(MsgNotFound)
		}
		return domain.NewInternalError("", fmt.Errorf("failed to delete lead: %w", err))
	}
	if err := s.conversations.Delete(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Printf("⚠️  Failed to delete conversation of lead %s: %v", id, err)
	}
	log.Printf("🗑️  Lead %s deleted", id)
	return nil
}

// Convert turns an enrolled lead into a student.
func (s *Service) Convert(ctx context.Context, id string, req models.ConvertLeadRequest, actor *models.User) (*models.Student, error) {
	lead, err := s.Get(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	if lead.Status != models.StatusInscrito {
		return nil, domain.NewValidationError(MsgNotEnrolled)
	}
	if lead.Converted() {
		return nil, domain.NewValidationError(MsgAlreadyConverted)
	}

	careerName := req.CareerName
	if careerName == "" {
		careerName = lead.CareerInterest
	}
	student, err := s.students.Create(ctx, models.CreateStudentRequest{
		FullName:           lead.FullName,
		Email:              lead.Email,
		Phone:              lead.Phone,
		CareerID:           req.CareerID,
		CareerName:         careerName,
		InstitutionalEmail: req.InstitutionalEmail,
		LeadID:             lead.ID,
	}, actor)
	if err != nil {
		return nil, err
	}

	lead.StudentID = student.ID
	lead.UpdatedAt = s.now().UTC()
	if err := s.leads.Update(ctx, lead); err != nil {
		// the student's unique lead_id still blocks a second conversion
		log.Printf("⚠️  Failed to stamp student %s on lead %s: %v", student.ID, lead.ID, err)
	}

	if s.audit != nil {
		if _, err := s.audit.Log(ctx, audit.Entry{
			EntityType:  models.EntityLead,
			EntityID:    lead.ID,
			Action:      models.ActionCreate,
			Field:       "student_id",
			NewValue:    student.ID,
			PerformedBy: actor,
		}); err != nil {
			log.Printf("⚠️  Failed to audit conversion of lead %s: %v", lead.ID, err)
		}
	}

	s.metrics.RecordLeadConverted()
	log.Printf("✅ Lead %s converted to student %s", lead.ID, student.ID)
	return student, nil
}

// Conversation returns the message log of a lead, creating it when empty.
func (s *Service) Conversation(ctx context.Context, leadID string, actor *models.User) (*models.Conversation, error) {
	if _, err := s.Get(ctx, leadID, actor); err != nil {
		return nil, err
	}
	conv, err := s.conversations.Ensure(ctx, leadID)
	if err != nil {
		return nil, domain.NewInternalError("", fmt.Errorf("failed to load conversation: %w", err))
	}
	return conv, nil
}

// AddMessage appends a message to the conversation of a lead.
func (s *Service) AddMessage(ctx context.Context, leadID string, req models.AddMessageRequest, actor *models.User) (*models.Conversation, error) {
	if _, err := s.Get(ctx, leadID, actor); err != nil {
		return nil, err
	}
	conv, err := s.conversations.Append(ctx, leadID, models.ConversationMessage{
		Sender:    req.Sender,
		Message:   req.Message,
		Timestamp: s.now().UTC(),
	})
	if err != nil {
		return nil, domain.NewInternalError("", fmt.Errorf("failed to append message: %w", err))
	}
	return conv, nil
}
