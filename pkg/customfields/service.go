// Package customfields manages admin-defined student fields and the
// approval workflow for supervisor edits to their values.
package customfields

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/jordanlanch/campusflow/pkg/audit"
	"github.com/jordanlanch/campusflow/pkg/domain"
	"github.com/jordanlanch/campusflow/pkg/metrics"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/store"
)

// Messages returned to clients.
const (
	MsgFieldNotFound      = "Campo no encontrado"
	MsgRequestNotFound    = "Solicitud no encontrada"
	MsgStudentNotFound    = "Estudiante no encontrado"
	MsgAlreadyResolved    = "La solicitud ya fue procesada"
	MsgOptionsRequired    = "Las opciones son requeridas para campos de selección"
	MsgCannotEdit         = "No tienes permiso para modificar estos datos"
	MsgApprovalRequested  = "Solicitud de cambio enviada para aprobación"
	MsgFieldsUpdated      = "Campos actualizados"
	MsgInvalidRequestStat = "Estado de solicitud inválido"
)

// Service handles custom field definitions, values and change requests.
type Service struct {
	defs     store.CustomFields
	requests store.ChangeRequests
	students store.Students
	audit    *audit.Service
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewService creates a new custom fields service.
func NewService(st *store.Store, auditSvc *audit.Service, m *metrics.Metrics) *Service {
	return &Service{
		defs:     st.CustomFields,
		requests: st.ChangeRequests,
		students: st.Students,
		audit:    auditSvc,
		metrics:  m,
		now:      time.Now,
	}
}

func (s *Service) log(ctx context.Context, e audit.Entry) error {
	if _, err := s.audit.Log(ctx, e); err != nil {
		return domain.NewInternalError("", err)
	}
	return nil
}

// ListDefinitions returns definitions sorted by order.
func (s *Service) ListDefinitions(ctx context.Context) ([]*models.CustomFieldDefinition, error) {
	defs, err := s.defs.List(ctx)
	if err != nil {
		return nil, domain.NewInternalError("", fmt.Errorf("failed to list custom fields: %w", err))
	}
	return defs, nil
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// CreateDefinition adds a field after the last one.
func (s *Service) CreateDefinition(ctx context.Context, req models.CreateCustomFieldRequest, actor *models.User) (*models.CustomFieldDefinition, error) {
	fieldType := req.FieldType
	if fieldType == "" {
		fieldType = models.FieldTypeText
	}
	options := req.Options
	if options == nil {
		options = []string{}
	}
	if fieldType == models.FieldTypeSelect && len(options) == 0 {
		return nil, domain.NewValidationError(MsgOptionsRequired)
	}

	order, err := s.defs.NextOrder(ctx)
	if err != nil {
		return nil, domain.NewInternalError("", err)
	}

	now := s.now().UTC()
	def := &models.CustomFieldDefinition{
		ID:                   models.NewID(models.PrefixField),
		FieldName:            strings.TrimSpace(req.FieldName),
		FieldType:            fieldType,
		Options:              options,
		Required:             req.Required,
		VisibleToStudents:    boolOr(req.VisibleToStudents, true),
		EditableBySupervisor: boolOr(req.EditableBySupervisor, true),
		Order:                order,
		CreatedBy:            actor.ID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.defs.Create(ctx, def); err != nil {
		return nil, domain.NewInternalError("", fmt.Errorf("failed to create custom field: %w", err))
	}

	if err := s.log(ctx, audit.Entry{
		EntityType:  models.EntityCustomField,
		EntityID:    def.ID,
		Action:      models.ActionCreate,
		NewValue:    def,
		PerformedBy: actor,
	}); err != nil {
		return nil, err
	}
	return def, nil
}

func (s *Service) getDefinition(ctx context.Context, id string) (*models.CustomFieldDefinition, error) {
	def, err := s.defs.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.NewNotFoundError(MsgFieldNotFound)
	}
	if err != nil {
		return nil, domain.NewInternalError("", err)
	}
	return def, nil
}

// UpdateDefinition applies the non-nil fields of req.
func (s *Service) UpdateDefinition(ctx context.Context, id string, req models.UpdateCustomFieldRequest, actor *models.User) (*models.CustomFieldDefinition, error) {
	def, err := s.getDefinition(ctx, id)
	if err != nil {
		return nil, err
	}
	old := *def

	if req.FieldName != nil {
		def.FieldName = strings.TrimSpace(*req.FieldName)
	}
	if req.FieldType != nil {
		def.FieldType = *req.FieldType
	}
	if req.Options != nil {
		def.Options = *req.Options
	}
	if req.Required != nil {
		def.Required = *req.Required
	}
	if req.VisibleToStudents != nil {
		def.VisibleToStudents = *req.VisibleToStudents
	}
	if req.EditableBySupervisor != nil {
		def.EditableBySupervisor = *req.EditableBySupervisor
	}
	if req.Order != nil {
		def.Order = *req.Order
	}
	if def.FieldType == models.FieldTypeSelect && len(def.Options) == 0 {
		return nil, domain.NewValidationError(MsgOptionsRequired)
	}
	def.UpdatedAt = s.now().UTC()

	if err := s.defs.Update(ctx, def); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NewNotFoundError(MsgFieldNotFound)
		}
		return nil, domain.NewInternalError("", err)
	}

	if err := s.log(ctx, audit.Entry{
		EntityType:  models.EntityCustomField,
		EntityID:    def.ID,
		Action:      models.ActionUpdate,
		OldValue:    old,
		NewValue:    def,
		PerformedBy: actor,
	}); err != nil {
		return nil, err
	}
	return def, nil
}

// DeleteDefinition removes a field and its value from every student. It
// returns how many students lost the value.
func (s *Service) DeleteDefinition(ctx context.Context, id string, actor *models.User) (int64, error) {
	if err := s.defs.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, domain.NewNotFoundError(MsgFieldNotFound)
		}
		return 0, domain.NewInternalError("", err)
	}

	n, err := s.students.UnsetCustomField(ctx, id)
	if err != nil {
		return 0, domain.NewInternalError("", fmt.Errorf("failed to unset field %s: %w", id, err))
	}
	log.Printf("🗑️  Custom field %s deleted (removed from %d students)", id, n)

	if err := s.log(ctx, audit.Entry{
		EntityType:  models.EntityCustomField,
		EntityID:    id,
		Action:      models.ActionDelete,
		PerformedBy: actor,
	}); err != nil {
		return n, err
	}
	return n, nil
}

func sameValue(a, b interface{}) bool {
	return audit.Stringify(a) == audit.Stringify(b)
}

// sortedKeys keeps request and audit creation deterministic.
func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// UpdateValues edits custom field values of a student. Supervisor edits
// become pending change requests; admin and gerente edits apply directly.
func (s *Service) UpdateValues(ctx context.Context, studentID string, fields map[string]interface{}, actor *models.User) (*models.UpdateFieldValuesResponse, error) {
	switch actor.Role {
	case models.RoleSupervisor, models.RoleAdmin, models.RoleGerente:
	default:
		return nil, domain.NewForbiddenError(MsgCannotEdit)
	}

	student, err := s.students.GetByID(ctx, studentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.NewNotFoundError(MsgStudentNotFound)
	}
	if err != nil {
		return nil, domain.NewInternalError("", err)
	}

	if actor.Role == models.RoleSupervisor {
		return s.requestChanges(ctx, student, fields, actor)
	}
	return s.applyChanges(ctx, student, fields, actor)
}

func (s *Service) requestChanges(ctx context.Context, student *models.Student, fields map[string]interface{}, actor *models.User) (*models.UpdateFieldValuesResponse, error) {
	created := 0
	for _, fieldID := range sortedKeys(fields) {
		def, err := s.defs.GetByID(ctx, fieldID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, domain.NewInternalError("", err)
		}
		if !def.EditableBySupervisor {
			continue
		}

		oldValue := student.CustomFields[fieldID]
		newValue := fields[fieldID]
		if sameValue(oldValue, newValue) {
			continue
		}

		req := &models.ChangeRequest{
			ID:              models.NewID(models.PrefixRequest),
			StudentID:       student.ID,
			StudentName:     student.FullName,
			FieldID:         fieldID,
			FieldName:       def.FieldName,
			OldValue:        oldValue,
			NewValue:        newValue,
			RequestedByID:   actor.ID,
			RequestedByName: actor.Name,
			Status:          models.RequestPending,
			CreatedAt:       s.now().UTC(),
		}
		if err := s.requests.Create(ctx, req); err != nil {
			return nil, domain.NewInternalError("", fmt.Errorf("failed to create change request: %w", err))
		}
		s.metrics.RecordChangeRequest(models.RequestPending)
		created++
	}

	return &models.UpdateFieldValuesResponse{
		Message:          MsgApprovalRequested,
		RequiresApproval: true,
		RequestsCreated:  created,
	}, nil
}

func (s *Service) applyChanges(ctx context.Context, student *models.Student, fields map[string]interface{}, actor *models.User) (*models.UpdateFieldValuesResponse, error) {
	values := make(map[string]interface{}, len(fields))
	for _, fieldID := range sortedKeys(fields) {
		def, err := s.defs.GetByID(ctx, fieldID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, domain.NewInternalError("", err)
		}

		if err := s.log(ctx, audit.Entry{
			EntityType:  models.EntityStudent,
			EntityID:    student.ID,
			Action:      models.ActionUpdate,
			Field:       def.FieldName,
			OldValue:    student.CustomFields[fieldID],
			NewValue:    fields[fieldID],
			PerformedBy: actor,
		}); err != nil {
			return nil, err
		}
		values[fieldID] = fields[fieldID]
	}

	if len(values) > 0 {
		if err := s.students.SetCustomFields(ctx, student.ID, values); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, domain.NewNotFoundError(MsgStudentNotFound)
			}
			return nil, domain.NewInternalError("", err)
		}
	}

	return &models.UpdateFieldValuesResponse{
		Message:       MsgFieldsUpdated,
		FieldsUpdated: len(values),
	}, nil
}

// ListRequests returns change requests, newest first, optionally by status.
func (s *Service) ListRequests(ctx context.Context, status string) ([]*models.ChangeRequest, error) {
	switch status {
	case "", models.RequestPending, models.RequestApproved, models.RequestRejected:
	default:
		return nil, domain.NewValidationError(MsgInvalidRequestStat)
	}
	reqs, err := s.requests.List(ctx, status)
	if err != nil {
		return nil, domain.NewInternalError("", err)
	}
	return reqs, nil
}

// resolve moves a pending request to status. Only one concurrent caller
// can win; the others get MsgAlreadyResolved.
func (s *Service) resolve(ctx context.Context, id, status string, actor *models.User) (*models.ChangeRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.NewNotFoundError(MsgRequestNotFound)
	}
	if err != nil {
		return nil, domain.NewInternalError("", err)
	}
	if req.Status != models.RequestPending {
		return nil, domain.NewValidationError(MsgAlreadyResolved)
	}

	at := s.now().UTC()
	err = s.requests.Resolve(ctx, id, status, actor.ID, actor.Name, at)
	switch {
	case errors.Is(err, store.ErrStale):
		return nil, domain.NewValidationError(MsgAlreadyResolved)
	case errors.Is(err, store.ErrNotFound):
		return nil, domain.NewNotFoundError(MsgRequestNotFound)
	case err != nil:
		return nil, domain.NewInternalError("", err)
	}

	req.Status = status
	req.ApprovedByID = actor.ID
	req.ApprovedByName = actor.Name
	req.ResolvedAt = &at
	s.metrics.RecordChangeRequest(status)
	return req, nil
}

// Approve applies the requested value and records one approve entry
// attributed to the requester and authorized by actor.
func (s *Service) Approve(ctx context.Context, id string, actor *models.User) (*models.ChangeRequest, error) {
	req, err := s.resolve(ctx, id, models.RequestApproved, actor)
	if err != nil {
		return nil, err
	}

	err = s.students.SetCustomFields(ctx, req.StudentID, map[string]interface{}{req.FieldID: req.NewValue})
	if errors.Is(err, store.ErrNotFound) {
		log.Printf("⚠️  Change request %s approved but student %s no longer exists", req.ID, req.StudentID)
	} else if err != nil {
		return nil, domain.NewInternalError("", fmt.Errorf("failed to apply change request %s: %w", req.ID, err))
	}

	requester := &models.User{ID: req.RequestedByID, Name: req.RequestedByName, Role: models.RoleSupervisor}
	if err := s.log(ctx, audit.Entry{
		EntityType:   models.EntityStudent,
		EntityID:     req.StudentID,
		Action:       models.ActionApprove,
		Field:        req.FieldName,
		OldValue:     req.OldValue,
		NewValue:     req.NewValue,
		PerformedBy:  requester,
		AuthorizedBy: actor,
	}); err != nil {
		return nil, err
	}
	return req, nil
}

// Reject closes the request without touching the student.
func (s *Service) Reject(ctx context.Context, id string, actor *models.User) (*models.ChangeRequest, error) {
	req, err := s.resolve(ctx, id, models.RequestRejected, actor)
	if err != nil {
		return nil, err
	}
	if err := s.log(ctx, audit.Entry{
		EntityType:  models.EntityChangeRequest,
		EntityID:    req.ID,
		Action:      models.ActionReject,
		PerformedBy: actor,
	}); err != nil {
		return nil, err
	}
	return req, nil
}
