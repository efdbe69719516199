// Package appointments schedules meetings between leads and agents and
// pushes them to the agent's Google Calendar on request.
package appointments

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jordanlanch/campusflow/pkg/domain"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/notification"
	"github.com/jordanlanch/campusflow/pkg/store"
)

// Messages returned to clients.
const (
	MsgNotFound      = "Cita no encontrada"
	MsgNoAccess      = "No tienes acceso a esta cita"
	MsgInvalidStatus = "Estado de cita inválido"
	MsgNotSynced     = "La cita no está sincronizada con Google Calendar"
)

// ReminderWindow is how far ahead reminders are sent.
const ReminderWindow = time.Hour

// Notifier dispatches appointment events.
type Notifier interface {
	Dispatch(ctx context.Context, event string, data map[string]interface{}, agent *models.User) notification.Report
}

// Calendar pushes appointments to a user's calendar.
type Calendar interface {
	PushAppointment(ctx context.Context, userID string, a *models.Appointment) (*models.CalendarEventResponse, error)
	DeleteEvent(ctx context.Context, userID, eventID string) error
}

// Service handles appointment operations
type Service struct {
	appointments store.Appointments
	leads        store.Leads
	users        store.Users
	notifier     Notifier
	calendar     Calendar
	now          func() time.Time
}

// NewService creates a new appointment service. notifier may be nil.
func NewService(st *store.Store, notifier Notifier, cal Calendar) *Service {
	return &Service{
		appointments: st.Appointments,
		leads:        st.Leads,
		users:        st.Users,
		notifier:     notifier,
		calendar:     cal,
		now:          time.Now,
	}
}

func (s *Service) dispatch(ctx context.Context, event string, a *models.Appointment, agent *models.User) {
	if s.notifier == nil {
		return
	}
	s.notifier.Dispatch(ctx, event, notification.AppointmentData(a), agent)
}

// lookupUser returns the user or nil when it does not exist.
func (s *Service) lookupUser(ctx context.Context, id string) (*models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewInternalError("", err)
	}
	return u, nil
}

// Create schedules an appointment and notifies appointment.created.
func (s *Service) Create(ctx context.Context, req models.CreateAppointmentRequest, actor *models.User) (*models.Appointment, error) {
	now := s.now().UTC()
	a := &models.Appointment{
		ID:          models.NewID(models.PrefixAppointment),
		LeadID:      req.LeadID,
		AgentID:     req.AgentID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		ScheduledAt: req.ScheduledAt.UTC(),
		Status:      models.AppointmentScheduled,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	lead, err := s.leads.GetByID(ctx, req.LeadID)
	switch {
	case err == nil:
		a.LeadName = lead.FullName
	case !errors.Is(err, store.ErrNotFound):
		return nil, domain.NewInternalError("", err)
	}
	agent, err := s.lookupUser(ctx, req.AgentID)
	if err != nil {
		return nil, err
	}
	if agent != nil {
		a.AgentName = agent.Name
	}

	if err := s.appointments.Create(ctx, a); err != nil {
		return nil, domain.NewInternalError("", fmt.Errorf("failed to create appointment: %w", err))
	}
	log.Printf("📅 Appointment %s scheduled for %s", a.ID, a.ScheduledAt.Format(time.RFC3339))

	s.dispatch(ctx, models.EventAppointmentCreated, a, agent)
	return a, nil
}

// List returns appointments soonest first. Agents only see their own.
func (s *Service) List(ctx context.Context, f models.AppointmentFilter, actor *models.User) ([]*models.Appointment, error) {
	if f.Status != "" && !models.IsValidAppointmentStatus(f.Status) {
		return nil, domain.NewValidationError(MsgInvalidStatus)
	}
	if actor.Role == models.RoleAgente {
		f.AgentID = actor.ID
	}
	list, err := s.appointments.List(ctx, f)
	if err != nil {
		return nil, domain.NewInternalError("", err)
	}
	return list, nil
}

// Get returns one appointment. Agents may only read their own.
func (s *Service) Get(ctx context.Context, id string, actor *models.User) (*models.Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.NewNotFoundError(MsgNotFound)
	}
	if err != nil {
		return nil, domain.NewInternalError("", err)
	}
	if actor.Role == models.RoleAgente && a.AgentID != actor.ID {
		return nil, domain.NewForbiddenError(MsgNoAccess)
	}
	return a, nil
}

// Update applies the non-nil fields of req.
func (s *Service) Update(ctx context.Context, id string, req models.UpdateAppointmentRequest, actor *models.User) (*models.Appointment, error) {
	if req.Status != nil && !models.IsValidAppointmentStatus(*req.Status) {
		return nil, domain.NewValidationError(MsgInvalidStatus)
	}
	a, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		a.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		a.Description = *req.Description
	}
	if req.ScheduledAt != nil {
		if !req.ScheduledAt.Equal(a.ScheduledAt) {
			a.ReminderSent = false
		}
		a.ScheduledAt = req.ScheduledAt.UTC()
	}
	if req.Status != nil {
		a.Status = *req.Status
	}
	if req.AgentID != nil && *req.AgentID != a.AgentID {
		a.AgentID = *req.AgentID
		a.AgentName = ""
		agent, err := s.lookupUser(ctx, a.AgentID)
		if err != nil {
			return nil, err
		}
		if agent != nil {
			a.AgentName = agent.Name
		}
	}
	a.UpdatedAt = s.now().UTC()

	if err := s.appointments.Update(ctx, a); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NewNotFoundError(MsgNotFound)
		}
		return nil, domain.NewInternalError("", err)
	}
	return a, nil
}

// Delete removes an appointment.
func (s *Service) Delete(ctx context.Context, id string, actor *models.User) error {
	if _, err := s.Get(ctx, id, actor); err != nil {
		return err
	}
	if err := s.appointments.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NewNotFoundError(MsgNotFound)
		}
		return domain.NewInternalError("", err)
	}
	return nil
}

// PushToCalendar creates a calendar event for the appointment on the
// actor's calendar and stores its id and link.
func (s *Service) PushToCalendar(ctx context.Context, id string, actor *models.User) (*models.Appointment, error) {
	a, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	ev, err := s.calendar.PushAppointment(ctx, actor.ID, a)
	if err != nil {
		return nil, err
	}

	a.CalendarEventID = ev.EventID
	a.CalendarEventLink = ev.HTMLLink
	a.UpdatedAt = s.now().UTC()
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, domain.NewInternalError("", err)
	}
	return a, nil
}

// RemoveFromCalendar deletes the calendar event of the appointment and
// clears the stored link.
func (s *Service) RemoveFromCalendar(ctx context.Context, id string, actor *models.User) (*models.Appointment, error) {
	a, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if a.CalendarEventID == "" {
		return nil, domain.NewValidationError(MsgNotSynced)
	}
	if err := s.calendar.DeleteEvent(ctx, actor.ID, a.CalendarEventID); err != nil {
		return nil, err
	}

	a.CalendarEventID = ""
	a.CalendarEventLink = ""
	a.UpdatedAt = s.now().UTC()
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, domain.NewInternalError("", err)
	}
	return a, nil
}

// SendReminders notifies appointment.reminder for scheduled appointments
// starting within the next hour that were not reminded yet. It returns
// how many were reminded.
func (s *Service) SendReminders(ctx context.Context) (int, error) {
	now := s.now().UTC()
	pending := false
	due, err := s.appointments.List(ctx, models.AppointmentFilter{
		Status:         models.AppointmentScheduled,
		ScheduledFrom:  now,
		ScheduledUntil: now.Add(ReminderWindow),
		ReminderSent:   &pending,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list due appointments: %w", err)
	}

	sent := 0
	for _, a := range due {
		agent, err := s.lookupUser(ctx, a.AgentID)
		if err != nil {
			return sent, err
		}
		s.dispatch(ctx, models.EventAppointmentReminder, a, agent)
		if err := s.appointments.MarkReminded(ctx, a.ID); err != nil {
			return sent, fmt.Errorf("failed to mark appointment %s reminded: %w", a.ID, err)
		}
		sent++
	}
	return sent, nil
}
