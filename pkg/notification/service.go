// Package notification fans domain events out to the channels configured in
// the notification settings: a settings webhook, WhatsApp, email, and the
// registered webhooks subscribed to the event.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jordanlanch/campusflow/pkg/domain"
	"github.com/jordanlanch/campusflow/pkg/email"
	"github.com/jordanlanch/campusflow/pkg/logger"
	"github.com/jordanlanch/campusflow/pkg/metrics"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/store"
	"github.com/jordanlanch/campusflow/pkg/webhook"
	"github.com/jordanlanch/campusflow/pkg/whatsapp"
)

// Channel labels used in logs and metrics.
const (
	ChannelSettingsWebhook   = "settings_webhook"
	ChannelWhatsApp          = "whatsapp"
	ChannelEmail             = "email"
	ChannelRegisteredWebhook = "webhook"
)

// Report counts the outcome of one dispatch.
type Report struct {
	Event     string
	Skipped   bool
	Delivered int
	Failed    int
}

// Service dispatches notifications and owns the settings singleton.
type Service struct {
	settings store.Settings
	users    store.Users
	hooks    *webhook.Service
	whatsapp whatsapp.Sender
	mail     *email.Service
	metrics  *metrics.Metrics
	log      logger.Logger
}

// NewService wires the dispatcher. wa, mail and m may be nil; the matching
// channel is then skipped.
func NewService(st *store.Store, hooks *webhook.Service, wa whatsapp.Sender, mail *email.Service, m *metrics.Metrics, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		settings: st.Settings,
		users:    st.Users,
		hooks:    hooks,
		whatsapp: wa,
		mail:     mail,
		metrics:  m,
		log:      log.With("component", "notification"),
	}
}

// GetSettings returns the stored settings, or the defaults when none were
// saved yet.
func (s *Service) GetSettings(ctx context.Context) (*models.NotificationSettings, error) {
	settings, err := s.settings.GetNotificationSettings(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return models.DefaultNotificationSettings(), nil
	}
	if err != nil {
		return nil, domain.NewInternalError("", fmt.Errorf("failed to load notification settings: %w", err))
	}
	return settings, nil
}

// UpdateSettings applies the non-nil fields of req and saves the result.
func (s *Service) UpdateSettings(ctx context.Context, req models.UpdateNotificationSettingsRequest) (*models.NotificationSettings, error) {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	if req.NotificationPhone != nil {
		settings.NotificationPhone = strings.TrimSpace(*req.NotificationPhone)
	}
	if req.NotificationEmail != nil {
		settings.NotificationEmail = strings.TrimSpace(*req.NotificationEmail)
	}
	if req.NotificationWebhookURL != nil {
		settings.NotificationWebhookURL = strings.TrimSpace(*req.NotificationWebhookURL)
	}
	if req.NotifyOnNewLead != nil {
		settings.NotifyOnNewLead = *req.NotifyOnNewLead
	}
	if req.NotifyOnAppointment != nil {
		settings.NotifyOnAppointment = *req.NotifyOnAppointment
	}
	if req.NotifySupervisors != nil {
		settings.NotifySupervisors = *req.NotifySupervisors
	}
	settings.ID = models.SettingsID
	settings.UpdatedAt = time.Now().UTC()

	if err := s.settings.SaveNotificationSettings(ctx, settings); err != nil {
		return nil, domain.NewInternalError("", fmt.Errorf("failed to save notification settings: %w", err))
	}
	return settings, nil
}

// Toggled reports whether event is governed by a settings toggle.
func Toggled(event string) bool {
	switch event {
	case models.EventLeadCreated, models.EventAppointmentCreated, models.EventAppointmentReminder:
		return true
	default:
		return false
	}
}

// Enabled reports whether the settings toggle for event is on. Events
// without a toggle are never delivered to the settings channels.
func Enabled(settings *models.NotificationSettings, event string) bool {
	switch event {
	case models.EventLeadCreated:
		return settings.NotifyOnNewLead
	case models.EventAppointmentCreated, models.EventAppointmentReminder:
		return settings.NotifyOnAppointment
	default:
		return false
	}
}

// Dispatch delivers event on every configured channel. A toggled event
// whose toggle is off, or whose settings cannot be loaded, goes nowhere.
// Untoggled events reach subscribed webhooks only. Failures are logged and
// counted; they never reach the caller.
func (s *Service) Dispatch(ctx context.Context, event string, data map[string]interface{}, agent *models.User) Report {
	report := Report{Event: event}
	payload := models.WebhookPayload{
		Event:         event,
		Timestamp:     time.Now().UTC(),
		Data:          data,
		AssignedAgent: AgentInfo(agent),
	}

	settings, err := s.GetSettings(ctx)
	if err != nil {
		s.log.Error("failed to load settings", "event", event, "error", err)
	}

	enabled := settings != nil && Enabled(settings, event)
	if !enabled {
		report.Skipped = true
	}

	if Toggled(event) && !enabled {
		s.log.Debug("notifications disabled for event", "event", event)
		return report
	}
	if enabled {
		s.deliverSettingsChannels(ctx, settings, payload, &report)
	}
	s.deliverRegistered(ctx, payload, &report)
	return report
}

func (s *Service) deliverSettingsChannels(ctx context.Context, settings *models.NotificationSettings, payload models.WebhookPayload, report *Report) {
	message := Message(payload.Event, payload.Data, payload.AssignedAgent)

	if settings.NotificationWebhookURL != "" && s.hooks != nil {
		s.record(ChannelSettingsWebhook, payload.Event, report, func() error {
			return s.hooks.Notify(ctx, settings.NotificationWebhookURL, payload)
		})
	}

	if s.whatsapp != nil {
		for _, to := range s.whatsappRecipients(ctx, settings) {
			to := to
			s.record(ChannelWhatsApp, payload.Event, report, func() error {
				return s.whatsapp.Send(ctx, to, message)
			})
		}
	}

	if settings.NotificationEmail != "" && s.mail != nil && s.mail.Configured() {
		subject := Subject(payload.Event)
		s.record(ChannelEmail, payload.Event, report, func() error {
			return s.mail.SendNotification(ctx, settings.NotificationEmail, subject, message)
		})
	}
}

func (s *Service) deliverRegistered(ctx context.Context, payload models.WebhookPayload, report *Report) {
	if s.hooks == nil {
		return
	}
	subs, err := s.hooks.Subscribers(ctx, payload.Event)
	if err != nil {
		s.log.Error("failed to list subscribed webhooks", "event", payload.Event, "error", err)
		return
	}
	for _, wh := range subs {
		wh := wh
		s.record(ChannelRegisteredWebhook, payload.Event, report, func() error {
			return s.hooks.Deliver(ctx, wh, payload)
		})
	}
}

func (s *Service) whatsappRecipients(ctx context.Context, settings *models.NotificationSettings) []string {
	var out []string
	seen := map[string]bool{}
	add := func(p string) {
		p = strings.TrimSpace(p)
		if p != "" && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	add(settings.NotificationPhone)
	if settings.NotifySupervisors {
		supervisors, err := s.users.List(ctx, store.UserFilter{Role: models.RoleSupervisor, ActiveOnly: true})
		if err != nil {
			s.log.Error("failed to list supervisors", "error", err)
		}
		for _, u := range supervisors {
			add(u.Phone)
		}
	}
	return out
}

func (s *Service) record(channel, event string, report *Report, send func() error) {
	start := time.Now()
	err := send()
	s.metrics.ObserveOutbound(channel, time.Since(start))
	s.metrics.RecordNotification(channel, err == nil)

	if err != nil {
		report.Failed++
		s.log.Warn("notification delivery failed", "channel", channel, "event", event, "error", err)
		return
	}
	report.Delivered++
	s.log.Info("notification delivered", "channel", channel, "event", event)
}

// AgentInfo projects the agent attached to a notification, or nil.
func AgentInfo(u *models.User) *models.AgentInfo {
	if u == nil {
		return nil
	}
	return &models.AgentInfo{UserID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}
}
