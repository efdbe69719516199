package models

import "time"

// Notification events.
const (
	EventLeadCreated         = "lead.created"
	EventLeadUpdated         = "lead.updated"
	EventAppointmentCreated  = "appointment.created"
	EventAppointmentReminder = "appointment.reminder"
)

// NotificationEvents lists the events webhooks can subscribe to.
var NotificationEvents = []string{EventLeadCreated, EventLeadUpdated, EventAppointmentCreated, EventAppointmentReminder}

// SettingsID is the id of the notification settings singleton.
const SettingsID = "default"

// NotificationSettings is the deployment-wide notification configuration.
type NotificationSettings struct {
	ID                     string    `json:"settings_id" bson:"_id"`
	NotificationPhone      string    `json:"notification_phone,omitempty" bson:"notification_phone,omitempty"`
	NotificationEmail      string    `json:"notification_email,omitempty" bson:"notification_email,omitempty"`
	NotificationWebhookURL string    `json:"notification_webhook_url,omitempty" bson:"notification_webhook_url,omitempty"`
	NotifyOnNewLead        bool      `json:"notify_on_new_lead" bson:"notify_on_new_lead"`
	NotifyOnAppointment    bool      `json:"notify_on_appointment" bson:"notify_on_appointment"`
	NotifySupervisors      bool      `json:"notify_supervisors" bson:"notify_supervisors"`
	UpdatedAt              time.Time `json:"updated_at" bson:"updated_at"`
}

// DefaultNotificationSettings returns the settings used before anyone saves them.
func DefaultNotificationSettings() *NotificationSettings {
	return &NotificationSettings{
		ID:                  SettingsID,
		NotifyOnNewLead:     true,
		NotifyOnAppointment: true,
		UpdatedAt:           time.Now().UTC(),
	}
}

// UpdateNotificationSettingsRequest holds optional settings changes.
type UpdateNotificationSettingsRequest struct {
	NotificationPhone      *string `json:"notification_phone,omitempty"`
	NotificationEmail      *string `json:"notification_email,omitempty" validate:"omitempty,email"`
	NotificationWebhookURL *string `json:"notification_webhook_url,omitempty" validate:"omitempty,url"`
	NotifyOnNewLead        *bool   `json:"notify_on_new_lead,omitempty"`
	NotifyOnAppointment    *bool   `json:"notify_on_appointment,omitempty"`
	NotifySupervisors      *bool   `json:"notify_supervisors,omitempty"`
}

// Webhook is an admin-registered outbound endpoint.
type Webhook struct {
	ID        string    `json:"webhook_id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	URL       string    `json:"url" bson:"url"`
	Events    []string  `json:"events" bson:"events"`
	IsActive  bool      `json:"is_active" bson:"is_active"`
	SecretKey string    `json:"secret_key" bson:"secret_key"`
	CreatedBy string    `json:"created_by" bson:"created_by"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Subscribed reports whether the webhook wants the given event.
func (w *Webhook) Subscribed(event string) bool {
	for _, e := range w.Events {
		if e == event {
			return true
		}
	}
	return false
}

// CreateWebhookRequest registers an outbound webhook
type CreateWebhookRequest struct {
	Name   string   `json:"name" validate:"required"`
	URL    string   `json:"url" validate:"required,url"`
	Events []string `json:"events" validate:"required,min=1,dive,oneof=lead.created lead.updated appointment.created appointment.reminder"`
}

// WebhookPayload is the JSON body posted to webhook endpoints.
type WebhookPayload struct {
	Event         string                 `json:"event"`
	Timestamp     time.Time              `json:"timestamp"`
	Data          map[string]interface{} `json:"data"`
	AssignedAgent *AgentInfo             `json:"assigned_agent,omitempty"`
}

// AgentInfo identifies the agent attached to a notification.
type AgentInfo struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
}
