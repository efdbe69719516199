package models

import "time"

// Appointment statuses.
const (
	AppointmentScheduled = "scheduled"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
)

// IsValidAppointmentStatus reports whether s is a known appointment status.
func IsValidAppointmentStatus(s string) bool {
	return s == AppointmentScheduled || s == AppointmentCompleted || s == AppointmentCancelled
}

// Appointment binds a lead and an agent to a scheduled time.
type Appointment struct {
	ID                string    `json:"appointment_id" bson:"_id"`
	LeadID            string    `json:"lead_id" bson:"lead_id"`
	LeadName          string    `json:"lead_name,omitempty" bson:"lead_name,omitempty"`
	AgentID           string    `json:"agent_id" bson:"agent_id"`
	AgentName         string    `json:"agent_name,omitempty" bson:"agent_name,omitempty"`
	Title             string    `json:"title" bson:"title"`
	Description       string    `json:"description,omitempty" bson:"description,omitempty"`
	ScheduledAt       time.Time `json:"scheduled_at" bson:"scheduled_at"`
	Status            string    `json:"status" bson:"status"`
	CalendarEventID   string    `json:"calendar_event_id,omitempty" bson:"calendar_event_id,omitempty"`
	CalendarEventLink string    `json:"calendar_event_link,omitempty" bson:"calendar_event_link,omitempty"`
	ReminderSent      bool      `json:"reminder_sent" bson:"reminder_sent"`
	CreatedBy         string    `json:"created_by" bson:"created_by"`
	CreatedAt         time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" bson:"updated_at"`
}

// CreateAppointmentRequest schedules an appointment
type CreateAppointmentRequest struct {
	LeadID      string    `json:"lead_id" validate:"required"`
	AgentID     string    `json:"agent_id" validate:"required"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description,omitempty"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
}

// UpdateAppointmentRequest holds optional appointment changes.
type UpdateAppointmentRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	Status      *string    `json:"status,omitempty"`
	AgentID     *string    `json:"agent_id,omitempty"`
}

// AppointmentFilter narrows appointment listings.
type AppointmentFilter struct {
	AgentID        string
	Status         string
	ScheduledFrom  time.Time
	ScheduledUntil time.Time
	ReminderSent   *bool
}
