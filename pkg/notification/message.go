package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/jordanlanch/campusflow/pkg/models"
)

// LeadData is the notification payload of a lead.
func LeadData(l *models.Lead) map[string]interface{} {
	return map[string]interface{}{
		"lead_id":         l.ID,
		"full_name":       l.FullName,
		"email":           l.Email,
		"phone":           l.Phone,
		"career_interest": l.CareerInterest,
		"source":          l.Source,
		"source_detail":   l.SourceDetail,
		"status":          string(l.Status),
		"created_at":      l.CreatedAt.Format(time.RFC3339),
	}
}

// AppointmentData is the notification payload of an appointment.
func AppointmentData(a *models.Appointment) map[string]interface{} {
	return map[string]interface{}{
		"appointment_id": a.ID,
		"lead_id":        a.LeadID,
		"lead_name":      a.LeadName,
		"agent_id":       a.AgentID,
		"agent_name":     a.AgentName,
		"title":          a.Title,
		"description":    a.Description,
		"scheduled_at":   a.ScheduledAt.Format(time.RFC3339),
		"status":         a.Status,
	}
}

func field(data map[string]interface{}, key string) string {
	v, ok := data[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Subject is the email subject used for event.
func Subject(event string) string {
	switch event {
	case models.EventLeadCreated:
		return "Nuevo lead - UCIC"
	case models.EventAppointmentCreated:
		return "Nueva cita - UCIC"
	case models.EventAppointmentReminder:
		return "Recordatorio de cita - UCIC"
	default:
		return "Notificación - UCIC"
	}
}

// Message renders the human readable text sent over WhatsApp and email.
func Message(event string, data map[string]interface{}, agent *models.AgentInfo) string {
	var b strings.Builder
	switch event {
	case models.EventLeadCreated:
		fmt.Fprintf(&b, "🆕 Nuevo Lead!\n\nNombre: %s\nEmail: %s\nTeléfono: %s\nCarrera: %s\nFuente: %s",
			field(data, "full_name"), field(data, "email"), field(data, "phone"),
			field(data, "career_interest"), field(data, "source"))
	case models.EventAppointmentCreated, models.EventAppointmentReminder:
		title := "📅 Nueva Cita!"
		if event == models.EventAppointmentReminder {
			title = "⏰ Recordatorio de Cita"
		}
		fmt.Fprintf(&b, "%s\n\nTítulo: %s\nLead: %s\nFecha: %s",
			title, field(data, "title"), field(data, "lead_name"), field(data, "scheduled_at"))
	default:
		fmt.Fprintf(&b, "Evento: %s", event)
	}

	if agent != nil && agent.Name != "" {
		fmt.Fprintf(&b, "\n\nAsignado a: %s", agent.Name)
	}
	return b.String()
}
