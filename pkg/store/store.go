// Package store defines the persistence contracts of CampusFlow. Every
// collection of the document database has one interface here; mongostore
// implements them on MongoDB and memstore keeps them in process.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jordanlanch/campusflow/pkg/models"
)

var (
	// ErrNotFound is returned when no document matches.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when a unique index rejects a write.
	ErrDuplicate = errors.New("store: duplicate key")
	// ErrStale is returned when a conditional update finds the document in
	// an unexpected state.
	ErrStale = errors.New("store: precondition failed")
)

// UserFilter narrows user listings. Empty fields match everything.
type UserFilter struct {
	Role       models.Role
	ActiveOnly bool
	Career     string
	IDs        []string
}

// Users persists staff accounts.
type Users interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, f UserFilter) ([]*models.User, error)
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id string) error
}

// LeadGroup is a lead attribute that dashboard counts can group by.
type LeadGroup string

const (
	GroupByStatus LeadGroup = "status"
	GroupBySource LeadGroup = "source"
	GroupByCareer LeadGroup = "career_interest"
	GroupByAgent  LeadGroup = "assigned_agent_id"
)

// Leads persists prospects.
type Leads interface {
	Create(ctx context.Context, l *models.Lead) error
	GetByID(ctx context.Context, id string) (*models.Lead, error)
	// List returns matching leads, newest first.
	List(ctx context.Context, f models.LeadFilter) ([]*models.Lead, error)
	Update(ctx context.Context, l *models.Lead) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, f models.LeadFilter) (int64, error)
	CountByAgent(ctx context.Context, agentID string) (int64, error)
	// CountBy groups matching leads by an attribute. Leads with an empty
	// value for the attribute are left out.
	CountBy(ctx context.Context, group LeadGroup, f models.LeadFilter) (map[string]int64, error)
}

// Conversations persists the per-lead message logs.
type Conversations interface {
	// Ensure returns the conversation of a lead, creating an empty one
	// when none exists.
	Ensure(ctx context.Context, leadID string) (*models.Conversation, error)
	// Append adds a message, creating the conversation when needed.
	Append(ctx context.Context, leadID string, msg models.ConversationMessage) (*models.Conversation, error)
	Delete(ctx context.Context, leadID string) error
}

// Students persists enrolled students. Institutional email and lead id are
// unique when set.
type Students interface {
	Create(ctx context.Context, s *models.Student) error
	GetByID(ctx context.Context, id string) (*models.Student, error)
	GetByLeadID(ctx context.Context, leadID string) (*models.Student, error)
	List(ctx context.Context) ([]*models.Student, error)
	InstitutionalEmailExists(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, s *models.Student) error
	Delete(ctx context.Context, id string) error
	// SetCustomFields sets each key of values individually, leaving other
	// keys untouched.
	SetCustomFields(ctx context.Context, id string, values map[string]interface{}) error
	// UnsetCustomField removes a key from every student and returns how
	// many students were modified.
	UnsetCustomField(ctx context.Context, fieldID string) (int64, error)
	AddDocument(ctx context.Context, id string, doc models.StudentDocument) error
	RemoveDocument(ctx context.Context, id, documentID string) error
	AddAttendance(ctx context.Context, id string, rec models.AttendanceRecord) error
}

// CustomFields persists custom field definitions.
type CustomFields interface {
	Create(ctx context.Context, d *models.CustomFieldDefinition) error
	GetByID(ctx context.Context, id string) (*models.CustomFieldDefinition, error)
	// List returns definitions sorted by order.
	List(ctx context.Context) ([]*models.CustomFieldDefinition, error)
	Update(ctx context.Context, d *models.CustomFieldDefinition) error
	Delete(ctx context.Context, id string) error
	// NextOrder returns one past the highest order in use, or 0.
	NextOrder(ctx context.Context) (int, error)
}

// ChangeRequests persists approval requests.
type ChangeRequests interface {
	Create(ctx context.Context, r *models.ChangeRequest) error
	GetByID(ctx context.Context, id string) (*models.ChangeRequest, error)
	// List returns requests newest first, optionally by status.
	List(ctx context.Context, status string) ([]*models.ChangeRequest, error)
	// Resolve moves a pending request to status. It returns ErrStale when
	// the request is no longer pending.
	Resolve(ctx context.Context, id, status, byID, byName string, at time.Time) error
}

// AuditLogs persists the append-only audit trail.
type AuditLogs interface {
	Append(ctx context.Context, e *models.AuditLogEntry) error
	// List returns entries newest first.
	List(ctx context.Context, f models.AuditFilter) ([]*models.AuditLogEntry, error)
}

// Appointments persists scheduled meetings.
type Appointments interface {
	Create(ctx context.Context, a *models.Appointment) error
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	// List returns appointments by scheduled time, soonest first.
	List(ctx context.Context, f models.AppointmentFilter) ([]*models.Appointment, error)
	Count(ctx context.Context, f models.AppointmentFilter) (int64, error)
	Update(ctx context.Context, a *models.Appointment) error
	Delete(ctx context.Context, id string) error
	MarkReminded(ctx context.Context, id string) error
}

// Teachers persists the teaching staff catalog.
type Teachers interface {
	Create(ctx context.Context, t *models.Teacher) error
	GetByID(ctx context.Context, id string) (*models.Teacher, error)
	List(ctx context.Context) ([]*models.Teacher, error)
	Update(ctx context.Context, t *models.Teacher) error
	Delete(ctx context.Context, id string) error
}

// Careers persists academic programs. Names are unique.
type Careers interface {
	Create(ctx context.Context, c *models.Career) error
	GetByID(ctx context.Context, id string) (*models.Career, error)
	GetByName(ctx context.Context, name string) (*models.Career, error)
	List(ctx context.Context, activeOnly bool) ([]*models.Career, error)
	Update(ctx context.Context, c *models.Career) error
	Delete(ctx context.Context, id string) error
}

// CareerCatalog persists the flat list of career names used by dropdowns.
type CareerCatalog interface {
	// Names returns ErrNotFound when the catalog was never seeded.
	Names(ctx context.Context) ([]string, error)
	// Seed creates the catalog with names unless it already exists.
	Seed(ctx context.Context, names []string) error
	Add(ctx context.Context, name string) error
	Remove(ctx context.Context, name string) error
}

// Webhooks persists registered outbound webhooks.
type Webhooks interface {
	Create(ctx context.Context, w *models.Webhook) error
	GetByID(ctx context.Context, id string) (*models.Webhook, error)
	List(ctx context.Context) ([]*models.Webhook, error)
	// ListForEvent returns active webhooks subscribed to event.
	ListForEvent(ctx context.Context, event string) ([]*models.Webhook, error)
	Delete(ctx context.Context, id string) error
}

// Settings persists the notification settings singleton.
type Settings interface {
	// GetNotificationSettings returns ErrNotFound when never saved.
	GetNotificationSettings(ctx context.Context) (*models.NotificationSettings, error)
	SaveNotificationSettings(ctx context.Context, s *models.NotificationSettings) error
}

// Sessions persists cookie sessions.
type Sessions interface {
	Create(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, token string) (*models.Session, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// CalendarTokens persists per-user Google Calendar credentials.
type CalendarTokens interface {
	Get(ctx context.Context, userID string) (*models.CalendarToken, error)
	Save(ctx context.Context, t *models.CalendarToken) error
	Delete(ctx context.Context, userID string) error
}

// Pinger checks connectivity of the backing database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Store bundles every collection of one backing database.
type Store struct {
	Users          Users
	Leads          Leads
	Conversations  Conversations
	Students       Students
	CustomFields   CustomFields
	ChangeRequests ChangeRequests
	AuditLogs      AuditLogs
	Appointments   Appointments
	Teachers       Teachers
	Careers        Careers
	CareerCatalog  CareerCatalog
	Webhooks       Webhooks
	Settings       Settings
	Sessions       Sessions
	CalendarTokens CalendarTokens
	Health         Pinger
}
