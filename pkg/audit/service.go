// Package audit appends entries to the write-once audit trail.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/store"
)

// Service handles audit logging
type Service struct {
	logs store.AuditLogs
	now  func() time.Time
}

// NewService creates a new audit service
func NewService(logs store.AuditLogs) *Service {
	return &Service{logs: logs, now: time.Now}
}

// Entry describes one audited change. OldValue and NewValue may be any
// JSON-encodable value.
type Entry struct {
	EntityType   string
	EntityID     string
	Action       string
	Field        string
	OldValue     interface{}
	NewValue     interface{}
	PerformedBy  *models.User
	AuthorizedBy *models.User
}

// Log persists e. The client address is taken from ctx (see WithIP).
func (s *Service) Log(ctx context.Context, e Entry) (*models.AuditLogEntry, error) {
	entry := &models.AuditLogEntry{
		ID:           models.NewID(models.PrefixAuditLog),
		EntityType:   e.EntityType,
		EntityID:     e.EntityID,
		Action:       e.Action,
		FieldChanged: e.Field,
		OldValue:     Stringify(e.OldValue),
		NewValue:     Stringify(e.NewValue),
		Timestamp:    s.now().UTC(),
		IPAddress:    IPFrom(ctx),
	}
	if p := e.PerformedBy; p != nil {
		entry.PerformedByID, entry.PerformedByName, entry.PerformedByRole = p.ID, p.Name, p.Role
	}
	if a := e.AuthorizedBy; a != nil {
		entry.AuthorizedByID, entry.AuthorizedByName = a.ID, a.Name
	}

	if err := s.logs.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append audit entry: %w", err)
	}
	return entry, nil
}

// List returns entries newest first.
func (s *Service) List(ctx context.Context, f models.AuditFilter) ([]*models.AuditLogEntry, error) {
	return s.logs.List(ctx, f)
}

// Stringify renders a value for storage: nil is empty, strings are kept
// as-is and everything else is JSON.
func Stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
