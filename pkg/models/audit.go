package models

import "time"

// Audit actions.
const (
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// Audited entity types.
const (
	EntityStudent       = "student"
	EntityLead          = "lead"
	EntityCustomField   = "custom_field"
	EntityChangeRequest = "change_request"
)

// AuditLogEntry is an append-only record of a change.
type AuditLogEntry struct {
	ID               string    `json:"log_id" bson:"_id"`
	EntityType       string    `json:"entity_type" bson:"entity_type"`
	EntityID         string    `json:"entity_id" bson:"entity_id"`
	Action           string    `json:"action" bson:"action"`
	FieldChanged     string    `json:"field_changed,omitempty" bson:"field_changed,omitempty"`
	OldValue         string    `json:"old_value,omitempty" bson:"old_value,omitempty"`
	NewValue         string    `json:"new_value,omitempty" bson:"new_value,omitempty"`
	PerformedByID    string    `json:"performed_by_id" bson:"performed_by_id"`
	PerformedByName  string    `json:"performed_by_name" bson:"performed_by_name"`
	PerformedByRole  Role      `json:"performed_by_role" bson:"performed_by_role"`
	AuthorizedByID   string    `json:"authorized_by_id,omitempty" bson:"authorized_by_id,omitempty"`
	AuthorizedByName string    `json:"authorized_by_name,omitempty" bson:"authorized_by_name,omitempty"`
	Timestamp        time.Time `json:"timestamp" bson:"timestamp"`
	IPAddress        string    `json:"ip_address,omitempty" bson:"ip_address,omitempty"`
}

// AuditFilter narrows audit log listings.
type AuditFilter struct {
	EntityType string
	EntityID   string
}
