package models

import "time"

// Custom field types.
const (
	FieldTypeText     = "text"
	FieldTypeNumber   = "number"
	FieldTypeDate     = "date"
	FieldTypeSelect   = "select"
	FieldTypeCheckbox = "checkbox"
)

// CustomFieldDefinition is an admin-defined per-student attribute.
type CustomFieldDefinition struct {
	ID                   string    `json:"field_id" bson:"_id"`
	FieldName            string    `json:"field_name" bson:"field_name"`
	FieldType            string    `json:"field_type" bson:"field_type"`
	Options              []string  `json:"options" bson:"options"`
	Required             bool      `json:"required" bson:"required"`
	VisibleToStudents    bool      `json:"visible_to_students" bson:"visible_to_students"`
	EditableBySupervisor bool      `json:"editable_by_supervisor" bson:"editable_by_supervisor"`
	Order                int       `json:"order" bson:"order"`
	CreatedBy            string    `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt            time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" bson:"updated_at"`
}

// CreateCustomFieldRequest defines a new custom field. Flags default to true
// when omitted, so they are pointers.
type CreateCustomFieldRequest struct {
	FieldName            string   `json:"field_name" validate:"required,max=100"`
	FieldType            string   `json:"field_type,omitempty" validate:"omitempty,oneof=text number date select checkbox"`
	Options              []string `json:"options,omitempty"`
	Required             bool     `json:"required,omitempty"`
	VisibleToStudents    *bool    `json:"visible_to_students,omitempty"`
	EditableBySupervisor *bool    `json:"editable_by_supervisor,omitempty"`
}

// UpdateCustomFieldRequest holds optional definition changes.
type UpdateCustomFieldRequest struct {
	FieldName            *string   `json:"field_name,omitempty" validate:"omitempty,max=100"`
	FieldType            *string   `json:"field_type,omitempty" validate:"omitempty,oneof=text number date select checkbox"`
	Options              *[]string `json:"options,omitempty"`
	Required             *bool     `json:"required,omitempty"`
	VisibleToStudents    *bool     `json:"visible_to_students,omitempty"`
	EditableBySupervisor *bool     `json:"editable_by_supervisor,omitempty"`
	Order                *int      `json:"order,omitempty"`
}

// UpdateFieldValuesRequest carries new custom field values for one student.
type UpdateFieldValuesRequest struct {
	Fields map[string]interface{} `json:"fields" validate:"required"`
}

// UpdateFieldValuesResponse reports what happened to a value edit.
type UpdateFieldValuesResponse struct {
	Message          string `json:"message"`
	RequiresApproval bool   `json:"requires_approval"`
	RequestsCreated  int    `json:"requests_created,omitempty"`
	FieldsUpdated    int    `json:"fields_updated,omitempty"`
}

// Change request statuses.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// ChangeRequest is a pending supervisor edit awaiting approval.
type ChangeRequest struct {
	ID              string      `json:"request_id" bson:"_id"`
	StudentID       string      `json:"student_id" bson:"student_id"`
	StudentName     string      `json:"student_name" bson:"student_name"`
	FieldID         string      `json:"field_id" bson:"field_id"`
	FieldName       string      `json:"field_name" bson:"field_name"`
	OldValue        interface{} `json:"old_value" bson:"old_value"`
	NewValue        interface{} `json:"new_value" bson:"new_value"`
	RequestedByID   string      `json:"requested_by_id" bson:"requested_by_id"`
	RequestedByName string      `json:"requested_by_name" bson:"requested_by_name"`
	Status          string      `json:"status" bson:"status"`
	ApprovedByID    string      `json:"approved_by_id,omitempty" bson:"approved_by_id,omitempty"`
	ApprovedByName  string      `json:"approved_by_name,omitempty" bson:"approved_by_name,omitempty"`
	CreatedAt       time.Time   `json:"created_at" bson:"created_at"`
	ResolvedAt      *time.Time  `json:"resolved_at,omitempty" bson:"resolved_at,omitempty"`
}
