package models

import "time"

// Attendance statuses.
const (
	AttendancePresente    = "presente"
	AttendanceAusente     = "ausente"
	AttendanceJustificado = "justificado"
)

// StudentDocument is the metadata of an uploaded student file.
type StudentDocument struct {
	ID               string    `json:"document_id" bson:"document_id"`
	Name             string    `json:"name" bson:"name"`
	Filename         string    `json:"filename" bson:"filename"`
	OriginalFilename string    `json:"original_filename" bson:"original_filename"`
	ContentType      string    `json:"content_type" bson:"content_type"`
	Size             int64     `json:"size" bson:"size"`
	UploadedAt       time.Time `json:"uploaded_at" bson:"uploaded_at"`
}

// AttendanceRecord is one class attendance entry.
type AttendanceRecord struct {
	Date        string `json:"date" bson:"date"`
	Subject     string `json:"subject" bson:"subject"`
	TeacherID   string `json:"teacher_id,omitempty" bson:"teacher_id,omitempty"`
	TeacherName string `json:"teacher_name,omitempty" bson:"teacher_name,omitempty"`
	Status      string `json:"status" bson:"status"`
	Notes       string `json:"notes,omitempty" bson:"notes,omitempty"`
}

// Student is an enrolled student.
type Student struct {
	ID                 string                 `json:"student_id" bson:"_id"`
	FullName           string                 `json:"full_name" bson:"full_name"`
	Email              string                 `json:"email,omitempty" bson:"email,omitempty"`
	Phone              string                 `json:"phone,omitempty" bson:"phone,omitempty"`
	CareerID           string                 `json:"career_id,omitempty" bson:"career_id,omitempty"`
	CareerName         string                 `json:"career_name,omitempty" bson:"career_name,omitempty"`
	InstitutionalEmail string                 `json:"institutional_email,omitempty" bson:"institutional_email,omitempty"`
	LeadID             string                 `json:"lead_id,omitempty" bson:"lead_id,omitempty"`
	Documents          []StudentDocument      `json:"documents" bson:"documents"`
	Attendance         []AttendanceRecord     `json:"attendance" bson:"attendance"`
	CustomFields       map[string]interface{} `json:"custom_fields" bson:"custom_fields"`
	IsActive           bool                   `json:"is_active" bson:"is_active"`
	CreatedAt          time.Time              `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at" bson:"updated_at"`
}

// Document returns the document with the given id, or nil.
func (s *Student) Document(id string) *StudentDocument {
	for i := range s.Documents {
		if s.Documents[i].ID == id {
			return &s.Documents[i]
		}
	}
	return nil
}

// CreateStudentRequest represents a direct student creation
type CreateStudentRequest struct {
	FullName           string `json:"full_name" validate:"required,min=2"`
	Email              string `json:"email,omitempty" validate:"omitempty,email"`
	Phone              string `json:"phone,omitempty"`
	CareerID           string `json:"career_id,omitempty"`
	CareerName         string `json:"career_name,omitempty"`
	InstitutionalEmail string `json:"institutional_email,omitempty" validate:"omitempty,email"`
	LeadID             string `json:"lead_id,omitempty"`
}

// UpdateStudentRequest holds optional student changes.
type UpdateStudentRequest struct {
	FullName           *string `json:"full_name,omitempty" validate:"omitempty,min=2"`
	Email              *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone              *string `json:"phone,omitempty"`
	CareerID           *string `json:"career_id,omitempty"`
	CareerName         *string `json:"career_name,omitempty"`
	InstitutionalEmail *string `json:"institutional_email,omitempty" validate:"omitempty,email"`
	IsActive           *bool   `json:"is_active,omitempty"`
}

// RecordAttendanceRequest records a class attendance entry.
type RecordAttendanceRequest struct {
	Date        string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Subject     string `json:"subject"`
	TeacherID   string `json:"teacher_id,omitempty"`
	TeacherName string `json:"teacher_name,omitempty"`
	Status      string `json:"status,omitempty" validate:"omitempty,oneof=presente ausente justificado"`
	Notes       string `json:"notes,omitempty"`
}
