package models

import "time"

// Teacher is a member of the teaching staff catalog.
type Teacher struct {
	ID        string    `json:"teacher_id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Email     string    `json:"email" bson:"email"`
	Phone     string    `json:"phone,omitempty" bson:"phone,omitempty"`
	Subjects  []string  `json:"subjects" bson:"subjects"`
	IsActive  bool      `json:"is_active" bson:"is_active"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// CreateTeacherRequest adds a teacher to the catalog
type CreateTeacherRequest struct {
	Name     string   `json:"name" validate:"required,min=2"`
	Email    string   `json:"email" validate:"required,email"`
	Phone    string   `json:"phone,omitempty"`
	Subjects []string `json:"subjects,omitempty"`
}

// UpdateTeacherRequest holds optional teacher changes.
type UpdateTeacherRequest struct {
	Name     *string   `json:"name,omitempty" validate:"omitempty,min=2"`
	Email    *string   `json:"email,omitempty" validate:"omitempty,email"`
	Phone    *string   `json:"phone,omitempty"`
	Subjects *[]string `json:"subjects,omitempty"`
	IsActive *bool     `json:"is_active,omitempty"`
}

// Career modalities.
const (
	ModalityPresencial = "presencial"
	ModalityOnline     = "online"
	ModalityHibrido    = "hibrido"
)

// ScheduleSlot is one weekly class slot of a career.
type ScheduleSlot struct {
	Subject     string `json:"subject" bson:"subject" validate:"required"`
	TeacherID   string `json:"teacher_id,omitempty" bson:"teacher_id,omitempty"`
	TeacherName string `json:"teacher_name,omitempty" bson:"teacher_name,omitempty"`
	Day         string `json:"day" bson:"day" validate:"required"`
	StartTime   string `json:"start_time" bson:"start_time" validate:"required"`
	EndTime     string `json:"end_time" bson:"end_time" validate:"required"`
	Mode        string `json:"mode,omitempty" bson:"mode,omitempty"`
	Classroom   string `json:"classroom,omitempty" bson:"classroom,omitempty"`
}

// Career is an academic program with its schedule.
type Career struct {
	ID          string         `json:"career_id" bson:"_id"`
	Name        string         `json:"name" bson:"name"`
	Description string         `json:"description,omitempty" bson:"description,omitempty"`
	Modality    string         `json:"modality" bson:"modality"`
	Schedules   []ScheduleSlot `json:"schedules" bson:"schedules"`
	IsActive    bool           `json:"is_active" bson:"is_active"`
	CreatedAt   time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" bson:"updated_at"`
}

// CreateCareerRequest adds a career with its schedule
type CreateCareerRequest struct {
	Name        string         `json:"name" validate:"required,min=2"`
	Description string         `json:"description,omitempty"`
	Modality    string         `json:"modality,omitempty" validate:"omitempty,oneof=presencial online hibrido"`
	Schedules   []ScheduleSlot `json:"schedules,omitempty" validate:"dive"`
}

// UpdateCareerRequest holds optional career changes.
type UpdateCareerRequest struct {
	Name        *string         `json:"name,omitempty" validate:"omitempty,min=2"`
	Description *string         `json:"description,omitempty"`
	Modality    *string         `json:"modality,omitempty" validate:"omitempty,oneof=presencial online hibrido"`
	Schedules   *[]ScheduleSlot `json:"schedules,omitempty"`
	IsActive    *bool           `json:"is_active,omitempty"`
}

// DefaultCareers seeds the career catalog on first start.
var DefaultCareers = []string{
	"Ingeniería", "Medicina", "Derecho", "Administración", "Contabilidad",
	"Psicología", "Diseño", "Marketing", "Otra",
}
