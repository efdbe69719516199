package models

import "time"

// LeadStatus is a stage of the enrollment pipeline.
type LeadStatus string

const (
	StatusInformacion   LeadStatus = "etapa_1_informacion"
	StatusContacto      LeadStatus = "etapa_2_contacto"
	StatusDocumentacion LeadStatus = "etapa_3_documentacion"
	StatusInscrito      LeadStatus = "etapa_4_inscrito"
)

// LeadStatuses lists the pipeline stages in order.
var LeadStatuses = []LeadStatus{StatusInformacion, StatusContacto, StatusDocumentacion, StatusInscrito}

// IsValidLeadStatus reports whether s is a known stage.
func IsValidLeadStatus(s LeadStatus) bool {
	for _, known := range LeadStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Lead sources.
const (
	SourceFacebook  = "facebook"
	SourceInstagram = "instagram"
	SourceTikTok    = "tiktok"
	SourceManual    = "manual"
	SourceWebhook   = "webhook"
)

// LeadSources lists the accepted lead sources.
var LeadSources = []string{SourceFacebook, SourceInstagram, SourceTikTok, SourceManual, SourceWebhook}

// Lead is a prospective student.
type Lead struct {
	ID                string     `json:"lead_id" bson:"_id"`
	FullName          string     `json:"full_name" bson:"full_name"`
	Email             string     `json:"email,omitempty" bson:"email,omitempty"`
	Phone             string     `json:"phone,omitempty" bson:"phone,omitempty"`
	CareerInterest    string     `json:"career_interest" bson:"career_interest"`
	Source            string     `json:"source" bson:"source"`
	SourceDetail      string     `json:"source_detail,omitempty" bson:"source_detail,omitempty"`
	Status            LeadStatus `json:"status" bson:"status"`
	AssignedAgentID   string     `json:"assigned_agent_id,omitempty" bson:"assigned_agent_id,omitempty"`
	AssignedAgentName string     `json:"assigned_agent_name,omitempty" bson:"assigned_agent_name,omitempty"`
	Notes             string     `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedBy         string     `json:"created_by" bson:"created_by"`
	StudentID         string     `json:"student_id,omitempty" bson:"student_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" bson:"updated_at"`
}

// Converted reports whether the lead already produced a student.
func (l *Lead) Converted() bool {
	return l.StudentID != ""
}

// CreateLeadRequest represents a manual lead entry
type CreateLeadRequest struct {
	FullName        string `json:"full_name" validate:"required,min=2"`
	Email           string `json:"email,omitempty" validate:"omitempty,email"`
	Phone           string `json:"phone,omitempty"`
	CareerInterest  string `json:"career_interest" validate:"required"`
	Source          string `json:"source,omitempty" validate:"omitempty,oneof=facebook instagram tiktok manual webhook"`
	SourceDetail    string `json:"source_detail,omitempty"`
	AssignedAgentID string `json:"assigned_agent_id,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// UpdateLeadRequest holds optional lead changes.
type UpdateLeadRequest struct {
	FullName        *string     `json:"full_name,omitempty" validate:"omitempty,min=2"`
	Email           *string     `json:"email,omitempty" validate:"omitempty,email"`
	Phone           *string     `json:"phone,omitempty"`
	CareerInterest  *string     `json:"career_interest,omitempty"`
	Source          *string     `json:"source,omitempty" validate:"omitempty,oneof=facebook instagram tiktok manual webhook"`
	SourceDetail    *string     `json:"source_detail,omitempty"`
	Status          *LeadStatus `json:"status,omitempty"`
	AssignedAgentID *string     `json:"assigned_agent_id,omitempty"`
	Notes           *string     `json:"notes,omitempty"`
}

// IncomingLeadRequest is the payload pushed by external automations (n8n).
type IncomingLeadRequest struct {
	FullName       string `json:"full_name" validate:"required"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	CareerInterest string `json:"career_interest" validate:"required"`
	SourceDetail   string `json:"source_detail,omitempty"`
	WhatsAppNumber string `json:"whatsapp_number,omitempty"`
}

// IncomingLeadResponse is returned to the automation that pushed a lead.
type IncomingLeadResponse struct {
	Success       bool   `json:"success"`
	LeadID        string `json:"lead_id"`
	Message       string `json:"message"`
	AssignedAgent string `json:"assigned_agent,omitempty"`
}

// LeadFilter narrows lead listings. Empty fields match everything.
type LeadFilter struct {
	Status          LeadStatus
	Source          string
	AssignedAgentID string
	CareerInterest  string
	Search          string
	CreatedFrom     time.Time
}

// Message senders in a conversation.
const (
	SenderAgent = "agent"
	SenderLead  = "lead"
)

// ConversationMessage is one entry of a lead conversation.
type ConversationMessage struct {
	Sender    string    `json:"sender" bson:"sender"`
	Message   string    `json:"message" bson:"message"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Conversation is the append-only message log of a lead.
type Conversation struct {
	LeadID    string                `json:"lead_id" bson:"_id"`
	Messages  []ConversationMessage `json:"messages" bson:"messages"`
	CreatedAt time.Time             `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time             `json:"updated_at" bson:"updated_at"`
}

// AddMessageRequest appends a message to a lead conversation.
type AddMessageRequest struct {
	Sender  string `json:"sender" validate:"required,oneof=agent lead"`
	Message string `json:"message" validate:"required"`
}

// ConvertLeadRequest carries optional overrides for the student created from
// a lead.
type ConvertLeadRequest struct {
	InstitutionalEmail string `json:"institutional_email,omitempty" validate:"omitempty,email"`
	CareerID           string `json:"career_id,omitempty"`
	CareerName         string `json:"career_name,omitempty"`
}
