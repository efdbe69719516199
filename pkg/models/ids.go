package models

import (
	"strings"

	"github.com/google/uuid"
)

// Identifier prefixes per entity.
const (
	PrefixUser        = "user"
	PrefixLead        = "lead"
	PrefixStudent     = "student"
	PrefixField       = "field"
	PrefixRequest     = "req"
	PrefixAuditLog    = "log"
	PrefixAppointment = "apt"
	PrefixTeacher     = "teacher"
	PrefixCareer      = "career"
	PrefixWebhook     = "webhook"
	PrefixDocument    = "doc"
)

// NewID returns a prefixed random identifier such as "lead_3f2a9c1d0b7e".
func NewID(prefix string) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "_" + hex[:12]
}
