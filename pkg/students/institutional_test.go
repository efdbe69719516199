package students

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmailBase(t *testing.T) {
	tests := []struct {
		name     string
		fullName string
		want     string
	}{
		{"two words", "Ana Pérez", "ana.perez"},
		{"first and last of many", "  José María  López Núñez ", "jose.nunez"},
		{"single word", "Ñandú", "nandu"},
		{"empty name", "   ", "estudiante"},
		{"symbols are dropped", "O'Brien Smith-Jones", "obrien.smithjones"},
		{"nothing usable left", "李 王", "estudiante"},
		{"digits kept", "Ana2 Ruiz", "ana2.ruiz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EmailBase(tt.fullName))
		})
	}
}

func TestInstitutionalEmail(t *testing.T) {
	assert.Equal(t, "ana.perez@ucic.edu.mx", InstitutionalEmail("ana.perez", "ucic.edu.mx", 0))
	assert.Equal(t, "ana.perez2@ucic.edu.mx", InstitutionalEmail("ana.perez", "ucic.edu.mx", 2))
}
