package models

import "time"

// CalendarToken holds a user's Google Calendar OAuth credentials.
type CalendarToken struct {
	UserID       string    `json:"user_id" bson:"_id"`
	AccessToken  string    `json:"-" bson:"access_token"`
	RefreshToken string    `json:"-" bson:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type" bson:"token_type"`
	Scope        string    `json:"scope,omitempty" bson:"scope,omitempty"`
	ExpiresAt    time.Time `json:"expires_at" bson:"expires_at"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// Expired reports whether the access token is no longer valid at now.
func (t *CalendarToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// CalendarStatus describes a user's calendar connection.
type CalendarStatus struct {
	Connected bool       `json:"connected"`
	IsExpired bool       `json:"is_expired,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// CreateCalendarEventRequest creates an event on the user's primary calendar.
type CreateCalendarEventRequest struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Start       string   `json:"start" validate:"required"`
	End         string   `json:"end" validate:"required"`
	Attendees   []string `json:"attendees,omitempty" validate:"omitempty,dive,email"`
}

// CalendarEventResponse is returned after creating a calendar event.
type CalendarEventResponse struct {
	Success  bool   `json:"success"`
	EventID  string `json:"event_id"`
	HTMLLink string `json:"html_link,omitempty"`
}
