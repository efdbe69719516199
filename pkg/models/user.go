package models

import "time"

// User is a staff member of the school.
type User struct {
	ID              string    `json:"user_id" bson:"_id"`
	Email           string    `json:"email" bson:"email"`
	Name            string    `json:"name" bson:"name"`
	PasswordHash    string    `json:"-" bson:"password_hash"`
	Role            Role      `json:"role" bson:"role"`
	Phone           string    `json:"phone,omitempty" bson:"phone,omitempty"`
	IsActive        bool      `json:"is_active" bson:"is_active"`
	Picture         string    `json:"picture,omitempty" bson:"picture,omitempty"`
	AssignedCareers []string  `json:"assigned_careers" bson:"assigned_careers"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at"`
}

// HasCareer reports whether the user services the given career.
func (u *User) HasCareer(career string) bool {
	for _, c := range u.AssignedCareers {
		if c == career {
			return true
		}
	}
	return false
}

// CreateUserRequest is used by registration and by admin user creation.
type CreateUserRequest struct {
	Email           string   `json:"email" validate:"required,email"`
	Password        string   `json:"password" validate:"required,min=6"`
	Name            string   `json:"name" validate:"required,min=2"`
	Role            Role     `json:"role" validate:"omitempty,oneof=admin gerente supervisor agente maestro"`
	Phone           string   `json:"phone,omitempty"`
	AssignedCareers []string `json:"assigned_careers,omitempty"`
}

// UpdateUserRequest holds optional user changes. Nil fields are left alone.
type UpdateUserRequest struct {
	Name            *string   `json:"name,omitempty" validate:"omitempty,min=2"`
	Role            *Role     `json:"role,omitempty" validate:"omitempty,oneof=admin gerente supervisor agente maestro"`
	Phone           *string   `json:"phone,omitempty"`
	IsActive        *bool     `json:"is_active,omitempty"`
	AssignedCareers *[]string `json:"assigned_careers,omitempty"`
}

// IsEmpty reports whether the request changes nothing.
func (r UpdateUserRequest) IsEmpty() bool {
	return r.Name == nil && r.Role == nil && r.Phone == nil && r.IsActive == nil && r.AssignedCareers == nil
}

// AdminResetPasswordRequest sets a user's password on their behalf.
type AdminResetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required"`
}
