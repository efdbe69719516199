package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error with a code and a short
// user-facing message. Err carries the underlying cause, if any.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Error codes
const (
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeConflict     = "CONFLICT"
)

// NewNotFoundError creates a not found error with a localized message,
// e.g. NewNotFoundError("Lead no encontrado").
func NewNotFoundError(msg string) error {
	return &DomainError{Code: ErrCodeNotFound, Message: msg}
}

// NewValidationError creates a validation / business rule error.
func NewValidationError(msg string) error {
	return &DomainError{Code: ErrCodeValidation, Message: msg}
}

// NewUnauthorizedError creates an authentication error.
func NewUnauthorizedError(msg string) error {
	if msg == "" {
		msg = "No autenticado"
	}
	return &DomainError{Code: ErrCodeUnauthorized, Message: msg}
}

// NewForbiddenError creates a permission error.
func NewForbiddenError(msg string) error {
	if msg == "" {
		msg = "Permisos insuficientes"
	}
	return &DomainError{Code: ErrCodeForbidden, Message: msg}
}

// NewInternalError wraps an unexpected failure. The message shown to clients
// never includes err.
func NewInternalError(msg string, err error) error {
	if msg == "" {
		msg = "Error interno del servidor"
	}
	return &DomainError{Code: ErrCodeInternal, Message: msg, Err: err}
}

// NewConflictError creates a uniqueness/duplicate error. The HTTP layer reports
// it as 400 like any other business rule violation.
func NewConflictError(msg string) error {
	return &DomainError{Code: ErrCodeConflict, Message: msg}
}

func hasCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool { return hasCode(err, ErrCodeValidation) }

// IsUnauthorized checks if the error is an unauthorized error
func IsUnauthorized(err error) bool { return hasCode(err, ErrCodeUnauthorized) }

// IsForbidden checks if the error is a forbidden error
func IsForbidden(err error) bool { return hasCode(err, ErrCodeForbidden) }

// IsInternal checks if the error is an internal error
func IsInternal(err error) bool { return hasCode(err, ErrCodeInternal) }

// IsConflict checks if the error is a conflict error
func IsConflict(err error) bool { return hasCode(err, ErrCodeConflict) }

// GetErrorCode extracts the error code from a domain error
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternal
}

// Message returns the user-facing message of a domain error, or a generic
// message for anything else.
func Message(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return "Error interno del servidor"
}
