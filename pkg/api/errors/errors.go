// Package errors writes the JSON error envelope returned by every handler.
package errors

import (
	"log"
	"net/http"

	"github.com/jordanlanch/campusflow/pkg/domain"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/labstack/echo/v4"
)

// ValidationError reports a malformed request body without echoing the
// validator output back to the client.
func ValidationError(c echo.Context, err error) error {
	log.Printf("[VALIDATION ERROR] Path: %s, Error: %v", c.Request().URL.Path, err)

	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "validation_error",
		Message: "Datos inválidos. Revisa la información enviada.",
	})
}

// BadRequest reports a business rule violation. message is shown to the client.
func BadRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "bad_request",
		Message: message,
	})
}

// InternalError returns a generic internal server error
func InternalError(c echo.Context, err error) error {
	log.Printf("[INTERNAL ERROR] Path: %s, Error: %v", c.Request().URL.Path, err)

	return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "internal_error",
		Message: "Error interno del servidor",
	})
}

func UnauthorizedError(c echo.Context, message string) error {
	if message == "" {
		message = "No autenticado"
	}
	return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
		Error:   "unauthorized",
		Message: message,
	})
}

func ForbiddenError(c echo.Context, message string) error {
	if message == "" {
		message = "Permisos insuficientes"
	}
	return c.JSON(http.StatusForbidden, models.ErrorResponse{
		Error:   "forbidden",
		Message: message,
	})
}

func NotFoundError(c echo.Context, message string) error {
	if message == "" {
		message = "Recurso no encontrado"
	}
	return c.JSON(http.StatusNotFound, models.ErrorResponse{
		Error:   "not_found",
		Message: message,
	})
}

// ConflictError reports a duplicate. Clients of this API treat duplicates as
// plain 400s.
func ConflictError(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "conflict",
		Message: message,
	})
}

// FromDomain maps a service error onto the HTTP envelope. Errors that are
// not DomainErrors are treated as internal.
func FromDomain(c echo.Context, err error) error {
	switch domain.GetErrorCode(err) {
	case domain.ErrCodeValidation:
		return BadRequest(c, domain.Message(err))
	case domain.ErrCodeConflict:
		return ConflictError(c, domain.Message(err))
	case domain.ErrCodeNotFound:
		return NotFoundError(c, domain.Message(err))
	case domain.ErrCodeUnauthorized:
		return UnauthorizedError(c, domain.Message(err))
	case domain.ErrCodeForbidden:
		return ForbiddenError(c, domain.Message(err))
	}

	log.Printf("[INTERNAL ERROR] Path: %s, Error: %v", c.Request().URL.Path, err)
	return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "internal_error",
		Message: domain.Message(err),
	})
}
