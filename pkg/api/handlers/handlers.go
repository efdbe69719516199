// Package handlers exposes the CampusFlow services over HTTP.
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jordanlanch/campusflow/pkg/audit"
	"github.com/jordanlanch/campusflow/pkg/domain"
	"github.com/labstack/echo/v4"
)

const (
	requestTimeout = 10 * time.Second
	// outboundTimeout covers handlers that wait on Google or notification providers.
	outboundTimeout = 30 * time.Second
)

// Messages returned by handlers.
const (
	MsgInvalidBody = "Cuerpo de solicitud inválido"
	MsgInvalidData = "Datos inválidos. Revisa la información enviada."
	MsgDeleted     = "Eliminado exitosamente"
)

// bind decodes the request body into req and validates it.
func bind(c echo.Context, v *validator.Validate, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return domain.NewValidationError(MsgInvalidBody)
	}
	if err := v.Struct(req); err != nil {
		log.Printf("[VALIDATION ERROR] Path: %s, Error: %v", c.Request().URL.Path, err)
		return domain.NewValidationError(MsgInvalidData)
	}
	return nil
}

// requestContext derives a bounded context carrying the caller's IP for
// audit entries.
func requestContext(c echo.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(audit.RequestContext(c), d)
}
