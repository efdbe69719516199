package errors

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jordanlanch/campusflow/pkg/domain"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newContext creates an echo.Context backed by an httptest.NewRecorder.
func newContext(method, path string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func parseBody(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// captureLog redirects the standard logger to a buffer while fn runs.
func captureLog(fn func()) string {
	var buf bytes.Buffer
	orig := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(orig)
	fn()
	return buf.String()
}

func TestValidationError(t *testing.T) {
	c, rec := newContext(http.MethodPost, "/api/v1/leads")
	internal := "Key: 'CreateLeadRequest.FullName' Error:Field validation for 'FullName' failed"

	logged := captureLog(func() {
		require.NoError(t, ValidationError(c, errors.New(internal)))
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", parseBody(t, rec).Error)
	assert.NotContains(t, rec.Body.String(), "CreateLeadRequest")
	assert.Contains(t, logged, "/api/v1/leads")
	assert.Contains(t, logged, "FullName")
}

func TestInternalError_NoInternalDetails(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/api/v1/students")
	internal := "connection(localhost:27017) socket was unexpectedly closed"

	logged := captureLog(func() {
		_ = InternalError(c, errors.New(internal))
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "27017")
	assert.Contains(t, logged, internal)
}

func TestDefaultMessages(t *testing.T) {
	tests := []struct {
		name    string
		write   func(echo.Context) error
		status  int
		code    string
		message string
	}{
		{"unauthorized", func(c echo.Context) error { return UnauthorizedError(c, "") }, http.StatusUnauthorized, "unauthorized", "No autenticado"},
		{"forbidden", func(c echo.Context) error { return ForbiddenError(c, "") }, http.StatusForbidden, "forbidden", "Permisos insuficientes"},
		{"not found", func(c echo.Context) error { return NotFoundError(c, "") }, http.StatusNotFound, "not_found", "Recurso no encontrado"},
		{"bad request", func(c echo.Context) error { return BadRequest(c, "Nada que actualizar") }, http.StatusBadRequest, "bad_request", "Nada que actualizar"},
		{"conflict is a 400", func(c echo.Context) error { return ConflictError(c, "La carrera ya existe") }, http.StatusBadRequest, "conflict", "La carrera ya existe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(http.MethodGet, "/")
			require.NoError(t, tt.write(c))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, echo.MIMEApplicationJSON, rec.Header().Get(echo.HeaderContentType))
			resp := parseBody(t, rec)
			assert.Equal(t, tt.code, resp.Error)
			assert.Equal(t, tt.message, resp.Message)
		})
	}
}

func TestFromDomain(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", domain.NewValidationError("Estado inválido"), http.StatusBadRequest, "Estado inválido"},
		{"conflict", domain.NewConflictError("El email ya está registrado"), http.StatusBadRequest, "El email ya está registrado"},
		{"not found", domain.NewNotFoundError("Lead no encontrado"), http.StatusNotFound, "Lead no encontrado"},
		{"unauthorized", domain.NewUnauthorizedError("Credenciales inválidas"), http.StatusUnauthorized, "Credenciales inválidas"},
		{"forbidden", domain.NewForbiddenError(""), http.StatusForbidden, "Permisos insuficientes"},
		{"wrapped", fmt.Errorf("convert: %w", domain.NewValidationError("El lead ya fue convertido")), http.StatusBadRequest, "El lead ya fue convertido"},
		{"internal keeps safe message", domain.NewInternalError("Error al enviar el email", errors.New("sendgrid 401")), http.StatusInternalServerError, "Error al enviar el email"},
		{"plain error", errors.New("mongo: boom"), http.StatusInternalServerError, "Error interno del servidor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(http.MethodPost, "/api/v1/x")
			captureLog(func() { require.NoError(t, FromDomain(c, tt.err)) })
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, parseBody(t, rec).Message)
			assert.NotContains(t, rec.Body.String(), "sendgrid")
			assert.NotContains(t, rec.Body.String(), "mongo:")
		})
	}
}
