package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	apierrors "github.com/jordanlanch/campusflow/pkg/api/errors"
	apimw "github.com/jordanlanch/campusflow/pkg/api/middleware"
	"github.com/jordanlanch/campusflow/pkg/audit"
	"github.com/jordanlanch/campusflow/pkg/customfields"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/labstack/echo/v4"
)

// CustomFieldsHandler handles custom field definitions, value edits and the
// approval queue for supervisor changes.
type CustomFieldsHandler struct {
	fields    *customfields.Service
	audit     *audit.Service
	validator *validator.Validate
}

// NewCustomFieldsHandler creates a new custom fields handler.
func NewCustomFieldsHandler(fields *customfields.Service, auditSvc *audit.Service) *CustomFieldsHandler {
	return &CustomFieldsHandler{fields: fields, audit: auditSvc, validator: validator.New()}
}

// ListDefinitions godoc
// @Summary List custom field definitions
// @Tags Custom Fields
// @Produce json
// @Success 200 {array} models.CustomFieldDefinition
// @Security BearerAuth
// @Router /students/custom-fields [get]
func (h *CustomFieldsHandler) ListDefinitions(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	defs, err := h.fields.ListDefinitions(ctx)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, defs)
}

// CreateDefinition godoc
// @Summary Create a custom field
// @Tags Custom Fields
// @Accept json
// @Produce json
// @Param request body models.CreateCustomFieldRequest true "Definition"
// @Success 200 {object} models.CustomFieldDefinition
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /students/custom-fields [post]
func (h *CustomFieldsHandler) CreateDefinition(c echo.Context) error {
	var req models.CreateCustomFieldRequest
	if err := bind(c, h.validator, &req); err != nil {
		return apierrors.FromDomain(c, err)
	}

	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	def, err := h.fields.CreateDefinition(ctx, req, apimw.CurrentUser(c))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, def)
}

// UpdateDefinition godoc
// @Summary Update a custom field
// @Tags Custom Fields
// @Accept json
// @Produce json
// @Param field_id path string true "Field ID"
// @Param request body models.UpdateCustomFieldRequest true "Changes"
// @Success 200 {object} models.CustomFieldDefinition
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /students/custom-fields/{field_id} [put]
func (h *CustomFieldsHandler) UpdateDefinition(c echo.Context) error {
	var req models.UpdateCustomFieldRequest
	if err := bind(c, h.validator, &req); err != nil {
		return apierrors.FromDomain(c, err)
	}

	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	def, err := h.fields.UpdateDefinition(ctx, c.Param("field_id"), req, apimw.CurrentUser(c))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, def)
}

// DeleteDefinition godoc
// @Summary Delete a custom field
// @Description Removes the field and its value from every student
// @Tags Custom Fields
// @Produce json
// @Param field_id path string true "Field ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /students/custom-fields/{field_id} [delete]
func (h *CustomFieldsHandler) DeleteDefinition(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	n, err := h.fields.DeleteDefinition(ctx, c.Param("field_id"), apimw.CurrentUser(c))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":           "Campo eliminado",
		"students_affected": n,
	})
}

// UpdateValues godoc
// @Summary Edit a student's custom field values
// @Description Admins and gerentes apply changes directly. Supervisors create change requests for fields they may edit.
// @Tags Custom Fields
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param request body models.UpdateFieldValuesRequest true "Values by field id"
// @Success 200 {object} models.UpdateFieldValuesResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /students/{id}/custom-fields [put]
func (h *CustomFieldsHandler) UpdateValues(c echo.Context) error {
	var req models.UpdateFieldValuesRequest
	if err := bind(c, h.validator, &req); err != nil {
		return apierrors.FromDomain(c, err)
	}

	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	resp, err := h.fields.UpdateValues(ctx, c.Param("id"), req.Fields, apimw.CurrentUser(c))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// ListRequests godoc
// @Summary List change requests
// @Tags Custom Fields
// @Produce json
// @Param status query string false "pending, approved or rejected"
// @Success 200 {array} models.ChangeRequest
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /students/change-requests [get]
func (h *CustomFieldsHandler) ListRequests(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	list, err := h.fields.ListRequests(ctx, c.QueryParam("status"))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Approve godoc
// @Summary Approve a change request
// @Tags Custom Fields
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} models.ChangeRequest
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /students/change-requests/{id}/approve [post]
func (h *CustomFieldsHandler) Approve(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	req, err := h.fields.Approve(ctx, c.Param("id"), apimw.CurrentUser(c))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, req)
}

// Reject godoc
// @Summary Reject a change request
// @Tags Custom Fields
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} models.ChangeRequest
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /students/change-requests/{id}/reject [post]
func (h *CustomFieldsHandler) Reject(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	req, err := h.fields.Reject(ctx, c.Param("id"), apimw.CurrentUser(c))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, req)
}

// AuditLogs godoc
// @Summary List audit log entries
// @Tags Custom Fields
// @Produce json
// @Param entity_type query string false "student, custom_field or change_request"
// @Param entity_id query string false "Entity ID"
// @Success 200 {array} models.AuditLogEntry
// @Security BearerAuth
// @Router /students/audit-logs [get]
func (h *CustomFieldsHandler) AuditLogs(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	logs, err := h.audit.List(ctx, models.AuditFilter{
		EntityType: c.QueryParam("entity_type"),
		EntityID:   c.QueryParam("entity_id"),
	})
	if err != nil {
		return apierrors.InternalError(c, err)
	}
	return c.JSON(http.StatusOK, logs)
}
