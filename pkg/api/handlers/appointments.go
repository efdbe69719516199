package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	apierrors "github.com/jordanlanch/campusflow/pkg/api/errors"
	apimw "github.com/jordanlanch/campusflow/pkg/api/middleware"
	"github.com/jordanlanch/campusflow/pkg/appointments"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/labstack/echo/v4"
)

// AppointmentHandler handles appointment endpoints
type AppointmentHandler struct {
	appointments *appointments.Service
	validator    *validator.Validate
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(svc *appointments.Service) *AppointmentHandler {
	return &AppointmentHandler{appointments: svc, validator: validator.New()}
}

// Create godoc
// @Summary Schedule an appointment
// @Description Notifies appointment.created
// @Tags Appointments
// @Accept json
// @Produce json
// @Param request body models.CreateAppointmentRequest true "Appointment"
// @Success 200 {object} models.Appointment
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /appointments [post]
func (h *AppointmentHandler) Create(c echo.Context) error {
	var req models.CreateAppointmentRequest
	if err := bind(c, h.validator, &req); err != nil {
		return apierrors.FromDomain(c, err)
	}

	ctx, cancel := requestContext(c, outboundTimeout)
	defer cancel()

	a, err := h.appointments.Create(ctx, req, apimw.CurrentUser(c))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// List godoc
// @Summary List appointments
// @Description Agents only see their own. Sorted by scheduled time.
// @Tags Appointments
// @Produce json
// @Param agent_id query string false "Agent"
// @Param status query string false "scheduled, completed, cancelled or no_show"
// @Success 200 {array} models.Appointment
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /appointments [get]
func (h *AppointmentHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	list, err := h.appointments.List(ctx, models.AppointmentFilter{
		AgentID: c.QueryParam("agent_id"),
		Status:  c.QueryParam("status"),
	}, apimw.CurrentUser(c))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Get godoc
// @Summary Get an appointment
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} models.Appointment
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /appointments/{id} [get]
func (h *AppointmentHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	a, err := h.appointments.Get(ctx, c.Param("id"), apimw.CurrentUser(c))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// Update godoc
// @Summary Update an appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path string true "Appointment ID"
// @Param request body models.UpdateAppointmentRequest true "Changes"
// @Success 200 {object} models.Appointment
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /appointments/{id} [put]
func (h *AppointmentHandler) Update(c echo.Context) error {
	var req models.UpdateAppointmentRequest
	if err := bind(c, h.validator, &req); err != nil {
		return apierrors.FromDomain(c, err)
	}

	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	a, err := h.appointments.Update(ctx, c.Param("id"), req, apimw.CurrentUser(c))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// Delete godoc
// @Summary Delete an appointment
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} models.MessageResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /appointments/{id} [delete]
func (h *AppointmentHandler) Delete(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	if err := h.appointments.Delete(ctx, c.Param("id"), apimw.CurrentUser(c)); err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, models.MessageResponse{Message: "Cita eliminada"})
}

// PushToCalendar godoc
// @Summary Add an appointment to Google Calendar
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} models.Appointment
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /appointments/{id}/calendar [post]
func (h *AppointmentHandler) PushToCalendar(c echo.Context) error {
	ctx, cancel := requestContext(c, outboundTimeout)
	defer cancel()

	a, err := h.appointments.PushToCalendar(ctx, c.Param("id"), apimw.CurrentUser(c))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// RemoveFromCalendar godoc
// @Summary Remove an appointment from Google Calendar
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} models.Appointment
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /appointments/{id}/calendar [delete]
func (h *AppointmentHandler) RemoveFromCalendar(c echo.Context) error {
	ctx, cancel := requestContext(c, outboundTimeout)
	defer cancel()

	a, err := h.appointments.RemoveFromCalendar(ctx, c.Param("id"), apimw.CurrentUser(c))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, a)
}
