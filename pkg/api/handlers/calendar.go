package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	apierrors "github.com/jordanlanch/campusflow/pkg/api/errors"
	apimw "github.com/jordanlanch/campusflow/pkg/api/middleware"
	"github.com/jordanlanch/campusflow/pkg/calendar"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/labstack/echo/v4"
)

// CalendarHandler handles the Google Calendar connection of the current user.
type CalendarHandler struct {
	calendar  *calendar.Service
	validator *validator.Validate
}

// NewCalendarHandler creates a new calendar handler
func NewCalendarHandler(svc *calendar.Service) *CalendarHandler {
	return &CalendarHandler{calendar: svc, validator: validator.New()}
}

// Connect godoc
// @Summary Start the Google Calendar connection
// @Tags Calendar
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 500 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /auth/google/calendar/connect [get]
func (h *CalendarHandler) Connect(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	url, err := h.calendar.AuthURL(ctx, apimw.CurrentUser(c).ID)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"auth_url": url})
}

// Callback godoc
// @Summary Google OAuth callback
// @Description Stores the tokens and redirects to the frontend calendar page
// @Tags Calendar
// @Param code query string false "Authorization code"
// @Param state query string false "State issued by connect"
// @Param error query string false "Provider error"
// @Success 307
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/google/calendar/callback [get]
func (h *CalendarHandler) Callback(c echo.Context) error {
	ctx, cancel := requestContext(c, outboundTimeout)
	defer cancel()

	redirect, err := h.calendar.Callback(ctx, c.QueryParam("code"), c.QueryParam("state"), c.QueryParam("error"))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.Redirect(http.StatusTemporaryRedirect, redirect)
}

// Status godoc
// @Summary Google Calendar connection status
// @Tags Calendar
// @Produce json
// @Success 200 {object} models.CalendarStatus
// @Security BearerAuth
// @Router /auth/google/calendar/status [get]
func (h *CalendarHandler) Status(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	status, err := h.calendar.Status(ctx, apimw.CurrentUser(c).ID)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

// Disconnect godoc
// @Summary Disconnect Google Calendar
// @Tags Calendar
// @Produce json
// @Success 200 {object} models.MessageResponse
// @Security BearerAuth
// @Router /auth/google/calendar/disconnect [delete]
func (h *CalendarHandler) Disconnect(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	if err := h.calendar.Disconnect(ctx, apimw.CurrentUser(c).ID); err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, models.MessageResponse{Message: calendar.MsgDisconnected})
}

// ListEvents godoc
// @Summary Upcoming calendar events
// @Description Events of the primary calendar for the next 30 days
// @Tags Calendar
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /auth/google/calendar/events [get]
func (h *CalendarHandler) ListEvents(c echo.Context) error {
	ctx, cancel := requestContext(c, outboundTimeout)
	defer cancel()

	events, err := h.calendar.ListEvents(ctx, apimw.CurrentUser(c).ID)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"events": events})
}

// CreateEvent godoc
// @Summary Create a calendar event
// @Tags Calendar
// @Accept json
// @Produce json
// @Param request body models.CreateCalendarEventRequest true "Event"
// @Success 200 {object} models.CalendarEventResponse
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /auth/google/calendar/events [post]
func (h *CalendarHandler) CreateEvent(c echo.Context) error {
	var req models.CreateCalendarEventRequest
	if err := bind(c, h.validator, &req); err != nil {
		return apierrors.FromDomain(c, err)
	}

	ctx, cancel := requestContext(c, outboundTimeout)
	defer cancel()

	resp, err := h.calendar.CreateEvent(ctx, apimw.CurrentUser(c).ID, req)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// DeleteEvent godoc
// @Summary Delete a calendar event
// @Tags Calendar
// @Produce json
// @Param event_id path string true "Google event ID"
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /auth/google/calendar/events/{event_id} [delete]
func (h *CalendarHandler) DeleteEvent(c echo.Context) error {
	ctx, cancel := requestContext(c, outboundTimeout)
	defer cancel()

	if err := h.calendar.DeleteEvent(ctx, apimw.CurrentUser(c).ID, c.Param("event_id")); err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, models.MessageResponse{Message: "Evento eliminado"})
}
