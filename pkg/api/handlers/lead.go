package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	apierrors "github.com/jordanlanch/campusflow/pkg/api/errors"
	apimw "github.com/jordanlanch/campusflow/pkg/api/middleware"
	"github.com/jordanlanch/campusflow/pkg/leads"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/labstack/echo/v4"
)

// LeadHandler handles lead endpoints
type LeadHandler struct {
	leads     *leads.Service
	validator *validator.Validate
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(leadsSvc *leads.Service) *LeadHandler {
	return &LeadHandler{leads: leadsSvc, validator: validator.New()}
}

// Create godoc
// @Summary Create a lead
// @Description Creates a lead, assigns an agent and notifies lead.created
// @Tags Leads
// @Accept json
// @Produce json
// @Param request body models.CreateLeadRequest true "Lead"
// @Success 200 {object} models.Lead
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /leads [post]
func (h *LeadHandler) Create(c echo.Context) error {
	var req models.CreateLeadRequest
	if err := bind(c, h.validator, &req); err != nil {
		return apierrors.FromDomain(c, err)
	}

	ctx, cancel := requestContext(c, outboundTimeout)
	defer cancel()

	lead, err := h.leads.Create(ctx, req, apimw.CurrentUser(c))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, lead)
}

// List godoc
// @Summary List leads
// @Description Agents only see their own leads. Newest first.
// @Tags Leads
// @Produce json
// @Param status query string false "Pipeline stage"
// @Param source query string false "Source"
// @Param agent_id query string false "Assigned agent"
// @Param career query string false "Career interest"
// @Param search query string false "Matches name, email or phone"
// @Success 200 {array} models.Lead
// @Security BearerAuth
// @Router /leads [get]
func (h *LeadHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	filter := models.LeadFilter{
		Status:          models.LeadStatus(c.QueryParam("status")),
		Source:          c.QueryParam("source"),
		AssignedAgentID: c.QueryParam("agent_id"),
		CareerInterest:  c.QueryParam("career"),
		Search:          c.QueryParam("search"),
	}
	list, err := h.leads.List(ctx, filter, apimw.CurrentUser(c))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Get godoc
// @Summary Get a lead
// @Tags Leads
// @Produce json
// @Param id path string true "Lead ID"
// @Success 200 {object} models.Lead
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /leads/{id} [get]
func (h *LeadHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	lead, err := h.leads.Get(ctx, c.Param("id"), apimw.CurrentUser(c))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, lead)
}

// Update godoc
// @Summary Update a lead
// @Description Moving a lead to etapa_4_inscrito converts it into a student
// @Tags Leads
// @Accept json
// @Produce json
// @Param id path string true "Lead ID"
// @Param request body models.UpdateLeadRequest true "Changes"
// @Success 200 {object} models.Lead
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /leads/{id} [put]
func (h *LeadHandler) Update(c echo.Context) error {
	var req models.UpdateLeadRequest
	if err := bind(c, h.validator, &req); err != nil {
		return apierrors.FromDomain(c, err)
	}

	ctx, cancel := requestContext(c, outboundTimeout)
	defer cancel()

	lead, err := h.leads.Update(ctx, c.Param("id"), req, apimw.CurrentUser(c))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, lead)
}

// Delete godoc
// @Summary Delete a lead
// @Description Also deletes the lead's conversation
// @Tags Leads
// @Produce json
// @Param id path string true "Lead ID"
// @Success 200 {object} models.MessageResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /leads/{id} [delete]
func (h *LeadHandler) Delete(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	if err := h.leads.Delete(ctx, c.Param("id")); err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, models.MessageResponse{Message: "Lead eliminado"})
}

// Convert godoc
// @Summary Convert a lead into a student
// @Tags Leads
// @Accept json
// @Produce json
// @Param id path string true "Lead ID"
// @Param request body models.ConvertLeadRequest false "Overrides"
// @Success 200 {object} models.Student
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /leads/{id}/convert [post]
func (h *LeadHandler) Convert(c echo.Context) error {
	var req models.ConvertLeadRequest
	if c.Request().ContentLength != 0 {
		if err := bind(c, h.validator, &req); err != nil {
			return apierrors.FromDomain(c, err)
		}
	}

	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	student, err := h.leads.Convert(ctx, c.Param("id"), req, apimw.CurrentUser(c))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, student)
}

// Conversation godoc
// @Summary Get a lead's conversation
// @Tags Leads
// @Produce json
// @Param id path string true "Lead ID"
// @Success 200 {object} models.Conversation
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /leads/{id}/conversations [get]
func (h *LeadHandler) Conversation(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	conv, err := h.leads.Conversation(ctx, c.Param("id"), apimw.CurrentUser(c))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, conv)
}

// AddMessage godoc
// @Summary Append a conversation message
// @Tags Leads
// @Accept json
// @Produce json
// @Param id path string true "Lead ID"
// @Param request body models.AddMessageRequest true "Message"
// @Success 200 {object} models.Conversation
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /leads/{id}/conversations [post]
func (h *LeadHandler) AddMessage(c echo.Context) error {
	var req models.AddMessageRequest
	if err := bind(c, h.validator, &req); err != nil {
		return apierrors.FromDomain(c, err)
	}

	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	conv, err := h.leads.AddMessage(ctx, c.Param("id"), req, apimw.CurrentUser(c))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, conv)
}
