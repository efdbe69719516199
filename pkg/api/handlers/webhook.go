package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/go-playground/validator/v10"
	apierrors "github.com/jordanlanch/campusflow/pkg/api/errors"
	apimw "github.com/jordanlanch/campusflow/pkg/api/middleware"
	"github.com/jordanlanch/campusflow/pkg/leads"
	"github.com/jordanlanch/campusflow/pkg/models"
	"github.com/jordanlanch/campusflow/pkg/notification"
	"github.com/jordanlanch/campusflow/pkg/webhook"
	"github.com/labstack/echo/v4"
)

// WebhookTokenHeader carries the shared secret of incoming webhooks.
const WebhookTokenHeader = "X-Webhook-Token"

// WebhookHandler manages outbound webhooks, the incoming lead ingress and
// notification settings.
type WebhookHandler struct {
	hooks         *webhook.Service
	leads         *leads.Service
	notifications *notification.Service
	incomingToken string
	validator     *validator.Validate
}

// NewWebhookHandler creates a new webhook handler. An empty incomingToken
// leaves the ingress open.
func NewWebhookHandler(hooks *webhook.Service, leadsSvc *leads.Service, notifications *notification.Service, incomingToken string) *WebhookHandler {
	return &WebhookHandler{
		hooks:         hooks,
		leads:         leadsSvc,
		notifications: notifications,
		incomingToken: incomingToken,
		validator:     validator.New(),
	}
}

// Create godoc
// @Summary Register a webhook
// @Description The signing secret is generated and returned once
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param request body models.CreateWebhookRequest true "Webhook"
// @Success 200 {object} models.Webhook
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /webhooks [post]
func (h *WebhookHandler) Create(c echo.Context) error {
	var req models.CreateWebhookRequest
	if err := bind(c, h.validator, &req); err != nil {
		return apierrors.FromDomain(c, err)
	}

	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	wh, err := h.hooks.Create(ctx, req, apimw.CurrentUser(c).ID)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, wh)
}

// List godoc
// @Summary List webhooks
// @Tags Webhooks
// @Produce json
// @Success 200 {array} models.Webhook
// @Security BearerAuth
// @Router /webhooks [get]
func (h *WebhookHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	list, err := h.hooks.List(ctx)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Delete godoc
// @Summary Delete a webhook
// @Tags Webhooks
// @Produce json
// @Param id path string true "Webhook ID"
// @Success 200 {object} models.MessageResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /webhooks/{id} [delete]
func (h *WebhookHandler) Delete(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	if err := h.hooks.Delete(ctx, c.Param("id")); err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, models.MessageResponse{Message: "Webhook eliminado"})
}

// IncomingLead godoc
// @Summary Receive a lead from an automation
// @Description Public ingress for n8n and similar tools. Requires X-Webhook-Token when a token is configured.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param request body models.IncomingLeadRequest true "Lead"
// @Success 200 {object} models.IncomingLeadResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /webhooks/incoming/lead [post]
func (h *WebhookHandler) IncomingLead(c echo.Context) error {
	if h.incomingToken != "" {
		got := c.Request().Header.Get(WebhookTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.incomingToken)) != 1 {
			return apierrors.UnauthorizedError(c, "Token de webhook inválido")
		}
	}

	var req models.IncomingLeadRequest
	if err := bind(c, h.validator, &req); err != nil {
		return apierrors.FromDomain(c, err)
	}

	ctx, cancel := requestContext(c, outboundTimeout)
	defer cancel()

	resp, err := h.leads.CreateIncoming(ctx, req)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetSettings godoc
// @Summary Notification settings
// @Tags Settings
// @Produce json
// @Success 200 {object} models.NotificationSettings
// @Security BearerAuth
// @Router /settings/notifications [get]
func (h *WebhookHandler) GetSettings(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	settings, err := h.notifications.GetSettings(ctx)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, settings)
}

// UpdateSettings godoc
// @Summary Update notification settings
// @Tags Settings
// @Accept json
// @Produce json
// @Param request body models.UpdateNotificationSettingsRequest true "Changes"
// @Success 200 {object} models.NotificationSettings
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /settings/notifications [put]
func (h *WebhookHandler) UpdateSettings(c echo.Context) error {
	var req models.UpdateNotificationSettingsRequest
	if err := bind(c, h.validator, &req); err != nil {
		return apierrors.FromDomain(c, err)
	}

	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	settings, err := h.notifications.UpdateSettings(ctx, req)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, settings)
}
