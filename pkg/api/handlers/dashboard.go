package handlers

import (
	"net/http"

	apierrors "github.com/jordanlanch/campusflow/pkg/api/errors"
	apimw "github.com/jordanlanch/campusflow/pkg/api/middleware"
	"github.com/jordanlanch/campusflow/pkg/dashboard"
	"github.com/labstack/echo/v4"
)

// DashboardHandler serves the dashboard figures and dropdown options.
type DashboardHandler struct {
	dashboard *dashboard.Service
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(svc *dashboard.Service) *DashboardHandler {
	return &DashboardHandler{dashboard: svc}
}

// Stats godoc
// @Summary Dashboard statistics
// @Description Agents only see their own figures. leads_by_agent is filled for admins and gerentes.
// @Tags Dashboard
// @Produce json
// @Success 200 {object} models.DashboardStats
// @Security BearerAuth
// @Router /dashboard/stats [get]
func (h *DashboardHandler) Stats(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	stats, err := h.dashboard.Stats(ctx, apimw.CurrentUser(c))
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// Careers godoc
// @Summary Career options
// @Tags Dashboard
// @Produce json
// @Success 200 {array} string
// @Security BearerAuth
// @Router /dashboard/careers [get]
func (h *DashboardHandler) Careers(c echo.Context) error {
	ctx, cancel := requestContext(c, requestTimeout)
	defer cancel()

	names, err := h.dashboard.Careers(ctx)
	if err != nil {
		return apierrors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, names)
}

// Sources godoc
// @Summary Lead source options
// @Tags Dashboard
// @Produce json
// @Success 200 {array} string
// @Security BearerAuth
// @Router /dashboard/sources [get]
func (h *DashboardHandler) Sources(c echo.Context) error {
	return c.JSON(http.StatusOK, dashboard.Sources())
}

// Statuses godoc
// @Summary Lead status options
// @Tags Dashboard
// @Produce json
// @Success 200 {array} string
// @Security BearerAuth
// @Router /dashboard/statuses [get]
func (h *DashboardHandler) Statuses(c echo.Context) error {
	return c.JSON(http.StatusOK, dashboard.Statuses())
}
