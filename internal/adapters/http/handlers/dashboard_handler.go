package handlers

import (
	"klinika-care/internal/core/services"
	"klinika-care/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// DashboardHandler handles the staff dashboard endpoints
type DashboardHandler struct {
	dashboardService *services.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// Pharmacy returns today's pharmacy overview
// @Summary Pharmacy dashboard
// @Description Today's prescription counts per status, queue total and low stock list
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /admin/dashboard/pharmacy [get]
func (h *DashboardHandler) Pharmacy(c *fiber.Ctx) error {
	dashboard, err := h.dashboardService.GetPharmacyDashboard()
	if err != nil {
		return response.InternalServerError(c, "Failed to build dashboard")
	}
	return response.Success(c, "Dashboard retrieved", dashboard)
}
