package handlers

import (
	"cardpool/internal/core/services"
	"cardpool/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// DashboardHandler handles dashboard endpoints
type DashboardHandler struct {
	dashboardService *services.DashboardService
	limitService     *services.LimitService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *services.DashboardService, limitService *services.LimitService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		limitService:     limitService,
	}
}

// GetSummary returns the shared usage overview
// @Summary Dashboard summary
// @Description Get the pool figures and every active member's usage
// @Tags Dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /dashboard/summary [get]
func (h *DashboardHandler) GetSummary(c *fiber.Ctx) error {
	memberID, ok := c.Locals("memberID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	data, err := h.dashboardService.GetSummary(c.Context(), memberID)
	if err != nil {
		return response.InternalServerError(c, "Failed to get dashboard")
	}

	return response.Success(c, "Dashboard retrieved successfully", data)
}

// GetMyLimit returns the viewer's limit figures
// @Summary My limit
// @Description Get the current member's effective and remaining limit
// @Tags Dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /me/limit [get]
func (h *DashboardHandler) GetMyLimit(c *fiber.Ctx) error {
	memberID, ok := c.Locals("memberID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	info, err := h.limitService.PersonalInfo(c.Context(), memberID)
	if err != nil {
		return response.InternalServerError(c, "Failed to compute limit")
	}

	return response.Success(c, "Limit retrieved successfully", info)
}
