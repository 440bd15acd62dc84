package handlers

import (
	"errors"
	"fmt"

	"cardpool/internal/core/domain"
	"cardpool/internal/core/services"
	"cardpool/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AdminHandler handles membership control and export endpoints
type AdminHandler struct {
	adminService  *services.AdminService
	exportService *services.ExportService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService *services.AdminService, exportService *services.ExportService) *AdminHandler {
	return &AdminHandler{
		adminService:  adminService,
		exportService: exportService,
	}
}

// PatchMemberRequest represents the member patch body
type PatchMemberRequest struct {
	Action string `json:"action"` // toggle_role or toggle_active
	Force  bool   `json:"force"`
}

// ListMembers returns every member with limit figures
// @Summary List members
// @Description Get all members with recomputed limit figures (Admin only)
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /admin/members [get]
func (h *AdminHandler) ListMembers(c *fiber.Ctx) error {
	result, err := h.adminService.ListMembers(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to list members")
	}

	return response.Success(c, "Members retrieved successfully", result)
}

// PatchMember toggles a member's role or active flag
// @Summary Patch member
// @Description Toggle a member's role or active flag (Admin only). Deactivation
// that would push usage over the shrunken pool returns 409 with the figures;
// retry with force=true to proceed.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Param body body PatchMemberRequest true "Patch action"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/members/{id} [patch]
func (h *AdminHandler) PatchMember(c *fiber.Ctx) error {
	actorID, ok := c.Locals("memberID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	targetID, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid member ID")
	}

	var req PatchMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	var member interface{}
	switch req.Action {
	case "toggle_role":
		member, err = h.adminService.ToggleRole(c.Context(), actorID, targetID)
	case "toggle_active":
		member, err = h.adminService.ToggleActive(c.Context(), actorID, targetID, req.Force)
	default:
		return response.BadRequest(c, "action must be toggle_role or toggle_active")
	}

	if err != nil {
		var warning *domain.OverLimitWarning
		switch {
		case errors.Is(err, domain.ErrMemberNotFound):
			return response.NotFound(c, "Member not found")
		case errors.Is(err, domain.ErrSelfActionForbidden):
			return response.Forbidden(c, "You cannot perform this action on your own account")
		case errors.As(err, &warning):
			return response.ErrorWithData(c, fiber.StatusConflict,
				"Deactivation would push usage over the new shared limit", fiber.Map{
					"warning":            true,
					"current_total_used": warning.CurrentTotalUsed,
					"new_total_limit":    warning.NewTotalLimit,
				})
		default:
			return response.InternalServerError(c, "Failed to update member")
		}
	}

	return response.Success(c, "Member updated successfully", member)
}

// Export downloads the full expense ledger
// @Summary Export expenses
// @Description Download every member's expenses as CSV or XLSX (Admin only)
// @Tags Admin
// @Accept json
// @Produce octet-stream
// @Security BearerAuth
// @Param format query string false "csv or xlsx" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /admin/export [get]
func (h *AdminHandler) Export(c *fiber.Ctx) error {
	format := c.Query("format", "csv")

	var data []byte
	var contentType string
	var err error

	switch format {
	case "csv":
		data, err = h.exportService.ExportCSV(c.Context())
		contentType = "text/csv; charset=utf-8"
	case "xlsx":
		data, err = h.exportService.ExportXLSX(c.Context())
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return response.BadRequest(c, "format must be csv or xlsx")
	}
	if err != nil {
		return response.InternalServerError(c, "Failed to export expenses")
	}

	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", services.ExportFilename(format)))
	return c.Send(data)
}
