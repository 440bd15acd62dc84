package handlers

import (
	"errors"

	"cardpool/internal/core/domain"
	"cardpool/internal/core/services"
	"cardpool/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// RequestHandler handles limit request workflow endpoints
type RequestHandler struct {
	requestService *services.RequestService
}

// NewRequestHandler creates a new request handler
func NewRequestHandler(requestService *services.RequestService) *RequestHandler {
	return &RequestHandler{
		requestService: requestService,
	}
}

// OpenRequestRequest represents open request body
type OpenRequestRequest struct {
	RequestedAmount int64  `json:"requested_amount"`
	Reason          string `json:"reason"`
}

// ApprovalRequest represents approval request body
type ApprovalRequest struct {
	RequestID uint  `json:"request_id"`
	Amount    int64 `json:"amount"`
}

// List returns limit requests visible to the member
// @Summary List limit requests
// @Description Get the member's own requests and/or open requests from others
// @Tags Limit Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param type query string false "mine, others or all" default(all)
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /limit-requests [get]
func (h *RequestHandler) List(c *fiber.Ctx) error {
	memberID, ok := c.Locals("memberID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	listType := c.Query("type", "all")
	if listType != "mine" && listType != "others" && listType != "all" {
		return response.BadRequest(c, "type must be mine, others or all")
	}

	result, err := h.requestService.List(c.Context(), memberID, listType)
	if err != nil {
		return response.InternalServerError(c, "Failed to list limit requests")
	}

	return response.Success(c, "Limit requests retrieved successfully", result)
}

// Open creates a new limit request
// @Summary Open limit request
// @Description Ask other members for extra limit, in unit multiples
// @Tags Limit Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body OpenRequestRequest true "Request data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /limit-requests [post]
func (h *RequestHandler) Open(c *fiber.Ctx) error {
	memberID, ok := c.Locals("memberID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req OpenRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	input := &services.OpenRequestInput{
		RequestedAmount: req.RequestedAmount,
		Reason:          req.Reason,
	}

	request, err := h.requestService.Open(c.Context(), memberID, input)
	if err != nil {
		return h.mapRequestError(c, err)
	}

	return response.Created(c, "Limit request opened successfully", request)
}

// Approve commits an approval to an open request
// @Summary Approve limit request
// @Description Commit part of your limit to someone else's open request; a
// resubmission replaces the prior amount, and the committed amount is clipped
// to the remaining need
// @Tags Limit Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ApprovalRequest true "Approval data"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /limit-approvals [post]
func (h *RequestHandler) Approve(c *fiber.Ctx) error {
	memberID, ok := c.Locals("memberID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req ApprovalRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.RequestID == 0 {
		return response.BadRequest(c, "request_id is required")
	}

	result, err := h.requestService.Approve(c.Context(), memberID, req.RequestID, req.Amount)
	if err != nil {
		return h.mapRequestError(c, err)
	}

	message := "Approval recorded successfully"
	if result.Clipped {
		message = "Approval recorded; amount was adjusted to the remaining need"
	}
	return response.Success(c, message, result)
}

// Cancel discards an open request
// @Summary Cancel limit request
// @Description Cancel your own open request; committed approvals stop counting
// @Tags Limit Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /limit-requests/{id}/cancel [post]
func (h *RequestHandler) Cancel(c *fiber.Ctx) error {
	memberID, ok := c.Locals("memberID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	requestID, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid request ID")
	}

	request, err := h.requestService.Cancel(c.Context(), memberID, requestID)
	if err != nil {
		return h.mapRequestError(c, err)
	}

	return response.Success(c, "Limit request cancelled", request)
}

// Confirm locks in a partially approved request
// @Summary Confirm partial amount
// @Description Accept the collected approvals on your open request as final
// @Tags Limit Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /limit-requests/{id}/confirm [post]
func (h *RequestHandler) Confirm(c *fiber.Ctx) error {
	memberID, ok := c.Locals("memberID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	requestID, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid request ID")
	}

	request, err := h.requestService.Confirm(c.Context(), memberID, requestID)
	if err != nil {
		return h.mapRequestError(c, err)
	}

	return response.Success(c, "Partial amount confirmed", request)
}

// Return reconciles a fulfilled request
// @Summary Return unused limit
// @Description Return the unused part of a fulfilled request to its approvers
// @Tags Limit Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /limit-requests/{id}/return [post]
func (h *RequestHandler) Return(c *fiber.Ctx) error {
	memberID, ok := c.Locals("memberID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	requestID, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid request ID")
	}

	result, err := h.requestService.Return(c.Context(), memberID, requestID)
	if err != nil {
		return h.mapRequestError(c, err)
	}

	return response.Success(c, "Unused limit returned successfully", result)
}

// mapRequestError translates workflow errors to HTTP responses
func (h *RequestHandler) mapRequestError(c *fiber.Ctx, err error) error {
	var totalErr *domain.TotalLimitExceededError
	var insufficientErr *domain.InsufficientPersonalLimitError

	switch {
	case errors.Is(err, domain.ErrInvalidUnit):
		return response.BadRequest(c, "Amount must be a positive multiple of the request unit")
	case errors.Is(err, domain.ErrRequestNotFound):
		return response.NotFound(c, "Limit request not found")
	case errors.Is(err, domain.ErrForbidden):
		return response.Forbidden(c, "You can only act on your own requests")
	case errors.Is(err, domain.ErrDuplicateOpenRequest):
		return response.Conflict(c, "You already have an open limit request")
	case errors.Is(err, domain.ErrSelfApproval):
		return response.BadRequest(c, "You cannot approve your own request")
	case errors.Is(err, domain.ErrNotOpen):
		return response.BadRequest(c, "Request is not accepting this action")
	case errors.Is(err, domain.ErrAlreadyFulfilled):
		return response.Conflict(c, "Request is already fully approved")
	case errors.Is(err, domain.ErrNothingApproved):
		return response.BadRequest(c, "Request has no approved amount to confirm")
	case errors.Is(err, domain.ErrNotFulfilled):
		return response.BadRequest(c, "Only fulfilled requests can be returned")
	case errors.Is(err, domain.ErrConflict):
		return response.Conflict(c, "Someone else updated this request, please retry")
	case errors.As(err, &totalErr):
		return response.ErrorWithData(c, fiber.StatusBadRequest, "Shared limit exceeded", totalErr)
	case errors.As(err, &insufficientErr):
		return response.ErrorWithData(c, fiber.StatusBadRequest, "Insufficient personal limit", insufficientErr)
	default:
		return response.InternalServerError(c, "Failed to process limit request")
	}
}
