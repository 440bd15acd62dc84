package handlers

import (
	"errors"
	"strconv"
	"time"

	"cardpool/internal/core/domain"
	"cardpool/internal/core/services"
	"cardpool/internal/pkg/pagination"
	"cardpool/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ExpenseHandler handles expense ledger endpoints
type ExpenseHandler struct {
	expenseService *services.ExpenseService
}

// NewExpenseHandler creates a new expense handler
func NewExpenseHandler(expenseService *services.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{
		expenseService: expenseService,
	}
}

// ExpenseRequest represents create/update expense request body
type ExpenseRequest struct {
	Amount   int64  `json:"amount"`
	UsedAt   string `json:"used_at"`
	Merchant string `json:"merchant"`
	Memo     string `json:"memo"`
}

// List returns the member's expenses with their live limit figures
// @Summary List my expenses
// @Description Get a page of the current member's expenses with limit figures
// @Tags Expenses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /expenses [get]
func (h *ExpenseHandler) List(c *fiber.Ctx) error {
	memberID, ok := c.Locals("memberID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.GetParams(c)
	result, err := h.expenseService.List(c.Context(), memberID, params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list expenses")
	}

	return response.Success(c, "Expenses retrieved successfully", fiber.Map{
		"expenses":   result.Expenses,
		"limit":      result.Limit,
		"pagination": pagination.GetMeta(params, result.Total),
	})
}

// Create records a new expense
// @Summary Create expense
// @Description Record a new expense, validated against personal and pooled headroom
// @Tags Expenses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ExpenseRequest true "Expense data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /expenses [post]
func (h *ExpenseHandler) Create(c *fiber.Ctx) error {
	memberID, ok := c.Locals("memberID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	input, err := h.parseInput(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	expense, err := h.expenseService.Create(c.Context(), memberID, input)
	if err != nil {
		return h.mapExpenseError(c, err)
	}

	return response.Created(c, "Expense recorded successfully", expense)
}

// Update edits an expense
// @Summary Update expense
// @Description Edit an expense; limit checks exclude the edited row
// @Tags Expenses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Expense ID"
// @Param body body ExpenseRequest true "Expense data"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /expenses/{id} [put]
func (h *ExpenseHandler) Update(c *fiber.Ctx) error {
	memberID, ok := c.Locals("memberID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	expenseID, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid expense ID")
	}

	input, err := h.parseInput(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	expense, err := h.expenseService.Update(c.Context(), memberID, expenseID, (*services.UpdateExpenseInput)(input))
	if err != nil {
		return h.mapExpenseError(c, err)
	}

	return response.Success(c, "Expense updated successfully", expense)
}

// Delete removes an expense
// @Summary Delete expense
// @Description Delete an expense; always legal for the owner
// @Tags Expenses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Expense ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /expenses/{id} [delete]
func (h *ExpenseHandler) Delete(c *fiber.Ctx) error {
	memberID, ok := c.Locals("memberID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	expenseID, err := parseIDParam(c)
	if err != nil {
		return response.BadRequest(c, "Invalid expense ID")
	}

	if err := h.expenseService.Delete(c.Context(), memberID, expenseID); err != nil {
		return h.mapExpenseError(c, err)
	}

	return response.Success(c, "Expense deleted successfully", nil)
}

// parseInput parses and validates the expense request body
func (h *ExpenseHandler) parseInput(c *fiber.Ctx) (*services.CreateExpenseInput, error) {
	var req ExpenseRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, errors.New("Invalid request body")
	}

	input := &services.CreateExpenseInput{
		Amount:   req.Amount,
		Merchant: req.Merchant,
		Memo:     req.Memo,
	}
	if req.UsedAt != "" {
		usedAt, err := time.Parse("2006-01-02", req.UsedAt)
		if err != nil {
			return nil, errors.New("used_at must be YYYY-MM-DD")
		}
		input.UsedAt = &usedAt
	}
	return input, nil
}

// mapExpenseError translates service errors to HTTP responses
func (h *ExpenseHandler) mapExpenseError(c *fiber.Ctx, err error) error {
	var personalErr *domain.PersonalLimitExceededError
	var totalErr *domain.TotalLimitExceededError

	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		return response.BadRequest(c, "Amount must be positive")
	case errors.Is(err, domain.ErrExpenseNotFound):
		return response.NotFound(c, "Expense not found")
	case errors.Is(err, domain.ErrForbidden):
		return response.Forbidden(c, "You can only modify your own expenses")
	case errors.As(err, &personalErr):
		return response.ErrorWithData(c, fiber.StatusBadRequest, "Personal limit exceeded", personalErr)
	case errors.As(err, &totalErr):
		return response.ErrorWithData(c, fiber.StatusBadRequest, "Shared limit exceeded", totalErr)
	default:
		return response.InternalServerError(c, "Failed to process expense")
	}
}

// parseIDParam parses the :id path parameter
func parseIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}
