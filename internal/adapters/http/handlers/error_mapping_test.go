package handlers

import (
	"errors"
	"net/http/httptest"
	"testing"

	"cardpool/internal/core/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusFor(t *testing.T, handler func(*fiber.Ctx) error) int {
	t.Helper()

	app := fiber.New()
	app.Get("/", handler)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestMapExpenseError(t *testing.T) {
	h := NewExpenseHandler(nil)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid amount", domain.ErrInvalidAmount, fiber.StatusBadRequest},
		{"not found", domain.ErrExpenseNotFound, fiber.StatusNotFound},
		{"forbidden", domain.ErrForbidden, fiber.StatusForbidden},
		{"personal limit exceeded", &domain.PersonalLimitExceededError{Requested: 50000, Remaining: 10000}, fiber.StatusBadRequest},
		{"total limit exceeded", &domain.TotalLimitExceededError{Requested: 50000, Remaining: 10000}, fiber.StatusBadRequest},
		{"unknown", errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := statusFor(t, func(c *fiber.Ctx) error {
				return h.mapExpenseError(c, tt.err)
			})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMapRequestError(t *testing.T) {
	h := NewRequestHandler(nil)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid unit", domain.ErrInvalidUnit, fiber.StatusBadRequest},
		{"not found", domain.ErrRequestNotFound, fiber.StatusNotFound},
		{"forbidden", domain.ErrForbidden, fiber.StatusForbidden},
		{"duplicate open request", domain.ErrDuplicateOpenRequest, fiber.StatusConflict},
		{"self approval", domain.ErrSelfApproval, fiber.StatusBadRequest},
		{"not open", domain.ErrNotOpen, fiber.StatusBadRequest},
		{"already fulfilled", domain.ErrAlreadyFulfilled, fiber.StatusConflict},
		{"nothing approved", domain.ErrNothingApproved, fiber.StatusBadRequest},
		{"not fulfilled", domain.ErrNotFulfilled, fiber.StatusBadRequest},
		{"concurrent update", domain.ErrConflict, fiber.StatusConflict},
		{"total limit exceeded", &domain.TotalLimitExceededError{Requested: 200000, Remaining: 100000}, fiber.StatusBadRequest},
		{"insufficient personal limit", &domain.InsufficientPersonalLimitError{NetNew: 30000, Remaining: 20000}, fiber.StatusBadRequest},
		{"unknown", errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := statusFor(t, func(c *fiber.Ctx) error {
				return h.mapRequestError(c, tt.err)
			})
			assert.Equal(t, tt.want, got)
		})
	}
}
