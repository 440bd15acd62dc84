package services

import (
	"context"
	"errors"
	"time"

	"cardpool/internal/adapters/persistence/models"
	"cardpool/internal/adapters/persistence/repositories"
	"cardpool/internal/core/domain"

	"gorm.io/gorm"
)

// ExpenseService handles the expense ledger. Every write re-validates
// against the recomputed personal and pooled headroom; nothing is checked
// retroactively for prior writes.
type ExpenseService struct {
	expenseRepo  repositories.ExpenseRepository
	limitService *LimitService
}

// NewExpenseService creates a new expense service
func NewExpenseService(expenseRepo repositories.ExpenseRepository, limitService *LimitService) *ExpenseService {
	return &ExpenseService{
		expenseRepo:  expenseRepo,
		limitService: limitService,
	}
}

// CreateExpenseInput represents create expense input
type CreateExpenseInput struct {
	Amount   int64      `json:"amount"`
	UsedAt   *time.Time `json:"used_at"`
	Merchant string     `json:"merchant"`
	Memo     string     `json:"memo"`
}

// UpdateExpenseInput represents update expense input
type UpdateExpenseInput struct {
	Amount   int64      `json:"amount"`
	UsedAt   *time.Time `json:"used_at"`
	Merchant string     `json:"merchant"`
	Memo     string     `json:"memo"`
}

// ListExpensesOutput bundles a page of expenses with the owner's live
// limit figures
type ListExpensesOutput struct {
	Expenses []*models.Expense  `json:"expenses"`
	Total    int64              `json:"total"`
	Limit    *PersonalLimitInfo `json:"limit"`
}

// Create records a new expense for the acting member
func (s *ExpenseService) Create(ctx context.Context, memberID uint, input *CreateExpenseInput) (*models.Expense, error) {
	if input.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	personal, err := s.limitService.PersonalInfo(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if input.Amount > personal.RemainingPersonal {
		return nil, &domain.PersonalLimitExceededError{
			Requested: input.Amount,
			Remaining: personal.RemainingPersonal,
		}
	}

	total, err := s.limitService.TotalInfo(ctx)
	if err != nil {
		return nil, err
	}
	if input.Amount > total.RemainingTotal {
		return nil, &domain.TotalLimitExceededError{
			Requested: input.Amount,
			Remaining: total.RemainingTotal,
		}
	}

	usedAt := time.Now()
	if input.UsedAt != nil {
		usedAt = *input.UsedAt
	}

	expense := &models.Expense{
		MemberID: memberID,
		Amount:   input.Amount,
		UsedAt:   usedAt,
		Merchant: input.Merchant,
		Memo:     input.Memo,
	}

	if err := s.expenseRepo.Create(ctx, expense); err != nil {
		return nil, err
	}

	return expense, nil
}

// Update edits an expense. Both limit checks exclude the edited row, so
// lowering an amount is always legal and raising one re-validates against
// headroom as if the old amount didn't exist.
func (s *ExpenseService) Update(ctx context.Context, memberID, expenseID uint, input *UpdateExpenseInput) (*models.Expense, error) {
	expense, err := s.getOwned(ctx, memberID, expenseID)
	if err != nil {
		return nil, err
	}

	if input.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	personal, err := s.limitService.PersonalInfoExcluding(ctx, memberID, expenseID)
	if err != nil {
		return nil, err
	}
	if input.Amount > personal.RemainingPersonal {
		return nil, &domain.PersonalLimitExceededError{
			Requested: input.Amount,
			Remaining: personal.RemainingPersonal,
		}
	}

	total, err := s.limitService.TotalInfoExcluding(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if input.Amount > total.RemainingTotal {
		return nil, &domain.TotalLimitExceededError{
			Requested: input.Amount,
			Remaining: total.RemainingTotal,
		}
	}

	expense.Amount = input.Amount
	if input.UsedAt != nil {
		expense.UsedAt = *input.UsedAt
	}
	expense.Merchant = input.Merchant
	expense.Memo = input.Memo

	if err := s.expenseRepo.Update(ctx, expense); err != nil {
		return nil, err
	}

	return expense, nil
}

// Delete removes an expense. Always legal for the owner; freed headroom is
// reflected on the next recomputation.
func (s *ExpenseService) Delete(ctx context.Context, memberID, expenseID uint) error {
	if _, err := s.getOwned(ctx, memberID, expenseID); err != nil {
		return err
	}
	return s.expenseRepo.Delete(ctx, expenseID)
}

// List returns a page of the member's expenses together with their current
// limit figures
func (s *ExpenseService) List(ctx context.Context, memberID uint, offset, limit int) (*ListExpensesOutput, error) {
	expenses, total, err := s.expenseRepo.ListByMember(ctx, memberID, offset, limit)
	if err != nil {
		return nil, err
	}

	info, err := s.limitService.PersonalInfo(ctx, memberID)
	if err != nil {
		return nil, err
	}

	return &ListExpensesOutput{
		Expenses: expenses,
		Total:    total,
		Limit:    info,
	}, nil
}

// getOwned loads an expense and verifies ownership
func (s *ExpenseService) getOwned(ctx context.Context, memberID, expenseID uint) (*models.Expense, error) {
	expense, err := s.expenseRepo.GetByID(ctx, expenseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrExpenseNotFound
		}
		return nil, err
	}
	if expense.MemberID != memberID {
		return nil, domain.ErrForbidden
	}
	return expense, nil
}
