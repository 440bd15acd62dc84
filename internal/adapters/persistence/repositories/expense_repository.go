package repositories

import (
	"context"

	"cardpool/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// expenseRepository implements ExpenseRepository interface
type expenseRepository struct {
	db *gorm.DB
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *gorm.DB) ExpenseRepository {
	return &expenseRepository{db: db}
}

// Create creates a new expense
func (r *expenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	return r.db.WithContext(ctx).Create(expense).Error
}

// GetByID gets an expense by ID
func (r *expenseRepository) GetByID(ctx context.Context, id uint) (*models.Expense, error) {
	var expense models.Expense
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&expense).Error
	if err != nil {
		return nil, err
	}
	return &expense, nil
}

// Update updates an expense
func (r *expenseRepository) Update(ctx context.Context, expense *models.Expense) error {
	return r.db.WithContext(ctx).Save(expense).Error
}

// Delete deletes an expense
func (r *expenseRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Expense{}, id).Error
}

// ListByMember lists a member's expenses with pagination, latest spend first
func (r *expenseRepository) ListByMember(ctx context.Context, memberID uint, offset, limit int) ([]*models.Expense, int64, error) {
	var expenses []*models.Expense
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Expense{}).
		Where("member_id = ?", memberID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("used_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&expenses).Error
	if err != nil {
		return nil, 0, err
	}

	return expenses, total, nil
}

// ListAllWithMember lists every expense with its owner preloaded, for the
// admin export
func (r *expenseRepository) ListAllWithMember(ctx context.Context) ([]*models.Expense, error) {
	var expenses []*models.Expense
	err := r.db.WithContext(ctx).
		Preload("Member").
		Order("used_at DESC, id DESC").
		Find(&expenses).Error
	return expenses, err
}
