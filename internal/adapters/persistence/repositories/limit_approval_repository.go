package repositories

import (
	"context"

	"cardpool/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// limitApprovalRepository implements LimitApprovalRepository interface
type limitApprovalRepository struct {
	db *gorm.DB
}

// NewLimitApprovalRepository creates a new limit approval repository
func NewLimitApprovalRepository(db *gorm.DB) LimitApprovalRepository {
	return &limitApprovalRepository{db: db}
}

// GetByRequestAndApprover gets the approver's approval on a request, if any
func (r *limitApprovalRepository) GetByRequestAndApprover(ctx context.Context, requestID, approverID uint) (*models.LimitApproval, error) {
	var approval models.LimitApproval
	err := r.db.WithContext(ctx).
		Where("request_id = ? AND approver_id = ?", requestID, approverID).
		First(&approval).Error
	if err != nil {
		return nil, err
	}
	return &approval, nil
}
