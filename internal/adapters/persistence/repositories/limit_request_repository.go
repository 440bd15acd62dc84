package repositories

import (
	"context"
	"time"

	"cardpool/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// limitRequestRepository implements LimitRequestRepository interface
type limitRequestRepository struct {
	db *gorm.DB
}

// NewLimitRequestRepository creates a new limit request repository
func NewLimitRequestRepository(db *gorm.DB) LimitRequestRepository {
	return &limitRequestRepository{db: db}
}

// Create creates a new limit request
func (r *limitRequestRepository) Create(ctx context.Context, request *models.LimitRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

// GetByID gets a limit request by ID
func (r *limitRequestRepository) GetByID(ctx context.Context, id uint) (*models.LimitRequest, error) {
	var request models.LimitRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// GetByIDWithApprovals gets a limit request with its approvals preloaded
func (r *limitRequestRepository) GetByIDWithApprovals(ctx context.Context, id uint) (*models.LimitRequest, error) {
	var request models.LimitRequest
	err := r.db.WithContext(ctx).
		Preload("Approvals").
		Where("id = ?", id).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// HasOpenByRequester checks whether the requester has an OPEN request
func (r *limitRequestRepository) HasOpenByRequester(ctx context.Context, requesterID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.LimitRequest{}).
		Where("requester_id = ? AND status = ?", requesterID, models.StatusOpen).
		Count(&count).Error
	return count > 0, err
}

// ListByRequester lists the requester's own requests, newest first
func (r *limitRequestRepository) ListByRequester(ctx context.Context, requesterID uint) ([]*models.LimitRequest, error) {
	var requests []*models.LimitRequest
	err := r.db.WithContext(ctx).
		Preload("Approvals").
		Preload("Approvals.Approver").
		Where("requester_id = ?", requesterID).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

// ListOpenExcluding lists OPEN requests from other members, newest first
func (r *limitRequestRepository) ListOpenExcluding(ctx context.Context, requesterID uint) ([]*models.LimitRequest, error) {
	var requests []*models.LimitRequest
	err := r.db.WithContext(ctx).
		Preload("Requester").
		Preload("Approvals").
		Preload("Approvals.Approver").
		Where("requester_id <> ? AND status = ?", requesterID, models.StatusOpen).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

// ListOpenBefore lists OPEN requests created before the cutoff, for the
// stale-request sweeper
func (r *limitRequestRepository) ListOpenBefore(ctx context.Context, cutoff time.Time) ([]*models.LimitRequest, error) {
	var requests []*models.LimitRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.StatusOpen, cutoff).
		Find(&requests).Error
	return requests, err
}
