package repositories

import (
	"context"
	"time"

	"cardpool/internal/adapters/persistence/models"
)

// MemberRepository defines member repository interface
type MemberRepository interface {
	Create(ctx context.Context, member *models.Member) error
	GetByID(ctx context.Context, id uint) (*models.Member, error)
	GetByEmail(ctx context.Context, email string) (*models.Member, error)
	GetByNickname(ctx context.Context, nickname string) (*models.Member, error)
	Update(ctx context.Context, member *models.Member) error
	List(ctx context.Context) ([]*models.Member, error)
	Count(ctx context.Context) (int64, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByNickname(ctx context.Context, nickname string) (bool, error)
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id uint) error
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllByMemberID(ctx context.Context, memberID uint) error
	DeleteExpired(ctx context.Context) error
}

// ExpenseRepository defines expense repository interface
type ExpenseRepository interface {
	Create(ctx context.Context, expense *models.Expense) error
	GetByID(ctx context.Context, id uint) (*models.Expense, error)
	Update(ctx context.Context, expense *models.Expense) error
	Delete(ctx context.Context, id uint) error
	ListByMember(ctx context.Context, memberID uint, offset, limit int) ([]*models.Expense, int64, error)
	ListAllWithMember(ctx context.Context) ([]*models.Expense, error)
}

// LimitRequestRepository defines limit request repository interface
type LimitRequestRepository interface {
	Create(ctx context.Context, request *models.LimitRequest) error
	GetByID(ctx context.Context, id uint) (*models.LimitRequest, error)
	GetByIDWithApprovals(ctx context.Context, id uint) (*models.LimitRequest, error)
	HasOpenByRequester(ctx context.Context, requesterID uint) (bool, error)
	ListByRequester(ctx context.Context, requesterID uint) ([]*models.LimitRequest, error)
	ListOpenExcluding(ctx context.Context, requesterID uint) ([]*models.LimitRequest, error)
	ListOpenBefore(ctx context.Context, cutoff time.Time) ([]*models.LimitRequest, error)
}

// LimitApprovalRepository defines limit approval repository interface
type LimitApprovalRepository interface {
	GetByRequestAndApprover(ctx context.Context, requestID, approverID uint) (*models.LimitApproval, error)
}
