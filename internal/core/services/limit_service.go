package services

import (
	"context"
	"time"

	"cardpool/internal/adapters/persistence/models"
	"cardpool/internal/config"

	"gorm.io/gorm"
)

// countedStatuses are the request statuses that move effective limits.
// OPEN and CANCELLED requests contribute nothing, on either side.
var countedStatuses = []string{models.StatusPartial, models.StatusFulfilled, models.StatusReturned}

// LimitService recomputes effective limits from the source records. Derived
// values are never persisted; every call site (expense writes, the request
// workflow, admin views, the dashboard) goes through these functions so the
// figures cannot drift.
type LimitService struct {
	db        *gorm.DB
	baseLimit int64
	unit      int64
}

// NewLimitService creates a new limit service
func NewLimitService(db *gorm.DB, cfg config.LimitConfig) *LimitService {
	return &LimitService{
		db:        db,
		baseLimit: cfg.BaseLimit,
		unit:      cfg.Unit,
	}
}

// WithTx returns a limit service bound to the given transaction
func (s *LimitService) WithTx(tx *gorm.DB) *LimitService {
	return &LimitService{db: tx, baseLimit: s.baseLimit, unit: s.unit}
}

// BaseLimit returns the shared per-member base limit
func (s *LimitService) BaseLimit() int64 {
	return s.baseLimit
}

// Unit returns the smallest allowed increment for requests and approvals
func (s *LimitService) Unit() int64 {
	return s.unit
}

// PersonalLimitInfo holds a member's derived limit figures
type PersonalLimitInfo struct {
	TotalUsed         int64 `json:"total_used"`
	ReceivedAmount    int64 `json:"received_amount"`
	GivenAmount       int64 `json:"given_amount"`
	EffectiveLimit    int64 `json:"effective_limit"`
	RemainingPersonal int64 `json:"remaining_personal"`
}

// TotalLimitInfo holds the pool-wide derived figures
type TotalLimitInfo struct {
	ActiveMembers  int64 `json:"active_members"`
	TotalLimit     int64 `json:"total_limit"`
	TotalUsed      int64 `json:"total_used"`
	RemainingTotal int64 `json:"remaining_total"`
}

// PersonalInfo computes a member's effective and remaining limit
func (s *LimitService) PersonalInfo(ctx context.Context, memberID uint) (*PersonalLimitInfo, error) {
	return s.PersonalInfoExcluding(ctx, memberID, 0)
}

// PersonalInfoExcluding computes a member's limit figures with one expense
// row left out of the usage sum. The update path passes the row being
// edited so the new amount is validated as if the old one didn't exist.
func (s *LimitService) PersonalInfoExcluding(ctx context.Context, memberID uint, excludeExpenseID uint) (*PersonalLimitInfo, error) {
	totalUsed, err := s.sumMemberExpenses(ctx, memberID, excludeExpenseID)
	if err != nil {
		return nil, err
	}

	received, err := s.receivedAmount(ctx, memberID)
	if err != nil {
		return nil, err
	}

	given, err := s.givenAmount(ctx, memberID)
	if err != nil {
		return nil, err
	}

	effective := s.baseLimit + received - given
	return &PersonalLimitInfo{
		TotalUsed:         totalUsed,
		ReceivedAmount:    received,
		GivenAmount:       given,
		EffectiveLimit:    effective,
		RemainingPersonal: effective - totalUsed,
	}, nil
}

// TotalInfo computes the pooled limit figures over active members
func (s *LimitService) TotalInfo(ctx context.Context) (*TotalLimitInfo, error) {
	return s.TotalInfoExcluding(ctx, 0)
}

// TotalInfoExcluding computes the pooled figures with one expense row left
// out of the usage sum
func (s *LimitService) TotalInfoExcluding(ctx context.Context, excludeExpenseID uint) (*TotalLimitInfo, error) {
	var activeCount int64
	if err := s.db.WithContext(ctx).Model(&models.Member{}).
		Where("is_active = ?", true).
		Count(&activeCount).Error; err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Model(&models.Expense{}).
		Select("COALESCE(SUM(expenses.amount), 0)").
		Joins("JOIN members ON members.id = expenses.member_id").
		Where("members.is_active = ?", true)
	if excludeExpenseID != 0 {
		query = query.Where("expenses.id <> ?", excludeExpenseID)
	}

	var totalUsed int64
	if err := query.Scan(&totalUsed).Error; err != nil {
		return nil, err
	}

	totalLimit := s.baseLimit * activeCount
	return &TotalLimitInfo{
		ActiveMembers:  activeCount,
		TotalLimit:     totalLimit,
		TotalUsed:      totalUsed,
		RemainingTotal: totalLimit - totalUsed,
	}, nil
}

// UsedSince sums a member's expenses inserted at or after the given time.
// The return workflow measures actual usage against the insertion time, not
// the spend date.
func (s *LimitService) UsedSince(ctx context.Context, memberID uint, since time.Time) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&models.Expense{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("member_id = ? AND created_at >= ?", memberID, since).
		Scan(&total).Error
	return total, err
}

// sumMemberExpenses sums a member's expenses, optionally excluding one row
func (s *LimitService) sumMemberExpenses(ctx context.Context, memberID uint, excludeExpenseID uint) (int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Expense{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("member_id = ?", memberID)
	if excludeExpenseID != 0 {
		query = query.Where("id <> ?", excludeExpenseID)
	}

	var total int64
	err := query.Scan(&total).Error
	return total, err
}

// receivedAmount sums the extra limit the member obtained through their own
// requests: RETURNED counts the actually-used amount, PARTIAL counts the
// live approved total, FULFILLED counts the full ask.
func (s *LimitService) receivedAmount(ctx context.Context, memberID uint) (int64, error) {
	type requestRow struct {
		RequestedAmount int64
		ApprovedTotal   int64
		UsedAmount      int64
		Status          string
	}

	var rows []requestRow
	err := s.db.WithContext(ctx).Model(&models.LimitRequest{}).
		Select("requested_amount, approved_total, used_amount, status").
		Where("requester_id = ? AND status IN ?", memberID, countedStatuses).
		Scan(&rows).Error
	if err != nil {
		return 0, err
	}

	var sum int64
	for _, r := range rows {
		switch r.Status {
		case models.StatusReturned:
			sum += r.UsedAmount
		case models.StatusPartial:
			sum += r.ApprovedTotal
		default:
			sum += r.RequestedAmount
		}
	}
	return sum, nil
}

// givenAmount sums what the member has committed to others' requests,
// crediting back the returned share once a request is RETURNED.
func (s *LimitService) givenAmount(ctx context.Context, memberID uint) (int64, error) {
	type approvalRow struct {
		Amount         int64
		ReturnedAmount int64
		Status         string
	}

	var rows []approvalRow
	err := s.db.WithContext(ctx).Model(&models.LimitApproval{}).
		Select("limit_approvals.amount, limit_approvals.returned_amount, limit_requests.status").
		Joins("JOIN limit_requests ON limit_requests.id = limit_approvals.request_id").
		Where("limit_approvals.approver_id = ? AND limit_requests.status IN ?", memberID, countedStatuses).
		Scan(&rows).Error
	if err != nil {
		return 0, err
	}

	var sum int64
	for _, a := range rows {
		if a.Status == models.StatusReturned {
			sum += a.Amount - a.ReturnedAmount
		} else {
			sum += a.Amount
		}
	}
	return sum, nil
}
