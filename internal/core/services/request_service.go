package services

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"cardpool/internal/adapters/persistence/models"
	"cardpool/internal/adapters/persistence/repositories"
	"cardpool/internal/core/domain"

	"gorm.io/gorm"
)

// RequestService runs the limit request workflow.
//
// Transition table:
//
//	OPEN      → FULFILLED  (Approve reaches the full ask)
//	OPEN      → PARTIAL    (Confirm locks in a partial amount; terminal for
//	                        approval intake, still counts approvedTotal)
//	OPEN      → CANCELLED  (Cancel by requester, or stale sweep)
//	FULFILLED → RETURNED   (Return reconciles unused allocation)
//
// PARTIAL, CANCELLED and RETURNED accept no further approvals. Every
// multi-row mutation commits atomically; the status transitions are guarded
// compare-and-swap updates so concurrent approvers can never push
// approvedTotal past requestedAmount.
type RequestService struct {
	db           *gorm.DB
	requestRepo  repositories.LimitRequestRepository
	limitService *LimitService
}

// NewRequestService creates a new request service
func NewRequestService(
	db *gorm.DB,
	requestRepo repositories.LimitRequestRepository,
	limitService *LimitService,
) *RequestService {
	return &RequestService{
		db:           db,
		requestRepo:  requestRepo,
		limitService: limitService,
	}
}

// OpenRequestInput represents open request input
type OpenRequestInput struct {
	RequestedAmount int64  `json:"requested_amount"`
	Reason          string `json:"reason"`
}

// ApproveOutput reports what actually got committed. ActualAmount may be
// lower than the submitted amount when the request's remaining need clips
// it; the caller surfaces the adjustment.
type ApproveOutput struct {
	Request       *models.LimitRequest  `json:"request"`
	Approval      *models.LimitApproval `json:"approval"`
	ActualAmount  int64                 `json:"actual_amount"`
	Clipped       bool                  `json:"clipped"`
	Fulfilled     bool                  `json:"fulfilled"`
	RemainingNeed int64                 `json:"remaining_need"`
}

// ReturnShare is one approver's slice of a return
type ReturnShare struct {
	ApprovalID     uint  `json:"approval_id"`
	ApproverID     uint  `json:"approver_id"`
	ReturnedAmount int64 `json:"returned_amount"`
}

// ReturnOutput reports the reconciliation figures of a return
type ReturnOutput struct {
	Request       *models.LimitRequest `json:"request"`
	ActualUsed    int64                `json:"actual_used"`
	TotalToReturn int64                `json:"total_to_return"`
	Breakdown     []ReturnShare        `json:"breakdown"`
}

// RequestWithMyApproval annotates an open request with the viewer's own
// approval, if any
type RequestWithMyApproval struct {
	*models.LimitRequest
	RequesterNickname string                `json:"requester_nickname"`
	MyApproval        *models.LimitApproval `json:"my_approval,omitempty"`
}

// ListRequestsOutput bundles the viewer's own requests with the ones they
// can approve
type ListRequestsOutput struct {
	Mine   []*models.LimitRequest  `json:"mine,omitempty"`
	Others []RequestWithMyApproval `json:"others,omitempty"`
}

// Open creates a new limit request. The duplicate-open check and the
// pool-headroom check run inside the creation transaction so two racing
// opens cannot both pass.
func (s *RequestService) Open(ctx context.Context, requesterID uint, input *OpenRequestInput) (*models.LimitRequest, error) {
	if err := s.checkUnit(input.RequestedAmount); err != nil {
		return nil, err
	}

	var request *models.LimitRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		total, err := s.limitService.WithTx(tx).TotalInfo(ctx)
		if err != nil {
			return err
		}
		if input.RequestedAmount > total.RemainingTotal {
			return &domain.TotalLimitExceededError{
				Requested: input.RequestedAmount,
				Remaining: total.RemainingTotal,
			}
		}

		requestRepo := repositories.NewLimitRequestRepository(tx)
		hasOpen, err := requestRepo.HasOpenByRequester(ctx, requesterID)
		if err != nil {
			return err
		}
		if hasOpen {
			return domain.ErrDuplicateOpenRequest
		}

		request = &models.LimitRequest{
			RequesterID:     requesterID,
			RequestedAmount: input.RequestedAmount,
			Status:          models.StatusOpen,
			Reason:          input.Reason,
		}
		return requestRepo.Create(ctx, request)
	})
	if err != nil {
		return nil, err
	}

	return request, nil
}

// Approve commits an approver's contribution to an open request. A second
// submission by the same approver replaces the prior amount. The committed
// amount is clipped to the request's remaining need, never added past it.
func (s *RequestService) Approve(ctx context.Context, approverID, requestID uint, amount int64) (*ApproveOutput, error) {
	if err := s.checkUnit(amount); err != nil {
		return nil, err
	}

	var output *ApproveOutput
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		requestRepo := repositories.NewLimitRequestRepository(tx)
		approvalRepo := repositories.NewLimitApprovalRepository(tx)

		request, err := requestRepo.GetByID(ctx, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrRequestNotFound
			}
			return err
		}
		if request.RequesterID == approverID {
			return domain.ErrSelfApproval
		}
		if request.Status != models.StatusOpen {
			return domain.ErrNotOpen
		}

		var priorAmount int64
		prior, err := approvalRepo.GetByRequestAndApprover(ctx, requestID, approverID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if prior != nil {
			priorAmount = prior.Amount
		}

		// Upsert-replace: the prior amount is notionally refunded first, so
		// only the net new commitment is checked against headroom.
		personal, err := s.limitService.WithTx(tx).PersonalInfo(ctx, approverID)
		if err != nil {
			return err
		}
		netNew := amount - priorAmount
		if netNew > personal.RemainingPersonal {
			return &domain.InsufficientPersonalLimitError{
				NetNew:    netNew,
				Remaining: personal.RemainingPersonal,
			}
		}

		totalExcludingMine := request.ApprovedTotal - priorAmount
		remainingNeed := request.RequestedAmount - totalExcludingMine
		if remainingNeed <= 0 {
			return domain.ErrAlreadyFulfilled
		}

		actual := amount
		if actual > remainingNeed {
			actual = remainingNeed
		}
		newTotal := totalExcludingMine + actual

		var approval *models.LimitApproval
		if prior != nil {
			prior.Amount = actual
			if err := tx.WithContext(ctx).Save(prior).Error; err != nil {
				return err
			}
			approval = prior
		} else {
			approval = &models.LimitApproval{
				RequestID:  requestID,
				ApproverID: approverID,
				Amount:     actual,
			}
			if err := tx.WithContext(ctx).Create(approval).Error; err != nil {
				return err
			}
		}

		fulfilled := newTotal >= request.RequestedAmount
		updates := map[string]interface{}{"approved_total": newTotal}
		if fulfilled {
			now := time.Now()
			updates["status"] = models.StatusFulfilled
			updates["fulfilled_at"] = &now
		}

		// Compare-and-swap against the approved total read above: a
		// concurrent approver that committed in between makes this a no-op
		// and the whole transaction rolls back.
		res := tx.WithContext(ctx).Model(&models.LimitRequest{}).
			Where("id = ? AND status = ? AND approved_total = ?",
				request.ID, models.StatusOpen, request.ApprovedTotal).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrConflict
		}

		request.ApprovedTotal = newTotal
		if fulfilled {
			request.Status = models.StatusFulfilled
		}

		output = &ApproveOutput{
			Request:       request,
			Approval:      approval,
			ActualAmount:  actual,
			Clipped:       actual < amount,
			Fulfilled:     fulfilled,
			RemainingNeed: request.RequestedAmount - newTotal,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return output, nil
}

// Cancel discards an open request. Approvals already committed stop
// counting immediately because the arithmetic ignores CANCELLED requests.
func (s *RequestService) Cancel(ctx context.Context, requesterID, requestID uint) (*models.LimitRequest, error) {
	request, err := s.getOwned(ctx, requesterID, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.StatusOpen {
		return nil, domain.ErrNotOpen
	}

	res := s.db.WithContext(ctx).Model(&models.LimitRequest{}).
		Where("id = ? AND status = ?", requestID, models.StatusOpen).
		Update("status", models.StatusCancelled)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrConflict
	}

	request.Status = models.StatusCancelled
	return request, nil
}

// Confirm locks in a partially approved request. The collected amount
// becomes usable immediately and keeps counting at approvedTotal.
func (s *RequestService) Confirm(ctx context.Context, requesterID, requestID uint) (*models.LimitRequest, error) {
	request, err := s.getOwned(ctx, requesterID, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.StatusOpen {
		return nil, domain.ErrNotOpen
	}
	if request.ApprovedTotal <= 0 {
		return nil, domain.ErrNothingApproved
	}

	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.LimitRequest{}).
		Where("id = ? AND status = ? AND approved_total > 0", requestID, models.StatusOpen).
		Updates(map[string]interface{}{
			"status":       models.StatusPartial,
			"fulfilled_at": &now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrConflict
	}

	request.Status = models.StatusPartial
	request.FulfilledAt = &now
	return request, nil
}

// Return reconciles a fulfilled request: usage since fulfillment is kept,
// the remainder goes back to the approvers in proportion to their
// contribution. Per-approver rounding may leave a small residue unreturned;
// that is accepted behavior, not reconciled.
func (s *RequestService) Return(ctx context.Context, requesterID, requestID uint) (*ReturnOutput, error) {
	var output *ReturnOutput
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		requestRepo := repositories.NewLimitRequestRepository(tx)

		request, err := requestRepo.GetByIDWithApprovals(ctx, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrRequestNotFound
			}
			return err
		}
		if request.RequesterID != requesterID {
			return domain.ErrForbidden
		}
		if request.Status != models.StatusFulfilled || request.FulfilledAt == nil {
			return domain.ErrNotFulfilled
		}

		usedSince, err := s.limitService.WithTx(tx).UsedSince(ctx, requesterID, *request.FulfilledAt)
		if err != nil {
			return err
		}
		actualUsed := usedSince
		if actualUsed > request.RequestedAmount {
			actualUsed = request.RequestedAmount
		}
		totalToReturn := request.RequestedAmount - actualUsed

		breakdown := make([]ReturnShare, 0, len(request.Approvals))
		for i := range request.Approvals {
			approval := &request.Approvals[i]
			var returned int64
			if request.ApprovedTotal > 0 {
				ratio := float64(approval.Amount) / float64(request.ApprovedTotal)
				returned = int64(math.Round(float64(totalToReturn) * ratio))
			}

			if err := tx.WithContext(ctx).Model(&models.LimitApproval{}).
				Where("id = ?", approval.ID).
				Update("returned_amount", returned).Error; err != nil {
				return err
			}
			approval.ReturnedAmount = returned
			breakdown = append(breakdown, ReturnShare{
				ApprovalID:     approval.ID,
				ApproverID:     approval.ApproverID,
				ReturnedAmount: returned,
			})
		}

		now := time.Now()
		res := tx.WithContext(ctx).Model(&models.LimitRequest{}).
			Where("id = ? AND status = ?", requestID, models.StatusFulfilled).
			Updates(map[string]interface{}{
				"status":      models.StatusReturned,
				"used_amount": actualUsed,
				"returned_at": &now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrConflict
		}

		request.Status = models.StatusReturned
		request.UsedAmount = actualUsed
		request.ReturnedAt = &now

		output = &ReturnOutput{
			Request:       request,
			ActualUsed:    actualUsed,
			TotalToReturn: totalToReturn,
			Breakdown:     breakdown,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return output, nil
}

// List returns the viewer's requests and/or the open requests they can
// approve. listType is "mine", "others" or "all".
func (s *RequestService) List(ctx context.Context, memberID uint, listType string) (*ListRequestsOutput, error) {
	out := &ListRequestsOutput{}

	if listType == "mine" || listType == "all" {
		mine, err := s.requestRepo.ListByRequester(ctx, memberID)
		if err != nil {
			return nil, err
		}
		out.Mine = mine
	}

	if listType == "others" || listType == "all" {
		others, err := s.requestRepo.ListOpenExcluding(ctx, memberID)
		if err != nil {
			return nil, err
		}
		out.Others = make([]RequestWithMyApproval, len(others))
		for i, request := range others {
			annotated := RequestWithMyApproval{
				LimitRequest:      request,
				RequesterNickname: request.Requester.Nickname,
			}
			for j := range request.Approvals {
				if request.Approvals[j].ApproverID == memberID {
					annotated.MyApproval = &request.Approvals[j]
					break
				}
			}
			out.Others[i] = annotated
		}
	}

	return out, nil
}

// CancelStale cancels OPEN requests created before the cutoff and returns
// how many it swept
func (s *RequestService) CancelStale(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.requestRepo.ListOpenBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, request := range stale {
		res := s.db.WithContext(ctx).Model(&models.LimitRequest{}).
			Where("id = ? AND status = ?", request.ID, models.StatusOpen).
			Update("status", models.StatusCancelled)
		if res.Error != nil {
			log.Printf("❌ Failed to sweep stale request %d: %v", request.ID, res.Error)
			continue
		}
		swept += int(res.RowsAffected)
	}

	return swept, nil
}

// checkUnit validates that an amount is a positive multiple of the unit
func (s *RequestService) checkUnit(amount int64) error {
	if amount <= 0 || amount%s.limitService.Unit() != 0 {
		return domain.ErrInvalidUnit
	}
	return nil
}

// getOwned loads a request and verifies ownership
func (s *RequestService) getOwned(ctx context.Context, requesterID, requestID uint) (*models.LimitRequest, error) {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, err
	}
	if request.RequesterID != requesterID {
		return nil, domain.ErrForbidden
	}
	return request, nil
}
