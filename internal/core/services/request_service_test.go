package services

import (
	"context"
	"testing"
	"time"

	"cardpool/internal/adapters/persistence/models"
	"cardpool/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestOpenRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createMember(t, "alice")
	f.createMember(t, "bob")

	request, err := f.requestService.Open(ctx, alice.ID, &OpenRequestInput{
		RequestedAmount: 100000,
		Reason:          "conference travel",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, request.Status)
	assert.Equal(t, int64(0), request.ApprovedTotal)
}

func TestOpenRequest_UnitValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createMember(t, "alice")

	for _, amount := range []int64{0, -10000, 15000, 9999} {
		_, err := f.requestService.Open(ctx, alice.ID, &OpenRequestInput{RequestedAmount: amount})
		assert.ErrorIs(t, err, domain.ErrInvalidUnit, "amount %d", amount)
	}
}

func TestOpenRequest_DuplicateOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createMember(t, "alice")
	f.createMember(t, "bob")

	_, err := f.requestService.Open(ctx, alice.ID, &OpenRequestInput{RequestedAmount: 50000})
	require.NoError(t, err)

	_, err = f.requestService.Open(ctx, alice.ID, &OpenRequestInput{RequestedAmount: 30000})
	assert.ErrorIs(t, err, domain.ErrDuplicateOpenRequest)
}

func TestOpenRequest_PoolHeadroom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createMember(t, "alice")
	bob := f.createMember(t, "bob")

	f.addExpense(t, alice.ID, 350000)
	f.addExpense(t, bob.ID, 350000)

	// Pool is 800000 with 700000 used; asking for more than the remainder
	// is pointless and rejected up front.
	_, err := f.requestService.Open(ctx, alice.ID, &OpenRequestInput{RequestedAmount: 200000})
	var totalErr *domain.TotalLimitExceededError
	require.ErrorAs(t, err, &totalErr)
	assert.Equal(t, int64(100000), totalErr.Remaining)
}

func TestApprove_SelfApprovalRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createMember(t, "alice")
	f.createMember(t, "bob")

	request, err := f.requestService.Open(ctx, alice.ID, &OpenRequestInput{RequestedAmount: 50000})
	require.NoError(t, err)

	_, err = f.requestService.Approve(ctx, alice.ID, request.ID, 50000)
	assert.ErrorIs(t, err, domain.ErrSelfApproval)
}

func TestApprove_ClippedToRemainingNeedAndFulfills(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createMember(t, "alice")
	bob := f.createMember(t, "bob")
	carol := f.createMember(t, "carol")

	request, err := f.requestService.Open(ctx, alice.ID, &OpenRequestInput{RequestedAmount: 100000})
	require.NoError(t, err)

	first, err := f.requestService.Approve(ctx, bob.ID, request.ID, 60000)
	require.NoError(t, err)
	assert.Equal(t, int64(60000), first.ActualAmount)
	assert.False(t, first.Clipped)
	assert.False(t, first.Fulfilled)
	assert.Equal(t, int64(40000), first.RemainingNeed)

	second, err := f.requestService.Approve(ctx, carol.ID, request.ID, 50000)
	require.NoError(t, err)
	assert.Equal(t, int64(40000), second.ActualAmount)
	assert.True(t, second.Clipped)
	assert.True(t, second.Fulfilled)
	assert.Equal(t, int64(0), second.RemainingNeed)

	stored := f.getRequest(t, request.ID)
	assert.Equal(t, models.StatusFulfilled, stored.Status)
	assert.Equal(t, int64(100000), stored.ApprovedTotal)
	require.NotNil(t, stored.FulfilledAt)

	// The requester's effective limit now carries the full ask
	info, err := f.limitService.PersonalInfo(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500000), info.EffectiveLimit)

	// Further approvals bounce off the closed request
	_, err = f.requestService.Approve(ctx, bob.ID, request.ID, 10000)
	assert.ErrorIs(t, err, domain.ErrNotOpen)
}

func TestApprove_ResubmissionReplaces(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createMember(t, "alice")
	bob := f.createMember(t, "bob")

	request, err := f.requestService.Open(ctx, alice.ID, &OpenRequestInput{RequestedAmount: 100000})
	require.NoError(t, err)

	_, err = f.requestService.Approve(ctx, bob.ID, request.ID, 30000)
	require.NoError(t, err)

	result, err := f.requestService.Approve(ctx, bob.ID, request.ID, 50000)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), result.ActualAmount)

	stored := f.getRequest(t, request.ID)
	assert.Equal(t, int64(50000), stored.ApprovedTotal)

	var approvalCount int64
	require.NoError(t, f.db.Model(&models.LimitApproval{}).
		Where("request_id = ?", request.ID).Count(&approvalCount).Error)
	assert.Equal(t, int64(1), approvalCount)
}

func TestApprove_InsufficientPersonalLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createMember(t, "alice")
	bob := f.createMember(t, "bob")

	f.addExpense(t, bob.ID, 380000)

	request, err := f.requestService.Open(ctx, alice.ID, &OpenRequestInput{RequestedAmount: 100000})
	require.NoError(t, err)

	_, err = f.requestService.Approve(ctx, bob.ID, request.ID, 30000)
	var insufficientErr *domain.InsufficientPersonalLimitError
	require.ErrorAs(t, err, &insufficientErr)
	assert.Equal(t, int64(30000), insufficientErr.NetNew)
	assert.Equal(t, int64(20000), insufficientErr.Remaining)
}

func TestApprove_ConcurrentApprovalConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createMember(t, "alice")
	bob := f.createMember(t, "bob")
	f.createMember(t, "carol")

	request, err := f.requestService.Open(ctx, alice.ID, &OpenRequestInput{RequestedAmount: 100000})
	require.NoError(t, err)

	// Lands a competing commit on the transaction connection between bob's
	// request read and his guarded update, as if another approver's
	// transaction had won the race in the meantime.
	err = f.db.Callback().Create().After("gorm:create").Register("competing_commit", func(d *gorm.DB) {
		if d.Statement.Table != "limit_approvals" || d.Error != nil {
			return
		}
		_, execErr := d.Statement.ConnPool.ExecContext(d.Statement.Context,
			"UPDATE limit_requests SET approved_total = approved_total + 30000 WHERE id = ?", request.ID)
		if execErr != nil {
			d.AddError(execErr)
		}
	})
	require.NoError(t, err)

	_, err = f.requestService.Approve(ctx, bob.ID, request.ID, 50000)
	assert.ErrorIs(t, err, domain.ErrConflict)

	// The losing transaction rolls back entirely, approval row included
	stored := f.getRequest(t, request.ID)
	assert.Equal(t, models.StatusOpen, stored.Status)
	assert.Equal(t, int64(0), stored.ApprovedTotal)
	var approvalCount int64
	require.NoError(t, f.db.Model(&models.LimitApproval{}).Count(&approvalCount).Error)
	assert.Equal(t, int64(0), approvalCount)

	require.NoError(t, f.db.Callback().Create().Remove("competing_commit"))

	// A clean retry lands, and the total never passes the ask
	result, err := f.requestService.Approve(ctx, bob.ID, request.ID, 50000)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), result.Request.ApprovedTotal)
	assert.LessOrEqual(t, result.Request.ApprovedTotal, request.RequestedAmount)
}

func TestCancelRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createMember(t, "alice")
	bob := f.createMember(t, "bob")

	request, err := f.requestService.Open(ctx, alice.ID, &OpenRequestInput{RequestedAmount: 50000})
	require.NoError(t, err)

	_, err = f.requestService.Approve(ctx, bob.ID, request.ID, 20000)
	require.NoError(t, err)

	_, err = f.requestService.Cancel(ctx, bob.ID, request.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	cancelled, err := f.requestService.Cancel(ctx, alice.ID, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	// bob's committed amount stops counting the moment the request dies
	info, err := f.limitService.PersonalInfo(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.GivenAmount)

	_, err = f.requestService.Cancel(ctx, alice.ID, request.ID)
	assert.ErrorIs(t, err, domain.ErrNotOpen)
}

func TestConfirmRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createMember(t, "alice")
	bob := f.createMember(t, "bob")

	request, err := f.requestService.Open(ctx, alice.ID, &OpenRequestInput{RequestedAmount: 100000})
	require.NoError(t, err)

	_, err = f.requestService.Confirm(ctx, alice.ID, request.ID)
	assert.ErrorIs(t, err, domain.ErrNothingApproved)

	_, err = f.requestService.Approve(ctx, bob.ID, request.ID, 30000)
	require.NoError(t, err)

	confirmed, err := f.requestService.Confirm(ctx, alice.ID, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartial, confirmed.Status)
	require.NotNil(t, confirmed.FulfilledAt)

	// PARTIAL counts the approved total, not the ask
	info, err := f.limitService.PersonalInfo(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(430000), info.EffectiveLimit)
}

func TestReturnRequest_ProportionalSplit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createMember(t, "alice")
	bob := f.createMember(t, "bob")
	carol := f.createMember(t, "carol")

	request, err := f.requestService.Open(ctx, alice.ID, &OpenRequestInput{RequestedAmount: 100000})
	require.NoError(t, err)

	_, err = f.requestService.Approve(ctx, bob.ID, request.ID, 60000)
	require.NoError(t, err)
	result, err := f.requestService.Approve(ctx, carol.ID, request.ID, 40000)
	require.NoError(t, err)
	require.True(t, result.Fulfilled)

	// alice spends part of the extra limit after fulfillment
	f.addExpense(t, alice.ID, 30000)

	_, err = f.requestService.Return(ctx, bob.ID, request.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	returned, err := f.requestService.Return(ctx, alice.ID, request.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), returned.ActualUsed)
	assert.Equal(t, int64(70000), returned.TotalToReturn)

	shares := map[uint]int64{}
	for _, share := range returned.Breakdown {
		shares[share.ApproverID] = share.ReturnedAmount
	}
	assert.Equal(t, int64(42000), shares[bob.ID])
	assert.Equal(t, int64(28000), shares[carol.ID])

	// alice keeps only what she used; bob gets 42000 of his 60000 back
	aliceInfo, err := f.limitService.PersonalInfo(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(430000), aliceInfo.EffectiveLimit)

	bobInfo, err := f.limitService.PersonalInfo(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(18000), bobInfo.GivenAmount)
	assert.Equal(t, int64(382000), bobInfo.EffectiveLimit)

	_, err = f.requestService.Return(ctx, alice.ID, request.ID)
	assert.ErrorIs(t, err, domain.ErrNotFulfilled)
}

func TestReturnRequest_OnlyFulfilled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createMember(t, "alice")
	f.createMember(t, "bob")

	request, err := f.requestService.Open(ctx, alice.ID, &OpenRequestInput{RequestedAmount: 50000})
	require.NoError(t, err)

	_, err = f.requestService.Return(ctx, alice.ID, request.ID)
	assert.ErrorIs(t, err, domain.ErrNotFulfilled)
}

func TestListRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createMember(t, "alice")
	bob := f.createMember(t, "bob")
	carol := f.createMember(t, "carol")

	mine, err := f.requestService.Open(ctx, alice.ID, &OpenRequestInput{RequestedAmount: 50000})
	require.NoError(t, err)

	theirs, err := f.requestService.Open(ctx, bob.ID, &OpenRequestInput{RequestedAmount: 80000})
	require.NoError(t, err)

	_, err = f.requestService.Approve(ctx, alice.ID, theirs.ID, 20000)
	require.NoError(t, err)
	_, err = f.requestService.Approve(ctx, carol.ID, theirs.ID, 10000)
	require.NoError(t, err)

	result, err := f.requestService.List(ctx, alice.ID, "all")
	require.NoError(t, err)

	require.Len(t, result.Mine, 1)
	assert.Equal(t, mine.ID, result.Mine[0].ID)

	require.Len(t, result.Others, 1)
	other := result.Others[0]
	assert.Equal(t, theirs.ID, other.ID)
	assert.Equal(t, "bob", other.RequesterNickname)
	require.NotNil(t, other.MyApproval)
	assert.Equal(t, int64(20000), other.MyApproval.Amount)

	mineOnly, err := f.requestService.List(ctx, alice.ID, "mine")
	require.NoError(t, err)
	assert.Len(t, mineOnly.Mine, 1)
	assert.Empty(t, mineOnly.Others)
}

func TestCancelStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createMember(t, "alice")
	bob := f.createMember(t, "bob")

	stale, err := f.requestService.Open(ctx, alice.ID, &OpenRequestInput{RequestedAmount: 50000})
	require.NoError(t, err)
	require.NoError(t, f.db.Model(stale).Update("created_at", time.Now().AddDate(0, 0, -20)).Error)

	fresh, err := f.requestService.Open(ctx, bob.ID, &OpenRequestInput{RequestedAmount: 50000})
	require.NoError(t, err)

	swept, err := f.requestService.CancelStale(ctx, time.Now().AddDate(0, 0, -14))
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	assert.Equal(t, models.StatusCancelled, f.getRequest(t, stale.ID).Status)
	assert.Equal(t, models.StatusOpen, f.getRequest(t, fresh.ID).Status)
}
