package services

import (
	"context"
	"testing"

	"cardpool/internal/adapters/persistence/models"
	"cardpool/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createMember(t, "alice")
	bob := f.createMember(t, "bob")

	f.addExpense(t, alice.ID, 100000)
	f.addExpense(t, bob.ID, 250000)

	result, err := f.adminService.ListMembers(ctx)
	require.NoError(t, err)
	require.Len(t, result.Members, 2)

	assert.Equal(t, int64(2), result.Summary.ActiveCount)
	assert.Equal(t, int64(800000), result.Summary.TotalLimit)
	assert.Equal(t, int64(350000), result.Summary.TotalUsed)
	assert.Equal(t, int64(450000), result.Summary.RemainingTotal)

	byNickname := map[string]MemberStats{}
	for _, stats := range result.Members {
		byNickname[stats.Nickname] = stats
	}
	assert.Equal(t, int64(100000), byNickname["alice"].TotalUsed)
	assert.Equal(t, int64(150000), byNickname["bob"].RemainingPersonal)
}

func TestToggleRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.createMember(t, "admin")
	bob := f.createMember(t, "bob")

	_, err := f.adminService.ToggleRole(ctx, admin.ID, admin.ID)
	assert.ErrorIs(t, err, domain.ErrSelfActionForbidden)

	updated, err := f.adminService.ToggleRole(ctx, admin.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, updated.Role)

	updated, err = f.adminService.ToggleRole(ctx, admin.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, updated.Role)

	_, err = f.adminService.ToggleRole(ctx, admin.ID, 9999)
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)
}

func TestToggleActive_OverLimitWarningAndForce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.createMember(t, "admin")
	bob := f.createMember(t, "bob")
	carol := f.createMember(t, "carol")

	// Pool of 3 carries 1200000; usage of 900000 would not fit a pool of 2
	f.addExpense(t, bob.ID, 500000)
	f.addExpense(t, carol.ID, 400000)

	_, err := f.adminService.ToggleActive(ctx, admin.ID, carol.ID, false)
	var warning *domain.OverLimitWarning
	require.ErrorAs(t, err, &warning)
	assert.Equal(t, int64(900000), warning.CurrentTotalUsed)
	assert.Equal(t, int64(800000), warning.NewTotalLimit)

	// The warning alone must not deactivate anyone
	var stored models.Member
	require.NoError(t, f.db.First(&stored, carol.ID).Error)
	assert.True(t, stored.IsActive)

	// Force pushes the deactivation through anyway
	updated, err := f.adminService.ToggleActive(ctx, admin.ID, carol.ID, true)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	// Reactivation only grows the pool and is never blocked
	updated, err = f.adminService.ToggleActive(ctx, admin.ID, carol.ID, false)
	require.NoError(t, err)
	assert.True(t, updated.IsActive)
}

func TestToggleActive_NoWarningWhenUsageFits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.createMember(t, "admin")
	bob := f.createMember(t, "bob")

	f.addExpense(t, bob.ID, 100000)

	updated, err := f.adminService.ToggleActive(ctx, admin.ID, bob.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	_, err = f.adminService.ToggleActive(ctx, admin.ID, admin.ID, false)
	assert.ErrorIs(t, err, domain.ErrSelfActionForbidden)
}
