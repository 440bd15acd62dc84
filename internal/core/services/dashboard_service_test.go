package services

import (
	"context"
	"testing"

	"cardpool/internal/adapters/persistence/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createMember(t, "alice")
	bob := f.createMember(t, "bob")
	carol := f.createMember(t, "carol")

	require.NoError(t, f.db.Model(carol).Update("is_active", false).Error)

	f.addExpense(t, alice.ID, 100000)
	f.addExpense(t, bob.ID, 300000)

	dashboardService := NewDashboardService(repositories.NewMemberRepository(f.db), f.limitService)

	summary, err := dashboardService.GetSummary(ctx, alice.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(2), summary.Pool.ActiveCount)
	assert.Equal(t, int64(3), summary.Pool.TotalCount)
	assert.Equal(t, int64(800000), summary.Pool.TotalLimit)
	assert.Equal(t, int64(400000), summary.Pool.TotalUsed)

	// Inactive members are hidden from the usage list
	require.Len(t, summary.Members, 2)

	byNickname := map[string]MemberUsage{}
	for _, usage := range summary.Members {
		byNickname[usage.Nickname] = usage
	}
	assert.True(t, byNickname["alice"].IsMe)
	assert.False(t, byNickname["bob"].IsMe)
	assert.InDelta(t, 25.0, byNickname["alice"].UsageRate, 0.001)
	assert.InDelta(t, 75.0, byNickname["bob"].UsageRate, 0.001)

	require.NotNil(t, summary.Mine)
	assert.Equal(t, int64(100000), summary.Mine.TotalUsed)
}

func TestUsageRateRounding(t *testing.T) {
	assert.InDelta(t, 33.3, usageRate(133333, 400000), 0.001)
	assert.InDelta(t, 0.0, usageRate(100, 0), 0.001)
}
