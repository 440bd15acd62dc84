package services

import (
	"testing"
	"time"

	"cardpool/internal/adapters/persistence/models"
	"cardpool/internal/adapters/persistence/repositories"
	"cardpool/internal/config"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fixture bundles the services under test on a fresh in-memory database
type fixture struct {
	db             *gorm.DB
	limitService   *LimitService
	expenseService *ExpenseService
	requestService *RequestService
	adminService   *AdminService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	// A second pooled connection would get its own empty memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.AutoMigrate(db))

	limitCfg := config.LimitConfig{BaseLimit: 400000, Unit: 10000, StaleRequestDays: 14}
	limitService := NewLimitService(db, limitCfg)

	return &fixture{
		db:           db,
		limitService: limitService,
		expenseService: NewExpenseService(
			repositories.NewExpenseRepository(db),
			limitService,
		),
		requestService: NewRequestService(
			db,
			repositories.NewLimitRequestRepository(db),
			limitService,
		),
		adminService: NewAdminService(
			repositories.NewMemberRepository(db),
			limitService,
		),
	}
}

func (f *fixture) createMember(t *testing.T, nickname string) *models.Member {
	t.Helper()

	member := &models.Member{
		Email:    nickname + "@example.com",
		Nickname: nickname,
		Password: "hashed",
		Role:     models.RoleMember,
		IsActive: true,
	}
	require.NoError(t, f.db.Create(member).Error)
	return member
}

// addExpense inserts an expense row directly, bypassing the limit checks
func (f *fixture) addExpense(t *testing.T, memberID uint, amount int64) *models.Expense {
	t.Helper()

	expense := &models.Expense{
		MemberID: memberID,
		Amount:   amount,
		UsedAt:   time.Now(),
	}
	require.NoError(t, f.db.Create(expense).Error)
	return expense
}

func (f *fixture) getRequest(t *testing.T, id uint) *models.LimitRequest {
	t.Helper()

	var request models.LimitRequest
	require.NoError(t, f.db.First(&request, id).Error)
	return &request
}
