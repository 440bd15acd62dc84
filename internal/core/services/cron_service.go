package services

import (
	"context"
	"log"
	"time"

	"cardpool/internal/adapters/persistence/repositories"
	"cardpool/internal/config"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// CronService runs the scheduled maintenance jobs: sweeping stale open
// requests and pruning expired refresh tokens.
type CronService struct {
	cron             *cron.Cron
	requestService   *RequestService
	refreshTokenRepo repositories.RefreshTokenRepository
	staleDays        int
}

// NewCronService creates a new cron service
func NewCronService(db *gorm.DB, cfg *config.Config) *CronService {
	limitService := NewLimitService(db, cfg.Limit)
	requestService := NewRequestService(
		db,
		repositories.NewLimitRequestRepository(db),
		limitService,
	)

	return &CronService{
		cron:             cron.New(),
		requestService:   requestService,
		refreshTokenRepo: repositories.NewRefreshTokenRepository(db),
		staleDays:        cfg.Limit.StaleRequestDays,
	}
}

// Start schedules the jobs and starts the scheduler
func (s *CronService) Start() {
	if s.staleDays > 0 {
		// 03:00 daily
		if _, err := s.cron.AddFunc("0 3 * * *", s.sweepStaleRequests); err != nil {
			log.Printf("❌ Failed to schedule stale request sweep: %v", err)
		}
	} else {
		log.Println("⚠️ Stale request sweep disabled (STALE_REQUEST_DAYS=0)")
	}

	// 04:00 daily
	if _, err := s.cron.AddFunc("0 4 * * *", s.pruneExpiredTokens); err != nil {
		log.Printf("❌ Failed to schedule token prune: %v", err)
	}

	s.cron.Start()
	log.Println("✅ Cron service started")
}

// Stop stops the scheduler
func (s *CronService) Stop() {
	s.cron.Stop()
	log.Println("🛑 Cron service stopped")
}

// sweepStaleRequests cancels OPEN requests older than the configured age
func (s *CronService) sweepStaleRequests() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -s.staleDays)
	swept, err := s.requestService.CancelStale(ctx, cutoff)
	if err != nil {
		log.Printf("❌ Stale request sweep failed: %v", err)
		return
	}
	if swept > 0 {
		log.Printf("✅ Swept %d stale open request(s)", swept)
	}
}

// pruneExpiredTokens deletes expired refresh tokens
func (s *CronService) pruneExpiredTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.refreshTokenRepo.DeleteExpired(ctx); err != nil {
		log.Printf("❌ Refresh token prune failed: %v", err)
	}
}
