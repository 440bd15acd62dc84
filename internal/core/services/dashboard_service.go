package services

import (
	"context"
	"math"

	"cardpool/internal/adapters/persistence/repositories"
)

// DashboardService assembles the shared usage overview
type DashboardService struct {
	memberRepo   repositories.MemberRepository
	limitService *LimitService
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(memberRepo repositories.MemberRepository, limitService *LimitService) *DashboardService {
	return &DashboardService{
		memberRepo:   memberRepo,
		limitService: limitService,
	}
}

// MemberUsage is one active member's row on the shared dashboard
type MemberUsage struct {
	MemberID       uint    `json:"member_id"`
	Nickname       string  `json:"nickname"`
	TotalUsed      int64   `json:"total_used"`
	EffectiveLimit int64   `json:"effective_limit"`
	UsageRate      float64 `json:"usage_rate"`
	IsMe           bool    `json:"is_me"`
}

// DashboardSummary is the full dashboard payload. Every member sees the same
// pool figures; only the is_me flag differs per viewer.
type DashboardSummary struct {
	Pool    PoolSummary        `json:"pool"`
	Members []MemberUsage      `json:"members"`
	Mine    *PersonalLimitInfo `json:"mine"`
}

// GetSummary builds the dashboard for the given viewer. Only active members
// appear in the usage list; the pool figures already exclude inactive ones.
func (s *DashboardService) GetSummary(ctx context.Context, viewerID uint) (*DashboardSummary, error) {
	members, err := s.memberRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	total, err := s.limitService.TotalInfo(ctx)
	if err != nil {
		return nil, err
	}

	usage := make([]MemberUsage, 0, len(members))
	var mine *PersonalLimitInfo
	for _, member := range members {
		info, err := s.limitService.PersonalInfo(ctx, member.ID)
		if err != nil {
			return nil, err
		}
		if member.ID == viewerID {
			mine = info
		}
		if !member.IsActive {
			continue
		}
		usage = append(usage, MemberUsage{
			MemberID:       member.ID,
			Nickname:       member.Nickname,
			TotalUsed:      info.TotalUsed,
			EffectiveLimit: info.EffectiveLimit,
			UsageRate:      usageRate(info.TotalUsed, info.EffectiveLimit),
			IsMe:           member.ID == viewerID,
		})
	}

	return &DashboardSummary{
		Pool: PoolSummary{
			ActiveCount:    total.ActiveMembers,
			TotalCount:     int64(len(members)),
			TotalLimit:     total.TotalLimit,
			TotalUsed:      total.TotalUsed,
			RemainingTotal: total.RemainingTotal,
		},
		Members: usage,
		Mine:    mine,
	}, nil
}

// usageRate returns used/limit as a percentage rounded to one decimal place
func usageRate(used, limit int64) float64 {
	if limit <= 0 {
		return 0
	}
	return math.Round(float64(used)/float64(limit)*1000) / 10
}
