package services

import (
	"context"
	"errors"
	"log"

	"cardpool/internal/adapters/persistence/models"
	"cardpool/internal/adapters/persistence/repositories"
	"cardpool/internal/core/domain"

	"gorm.io/gorm"
)

// AdminService handles membership control: role changes and
// activation/deactivation, which resize the pool.
type AdminService struct {
	memberRepo   repositories.MemberRepository
	limitService *LimitService
}

// NewAdminService creates a new admin service
func NewAdminService(memberRepo repositories.MemberRepository, limitService *LimitService) *AdminService {
	return &AdminService{
		memberRepo:   memberRepo,
		limitService: limitService,
	}
}

// MemberStats is a member annotated with their derived limit figures
type MemberStats struct {
	*models.MemberResponse
	TotalUsed         int64 `json:"total_used"`
	EffectiveLimit    int64 `json:"effective_limit"`
	RemainingPersonal int64 `json:"remaining_personal"`
}

// PoolSummary is the pool-wide roll-up shown on the admin view
type PoolSummary struct {
	ActiveCount    int64 `json:"active_count"`
	TotalCount     int64 `json:"total_count"`
	TotalLimit     int64 `json:"total_limit"`
	TotalUsed      int64 `json:"total_used"`
	RemainingTotal int64 `json:"remaining_total"`
}

// ListMembersOutput represents the admin member list
type ListMembersOutput struct {
	Members []MemberStats `json:"members"`
	Summary PoolSummary   `json:"summary"`
}

// ListMembers returns every member with recomputed limit figures plus the
// pool summary
func (s *AdminService) ListMembers(ctx context.Context) (*ListMembersOutput, error) {
	members, err := s.memberRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := make([]MemberStats, len(members))
	for i, member := range members {
		info, err := s.limitService.PersonalInfo(ctx, member.ID)
		if err != nil {
			return nil, err
		}
		stats[i] = MemberStats{
			MemberResponse:    member.ToResponse(),
			TotalUsed:         info.TotalUsed,
			EffectiveLimit:    info.EffectiveLimit,
			RemainingPersonal: info.RemainingPersonal,
		}
	}

	total, err := s.limitService.TotalInfo(ctx)
	if err != nil {
		return nil, err
	}

	return &ListMembersOutput{
		Members: stats,
		Summary: PoolSummary{
			ActiveCount:    total.ActiveMembers,
			TotalCount:     int64(len(members)),
			TotalLimit:     total.TotalLimit,
			TotalUsed:      total.TotalUsed,
			RemainingTotal: total.RemainingTotal,
		},
	}, nil
}

// ToggleRole flips a member between MEMBER and ADMIN. No limit
// implications.
func (s *AdminService) ToggleRole(ctx context.Context, actorID, targetID uint) (*models.MemberResponse, error) {
	if actorID == targetID {
		return nil, domain.ErrSelfActionForbidden
	}

	target, err := s.getMember(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if target.Role == models.RoleAdmin {
		target.Role = models.RoleMember
	} else {
		target.Role = models.RoleAdmin
	}

	if err := s.memberRepo.Update(ctx, target); err != nil {
		return nil, err
	}

	log.Printf("✅ Role toggled for member %d → %s", target.ID, target.Role)
	return target.ToResponse(), nil
}

// ToggleActive flips a member's active flag. Deactivation shrinks the pool,
// so without force it is blocked when current usage would exceed the new
// pooled limit; the returned OverLimitWarning carries both figures for a
// force-retry. Activation only grows the pool and is never checked.
func (s *AdminService) ToggleActive(ctx context.Context, actorID, targetID uint, force bool) (*models.MemberResponse, error) {
	if actorID == targetID {
		return nil, domain.ErrSelfActionForbidden
	}

	target, err := s.getMember(ctx, targetID)
	if err != nil {
		return nil, err
	}

	newActive := !target.IsActive
	if !newActive && !force {
		// Snapshot before the change: the target is still active here, so
		// their expenses count toward the current usage figure.
		total, err := s.limitService.TotalInfo(ctx)
		if err != nil {
			return nil, err
		}
		newTotalLimit := s.limitService.BaseLimit() * (total.ActiveMembers - 1)
		if total.TotalUsed > newTotalLimit {
			return nil, &domain.OverLimitWarning{
				CurrentTotalUsed: total.TotalUsed,
				NewTotalLimit:    newTotalLimit,
			}
		}
	}

	target.IsActive = newActive
	if err := s.memberRepo.Update(ctx, target); err != nil {
		return nil, err
	}

	log.Printf("✅ Member %d active=%t (force=%t)", target.ID, newActive, force)
	return target.ToResponse(), nil
}

// getMember loads a member by ID
func (s *AdminService) getMember(ctx context.Context, id uint) (*models.Member, error) {
	member, err := s.memberRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	return member, nil
}
