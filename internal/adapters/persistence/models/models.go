package models

import (
	"time"

	"gorm.io/gorm"
)

// Member roles
const (
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

// Limit request statuses
const (
	StatusOpen      = "OPEN"
	StatusPartial   = "PARTIAL"
	StatusFulfilled = "FULFILLED"
	StatusCancelled = "CANCELLED"
	StatusReturned  = "RETURNED"
)

// Member represents members table. Members are never deleted; admins
// deactivate them instead, which shrinks the pooled limit.
type Member struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Nickname  string    `gorm:"uniqueIndex;size:50;not null" json:"nickname"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	Role      string    `gorm:"size:20;default:'MEMBER'" json:"role"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Member) TableName() string {
	return "members"
}

func (m *Member) IsAdmin() bool {
	return m.Role == RoleAdmin
}

// MemberResponse DTO
type MemberResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Nickname  string    `json:"nickname"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (m *Member) ToResponse() *MemberResponse {
	return &MemberResponse{
		ID:        m.ID,
		Email:     m.Email,
		Nickname:  m.Nickname,
		Role:      m.Role,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
	}
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	MemberID  uint       `gorm:"index;not null" json:"member_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	Member    Member     `gorm:"foreignKey:MemberID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// Expense represents expenses table. Amount is in the smallest currency
// unit. UsedAt is the date of spend; CreatedAt is the insertion time and is
// what the return workflow measures usage against.
type Expense struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MemberID  uint      `gorm:"index;not null" json:"member_id"`
	Amount    int64     `gorm:"not null" json:"amount"`
	UsedAt    time.Time `gorm:"not null" json:"used_at"`
	Merchant  string    `gorm:"size:100" json:"merchant,omitempty"`
	Memo      string    `gorm:"size:255" json:"memo,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	Member    Member    `gorm:"foreignKey:MemberID" json:"-"`
}

func (Expense) TableName() string {
	return "expenses"
}

// LimitRequest represents limit_requests table. ApprovedTotal is the
// running sum of the request's approval amounts and never exceeds
// RequestedAmount. UsedAmount is stamped on return only.
type LimitRequest struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	RequesterID     uint            `gorm:"index;not null" json:"requester_id"`
	RequestedAmount int64           `gorm:"not null" json:"requested_amount"`
	ApprovedTotal   int64           `gorm:"not null;default:0" json:"approved_total"`
	UsedAmount      int64           `gorm:"not null;default:0" json:"used_amount"`
	Status          string          `gorm:"size:20;not null;default:'OPEN';index" json:"status"`
	Reason          string          `gorm:"size:255" json:"reason,omitempty"`
	FulfilledAt     *time.Time      `json:"fulfilled_at"`
	ReturnedAt      *time.Time      `json:"returned_at"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	Requester       Member          `gorm:"foreignKey:RequesterID" json:"-"`
	Approvals       []LimitApproval `gorm:"foreignKey:RequestID" json:"approvals,omitempty"`
}

func (LimitRequest) TableName() string {
	return "limit_requests"
}

// IsTerminal reports whether the request can no longer change state.
func (r *LimitRequest) IsTerminal() bool {
	return r.Status == StatusCancelled || r.Status == StatusReturned
}

// LimitApproval represents limit_approvals table. One row per
// (request, approver) pair; a re-submission replaces the amount rather than
// adding to it. ReturnedAmount is stamped when the request is returned.
type LimitApproval struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	RequestID      uint      `gorm:"not null;uniqueIndex:idx_request_approver" json:"request_id"`
	ApproverID     uint      `gorm:"not null;uniqueIndex:idx_request_approver" json:"approver_id"`
	Amount         int64     `gorm:"not null" json:"amount"`
	ReturnedAmount int64     `gorm:"not null;default:0" json:"returned_amount"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	Approver       Member    `gorm:"foreignKey:ApproverID" json:"-"`
}

func (LimitApproval) TableName() string {
	return "limit_approvals"
}

// AutoMigrate creates/updates all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Member{},
		&RefreshToken{},
		&Expense{},
		&LimitRequest{},
		&LimitApproval{},
	)
}
