package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternalServer = errors.New("internal server error")
)

// Expense errors
var (
	ErrExpenseNotFound = errors.New("expense not found")
	ErrInvalidAmount   = errors.New("amount must be a positive number")
)

// Limit request workflow errors
var (
	ErrRequestNotFound      = errors.New("limit request not found")
	ErrInvalidUnit          = errors.New("amount must be a positive multiple of the request unit")
	ErrDuplicateOpenRequest = errors.New("an open limit request already exists")
	ErrSelfApproval         = errors.New("cannot approve your own request")
	ErrNotOpen              = errors.New("request is not accepting approvals")
	ErrAlreadyFulfilled     = errors.New("request is already fully approved")
	ErrNothingApproved      = errors.New("request has no approved amount to confirm")
	ErrNotFulfilled         = errors.New("only fulfilled requests can be returned")
	ErrConflict             = errors.New("concurrent update conflict, retry the operation")
)

// Membership control errors
var (
	ErrMemberNotFound      = errors.New("member not found")
	ErrSelfActionForbidden = errors.New("cannot perform this action on your own account")
)

// PersonalLimitExceededError is returned when a write would push a member
// past their effective personal limit. Remaining carries the live headroom
// so the caller can self-correct.
type PersonalLimitExceededError struct {
	Requested int64 `json:"requested"`
	Remaining int64 `json:"remaining"`
}

func (e *PersonalLimitExceededError) Error() string {
	return fmt.Sprintf("personal limit exceeded: requested %d, remaining %d", e.Requested, e.Remaining)
}

// TotalLimitExceededError is returned when a write would push pool-wide
// usage past the pooled limit.
type TotalLimitExceededError struct {
	Requested int64 `json:"requested"`
	Remaining int64 `json:"remaining"`
}

func (e *TotalLimitExceededError) Error() string {
	return fmt.Sprintf("total limit exceeded: requested %d, remaining %d", e.Requested, e.Remaining)
}

// InsufficientPersonalLimitError is returned when an approver's remaining
// personal headroom does not cover the net new commitment of an approval.
type InsufficientPersonalLimitError struct {
	NetNew    int64 `json:"net_new"`
	Remaining int64 `json:"remaining"`
}

func (e *InsufficientPersonalLimitError) Error() string {
	return fmt.Sprintf("insufficient personal limit: need %d more, remaining %d", e.NetNew, e.Remaining)
}

// OverLimitWarning is a soft-blocking error returned when deactivating a
// member would shrink the pooled limit below current usage. The caller may
// re-invoke with force=true to proceed anyway.
type OverLimitWarning struct {
	CurrentTotalUsed int64 `json:"current_total_used"`
	NewTotalLimit    int64 `json:"new_total_limit"`
}

func (e *OverLimitWarning) Error() string {
	return fmt.Sprintf("current total used %d exceeds the new total limit %d", e.CurrentTotalUsed, e.NewTotalLimit)
}
