package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Common domain errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternalServer = errors.New("internal server error")
)

// Ledger errors
var (
	ErrMemberNotFound     = errors.New("member not found")
	ErrAdjustmentNotFound = errors.New("adjustment not found")
	ErrAdjustmentMismatch = errors.New("adjustment does not belong to member")
	ErrDuplicateToday     = errors.New("account already adjusted today")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrInvalidAdjustType  = errors.New("invalid adjustment type")
	ErrBackdatedAsOf      = errors.New("as-of time is earlier than the latest adjustment")
)

// Member/group errors
var (
	ErrGroupNotFound      = errors.New("group not found")
	ErrMemberNumberInUse  = errors.New("member number already in use")
	ErrMemberInactive     = errors.New("member is inactive")
	ErrAccrualAlreadyDone = errors.New("accrual already computed for period")
)

// DuplicateTodayError reports which member/account hit the
// once-per-calendar-day limit. Unwraps to ErrDuplicateToday.
type DuplicateTodayError struct {
	MemberID uint
	Account  AccountKind
}

func (e *DuplicateTodayError) Error() string {
	return fmt.Sprintf("member %d: %s account already adjusted today", e.MemberID, e.Account)
}

func (e *DuplicateTodayError) Unwrap() error {
	return ErrDuplicateToday
}

// InsufficientFundsError names the account that would go negative.
// Unwraps to ErrInsufficientFunds.
type InsufficientFundsError struct {
	MemberID  uint
	Account   AccountKind
	Current   decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("member %d: %s account has %s, cannot deduct %s",
		e.MemberID, e.Account, e.Current.StringFixed(2), e.Requested.StringFixed(2))
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// IsRejection reports whether err is a business rejection that still
// commits its "attempted" audit event (duplicate or insufficient funds).
func IsRejection(err error) bool {
	return errors.Is(err, ErrDuplicateToday) || errors.Is(err, ErrInsufficientFunds)
}
