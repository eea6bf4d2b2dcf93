// Package apperrors defines the error taxonomy shared by the ledger services.
//
// Errors fall into three classes:
//   - validation: malformed input, rejected before any transaction opens
//   - precondition: rejected inside the transaction after rollback (insufficient balance,
//     empty voucher stock, duplicate badge, illegal status transition)
//   - not found: the referenced entity does not exist
//
// Anything else is an infrastructure failure and is reported generically.
package apperrors

import (
	"errors"
	"fmt"
)

// Validation errors.
var (
	ErrInvalidPoints   = errors.New("points must be a positive integer")
	ErrInvalidStatus   = errors.New("unknown status")
	ErrInvalidQuantity = errors.New("quantity out of range")
	ErrInvalidInput    = errors.New("invalid input")
	ErrPointsOverflow  = errors.New("points total out of range")
)

// Not-found errors.
var (
	ErrUserNotFound              = errors.New("user not found")
	ErrBadgeNotFound             = errors.New("badge not found")
	ErrPickupNotFound            = errors.New("pickup not found")
	ErrDonationNotFound          = errors.New("donation not found")
	ErrRedemptionNotFound        = errors.New("redemption request not found")
	ErrVoucherNotFound           = errors.New("voucher not found")
	ErrVoucherRedemptionNotFound = errors.New("voucher redemption not found")
)

// Precondition errors.
var (
	ErrInsufficientPoints  = errors.New("insufficient points")
	ErrVoucherUnavailable  = errors.New("voucher unavailable")
	ErrBadgeAlreadyGranted = errors.New("user already has this badge")
	ErrBadgeNameTaken      = errors.New("badge name already in use")
	ErrInvalidTransition   = errors.New("status transition not allowed")
	ErrBelowMinimum        = errors.New("below minimum redemption amount")
)

// InsufficientPointsError carries the balance shortfall.
type InsufficientPointsError struct {
	UserID    uint
	Available int64
	Requested int64
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points: user %d has %d, needs %d", e.UserID, e.Available, e.Requested)
}

func (e *InsufficientPointsError) Unwrap() error {
	return ErrInsufficientPoints
}

// TransitionError describes a rejected status change.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", e.Entity, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// IsValidation returns true if the error is due to malformed client input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidPoints) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrPointsOverflow) ||
		errors.Is(err, ErrInvalidInput)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrBadgeNotFound) ||
		errors.Is(err, ErrPickupNotFound) ||
		errors.Is(err, ErrDonationNotFound) ||
		errors.Is(err, ErrRedemptionNotFound) ||
		errors.Is(err, ErrVoucherNotFound) ||
		errors.Is(err, ErrVoucherRedemptionNotFound)
}

// IsPrecondition returns true if the error is a business-rule rejection.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrInsufficientPoints) ||
		errors.Is(err, ErrVoucherUnavailable) ||
		errors.Is(err, ErrBadgeAlreadyGranted) ||
		errors.Is(err, ErrBadgeNameTaken) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrBelowMinimum)
}
