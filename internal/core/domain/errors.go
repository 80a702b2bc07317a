package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidCoupon       = errors.New("invalid coupon code")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrProductNotFound     = errors.New("product not found")
	ErrCatalogFetch        = errors.New("catalog fetch failed")
	ErrCheckoutCancelled   = errors.New("checkout cancelled")
	ErrDuplicateRequest    = errors.New("duplicate request")
	ErrMissingFields       = errors.New("missing required fields")
	ErrInvalidEmail        = errors.New("invalid email")
	ErrTotalChanged        = errors.New("cart total changed")
)

// User-facing messages.
const (
	MsgCannotAdd         = "Cannot add: Insufficient balance!"
	MsgCannotIncrease    = "Cannot increase: Insufficient balance!"
	MsgOrderInsufficient = "Insufficient balance for order!"
	MsgCartInsufficient  = "Warning: Your balance is insufficient for items in cart!"
	MsgInvalidCoupon     = "Invalid coupon code!"
	MsgEmptyCart         = "Your cart is empty!"
	MsgConfirmOrder      = "Confirm order?"
	MsgOrderPlaced       = "Order placed successfully!"
	MsgMissingFields     = "Please fill in all fields."
	MsgInvalidEmail      = "Please enter a valid email."
	MsgTotalChanged      = "Your cart has changed, please review your order."
	MsgContactThanks     = "Thank you for your message! We will get back to you soon."
)

// Admission names the action being checked against the balance.
type Admission uint8

const (
	AdmitAdd Admission = iota + 1
	AdmitIncrease
	AdmitCheckout
)

func (a Admission) String() string {
	switch a {
	case AdmitAdd:
		return "add"
	case AdmitIncrease:
		return "increase"
	case AdmitCheckout:
		return "checkout"
	default:
		return "unknown"
	}
}

// Warning is the message shown when the admission is rejected.
func (a Admission) Warning() string {
	switch a {
	case AdmitAdd:
		return MsgCannotAdd
	case AdmitIncrease:
		return MsgCannotIncrease
	default:
		return MsgOrderInsufficient
	}
}

// InsufficientBalanceError is returned when an action would exceed the
// balance. It matches ErrInsufficientBalance with errors.Is.
type InsufficientBalanceError struct {
	Admission Admission
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s: need %s, have %s",
		e.Admission, e.Required.StringFixed(2), e.Available.StringFixed(2))
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// WarningFor maps a core error to the message a user should see, or "" when
// the error has no user-facing form.
func WarningFor(err error) string {
	var ib *InsufficientBalanceError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ib):
		return ib.Admission.Warning()
	case errors.Is(err, ErrInsufficientBalance):
		return MsgOrderInsufficient
	case errors.Is(err, ErrInvalidCoupon):
		return MsgInvalidCoupon
	case errors.Is(err, ErrEmptyCart):
		return MsgEmptyCart
	case errors.Is(err, ErrTotalChanged):
		return MsgTotalChanged
	case errors.Is(err, ErrMissingFields):
		return MsgMissingFields
	case errors.Is(err, ErrInvalidEmail):
		return MsgInvalidEmail
	default:
		return ""
	}
}
