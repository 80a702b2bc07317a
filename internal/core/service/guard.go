package service

import (
	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
)

// BalanceGuard owns the spendable balance and the warning currently shown
// to the user. It is not safe for concurrent use; Storefront serializes
// access.
type BalanceGuard struct {
	balance decimal.Decimal
	warning string
}

func NewBalanceGuard(balance decimal.Decimal) *BalanceGuard {
	return &BalanceGuard{balance: balance}
}

func (g *BalanceGuard) Balance() decimal.Decimal {
	return g.balance
}

func (g *BalanceGuard) Warning() string {
	return g.warning
}

// Admit approves iff prospective ≤ balance. It has no side effects.
func (g *BalanceGuard) Admit(prospective decimal.Decimal, admission domain.Admission) error {
	if prospective.GreaterThan(g.balance) {
		return &domain.InsufficientBalanceError{
			Admission: admission,
			Required:  prospective,
			Available: g.balance,
		}
	}
	return nil
}

// Warn raises a warning. It stays visible until Refresh clears it.
func (g *BalanceGuard) Warn(message string) {
	g.warning = message
}

// Refresh re-evaluates the standing cart warning against subtotal. It is the
// only way a warning is cleared. It reports whether the cart exceeds the
// balance.
func (g *BalanceGuard) Refresh(subtotal decimal.Decimal) bool {
	if subtotal.GreaterThan(g.balance) {
		g.warning = domain.MsgCartInsufficient
		return true
	}
	g.warning = ""
	return false
}

func (g *BalanceGuard) set(balance decimal.Decimal) {
	g.balance = balance
}
