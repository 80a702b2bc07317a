package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPlaced   OrderStatus = "placed"
	OrderStatusArchived OrderStatus = "archived"
)

// Order records one committed checkout. Amounts are in display units.
type Order struct {
	ID           string          `json:"id"`
	RequestID    string          `json:"request_id,omitempty"`
	Lines        []CartLine      `json:"lines"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	CouponCode   string          `json:"coupon_code,omitempty"`
	Status       OrderStatus     `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}
