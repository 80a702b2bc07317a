package service

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CouponResolver maps normalized coupon codes to a percentage off.
type CouponResolver struct {
	percentOff map[string]decimal.Decimal
}

// NewCouponResolver builds a resolver from code -> percent. Codes are
// normalized the same way user input is.
func NewCouponResolver(codes map[string]int) *CouponResolver {
	r := &CouponResolver{percentOff: make(map[string]decimal.Decimal, len(codes))}
	for code, pct := range codes {
		r.percentOff[NormalizeCoupon(code)] = decimal.NewFromInt(int64(pct))
	}
	return r
}

// DefaultCoupons is the single storefront code: 10% off.
func DefaultCoupons() map[string]int {
	return map[string]int{"SMART10": 10}
}

func NormalizeCoupon(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Discount returns the discount for code against subtotal. ok is false when
// the code is unknown.
func (r *CouponResolver) Discount(code string, subtotal decimal.Decimal) (discount decimal.Decimal, ok bool) {
	pct, ok := r.percentOff[NormalizeCoupon(code)]
	if !ok {
		return decimal.Zero, false
	}
	return subtotal.Mul(pct).Div(hundred), true
}
