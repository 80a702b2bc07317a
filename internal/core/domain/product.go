package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Product is a read-only catalog record as served by the catalog source.
type Product struct {
	ID          int             `json:"id"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Image       string          `json:"image"`
	Rating      Rating          `json:"rating"`
}

type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// MatchesTitle reports whether the title contains term, ignoring case.
// An empty term matches every product.
func (p Product) MatchesTitle(term string) bool {
	return strings.Contains(strings.ToLower(p.Title), strings.ToLower(term))
}

// Valid rejects records the cart could not price.
func (p Product) Valid() bool {
	return p.ID != 0 && !p.Price.IsNegative()
}
