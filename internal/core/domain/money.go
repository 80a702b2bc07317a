package domain

import "github.com/shopspring/decimal"

// DefaultCurrency is the display currency of scaled prices.
const DefaultCurrency = "BDT"

// FormatMoney renders an amount with two decimals followed by the currency,
// e.g. "6150.00 BDT".
func FormatMoney(amount decimal.Decimal, currency string) string {
	return amount.StringFixed(2) + " " + currency
}
