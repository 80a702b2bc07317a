package config

import "github.com/shopspring/decimal"

func (l LedgerConfig) Factor() (decimal.Decimal, error) {
	return decimal.NewFromString(l.DisplayFactor)
}

func (l LedgerConfig) Balance() (decimal.Decimal, error) {
	return decimal.NewFromString(l.StartingBalance)
}

func (l LedgerConfig) Increment() (decimal.Decimal, error) {
	return decimal.NewFromString(l.FundsIncrement)
}
