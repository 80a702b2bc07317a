package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// Ledger store keys.
const (
	CartKey    = "cart"
	BalanceKey = "userBalance"
)

// Ledger serializes cart and balance into the key-value store.
type Ledger struct {
	store          port.KeyValueStore
	defaultBalance decimal.Decimal
	log            *zap.Logger
}

func NewLedger(store port.KeyValueStore, defaultBalance decimal.Decimal, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{store: store, defaultBalance: defaultBalance, log: log}
}

// Load reads the persisted cart and balance. Absent or malformed values fall
// back to an empty cart and the default balance, and so does a balance that
// is not positive. Only store failures are returned as errors.
func (l *Ledger) Load(ctx context.Context) (domain.Cart, decimal.Decimal, error) {
	cart, err := l.loadCart(ctx)
	if err != nil {
		return domain.Cart{}, decimal.Zero, err
	}
	balance, err := l.loadBalance(ctx)
	if err != nil {
		return domain.Cart{}, decimal.Zero, err
	}
	return cart, balance, nil
}

func (l *Ledger) loadCart(ctx context.Context) (domain.Cart, error) {
	raw, err := l.store.Get(ctx, CartKey)
	if errors.Is(err, port.ErrKeyNotFound) {
		return domain.Cart{}, nil
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("load cart: %w", err)
	}

	var lines []domain.CartLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		l.log.Warn("discarding malformed persisted cart", zap.Error(err))
		return domain.Cart{}, nil
	}
	return domain.NewCart(lines), nil
}

func (l *Ledger) loadBalance(ctx context.Context) (decimal.Decimal, error) {
	raw, err := l.store.Get(ctx, BalanceKey)
	if errors.Is(err, port.ErrKeyNotFound) {
		return l.defaultBalance, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("load balance: %w", err)
	}

	// Zero resets to the default like any unusable value.
	balance, err := decimal.NewFromString(strings.TrimSpace(string(raw)))
	if err != nil || !balance.IsPositive() {
		l.log.Warn("discarding malformed persisted balance", zap.ByteString("value", raw))
		return l.defaultBalance, nil
	}
	return balance, nil
}

func (l *Ledger) SaveCart(ctx context.Context, cart domain.Cart) error {
	entry, err := cartEntry(cart)
	if err != nil {
		return err
	}
	return l.store.Put(ctx, entry)
}

func (l *Ledger) SaveBalance(ctx context.Context, balance decimal.Decimal) error {
	return l.store.Put(ctx, balanceEntry(balance))
}

// SaveSettlement writes cart and balance in one atomic put.
func (l *Ledger) SaveSettlement(ctx context.Context, cart domain.Cart, balance decimal.Decimal) error {
	entry, err := cartEntry(cart)
	if err != nil {
		return err
	}
	return l.store.Put(ctx, entry, balanceEntry(balance))
}

func cartEntry(cart domain.Cart) (port.Entry, error) {
	lines := cart.Lines()
	raw, err := json.Marshal(lines)
	if err != nil {
		return port.Entry{}, fmt.Errorf("encode cart: %w", err)
	}
	return port.Entry{Key: CartKey, Value: raw}, nil
}

func balanceEntry(balance decimal.Decimal) port.Entry {
	return port.Entry{Key: BalanceKey, Value: []byte(balance.String())}
}
