package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

var ErrNoStore = errors.New("ledger store is required")

type Options struct {
	DisplayFactor   decimal.Decimal
	StartingBalance decimal.Decimal
	FundsIncrement  decimal.Decimal
	Coupons         map[string]int
	QueueSize       int
}

// DefaultOptions matches the storefront widget: prices ×123, 1000 starting
// balance, 1000 per top-up, SMART10 for 10% off.
func DefaultOptions() Options {
	return Options{
		DisplayFactor:   decimal.NewFromInt(123),
		StartingBalance: decimal.NewFromInt(1000),
		FundsIncrement:  decimal.NewFromInt(1000),
		Coupons:         DefaultCoupons(),
		QueueSize:       100,
	}
}

type Dependencies struct {
	Catalog     *Catalog
	Store       port.KeyValueStore
	Idempotency port.IdempotencyStore // optional
	Notifier    port.Notifier         // optional
	Logger      *zap.Logger           // optional
}

// Storefront owns the cart, discount and balance of the single session and
// keeps them consistent across every mutation. Each method holds the lock
// for its whole duration.
type Storefront struct {
	mu sync.Mutex

	catalog     *Catalog
	ledger      *Ledger
	guard       *BalanceGuard
	coupons     *CouponResolver
	idempotency port.IdempotencyStore
	notifier    port.Notifier
	log         *zap.Logger

	cart     domain.Cart
	discount decimal.Decimal
	coupon   string

	factor    decimal.Decimal
	increment decimal.Decimal

	orderQueue chan domain.Order
	closed     bool
}

// NewStorefront loads the persisted ledger and returns a ready storefront.
func NewStorefront(ctx context.Context, deps Dependencies, opts Options) (*Storefront, error) {
	if deps.Store == nil {
		return nil, ErrNoStore
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	catalog := deps.Catalog
	if catalog == nil {
		catalog = NewCatalog(log)
	}
	coupons := opts.Coupons
	if coupons == nil {
		coupons = DefaultCoupons()
	}

	ledger := NewLedger(deps.Store, opts.StartingBalance, log)
	cart, balance, err := ledger.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	s := &Storefront{
		catalog:     catalog,
		ledger:      ledger,
		guard:       NewBalanceGuard(balance),
		coupons:     NewCouponResolver(coupons),
		idempotency: deps.Idempotency,
		notifier:    deps.Notifier,
		log:         log,
		cart:        cart,
		factor:      opts.DisplayFactor,
		increment:   opts.FundsIncrement,
	}
	if opts.QueueSize > 0 {
		s.orderQueue = make(chan domain.Order, opts.QueueSize)
	}

	log.Info("ledger loaded",
		zap.Int("cart_lines", cart.Len()),
		zap.String("balance", balance.StringFixed(2)))
	return s, nil
}

func (s *Storefront) Catalog() *Catalog {
	return s.catalog
}

func (s *Storefront) DisplayFactor() decimal.Decimal {
	return s.factor
}

// DisplayPrice converts a catalog price into display units.
func (s *Storefront) DisplayPrice(price decimal.Decimal) decimal.Decimal {
	return price.Mul(s.factor)
}

// AddItem puts one unit of the product in the cart, provided the scaled
// subtotal stays within the balance.
func (s *Storefront) AddItem(ctx context.Context, productID int) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, err := s.catalog.Lookup(productID)
	if err != nil {
		s.log.Warn("add to cart: unknown product",
			zap.Int("product_id", productID),
			zap.Stringer("catalog", s.catalog.State()))
		return s.snapshotLocked(), err
	}

	prospective := s.subtotalLocked().Add(s.DisplayPrice(product.Price))
	if err := s.guard.Admit(prospective, domain.AdmitAdd); err != nil {
		return s.rejectLocked(ctx, err)
	}

	next := s.cart.Clone()
	next.Add(product)
	return s.commitCartLocked(ctx, next)
}

// ChangeQuantity applies delta to an existing line. Only positive deltas are
// checked against the balance, and only for a single unit whatever the
// delta; lines reaching zero are removed. Missing lines are a no-op.
func (s *Storefront) ChangeQuantity(ctx context.Context, productID, delta int) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, ok := s.cart.Line(productID)
	if !ok {
		return s.snapshotLocked(), nil
	}

	if delta > 0 {
		prospective := s.subtotalLocked().Add(s.DisplayPrice(line.UnitPrice))
		if err := s.guard.Admit(prospective, domain.AdmitIncrease); err != nil {
			return s.rejectLocked(ctx, err)
		}
	}

	next := s.cart.Clone()
	next.Adjust(productID, delta)
	return s.commitCartLocked(ctx, next)
}

// RemoveItem deletes the line if present. Removing a missing line leaves the
// state unchanged.
func (s *Storefront) RemoveItem(ctx context.Context, productID int) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cart.Clone()
	if !next.Remove(productID) {
		return s.publishLocked(ctx), nil
	}
	return s.commitCartLocked(ctx, next)
}

// ApplyCoupon snapshots the discount for code against the current subtotal.
// The discount is not rescaled by later cart changes.
func (s *Storefront) ApplyCoupon(ctx context.Context, code string) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := NormalizeCoupon(code)
	s.discount = decimal.Zero
	s.coupon = ""

	if normalized == "" {
		return s.notifyLocked(ctx), nil
	}

	discount, ok := s.coupons.Discount(normalized, s.subtotalLocked())
	if !ok {
		s.log.Info("rejected coupon", zap.String("code", normalized))
		s.guard.Warn(domain.MsgInvalidCoupon)
		return s.notifyLocked(ctx), fmt.Errorf("%w: %q", domain.ErrInvalidCoupon, normalized)
	}

	s.discount = discount
	s.coupon = normalized
	s.log.Info("coupon applied",
		zap.String("code", normalized),
		zap.String("discount", discount.StringFixed(2)))
	return s.notifyLocked(ctx), nil
}

// AddFunds credits the fixed top-up increment.
func (s *Storefront) AddFunds(ctx context.Context) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.guard.Balance().Add(s.increment)
	if err := s.ledger.SaveBalance(ctx, next); err != nil {
		s.log.Error("failed to persist balance", zap.Error(err))
		return s.snapshotLocked(), fmt.Errorf("persist balance: %w", err)
	}
	s.guard.set(next)
	s.log.Info("funds added",
		zap.String("amount", s.increment.StringFixed(2)),
		zap.String("balance", next.StringFixed(2)))
	return s.notifyLocked(ctx), nil
}

// Snapshot returns the current derived state without side effects.
func (s *Storefront) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Storefront) Subtotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subtotalLocked()
}

func (s *Storefront) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.TotalItems()
}

func (s *Storefront) Balance() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guard.Balance()
}

// GetOrderQueue returns the settled orders feed, nil when queueing is off.
// The same channel is returned after Close.
func (s *Storefront) GetOrderQueue() <-chan domain.Order {
	return s.orderQueue
}

// Close closes the order queue so archive workers can drain and exit.
// Settlements after Close are not archived.
func (s *Storefront) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.orderQueue != nil {
		close(s.orderQueue)
	}
}

func (s *Storefront) subtotalLocked() decimal.Decimal {
	return s.cart.Subtotal(s.factor)
}

func (s *Storefront) totalsLocked() domain.Totals {
	subtotal := s.subtotalLocked()
	return domain.Totals{
		Subtotal:   subtotal,
		Discount:   s.discount,
		Total:      subtotal.Sub(s.discount),
		TotalItems: s.cart.TotalItems(),
	}
}

func (s *Storefront) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		Lines:   s.cart.Lines(),
		Totals:  s.totalsLocked(),
		Balance: s.guard.Balance(),
		Coupon:  s.coupon,
		Warning: s.guard.Warning(),
	}
}

// commitCartLocked persists next and only then makes it the live cart.
func (s *Storefront) commitCartLocked(ctx context.Context, next domain.Cart) (domain.Snapshot, error) {
	if err := s.ledger.SaveCart(ctx, next); err != nil {
		s.log.Error("failed to persist cart", zap.Error(err))
		return s.snapshotLocked(), fmt.Errorf("persist cart: %w", err)
	}
	s.cart = next
	return s.publishLocked(ctx), nil
}

// publishLocked runs the standing balance warning check and notifies.
func (s *Storefront) publishLocked(ctx context.Context) domain.Snapshot {
	if s.guard.Refresh(s.subtotalLocked()) {
		s.log.Warn("cart exceeds balance",
			zap.String("subtotal", s.subtotalLocked().StringFixed(2)),
			zap.String("balance", s.guard.Balance().StringFixed(2)))
	}
	return s.notifyLocked(ctx)
}

func (s *Storefront) rejectLocked(ctx context.Context, err error) (domain.Snapshot, error) {
	s.guard.Warn(domain.WarningFor(err))
	s.log.Info("admission rejected", zap.Error(err))
	return s.notifyLocked(ctx), err
}

func (s *Storefront) notifyLocked(ctx context.Context) domain.Snapshot {
	snap := s.snapshotLocked()
	if s.notifier != nil {
		s.notifier.Notify(ctx, snap)
	}
	return snap
}
