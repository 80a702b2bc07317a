package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

type CheckoutInput struct {
	// RequestID, when set, makes the settlement idempotent.
	RequestID string
	// DisplayedTotal, when set, is the total the user agreed to. Checkout
	// fails with ErrTotalChanged if the cart no longer adds up to it.
	DisplayedTotal decimal.NullDecimal
	Confirmer      port.Confirmer
}

type CheckoutResult struct {
	Order    *domain.Order
	Snapshot domain.Snapshot
}

// Checkout settles the cart against the balance. Validation happens before
// the confirmer is asked; a declined confirmation changes nothing.
func (s *Storefront) Checkout(ctx context.Context, in CheckoutInput) (CheckoutResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals := s.totalsLocked()
	total := totals.Payable()

	// Empty and stale checkouts are answered directly; the standing warning
	// is left as it is.
	if total.Sign() <= 0 {
		s.log.Info("checkout rejected", zap.Error(domain.ErrEmptyCart))
		return CheckoutResult{Snapshot: s.snapshotLocked()}, domain.ErrEmptyCart
	}
	if in.DisplayedTotal.Valid && !in.DisplayedTotal.Decimal.Equal(total) {
		s.log.Info("checkout rejected",
			zap.Error(domain.ErrTotalChanged),
			zap.String("displayed", in.DisplayedTotal.Decimal.String()),
			zap.String("total", total.StringFixed(2)))
		return CheckoutResult{Snapshot: s.snapshotLocked()}, domain.ErrTotalChanged
	}
	if err := s.guard.Admit(total, domain.AdmitCheckout); err != nil {
		snap, err := s.rejectLocked(ctx, err)
		return CheckoutResult{Snapshot: snap}, err
	}

	if in.Confirmer == nil || !in.Confirmer.Confirm(ctx, total) {
		s.log.Info("checkout declined", zap.String("total", total.StringFixed(2)))
		return CheckoutResult{Snapshot: s.snapshotLocked()}, domain.ErrCheckoutCancelled
	}

	if in.RequestID != "" && s.idempotency != nil {
		ok, err := s.idempotency.SetIdempotency(ctx, "checkout:"+in.RequestID)
		if err != nil {
			return CheckoutResult{Snapshot: s.snapshotLocked()}, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			s.log.Info("duplicate checkout", zap.String("request_id", in.RequestID))
			return CheckoutResult{Snapshot: s.snapshotLocked()}, domain.ErrDuplicateRequest
		}
	}

	balance := s.guard.Balance().Sub(total)
	if err := s.ledger.SaveSettlement(ctx, domain.Cart{}, balance); err != nil {
		s.log.Error("failed to persist settlement", zap.Error(err))
		s.releaseLocked(ctx, in.RequestID)
		return CheckoutResult{Snapshot: s.snapshotLocked()}, fmt.Errorf("persist settlement: %w", err)
	}

	order := domain.Order{
		ID:           uuid.NewString(),
		RequestID:    in.RequestID,
		Lines:        s.cart.Lines(),
		Subtotal:     totals.Subtotal,
		Discount:     totals.Discount,
		Total:        total,
		BalanceAfter: balance,
		CouponCode:   s.coupon,
		Status:       domain.OrderStatusPlaced,
		CreatedAt:    time.Now().UTC(),
	}

	s.cart.Clear()
	s.discount = decimal.Zero
	s.coupon = ""
	s.guard.set(balance)
	s.enqueueLocked(order)

	s.log.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("total", total.StringFixed(2)),
		zap.String("balance", balance.StringFixed(2)))

	return CheckoutResult{Order: &order, Snapshot: s.publishLocked(ctx)}, nil
}

// enqueueLocked hands the order to the archive workers without blocking the
// settlement. A full queue drops the order from the archive only.
func (s *Storefront) enqueueLocked(order domain.Order) {
	if s.orderQueue == nil || s.closed {
		return
	}
	select {
	case s.orderQueue <- order:
	default:
		s.log.Warn("order queue full, order not archived", zap.String("order_id", order.ID))
	}
}

// releaseLocked frees a claimed request id after a failed settlement so the
// client can retry with it.
func (s *Storefront) releaseLocked(ctx context.Context, requestID string) {
	if requestID == "" || s.idempotency == nil {
		return
	}
	if err := s.idempotency.ReleaseIdempotency(ctx, "checkout:"+requestID); err != nil {
		s.log.Error("failed to release request id",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}
