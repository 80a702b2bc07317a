package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
)

type CatalogSource interface {
	// FetchProducts returns the full product list from the remote catalog
	FetchProducts(ctx context.Context) ([]domain.Product, error)
}

type Notifier interface {
	// Notify receives the derived state after every core operation
	Notify(ctx context.Context, snapshot domain.Snapshot)
}

type Confirmer interface {
	// Confirm asks the user to approve a checkout of total
	Confirm(ctx context.Context, total decimal.Decimal) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, total decimal.Decimal) bool

func (f ConfirmFunc) Confirm(ctx context.Context, total decimal.Decimal) bool {
	return f(ctx, total)
}

// NotifyFunc adapts a function to Notifier.
type NotifyFunc func(ctx context.Context, snapshot domain.Snapshot)

func (f NotifyFunc) Notify(ctx context.Context, snapshot domain.Snapshot) {
	f(ctx, snapshot)
}
