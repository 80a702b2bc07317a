package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const (
	OrderPlacedRoutingKey = "order.placed"
	archiveTimeout        = 5 * time.Second
)

// OrderArchiver drains settled orders into the order repository and
// announces them on the event bus. Failures are logged; a settlement is
// never rolled back from here.
type OrderArchiver struct {
	repo      port.OrderRepository
	publisher port.EventPublisher
	log       *zap.Logger
}

func NewOrderArchiver(repo port.OrderRepository, publisher port.EventPublisher, log *zap.Logger) *OrderArchiver {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderArchiver{repo: repo, publisher: publisher, log: log}
}

// Run consumes queue until it is closed.
func (a *OrderArchiver) Run(id int, queue <-chan domain.Order) {
	log := a.log.With(zap.Int("worker", id))
	for order := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		a.archive(ctx, log, order)
		cancel()
	}
	log.Debug("archive worker stopped")
}

func (a *OrderArchiver) archive(ctx context.Context, log *zap.Logger, order domain.Order) {
	log = log.With(zap.String("order_id", order.ID))

	if a.repo != nil {
		order.Status = domain.OrderStatusArchived
		if err := a.repo.CreateOrder(ctx, order); err != nil {
			log.Error("failed to save order", zap.Error(err))
			return
		}
		log.Info("saved order")
	}

	if a.publisher == nil {
		return
	}
	body, err := json.Marshal(order)
	if err != nil {
		log.Error("failed to encode order event", zap.Error(err))
		return
	}
	if err := a.publisher.Publish(ctx, OrderPlacedRoutingKey, body); err != nil {
		log.Error("failed to publish order event", zap.Error(err))
	}
}
