package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

type OrderRepository interface {
	// CreateOrder archives a settled order
	CreateOrder(ctx context.Context, order domain.Order) error

	// GetOrder retrieves an archived order by ID, nil if absent
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
}

type EventPublisher interface {
	// Publish sends body under the given routing key
	Publish(ctx context.Context, routingKey string, body []byte) error
}
