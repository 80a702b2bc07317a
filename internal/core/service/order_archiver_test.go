package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
)

// Mock OrderRepository
type mockOrderRepo struct {
	mu     sync.Mutex
	orders map[string]domain.Order
	fail   bool
}

func (m *mockOrderRepo) CreateOrder(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("connection reset")
	}
	if m.orders == nil {
		m.orders = make(map[string]domain.Order)
	}
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepo) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

// Mock EventPublisher
type mockPublisher struct {
	mu     sync.Mutex
	keys   []string
	bodies [][]byte
}

func (m *mockPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, routingKey)
	m.bodies = append(m.bodies, body)
	return nil
}

func TestOrderArchiver_SavesAndPublishes(t *testing.T) {
	repo := &mockOrderRepo{}
	pub := &mockPublisher{}
	archiver := NewOrderArchiver(repo, pub, nil)

	queue := make(chan domain.Order, 2)
	queue <- domain.Order{ID: "o-1", Total: dec("10"), Status: domain.OrderStatusPlaced}
	queue <- domain.Order{ID: "o-2", Total: dec("20"), Status: domain.OrderStatusPlaced}
	close(queue)

	archiver.Run(1, queue)

	got, _ := repo.GetOrder(context.Background(), "o-2")
	if got == nil || got.Status != domain.OrderStatusArchived {
		t.Fatalf("expected archived order, got %+v", got)
	}
	if len(pub.keys) != 2 || pub.keys[0] != OrderPlacedRoutingKey {
		t.Fatalf("unexpected events: %v", pub.keys)
	}

	var event domain.Order
	if err := json.Unmarshal(pub.bodies[0], &event); err != nil {
		t.Fatalf("event is not JSON: %v", err)
	}
	if event.ID != "o-1" || !event.Total.Equal(dec("10")) {
		t.Errorf("unexpected event: %+v", event)
	}
}

func TestOrderArchiver_SaveFailureSkipsEvent(t *testing.T) {
	repo := &mockOrderRepo{fail: true}
	pub := &mockPublisher{}
	archiver := NewOrderArchiver(repo, pub, nil)

	queue := make(chan domain.Order, 1)
	queue <- domain.Order{ID: "o-1"}
	close(queue)

	archiver.Run(1, queue)

	if len(pub.keys) != 0 {
		t.Errorf("expected no event after failed save, got %v", pub.keys)
	}
}

func TestOrderArchiver_DrainsStorefrontQueue(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := newTestStorefront(t, newMockStore())
	archiver := NewOrderArchiver(repo, nil, nil)
	ctx := context.Background()

	queue := svc.GetOrderQueue()
	done := make(chan struct{})
	go func() {
		archiver.Run(0, queue)
		close(done)
	}()

	svc.AddItem(ctx, 1)
	res, err := svc.Checkout(ctx, CheckoutInput{Confirmer: confirm(true)})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	svc.Close()
	<-done

	if got, _ := repo.GetOrder(ctx, res.Order.ID); got == nil {
		t.Error("order was not archived")
	}
}

func TestOrderArchiver_StartedAfterCloseExits(t *testing.T) {
	svc := newTestStorefront(t, newMockStore())
	ctx := context.Background()

	svc.AddItem(ctx, 1)
	if _, err := svc.Checkout(ctx, CheckoutInput{Confirmer: confirm(true)}); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	svc.Close()
	svc.Close()

	queue := svc.GetOrderQueue()
	if queue == nil {
		t.Fatal("expected the closed queue, got nil")
	}

	repo := &mockOrderRepo{}
	done := make(chan struct{})
	go func() {
		NewOrderArchiver(repo, nil, nil).Run(0, queue)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("archiver did not exit after the queue was closed")
	}
	if len(repo.orders) != 1 {
		t.Errorf("expected the queued order drained, got %d", len(repo.orders))
	}

	// Settlements after Close are not queued and do not panic
	svc.AddItem(ctx, 1)
	if _, err := svc.Checkout(ctx, CheckoutInput{Confirmer: confirm(true)}); err != nil {
		t.Fatalf("checkout after close failed: %v", err)
	}
}
