package handler

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

func newTestServices(t *testing.T) Services {
	t.Helper()
	catalog := service.NewCatalog(nil)
	catalog.Replace([]domain.Product{
		{ID: 1, Title: "Fjallraven - Foldsack No. 1 Backpack, Fits 15 Laptops", Price: decimal.RequireFromString("1")},
		{ID: 2, Title: "Mens Casual Premium Slim Fit T-Shirts", Price: decimal.RequireFromString("2")},
		{ID: 4, Title: "John Hardy Women's Legends Naga Bracelet", Price: decimal.RequireFromString("50")},
	})

	store := storage.NewMemoryStore()
	sf, err := service.NewStorefront(context.Background(), service.Dependencies{
		Catalog:     catalog,
		Store:       store,
		Idempotency: store,
	}, service.DefaultOptions())
	if err != nil {
		t.Fatalf("NewStorefront failed: %v", err)
	}
	t.Cleanup(sf.Close)

	return Services{
		Storefront: sf,
		Reviews:    service.NewReviewCarousel(domain.DefaultReviews()),
		Banner:     service.NewCarousel(4),
		Contact:    service.NewContactDesk(nil),
	}
}

func testPresenter() Presenter {
	return NewPresenter(decimal.NewFromInt(123), "BDT")
}

func TestPresenter_Cart(t *testing.T) {
	p := testPresenter()
	view := p.Cart(domain.Snapshot{
		Lines: []domain.CartLine{{ProductID: 2, Title: "Shirt", UnitPrice: decimal.RequireFromString("2"), Quantity: 3}},
		Totals: domain.Totals{
			Subtotal:   decimal.RequireFromString("738"),
			Discount:   decimal.RequireFromString("800"),
			Total:      decimal.RequireFromString("-62"),
			TotalItems: 3,
		},
		Balance: decimal.RequireFromString("1000"),
	})

	if view.Lines[0].UnitPrice != "246.00 BDT" || view.Lines[0].LineTotal != "738.00 BDT" {
		t.Errorf("unexpected line view: %+v", view.Lines[0])
	}
	if view.Total != "0.00 BDT" {
		t.Errorf("expected total clamped to 0.00 BDT, got %s", view.Total)
	}
	if view.Balance != "1000.00 BDT" {
		t.Errorf("expected 1000.00 BDT, got %s", view.Balance)
	}
}

func TestPresenter_ShortTitle(t *testing.T) {
	p := testPresenter()

	long := p.Product(domain.Product{Title: "Fjallraven - Foldsack No. 1 Backpack, Fits 15 Laptops"})
	if long.Title != "Fjallraven - Foldsack No. 1 Backpack, Fits 15 Lapt..." {
		t.Errorf("unexpected title %q", long.Title)
	}
	short := p.Product(domain.Product{Title: "Mug", Price: decimal.RequireFromString("0.5")})
	if short.Title != "Mug..." || short.Price != "61.50 BDT" {
		t.Errorf("unexpected view %+v", short)
	}
}
