package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
)

var featureErrors = map[string]error{
	"insufficient balance": domain.ErrInsufficientBalance,
	"invalid coupon":       domain.ErrInvalidCoupon,
	"empty cart":           domain.ErrEmptyCart,
	"cancelled":            domain.ErrCheckoutCancelled,
	"not found":            domain.ErrProductNotFound,
}

type storefrontTestContext struct {
	products []domain.Product
	store    *mockStore
	svc      *Storefront
	snap     domain.Snapshot
	err      error
}

func (c *storefrontTestContext) reset() {
	if c.svc != nil {
		c.svc.Close()
	}
	c.products = nil
	c.store = newMockStore()
	c.svc = nil
	c.snap = domain.Snapshot{}
	c.err = nil
}

func (c *storefrontTestContext) storefront() (*Storefront, error) {
	if c.svc != nil {
		return c.svc, nil
	}
	catalog := NewCatalog(nil)
	catalog.Replace(c.products)

	svc, err := NewStorefront(context.Background(), Dependencies{
		Catalog:     catalog,
		Store:       c.store,
		Idempotency: &mockIdempotency{},
	}, DefaultOptions())
	if err != nil {
		return nil, err
	}
	c.svc = svc
	return svc, nil
}

func (c *storefrontTestContext) aCatalogWithProductPriced(id int, price string) error {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return err
	}
	c.products = append(c.products, domain.Product{ID: id, Title: fmt.Sprintf("product %d", id), Price: p})
	return nil
}

func (c *storefrontTestContext) aBalanceOf(balance string) error {
	c.store.data[BalanceKey] = []byte(balance)
	return nil
}

func (c *storefrontTestContext) run(op func(svc *Storefront) (domain.Snapshot, error)) error {
	svc, err := c.storefront()
	if err != nil {
		return err
	}
	c.snap, c.err = op(svc)
	return nil
}

func (c *storefrontTestContext) iAddProductToTheCart(id int) error {
	return c.run(func(svc *Storefront) (domain.Snapshot, error) {
		return svc.AddItem(context.Background(), id)
	})
}

func (c *storefrontTestContext) iChangeTheQuantityOfProductBy(id, delta int) error {
	return c.run(func(svc *Storefront) (domain.Snapshot, error) {
		return svc.ChangeQuantity(context.Background(), id, delta)
	})
}

func (c *storefrontTestContext) iRemoveProduct(id int) error {
	return c.run(func(svc *Storefront) (domain.Snapshot, error) {
		return svc.RemoveItem(context.Background(), id)
	})
}

func (c *storefrontTestContext) iApplyCoupon(code string) error {
	return c.run(func(svc *Storefront) (domain.Snapshot, error) {
		return svc.ApplyCoupon(context.Background(), code)
	})
}

func (c *storefrontTestContext) iCheckOutAnd(answer string) error {
	return c.run(func(svc *Storefront) (domain.Snapshot, error) {
		res, err := svc.Checkout(context.Background(), CheckoutInput{Confirmer: confirm(answer == "confirm")})
		return res.Snapshot, err
	})
}

func (c *storefrontTestContext) theOperationSucceeds() error {
	if c.err != nil {
		return fmt.Errorf("expected success, got %v", c.err)
	}
	return nil
}

func (c *storefrontTestContext) theOperationFailsWith(kind string) error {
	want, ok := featureErrors[kind]
	if !ok {
		return fmt.Errorf("unknown error kind %q", kind)
	}
	if !errors.Is(c.err, want) {
		return fmt.Errorf("expected %v, got %v", want, c.err)
	}
	return nil
}

func (c *storefrontTestContext) theCartIsEmpty() error {
	if n := len(c.snap.Lines); n != 0 {
		return fmt.Errorf("expected empty cart, got %d lines", n)
	}
	return nil
}

func (c *storefrontTestContext) theCartHasLinesAndItems(lines, items int) error {
	if len(c.snap.Lines) != lines || c.snap.Totals.TotalItems != items {
		return fmt.Errorf("expected %d lines and %d items, got %d and %d",
			lines, items, len(c.snap.Lines), c.snap.Totals.TotalItems)
	}
	return nil
}

func expectAmount(name string, got decimal.Decimal, want string) error {
	w, err := decimal.NewFromString(want)
	if err != nil {
		return err
	}
	if !got.Equal(w) {
		return fmt.Errorf("expected %s %s, got %s", name, w, got)
	}
	return nil
}

func (c *storefrontTestContext) theSubtotalIs(v string) error {
	return expectAmount("subtotal", c.snap.Totals.Subtotal, v)
}

func (c *storefrontTestContext) theDiscountIs(v string) error {
	return expectAmount("discount", c.snap.Totals.Discount, v)
}

func (c *storefrontTestContext) theTotalIs(v string) error {
	return expectAmount("total", c.snap.Totals.Total, v)
}

func (c *storefrontTestContext) theBalanceIs(v string) error {
	return expectAmount("balance", c.snap.Balance, v)
}

func (c *storefrontTestContext) theWarningIs(msg string) error {
	if c.snap.Warning != msg {
		return fmt.Errorf("expected warning %q, got %q", msg, c.snap.Warning)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &storefrontTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a catalog with product (\d+) priced ([\d.]+)$`, tc.aCatalogWithProductPriced)
	ctx.Step(`^a balance of ([\d.]+)$`, tc.aBalanceOf)

	// When steps
	ctx.Step(`^I add product (\d+) to the cart$`, tc.iAddProductToTheCart)
	ctx.Step(`^I change the quantity of product (\d+) by (-?\d+)$`, tc.iChangeTheQuantityOfProductBy)
	ctx.Step(`^I remove product (\d+)$`, tc.iRemoveProduct)
	ctx.Step(`^I apply coupon "([^"]*)"$`, tc.iApplyCoupon)
	ctx.Step(`^I check out and (confirm|decline)$`, tc.iCheckOutAnd)

	// Then steps
	ctx.Step(`^the operation succeeds$`, tc.theOperationSucceeds)
	ctx.Step(`^the operation fails with "([^"]*)"$`, tc.theOperationFailsWith)
	ctx.Step(`^the cart is empty$`, tc.theCartIsEmpty)
	ctx.Step(`^the cart has (\d+) lines and (\d+) items$`, tc.theCartHasLinesAndItems)
	ctx.Step(`^the subtotal is ([\d.]+)$`, tc.theSubtotalIs)
	ctx.Step(`^the discount is ([\d.]+)$`, tc.theDiscountIs)
	ctx.Step(`^the total is ([\d.]+)$`, tc.theTotalIs)
	ctx.Step(`^the balance is ([\d.]+)$`, tc.theBalanceIs)
	ctx.Step(`^the warning is "([^"]*)"$`, tc.theWarningIs)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
