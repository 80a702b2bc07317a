package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

type CatalogState int32

const (
	CatalogEmpty CatalogState = iota
	CatalogLoading
	CatalogReady
	CatalogFailed
)

func (s CatalogState) String() string {
	switch s {
	case CatalogLoading:
		return "loading"
	case CatalogReady:
		return "ready"
	case CatalogFailed:
		return "failed"
	default:
		return "empty"
	}
}

// Catalog caches the product list fetched once from the remote source.
// Lookups before the fetch completes, or after it failed, report
// ErrProductNotFound.
type Catalog struct {
	mu       sync.RWMutex
	state    CatalogState
	products []domain.Product
	byID     map[int]int
	loadErr  error
	loadOnce sync.Once
	log      *zap.Logger
}

func NewCatalog(log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{byID: make(map[int]int), log: log}
}

// Load fetches the catalog from src. Only the first call performs the fetch;
// there are no retries and later calls return the first outcome.
func (c *Catalog) Load(ctx context.Context, src port.CatalogSource) error {
	c.loadOnce.Do(func() {
		c.setState(CatalogLoading)

		products, err := src.FetchProducts(ctx)
		if err != nil {
			c.mu.Lock()
			c.state = CatalogFailed
			c.loadErr = fmt.Errorf("%w: %w", domain.ErrCatalogFetch, err)
			c.mu.Unlock()
			c.log.Error("error fetching products", zap.Error(err))
			return
		}

		c.Replace(products)
		c.log.Info("catalog loaded", zap.Int("products", len(products)))
	})

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadErr
}

// Replace installs products and marks the catalog ready. Invalid records and
// duplicate ids after the first are skipped.
func (c *Catalog) Replace(products []domain.Product) {
	kept := make([]domain.Product, 0, len(products))
	byID := make(map[int]int, len(products))
	for _, p := range products {
		if !p.Valid() {
			c.log.Warn("skipping invalid product", zap.Int("product_id", p.ID))
			continue
		}
		if _, dup := byID[p.ID]; dup {
			continue
		}
		byID[p.ID] = len(kept)
		kept = append(kept, p)
	}

	c.mu.Lock()
	c.products = kept
	c.byID = byID
	c.state = CatalogReady
	c.loadErr = nil
	c.mu.Unlock()
}

func (c *Catalog) setState(s CatalogState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Catalog) State() CatalogState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Catalog) Lookup(id int) (domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byID[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: id %d", domain.ErrProductNotFound, id)
	}
	return c.products[i], nil
}

// Search returns the products whose title contains term, ignoring case.
func (c *Catalog) Search(term string) []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Product, 0, len(c.products))
	for _, p := range c.products {
		if p.MatchesTitle(term) {
			out = append(out, p)
		}
	}
	return out
}
