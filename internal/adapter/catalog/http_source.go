package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
)

const (
	DefaultURL     = "https://fakestoreapi.com/products"
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 8 << 20
)

// HTTPSource fetches the product list from a JSON endpoint that returns an
// array of products.
type HTTPSource struct {
	url    string
	client *http.Client
}

func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPSource{url: url, client: &http.Client{Timeout: timeout}}
}

// WithClient swaps the HTTP client, mostly for tests.
func (s *HTTPSource) WithClient(client *http.Client) *HTTPSource {
	s.client = client
	return s
}

func (s *HTTPSource) FetchProducts(ctx context.Context) ([]domain.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: unexpected status %s", s.url, resp.Status)
	}

	var products []domain.Product
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}
