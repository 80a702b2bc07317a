package service

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
)

// Carousel is a cyclic index over count slides. Next and Prev wrap around.
type Carousel struct {
	mu      sync.Mutex
	current int
	count   int
}

func NewCarousel(count int) *Carousel {
	return &Carousel{count: max(count, 0)}
}

func (c *Carousel) Count() int {
	return c.count
}

// Current is the zero-based index of the visible slide.
func (c *Carousel) Current() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Carousel) Next() int {
	return c.step(1)
}

func (c *Carousel) Prev() int {
	return c.step(-1)
}

func (c *Carousel) step(delta int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count == 0 {
		return 0
	}
	c.current = (c.current + delta + c.count) % c.count
	return c.current
}

// Run advances the carousel every interval until ctx is done. onTick, if
// set, receives the new index.
func (c *Carousel) Run(ctx context.Context, interval time.Duration, onTick func(int)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			i := c.Next()
			if onTick != nil {
				onTick(i)
			}
		}
	}
}

// ReviewCarousel pairs the review list with its slide position.
type ReviewCarousel struct {
	*Carousel
	reviews []domain.Review
}

func NewReviewCarousel(reviews []domain.Review) *ReviewCarousel {
	items := make([]domain.Review, len(reviews))
	copy(items, reviews)
	return &ReviewCarousel{Carousel: NewCarousel(len(items)), reviews: items}
}

func (r *ReviewCarousel) Reviews() []domain.Review {
	out := make([]domain.Review, len(r.reviews))
	copy(out, r.reviews)
	return out
}

// Showing returns the visible review and its index. ok is false when there
// are no reviews.
func (r *ReviewCarousel) Showing() (review domain.Review, index int, ok bool) {
	if len(r.reviews) == 0 {
		return domain.Review{}, 0, false
	}
	i := r.Current()
	return r.reviews[i], i, true
}
