package search

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/sells-group/ad-scout/internal/model"
	"github.com/sells-group/ad-scout/internal/resilience"
)

// Scraper fetches raw ad-library listings for one (keyword, country) pair.
// Errors should be classifiable with resilience.IsTransient.
type Scraper interface {
	Fetch(ctx context.Context, keyword, country string, opts model.FetchOptions) ([]json.RawMessage, error)
}

// ScraperFunc adapts a function to Scraper.
type ScraperFunc func(ctx context.Context, keyword, country string, opts model.FetchOptions) ([]json.RawMessage, error)

// Fetch implements Scraper.
func (f ScraperFunc) Fetch(ctx context.Context, keyword, country string, opts model.FetchOptions) ([]json.RawMessage, error) {
	return f(ctx, keyword, country, opts)
}

// CachingScraper memoizes successful fetches per (country, keyword, count)
// for a TTL. Failures are never cached.
type CachingScraper struct {
	next  Scraper
	cache *expirable.LRU[string, []json.RawMessage]
}

// NewCachingScraper wraps next with an LRU of at most size entries.
func NewCachingScraper(next Scraper, size int, ttl time.Duration) *CachingScraper {
	if size <= 0 {
		size = 64
	}
	return &CachingScraper{
		next:  next,
		cache: expirable.NewLRU[string, []json.RawMessage](size, nil, ttl),
	}
}

// Fetch implements Scraper.
func (c *CachingScraper) Fetch(ctx context.Context, keyword, country string, opts model.FetchOptions) ([]json.RawMessage, error) {
	key := fmt.Sprintf("%s|%s|%d", country, keyword, opts.Count)
	if items, ok := c.cache.Get(key); ok {
		return items, nil
	}
	items, err := c.next.Fetch(ctx, keyword, country, opts)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, items)
	return items, nil
}

// Len returns the number of cached pairs.
func (c *CachingScraper) Len() int {
	return c.cache.Len()
}

// BreakerScraper fails fast with resilience.ErrCircuitOpen once the wrapped
// scraper has failed transiently too many times in a row.
type BreakerScraper struct {
	next Scraper
	cb   *resilience.CircuitBreaker
}

// NewBreakerScraper wraps next with cb.
func NewBreakerScraper(next Scraper, cb *resilience.CircuitBreaker) *BreakerScraper {
	return &BreakerScraper{next: next, cb: cb}
}

// Fetch implements Scraper.
func (b *BreakerScraper) Fetch(ctx context.Context, keyword, country string, opts model.FetchOptions) ([]json.RawMessage, error) {
	return resilience.ExecuteVal(ctx, b.cb, func(ctx context.Context) ([]json.RawMessage, error) {
		return b.next.Fetch(ctx, keyword, country, opts)
	})
}
