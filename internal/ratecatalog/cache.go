// Package ratecatalog caches the productivity-tier rate catalog of each
// location for the lifetime of a costing session.
package ratecatalog

import (
	"context"
	"sort"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/costing/internal/observability/metrics"
	ratetierdomain "github.com/smallbiznis/costing/internal/ratetier/domain"
	"golang.org/x/sync/singleflight"
)

// Loader fetches the rate catalog of one location from the billing store.
type Loader interface {
	ListRateTiers(ctx context.Context, locationID snowflake.ID) ([]ratetierdomain.Rate, error)
}

// Cache is an append-only map of location to rate catalog. Entries are never
// invalidated; failed loads are not stored.
type Cache struct {
	loader  Loader
	metrics *metrics.Metrics

	mu      sync.RWMutex
	entries map[snowflake.ID][]ratetierdomain.Rate
	group   singleflight.Group
}

func New(loader Loader, m *metrics.Metrics) *Cache {
	return &Cache{
		loader:  loader,
		metrics: m,
		entries: make(map[snowflake.ID][]ratetierdomain.Rate),
	}
}

// Rates returns the catalog of locationID ordered Low to Best, loading it on
// the first request. Concurrent misses for the same location share one load.
func (c *Cache) Rates(ctx context.Context, locationID snowflake.ID) ([]ratetierdomain.Rate, error) {
	if rates, ok := c.peek(locationID); ok {
		c.metrics.RecordRateCache(true)
		return rates, nil
	}
	c.metrics.RecordRateCache(false)

	v, err, _ := c.group.Do(locationID.String(), func() (any, error) {
		if rates, ok := c.peek(locationID); ok {
			return rates, nil
		}
		loaded, err := c.loader.ListRateTiers(ctx, locationID)
		if err != nil {
			return nil, err
		}
		rates := normalize(loaded)

		c.mu.Lock()
		c.entries[locationID] = rates
		c.mu.Unlock()
		return rates, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(v.([]ratetierdomain.Rate)), nil
}

// Cached reports whether locationID is already in the cache.
func (c *Cache) Cached(locationID snowflake.ID) bool {
	_, ok := c.peek(locationID)
	return ok
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) peek(locationID snowflake.ID) ([]ratetierdomain.Rate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rates, ok := c.entries[locationID]
	if !ok {
		return nil, false
	}
	return clone(rates), true
}

// Lookup resolves level against rates; a level the catalog lacks costs zero.
func Lookup(rates []ratetierdomain.Rate, level ratetierdomain.ProductivityLevel) decimal.Decimal {
	rate, _ := ratetierdomain.Lookup(rates, level)
	return rate
}

func normalize(rates []ratetierdomain.Rate) []ratetierdomain.Rate {
	out := clone(rates)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Level.Rank() < out[j].Level.Rank()
	})
	return out
}

func clone(rates []ratetierdomain.Rate) []ratetierdomain.Rate {
	out := make([]ratetierdomain.Rate, len(rates))
	copy(out, rates)
	return out
}
