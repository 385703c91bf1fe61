// Package resourcedirectory caches the full resource roster of a costing
// session.
package resourcedirectory

import (
	"context"
	"sync"

	"github.com/bwmarrin/snowflake"
	resourcedomain "github.com/smallbiznis/costing/internal/resource/domain"
)

// Loader fetches every live resource with its assignments.
type Loader interface {
	ListAllResources(ctx context.Context) ([]resourcedomain.Resource, error)
}

// Cache loads the roster once, lazily, and serves it for the rest of the
// session. A failed load leaves the cache empty so the next call retries.
type Cache struct {
	loader Loader

	mu     sync.Mutex
	loaded bool
	items  []resourcedomain.Resource
	byID   map[snowflake.ID]int
}

func New(loader Loader) *Cache {
	return &Cache{loader: loader}
}

// All returns the roster, loading it on first use.
func (c *Cache) All(ctx context.Context) ([]resourcedomain.Resource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	out := make([]resourcedomain.Resource, len(c.items))
	copy(out, c.items)
	return out, nil
}

// ByID resolves one resource from the roster.
func (c *Cache) ByID(ctx context.Context, id snowflake.ID) (resourcedomain.Resource, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(ctx); err != nil {
		return resourcedomain.Resource{}, false, err
	}
	idx, ok := c.byID[id]
	if !ok {
		return resourcedomain.Resource{}, false, nil
	}
	return c.items[idx], true, nil
}

func (c *Cache) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

func (c *Cache) ensureLoaded(ctx context.Context) error {
	if c.loaded {
		return nil
	}
	items, err := c.loader.ListAllResources(ctx)
	if err != nil {
		return err
	}
	byID := make(map[snowflake.ID]int, len(items))
	for i, item := range items {
		byID[item.ID] = i
	}
	c.items = items
	c.byID = byID
	c.loaded = true
	return nil
}
