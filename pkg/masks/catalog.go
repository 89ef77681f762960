// Package masks is a read-through cache over the portal's predefined
// filters.
package masks

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// DefaultTTL is how long list and body lookups are reused.
const DefaultTTL = 10 * time.Minute

const listKey = "\x00list"

// Source is the portal side of the catalog.
type Source interface {
	ListMasks(ctx context.Context) ([]string, error)
	GetMask(ctx context.Context, name string) (string, error)
}

// Catalog caches successful lookups. Failures are never cached.
type Catalog struct {
	source Source
	cache  *cache.Cache
	logger *zap.Logger
}

// New creates a catalog. A non-positive ttl uses DefaultTTL.
func New(src Source, ttl time.Duration, logger *zap.Logger) *Catalog {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{
		source: src,
		cache:  cache.New(ttl, 2*ttl),
		logger: logger,
	}
}

// List returns the mask names.
func (c *Catalog) List(ctx context.Context) ([]string, error) {
	if v, ok := c.cache.Get(listKey); ok {
		if names, ok := v.([]string); ok {
			return append([]string(nil), names...), nil
		}
	}
	names, err := c.source.ListMasks(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(listKey, append([]string(nil), names...))
	c.logger.Debug("Mask list loaded", zap.Int("count", len(names)))
	return names, nil
}

// Get returns the filter text of a mask.
func (c *Catalog) Get(ctx context.Context, name string) (string, error) {
	if v, ok := c.cache.Get(name); ok {
		if body, ok := v.(string); ok {
			return body, nil
		}
	}
	body, err := c.source.GetMask(ctx, name)
	if err != nil {
		return "", err
	}
	c.cache.SetDefault(name, body)
	return body, nil
}

// Flush drops every cached entry.
func (c *Catalog) Flush() {
	c.cache.Flush()
}
