// Package catalog caches the product list used to price cart lines.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/atinyakov/packcart/internal/models"
	"go.uber.org/zap"
)

// Source loads the full product list.
type Source interface {
	Products(ctx context.Context) ([]models.Product, error)
}

// Cache is an in-memory product index. Until Load succeeds every lookup
// misses, which prices lines at zero.
type Cache struct {
	source Source
	log    *zap.Logger

	mu       sync.RWMutex
	products map[string]models.Product
}

// New creates an empty cache backed by source.
func New(source Source, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{source: source, log: log, products: make(map[string]models.Product)}
}

// Load replaces the cache with the current product list. On error the
// previous contents are kept.
func (c *Cache) Load(ctx context.Context) error {
	products, err := c.source.Products(ctx)
	if err != nil {
		c.log.Warn("failed to load products", zap.Error(err))
		return fmt.Errorf("load catalog: %w", err)
	}
	c.Set(products)
	c.log.Debug("catalog loaded", zap.Int("products", len(products)))
	return nil
}

// Set replaces the cache contents. Products without an id are skipped.
func (c *Cache) Set(products []models.Product) {
	index := make(map[string]models.Product, len(products))
	for _, p := range products {
		if p.ID == "" {
			continue
		}
		index[p.ID] = p
	}
	c.mu.Lock()
	c.products = index
	c.mu.Unlock()
}

// Product looks up a product by id.
func (c *Cache) Product(id string) (models.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	return p, ok
}

// List returns every cached product ordered by name, then id.
func (c *Cache) List() []models.Product {
	c.mu.RLock()
	out := make([]models.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}
