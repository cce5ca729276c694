// Package catalog keeps a session-local view of the active product catalog,
// reconciled the same way the order cache is: bulk load plus change events,
// all funneled through per-row primitives.
package catalog

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/counterdesk/api/internal/store"
)

// Loader is the bulk-fetch side of the product catalog.
type Loader interface {
	ListProducts(ctx context.Context, activeOnly bool) ([]store.Product, error)
}

// Feed is the change-event side. Satisfied by *feed.Bus.
type Feed interface {
	SubscribeProducts(handler func(store.ProductChange)) (cancel func())
}

// Cache resolves product ids for submission pricing and aggregation. Only
// active products are held: deactivating a product removes it, so orders
// referencing it show up as orphaned demand downstream.
type Cache struct {
	mu       sync.RWMutex
	products map[int64]store.Product

	subMu  sync.Mutex
	cancel func()
}

// NewCache creates an empty catalog cache.
func NewCache() *Cache {
	return &Cache{products: make(map[int64]store.Product)}
}

// Load replaces the cache content with the result of a full active-product
// fetch: returned rows are upserted, then cached ids absent from the result
// are removed, so a product deactivated while events were not flowing does
// not survive a reload. On error the cache keeps its last-known-good
// content.
func (c *Cache) Load(ctx context.Context, src Loader) error {
	products, err := src.ListProducts(ctx, true)
	if err != nil {
		return err
	}
	fetched := make(map[int64]bool, len(products))
	for _, p := range products {
		fetched[p.ID] = true
		c.apply(p)
	}
	for _, p := range c.Snapshot() {
		if !fetched[p.ID] {
			c.remove(p.ID)
		}
	}
	return nil
}

// apply upserts an active product or removes an inactive one.
func (c *Cache) apply(p store.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !p.Active {
		delete(c.products, p.ID)
		return
	}
	c.products[p.ID] = p
}

// remove drops a product by id; no-op when absent.
func (c *Cache) remove(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.products, id)
}

// Apply routes one change event through the same primitives as Load.
func (c *Cache) Apply(ch store.ProductChange) {
	switch ch.Kind {
	case store.ChangeInsert, store.ChangeUpdate:
		c.apply(ch.Product)
	case store.ChangeDelete:
		c.remove(ch.Product.ID)
	default:
		log.Printf("ERROR: catalog cache: unknown change kind %q", ch.Kind)
	}
}

// Subscribe attaches the cache to the feed; at most one active subscription.
func (c *Cache) Subscribe(f Feed) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.cancel != nil {
		return
	}
	c.cancel = f.SubscribeProducts(c.Apply)
}

// Unsubscribe detaches from the feed. No-op when not subscribed.
func (c *Cache) Unsubscribe() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.cancel == nil {
		return
	}
	c.cancel()
	c.cancel = nil
}

// ByID resolves an active product.
func (c *Cache) ByID(id int64) (store.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	return p, ok
}

// Snapshot returns all active products sorted by name, then id.
func (c *Cache) Snapshot() []store.Product {
	c.mu.RLock()
	products := make([]store.Product, 0, len(c.products))
	for _, p := range c.products {
		products = append(products, p)
	}
	c.mu.RUnlock()

	sort.Slice(products, func(i, j int) bool {
		if products[i].Name != products[j].Name {
			return products[i].Name < products[j].Name
		}
		return products[i].ID < products[j].ID
	})
	return products
}
