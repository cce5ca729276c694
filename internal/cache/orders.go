// Package cache keeps a session-local, deduplicated view of all known orders
// consistent while bulk loads race with live change events.
package cache

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/counterdesk/api/internal/store"
	"github.com/google/uuid"
)

// OrderLoader is the bulk-fetch side of the remote store.
type OrderLoader interface {
	ListOrders(ctx context.Context) ([]store.Order, error)
}

// OrderFeed is the change-event side. Satisfied by *feed.Bus.
type OrderFeed interface {
	SubscribeOrders(handler func(store.OrderChange)) (cancel func())
}

// OrderCache is the canonical mapping orderID -> Order. The bulk-load path
// and the event path both write through the same per-row upsert/delete
// primitives, so there is a single merge rule: last writer per row wins.
type OrderCache struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]store.Order

	subMu  sync.Mutex
	cancel func() // non-nil while subscribed
}

// NewOrderCache creates an empty cache.
func NewOrderCache() *OrderCache {
	return &OrderCache{orders: make(map[uuid.UUID]store.Order)}
}

// Load replaces the cache content with the result of a full fetch: every
// returned row is upserted, then cached rows absent from the result are
// deleted, both through the per-row primitives. A row removed server-side
// while events were not flowing therefore does not survive a reload. On
// error the cache keeps its last-known-good content and the error is
// returned; a transient blip must not flash an empty order list.
func (c *OrderCache) Load(ctx context.Context, src OrderLoader) error {
	orders, err := src.ListOrders(ctx)
	if err != nil {
		return err
	}
	fetched := make(map[uuid.UUID]bool, len(orders))
	for _, o := range orders {
		fetched[o.ID] = true
		c.ApplyInsertOrUpdate(o)
	}
	for _, o := range c.Snapshot() {
		if !fetched[o.ID] {
			c.ApplyDelete(o)
		}
	}
	return nil
}

// ApplyInsertOrUpdate upserts by identifier: replace wholesale if present,
// add otherwise. Insert and update events are deliberately
// indistinguishable, which makes the handler idempotent under duplicated or
// reordered delivery.
func (c *OrderCache) ApplyInsertOrUpdate(o store.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders[o.ID] = o
}

// ApplyDelete removes the identifier if present; no-op otherwise.
func (c *OrderCache) ApplyDelete(o store.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.orders, o.ID)
}

// Apply routes one change event through the upsert/delete primitives.
// Unknown kinds are logged and skipped, never fatal.
func (c *OrderCache) Apply(ch store.OrderChange) {
	switch ch.Kind {
	case store.ChangeInsert, store.ChangeUpdate:
		c.ApplyInsertOrUpdate(ch.Order)
	case store.ChangeDelete:
		c.ApplyDelete(ch.Order)
	default:
		log.Printf("ERROR: order cache: unknown change kind %q", ch.Kind)
	}
}

// Subscribe attaches the cache to the feed. At most one subscription is
// active per cache; re-subscribing while subscribed is a no-op, so repeated
// mount/unmount in a hosting view can never double-count events.
func (c *OrderCache) Subscribe(f OrderFeed) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.cancel != nil {
		return
	}
	c.cancel = f.SubscribeOrders(c.Apply)
}

// Unsubscribe detaches from the feed. No-op when not subscribed.
func (c *OrderCache) Unsubscribe() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.cancel == nil {
		return
	}
	c.cancel()
	c.cancel = nil
}

// Get returns one order by id.
func (c *OrderCache) Get(id uuid.UUID) (store.Order, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.orders[id]
	return o, ok
}

// Len returns the number of cached orders.
func (c *OrderCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.orders)
}

// Snapshot returns all cached orders, newest first; ties break by id so
// identical cache content always yields identical ordering.
func (c *OrderCache) Snapshot() []store.Order {
	c.mu.RLock()
	orders := make([]store.Order, 0, len(c.orders))
	for _, o := range c.orders {
		orders = append(orders, o)
	}
	c.mu.RUnlock()

	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID.String() < orders[j].ID.String()
	})
	return orders
}
