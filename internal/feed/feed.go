// Package feed fans change events from the store's LISTEN/NOTIFY stream out
// to in-process subscribers (caches, the websocket bridge).
package feed

import (
	"sync"

	"github.com/counterdesk/api/internal/store"
)

// Bus is an in-process dispatcher for row-change events. Handlers run on the
// publishing goroutine and must not block.
type Bus struct {
	mu          sync.RWMutex
	nextID      int
	orderSubs   map[int]func(store.OrderChange)
	productSubs map[int]func(store.ProductChange)
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{
		orderSubs:   make(map[int]func(store.OrderChange)),
		productSubs: make(map[int]func(store.ProductChange)),
	}
}

// SubscribeOrders registers a handler for order changes and returns its
// cancel function. Cancel is idempotent.
func (b *Bus) SubscribeOrders(h func(store.OrderChange)) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.orderSubs[id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.orderSubs, id)
	}
}

// SubscribeProducts registers a handler for product changes and returns its
// cancel function. Cancel is idempotent.
func (b *Bus) SubscribeProducts(h func(store.ProductChange)) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.productSubs[id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.productSubs, id)
	}
}

// PublishOrder delivers an order change to every subscriber.
func (b *Bus) PublishOrder(ch store.OrderChange) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, h := range b.orderSubs {
		h(ch)
	}
}

// PublishProduct delivers a product change to every subscriber.
func (b *Bus) PublishProduct(ch store.ProductChange) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, h := range b.productSubs {
		h(ch)
	}
}
