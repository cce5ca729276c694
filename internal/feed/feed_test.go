package feed

import (
	"testing"

	"github.com/counterdesk/api/internal/store"
)

func TestBusFansOutToAllSubscribers(t *testing.T) {
	bus := NewBus()

	var a, b int
	bus.SubscribeOrders(func(store.OrderChange) { a++ })
	bus.SubscribeOrders(func(store.OrderChange) { b++ })

	bus.PublishOrder(store.OrderChange{Kind: store.ChangeInsert})
	bus.PublishOrder(store.OrderChange{Kind: store.ChangeUpdate})

	if a != 2 || b != 2 {
		t.Errorf("deliveries: got a=%d b=%d, want 2 each", a, b)
	}
}

func TestBusCancelStopsDelivery(t *testing.T) {
	bus := NewBus()

	var got int
	cancel := bus.SubscribeOrders(func(store.OrderChange) { got++ })

	bus.PublishOrder(store.OrderChange{Kind: store.ChangeInsert})
	cancel()
	cancel() // idempotent
	bus.PublishOrder(store.OrderChange{Kind: store.ChangeInsert})

	if got != 1 {
		t.Errorf("deliveries after cancel: got %d, want 1", got)
	}
}

func TestBusOrderAndProductStreamsAreIndependent(t *testing.T) {
	bus := NewBus()

	var orders, products int
	bus.SubscribeOrders(func(store.OrderChange) { orders++ })
	bus.SubscribeProducts(func(store.ProductChange) { products++ })

	bus.PublishOrder(store.OrderChange{Kind: store.ChangeInsert})
	bus.PublishProduct(store.ProductChange{Kind: store.ChangeDelete})

	if orders != 1 || products != 1 {
		t.Errorf("got orders=%d products=%d, want 1 each", orders, products)
	}
}
