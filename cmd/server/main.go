package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/counterdesk/api/internal/cache"
	"github.com/counterdesk/api/internal/cart"
	"github.com/counterdesk/api/internal/catalog"
	"github.com/counterdesk/api/internal/config"
	"github.com/counterdesk/api/internal/feed"
	"github.com/counterdesk/api/internal/ordercode"
	"github.com/counterdesk/api/internal/router"
	"github.com/counterdesk/api/internal/service"
	"github.com/counterdesk/api/internal/store"
	"github.com/counterdesk/api/internal/ws"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to create connection pool: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to reach database: %v", err)
	}

	db := store.New(pool)

	// Cart snapshots are optional. Without Redis, carts are memory-only and
	// a restart loses in-progress carts, nothing else.
	var snaps *cart.Snapshots
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		snaps = cart.NewSnapshots(redis.NewClient(opts), 24*time.Hour)
		log.Println("Cart snapshots enabled")
	}
	carts := cart.NewRegistry(snaps)

	orders := cache.NewOrderCache()
	products := catalog.NewCache()
	if err := orders.Load(ctx, db); err != nil {
		log.Printf("ERROR: initial order load: %v", err)
	}
	if err := products.Load(ctx, db); err != nil {
		log.Printf("ERROR: initial catalog load: %v", err)
	}

	bus := feed.NewBus()
	orders.Subscribe(bus)
	products.Subscribe(bus)

	hub := ws.NewHub()
	go hub.Run()
	bridgeFeedToHub(bus, hub)

	go runChangeListener(ctx, db, bus, orders, products)

	submit := service.NewSubmission(db, products, ordercode.New(cfg.OrderCodePrefix))

	r := router.New(cfg, router.Deps{
		Store:   db,
		Orders:  orders,
		Catalog: products,
		Carts:   carts,
		Submit:  submit,
		Hub:     hub,
	})

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatal(err)
	}
}

// bridgeFeedToHub forwards change events to connected terminals. Payloads
// carry just the row identity; terminals refetch through the REST API, which
// reads the already-reconciled caches.
func bridgeFeedToHub(bus *feed.Bus, hub *ws.Hub) {
	bus.SubscribeOrders(func(ch store.OrderChange) {
		payload, _ := json.Marshal(map[string]string{
			"id":   ch.Order.ID.String(),
			"code": ch.Order.Code,
		})
		hub.Broadcast(ws.TopicOrders, ws.Event{Type: string(ch.Kind), Payload: payload})
	})
	bus.SubscribeProducts(func(ch store.ProductChange) {
		payload, _ := json.Marshal(map[string]int64{"id": ch.Product.ID})
		hub.Broadcast(ws.TopicProducts, ws.Event{Type: string(ch.Kind), Payload: payload})
	})
}

// reconnectDelay returns the wait before the next LISTEN attempt. A session
// that held for a while was healthy and restarts the ladder at one second;
// consecutive quick failures double the delay up to a ceiling.
func reconnectDelay(prev, session time.Duration) time.Duration {
	if session > time.Minute || prev <= 0 {
		return time.Second
	}
	next := prev * 2
	if next > 30*time.Second {
		return 30 * time.Second
	}
	return next
}

// runChangeListener keeps a LISTEN connection alive for the process
// lifetime. After any listener failure the caches are reloaded before
// resubscribing, since events missed during the gap would otherwise leave
// them stale forever.
func runChangeListener(ctx context.Context, db *store.Postgres, bus *feed.Bus, orders *cache.OrderCache, products *catalog.Cache) {
	var delay time.Duration
	for {
		started := time.Now()
		err := db.ListenChanges(ctx, bus.PublishOrder, bus.PublishProduct)
		if ctx.Err() != nil {
			return
		}
		delay = reconnectDelay(delay, time.Since(started))
		log.Printf("ERROR: change listener: %v; reconnecting in %s", err, delay)
		time.Sleep(delay)

		if err := orders.Load(ctx, db); err != nil {
			log.Printf("ERROR: order reload after listener gap: %v", err)
		}
		if err := products.Load(ctx, db); err != nil {
			log.Printf("ERROR: catalog reload after listener gap: %v", err)
		}
	}
}
