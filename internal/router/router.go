package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/counterdesk/api/internal/cache"
	"github.com/counterdesk/api/internal/cart"
	"github.com/counterdesk/api/internal/catalog"
	"github.com/counterdesk/api/internal/config"
	"github.com/counterdesk/api/internal/handler"
	mw "github.com/counterdesk/api/internal/middleware"
	"github.com/counterdesk/api/internal/service"
	"github.com/counterdesk/api/internal/store"
	"github.com/counterdesk/api/internal/ws"
)

// Deps bundles everything the routes need. Built once in main and handed in
// whole so the wiring stays in one place.
type Deps struct {
	Store   *store.Postgres
	Orders  *cache.OrderCache
	Catalog *catalog.Cache
	Carts   *cart.Registry
	Submit  *service.Submission
	Hub     *ws.Hub
}

// New creates a Chi router with all application routes wired up.
func New(cfg *config.Config, deps Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"}, // terminal dev server
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	authHandler := handler.NewAuthHandler(deps.Store, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/{topic}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(deps.Hub, cfg.JWTSecret, w, r)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		productHandler := handler.NewProductHandler(deps.Store)
		r.Route("/products", productHandler.RegisterRoutes)

		cartHandler := handler.NewCartHandler(deps.Carts, deps.Catalog)
		r.Route("/cart", cartHandler.RegisterRoutes)

		orderHandler := handler.NewOrderHandler(deps.Store, deps.Submit, deps.Orders, deps.Carts)
		r.Route("/orders", orderHandler.RegisterRoutes)

		requirementsHandler := handler.NewRequirementsHandler(deps.Orders, deps.Catalog)
		r.Get("/requirements", requirementsHandler.List)
	})

	return r
}
