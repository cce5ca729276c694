package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/counterdesk/api/internal/cart"
	"github.com/counterdesk/api/internal/catalog"
	"github.com/counterdesk/api/internal/middleware"
	"github.com/counterdesk/api/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartHandler exposes the authenticated actor's working cart. Every mutation
// snapshots the cart afterwards so a crashed terminal can pick it back up.
type CartHandler struct {
	carts   *cart.Registry
	catalog *catalog.Cache
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(carts *cart.Registry, catalog *catalog.Cache) *CartHandler {
	return &CartHandler{carts: carts, catalog: catalog}
}

// RegisterRoutes registers cart endpoints on the given Chi router.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Delete("/", h.Clear)
	r.Post("/items/{productID}/increase", h.Increase)
	r.Post("/items/{productID}/decrease", h.Decrease)
	r.Put("/items/{productID}", h.SetQuantity)
	r.Delete("/items/{productID}", h.RemoveItem)
}

type cartLineResponse struct {
	ProductID int64  `json:"id"`
	Name      string `json:"name,omitempty"`
	Price     string `json:"price,omitempty"`
	Quantity  int    `json:"quantity"`
}

type cartResponse struct {
	Lines         []cartLineResponse `json:"lines"`
	TotalQuantity int                `json:"total_quantity"`
	Subtotal      string             `json:"subtotal"`
}

// toCartResponse prices the cart against the active catalog. Lines whose
// product has been deactivated stay visible with no name or price.
func (h *CartHandler) toCartResponse(lines store.ItemLineSet) cartResponse {
	resp := cartResponse{Lines: make([]cartLineResponse, 0, len(lines))}
	subtotal := decimal.Zero
	for _, line := range lines.Lines() {
		out := cartLineResponse{ProductID: line.ProductID, Quantity: line.Quantity}
		if p, ok := h.catalog.ByID(line.ProductID); ok {
			out.Name = p.Name
			out.Price = money(p.Price)
			subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}
		resp.Lines = append(resp.Lines, out)
		resp.TotalQuantity += line.Quantity
	}
	resp.Subtotal = money(subtotal)
	return resp
}

func actorFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil || claims.UserID == uuid.Nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return uuid.Nil, false
	}
	return claims.UserID, true
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return 0, false
	}
	return id, true
}

// Get handles GET /cart.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	c := h.carts.ForActor(r.Context(), actor)
	writeJSON(w, http.StatusOK, h.toCartResponse(c.Lines()))
}

// Increase handles POST /cart/items/{productID}/increase.
func (h *CartHandler) Increase(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}
	if _, found := h.catalog.ByID(id); !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	}

	c := h.carts.ForActor(r.Context(), actor)
	c.Increase(id)
	h.carts.Persist(r.Context(), actor, c)
	writeJSON(w, http.StatusOK, h.toCartResponse(c.Lines()))
}

// Decrease handles POST /cart/items/{productID}/decrease. Decrementing a
// quantity of one removes the line.
func (h *CartHandler) Decrease(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	c := h.carts.ForActor(r.Context(), actor)
	c.Decrease(id)
	h.carts.Persist(r.Context(), actor, c)
	writeJSON(w, http.StatusOK, h.toCartResponse(c.Lines()))
}

// SetQuantity handles PUT /cart/items/{productID}. A quantity of zero or
// less removes the line.
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req struct {
		Quantity *int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be an integer"})
		return
	}
	if *req.Quantity > 0 {
		if _, found := h.catalog.ByID(id); !found {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
	}

	c := h.carts.ForActor(r.Context(), actor)
	c.SetQuantity(id, *req.Quantity)
	h.carts.Persist(r.Context(), actor, c)
	writeJSON(w, http.StatusOK, h.toCartResponse(c.Lines()))
}

// RemoveItem handles DELETE /cart/items/{productID}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	c := h.carts.ForActor(r.Context(), actor)
	c.Remove(id)
	h.carts.Persist(r.Context(), actor, c)
	writeJSON(w, http.StatusOK, h.toCartResponse(c.Lines()))
}

// Clear handles DELETE /cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	c := h.carts.ForActor(r.Context(), actor)
	c.Clear()
	h.carts.Persist(r.Context(), actor, c)
	writeJSON(w, http.StatusOK, h.toCartResponse(c.Lines()))
}
