package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/counterdesk/api/internal/cache"
	"github.com/counterdesk/api/internal/cart"
	"github.com/counterdesk/api/internal/middleware"
	"github.com/counterdesk/api/internal/service"
	"github.com/counterdesk/api/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// OrderStore defines the database methods needed by order handlers beyond
// what the submission service covers. Satisfied by *store.Postgres.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (store.Order, error)
	SetOrderComplete(ctx context.Context, id uuid.UUID, complete bool) (store.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
}

// OrderHandler handles order lifecycle endpoints. Reads come from the live
// order cache; writes go through the store and flow back via the change feed.
type OrderHandler struct {
	store  OrderStore
	svc    *service.Submission
	orders *cache.OrderCache
	carts  *cart.Registry
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(store OrderStore, svc *service.Submission, orders *cache.OrderCache, carts *cart.Registry) *OrderHandler {
	return &OrderHandler{store: store, svc: svc, orders: orders, carts: carts}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Submit)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Edit)
	r.Patch("/{id}/complete", h.SetComplete)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type customerRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	StaffName   string `json:"staff_name"`
	DepositPaid string `json:"deposit_paid"`
}

type submitOrderRequest struct {
	Customer customerRequest `json:"customer"`
	Notes    string          `json:"notes"`
}

type editOrderRequest struct {
	Customer customerRequest  `json:"customer"`
	Lines    []store.ItemLine `json:"lines"`
	Notes    string           `json:"notes"`
}

type customerResponse struct {
	Name        string  `json:"name"`
	Email       *string `json:"email"`
	Phone       string  `json:"phone"`
	StaffName   string  `json:"staff_name"`
	DepositPaid string  `json:"deposit_paid"`
}

type orderResponse struct {
	ID        uuid.UUID        `json:"id"`
	Code      string           `json:"code"`
	Customer  customerResponse `json:"customer"`
	Lines     []store.ItemLine `json:"lines"`
	Subtotal  string           `json:"subtotal"`
	Balance   string           `json:"balance"`
	Complete  bool             `json:"complete"`
	Notes     *string          `json:"notes"`
	CreatedBy uuid.UUID        `json:"created_by"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func toOrderResponse(o store.Order) orderResponse {
	return orderResponse{
		ID:   o.ID,
		Code: o.Code,
		Customer: customerResponse{
			Name:        o.Customer.Name,
			Email:       o.Customer.Email,
			Phone:       o.Customer.Phone,
			StaffName:   o.Customer.StaffName,
			DepositPaid: money(o.Customer.DepositPaid),
		},
		Lines:     o.Lines.Lines(),
		Subtotal:  money(o.Subtotal),
		Balance:   money(o.Balance),
		Complete:  o.Complete,
		Notes:     o.Notes,
		CreatedBy: o.CreatedBy,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func toCustomerInfo(req customerRequest) (store.CustomerInfo, error) {
	deposit, err := parseMoney(req.DepositPaid)
	if err != nil {
		return store.CustomerInfo{}, err
	}
	return store.CustomerInfo{
		Name:        strings.TrimSpace(req.Name),
		Email:       optional(strings.TrimSpace(req.Email)),
		Phone:       strings.TrimSpace(req.Phone),
		StaffName:   strings.TrimSpace(req.StaffName),
		DepositPaid: deposit,
	}, nil
}

// --- Handlers ---

// Submit handles POST /orders: the authenticated actor's cart becomes an
// order. On success the cart snapshot is discarded along with the cart.
func (h *OrderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req submitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	customer, err := toCustomerInfo(req.Customer)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "deposit_paid must be a valid amount"})
		return
	}

	c := h.carts.ForActor(r.Context(), claims.UserID)
	created, err := h.svc.Submit(r.Context(), c, customer, strings.TrimSpace(req.Notes), claims.UserID)
	if err != nil {
		switch {
		case service.IsValidationError(err):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrNoActor):
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		case errors.Is(err, service.ErrCodeRetryExhausted):
			log.Printf("ERROR: submit order: %v", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "could not allocate an order code, try again"})
		default:
			log.Printf("ERROR: submit order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	h.carts.Discard(r.Context(), claims.UserID)
	writeJSON(w, http.StatusCreated, toOrderResponse(created))
}

// List handles GET /orders. ?view=incomplete|complete|all filters on the
// completion flag (default all); ?q= matches code, customer name or phone.
// Results come from the live cache, newest first.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	view := r.URL.Query().Get("view")
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))

	resp := make([]orderResponse, 0)
	for _, o := range h.orders.Snapshot() {
		switch view {
		case "incomplete":
			if o.Complete {
				continue
			}
		case "complete":
			if !o.Complete {
				continue
			}
		}
		if q != "" && !matchesOrder(o, q) {
			continue
		}
		resp = append(resp, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

func matchesOrder(o store.Order, q string) bool {
	return strings.Contains(strings.ToLower(o.Code), q) ||
		strings.Contains(strings.ToLower(o.Customer.Name), q) ||
		strings.Contains(strings.ToLower(o.Customer.Phone), q)
}

// Get handles GET /orders/{id}. The cache answers first; a miss falls
// through to the store so a freshly started instance still serves reads.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	if o, ok := h.orders.Get(id); ok {
		writeJSON(w, http.StatusOK, toOrderResponse(o))
		return
	}

	o, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// Edit handles PUT /orders/{id}. Totals are recomputed server-side from the
// edited lines at current catalog prices.
func (h *OrderHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req editOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	customer, err := toCustomerInfo(req.Customer)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "deposit_paid must be a valid amount"})
		return
	}

	lines := make(store.ItemLineSet)
	for _, line := range req.Lines {
		if line.ProductID <= 0 || line.Quantity <= 0 {
			continue
		}
		lines[line.ProductID] += line.Quantity
	}

	edit := service.OrderEdit{Customer: customer, Lines: lines}
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		edit.Notes = &notes
	}

	updated, err := h.svc.Edit(r.Context(), id, edit)
	if err != nil {
		switch {
		case service.IsValidationError(err):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, store.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		default:
			log.Printf("ERROR: edit order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(updated))
}

// SetComplete handles PATCH /orders/{id}/complete.
func (h *OrderHandler) SetComplete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req struct {
		Complete *bool `json:"complete"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Complete == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "complete must be a boolean"})
		return
	}

	o, err := h.store.SetOrderComplete(r.Context(), id, *req.Complete)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: set order complete: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// Delete handles DELETE /orders/{id}.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	if err := h.store.DeleteOrder(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: delete order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
