package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/counterdesk/api/internal/handler"
	"github.com/counterdesk/api/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// --- Mock store ---

type mockProductStore struct {
	products map[int64]store.Product
	nextID   int64
	failWith error
}

func newMockProductStore() *mockProductStore {
	return &mockProductStore{products: make(map[int64]store.Product), nextID: 1}
}

func (m *mockProductStore) ListProducts(_ context.Context, activeOnly bool) ([]store.Product, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	var result []store.Product
	for _, p := range m.products {
		if activeOnly && !p.Active {
			continue
		}
		result = append(result, p)
	}
	return result, nil
}

func (m *mockProductStore) GetProduct(_ context.Context, id int64) (store.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return store.Product{}, store.ErrNotFound
	}
	return p, nil
}

func (m *mockProductStore) CreateProduct(_ context.Context, name string, price decimal.Decimal, description, category *string) (store.Product, error) {
	now := time.Now()
	p := store.Product{
		ID: m.nextID, Name: name, Price: price,
		Description: description, Category: category,
		Active: true, CreatedAt: now, UpdatedAt: now,
	}
	m.nextID++
	m.products[p.ID] = p
	return p, nil
}

func (m *mockProductStore) UpdateProduct(_ context.Context, p store.Product) (store.Product, error) {
	current, ok := m.products[p.ID]
	if !ok {
		return store.Product{}, store.ErrNotFound
	}
	p.CreatedAt = current.CreatedAt
	p.UpdatedAt = time.Now()
	m.products[p.ID] = p
	return p, nil
}

func (m *mockProductStore) DeactivateProduct(_ context.Context, id int64) error {
	p, ok := m.products[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Active = false
	m.products[id] = p
	return nil
}

// --- Helpers ---

func setupProductRouter(store *mockProductStore) *chi.Mux {
	h := handler.NewProductHandler(store)
	r := chi.NewRouter()
	r.Route("/products", h.RegisterRoutes)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeObject(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func decodeList(t *testing.T, rr *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var resp []map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func seedProduct(m *mockProductStore, id int64, name, price string, active bool) {
	now := time.Now()
	m.products[id] = store.Product{
		ID: id, Name: name, Price: decimal.RequireFromString(price),
		Active: active, CreatedAt: now, UpdatedAt: now,
	}
	if id >= m.nextID {
		m.nextID = id + 1
	}
}

// --- Tests ---

func TestProductList_ExcludesInactiveByDefault(t *testing.T) {
	mock := newMockProductStore()
	seedProduct(mock, 1, "Croissant", "4.50", true)
	seedProduct(mock, 2, "Old Cake", "12.00", false)

	router := setupProductRouter(mock)
	rr := doRequest(t, router, "GET", "/products", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeList(t, rr)
	if len(resp) != 1 {
		t.Fatalf("expected 1 product, got %d", len(resp))
	}
	if resp[0]["name"] != "Croissant" {
		t.Errorf("expected Croissant, got %v", resp[0]["name"])
	}
}

func TestProductList_AllIncludesInactive(t *testing.T) {
	mock := newMockProductStore()
	seedProduct(mock, 1, "Croissant", "4.50", true)
	seedProduct(mock, 2, "Old Cake", "12.00", false)

	router := setupProductRouter(mock)
	rr := doRequest(t, router, "GET", "/products?all=true", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if resp := decodeList(t, rr); len(resp) != 2 {
		t.Errorf("expected 2 products, got %d", len(resp))
	}
}

func TestProductCreate(t *testing.T) {
	mock := newMockProductStore()
	router := setupProductRouter(mock)

	rr := doRequest(t, router, "POST", "/products", map[string]interface{}{
		"name":     "Eclair",
		"price":    "3.75",
		"category": "pastry",
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	resp := decodeObject(t, rr)
	if resp["name"] != "Eclair" {
		t.Errorf("name: got %v, want Eclair", resp["name"])
	}
	if resp["price"] != "3.75" {
		t.Errorf("price: got %v, want 3.75", resp["price"])
	}
	if resp["active"] != true {
		t.Errorf("expected new product to be active")
	}
}

func TestProductCreate_RejectsMissingName(t *testing.T) {
	router := setupProductRouter(newMockProductStore())

	rr := doRequest(t, router, "POST", "/products", map[string]interface{}{"price": "3.75"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestProductCreate_RejectsNegativePrice(t *testing.T) {
	router := setupProductRouter(newMockProductStore())

	rr := doRequest(t, router, "POST", "/products", map[string]interface{}{
		"name":  "Eclair",
		"price": "-1.00",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestProductUpdate_NotFound(t *testing.T) {
	router := setupProductRouter(newMockProductStore())

	rr := doRequest(t, router, "PUT", "/products/42", map[string]interface{}{
		"name":  "Ghost",
		"price": "1.00",
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestProductDelete_SoftDeletes(t *testing.T) {
	mock := newMockProductStore()
	seedProduct(mock, 1, "Croissant", "4.50", true)

	router := setupProductRouter(mock)
	rr := doRequest(t, router, "DELETE", "/products/1", nil)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNoContent)
	}
	if mock.products[1].Active {
		t.Errorf("expected product to be deactivated, not removed")
	}
	if _, ok := mock.products[1]; !ok {
		t.Errorf("expected product row to survive soft delete")
	}
}
