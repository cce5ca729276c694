package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/counterdesk/api/internal/handler"
	"github.com/counterdesk/api/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type mockAuthStore struct {
	users map[string]store.User
}

func (m *mockAuthStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	u, ok := m.users[email]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *mockAuthStore) GetUserByID(_ context.Context, id uuid.UUID) (store.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return store.User{}, store.ErrNotFound
}

func setupAuthRouter(t *testing.T, password string) (*chi.Mux, store.User) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := store.User{
		ID:           uuid.New(),
		FullName:     "Sam Staff",
		Email:        "sam@example.com",
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}

	h := handler.NewAuthHandler(&mockAuthStore{users: map[string]store.User{user.Email: user}}, testJWTSecret)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r, user
}

func TestLogin_Success(t *testing.T) {
	router, user := setupAuthRouter(t, "hunter2")

	rr := doRequest(t, router, "POST", "/auth/login", map[string]string{
		"email":    user.Email,
		"password": "hunter2",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeObject(t, rr)
	if resp["access_token"] == "" || resp["refresh_token"] == "" {
		t.Errorf("expected both tokens in response, got %v", resp)
	}
	u := resp["user"].(map[string]interface{})
	if u["email"] != user.Email {
		t.Errorf("user email: got %v, want %s", u["email"], user.Email)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	router, user := setupAuthRouter(t, "hunter2")

	rr := doRequest(t, router, "POST", "/auth/login", map[string]string{
		"email":    user.Email,
		"password": "wrong",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestLogin_UnknownUserSameStatusAsWrongPassword(t *testing.T) {
	router, _ := setupAuthRouter(t, "hunter2")

	rr := doRequest(t, router, "POST", "/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "hunter2",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRefresh_IssuesNewPair(t *testing.T) {
	router, user := setupAuthRouter(t, "hunter2")

	rr := doRequest(t, router, "POST", "/auth/login", map[string]string{
		"email":    user.Email,
		"password": "hunter2",
	})
	refresh := decodeObject(t, rr)["refresh_token"].(string)

	rr = doRequest(t, router, "POST", "/auth/refresh", map[string]string{
		"refresh_token": refresh,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if decodeObject(t, rr)["access_token"] == "" {
		t.Errorf("expected fresh access token")
	}
}

func TestRefresh_RejectsGarbageToken(t *testing.T) {
	router, _ := setupAuthRouter(t, "hunter2")

	rr := doRequest(t, router, "POST", "/auth/refresh", map[string]string{
		"refresh_token": "not-a-token",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}
