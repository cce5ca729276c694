package service

import (
	"context"
	"errors"
	"testing"

	"github.com/counterdesk/api/internal/cart"
	"github.com/counterdesk/api/internal/store"
	"github.com/google/uuid"
)

func submittedOrder(t *testing.T, svc *Submission) store.Order {
	t.Helper()
	o, err := svc.Submit(context.Background(), filledCart(map[int64]int{1: 2, 2: 1}), testCustomer(), "", uuid.New())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return o
}

func TestEditRecomputesMoney(t *testing.T) {
	orders := newFakeOrderStore()
	svc := NewSubmission(orders, testCatalog(), &fakeCodes{})
	o := submittedOrder(t, svc)

	customer := testCustomer()
	customer.DepositPaid = price("20.00")
	updated, err := svc.Edit(context.Background(), o.ID, OrderEdit{
		Customer: customer,
		Lines:    store.ItemLineSet{1: 1}, // was {1:2, 2:1}
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}

	if !updated.Subtotal.Equal(price("10.00")) {
		t.Errorf("subtotal: got %s, want 10.00", updated.Subtotal)
	}
	// Deposit exceeds the new subtotal; balance clamps to zero.
	if !updated.Balance.IsZero() {
		t.Errorf("balance: got %s, want 0", updated.Balance)
	}
	if updated.Code != o.Code {
		t.Errorf("order code changed on edit: %q -> %q", o.Code, updated.Code)
	}
}

func TestEditValidatesCustomer(t *testing.T) {
	orders := newFakeOrderStore()
	svc := NewSubmission(orders, testCatalog(), &fakeCodes{})
	o := submittedOrder(t, svc)

	customer := testCustomer()
	customer.Phone = ""
	_, err := svc.Edit(context.Background(), o.ID, OrderEdit{Customer: customer, Lines: o.Lines})

	if !errors.Is(err, ErrMissingPhone) {
		t.Fatalf("error: got %v, want ErrMissingPhone", err)
	}
	stored, _ := orders.GetOrder(context.Background(), o.ID)
	if !stored.Subtotal.Equal(o.Subtotal) {
		t.Error("stored order changed despite validation failure")
	}
}

func TestEditUnknownOrder(t *testing.T) {
	svc := NewSubmission(newFakeOrderStore(), testCatalog(), &fakeCodes{})

	_, err := svc.Edit(context.Background(), uuid.New(), OrderEdit{Customer: testCustomer(), Lines: store.ItemLineSet{1: 1}})

	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("error: got %v, want ErrNotFound", err)
	}
}

func TestEditClampsDeposit(t *testing.T) {
	orders := newFakeOrderStore()
	svc := NewSubmission(orders, testCatalog(), &fakeCodes{})
	o := submittedOrder(t, svc)

	customer := testCustomer()
	customer.DepositPaid = price("-1.00")
	updated, err := svc.Edit(context.Background(), o.ID, OrderEdit{Customer: customer, Lines: o.Lines})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}

	if !updated.Customer.DepositPaid.IsZero() {
		t.Errorf("deposit: got %s, want 0", updated.Customer.DepositPaid)
	}
	if !updated.Balance.Equal(updated.Subtotal) {
		t.Errorf("balance: got %s, want %s", updated.Balance, updated.Subtotal)
	}
}

// Edits must not alias the caller's line set.
func TestEditCopiesLines(t *testing.T) {
	orders := newFakeOrderStore()
	svc := NewSubmission(orders, testCatalog(), &fakeCodes{})
	o := submittedOrder(t, svc)

	lines := store.ItemLineSet{1: 3}
	if _, err := svc.Edit(context.Background(), o.ID, OrderEdit{Customer: testCustomer(), Lines: lines}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	lines[1] = 99

	stored, _ := orders.GetOrder(context.Background(), o.ID)
	if got := stored.Lines[1]; got != 3 {
		t.Errorf("stored quantity: got %d, want 3", got)
	}
}

// cart.Store must satisfy the service's Cart dependency.
var _ Cart = (*cart.Store)(nil)
