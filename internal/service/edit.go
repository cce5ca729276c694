package service

import (
	"context"

	"github.com/counterdesk/api/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderEdit is the mutable slice of an order: customer record, lines, notes.
// The completion flag is toggled separately.
type OrderEdit struct {
	Customer store.CustomerInfo
	Lines    store.ItemLineSet
	Notes    *string
}

// Edit rewrites an order. The subtotal is recomputed from the edited lines
// at current catalog prices, the deposit is clamped to zero, and the balance
// follows — it can never be left stale or negative after an edit.
func (s *Submission) Edit(ctx context.Context, id uuid.UUID, edit OrderEdit) (store.Order, error) {
	if edit.Customer.Name == "" {
		return store.Order{}, ErrMissingName
	}
	if edit.Customer.Phone == "" {
		return store.Order{}, ErrMissingPhone
	}
	if edit.Customer.StaffName == "" {
		return store.Order{}, ErrMissingStaffName
	}

	current, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return store.Order{}, err
	}

	if edit.Customer.DepositPaid.IsNegative() {
		edit.Customer.DepositPaid = decimal.Zero
	}

	subtotal := s.subtotal(edit.Lines)
	current.Customer = edit.Customer
	current.Lines = edit.Lines.Clone()
	current.Subtotal = subtotal
	current.Balance = balance(subtotal, edit.Customer.DepositPaid)
	current.Notes = edit.Notes

	return s.orders.UpdateOrder(ctx, current)
}
