// Package service implements the order lifecycle: validated submission with
// collision-retried code minting, and consistent recomputation on edit.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/counterdesk/api/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxCodeAttempts bounds the insert retry loop. Collisions are rare enough
// (per-minute time fragment plus a 1.6M random space) that hitting the bound
// means something is wrong beyond bad luck.
const maxCodeAttempts = 5

// Errors returned by the submission service. Validation and authorization
// failures are reported before any write attempt.
var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrMissingName        = errors.New("customer name is required")
	ErrMissingPhone       = errors.New("customer phone is required")
	ErrMissingStaffName   = errors.New("staff name is required")
	ErrNoActor            = errors.New("no authenticated actor")
	ErrCodeRetryExhausted = errors.New("could not allocate a unique order code")
)

// IsValidationError reports whether err is the user's to correct, as opposed
// to a transient system failure worth retrying.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrMissingName) ||
		errors.Is(err, ErrMissingPhone) ||
		errors.Is(err, ErrMissingStaffName)
}

// OrderWriter is the write side of the remote order store.
// Satisfied by *store.Postgres.
type OrderWriter interface {
	InsertOrder(ctx context.Context, o store.Order) (store.Order, error)
	UpdateOrder(ctx context.Context, o store.Order) (store.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (store.Order, error)
}

// ProductResolver resolves product ids against the current active catalog.
// Satisfied by *catalog.Cache.
type ProductResolver interface {
	ByID(id int64) (store.Product, bool)
}

// CodeGenerator mints candidate order codes. Satisfied by
// *ordercode.Generator.
type CodeGenerator interface {
	Next() string
}

// Cart is the submitting session's cart. Satisfied by *cart.Store.
type Cart interface {
	Lines() store.ItemLineSet
	Clear()
}

// Submission validates carts and creates order rows.
type Submission struct {
	orders  OrderWriter
	catalog ProductResolver
	codes   CodeGenerator
}

// NewSubmission creates a Submission service.
func NewSubmission(orders OrderWriter, catalog ProductResolver, codes CodeGenerator) *Submission {
	return &Submission{orders: orders, catalog: catalog, codes: codes}
}

// Submit turns the cart into a persisted order attributed to actor.
//
// The cart's lines are snapshotted before the first attempt; the stored
// order never aliases the live cart. Lines whose product cannot be resolved
// contribute zero to the subtotal but are recorded with their quantity, so
// the order preserves intent even if a product is deactivated mid-session.
// Inserts retry with a fresh code only on a code-uniqueness violation; any
// other failure aborts immediately with cart and cache untouched. The cart
// is cleared only after the row is durably created.
func (s *Submission) Submit(ctx context.Context, c Cart, customer store.CustomerInfo, notes string, actor uuid.UUID) (store.Order, error) {
	lines := c.Lines()
	if len(lines) == 0 {
		return store.Order{}, ErrEmptyCart
	}
	if customer.Name == "" {
		return store.Order{}, ErrMissingName
	}
	if customer.Phone == "" {
		return store.Order{}, ErrMissingPhone
	}
	if customer.StaffName == "" {
		return store.Order{}, ErrMissingStaffName
	}
	if actor == uuid.Nil {
		return store.Order{}, ErrNoActor
	}

	subtotal := s.subtotal(lines)
	if customer.DepositPaid.IsNegative() {
		customer.DepositPaid = decimal.Zero
	}

	order := store.Order{
		Customer:  customer,
		Lines:     lines,
		Subtotal:  subtotal,
		Balance:   balance(subtotal, customer.DepositPaid),
		CreatedBy: actor,
	}
	if notes != "" {
		order.Notes = &notes
	}

	var lastErr error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		order.ID = uuid.New()
		order.Code = s.codes.Next()

		created, err := s.orders.InsertOrder(ctx, order)
		if err == nil {
			c.Clear()
			return created, nil
		}
		if store.IsCodeConflict(err) {
			lastErr = err
			continue
		}
		return store.Order{}, err
	}
	return store.Order{}, fmt.Errorf("%w after %d attempts: %w", ErrCodeRetryExhausted, maxCodeAttempts, lastErr)
}

// subtotal prices the lines against the current catalog.
func (s *Submission) subtotal(lines store.ItemLineSet) decimal.Decimal {
	total := decimal.Zero
	for id, qty := range lines {
		p, ok := s.catalog.ByID(id)
		if !ok {
			continue
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(qty))))
	}
	return total
}

// balance is what remains to pay; it never goes negative.
func balance(subtotal, deposit decimal.Decimal) decimal.Decimal {
	b := subtotal.Sub(deposit)
	if b.IsNegative() {
		return decimal.Zero
	}
	return b
}
