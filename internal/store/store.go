// Package store defines the domain model shared across the service and its
// Postgres-backed remote order store.
package store

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// Product is a catalog entry. The core only reads products; catalog
// management creates, edits and deactivates them.
type Product struct {
	ID          int64
	Name        string
	Price       decimal.Decimal
	Description *string
	Category    *string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ItemLine is one recorded order line: a product reference and a positive
// quantity.
type ItemLine struct {
	ProductID int64 `json:"id"`
	Quantity  int   `json:"quantity"`
}

// ItemLineSet maps product id to a positive quantity. Absence of a key means
// quantity zero; a quantity is never stored as zero or negative.
type ItemLineSet map[int64]int

// Lines returns the set as a slice sorted by product id. Persisted JSON and
// API responses use this form so identical sets always serialize identically.
func (s ItemLineSet) Lines() []ItemLine {
	lines := make([]ItemLine, 0, len(s))
	for id, qty := range s {
		lines = append(lines, ItemLine{ProductID: id, Quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines
}

// TotalQuantity sums all quantities in the set.
func (s ItemLineSet) TotalQuantity() int {
	total := 0
	for _, qty := range s {
		total += qty
	}
	return total
}

// Clone returns an independent copy of the set.
func (s ItemLineSet) Clone() ItemLineSet {
	c := make(ItemLineSet, len(s))
	for id, qty := range s {
		c[id] = qty
	}
	return c
}

// CustomerInfo is the customer record captured with an order.
type CustomerInfo struct {
	Name        string
	Email       *string
	Phone       string
	StaffName   string
	DepositPaid decimal.Decimal
}

// Order is a persisted order. Lines is a snapshot taken at submission time;
// later cart or catalog changes never alter it.
type Order struct {
	ID        uuid.UUID
	Code      string
	Customer  CustomerInfo
	Lines     ItemLineSet
	Subtotal  decimal.Decimal
	Balance   decimal.Decimal
	Complete  bool
	Notes     *string
	CreatedBy uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// User is a staff account that can authenticate and submit orders.
type User struct {
	ID           uuid.UUID
	FullName     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// ChangeKind tags a change event with the operation that produced it.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "INSERT"
	ChangeUpdate ChangeKind = "UPDATE"
	ChangeDelete ChangeKind = "DELETE"
)

// OrderChange is one row-level change to the orders table.
type OrderChange struct {
	Kind  ChangeKind
	Order Order
}

// ProductChange is one row-level change to the products table.
type ProductChange struct {
	Kind    ChangeKind
	Product Product
}
