// Package cart holds the order being composed at a staff terminal: one
// mutable line set per authenticated actor.
package cart

import (
	"sync"

	"github.com/counterdesk/api/internal/store"
)

// Store is the cart for a single session. It is the only writer of its line
// set; a mutex guards against concurrent requests from the same terminal.
type Store struct {
	mu    sync.Mutex
	lines store.ItemLineSet
}

// NewStore creates an empty cart.
func NewStore() *Store {
	return &Store{lines: make(store.ItemLineSet)}
}

// restore replaces the cart content with a recovered snapshot.
func (s *Store) restore(lines store.ItemLineSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = lines.Clone()
}

// Increase adds one to the product's quantity, inserting the line at
// quantity 1 if absent.
func (s *Store) Increase(productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines[productID]++
}

// Decrease subtracts one from the product's quantity, removing the line when
// it would drop to zero. No-op if the product is absent.
func (s *Store) Decrease(productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	qty, ok := s.lines[productID]
	if !ok {
		return
	}
	if qty <= 1 {
		delete(s.lines, productID)
		return
	}
	s.lines[productID] = qty - 1
}

// SetQuantity sets the product's quantity, removing the line when n <= 0.
func (s *Store) SetQuantity(productID int64, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 {
		delete(s.lines, productID)
		return
	}
	s.lines[productID] = n
}

// Remove deletes the line unconditionally.
func (s *Store) Remove(productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lines, productID)
}

// QuantityOf returns the product's quantity, zero if absent.
func (s *Store) QuantityOf(productID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines[productID]
}

// TotalQuantity sums all quantities. Always recomputed from the lines.
func (s *Store) TotalQuantity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines.TotalQuantity()
}

// IsEmpty reports whether the cart has no lines.
func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines) == 0
}

// Lines returns an independent copy of the current line set.
func (s *Store) Lines() store.ItemLineSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines.Clone()
}

// Clear empties the cart. Called after a successful submission.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = make(store.ItemLineSet)
}
