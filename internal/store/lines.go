package store

import (
	"encoding/json"
	"math"
)

// rawLine tolerates the field spellings that have appeared in stored order
// rows over time. Quantities arrive as JSON numbers and may be fractional in
// malformed legacy rows, so they are decoded as float64 and validated.
type rawLine struct {
	ID        *int64   `json:"id"`
	ProductID *int64   `json:"product_id"`
	ProductId *int64   `json:"productId"`
	Quantity  *float64 `json:"quantity"`
	Qty       *float64 `json:"qty"`
}

func (l rawLine) productID() (int64, bool) {
	switch {
	case l.ID != nil:
		return *l.ID, true
	case l.ProductID != nil:
		return *l.ProductID, true
	case l.ProductId != nil:
		return *l.ProductId, true
	}
	return 0, false
}

func (l rawLine) quantity() (float64, bool) {
	switch {
	case l.Quantity != nil:
		return *l.Quantity, true
	case l.Qty != nil:
		return *l.Qty, true
	}
	return 0, false
}

// ParseRawLines decodes a persisted line-item payload into an ItemLineSet.
// Every line that fails the (positive integer id, positive integer quantity)
// invariant is dropped; duplicate product ids merge by summing quantities.
// A nil, empty or non-array payload yields an empty set rather than an error,
// so malformed legacy rows never break reads.
func ParseRawLines(data []byte) ItemLineSet {
	set := make(ItemLineSet)
	if len(data) == 0 {
		return set
	}

	var raw []rawLine
	if err := json.Unmarshal(data, &raw); err != nil {
		return set
	}

	for _, l := range raw {
		id, ok := l.productID()
		if !ok || id <= 0 {
			continue
		}
		q, ok := l.quantity()
		if !ok || math.IsNaN(q) || math.IsInf(q, 0) {
			continue
		}
		if q <= 0 || q != math.Trunc(q) {
			continue
		}
		set[id] += int(q)
	}
	return set
}
