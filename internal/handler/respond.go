package handler

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// money formats a currency amount with two decimal places for responses.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// parseMoney parses a currency amount from a request. Empty means zero.
func parseMoney(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// optional maps an empty string to a nil pointer for nullable columns.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
