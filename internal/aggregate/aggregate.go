// Package aggregate derives per-product required quantities from the current
// order set: the "how much of each product must be prepared" view.
package aggregate

import (
	"fmt"
	"sort"

	"github.com/counterdesk/api/internal/store"
	"github.com/shopspring/decimal"
)

// Catalog resolves product ids to active catalog entries.
// Satisfied by *catalog.Cache.
type Catalog interface {
	ByID(id int64) (store.Product, bool)
}

// Row is one derived requirement line. Rows are computed on demand, never
// stored.
type Row struct {
	ProductID int64
	Name      string
	Price     decimal.Decimal
	Quantity  int
	Total     decimal.Decimal
	Active    bool
}

// Aggregate is a pure function of (orders, catalog, includeCompleted):
// identical inputs always yield identical rows in identical order.
//
// Completed orders are skipped unless includeCompleted is set. Lines with a
// non-positive quantity are ignored rather than trusted — upstream invariants
// should prevent them, but legacy rows must not break the view. Products that
// no longer resolve get a placeholder name, price zero, and sort before
// resolvable ones: orphaned demand is the row staff most need to see.
func Aggregate(orders []store.Order, catalog Catalog, includeCompleted bool) []Row {
	totals := make(map[int64]int)
	for _, o := range orders {
		if o.Complete && !includeCompleted {
			continue
		}
		for id, qty := range o.Lines {
			if qty <= 0 {
				continue
			}
			totals[id] += qty
		}
	}

	rows := make([]Row, 0, len(totals))
	for id, qty := range totals {
		row := Row{ProductID: id, Quantity: qty}
		if p, ok := catalog.ByID(id); ok {
			row.Name = p.Name
			row.Price = p.Price
			row.Total = p.Price.Mul(decimal.NewFromInt(int64(qty)))
			row.Active = true
		} else {
			row.Name = fmt.Sprintf("Item #%d (inactive)", id)
			row.Price = decimal.Zero
			row.Total = decimal.Zero
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Active != rows[j].Active {
			return !rows[i].Active
		}
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].ProductID < rows[j].ProductID
	})
	return rows
}
