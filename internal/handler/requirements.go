package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/counterdesk/api/internal/aggregate"
	"github.com/counterdesk/api/internal/cache"
	"github.com/shopspring/decimal"
)

// RequirementsHandler serves the derived preparation view: per-product
// quantities summed across the live order set.
type RequirementsHandler struct {
	orders  *cache.OrderCache
	catalog aggregate.Catalog
}

// NewRequirementsHandler creates a new RequirementsHandler.
func NewRequirementsHandler(orders *cache.OrderCache, catalog aggregate.Catalog) *RequirementsHandler {
	return &RequirementsHandler{orders: orders, catalog: catalog}
}

type requirementRowResponse struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
	Total     string `json:"total"`
	Active    bool   `json:"active"`
}

type requirementsResponse struct {
	Rows          []requirementRowResponse `json:"rows"`
	TotalLines    int                      `json:"total_lines"`
	TotalQuantity int                      `json:"total_quantity"`
	GrandTotal    string                   `json:"grand_total"`
}

// List handles GET /requirements. ?include_completed=true folds completed
// orders in; ?q= filters rows by product name or id. Grand totals cover the
// rows after filtering, so they always match what is on screen.
func (h *RequirementsHandler) List(w http.ResponseWriter, r *http.Request) {
	includeCompleted := r.URL.Query().Get("include_completed") == "true"
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))

	rows := aggregate.Aggregate(h.orders.Snapshot(), h.catalog, includeCompleted)

	resp := requirementsResponse{Rows: make([]requirementRowResponse, 0, len(rows))}
	grand := decimal.Zero
	for _, row := range rows {
		if q != "" && !matchesRow(row, q) {
			continue
		}
		resp.Rows = append(resp.Rows, requirementRowResponse{
			ProductID: row.ProductID,
			Name:      row.Name,
			Price:     money(row.Price),
			Quantity:  row.Quantity,
			Total:     money(row.Total),
			Active:    row.Active,
		})
		resp.TotalQuantity += row.Quantity
		grand = grand.Add(row.Total)
	}
	resp.TotalLines = len(resp.Rows)
	resp.GrandTotal = money(grand)

	writeJSON(w, http.StatusOK, resp)
}

func matchesRow(row aggregate.Row, q string) bool {
	return strings.Contains(strings.ToLower(row.Name), q) ||
		strings.Contains(strconv.FormatInt(row.ProductID, 10), q)
}
