package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Notification channels raised by the migration triggers on every
// insert/update/delete.
const (
	orderChannel   = "order_changes"
	productChannel = "product_changes"
)

// changePayload is the trigger's pg_notify body: the operation plus the
// affected row (NEW, or OLD for deletes) as row_to_json output.
type changePayload struct {
	Op  ChangeKind      `json:"op"`
	Row json.RawMessage `json:"row"`
}

// orderRow mirrors the orders table columns as rendered by row_to_json.
type orderRow struct {
	ID            uuid.UUID       `json:"id"`
	OrderCode     string          `json:"order_code"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail *string         `json:"customer_email"`
	CustomerPhone string          `json:"customer_phone"`
	StaffName     string          `json:"staff_name"`
	DepositPaid   decimal.Decimal `json:"deposit_paid"`
	Items         json.RawMessage `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Balance       decimal.Decimal `json:"balance"`
	IsComplete    bool            `json:"is_complete"`
	Notes         *string         `json:"notes"`
	CreatedBy     uuid.UUID       `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (r orderRow) toOrder() Order {
	return Order{
		ID:   r.ID,
		Code: r.OrderCode,
		Customer: CustomerInfo{
			Name:        r.CustomerName,
			Email:       r.CustomerEmail,
			Phone:       r.CustomerPhone,
			StaffName:   r.StaffName,
			DepositPaid: r.DepositPaid,
		},
		Lines:     ParseRawLines(r.Items),
		Subtotal:  r.Subtotal,
		Balance:   r.Balance,
		Complete:  r.IsComplete,
		Notes:     r.Notes,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// productRow mirrors the products table columns as rendered by row_to_json.
type productRow struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description *string         `json:"description"`
	Category    *string         `json:"category"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (r productRow) toProduct() Product {
	return Product{
		ID:          r.ID,
		Name:        r.Name,
		Price:       r.Price,
		Description: r.Description,
		Category:    r.Category,
		Active:      r.Active,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// ListenChanges holds a dedicated connection on LISTEN and dispatches every
// notification to the given handlers. It blocks until ctx is cancelled or the
// connection fails; the caller owns reconnection. A payload that fails to
// parse is logged and skipped, never fatal to the subscription.
func (p *Postgres) ListenChanges(ctx context.Context, onOrder func(OrderChange), onProduct func(ProductChange)) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer conn.Release()

	for _, channel := range []string{orderChannel, productChannel} {
		if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
			return fmt.Errorf("listen %s: %w", channel, err)
		}
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		var payload changePayload
		if err := json.Unmarshal([]byte(n.Payload), &payload); err != nil {
			log.Printf("ERROR: %s: bad change payload: %v", n.Channel, err)
			continue
		}

		switch n.Channel {
		case orderChannel:
			var row orderRow
			if err := json.Unmarshal(payload.Row, &row); err != nil {
				log.Printf("ERROR: %s: bad order row: %v", n.Channel, err)
				continue
			}
			onOrder(OrderChange{Kind: payload.Op, Order: row.toOrder()})
		case productChannel:
			var row productRow
			if err := json.Unmarshal(payload.Row, &row); err != nil {
				log.Printf("ERROR: %s: bad product row: %v", n.Channel, err)
				continue
			}
			onProduct(ProductChange{Kind: payload.Op, Product: row.toProduct()})
		}
	}
}
