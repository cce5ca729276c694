package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// orderCodeConstraint is the unique constraint backing order-code allocation.
// The constraint, not the client, is the uniqueness authority.
const orderCodeConstraint = "orders_order_code_key"

// Postgres is the shared remote store behind all staff terminals.
type Postgres struct {
	pool *pgxpool.Pool
}

// New creates a Postgres store on the given pool.
func New(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// IsCodeConflict reports whether err is a unique-constraint violation on the
// order code (pgconn error code 23505). Any other error, including unique
// violations on different constraints, is not retryable.
func IsCodeConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == orderCodeConstraint
	}
	return false
}

const orderColumns = `id, order_code, customer_name, customer_email, customer_phone,
	staff_name, deposit_paid, items, subtotal, balance, is_complete, notes,
	created_by, created_at, updated_at`

// InsertOrder persists a new order row. The caller supplies the id and code;
// created_at and updated_at are assigned by the database.
func (p *Postgres) InsertOrder(ctx context.Context, o Order) (Order, error) {
	items, err := json.Marshal(o.Lines.Lines())
	if err != nil {
		return Order{}, fmt.Errorf("marshal items: %w", err)
	}

	row := p.pool.QueryRow(ctx, `
		INSERT INTO orders (id, order_code, customer_name, customer_email, customer_phone,
			staff_name, deposit_paid, items, subtotal, balance, is_complete, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+orderColumns,
		o.ID, o.Code, o.Customer.Name, o.Customer.Email, o.Customer.Phone,
		o.Customer.StaffName, decimalToNumeric(o.Customer.DepositPaid), items,
		decimalToNumeric(o.Subtotal), decimalToNumeric(o.Balance), o.Complete,
		o.Notes, o.CreatedBy)
	return scanOrder(row)
}

// UpdateOrder rewrites an order's mutable fields (customer record, lines,
// money, completion flag, notes).
func (p *Postgres) UpdateOrder(ctx context.Context, o Order) (Order, error) {
	items, err := json.Marshal(o.Lines.Lines())
	if err != nil {
		return Order{}, fmt.Errorf("marshal items: %w", err)
	}

	row := p.pool.QueryRow(ctx, `
		UPDATE orders
		SET customer_name = $2, customer_email = $3, customer_phone = $4,
			staff_name = $5, deposit_paid = $6, items = $7, subtotal = $8,
			balance = $9, is_complete = $10, notes = $11, updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns,
		o.ID, o.Customer.Name, o.Customer.Email, o.Customer.Phone,
		o.Customer.StaffName, decimalToNumeric(o.Customer.DepositPaid), items,
		decimalToNumeric(o.Subtotal), decimalToNumeric(o.Balance), o.Complete, o.Notes)
	updated, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return updated, err
}

// SetOrderComplete flips the completion flag.
func (p *Postgres) SetOrderComplete(ctx context.Context, id uuid.UUID, complete bool) (Order, error) {
	row := p.pool.QueryRow(ctx, `
		UPDATE orders SET is_complete = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns, id, complete)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

// DeleteOrder removes an order row.
func (p *Postgres) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetOrder fetches one order by id.
func (p *Postgres) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

// ListOrders returns every order, newest first.
func (p *Postgres) ListOrders(ctx context.Context) ([]Order, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// --- Products ---

const productColumns = `id, name, price, description, category, active, created_at, updated_at`

// ListProducts returns catalog entries, optionally restricted to active ones,
// newest first.
func (p *Postgres) ListProducts(ctx context.Context, activeOnly bool) ([]Product, error) {
	q := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC`
	if activeOnly {
		q = `SELECT ` + productColumns + ` FROM products WHERE active ORDER BY created_at DESC`
	}
	rows, err := p.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		pr, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, pr)
	}
	return products, rows.Err()
}

// GetProduct fetches one product by id, active or not.
func (p *Postgres) GetProduct(ctx context.Context, id int64) (Product, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	pr, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return pr, err
}

// CreateProduct inserts a catalog entry.
func (p *Postgres) CreateProduct(ctx context.Context, name string, price decimal.Decimal, description, category *string) (Product, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO products (name, price, description, category, active)
		VALUES ($1, $2, $3, $4, true)
		RETURNING `+productColumns,
		name, decimalToNumeric(price), description, category)
	return scanProduct(row)
}

// UpdateProduct rewrites a catalog entry's fields, including the active flag.
func (p *Postgres) UpdateProduct(ctx context.Context, pr Product) (Product, error) {
	row := p.pool.QueryRow(ctx, `
		UPDATE products
		SET name = $2, price = $3, description = $4, category = $5, active = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns,
		pr.ID, pr.Name, decimalToNumeric(pr.Price), pr.Description, pr.Category, pr.Active)
	updated, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return updated, err
}

// DeactivateProduct soft-deletes a product. Orders referencing it keep their
// recorded lines; aggregation surfaces it as an orphaned reference.
func (p *Postgres) DeactivateProduct(ctx context.Context, id int64) error {
	tag, err := p.pool.Exec(ctx, `UPDATE products SET active = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Users ---

// GetUserByEmail fetches a staff account for login.
func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := p.pool.QueryRow(ctx, `
		SELECT id, full_name, email, password_hash, created_at
		FROM users WHERE email = $1`, email).
		Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

// GetUserByID fetches a staff account by id.
func (p *Postgres) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	var u User
	err := p.pool.QueryRow(ctx, `
		SELECT id, full_name, email, password_hash, created_at
		FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

// --- Row scanning ---

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o        Order
		deposit  pgtype.Numeric
		items    []byte
		subtotal pgtype.Numeric
		balance  pgtype.Numeric
	)
	err := row.Scan(&o.ID, &o.Code, &o.Customer.Name, &o.Customer.Email,
		&o.Customer.Phone, &o.Customer.StaffName, &deposit, &items,
		&subtotal, &balance, &o.Complete, &o.Notes, &o.CreatedBy,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	o.Customer.DepositPaid = numericToDecimal(deposit)
	o.Lines = ParseRawLines(items)
	o.Subtotal = numericToDecimal(subtotal)
	o.Balance = numericToDecimal(balance)
	return o, nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		pr    Product
		price pgtype.Numeric
	)
	err := row.Scan(&pr.ID, &pr.Name, &price, &pr.Description, &pr.Category,
		&pr.Active, &pr.CreatedAt, &pr.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	pr.Price = numericToDecimal(price)
	return pr, nil
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
