package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/stitchboard/stitchboard/pkg/models"
)

var (
	ErrNotFound         = errors.New("order not found")
	ErrDuplicateOrderID = errors.New("order id already exists")
)

const uniqueViolation = "23505"

// ListFilter narrows a listing server-side. Zero values disable each
// dimension; "all" disables the status filter.
type ListFilter struct {
	Search   string
	Status   string
	Date     string
	Customer string
}

// PostgresStore persists orders. Tags and attachments live in text
// array columns; the delivery date is stored as the raw calendar-day
// string it arrived as.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const orderColumns = `id, order_id, customer_id, customer_name, customer_phone,
		type, quantity, status, delivery_date, payment_status, notes,
		tags, attachments, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, o *models.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`
	_, err := s.db.ExecContext(ctx, query,
		o.ID, o.OrderID, nullString(o.Customer), o.CustomerName, o.CustomerPhone,
		o.Type, o.Quantity, o.Status, o.DeliveryDate, o.PaymentStatus, o.Notes,
		pq.Array(o.Tags), pq.Array(o.Attachments), o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateOrderID, o.OrderID)
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	o, err := scanOrder(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// List returns orders newest-updated first, which is the base ordering
// the client-side filter engine preserves.
func (s *PostgresStore) List(ctx context.Context, f ListFilter) ([]models.Order, error) {
	var conds []string
	var args []interface{}
	idx := 1

	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		conds = append(conds, fmt.Sprintf(
			"(order_id ILIKE $%d OR customer_name ILIKE $%d OR customer_phone ILIKE $%d)",
			idx, idx, idx))
		args = append(args, pattern)
		idx++
	}
	if f.Status != "" && f.Status != "all" {
		conds = append(conds, fmt.Sprintf("status=$%d", idx))
		args = append(args, f.Status)
		idx++
	}
	if f.Date != "" {
		conds = append(conds, fmt.Sprintf("delivery_date=$%d", idx))
		args = append(args, f.Date)
		idx++
	}
	if f.Customer != "" {
		conds = append(conds, fmt.Sprintf("customer_id=$%d", idx))
		args = append(args, f.Customer)
		idx++
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY updated_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// Update applies the non-nil patch fields and returns the updated row.
func (s *PostgresStore) Update(ctx context.Context, id string, patch models.OrderPatch) (*models.Order, error) {
	set, args := buildOrderUpdate(patch)
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE orders SET %s WHERE id=$%d RETURNING `+orderColumns,
		strings.Join(set, ", "), len(args))

	o, err := scanOrder(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrDuplicateOrderID
		}
		return nil, fmt.Errorf("update order: %w", err)
	}
	return o, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// buildOrderUpdate renders the SET clause for the provided patch
// fields. updated_at always bumps, so the clause is never empty.
func buildOrderUpdate(patch models.OrderPatch) ([]string, []interface{}) {
	var set []string
	var args []interface{}

	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s=$%d", column, len(args)))
	}

	if patch.OrderID != nil {
		add("order_id", *patch.OrderID)
	}
	if patch.Customer != nil {
		add("customer_id", nullString(*patch.Customer))
	}
	if patch.CustomerName != nil {
		add("customer_name", *patch.CustomerName)
	}
	if patch.CustomerPhone != nil {
		add("customer_phone", *patch.CustomerPhone)
	}
	if patch.Type != nil {
		add("type", *patch.Type)
	}
	if patch.Quantity != nil {
		add("quantity", *patch.Quantity)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.DeliveryDate != nil {
		add("delivery_date", *patch.DeliveryDate)
	}
	if patch.PaymentStatus != nil {
		add("payment_status", *patch.PaymentStatus)
	}
	if patch.Notes != nil {
		add("notes", *patch.Notes)
	}
	if patch.Tags != nil {
		add("tags", pq.Array(*patch.Tags))
	}
	if patch.Attachments != nil {
		add("attachments", pq.Array(*patch.Attachments))
	}
	add("updated_at", time.Now().UTC())

	return set, args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	o := &models.Order{}
	var customerID sql.NullString
	err := row.Scan(
		&o.ID, &o.OrderID, &customerID, &o.CustomerName, &o.CustomerPhone,
		&o.Type, &o.Quantity, &o.Status, &o.DeliveryDate, &o.PaymentStatus, &o.Notes,
		pq.Array(&o.Tags), pq.Array(&o.Attachments), &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Customer = customerID.String
	return o, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
