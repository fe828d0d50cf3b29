package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"furniture-erp/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// OrderFilter narrows order listings. Zero values disable a condition.
type OrderFilter struct {
	Statuses      []string
	CustomerID    string
	ScheduledFrom *time.Time
	ScheduledTo   *time.Time
	Limit         int
}

const orderColumns = `id, order_number, customer_id, customer_name, customer_trade_name, customer_phone,
	customer_email, payment_condition, representative, seller_id, seller_name, status, priority,
	products, subtotal, discount_percentage, discount_amount, volume_discount, volume_discount_amount,
	shipping_value, shipping_discount, total_amount, scheduled_date, delivery_date, notes,
	is_fragmented, fragments, production_stages, production_progress, idempotency_key`

// NextOrderNumber returns ORD-<year>-<4 digits> from the order sequence
func (s *Store) NextOrderNumber(ctx context.Context, year int) (string, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, "SELECT nextval('order_number_seq')"); err != nil {
		return "", fmt.Errorf("failed to allocate order number: %w", err)
	}
	return fmt.Sprintf("ORD-%d-%04d", year, n%10000), nil
}

// CreateOrder inserts an order, assigning an id when empty
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES (:id, :order_number, :customer_id, :customer_name, :customer_trade_name, :customer_phone,
			:customer_email, :payment_condition, :representative, :seller_id, :seller_name, :status,
			:priority, :products, :subtotal, :discount_percentage, :discount_amount, :volume_discount,
			:volume_discount_amount, :shipping_value, :shipping_discount, :total_amount,
			:scheduled_date, :delivery_date, :notes, :is_fragmented, :fragments, :production_stages,
			:production_progress, :idempotency_key)
		RETURNING created_at, updated_at`

	rows, err := s.db.NamedQueryContext(ctx, query, order)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", classify(err))
	}
	defer rows.Close()
	if rows.Next() {
		return rows.Scan(&order.CreatedAt, &order.UpdatedAt)
	}
	return rows.Err()
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByIdempotencyKey retrieves an order by idempotency key
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE idempotency_key = $1", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

const orderDetailAssignments = `customer_id = :customer_id, customer_name = :customer_name,
	customer_trade_name = :customer_trade_name, customer_phone = :customer_phone,
	customer_email = :customer_email, payment_condition = :payment_condition,
	representative = :representative, seller_id = :seller_id, seller_name = :seller_name,
	status = :status, priority = :priority, products = :products, subtotal = :subtotal,
	discount_percentage = :discount_percentage, discount_amount = :discount_amount,
	volume_discount = :volume_discount, volume_discount_amount = :volume_discount_amount,
	shipping_value = :shipping_value, shipping_discount = :shipping_discount,
	total_amount = :total_amount, scheduled_date = :scheduled_date,
	delivery_date = :delivery_date, notes = :notes, production_stages = :production_stages,
	production_progress = :production_progress`

// UpdateOrder writes every order field except the fragment array, which
// only UpdateOrderFragments and SaveOrder touch. Last write wins.
func (s *Store) UpdateOrder(ctx context.Context, order *models.Order) error {
	query := `UPDATE orders SET ` + orderDetailAssignments + `, updated_at = NOW() WHERE id = :id`

	res, err := s.db.NamedExecContext(ctx, query, order)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return expectOne(res, "order", order.ID)
}

// UpdateOrderFragments writes the fragment array and its flag
func (s *Store) UpdateOrderFragments(ctx context.Context, order *models.Order) error {
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE orders SET fragments = :fragments, is_fragmented = :is_fragmented, updated_at = NOW()
		WHERE id = :id`, order)
	if err != nil {
		return fmt.Errorf("failed to update order fragments: %w", err)
	}
	return expectOne(res, "order", order.ID)
}

// SaveOrder writes the order lines and fragments together. Callers hold the
// order lock.
func (s *Store) SaveOrder(ctx context.Context, order *models.Order) error {
	query := `UPDATE orders SET ` + orderDetailAssignments + `, is_fragmented = :is_fragmented,
		fragments = :fragments, updated_at = NOW() WHERE id = :id`

	res, err := s.db.NamedExecContext(ctx, query, order)
	if err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return expectOne(res, "order", order.ID)
}

// ListOrders returns orders matching the filter, newest first
func (s *Store) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	var (
		where []string
		args  []interface{}
	)
	if len(f.Statuses) > 0 {
		where = append(where, "status IN (?)")
		args = append(args, f.Statuses)
	}
	if f.CustomerID != "" {
		where = append(where, "customer_id = ?")
		args = append(args, f.CustomerID)
	}
	if f.ScheduledFrom != nil {
		where = append(where, "scheduled_date >= ?")
		args = append(args, *f.ScheduledFrom)
	}
	if f.ScheduledTo != nil {
		where = append(where, "scheduled_date < ?")
		args = append(args, *f.ScheduledTo)
	}

	query := "SELECT * FROM orders"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	orders := []models.Order{}
	err = s.db.SelectContext(ctx, &orders, query, args...)
	return orders, err
}

// ListOrdersForCalendar returns orders that have a scheduled date in
// [from, to) or at least one fragment. Fragment dates live inside the JSONB
// array and are bucketed by the caller.
func (s *Store) ListOrdersForCalendar(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders, `
		SELECT * FROM orders
		WHERE (scheduled_date >= $1 AND scheduled_date < $2)
			OR jsonb_array_length(fragments) > 0
		ORDER BY scheduled_date NULLS LAST, created_at`, from, to)
	return orders, err
}

// GetOrdersByCustomerID retrieves orders for a customer
func (s *Store) GetOrdersByCustomerID(ctx context.Context, customerID string) ([]models.Order, error) {
	return s.ListOrders(ctx, OrderFilter{CustomerID: customerID})
}
