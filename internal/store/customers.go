package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"furniture-erp/internal/models"

	"github.com/google/uuid"
)

// CreateCustomer inserts a customer, assigning an id when empty
func (s *Store) CreateCustomer(ctx context.Context, c *models.Customer) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	query := `
		INSERT INTO customers (id, name, trade_name, phone, email, type, default_discount,
			payment_condition, representative)
		VALUES (:id, :name, :trade_name, :phone, :email, :type, :default_discount,
			:payment_condition, :representative)
		RETURNING created_at, updated_at`

	rows, err := s.db.NamedQueryContext(ctx, query, c)
	if err != nil {
		return fmt.Errorf("failed to insert customer: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		return rows.Scan(&c.CreatedAt, &c.UpdatedAt)
	}
	return rows.Err()
}

// GetCustomerByID retrieves a customer by ID
func (s *Store) GetCustomerByID(ctx context.Context, id string) (*models.Customer, error) {
	var c models.Customer
	err := s.db.GetContext(ctx, &c, "SELECT * FROM customers WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("customer %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindCustomerByName matches a customer name case-insensitively. It returns
// nil when there is no match.
func (s *Store) FindCustomerByName(ctx context.Context, name string) (*models.Customer, error) {
	var c models.Customer
	err := s.db.GetContext(ctx, &c,
		"SELECT * FROM customers WHERE LOWER(name) = LOWER($1) ORDER BY created_at LIMIT 1", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCustomers returns customers ordered by name, optionally filtered by a
// name or trade name substring
func (s *Store) ListCustomers(ctx context.Context, search string) ([]models.Customer, error) {
	customers := []models.Customer{}
	if search == "" {
		err := s.db.SelectContext(ctx, &customers, "SELECT * FROM customers ORDER BY name")
		return customers, err
	}
	pattern := "%" + search + "%"
	err := s.db.SelectContext(ctx, &customers,
		"SELECT * FROM customers WHERE name ILIKE $1 OR trade_name ILIKE $1 ORDER BY name", pattern)
	return customers, err
}

// UpdateCustomer overwrites every editable field
func (s *Store) UpdateCustomer(ctx context.Context, c *models.Customer) error {
	query := `
		UPDATE customers SET name = :name, trade_name = :trade_name, phone = :phone, email = :email,
			type = :type, default_discount = :default_discount, payment_condition = :payment_condition,
			representative = :representative, updated_at = NOW()
		WHERE id = :id`

	res, err := s.db.NamedExecContext(ctx, query, c)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	return expectOne(res, "customer", c.ID)
}

func expectOne(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
