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

// ProductCursor marks the last row of a catalog page
type ProductCursor struct {
	CreatedAt time.Time
	ID        string
}

const productColumns = `id, sku, sku_lower, name, category, description, barcode, base_price, cost_price,
	margin, status, models, specifications, images, customer_prices`

// CreateProduct inserts a product, assigning an id when empty
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.SKULower = strings.ToLower(p.SKU)

	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES (:id, :sku, :sku_lower, :name, :category, :description, :barcode, :base_price, :cost_price,
			:margin, :status, :models, :specifications, :images, :customer_prices)
		RETURNING created_at, updated_at`

	rows, err := s.db.NamedQueryContext(ctx, query, p)
	if err != nil {
		return fmt.Errorf("failed to insert product %s: %w", p.SKU, classify(err))
	}
	defer rows.Close()
	if rows.Next() {
		return rows.Scan(&p.CreatedAt, &p.UpdatedAt)
	}
	return rows.Err()
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// UpdateProduct overwrites a product document
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	p.SKULower = strings.ToLower(p.SKU)
	query := `
		UPDATE products SET sku = :sku, sku_lower = :sku_lower, name = :name, category = :category,
			description = :description, barcode = :barcode, base_price = :base_price,
			cost_price = :cost_price, margin = :margin, status = :status, models = :models,
			specifications = :specifications, images = :images, customer_prices = :customer_prices,
			updated_at = NOW()
		WHERE id = :id`

	res, err := s.db.NamedExecContext(ctx, query, p)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", classify(err))
	}
	return expectOne(res, "product", p.ID)
}

// DeleteProduct removes a product
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return expectOne(res, "product", id)
}

// ListProductsPage returns up to limit products newest first, starting after
// the cursor when given
func (s *Store) ListProductsPage(ctx context.Context, after *ProductCursor, limit int) ([]models.Product, error) {
	products := []models.Product{}
	if after == nil {
		err := s.db.SelectContext(ctx, &products,
			"SELECT * FROM products ORDER BY created_at DESC, id DESC LIMIT $1", limit)
		return products, err
	}
	err := s.db.SelectContext(ctx, &products, `
		SELECT * FROM products
		WHERE (created_at, id) < ($1, $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3`, after.CreatedAt, after.ID, limit)
	return products, err
}

// SearchProductsBySKUPrefix returns products whose lower-cased SKU starts
// with prefix, in SKU order
func (s *Store) SearchProductsBySKUPrefix(ctx context.Context, prefix string, limit int) ([]models.Product, error) {
	products := []models.Product{}
	err := s.db.SelectContext(ctx, &products,
		`SELECT * FROM products WHERE sku_lower LIKE $1 ESCAPE '\' ORDER BY sku_lower LIMIT $2`,
		escapeLike(strings.ToLower(prefix))+"%", limit)
	return products, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// CountProducts returns the catalog size
func (s *Store) CountProducts(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM products")
	return n, err
}

// GetAllProducts returns the whole catalog
func (s *Store) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY created_at DESC, id DESC")
	return products, err
}

// GetProductsByIDs retrieves multiple products by IDs
func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM products WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	products := []models.Product{}
	err = s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

// ProductNameExists reports whether a product with exactly this name exists
func (s *Store) ProductNameExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM products WHERE name = $1)", name)
	return exists, err
}
