package service

import (
	"context"
	"time"

	"furniture-erp/internal/models"
	"furniture-erp/internal/store"
)

// The services depend on these narrow views of the store, Redis and Kafka
// clients so tests can swap in memory fakes.

// CustomerStore persists customers
type CustomerStore interface {
	CreateCustomer(ctx context.Context, c *models.Customer) error
	GetCustomerByID(ctx context.Context, id string) (*models.Customer, error)
	FindCustomerByName(ctx context.Context, name string) (*models.Customer, error)
	ListCustomers(ctx context.Context, search string) ([]models.Customer, error)
	UpdateCustomer(ctx context.Context, c *models.Customer) error
}

// OrderStore persists orders
type OrderStore interface {
	NextOrderNumber(ctx context.Context, year int) (string, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	UpdateOrder(ctx context.Context, order *models.Order) error
	UpdateOrderFragments(ctx context.Context, order *models.Order) error
	SaveOrder(ctx context.Context, order *models.Order) error
	ListOrders(ctx context.Context, f store.OrderFilter) ([]models.Order, error)
	ListOrdersForCalendar(ctx context.Context, from, to time.Time) ([]models.Order, error)
	GetOrdersByCustomerID(ctx context.Context, customerID string) ([]models.Order, error)
}

// ProductStore persists the catalog
type ProductStore interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id string) error
	ListProductsPage(ctx context.Context, after *store.ProductCursor, limit int) ([]models.Product, error)
	SearchProductsBySKUPrefix(ctx context.Context, prefix string, limit int) ([]models.Product, error)
	CountProducts(ctx context.Context) (int, error)
	GetAllProducts(ctx context.Context) ([]models.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error)
	ProductNameExists(ctx context.Context, name string) (bool, error)
}

// Cache is the Redis surface used for catalog pages and idempotency keys
type Cache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
	CatalogVersion(ctx context.Context) (int64, error)
	BumpCatalogVersion(ctx context.Context) (int64, error)
	SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	GetIdempotencyKey(ctx context.Context, key string) (string, bool, error)
}

// Locker serializes order writes across replicas
type Locker interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (string, error)
	ExtendLock(ctx context.Context, lockKey, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey, token string) error
}

// Publisher emits change events
type Publisher interface {
	PublishOrderChanged(ctx context.Context, eventType string, order *models.Order, action string) error
	PublishProductChanged(ctx context.Context, product *models.Product, action string) error
	PublishProductsImported(ctx context.Context, event *models.ProductsImportedEvent) error
}
