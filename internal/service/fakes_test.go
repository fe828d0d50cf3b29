package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"furniture-erp/internal/archive"
	"furniture-erp/internal/models"
	"furniture-erp/internal/store"

	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for *store.Store
type memStore struct {
	mu        sync.Mutex
	customers map[string]models.Customer
	orders    map[string]models.Order
	products  map[string]models.Product
	seq       int
	clock     time.Time
	failWrite error
	// beforeWrite runs ahead of every order update, outside the store mutex
	beforeWrite func()
}

func newMemStore() *memStore {
	return &memStore{
		customers: map[string]models.Customer{},
		orders:    map[string]models.Order{},
		products:  map[string]models.Product{},
		clock:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) CreateCustomer(_ context.Context, c *models.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = m.tick()
	c.UpdatedAt = c.CreatedAt
	m.customers[c.ID] = *c
	return nil
}

func (m *memStore) GetCustomerByID(_ context.Context, id string) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, fmt.Errorf("customer %s: %w", id, store.ErrNotFound)
	}
	return &c, nil
}

func (m *memStore) FindCustomerByName(_ context.Context, name string) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.customers {
		if strings.EqualFold(c.Name, name) {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListCustomers(_ context.Context, search string) ([]models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Customer{}
	for _, c := range m.customers {
		if search == "" || strings.Contains(strings.ToLower(c.Name), strings.ToLower(search)) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) UpdateCustomer(_ context.Context, c *models.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customers[c.ID]; !ok {
		return fmt.Errorf("customer %s: %w", c.ID, store.ErrNotFound)
	}
	m.customers[c.ID] = *c
	return nil
}

func (m *memStore) NextOrderNumber(_ context.Context, year int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return fmt.Sprintf("ORD-%d-%04d", year, m.seq), nil
}

func (m *memStore) CreateOrder(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return m.failWrite
	}
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	o.CreatedAt = m.tick()
	o.UpdatedAt = o.CreatedAt
	m.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (m *memStore) GetOrderByID(_ context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, store.ErrNotFound)
	}
	o = cloneOrder(o)
	return &o, nil
}

func (m *memStore) GetOrderByIdempotencyKey(_ context.Context, key string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.IdempotencyKey == key {
			o = cloneOrder(o)
			return &o, nil
		}
	}
	return nil, nil
}

// writeOrder stores o, merging in the columns the write does not own
func (m *memStore) writeOrder(o *models.Order, merge func(stored models.Order, o *models.Order) models.Order) error {
	if m.beforeWrite != nil {
		m.beforeWrite()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return m.failWrite
	}
	stored, ok := m.orders[o.ID]
	if !ok {
		return fmt.Errorf("order %s: %w", o.ID, store.ErrNotFound)
	}
	o.UpdatedAt = m.tick()
	next := merge(stored, o)
	next.UpdatedAt = o.UpdatedAt
	m.orders[o.ID] = cloneOrder(next)
	return nil
}

func (m *memStore) UpdateOrder(_ context.Context, o *models.Order) error {
	return m.writeOrder(o, func(stored models.Order, o *models.Order) models.Order {
		next := *o
		next.Fragments = stored.Fragments
		next.IsFragmented = stored.IsFragmented
		return next
	})
}

func (m *memStore) UpdateOrderFragments(_ context.Context, o *models.Order) error {
	return m.writeOrder(o, func(stored models.Order, o *models.Order) models.Order {
		stored.Fragments = o.Fragments
		stored.IsFragmented = o.IsFragmented
		return stored
	})
}

func (m *memStore) SaveOrder(_ context.Context, o *models.Order) error {
	return m.writeOrder(o, func(_ models.Order, o *models.Order) models.Order {
		return *o
	})
}

func (m *memStore) ListOrders(_ context.Context, f store.OrderFilter) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Order{}
	for _, o := range m.orders {
		if len(f.Statuses) > 0 && !contains(f.Statuses, o.Status) {
			continue
		}
		if f.CustomerID != "" && o.CustomerID != f.CustomerID {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) ListOrdersForCalendar(_ context.Context, from, to time.Time) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Order{}
	for _, o := range m.orders {
		inRange := o.ScheduledDate != nil && !o.ScheduledDate.Before(from) && o.ScheduledDate.Before(to)
		if inRange || len(o.Fragments) > 0 {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) GetOrdersByCustomerID(ctx context.Context, customerID string) ([]models.Order, error) {
	return m.ListOrders(ctx, store.OrderFilter{CustomerID: customerID})
}

func (m *memStore) CreateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return m.failWrite
	}
	for _, existing := range m.products {
		if strings.EqualFold(existing.SKU, p.SKU) {
			return fmt.Errorf("failed to insert product %s: %w", p.SKU, store.ErrDuplicate)
		}
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.SKULower = strings.ToLower(p.SKU)
	p.CreatedAt = m.tick()
	p.UpdatedAt = p.CreatedAt
	m.products[p.ID] = *p
	return nil
}

func (m *memStore) GetProductByID(_ context.Context, id string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, store.ErrNotFound)
	}
	return &p, nil
}

func (m *memStore) UpdateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; !ok {
		return fmt.Errorf("product %s: %w", p.ID, store.ErrNotFound)
	}
	p.SKULower = strings.ToLower(p.SKU)
	m.products[p.ID] = *p
	return nil
}

func (m *memStore) DeleteProduct(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return fmt.Errorf("product %s: %w", id, store.ErrNotFound)
	}
	delete(m.products, id)
	return nil
}

func (m *memStore) sortedProducts() []models.Product {
	out := make([]models.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m *memStore) ListProductsPage(_ context.Context, after *store.ProductCursor, limit int) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Product{}
	for _, p := range m.sortedProducts() {
		if after != nil {
			older := p.CreatedAt.Before(after.CreatedAt) ||
				(p.CreatedAt.Equal(after.CreatedAt) && p.ID < after.ID)
			if !older {
				continue
			}
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) SearchProductsBySKUPrefix(_ context.Context, prefix string, limit int) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Product{}
	for _, p := range m.sortedProducts() {
		if strings.HasPrefix(strings.ToLower(p.SKU), prefix) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKULower < out[j].SKULower })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) CountProducts(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.products), nil
}

func (m *memStore) GetAllProducts(_ context.Context) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedProducts(), nil
}

func (m *memStore) GetProductsByIDs(_ context.Context, ids []string) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Product{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) ProductNameExists(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) productBySKU(sku string) (models.Product, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if strings.EqualFold(p.SKU, sku) {
			return p, true
		}
	}
	return models.Product{}, false
}

func cloneOrder(o models.Order) models.Order {
	o.Products = append(models.OrderProducts{}, o.Products...)
	o.Fragments = append(models.OrderFragments{}, o.Fragments...)
	o.ProductionStages = append(models.ProductionStages{}, o.ProductionStages...)
	return o
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// memCache is an in-memory stand-in for the Redis client
type memCache struct {
	mu          sync.Mutex
	values      map[string]string
	version     int64
	idempotency map[string]string
	locks       map[string]string
	hits        int
}

func newMemCache() *memCache {
	return &memCache{
		values:      map[string]string{},
		idempotency: map[string]string{},
		locks:       map[string]string{},
	}
}

func (c *memCache) GetJSON(_ context.Context, key string, dst interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal([]byte(v), dst)
}

func (c *memCache) SetJSON(_ context.Context, key string, v interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.values[key] = string(b)
	return nil
}

func (c *memCache) CatalogVersion(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version, nil
}

func (c *memCache) BumpCatalogVersion(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
	return c.version, nil
}

func (c *memCache) SetIdempotencyKey(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.idempotency[key] = fmt.Sprint(value)
	return nil
}

func (c *memCache) GetIdempotencyKey(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.idempotency[key]
	return v, ok, nil
}

func (c *memCache) AcquireLock(_ context.Context, key string, _ time.Duration) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, held := c.locks[key]; held {
		return "", nil
	}
	token := uuid.New().String()
	c.locks[key] = token
	return token, nil
}

func (c *memCache) ExtendLock(_ context.Context, key, token string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locks[key] == token, nil
}

// expireLock drops a held lock as if its TTL ran out
func (c *memCache) expireLock(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.locks, key)
}

func (c *memCache) ReleaseLock(_ context.Context, key, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locks[key] == token {
		delete(c.locks, key)
	}
	return nil
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu       sync.Mutex
	orders   []string
	products []string
	imports  []models.ProductsImportedEvent
	err      error
}

func (p *recordingPublisher) PublishOrderChanged(_ context.Context, eventType string, order *models.Order, action string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = append(p.orders, eventType+":"+action)
	return p.err
}

func (p *recordingPublisher) PublishProductChanged(_ context.Context, product *models.Product, action string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.products = append(p.products, product.SKU+":"+action)
	return p.err
}

func (p *recordingPublisher) PublishProductsImported(_ context.Context, event *models.ProductsImportedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.imports = append(p.imports, *event)
	return p.err
}

var testNow = time.Date(2024, 3, 14, 15, 30, 0, 0, time.UTC)

type testEnv struct {
	store     *memStore
	cache     *memCache
	publisher *recordingPublisher
	archive   *archive.MockArchive
	customers *CustomerService
	orders    *OrderService
	fragments *FragmentService
	agenda    *AgendaService
	catalog   *CatalogService
	imports   *ImportService
}

func newTestEnv() *testEnv {
	e := &testEnv{
		store:     newMemStore(),
		cache:     newMemCache(),
		publisher: &recordingPublisher{},
		archive:   archive.NewMockArchive(),
	}
	clock := func() time.Time { return testNow }

	e.customers = NewCustomerService(e.store, e.store)
	e.fragments = NewFragmentService(e.store, e.cache, e.publisher, 30*time.Second)
	e.fragments.now = clock
	e.orders = NewOrderService(e.store, e.customers, e.fragments, e.cache, e.publisher)
	e.orders.now = clock
	e.agenda = NewAgendaService(e.store, e.store, e.fragments, e.publisher, time.UTC)
	e.agenda.now = clock
	e.catalog = NewCatalogService(e.store, e.cache, e.publisher, 2, 50, time.Minute)
	e.imports = NewImportService(e.store, e.store, e.catalog, e.archive, e.publisher)
	return e
}
