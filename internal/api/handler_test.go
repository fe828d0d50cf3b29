package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"furniture-erp/internal/auth"
	"furniture-erp/internal/models"
	"furniture-erp/internal/service"
	"furniture-erp/internal/sse"
	"furniture-erp/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

// customerBook is a minimal in-memory customer store
type customerBook struct {
	mu        sync.Mutex
	customers map[string]models.Customer
}

func (b *customerBook) CreateCustomer(_ context.Context, c *models.Customer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	c.ID = fmt.Sprintf("c%d", len(b.customers)+1)
	b.customers[c.ID] = *c
	return nil
}

func (b *customerBook) GetCustomerByID(_ context.Context, id string) (*models.Customer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.customers[id]
	if !ok {
		return nil, fmt.Errorf("customer %s: %w", id, store.ErrNotFound)
	}
	return &c, nil
}

func (b *customerBook) FindCustomerByName(context.Context, string) (*models.Customer, error) {
	return nil, nil
}

func (b *customerBook) ListCustomers(context.Context, string) ([]models.Customer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []models.Customer{}
	for _, c := range b.customers {
		out = append(out, c)
	}
	return out, nil
}

func (b *customerBook) UpdateCustomer(_ context.Context, c *models.Customer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.customers[c.ID] = *c
	return nil
}

type testServer struct {
	router *gin.Engine
	hub    *sse.Hub
}

func newTestServer(t *testing.T, authn gin.HandlerFunc, checks map[string]Pinger) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	book := &customerBook{customers: map[string]models.Customer{}}
	customers := service.NewCustomerService(book, nil)
	hub := sse.NewHub()
	t.Cleanup(hub.Close)

	h := NewHandler(Services{
		Customers:      customers,
		Orders:         service.NewOrderService(nil, customers, nil, nil, nil),
		Fragments:      service.NewFragmentService(nil, nil, nil, time.Second),
		Agenda:         service.NewAgendaService(nil, nil, nil, nil, time.UTC),
		Catalog:        service.NewCatalogService(nil, nil, nil, 50, 100, time.Minute),
		Imports:        service.NewImportService(nil, nil, nil, nil, nil),
		Hub:            hub,
		Checks:         checks,
		MaxUploadBytes: 1024,
	})

	router := gin.New()
	h.SetupRoutes(router, authn, []string{"http://localhost:5173"})
	return &testServer{router: router, hub: hub}
}

func (s *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "error")
	assert.Contains(t, body, "details")
	return body
}

func TestHealthAndReadiness(t *testing.T) {
	s := newTestServer(t, auth.AllowAll(), map[string]Pinger{"postgres": stubPinger{}, "redis": stubPinger{}})

	w := s.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")

	w = s.do(http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestReadinessReportsFailingDependency(t *testing.T) {
	s := newTestServer(t, auth.AllowAll(), map[string]Pinger{
		"postgres": stubPinger{},
		"redis":    stubPinger{err: errors.New("connection refused")},
	})

	w := s.do(http.MethodGet, "/ready", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
	assert.NotContains(t, w.Body.String(), "postgres")
}

func TestRespondErrorMapsSentinels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{logger: zap.NewNop()}

	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("order x: %w", service.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: bad", service.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: locked", service.ErrConflict), http.StatusConflict},
		{fmt.Errorf("%w: no", service.ErrForbidden), http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		h.respondError(c, "Failed", tt.err)

		assert.Equal(t, tt.want, w.Code, tt.err.Error())
		body := decodeError(t, w)
		assert.Equal(t, tt.err.Error(), body["details"])
	}
}

func TestCustomerRoutes(t *testing.T) {
	s := newTestServer(t, auth.AllowAll(), nil)

	w := s.do(http.MethodPost, "/api/v1/customers", map[string]interface{}{"name": "Loja Azul", "type": "business"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Customer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Loja Azul", created.Name)

	w = s.do(http.MethodGet, "/api/v1/customers/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/v1/customers/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	decodeError(t, w)

	w = s.do(http.MethodPost, "/api/v1/customers", map[string]interface{}{"name": " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/customers", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", decodeError(t, w)["error"])
}

func TestValidationFailsBeforeReachingStorage(t *testing.T) {
	s := newTestServer(t, auth.AllowAll(), nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
	}{
		{"order without products", http.MethodPost, "/api/v1/orders", map[string]interface{}{"customer_id": "c1"}},
		{"unknown order status", http.MethodGet, "/api/v1/orders?status=lost", nil},
		{"status change without status", http.MethodPatch, "/api/v1/orders/o1/status", map[string]string{}},
		{"bad reschedule date", http.MethodPut, "/api/v1/orders/o1/schedule", map[string]string{"scheduled_date": "amanhã"}},
		{"fragment plan without product", http.MethodGet, "/api/v1/orders/o1/fragments/plan", nil},
		{"clear without product", http.MethodDelete, "/api/v1/orders/o1/fragments", nil},
		{"bad month", http.MethodGet, "/api/v1/agenda?month=2024-13", nil},
		{"bad cursor", http.MethodGet, "/api/v1/products?cursor=%25%25", nil},
		{"product without name", http.MethodPost, "/api/v1/products", map[string]string{"sku": "CB-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			decodeError(t, w)
		})
	}
}

// orderShelf serves a fixed order list. Other store calls panic.
type orderShelf struct {
	service.OrderStore
	orders []models.Order
}

func (s *orderShelf) ListOrders(_ context.Context, f store.OrderFilter) ([]models.Order, error) {
	out := []models.Order{}
	for _, o := range s.orders {
		for _, status := range f.Statuses {
			if o.Status == status {
				out = append(out, o)
			}
		}
		if len(f.Statuses) == 0 {
			out = append(out, o)
		}
	}
	return out, nil
}

func TestPendingApprovalsSearch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	shelf := &orderShelf{orders: []models.Order{
		{ID: "o1", OrderNumber: "ORD-2024-0001", CustomerName: "Loja Azul", Status: models.OrderStatusAwaitingApproval},
		{ID: "o2", OrderNumber: "ORD-2024-0002", CustomerName: "Casa Verde", Status: models.OrderStatusAwaitingApproval},
		{ID: "o3", OrderNumber: "ORD-2024-0003", CustomerName: "Casa Verde", Status: models.OrderStatusConfirmed},
	}}
	h := NewHandler(Services{Agenda: service.NewAgendaService(shelf, nil, nil, nil, time.UTC)})
	router := gin.New()
	h.SetupRoutes(router, auth.AllowAll(), []string{"http://localhost:5173"})

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"o1", "o2"}},
		{"?q=verde", []string{"o2"}},
		{"?q=0001", []string{"o1"}},
		{"?status=all&q=verde", []string{"o2", "o3"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/approvals"+tt.query, nil))
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var orders []models.Order
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &orders))
			ids := []string{}
			for _, o := range orders {
				ids = append(ids, o.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestScopedRoutesRequireCredentials(t *testing.T) {
	anonymous := func(c *gin.Context) { c.Next() }
	s := newTestServer(t, anonymous, nil)

	for _, path := range []string{"/api/v1/orders/o1/approve", "/api/v1/imports", "/api/v1/products"} {
		w := s.do(http.MethodPost, path, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func multipartUpload(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestImportUploads(t *testing.T) {
	s := newTestServer(t, auth.AllowAll(), nil)

	w := s.do(http.MethodGet, "/api/v1/imports/template", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "SKU\tPRODUTO"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	body, contentType := multipartUpload(t, "file", "vazio.csv", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/preview", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "empty file")

	body, contentType = multipartUpload(t, "arquivo", "catalogo.csv", []byte("SKU\tPRODUTO\nA\tB\n"))
	req = httptest.NewRequest(http.MethodPost, "/api/v1/imports/preview", body)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, contentType = multipartUpload(t, "file", "grande.csv", bytes.Repeat([]byte("x"), 4096))
	req = httptest.NewRequest(http.MethodPost, "/api/v1/imports/preview", body)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestEventStream(t *testing.T) {
	s := newTestServer(t, auth.AllowAll(), nil)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		var lines []string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if line == "\n" {
				return strings.Join(lines, "")
			}
			lines = append(lines, line)
		}
	}

	assert.Contains(t, readEvent(), "event: connected")
	require.Eventually(t, func() bool { return s.hub.Count() == 1 }, time.Second, 10*time.Millisecond)

	s.hub.Broadcast(sse.NewEvent(sse.EventOrdersChanged, map[string]string{"order_id": "o1"}))
	got := readEvent()
	assert.Contains(t, got, "event: orders:changed")
	assert.Contains(t, got, `"order_id":"o1"`)

	cancel()
	require.Eventually(t, func() bool { return s.hub.Count() == 0 }, time.Second, 10*time.Millisecond)
}
