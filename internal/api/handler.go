package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"furniture-erp/internal/auth"
	"furniture-erp/internal/service"
	"furniture-erp/internal/sse"
	"furniture-erp/internal/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger is a dependency checked by the readiness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles what the handlers serve
type Services struct {
	Customers      *service.CustomerService
	Orders         *service.OrderService
	Fragments      *service.FragmentService
	Agenda         *service.AgendaService
	Catalog        *service.CatalogService
	Imports        *service.ImportService
	Hub            *sse.Hub
	Checks         map[string]Pinger
	MaxUploadBytes int64
}

// Handler contains HTTP handlers
type Handler struct {
	customers *service.CustomerService
	orders    *service.OrderService
	fragments *service.FragmentService
	agenda    *service.AgendaService
	catalog   *service.CatalogService
	imports   *service.ImportService
	hub       *sse.Hub
	checks    map[string]Pinger
	maxUpload int64
	logger    *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(s Services) *Handler {
	return &Handler{
		customers: s.Customers,
		orders:    s.Orders,
		fragments: s.Fragments,
		agenda:    s.Agenda,
		catalog:   s.Catalog,
		imports:   s.Imports,
		hub:       s.Hub,
		checks:    s.Checks,
		maxUpload: s.MaxUploadBytes,
		logger:    util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes. authn authenticates every /api/v1 route.
func (h *Handler) SetupRoutes(router *gin.Engine, authn gin.HandlerFunc, allowedOrigins []string) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(authn)
	{
		v1.GET("/customers", h.listCustomers)
		v1.POST("/customers", h.createCustomer)
		v1.GET("/customers/:id", h.getCustomer)
		v1.PUT("/customers/:id", h.updateCustomer)
		v1.GET("/customers/:id/orders", h.customerHistory)

		v1.GET("/orders", h.listOrders)
		v1.POST("/orders", h.createOrder)
		v1.GET("/orders/:id", h.getOrder)
		v1.PUT("/orders/:id", h.updateOrder)
		v1.PATCH("/orders/:id/status", h.updateOrderStatus)
		v1.POST("/orders/:id/approve", auth.RequireScope(auth.ScopeApproveOrders), h.approveOrder)
		v1.POST("/orders/:id/stages/advance", h.advanceStage)
		v1.PUT("/orders/:id/schedule", h.rescheduleOrder)
		v1.PUT("/orders/:id/fragments/:fragmentId/schedule", h.rescheduleFragment)
		v1.GET("/orders/:id/fragments/plan", h.fragmentPlan)
		v1.GET("/orders/:id/fragments/status", h.fragmentStatus)
		v1.PUT("/orders/:id/fragments", h.replaceFragments)
		v1.DELETE("/orders/:id/fragments", h.clearFragments)
		v1.POST("/orders/:id/split", h.splitOrder)
		v1.POST("/orders/:id/production", h.sendToProduction)

		v1.GET("/agenda", h.agendaMonth)
		v1.GET("/approvals", h.pendingApprovals)

		v1.GET("/products", h.listProducts)
		v1.POST("/products", auth.RequireScope(auth.ScopeManageCatalog), h.createProduct)
		v1.GET("/products/:id", h.getProduct)
		v1.PUT("/products/:id", auth.RequireScope(auth.ScopeManageCatalog), h.updateProduct)
		v1.DELETE("/products/:id", auth.RequireScope(auth.ScopeManageCatalog), h.deleteProduct)

		v1.GET("/imports/template", h.importTemplate)
		v1.POST("/imports/preview", h.previewImport)
		v1.POST("/imports", auth.RequireScope(auth.ScopeManageCatalog), h.executeImport)

		v1.GET("/reports/panorama", h.panorama)

		v1.GET("/events", h.streamEvents)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every backing service
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failures := gin.H{}
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			failures[name] = err.Error()
		}
	}
	if len(failures) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not ready",
			"details": failures,
			"time":    time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// respondError maps service errors onto status codes
func (h *Handler) respondError(c *gin.Context, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	}

	if status == http.StatusInternalServerError {
		h.logger.Error(message,
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}

	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

// bindJSON decodes the request body, answering 400 on failure
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return false
	}
	return true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
