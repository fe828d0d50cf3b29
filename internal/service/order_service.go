package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"furniture-erp/internal/models"
	"furniture-erp/internal/pricing"
	"furniture-erp/internal/production"
	"furniture-erp/internal/report"
	"furniture-erp/internal/store"
	"furniture-erp/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const idempotencyTTL = 24 * time.Hour

// OrderService handles order business logic
type OrderService struct {
	orders         OrderStore
	customers      *CustomerService
	fragments      *FragmentService
	cache          Cache
	eventPublisher Publisher
	logger         *zap.Logger
	now            func() time.Time
}

// NewOrderService creates a new order service. Edits take the order lock
// held by fragments.
func NewOrderService(
	orders OrderStore,
	customers *CustomerService,
	fragments *FragmentService,
	cache Cache,
	eventPublisher Publisher,
) *OrderService {
	return &OrderService{
		orders:         orders,
		customers:      customers,
		fragments:      fragments,
		cache:          cache,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
		now:            time.Now,
	}
}

// CreateOrderRequest is the result of the order wizard
type CreateOrderRequest struct {
	CustomerID         string             `json:"customer_id"`
	Customer           *CustomerInput     `json:"customer,omitempty"`
	SellerID           string             `json:"seller_id"`
	SellerName         string             `json:"seller_name"`
	Priority           string             `json:"priority"`
	Products           []OrderLineRequest `json:"products"`
	DiscountPercentage *decimal.Decimal   `json:"discount_percentage,omitempty"`
	VolumeDiscount     decimal.Decimal    `json:"volume_discount"`
	ShippingValue      decimal.Decimal    `json:"shipping_value"`
	ShippingDiscount   decimal.Decimal    `json:"shipping_discount"`
	ScheduledDate      *time.Time         `json:"scheduled_date"`
	DeliveryDate       *time.Time         `json:"delivery_date"`
	Notes              string             `json:"notes"`
	IdempotencyKey     string             `json:"idempotency_key,omitempty"`
}

// OrderLineRequest is one product line of an order request
type OrderLineRequest struct {
	ID             string            `json:"id,omitempty"`
	ProductID      string            `json:"product_id"`
	ProductName    string            `json:"product_name"`
	Model          string            `json:"model"`
	Size           string            `json:"size"`
	Color          string            `json:"color"`
	Fabric         string            `json:"fabric"`
	Quantity       int               `json:"quantity"`
	UnitPrice      decimal.Decimal   `json:"unit_price"`
	Specifications map[string]string `json:"specifications,omitempty"`
}

// UpdateOrderRequest overwrites the fields that are set
type UpdateOrderRequest struct {
	Priority           *string            `json:"priority,omitempty"`
	SellerID           *string            `json:"seller_id,omitempty"`
	SellerName         *string            `json:"seller_name,omitempty"`
	Products           []OrderLineRequest `json:"products,omitempty"`
	DiscountPercentage *decimal.Decimal   `json:"discount_percentage,omitempty"`
	VolumeDiscount     *decimal.Decimal   `json:"volume_discount,omitempty"`
	ShippingValue      *decimal.Decimal   `json:"shipping_value,omitempty"`
	ShippingDiscount   *decimal.Decimal   `json:"shipping_discount,omitempty"`
	ScheduledDate      *time.Time         `json:"scheduled_date,omitempty"`
	DeliveryDate       *time.Time         `json:"delivery_date,omitempty"`
	Notes              *string            `json:"notes,omitempty"`
}

// OrderQuery filters order listings. An empty status lists every status.
type OrderQuery struct {
	Status     string `form:"status"`
	Customer   string `form:"customer"`
	CustomerID string `form:"customer_id"`
	Search     string `form:"search"`
	Limit      int    `form:"limit"`
}

// DispatchResult is the outcome of sending order lines to production
type DispatchResult struct {
	Sent     models.OrderProducts `json:"sent"`
	Quantity int                  `json:"quantity"`
	Order    *models.Order        `json:"order"`
}

// CreateOrder validates the wizard payload, derives totals and stores the
// order. A repeated idempotency key returns the order created first.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest, canApprove bool) (*models.Order, bool, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if req.IdempotencyKey != "" {
		existing, err := s.findByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, false, fmt.Errorf("failed to check idempotency: %w", err)
		}
		if existing != nil {
			s.logger.Info("Duplicate order request detected",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.String("order_id", existing.ID))
			return existing, false, nil
		}
	}

	lines, err := buildLines(req.Products)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_items").Inc()
		return nil, false, err
	}
	if err := validateMoney(req.VolumeDiscount, req.ShippingValue, req.ShippingDiscount); err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_items").Inc()
		return nil, false, err
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.ValidPriority(priority) {
		util.OrdersFailedTotal.WithLabelValues("invalid_items").Inc()
		return nil, false, invalid("unknown priority %q", priority)
	}

	customer, err := s.resolveCustomer(ctx, req)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_customer").Inc()
		return nil, false, err
	}

	discount := customer.DefaultDiscount
	if req.DiscountPercentage != nil {
		discount = *req.DiscountPercentage
	}
	if discount.IsNegative() || discount.GreaterThan(decimal.NewFromInt(100)) {
		util.OrdersFailedTotal.WithLabelValues("invalid_items").Inc()
		return nil, false, invalid("discount percentage must be between 0 and 100")
	}

	status := models.OrderStatusAwaitingApproval
	if canApprove {
		status = models.OrderStatusPending
	}

	now := s.now()
	number, err := s.orders.NextOrderNumber(ctx, now.Year())
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, false, err
	}

	order := &models.Order{
		ID:                 uuid.New().String(),
		OrderNumber:        number,
		CustomerID:         customer.ID,
		CustomerName:       customer.Name,
		CustomerTradeName:  customer.TradeName,
		CustomerPhone:      customer.Phone,
		CustomerEmail:      customer.Email,
		PaymentCondition:   customer.PaymentCondition,
		Representative:     customer.Representative,
		SellerID:           req.SellerID,
		SellerName:         req.SellerName,
		Status:             status,
		Priority:           priority,
		Products:           lines,
		DiscountPercentage: discount,
		VolumeDiscount:     req.VolumeDiscount,
		ShippingValue:      req.ShippingValue,
		ShippingDiscount:   req.ShippingDiscount,
		ScheduledDate:      req.ScheduledDate,
		DeliveryDate:       req.DeliveryDate,
		Notes:              req.Notes,
		Fragments:          models.OrderFragments{},
		ProductionStages:   models.ProductionStages{},
		IdempotencyKey:     req.IdempotencyKey,
	}
	pricing.Apply(order)

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, false, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("status", order.Status),
		zap.String("total", order.TotalAmount.StringFixed(2)))

	if req.IdempotencyKey != "" {
		if err := s.cache.SetIdempotencyKey(ctx, req.IdempotencyKey, order.ID, idempotencyTTL); err != nil {
			s.logger.Warn("Failed to cache idempotency key", zap.Error(err))
		}
	}

	s.publish(ctx, models.EventTypeOrderCreated, order, "created")
	return order, true, nil
}

func (s *OrderService) findByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	orderID, found, err := s.cache.GetIdempotencyKey(ctx, key)
	if err != nil {
		s.logger.Warn("Idempotency cache lookup failed", zap.Error(err))
	}
	if found {
		order, err := s.orders.GetOrderByID(ctx, orderID)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return s.orders.GetOrderByIdempotencyKey(ctx, key)
}

func (s *OrderService) resolveCustomer(ctx context.Context, req *CreateOrderRequest) (*models.Customer, error) {
	if req.CustomerID != "" {
		c, err := s.customers.Get(ctx, req.CustomerID)
		if errors.Is(err, ErrNotFound) {
			return nil, invalid("customer %s not found", req.CustomerID)
		}
		return c, err
	}
	if req.Customer != nil {
		return s.customers.Create(ctx, req.Customer)
	}
	return nil, invalid("a customer is required")
}

func buildLines(in []OrderLineRequest) (models.OrderProducts, error) {
	if len(in) == 0 {
		return nil, invalid("at least one product is required")
	}

	lines := make(models.OrderProducts, 0, len(in))
	for i, l := range in {
		var missing []string
		if l.ProductID == "" {
			missing = append(missing, "product")
		}
		if strings.TrimSpace(l.Size) == "" {
			missing = append(missing, "size")
		}
		if strings.TrimSpace(l.Color) == "" {
			missing = append(missing, "color")
		}
		if strings.TrimSpace(l.Fabric) == "" {
			missing = append(missing, "fabric")
		}
		if len(missing) > 0 {
			return nil, invalid("product %d: missing %s", i+1, strings.Join(missing, ", "))
		}
		if l.Quantity <= 0 {
			return nil, invalid("product %d: quantity must be positive", i+1)
		}
		if !l.UnitPrice.IsPositive() {
			return nil, invalid("product %d: unit price must be positive", i+1)
		}

		id := l.ID
		if id == "" {
			id = uuid.New().String()
		}
		lines = append(lines, models.OrderProduct{
			ID:             id,
			ProductID:      l.ProductID,
			ProductName:    l.ProductName,
			Model:          l.Model,
			Size:           l.Size,
			Color:          l.Color,
			Fabric:         l.Fabric,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			Specifications: l.Specifications,
		})
	}
	return lines, nil
}

func validateMoney(values ...decimal.Decimal) error {
	for _, v := range values {
		if v.IsNegative() {
			return invalid("discounts and shipping cannot be negative")
		}
	}
	return nil
}

// GetOrder retrieves an order
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	return s.orders.GetOrderByID(ctx, id)
}

// ListOrders returns orders newest first
func (s *OrderService) ListOrders(ctx context.Context, q OrderQuery) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrders")
	defer span.End()

	filter := store.OrderFilter{CustomerID: q.CustomerID, Limit: q.Limit}
	if q.Status != "" && q.Status != production.StatusAll {
		if !models.ValidOrderStatus(q.Status) {
			return nil, invalid("unknown status %q", q.Status)
		}
		filter.Statuses = []string{q.Status}
	}

	orders, err := s.orders.ListOrders(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return production.FilterPending(orders, production.PendingFilter{
		Status:   production.StatusAll,
		Customer: q.Customer,
		Search:   q.Search,
	}), nil
}

// UpdateOrder overwrites the provided fields and recomputes totals. New
// product lines keep the fragments of lines that survive by id.
func (s *OrderService) UpdateOrder(ctx context.Context, id string, req *UpdateOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateOrder")
	defer span.End()

	if req.Priority != nil && !models.ValidPriority(*req.Priority) {
		return nil, invalid("unknown priority %q", *req.Priority)
	}
	for _, v := range []*decimal.Decimal{req.DiscountPercentage, req.VolumeDiscount, req.ShippingValue, req.ShippingDiscount} {
		if v != nil && v.IsNegative() {
			return nil, invalid("discounts and shipping cannot be negative")
		}
	}
	var lines models.OrderProducts
	if req.Products != nil {
		var err error
		if lines, err = buildLines(req.Products); err != nil {
			return nil, err
		}
	}

	save := s.orders.UpdateOrder
	if lines != nil {
		save = s.orders.SaveOrder
	}
	order, err := s.fragments.editor.edit(ctx, id, func(order *models.Order) error {
		if lines != nil {
			if err := replaceLines(order, lines); err != nil {
				return err
			}
		}
		if req.Priority != nil {
			order.Priority = *req.Priority
		}
		if req.DiscountPercentage != nil {
			order.DiscountPercentage = *req.DiscountPercentage
		}
		if req.VolumeDiscount != nil {
			order.VolumeDiscount = *req.VolumeDiscount
		}
		if req.ShippingValue != nil {
			order.ShippingValue = *req.ShippingValue
		}
		if req.ShippingDiscount != nil {
			order.ShippingDiscount = *req.ShippingDiscount
		}
		if req.SellerID != nil {
			order.SellerID = *req.SellerID
		}
		if req.SellerName != nil {
			order.SellerName = *req.SellerName
		}
		if req.ScheduledDate != nil {
			order.ScheduledDate = req.ScheduledDate
		}
		if req.DeliveryDate != nil {
			order.DeliveryDate = req.DeliveryDate
		}
		if req.Notes != nil {
			order.Notes = *req.Notes
		}
		pricing.Apply(order)
		return nil
	}, save)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, models.EventTypeOrderUpdated, order, "updated")
	return order, nil
}

// replaceLines swaps the order lines, dropping fragments of removed lines
func replaceLines(order *models.Order, lines models.OrderProducts) error {
	fragments, err := production.Reconcile(order, lines)
	if err != nil {
		return domainError(err)
	}
	order.Products = lines
	order.Fragments = fragments
	order.IsFragmented = len(fragments) > 0
	return nil
}

// UpdateStatus moves an order to status
func (s *OrderService) UpdateStatus(ctx context.Context, id, status string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus")
	defer span.End()

	if !models.ValidOrderStatus(status) {
		return nil, invalid("unknown status %q", status)
	}

	var previous string
	order, err := s.fragments.editor.edit(ctx, id, func(order *models.Order) error {
		previous = order.Status
		order.Status = status
		return nil
	}, s.orders.UpdateOrder)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order status changed",
		zap.String("order_id", order.ID),
		zap.String("from", previous),
		zap.String("to", status))
	s.publish(ctx, models.EventTypeOrderUpdated, order, "status")
	return order, nil
}

// SendToProduction removes the selected quantities from the order and
// returns them as the lines sent to the factory floor. An empty selection
// sends everything. Fragments of lines that leave the order go with them;
// a line cannot shrink below the quantity its fragments allocate.
func (s *OrderService) SendToProduction(ctx context.Context, id string, selection []production.DispatchLine) (*DispatchResult, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.SendToProduction")
	defer span.End()

	var sent models.OrderProducts
	order, err := s.fragments.editor.edit(ctx, id, func(order *models.Order) error {
		if len(order.Products) == 0 {
			return invalid("order %s has no products left to send", order.OrderNumber)
		}
		var remaining models.OrderProducts
		var err error
		sent, remaining, err = production.Dispatch(order, selection)
		if err != nil {
			return domainError(err)
		}
		if err := replaceLines(order, remaining); err != nil {
			return err
		}
		pricing.Apply(order)
		return nil
	}, s.orders.SaveOrder)
	if err != nil {
		return nil, err
	}

	quantity := 0
	for _, l := range sent {
		quantity += l.Quantity
	}
	s.logger.Info("Order lines sent to production",
		zap.String("order_id", order.ID),
		zap.Int("lines", len(sent)),
		zap.Int("quantity", quantity))
	s.publish(ctx, models.EventTypeOrderUpdated, order, "production")

	return &DispatchResult{Sent: sent, Quantity: quantity, Order: order}, nil
}

// Panorama groups the orders still available for production by customer
func (s *OrderService) Panorama(ctx context.Context) (*report.Panorama, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Panorama")
	defer span.End()

	orders, err := s.orders.ListOrders(ctx, store.OrderFilter{Statuses: report.PanoramaStatuses})
	if err != nil {
		return nil, fmt.Errorf("failed to list panorama orders: %w", err)
	}
	return report.Build(orders, s.now()), nil
}

func (s *OrderService) publish(ctx context.Context, eventType string, order *models.Order, action string) {
	if err := s.eventPublisher.PublishOrderChanged(ctx, eventType, order, action); err != nil {
		s.logger.Error("Failed to publish order event",
			zap.String("event_type", eventType),
			zap.String("order_id", order.ID),
			zap.Error(err))
	}
}
