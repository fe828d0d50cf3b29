package service

import (
	"context"
	"fmt"
	"strings"

	"furniture-erp/internal/models"
	"furniture-erp/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CustomerService handles customer business logic
type CustomerService struct {
	customers CustomerStore
	orders    OrderStore
	logger    *zap.Logger
}

// NewCustomerService creates a new customer service
func NewCustomerService(customers CustomerStore, orders OrderStore) *CustomerService {
	return &CustomerService{
		customers: customers,
		orders:    orders,
		logger:    util.GetLogger(),
	}
}

// CustomerInput is the writable part of a customer
type CustomerInput struct {
	Name             string          `json:"name"`
	TradeName        string          `json:"trade_name"`
	Phone            string          `json:"phone"`
	Email            string          `json:"email"`
	Type             string          `json:"type"`
	DefaultDiscount  decimal.Decimal `json:"default_discount"`
	PaymentCondition string          `json:"payment_condition"`
	Representative   string          `json:"representative"`
}

func (in *CustomerInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return invalid("customer name is required")
	}
	if in.Type == "" {
		in.Type = models.CustomerTypeIndividual
	}
	if in.Type != models.CustomerTypeIndividual && in.Type != models.CustomerTypeBusiness {
		return invalid("unknown customer type %q", in.Type)
	}
	if in.DefaultDiscount.IsNegative() || in.DefaultDiscount.GreaterThan(decimal.NewFromInt(100)) {
		return invalid("default discount must be between 0 and 100")
	}
	return nil
}

func (in *CustomerInput) applyTo(c *models.Customer) {
	c.Name = in.Name
	c.TradeName = in.TradeName
	c.Phone = in.Phone
	c.Email = in.Email
	c.Type = in.Type
	c.DefaultDiscount = in.DefaultDiscount
	c.PaymentCondition = in.PaymentCondition
	c.Representative = in.Representative
}

// CustomerHistory is a customer's orders, newest first
type CustomerHistory struct {
	Customer   *models.Customer `json:"customer"`
	Orders     []models.Order   `json:"orders"`
	OrderCount int              `json:"order_count"`
	TotalValue decimal.Decimal  `json:"total_value"`
}

// Create validates and stores a new customer
func (s *CustomerService) Create(ctx context.Context, in *CustomerInput) (*models.Customer, error) {
	ctx, span := util.StartSpan(ctx, "CustomerService.Create")
	defer span.End()

	if err := in.validate(); err != nil {
		return nil, err
	}

	c := &models.Customer{}
	in.applyTo(c)
	if err := s.customers.CreateCustomer(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	s.logger.Info("Customer created", zap.String("customer_id", c.ID), zap.String("name", c.Name))
	return c, nil
}

// Get returns one customer
func (s *CustomerService) Get(ctx context.Context, id string) (*models.Customer, error) {
	ctx, span := util.StartSpan(ctx, "CustomerService.Get")
	defer span.End()

	return s.customers.GetCustomerByID(ctx, id)
}

// List returns customers whose name contains search
func (s *CustomerService) List(ctx context.Context, search string) ([]models.Customer, error) {
	ctx, span := util.StartSpan(ctx, "CustomerService.List")
	defer span.End()

	return s.customers.ListCustomers(ctx, strings.TrimSpace(search))
}

// Update overwrites the writable fields of a customer
func (s *CustomerService) Update(ctx context.Context, id string, in *CustomerInput) (*models.Customer, error) {
	ctx, span := util.StartSpan(ctx, "CustomerService.Update")
	defer span.End()

	if err := in.validate(); err != nil {
		return nil, err
	}

	c, err := s.customers.GetCustomerByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.applyTo(c)
	if err := s.customers.UpdateCustomer(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}
	return c, nil
}

// History returns the orders placed by a customer
func (s *CustomerService) History(ctx context.Context, id string) (*CustomerHistory, error) {
	ctx, span := util.StartSpan(ctx, "CustomerService.History")
	defer span.End()

	c, err := s.customers.GetCustomerByID(ctx, id)
	if err != nil {
		return nil, err
	}

	orders, err := s.orders.GetOrdersByCustomerID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer orders: %w", err)
	}

	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.TotalAmount)
	}
	return &CustomerHistory{
		Customer:   c,
		Orders:     orders,
		OrderCount: len(orders),
		TotalValue: total,
	}, nil
}
