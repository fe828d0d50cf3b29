package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Money travels as plain JSON numbers, matching what the browser client sends.
	decimal.MarshalJSONWithoutQuotes = true
}

// Customer represents a buyer of custom furniture
type Customer struct {
	ID               string          `db:"id" json:"id"`
	Name             string          `db:"name" json:"name"`
	TradeName        string          `db:"trade_name" json:"trade_name"`
	Phone            string          `db:"phone" json:"phone"`
	Email            string          `db:"email" json:"email"`
	Type             string          `db:"type" json:"type"`
	DefaultDiscount  decimal.Decimal `db:"default_discount" json:"default_discount"`
	PaymentCondition string          `db:"payment_condition" json:"payment_condition"`
	Representative   string          `db:"representative" json:"representative"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// Customer types
const (
	CustomerTypeIndividual = "individual"
	CustomerTypeBusiness   = "business"
)

// Product represents a catalog entry
type Product struct {
	ID             string          `db:"id" json:"id"`
	SKU            string          `db:"sku" json:"sku"`
	SKULower       string          `db:"sku_lower" json:"-"`
	Name           string          `db:"name" json:"name"`
	Category       string          `db:"category" json:"category"`
	Description    string          `db:"description" json:"description"`
	Barcode        string          `db:"barcode" json:"barcode,omitempty"`
	BasePrice      decimal.Decimal `db:"base_price" json:"base_price"`
	CostPrice      decimal.Decimal `db:"cost_price" json:"cost_price"`
	Margin         decimal.Decimal `db:"margin" json:"margin"`
	Status         string          `db:"status" json:"status"`
	Models         ProductModels   `db:"models" json:"models"`
	Specifications Specifications  `db:"specifications" json:"specifications"`
	Images         StringList      `db:"images" json:"images"`
	CustomerPrices CustomerPrices  `db:"customer_prices" json:"customer_prices,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// ProductModel is a buildable variant of a product
type ProductModel struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	PriceModifier decimal.Decimal `json:"price_modifier"`
	StockQuantity int             `json:"stock_quantity"`
	MinimumStock  int             `json:"minimum_stock"`
	IsActive      bool            `json:"is_active"`
	Sizes         []ModelOption   `json:"sizes"`
	Colors        []ModelOption   `json:"colors"`
	Fabrics       []ModelOption   `json:"fabrics"`
}

// ModelOption is a size, color or fabric choice of a model
type ModelOption struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	HexCode       string          `json:"hex_code,omitempty"`
	Type          string          `json:"type,omitempty"`
	PriceModifier decimal.Decimal `json:"price_modifier"`
}

// Specification is a free-form product attribute
type Specification struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Product categories and statuses
const (
	CategoryBed       = "bed"
	CategoryMattress  = "mattress"
	CategoryAccessory = "accessory"

	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"

	DefaultModelName = "Standard"
)

// Order represents a customer order
type Order struct {
	ID                   string           `db:"id" json:"id"`
	OrderNumber          string           `db:"order_number" json:"order_number"`
	CustomerID           string           `db:"customer_id" json:"customer_id"`
	CustomerName         string           `db:"customer_name" json:"customer_name"`
	CustomerTradeName    string           `db:"customer_trade_name" json:"customer_trade_name"`
	CustomerPhone        string           `db:"customer_phone" json:"customer_phone"`
	CustomerEmail        string           `db:"customer_email" json:"customer_email"`
	PaymentCondition     string           `db:"payment_condition" json:"payment_condition"`
	Representative       string           `db:"representative" json:"representative"`
	SellerID             string           `db:"seller_id" json:"seller_id"`
	SellerName           string           `db:"seller_name" json:"seller_name"`
	Status               string           `db:"status" json:"status"`
	Priority             string           `db:"priority" json:"priority"`
	Products             OrderProducts    `db:"products" json:"products"`
	Subtotal             decimal.Decimal  `db:"subtotal" json:"subtotal"`
	DiscountPercentage   decimal.Decimal  `db:"discount_percentage" json:"discount_percentage"`
	DiscountAmount       decimal.Decimal  `db:"discount_amount" json:"discount_amount"`
	VolumeDiscount       decimal.Decimal  `db:"volume_discount" json:"volume_discount"`
	VolumeDiscountAmount decimal.Decimal  `db:"volume_discount_amount" json:"volume_discount_amount"`
	ShippingValue        decimal.Decimal  `db:"shipping_value" json:"shipping_value"`
	ShippingDiscount     decimal.Decimal  `db:"shipping_discount" json:"shipping_discount"`
	TotalAmount          decimal.Decimal  `db:"total_amount" json:"total_amount"`
	ScheduledDate        *time.Time       `db:"scheduled_date" json:"scheduled_date"`
	DeliveryDate         *time.Time       `db:"delivery_date" json:"delivery_date"`
	Notes                string           `db:"notes" json:"notes"`
	IsFragmented         bool             `db:"is_fragmented" json:"is_fragmented"`
	Fragments            OrderFragments   `db:"fragments" json:"fragments"`
	ProductionStages     ProductionStages `db:"production_stages" json:"production_stages"`
	ProductionProgress   int              `db:"production_progress" json:"production_progress"`
	IdempotencyKey       string           `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt            time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time        `db:"updated_at" json:"updated_at"`
}

// OrderProduct is a line item with a descriptive snapshot of the product
type OrderProduct struct {
	ID             string            `json:"id"`
	ProductID      string            `json:"product_id"`
	ProductName    string            `json:"product_name"`
	Model          string            `json:"model"`
	Size           string            `json:"size"`
	Color          string            `json:"color"`
	Fabric         string            `json:"fabric"`
	Quantity       int               `json:"quantity"`
	UnitPrice      decimal.Decimal   `json:"unit_price"`
	TotalPrice     decimal.Decimal   `json:"total_price"`
	Specifications map[string]string `json:"specifications,omitempty"`
}

// LineKey identifies the catalog product a line refers to. Lines without a
// product reference fall back to their own id.
func (p OrderProduct) LineKey() string {
	if p.ProductID != "" {
		return p.ProductID
	}
	return p.ID
}

// OrderFragment is a dated sub-allocation of one order line
type OrderFragment struct {
	ID               string          `json:"id"`
	OrderID          string          `json:"order_id"`
	LineID           string          `json:"line_id,omitempty"`
	ProductID        string          `json:"product_id"`
	ProductName      string          `json:"product_name"`
	Size             string          `json:"size"`
	Color            string          `json:"color"`
	FragmentNumber   int             `json:"fragment_number"`
	Quantity         int             `json:"quantity"`
	ScheduledDate    *time.Time      `json:"scheduled_date"`
	Status           string          `json:"status"`
	Progress         int             `json:"progress"`
	Value            decimal.Decimal `json:"value"`
	AssignedOperator string          `json:"assigned_operator,omitempty"`
	StartedAt        *time.Time      `json:"started_at,omitempty"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
}

// ProductionStage is one step of the manufacturing pipeline
type ProductionStage struct {
	Stage       string     `json:"stage"`
	Status      string     `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Order statuses
const (
	OrderStatusPending          = "pending"
	OrderStatusAwaitingApproval = "awaiting_approval"
	OrderStatusConfirmed        = "confirmed"
	OrderStatusInProduction     = "in_production"
	OrderStatusQualityCheck     = "quality_check"
	OrderStatusReady            = "ready"
	OrderStatusDelivered        = "delivered"
	OrderStatusCancelled        = "cancelled"
)

// Order priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Fragment statuses
const (
	FragmentStatusPending      = "pending"
	FragmentStatusInProduction = "in_production"
	FragmentStatusCompleted    = "completed"
)

// Stage statuses
const (
	StageStatusPending    = "pending"
	StageStatusInProgress = "in_progress"
	StageStatusCompleted  = "completed"
)

var orderStatuses = map[string]bool{
	OrderStatusPending:          true,
	OrderStatusAwaitingApproval: true,
	OrderStatusConfirmed:        true,
	OrderStatusInProduction:     true,
	OrderStatusQualityCheck:     true,
	OrderStatusReady:            true,
	OrderStatusDelivered:        true,
	OrderStatusCancelled:        true,
}

var priorities = map[string]bool{
	PriorityLow:    true,
	PriorityMedium: true,
	PriorityHigh:   true,
	PriorityUrgent: true,
}

// ValidOrderStatus reports whether s is a known order status
func ValidOrderStatus(s string) bool {
	return orderStatuses[s]
}

// ValidPriority reports whether p is a known priority
func ValidPriority(p string) bool {
	return priorities[p]
}
