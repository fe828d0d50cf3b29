package models

import "time"

// Event types
const (
	EventTypeOrderCreated     = "ORDER_CREATED"
	EventTypeOrderUpdated     = "ORDER_UPDATED"
	EventTypeOrderRescheduled = "ORDER_RESCHEDULED"
	EventTypeOrderApproved    = "ORDER_APPROVED"
	EventTypeOrderFragmented  = "ORDER_FRAGMENTED"
	EventTypeProductChanged   = "PRODUCT_CHANGED"
	EventTypeProductsImported = "PRODUCTS_IMPORTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderChangedEvent is published whenever an order document is written
type OrderChangedEvent struct {
	BaseEvent
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Status      string `json:"status"`
	Action      string `json:"action,omitempty"`
}

// ProductChangedEvent is published on a single catalog write
type ProductChangedEvent struct {
	BaseEvent
	ProductID string `json:"product_id"`
	SKU       string `json:"sku"`
	Action    string `json:"action"`
}

// ProductsImportedEvent summarizes a bulk import
type ProductsImportedEvent struct {
	BaseEvent
	Created           int    `json:"created"`
	Updated           int    `json:"updated"`
	Errors            int    `json:"errors"`
	CustomerPricesSet int    `json:"customer_prices_set"`
	ArchiveKey        string `json:"archive_key,omitempty"`
}

// IsOrderEvent reports whether the event type concerns orders
func IsOrderEvent(eventType string) bool {
	switch eventType {
	case EventTypeOrderCreated, EventTypeOrderUpdated, EventTypeOrderRescheduled,
		EventTypeOrderApproved, EventTypeOrderFragmented:
		return true
	}
	return false
}
