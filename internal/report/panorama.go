// Package report builds the production panorama: every order still waiting
// for production, grouped by customer.
package report

import (
	"strings"
	"time"

	"furniture-erp/internal/models"

	"github.com/shopspring/decimal"
)

// NoCustomer labels orders without a customer name
const NoCustomer = "Sem Cliente"

// PanoramaStatuses are the order statuses considered available for production
var PanoramaStatuses = []string{
	models.OrderStatusPending,
	models.OrderStatusAwaitingApproval,
	models.OrderStatusConfirmed,
}

// Line is one product line of an order in the panorama
type Line struct {
	OrderID       string          `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	ProductName   string          `json:"product_name"`
	Model         string          `json:"model"`
	Color         string          `json:"color"`
	Fabric        string          `json:"fabric"`
	Quantity      int             `json:"quantity"`
	ScheduledDate *time.Time      `json:"scheduled_date"`
	DeliveryDate  *time.Time      `json:"delivery_date"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TotalPrice    decimal.Decimal `json:"total_price"`
}

// CustomerGroup collects a customer's lines with subtotals. Value sums the
// orders' total amounts, so discounts and shipping are included.
type CustomerGroup struct {
	Customer string          `json:"customer"`
	Orders   int             `json:"orders"`
	Quantity int             `json:"quantity"`
	Value    decimal.Decimal `json:"value"`
	Lines    []Line          `json:"lines"`
}

// Panorama is the whole report
type Panorama struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Groups      []*CustomerGroup `json:"groups"`
	Orders      int              `json:"orders"`
	Quantity    int              `json:"quantity"`
	Value       decimal.Decimal  `json:"value"`
}

// Available reports whether the order belongs in the panorama
func Available(o models.Order) bool {
	for _, s := range PanoramaStatuses {
		if o.Status == s {
			return true
		}
	}
	return false
}

// Build groups available orders by customer name in first-seen order
func Build(orders []models.Order, now time.Time) *Panorama {
	p := &Panorama{GeneratedAt: now, Groups: []*CustomerGroup{}}
	index := map[string]*CustomerGroup{}

	for _, o := range orders {
		if !Available(o) {
			continue
		}

		name := strings.TrimSpace(o.CustomerName)
		if name == "" {
			name = NoCustomer
		}
		g, ok := index[name]
		if !ok {
			g = &CustomerGroup{Customer: name, Lines: []Line{}}
			index[name] = g
			p.Groups = append(p.Groups, g)
		}

		g.Orders++
		g.Value = g.Value.Add(o.TotalAmount)
		for _, line := range o.Products {
			g.Quantity += line.Quantity
			g.Lines = append(g.Lines, Line{
				OrderID:       o.ID,
				OrderNumber:   o.OrderNumber,
				ProductName:   line.ProductName,
				Model:         line.Model,
				Color:         line.Color,
				Fabric:        line.Fabric,
				Quantity:      line.Quantity,
				ScheduledDate: o.ScheduledDate,
				DeliveryDate:  o.DeliveryDate,
				UnitPrice:     line.UnitPrice,
				TotalPrice:    line.TotalPrice,
			})
		}
	}

	for _, g := range p.Groups {
		p.Orders += g.Orders
		p.Quantity += g.Quantity
		p.Value = p.Value.Add(g.Value)
	}
	return p
}
