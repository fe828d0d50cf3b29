// Package production holds the order fragmentation, calendar and stage
// pipeline rules used by the agenda.
package production

import (
	"errors"
	"fmt"
	"time"

	"furniture-erp/internal/models"
	"furniture-erp/internal/pricing"

	"github.com/shopspring/decimal"
)

var (
	// ErrLineNotFound is returned when an order has no line for the requested product
	ErrLineNotFound = errors.New("order line not found")
	// ErrInvalidFragments wraps every fragment validation failure
	ErrInvalidFragments = errors.New("invalid fragments")
)

// Plan describes how much of an order line is already fragmented
type Plan struct {
	LineID            string                 `json:"line_id"`
	ProductID         string                 `json:"product_id"`
	ProductName       string                 `json:"product_name"`
	TotalQuantity     int                    `json:"total_quantity"`
	AllocatedQuantity int                    `json:"allocated_quantity"`
	AvailableQuantity int                    `json:"available_quantity"`
	TotalValue        decimal.Decimal        `json:"total_value"`
	Fragments         []models.OrderFragment `json:"fragments"`
}

// Draft is a fragment as submitted by the fragment form
type Draft struct {
	ID               string     `json:"id,omitempty"`
	FragmentNumber   int        `json:"fragment_number,omitempty"`
	Quantity         int        `json:"quantity"`
	ScheduledDate    *time.Time `json:"scheduled_date"`
	AssignedOperator string     `json:"assigned_operator,omitempty"`
}

// SplitRequest asks for one new fragment of Quantity units of a line.
// ProductID accepts a line id or a catalog product id.
type SplitRequest struct {
	ProductID     string     `json:"product_id"`
	Quantity      int        `json:"quantity"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
}

// LineStatus summarizes fragmentation of one order line
type LineStatus struct {
	LineID      string `json:"line_id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Total       int    `json:"total"`
	Fragmented  int    `json:"fragmented"`
	Remaining   int    `json:"remaining"`
}

// FindLine returns the order line ref points at. Lines match on their own
// line id first, then on the catalog product id.
func FindLine(order *models.Order, ref string) (models.OrderProduct, int, bool) {
	if ref == "" {
		return models.OrderProduct{}, -1, false
	}
	for i, p := range order.Products {
		if p.ID == ref {
			return p, i, true
		}
	}
	for i, p := range order.Products {
		if p.ProductID == ref {
			return p, i, true
		}
	}
	return models.OrderProduct{}, -1, false
}

// LineOf returns the index of the line owning f, or -1. Fragments saved
// without a line id belong to the first line of their product.
func LineOf(order *models.Order, f models.OrderFragment) int {
	if f.LineID != "" {
		for i, p := range order.Products {
			if p.ID == f.LineID {
				return i
			}
		}
		return -1
	}
	_, i, _ := FindLine(order, f.ProductID)
	return i
}

// FragmentsOf returns the fragments belonging to the line at index
func FragmentsOf(order *models.Order, index int) []models.OrderFragment {
	out := make([]models.OrderFragment, 0)
	for _, f := range order.Fragments {
		if LineOf(order, f) == index {
			out = append(out, f)
		}
	}
	return out
}

// Allocated sums fragment quantities of the line at index
func Allocated(order *models.Order, index int) int {
	total := 0
	for _, f := range FragmentsOf(order, index) {
		total += f.Quantity
	}
	return total
}

// FragmentValue is the linear share of the line total for quantity units
func FragmentValue(quantity int, line models.OrderProduct) decimal.Decimal {
	return pricing.Proportional(quantity, line.Quantity, line.TotalPrice)
}

// PlanFor computes the fragmentation plan of one order line
func PlanFor(order *models.Order, productID string) (*Plan, error) {
	line, index, ok := FindLine(order, productID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLineNotFound, productID)
	}
	allocated := Allocated(order, index)
	return &Plan{
		LineID:            line.ID,
		ProductID:         line.LineKey(),
		ProductName:       line.ProductName,
		TotalQuantity:     line.Quantity,
		AllocatedQuantity: allocated,
		AvailableQuantity: line.Quantity - allocated,
		TotalValue:        line.TotalPrice,
		Fragments:         FragmentsOf(order, index),
	}, nil
}

// FragmentID builds the id of the n-th fragment of an order
func FragmentID(orderID string, n int, now time.Time) string {
	return fmt.Sprintf("%s-frag-%d-%d", orderID, n, now.UnixMilli())
}

// Replace swaps the fragments of one line for drafts. Fragments of other
// lines are kept, in front. Drafts that carry the id of an existing
// fragment edit it in place and release its quantity before validation.
// An id may appear in one draft only.
func Replace(order *models.Order, productID string, drafts []Draft, now time.Time) (models.OrderFragments, error) {
	line, index, ok := FindLine(order, productID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLineNotFound, productID)
	}

	existing := make(map[string]models.OrderFragment)
	for _, f := range FragmentsOf(order, index) {
		existing[f.ID] = f
	}

	available := line.Quantity - Allocated(order, index)
	requested := 0
	seen := make(map[string]bool, len(drafts))
	for _, d := range drafts {
		if d.ID != "" {
			if seen[d.ID] {
				return nil, fmt.Errorf("%w: fragment %s is listed more than once", ErrInvalidFragments, d.ID)
			}
			seen[d.ID] = true
			if f, ok := existing[d.ID]; ok {
				available += f.Quantity
			}
		}
		requested += d.Quantity
	}

	if requested <= 0 {
		return nil, fmt.Errorf("%w: at least one unit must be fragmented", ErrInvalidFragments)
	}
	if requested > available {
		return nil, fmt.Errorf("%w: total fragmented quantity (%d) exceeds available quantity (%d)",
			ErrInvalidFragments, requested, available)
	}
	for i, d := range drafts {
		if d.Quantity <= 0 || d.ScheduledDate == nil {
			return nil, fmt.Errorf("%w: fragment %d needs a positive quantity and a scheduled date",
				ErrInvalidFragments, i+1)
		}
	}

	out := make(models.OrderFragments, 0, len(order.Fragments)+len(drafts))
	for _, f := range order.Fragments {
		if LineOf(order, f) != index {
			out = append(out, f)
		}
	}

	for i, d := range drafts {
		number := d.FragmentNumber
		if number == 0 {
			number = i + 1
		}
		date := *d.ScheduledDate
		frag := models.OrderFragment{
			ID:               d.ID,
			OrderID:          order.ID,
			LineID:           line.ID,
			ProductID:        line.LineKey(),
			ProductName:      line.ProductName,
			Size:             line.Size,
			Color:            line.Color,
			FragmentNumber:   number,
			Quantity:         d.Quantity,
			ScheduledDate:    &date,
			Status:           models.FragmentStatusPending,
			Value:            FragmentValue(d.Quantity, line),
			AssignedOperator: d.AssignedOperator,
		}
		if prev, ok := existing[d.ID]; ok && d.ID != "" {
			frag.Status = prev.Status
			frag.Progress = prev.Progress
			frag.StartedAt = prev.StartedAt
			frag.CompletedAt = prev.CompletedAt
			if frag.AssignedOperator == "" {
				frag.AssignedOperator = prev.AssignedOperator
			}
		} else {
			frag.ID = FragmentID(order.ID, number, now)
		}
		out = append(out, frag)
	}

	return out, nil
}

// Split appends one pending fragment per request. Every request is checked
// against the available quantity of its line before anything is appended.
func Split(order *models.Order, requests []SplitRequest, now time.Time) (models.OrderFragments, error) {
	type planned struct {
		line models.OrderProduct
		req  SplitRequest
	}

	selected := make([]planned, 0, len(requests))
	pending := make(map[int]int)
	for _, r := range requests {
		if r.Quantity < 0 {
			return nil, fmt.Errorf("%w: negative quantity for %s", ErrInvalidFragments, r.ProductID)
		}
		if r.Quantity == 0 {
			continue
		}
		line, index, ok := FindLine(order, r.ProductID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrLineNotFound, r.ProductID)
		}
		pending[index] += r.Quantity
		if available := line.Quantity - Allocated(order, index); pending[index] > available {
			return nil, fmt.Errorf("%w: quantity %d for %s exceeds available quantity (%d)",
				ErrInvalidFragments, pending[index], line.ProductName, available)
		}
		selected = append(selected, planned{line: line, req: r})
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: select at least one product with a positive quantity", ErrInvalidFragments)
	}

	out := make(models.OrderFragments, 0, len(order.Fragments)+len(selected))
	out = append(out, order.Fragments...)
	for _, p := range selected {
		number := len(out) + 1
		date := now
		if p.req.ScheduledDate != nil {
			date = *p.req.ScheduledDate
		}
		out = append(out, models.OrderFragment{
			ID:             FragmentID(order.ID, number, now),
			OrderID:        order.ID,
			LineID:         p.line.ID,
			ProductID:      p.line.LineKey(),
			ProductName:    p.line.ProductName,
			Size:           p.line.Size,
			Color:          p.line.Color,
			FragmentNumber: number,
			Quantity:       p.req.Quantity,
			ScheduledDate:  &date,
			Status:         models.FragmentStatusPending,
			Value:          pricing.Round2(p.line.UnitPrice.Mul(decimal.NewFromInt(int64(p.req.Quantity)))),
		})
	}
	return out, nil
}

// Clear drops every fragment of the line productID refers to
func Clear(order *models.Order, productID string) models.OrderFragments {
	_, index, ok := FindLine(order, productID)
	out := make(models.OrderFragments, 0, len(order.Fragments))
	for _, f := range order.Fragments {
		if ok && LineOf(order, f) == index {
			continue
		}
		if !ok && f.ProductID == productID {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Status reports fragmented and remaining quantities per line
func Status(order *models.Order) []LineStatus {
	out := make([]LineStatus, 0, len(order.Products))
	for i, p := range order.Products {
		fragmented := Allocated(order, i)
		out = append(out, LineStatus{
			LineID:      p.ID,
			ProductID:   p.LineKey(),
			ProductName: p.ProductName,
			Total:       p.Quantity,
			Fragmented:  fragmented,
			Remaining:   p.Quantity - fragmented,
		})
	}
	return out
}

// Reconcile fits the fragments of order to new lines. Fragments whose line
// is gone are dropped. A line left with fewer units than its fragments
// allocate is an error.
func Reconcile(order *models.Order, lines models.OrderProducts) (models.OrderFragments, error) {
	kept := make(map[string]bool, len(lines))
	for _, l := range lines {
		if l.ID != "" {
			kept[l.ID] = true
		}
	}

	out := make(models.OrderFragments, 0, len(order.Fragments))
	for _, f := range order.Fragments {
		index := LineOf(order, f)
		if index < 0 || !kept[order.Products[index].ID] {
			continue
		}
		f.LineID = order.Products[index].ID
		out = append(out, f)
	}

	next := &models.Order{ID: order.ID, Products: lines, Fragments: out}
	for i, l := range lines {
		if allocated := Allocated(next, i); allocated > l.Quantity {
			return nil, fmt.Errorf("%w: %s has %d units fragmented but only %d left",
				ErrInvalidFragments, l.ProductName, allocated, l.Quantity)
		}
	}
	return out, nil
}
