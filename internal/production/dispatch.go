package production

import (
	"fmt"

	"furniture-erp/internal/models"
	"furniture-erp/internal/pricing"
)

// DispatchLine selects Quantity units of the line at Index. Zero means the
// whole line.
type DispatchLine struct {
	Index    int `json:"index"`
	Quantity int `json:"quantity"`
}

// Dispatch splits order lines into what is sent to production and what
// remains on the order. With no selection every line is sent whole. Lines
// whose remaining quantity reaches zero are dropped.
func Dispatch(order *models.Order, selection []DispatchLine) (sent, remaining models.OrderProducts, err error) {
	if len(selection) == 0 {
		sent = make(models.OrderProducts, len(order.Products))
		copy(sent, order.Products)
		return sent, models.OrderProducts{}, nil
	}

	take := make(map[int]int, len(selection))
	for _, s := range selection {
		if s.Index < 0 || s.Index >= len(order.Products) {
			return nil, nil, fmt.Errorf("%w: line %d", ErrLineNotFound, s.Index)
		}
		if s.Quantity < 0 {
			return nil, nil, fmt.Errorf("%w: negative quantity for line %d", ErrInvalidFragments, s.Index)
		}
		line := order.Products[s.Index]
		qty := s.Quantity
		if qty == 0 || qty > line.Quantity {
			qty = line.Quantity
		}
		take[s.Index] = qty
	}

	sent = make(models.OrderProducts, 0, len(take))
	remaining = make(models.OrderProducts, 0, len(order.Products))
	for i, line := range order.Products {
		qty, ok := take[i]
		if !ok {
			remaining = append(remaining, line)
			continue
		}
		if qty > 0 {
			out := line
			out.Quantity = qty
			out.TotalPrice = pricing.LineTotal(qty, line.UnitPrice)
			sent = append(sent, out)
		}
		if left := line.Quantity - qty; left > 0 {
			line.Quantity = left
			line.TotalPrice = pricing.LineTotal(left, line.UnitPrice)
			remaining = append(remaining, line)
		}
	}
	return sent, remaining, nil
}
