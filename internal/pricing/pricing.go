// Package pricing derives order money fields from line items and discounts.
package pricing

import (
	"furniture-erp/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Inputs are the user-entered pricing fields of an order
type Inputs struct {
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	VolumeDiscount     decimal.Decimal `json:"volume_discount"`
	ShippingValue      decimal.Decimal `json:"shipping_value"`
	ShippingDiscount   decimal.Decimal `json:"shipping_discount"`
}

// Totals are the derived money fields of an order
type Totals struct {
	Subtotal             decimal.Decimal `json:"subtotal"`
	DiscountAmount       decimal.Decimal `json:"discount_amount"`
	VolumeDiscountAmount decimal.Decimal `json:"volume_discount_amount"`
	ShippingNet          decimal.Decimal `json:"shipping_net"`
	Total                decimal.Decimal `json:"total_amount"`
}

// Round2 rounds a money value to cents
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineTotal returns quantity x unit price
func LineTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return Round2(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}

// Subtotal sums line totals
func Subtotal(lines []models.OrderProduct) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.TotalPrice)
	}
	return Round2(sum)
}

// PercentOf returns pct% of base rounded to cents
func PercentOf(base, pct decimal.Decimal) decimal.Decimal {
	return Round2(base.Mul(pct).Div(hundred))
}

// Calculate computes
//
//	total = subtotal - financial discount - volume discount + max(0, shipping - shipping discount)
//
// with every component rounded to two decimals.
func Calculate(lines []models.OrderProduct, in Inputs) Totals {
	subtotal := Subtotal(lines)
	financial := PercentOf(subtotal, in.DiscountPercentage)
	volume := PercentOf(subtotal, in.VolumeDiscount)

	shippingNet := in.ShippingValue.Sub(in.ShippingDiscount)
	if shippingNet.IsNegative() {
		shippingNet = decimal.Zero
	}
	shippingNet = Round2(shippingNet)

	return Totals{
		Subtotal:             subtotal,
		DiscountAmount:       financial,
		VolumeDiscountAmount: volume,
		ShippingNet:          shippingNet,
		Total:                Round2(subtotal.Sub(financial).Sub(volume).Add(shippingNet)),
	}
}

// Apply recomputes line totals and the order money fields in place
func Apply(order *models.Order) Totals {
	for i := range order.Products {
		order.Products[i].TotalPrice = LineTotal(order.Products[i].Quantity, order.Products[i].UnitPrice)
	}
	t := Calculate(order.Products, Inputs{
		DiscountPercentage: order.DiscountPercentage,
		VolumeDiscount:     order.VolumeDiscount,
		ShippingValue:      order.ShippingValue,
		ShippingDiscount:   order.ShippingDiscount,
	})
	order.Subtotal = t.Subtotal
	order.DiscountAmount = t.DiscountAmount
	order.VolumeDiscountAmount = t.VolumeDiscountAmount
	order.TotalAmount = t.Total
	return t
}

// Proportional returns part/whole x amount rounded to cents, or zero when
// whole is zero.
func Proportional(part, whole int, amount decimal.Decimal) decimal.Decimal {
	if whole == 0 {
		return decimal.Zero
	}
	return Round2(amount.Mul(decimal.NewFromInt(int64(part))).Div(decimal.NewFromInt(int64(whole))))
}
