// Package pricing computes cart and order totals. The server and the
// storefront client share it so both sides agree on the numbers.
package pricing

import (
	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/shopspring/decimal"
)

// ShippingPolicy charges a flat rate unless the subtotal reaches FreeThreshold.
type ShippingPolicy struct {
	FreeThreshold decimal.Decimal
	FlatRate      decimal.Decimal
}

// Shipping returns the shipping fee for subtotal. An empty cart ships for free.
func (p ShippingPolicy) Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}
	if subtotal.GreaterThanOrEqual(p.FreeThreshold) {
		return decimal.Zero
	}
	return p.FlatRate
}

// Summary is derived from a cart snapshot and never stored.
type Summary struct {
	Count    int             `json:"count"`
	Subtotal decimal.Decimal `json:"itemsPrice"`
	Shipping decimal.Decimal `json:"shippingPrice"`
	Total    decimal.Decimal `json:"totalPrice"`
}

// Summarize totals items under policy.
func Summarize(items []domain.CartItem, policy ShippingPolicy) Summary {
	var s Summary
	s.Subtotal = decimal.Zero
	for _, it := range items {
		s.Count += it.Quantity
		s.Subtotal = s.Subtotal.Add(it.LineTotal())
	}
	s.Shipping = policy.Shipping(s.Subtotal)
	s.Total = s.Subtotal.Add(s.Shipping)
	return s
}

// SummarizeOrder totals frozen order lines under policy.
func SummarizeOrder(items []domain.OrderItem, policy ShippingPolicy) Summary {
	lines := make([]domain.CartItem, 0, len(items))
	for _, it := range items {
		lines = append(lines, domain.CartItem{ProductID: it.ProductID, Price: it.Price, Quantity: it.Quantity})
	}
	return Summarize(lines, policy)
}
