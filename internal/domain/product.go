package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OfferType string

const (
	OfferPercentage OfferType = "percentage"
	OfferFixed      OfferType = "fixed"
)

// Offer is a time-boxed discount attached to a product.
type Offer struct {
	Type     OfferType       `json:"type"`
	Value    decimal.Decimal `json:"value"`
	StartsAt time.Time       `json:"startsAt"`
	EndsAt   time.Time       `json:"endsAt"`
}

// ActiveAt reports whether the offer applies at t. The window is [StartsAt, EndsAt).
func (o Offer) ActiveAt(t time.Time) bool {
	return !t.Before(o.StartsAt) && t.Before(o.EndsAt)
}

type Product struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	Price          decimal.Decimal   `json:"price"`
	Category       string            `json:"category"`
	Brand          string            `json:"brand,omitempty"`
	Stock          int               `json:"countInStock"`
	Rating         decimal.Decimal   `json:"rating"`
	Image          string            `json:"image,omitempty"`
	Gallery        []string          `json:"gallery,omitempty"`
	Offer          *Offer            `json:"offer,omitempty"`
	Specifications map[string]string `json:"specifications,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// EffectivePrice applies the offer active at t, if any. The result never drops below zero.
func (p Product) EffectivePrice(t time.Time) decimal.Decimal {
	if p.Offer == nil || !p.Offer.ActiveAt(t) {
		return p.Price
	}
	var discounted decimal.Decimal
	switch p.Offer.Type {
	case OfferPercentage:
		cut := p.Price.Mul(p.Offer.Value).Div(decimal.NewFromInt(100))
		discounted = p.Price.Sub(cut)
	case OfferFixed:
		discounted = p.Price.Sub(p.Offer.Value)
	default:
		return p.Price
	}
	if discounted.IsNegative() {
		return decimal.Zero
	}
	return discounted.Round(2)
}
