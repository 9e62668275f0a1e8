package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one product line in a cart. Name, Price and Image are a
// snapshot taken when the product was first added.
type CartItem struct {
	ProductID string          `json:"product"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
	Quantity  int             `json:"qty"`
	AddedAt   time.Time       `json:"addedAt,omitempty"`
}

// LineTotal returns price x quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
