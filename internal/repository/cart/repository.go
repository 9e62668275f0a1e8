package cart

import (
	"context"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
)

// Repository stores per-user cart rows keyed by (user, product).
type Repository interface {
	List(ctx context.Context, userID string) ([]domain.CartItem, error)
	// Add inserts the item or, when a row for the product exists, adds
	// item.Quantity to it. The stored snapshot of the first add is kept.
	Add(ctx context.Context, userID string, item domain.CartItem) (*domain.CartItem, error)
	// SetQuantity returns domain.ErrNotFound when the row is absent.
	SetQuantity(ctx context.Context, userID, productID string, qty int) (*domain.CartItem, error)
	// Remove is a no-op for absent rows.
	Remove(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}
