package storefront

import (
	"context"
	"strings"
	"time"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
)

// Cart is one owner's cart, whether kept locally or on the server.
type Cart interface {
	List(ctx context.Context) ([]domain.CartItem, error)
	// Add increments the quantity of an existing product or appends it.
	Add(ctx context.Context, item domain.CartItem) error
	// SetQuantity rejects qty <= 0; use Remove to drop an item.
	SetQuantity(ctx context.Context, productID string, qty int) error
	// Remove is a no-op when the product is not in the cart.
	Remove(ctx context.Context, productID string) error
	Clear(ctx context.Context) error
}

// GuestCart keeps an anonymous cart in the local store. Every mutation is
// applied to a copy and only becomes visible once persisted.
type GuestCart struct {
	store *LocalStore
	now   func() time.Time
}

func NewGuestCart(store *LocalStore) *GuestCart {
	return &GuestCart{store: store, now: time.Now}
}

func (g *GuestCart) List(context.Context) ([]domain.CartItem, error) {
	var items []domain.CartItem
	g.store.Get(keyGuestCart, &items)
	return items, nil
}

func (g *GuestCart) Add(_ context.Context, item domain.CartItem) error {
	item.ProductID = strings.TrimSpace(item.ProductID)
	if item.ProductID == "" {
		return domain.ErrNotFound
	}
	if item.Quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	return g.store.Update(func(tx *Tx) error {
		var items []domain.CartItem
		tx.Get(keyGuestCart, &items)
		for i := range items {
			if items[i].ProductID == item.ProductID {
				items[i].Quantity += item.Quantity
				return tx.Set(keyGuestCart, items)
			}
		}
		if item.AddedAt.IsZero() {
			item.AddedAt = g.now().UTC()
		}
		return tx.Set(keyGuestCart, append(items, item))
	})
}

func (g *GuestCart) SetQuantity(_ context.Context, productID string, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	return g.store.Update(func(tx *Tx) error {
		var items []domain.CartItem
		tx.Get(keyGuestCart, &items)
		for i := range items {
			if items[i].ProductID == productID {
				items[i].Quantity = qty
				return tx.Set(keyGuestCart, items)
			}
		}
		return domain.ErrNotFound
	})
}

func (g *GuestCart) Remove(_ context.Context, productID string) error {
	return g.store.Update(func(tx *Tx) error {
		var items []domain.CartItem
		tx.Get(keyGuestCart, &items)
		kept := items[:0]
		for _, it := range items {
			if it.ProductID != productID {
				kept = append(kept, it)
			}
		}
		if len(kept) == len(items) {
			return nil
		}
		return tx.Set(keyGuestCart, kept)
	})
}

func (g *GuestCart) Clear(context.Context) error {
	return g.store.Delete(keyGuestCart)
}

// ServerCart forwards every call to the API and caches nothing.
type ServerCart struct {
	client *Client
}

func NewServerCart(client *Client) *ServerCart {
	return &ServerCart{client: client}
}

func (s *ServerCart) List(ctx context.Context) ([]domain.CartItem, error) {
	return s.client.cart(ctx)
}

// Add sends only the product and quantity; the server snapshots name and
// price itself.
func (s *ServerCart) Add(ctx context.Context, item domain.CartItem) error {
	if item.Quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	return s.client.addCartItem(ctx, item.ProductID, item.Quantity)
}

func (s *ServerCart) SetQuantity(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	return s.client.setCartQuantity(ctx, productID, qty)
}

func (s *ServerCart) Remove(ctx context.Context, productID string) error {
	return s.client.removeCartItem(ctx, productID)
}

func (s *ServerCart) Clear(ctx context.Context) error {
	return s.client.clearCart(ctx)
}
