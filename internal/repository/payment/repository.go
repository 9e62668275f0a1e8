package payment

import (
	"context"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
)

type Repository interface {
	Create(ctx context.Context, p domain.Payment) (*domain.Payment, error)
	GetByCheckoutID(ctx context.Context, checkoutRequestID string) (*domain.Payment, error)
	// Complete records the provider's final result. A payment already out of
	// pending is left unchanged and returned as stored.
	Complete(ctx context.Context, p domain.Payment) (*domain.Payment, error)
}
