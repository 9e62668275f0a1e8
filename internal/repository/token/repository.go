package token

import (
	"context"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
)

// Repository keeps one bearer token per external provider so every API
// instance can share it.
type Repository interface {
	// Load returns domain.ErrNotFound when no token has been stored yet.
	Load(ctx context.Context) (*domain.ProviderToken, error)
	Save(ctx context.Context, t domain.ProviderToken) error
}
