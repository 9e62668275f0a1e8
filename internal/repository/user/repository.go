package user

import (
	"context"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
)

// Repository persists and fetches storefront accounts.
type Repository interface {
	Create(ctx context.Context, u domain.User) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// Verify marks the account holding token as verified and clears the token.
	Verify(ctx context.Context, token string) (*domain.User, error)
	// EnsureAdmin creates or promotes an administrator with the given credentials.
	EnsureAdmin(ctx context.Context, u domain.User) (*domain.User, error)
}
