package order

import (
	"context"
	"time"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
)

type Repository interface {
	// Create stores the order with its items. When o.IdempotencyKey matches
	// an existing order, that order is returned with created=false.
	Create(ctx context.Context, o domain.Order) (out *domain.Order, created bool, err error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	List(ctx context.Context, limit, offset int) ([]domain.Order, int, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
	MarkPaid(ctx context.Context, id string, at time.Time) (*domain.Order, error)
}
