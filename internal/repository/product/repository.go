package product

import (
	"context"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/shopspring/decimal"
)

// Sort orders accepted by List. Anything else falls back to SortNewest.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortRating    = "rating"
	SortName      = "name"
)

// Filter narrows and pages a product listing. Zero values mean "no constraint".
type Filter struct {
	Category string
	Brand    string
	Query    string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string
	Limit    int
	Offset   int
}

type Repository interface {
	List(ctx context.Context, f Filter) ([]domain.Product, int, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, p domain.Product) (*domain.Product, error)
	Update(ctx context.Context, p domain.Product) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	// Upsert inserts or replaces a product matched by case-insensitive name.
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
}
