package category

import (
	"context"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
)

// Repository reads category usage from the product catalog.
type Repository interface {
	// Counts returns one entry per non-empty product category, name ascending.
	// Slug is left empty.
	Counts(ctx context.Context) ([]domain.Category, error)
}
