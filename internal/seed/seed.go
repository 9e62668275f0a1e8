package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/shopspring/decimal"
)

type ProductWriter interface {
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
}

type AdminWriter interface {
	EnsureAdmin(ctx context.Context, name, email, password string) (*domain.User, error)
}

// Admin is the bootstrap administrator. An empty Email skips it.
type Admin struct {
	Name     string
	Email    string
	Password string
}

// Products returns the demo catalog. One item carries an offer running from
// now for 30 days so the storefront shows a discounted price.
func Products(now time.Time) []domain.Product {
	now = now.UTC().Truncate(time.Second)
	return []domain.Product{
		{
			Name:        "PlayStation 5 Console",
			Description: "Disc edition with one DualSense controller",
			Price:       decimal.NewFromInt(69999),
			Category:    "ps5",
			Brand:       "Sony",
			Stock:       8,
			Rating:      decimal.RequireFromString("4.8"),
			Specifications: map[string]string{
				"storage": "825GB SSD",
				"output":  "4K 120Hz",
			},
		},
		{
			Name:        "DualSense Wireless Controller",
			Description: "Haptic feedback and adaptive triggers",
			Price:       decimal.NewFromInt(9499),
			Category:    "controllers",
			Brand:       "Sony",
			Stock:       25,
			Rating:      decimal.RequireFromString("4.6"),
			Offer: &domain.Offer{
				Type:     domain.OfferPercentage,
				Value:    decimal.NewFromInt(10),
				StartsAt: now,
				EndsAt:   now.Add(30 * 24 * time.Hour),
			},
		},
		{
			Name:        "Xbox Series X",
			Description: "1TB console",
			Price:       decimal.NewFromInt(74999),
			Category:    "xbox series x",
			Brand:       "Microsoft",
			Stock:       5,
			Rating:      decimal.RequireFromString("4.7"),
		},
		{
			Name:     "Nintendo Switch OLED",
			Price:    decimal.NewFromInt(47999),
			Category: "switch",
			Brand:    "Nintendo",
			Stock:    6,
			Rating:   decimal.RequireFromString("4.7"),
		},
		{
			Name:        "27\" 165Hz Gaming Monitor",
			Description: "QHD IPS panel",
			Price:       decimal.NewFromInt(38500),
			Category:    "gaming monitors",
			Brand:       "Gigabyte",
			Stock:       3,
			Rating:      decimal.RequireFromString("4.4"),
		},
		{
			Name:     "HDMI 2.1 Cable",
			Price:    decimal.NewFromInt(1200),
			Category: "cables",
			Stock:    40,
			Rating:   decimal.RequireFromString("4.1"),
		},
	}
}

// Apply inserts basic seed data for manual testing. It is idempotent because
// products are upserted by name and the admin is created or promoted.
func Apply(ctx context.Context, products ProductWriter, admins AdminWriter, admin Admin, now time.Time) (int, error) {
	n := 0
	for _, p := range Products(now) {
		if _, err := products.Upsert(ctx, p); err != nil {
			return n, fmt.Errorf("upsert product %s: %w", p.Name, err)
		}
		n++
	}

	if admin.Email != "" {
		if _, err := admins.EnsureAdmin(ctx, admin.Name, admin.Email, admin.Password); err != nil {
			return n, fmt.Errorf("ensure admin: %w", err)
		}
	}
	return n, nil
}
