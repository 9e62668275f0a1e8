package product

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/b3nzuk3/gameCity-sub000/internal/migrate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

func TestBuildWhere(t *testing.T) {
	floor := decimal.NewFromInt(1000)
	where, args := buildWhere(Filter{Category: "PlayStation", Query: "50%_off", MinPrice: &floor})

	want := " WHERE category = $1 AND (name ILIKE $2 OR brand ILIKE $2 OR description ILIKE $2) AND price >= $3::numeric"
	if where != want {
		t.Fatalf("where = %q, want %q", where, want)
	}
	if len(args) != 3 || args[1] != `%50\%\_off%` || args[2] != "1000" {
		t.Fatalf("unexpected args %#v", args)
	}

	if where, args := buildWhere(Filter{}); where != "" || args != nil {
		t.Fatalf("expected empty filter, got %q %v", where, args)
	}
}

func TestOrderByFallsBackToNewest(t *testing.T) {
	if got := orderBy("bogus"); got != orderBy(SortNewest) {
		t.Fatalf("orderBy(bogus) = %q", got)
	}
	if got := orderBy(SortPriceAsc); got != "price ASC, id" {
		t.Fatalf("orderBy(price_asc) = %q", got)
	}
}

func TestPostgres_CreateListGet(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	now := time.Now().UTC().Truncate(time.Second)
	created, err := repo.Create(ctx, domain.Product{
		Name:     "DualSense Controller",
		Price:    decimal.RequireFromString("8999.00"),
		Category: "PlayStation",
		Brand:    "Sony",
		Stock:    12,
		Rating:   decimal.RequireFromString("4.5"),
		Gallery:  []string{"/uploads/a.jpg"},
		Offer: &domain.Offer{
			Type:     domain.OfferPercentage,
			Value:    decimal.NewFromInt(10),
			StartsAt: now.Add(-time.Hour),
			EndsAt:   now.Add(time.Hour),
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" || !created.Price.Equal(decimal.NewFromInt(8999)) {
		t.Fatalf("unexpected product %+v", created)
	}

	if _, err := repo.Create(ctx, domain.Product{Name: "dualsense controller", Price: decimal.NewFromInt(1)}); err != domain.ErrAlreadyExists {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	list, total, err := repo.List(ctx, Filter{Category: "PlayStation", Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(list) != 1 {
		t.Fatalf("expected 1 product, got total=%d len=%d", total, len(list))
	}

	got, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Offer == nil || got.Offer.Type != domain.OfferPercentage || len(got.Gallery) != 1 {
		t.Fatalf("offer or gallery not round-tripped: %+v", got)
	}

	if _, err := repo.GetByID(ctx, "not-a-uuid"); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
	}
}

func TestPostgres_UpsertAndDelete(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	first, err := repo.Upsert(ctx, domain.Product{Name: "Xbox Series X", Price: decimal.NewFromInt(75000), Category: "Xbox"})
	if err != nil {
		t.Fatalf("Upsert insert: %v", err)
	}
	second, err := repo.Upsert(ctx, domain.Product{Name: "XBOX SERIES X", Price: decimal.NewFromInt(72000), Category: "Xbox", Stock: 3})
	if err != nil {
		t.Fatalf("Upsert update: %v", err)
	}
	if second.ID != first.ID || !second.Price.Equal(decimal.NewFromInt(72000)) || second.Stock != 3 {
		t.Fatalf("expected in-place update, got %+v", second)
	}

	if err := repo.Delete(ctx, first.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, first.ID); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	return pool
}

func resetTables(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(ctx, `TRUNCATE payments, order_items, orders, cart_items, products, users, provider_tokens CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}
