package category

import (
	"context"
	"os"
	"testing"

	"github.com/b3nzuk3/gameCity-sub000/internal/migrate"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestPostgres_Counts(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	_, err := pool.Exec(ctx, `
INSERT INTO products (name, price, category) VALUES
    ('PS5 Slim', 65000, 'PlayStation'),
    ('DualSense', 8999, 'PlayStation'),
    ('Switch OLED', 45000, 'Nintendo'),
    ('Mystery Box', 100, '')
`)
	if err != nil {
		t.Fatalf("insert products: %v", err)
	}

	counts, err := NewPostgres(pool, nil).Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("expected 2 categories, got %+v", counts)
	}
	if counts[0].Name != "Nintendo" || counts[0].Count != 1 || counts[1].Name != "PlayStation" || counts[1].Count != 2 {
		t.Fatalf("unexpected counts %+v", counts)
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
	if _, err := pool.Exec(ctx, `TRUNCATE products CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}
