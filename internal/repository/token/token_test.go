package token

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/b3nzuk3/gameCity-sub000/internal/migrate"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestPostgres_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE provider_tokens`); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	repo := NewPostgres(pool, "mpesa", nil)
	if _, err := repo.Load(ctx); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	exp := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	if err := repo.Save(ctx, domain.ProviderToken{Value: "first", ExpiresAt: exp}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := repo.Save(ctx, domain.ProviderToken{Value: "second", ExpiresAt: exp}); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Value != "second" || !got.ExpiresAt.Equal(exp) {
		t.Fatalf("unexpected token %+v", got)
	}

	other, err := NewPostgres(pool, "other", nil).Load(ctx)
	if err != domain.ErrNotFound {
		t.Fatalf("providers must not share tokens, got %+v %v", other, err)
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
