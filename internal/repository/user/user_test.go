package user

import (
	"context"
	"os"
	"testing"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/b3nzuk3/gameCity-sub000/internal/migrate"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestPostgres_CreateVerifyLookup(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	created, err := repo.Create(ctx, domain.User{
		Name:              "Otieno",
		Email:             "Otieno@Example.com",
		PasswordHash:      "hash",
		VerificationToken: "tok-1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Email != "otieno@example.com" || created.IsVerified {
		t.Fatalf("unexpected user %+v", created)
	}

	if _, err := repo.Create(ctx, domain.User{Name: "Dup", Email: "OTIENO@example.com", PasswordHash: "x"}); err != domain.ErrAlreadyExists {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	verified, err := repo.Verify(ctx, "tok-1")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !verified.IsVerified || verified.VerificationToken != "" {
		t.Fatalf("expected verified user with cleared token, got %+v", verified)
	}
	if _, err := repo.Verify(ctx, "tok-1"); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound for used token, got %v", err)
	}

	byEmail, err := repo.GetByEmail(ctx, "otieno@EXAMPLE.com")
	if err != nil || byEmail.ID != created.ID {
		t.Fatalf("GetByEmail: %+v %v", byEmail, err)
	}
	if _, err := repo.GetByID(ctx, "nope"); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
	}
}

func TestPostgres_EnsureAdminPromotes(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	existing, err := repo.Create(ctx, domain.User{Name: "Admin", Email: "admin@gamecity.co.ke", PasswordHash: "old"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	admin, err := repo.EnsureAdmin(ctx, domain.User{Name: "Admin", Email: "admin@gamecity.co.ke", PasswordHash: "new"})
	if err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	if admin.ID != existing.ID || !admin.IsAdmin || !admin.IsVerified || admin.PasswordHash != "new" {
		t.Fatalf("unexpected admin %+v", admin)
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
	if _, err := pool.Exec(ctx, `TRUNCATE users CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}
