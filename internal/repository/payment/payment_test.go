package payment

import (
	"context"
	"os"
	"testing"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/b3nzuk3/gameCity-sub000/internal/migrate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

func TestPostgres_CompleteOnlyOnce(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE payments`); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	repo := NewPostgres(pool, nil)
	created, err := repo.Create(ctx, domain.Payment{
		CheckoutRequestID: "ws_CO_1",
		MerchantRequestID: "mr-1",
		Phone:             "254712345678",
		Amount:            decimal.NewFromInt(3500),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Status != domain.PaymentPending || created.OrderID != nil {
		t.Fatalf("unexpected payment %+v", created)
	}

	done, err := repo.Complete(ctx, domain.Payment{CheckoutRequestID: "ws_CO_1", Status: domain.PaymentSucceeded, Receipt: "QK12ABC"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != domain.PaymentSucceeded || done.Receipt != "QK12ABC" {
		t.Fatalf("unexpected completed payment %+v", done)
	}

	again, err := repo.Complete(ctx, domain.Payment{CheckoutRequestID: "ws_CO_1", Status: domain.PaymentFailed, ResultCode: 1032})
	if err != nil {
		t.Fatalf("Complete repeat: %v", err)
	}
	if again.Status != domain.PaymentSucceeded {
		t.Fatalf("settled payment must not change, got %s", again.Status)
	}

	if _, err := repo.Complete(ctx, domain.Payment{CheckoutRequestID: "unknown", Status: domain.PaymentFailed}); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
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
