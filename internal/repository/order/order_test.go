package order

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/b3nzuk3/gameCity-sub000/internal/migrate"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

func TestPostgres_CreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	key := uuid.NewString()
	in := guestOrder(key)

	first, created, err := repo.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !created || first.Status != domain.OrderStatusPending || len(first.Items) != 2 {
		t.Fatalf("unexpected first order created=%v %+v", created, first)
	}
	if first.Items[0].Name != "Game A" || first.Items[1].Quantity != 2 {
		t.Fatalf("items out of order: %+v", first.Items)
	}

	second, created, err := repo.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create replay: %v", err)
	}
	if created || second.ID != first.ID {
		t.Fatalf("expected replay of %s, got created=%v id=%s", first.ID, created, second.ID)
	}

	_, total, err := repo.List(ctx, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected a single order, got %d", total)
	}
}

func TestPostgres_StatusAndPayment(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	o, _, err := repo.Create(ctx, guestOrder(""))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	delivered, err := repo.UpdateStatus(ctx, o.ID, domain.OrderStatusDelivered)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if !delivered.IsDelivered || delivered.DeliveredAt == nil {
		t.Fatalf("expected delivered flags, got %+v", delivered)
	}
	again, err := repo.UpdateStatus(ctx, o.ID, domain.OrderStatusDelivered)
	if err != nil {
		t.Fatalf("UpdateStatus repeat: %v", err)
	}
	if !again.DeliveredAt.Equal(*delivered.DeliveredAt) {
		t.Fatalf("repeat must not move deliveredAt")
	}

	paidAt := time.Now().UTC().Truncate(time.Second)
	paid, err := repo.MarkPaid(ctx, o.ID, paidAt)
	if err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	if !paid.IsPaid || paid.PaidAt == nil || !paid.PaidAt.Equal(paidAt) {
		t.Fatalf("unexpected paid order %+v", paid)
	}

	if _, err := repo.UpdateStatus(ctx, uuid.NewString(), domain.OrderStatusShipped); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func guestOrder(key string) domain.Order {
	return domain.Order{
		GuestName:     "Achieng",
		GuestEmail:    "achieng@example.com",
		GuestPhone:    "0712345678",
		PaymentMethod: "M-Pesa",
		Items: []domain.OrderItem{
			{ProductID: uuid.NewString(), Name: "Game A", Price: decimal.NewFromInt(500), Quantity: 1},
			{ProductID: uuid.NewString(), Name: "Game B", Price: decimal.NewFromInt(1500), Quantity: 2},
		},
		ItemsPrice:     decimal.NewFromInt(3500),
		ShippingPrice:  decimal.Zero,
		TotalPrice:     decimal.NewFromInt(3500),
		IdempotencyKey: key,
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
	if _, err := pool.Exec(ctx, `TRUNCATE payments, order_items, orders CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}
