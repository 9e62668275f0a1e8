package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const orderColumns = `id::text, user_id::text, guest_name, guest_email, guest_phone, payment_method,
       items_price::text, shipping_price::text, total_price::text, is_paid, paid_at,
       is_delivered, delivered_at, status, COALESCE(idempotency_key, ''), created_at`

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Create(ctx context.Context, o domain.Order) (*domain.Order, bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	status := o.Status
	if status == "" {
		status = domain.OrderStatusPending
	}

	const insert = `
INSERT INTO orders (user_id, guest_name, guest_email, guest_phone, payment_method,
                    items_price, shipping_price, total_price, status, idempotency_key)
VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8::numeric, $9, NULLIF($10, ''))
ON CONFLICT (idempotency_key) WHERE idempotency_key IS NOT NULL DO NOTHING
RETURNING id::text
`
	var id string
	err = tx.QueryRow(ctx, insert,
		o.UserID,
		o.GuestName,
		o.GuestEmail,
		o.GuestPhone,
		o.PaymentMethod,
		o.ItemsPrice.String(),
		o.ShippingPrice.String(),
		o.TotalPrice.String(),
		string(status),
		o.IdempotencyKey,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, err := r.getOne(ctx, tx, `WHERE idempotency_key = $1`, o.IdempotencyKey)
		if err != nil {
			r.logger.Printf("order repo: replay lookup key=%s error=%v", o.IdempotencyKey, err)
			return nil, false, err
		}
		r.logger.Printf("order repo: replayed key=%s id=%s", o.IdempotencyKey, existing.ID)
		return existing, false, nil
	}
	if err != nil {
		r.logger.Printf("order repo: insert error=%v", err)
		return nil, false, translate(err)
	}

	for i, item := range o.Items {
		_, err := tx.Exec(ctx, `
INSERT INTO order_items (order_id, position, product_id, name, price, image, quantity)
VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)
`, id, i, item.ProductID, item.Name, item.Price.String(), item.Image, item.Quantity)
		if err != nil {
			r.logger.Printf("order repo: insert item id=%s position=%d error=%v", id, i, err)
			return nil, false, translate(err)
		}
	}

	out, err := r.getOne(ctx, tx, `WHERE id = $1`, id)
	if err != nil {
		return nil, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	r.logger.Printf("order repo: created id=%s items=%d total=%s", out.ID, len(out.Items), out.TotalPrice)
	return out, true, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.getOne(ctx, r.pool, `WHERE id = $1`, id)
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		r.logger.Printf("order repo: list user_id=%s error=%v", userID, err)
		return nil, translate(err)
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, r.pool, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *postgresRepo) List(ctx context.Context, limit, offset int) ([]domain.Order, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		r.logger.Printf("order repo: list error=%v", err)
		return nil, 0, err
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := r.attachItems(ctx, r.pool, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	const q = `
UPDATE orders SET
    status = $2,
    is_delivered = is_delivered OR $2 = 'delivered',
    delivered_at = CASE WHEN $2 = 'delivered' THEN COALESCE(delivered_at, now()) ELSE delivered_at END
WHERE id = $1
RETURNING id::text
`
	var updated string
	if err := r.pool.QueryRow(ctx, q, id, string(status)).Scan(&updated); err != nil {
		err = translate(err)
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.Printf("order repo: update status id=%s error=%v", id, err)
		}
		return nil, err
	}
	r.logger.Printf("order repo: status id=%s status=%s", id, status)
	return r.GetByID(ctx, updated)
}

func (r *postgresRepo) MarkPaid(ctx context.Context, id string, at time.Time) (*domain.Order, error) {
	const q = `
UPDATE orders SET is_paid = TRUE, paid_at = COALESCE(paid_at, $2)
WHERE id = $1
RETURNING id::text
`
	var updated string
	if err := r.pool.QueryRow(ctx, q, id, at).Scan(&updated); err != nil {
		r.logger.Printf("order repo: mark paid id=%s error=%v", id, err)
		return nil, translate(err)
	}
	r.logger.Printf("order repo: paid id=%s", id)
	return r.GetByID(ctx, updated)
}

func (r *postgresRepo) getOne(ctx context.Context, q querier, where string, args ...any) (*domain.Order, error) {
	o, err := scanOrder(q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders `+where, args...))
	if err != nil {
		return nil, translate(err)
	}
	orders := []domain.Order{*o}
	if err := r.attachItems(ctx, q, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *postgresRepo) attachItems(ctx context.Context, q querier, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	byID := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = i
		orders[i].Items = []domain.OrderItem{}
	}

	rows, err := q.Query(ctx, `
SELECT order_id::text, product_id::text, name, price::text, image, quantity
FROM order_items
WHERE order_id = ANY($1::uuid[])
ORDER BY order_id, position
`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID, price string
			item           domain.OrderItem
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.Name, &price, &item.Image, &item.Quantity); err != nil {
			return err
		}
		if item.Price, err = decimal.NewFromString(price); err != nil {
			return fmt.Errorf("decode item price order_id=%s: %w", orderID, err)
		}
		idx := byID[orderID]
		orders[idx].Items = append(orders[idx].Items, item)
	}
	return rows.Err()
}

func collectOrders(rows pgx.Rows) ([]domain.Order, error) {
	defer rows.Close()
	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o                      domain.Order
		items, shipping, total string
		status                 string
	)
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.GuestName,
		&o.GuestEmail,
		&o.GuestPhone,
		&o.PaymentMethod,
		&items,
		&shipping,
		&total,
		&o.IsPaid,
		&o.PaidAt,
		&o.IsDelivered,
		&o.DeliveredAt,
		&status,
		&o.IdempotencyKey,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{{&o.ItemsPrice, items}, {&o.ShippingPrice, shipping}, {&o.TotalPrice, total}} {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return nil, fmt.Errorf("decode amount order_id=%s: %w", o.ID, err)
		}
	}
	return &o, nil
}

func translate(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
		return domain.ErrNotFound
	}
	return err
}
