package cart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const itemColumns = `product_id::text, name, price::text, image, quantity, created_at`

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

func (r *postgresRepo) List(ctx context.Context, userID string) ([]domain.CartItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM cart_items WHERE user_id = $1 ORDER BY created_at ASC, product_id`, userID)
	if err != nil {
		r.logger.Printf("cart repo: list user_id=%s error=%v", userID, err)
		return nil, err
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *postgresRepo) Add(ctx context.Context, userID string, item domain.CartItem) (*domain.CartItem, error) {
	if item.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	const q = `
INSERT INTO cart_items (user_id, product_id, quantity, name, price, image)
VALUES ($1, $2, $3, $4, $5::numeric, $6)
ON CONFLICT (user_id, product_id) DO UPDATE SET
    quantity = cart_items.quantity + EXCLUDED.quantity,
    updated_at = now()
RETURNING ` + itemColumns
	out, err := scanItem(r.pool.QueryRow(ctx, q, userID, item.ProductID, item.Quantity, item.Name, item.Price.String(), item.Image))
	if err != nil {
		r.logger.Printf("cart repo: add user_id=%s product_id=%s error=%v", userID, item.ProductID, err)
		return nil, err
	}
	r.logger.Printf("cart repo: add user_id=%s product_id=%s qty=%d", userID, out.ProductID, out.Quantity)
	return out, nil
}

func (r *postgresRepo) SetQuantity(ctx context.Context, userID, productID string, qty int) (*domain.CartItem, error) {
	if qty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	const q = `
UPDATE cart_items SET quantity = $3, updated_at = now()
WHERE user_id = $1 AND product_id = $2
RETURNING ` + itemColumns
	out, err := scanItem(r.pool.QueryRow(ctx, q, userID, productID, qty))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.Printf("cart repo: set quantity user_id=%s product_id=%s error=%v", userID, productID, err)
		}
		return nil, err
	}
	return out, nil
}

func (r *postgresRepo) Remove(ctx context.Context, userID, productID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil
		}
		r.logger.Printf("cart repo: remove user_id=%s product_id=%s error=%v", userID, productID, err)
		return err
	}
	return nil
}

func (r *postgresRepo) Clear(ctx context.Context, userID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		r.logger.Printf("cart repo: clear user_id=%s error=%v", userID, err)
		return err
	}
	r.logger.Printf("cart repo: cleared user_id=%s rows=%d", userID, cmd.RowsAffected())
	return nil
}

func scanItem(row pgx.Row) (*domain.CartItem, error) {
	var (
		item  domain.CartItem
		price string
	)
	if err := row.Scan(&item.ProductID, &item.Name, &price, &item.Image, &item.Quantity, &item.AddedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			// product or user vanished
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("decode price product_id=%s: %w", item.ProductID, err)
	}
	item.Price = p
	return &item, nil
}

func isInvalidUUID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}
