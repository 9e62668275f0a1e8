package payment

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

const paymentColumns = `checkout_request_id, merchant_request_id, order_id::text, phone, amount::text,
       status, result_code, result_desc, receipt, created_at, updated_at`

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

func (r *postgresRepo) Create(ctx context.Context, p domain.Payment) (*domain.Payment, error) {
	status := p.Status
	if status == "" {
		status = domain.PaymentPending
	}
	const q = `
INSERT INTO payments (checkout_request_id, merchant_request_id, order_id, phone, amount, status)
VALUES ($1, $2, $3, $4, $5::numeric, $6)
RETURNING ` + paymentColumns
	out, err := scanPayment(r.pool.QueryRow(ctx, q, p.CheckoutRequestID, p.MerchantRequestID, p.OrderID, p.Phone, p.Amount.String(), string(status)))
	if err != nil {
		r.logger.Printf("payment repo: create checkout_id=%s error=%v", p.CheckoutRequestID, err)
		return nil, err
	}
	r.logger.Printf("payment repo: created checkout_id=%s amount=%s", out.CheckoutRequestID, out.Amount)
	return out, nil
}

func (r *postgresRepo) GetByCheckoutID(ctx context.Context, checkoutRequestID string) (*domain.Payment, error) {
	return scanPayment(r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE checkout_request_id = $1`, checkoutRequestID))
}

func (r *postgresRepo) Complete(ctx context.Context, p domain.Payment) (*domain.Payment, error) {
	const q = `
UPDATE payments SET status = $2, result_code = $3, result_desc = $4, receipt = $5, updated_at = now()
WHERE checkout_request_id = $1 AND status = 'pending'
RETURNING ` + paymentColumns
	out, err := scanPayment(r.pool.QueryRow(ctx, q, p.CheckoutRequestID, string(p.Status), p.ResultCode, p.ResultDesc, p.Receipt))
	if errors.Is(err, domain.ErrNotFound) {
		// either unknown or already settled
		return r.GetByCheckoutID(ctx, p.CheckoutRequestID)
	}
	if err != nil {
		r.logger.Printf("payment repo: complete checkout_id=%s error=%v", p.CheckoutRequestID, err)
		return nil, err
	}
	r.logger.Printf("payment repo: completed checkout_id=%s status=%s", out.CheckoutRequestID, out.Status)
	return out, nil
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		p              domain.Payment
		amount, status string
	)
	err := row.Scan(
		&p.CheckoutRequestID,
		&p.MerchantRequestID,
		&p.OrderID,
		&p.Phone,
		&amount,
		&status,
		&p.ResultCode,
		&p.ResultDesc,
		&p.Receipt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return nil, domain.ErrAlreadyExists
			case "23503", "22P02":
				// order reference does not resolve
				return nil, domain.ErrNotFound
			}
		}
		return nil, err
	}
	p.Status = domain.PaymentStatus(status)
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("decode amount checkout_id=%s: %w", p.CheckoutRequestID, err)
	}
	return &p, nil
}
