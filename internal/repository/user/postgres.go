package user

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id::text, name, email, password_hash, is_admin, is_verified, COALESCE(verification_token, ''), created_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Create(ctx context.Context, u domain.User) (*domain.User, error) {
	const q = `
INSERT INTO users (name, email, password_hash, is_admin, is_verified, verification_token)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
RETURNING ` + userColumns
	return r.scanUser(r.pool.QueryRow(ctx, q,
		u.Name,
		strings.ToLower(u.Email),
		u.PasswordHash,
		u.IsAdmin,
		u.IsVerified,
		u.VerificationToken,
	))
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1) LIMIT 1`
	return r.scanUser(r.pool.QueryRow(ctx, q, email))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	return r.scanUser(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) Verify(ctx context.Context, token string) (*domain.User, error) {
	const q = `
UPDATE users SET is_verified = TRUE, verification_token = NULL
WHERE verification_token = $1
RETURNING ` + userColumns
	u, err := r.scanUser(r.pool.QueryRow(ctx, q, token))
	if err != nil {
		return nil, err
	}
	r.logger.Printf("user repo: verified id=%s", u.ID)
	return u, nil
}

func (r *postgresRepo) EnsureAdmin(ctx context.Context, u domain.User) (*domain.User, error) {
	const q = `
INSERT INTO users (name, email, password_hash, is_admin, is_verified)
VALUES ($1, $2, $3, TRUE, TRUE)
ON CONFLICT ((lower(email))) DO UPDATE SET
    password_hash = EXCLUDED.password_hash,
    is_admin = TRUE,
    is_verified = TRUE,
    verification_token = NULL
RETURNING ` + userColumns
	out, err := r.scanUser(r.pool.QueryRow(ctx, q, u.Name, strings.ToLower(u.Email), u.PasswordHash))
	if err != nil {
		return nil, err
	}
	r.logger.Printf("user repo: ensured admin id=%s", out.ID)
	return out, nil
}

func (r *postgresRepo) scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.IsAdmin,
		&u.IsVerified,
		&u.VerificationToken,
		&u.CreatedAt,
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
			case "22P02":
				return nil, domain.ErrNotFound
			}
		}
		r.logger.Printf("user repo: scan error=%v", err)
		return nil, err
	}
	return &u, nil
}
