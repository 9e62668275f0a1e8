package token

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool     *pgxpool.Pool
	provider string
	logger   *log.Logger
}

// NewPostgres returns a Repository scoped to provider (for example "mpesa").
func NewPostgres(pool *pgxpool.Pool, provider string, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, provider: provider, logger: logger}
}

func (r *postgresRepo) Load(ctx context.Context) (*domain.ProviderToken, error) {
	const q = `SELECT token, expires_at FROM provider_tokens WHERE provider = $1`
	var out domain.ProviderToken
	if err := r.pool.QueryRow(ctx, q, r.provider).Scan(&out.Value, &out.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("token repo: load provider=%s error=%v", r.provider, err)
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) Save(ctx context.Context, t domain.ProviderToken) error {
	const q = `
INSERT INTO provider_tokens (provider, token, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (provider) DO UPDATE SET
    token = EXCLUDED.token,
    expires_at = EXCLUDED.expires_at,
    updated_at = now()
`
	if _, err := r.pool.Exec(ctx, q, r.provider, t.Value, t.ExpiresAt); err != nil {
		r.logger.Printf("token repo: save provider=%s error=%v", r.provider, err)
		return err
	}
	r.logger.Printf("token repo: saved provider=%s expires_at=%s", r.provider, t.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"))
	return nil
}
