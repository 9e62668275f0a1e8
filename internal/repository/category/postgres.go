package category

import (
	"context"
	"io"
	"log"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

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

func (r *postgresRepo) Counts(ctx context.Context) ([]domain.Category, error) {
	const q = `
SELECT category, count(*)
FROM products
WHERE category <> ''
GROUP BY category
ORDER BY category ASC
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		r.logger.Printf("category repo: counts error=%v", err)
		return nil, err
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
