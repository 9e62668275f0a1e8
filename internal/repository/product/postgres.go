package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const productColumns = `id::text, name, description, price::text, category, brand, stock, rating::text,
       image, gallery, offer, specifications, created_at, updated_at`

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

func (r *postgresRepo) List(ctx context.Context, f Filter) ([]domain.Product, int, error) {
	where, args := buildWhere(f)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products`+where, args...).Scan(&total); err != nil {
		r.logger.Printf("product repo: count error=%v", err)
		return nil, 0, err
	}

	q := `SELECT ` + productColumns + ` FROM products` + where + ` ORDER BY ` + orderBy(f.Sort)
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Printf("product repo: list error=%v", err)
		return nil, 0, err
	}
	defer rows.Close()

	result := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("product repo: list rows error=%v", err)
		return nil, 0, err
	}
	r.logger.Printf("product repo: list category=%q q=%q count=%d total=%d", f.Category, f.Query, len(result), total)
	return result, total, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.Printf("product repo: get id=%s not found", id)
		} else {
			r.logger.Printf("product repo: get id=%s error=%v", id, err)
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	args, err := writeArgs(p)
	if err != nil {
		return nil, err
	}
	const q = `
INSERT INTO products (name, description, price, category, brand, stock, rating, image, gallery, offer, specifications)
VALUES ($1, $2, $3::numeric, $4, $5, $6, $7::numeric, $8, $9, $10, $11)
RETURNING ` + productColumns
	out, err := scanProduct(r.pool.QueryRow(ctx, q, args...))
	if err != nil {
		r.logger.Printf("product repo: create name=%q error=%v", p.Name, err)
		return nil, err
	}
	r.logger.Printf("product repo: created id=%s name=%q", out.ID, out.Name)
	return out, nil
}

func (r *postgresRepo) Update(ctx context.Context, p domain.Product) (*domain.Product, error) {
	args, err := writeArgs(p)
	if err != nil {
		return nil, err
	}
	args = append(args, p.ID)
	const q = `
UPDATE products SET
    name = $1, description = $2, price = $3::numeric, category = $4, brand = $5, stock = $6,
    rating = $7::numeric, image = $8, gallery = $9, offer = $10, specifications = $11,
    updated_at = now()
WHERE id = $12
RETURNING ` + productColumns
	out, err := scanProduct(r.pool.QueryRow(ctx, q, args...))
	if err != nil {
		r.logger.Printf("product repo: update id=%s error=%v", p.ID, err)
		return nil, err
	}
	r.logger.Printf("product repo: updated id=%s", out.ID)
	return out, nil
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		r.logger.Printf("product repo: delete id=%s error=%v", id, err)
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	r.logger.Printf("product repo: deleted id=%s", id)
	return nil
}

func (r *postgresRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	args, err := writeArgs(p)
	if err != nil {
		return nil, err
	}
	const q = `
INSERT INTO products (name, description, price, category, brand, stock, rating, image, gallery, offer, specifications)
VALUES ($1, $2, $3::numeric, $4, $5, $6, $7::numeric, $8, $9, $10, $11)
ON CONFLICT ((lower(name))) DO UPDATE SET
    description = EXCLUDED.description,
    price = EXCLUDED.price,
    category = EXCLUDED.category,
    brand = EXCLUDED.brand,
    stock = EXCLUDED.stock,
    rating = EXCLUDED.rating,
    image = EXCLUDED.image,
    gallery = EXCLUDED.gallery,
    offer = EXCLUDED.offer,
    specifications = EXCLUDED.specifications,
    updated_at = now()
RETURNING ` + productColumns
	out, err := scanProduct(r.pool.QueryRow(ctx, q, args...))
	if err != nil {
		r.logger.Printf("product repo: upsert name=%q error=%v", p.Name, err)
		return nil, err
	}
	r.logger.Printf("product repo: upserted name=%q id=%s", out.Name, out.ID)
	return out, nil
}

func buildWhere(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.Brand != "" {
		add("lower(brand) = lower($%d)", f.Brand)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		add("(name ILIKE $%[1]d OR brand ILIKE $%[1]d OR description ILIKE $%[1]d)", "%"+escapeLike(q)+"%")
	}
	if f.MinPrice != nil {
		add("price >= $%d::numeric", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		add("price <= $%d::numeric", f.MaxPrice.String())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderBy(sort string) string {
	switch sort {
	case SortPriceAsc:
		return "price ASC, id"
	case SortPriceDesc:
		return "price DESC, id"
	case SortRating:
		return "rating DESC, created_at DESC"
	case SortName:
		return "lower(name) ASC"
	default:
		return "created_at DESC, id"
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func writeArgs(p domain.Product) ([]any, error) {
	gallery := p.Gallery
	if gallery == nil {
		gallery = []string{}
	}
	galleryJSON, err := json.Marshal(gallery)
	if err != nil {
		return nil, err
	}
	specs := p.Specifications
	if specs == nil {
		specs = map[string]string{}
	}
	specsJSON, err := json.Marshal(specs)
	if err != nil {
		return nil, err
	}
	var offerJSON []byte
	if p.Offer != nil {
		if offerJSON, err = json.Marshal(p.Offer); err != nil {
			return nil, err
		}
	}
	return []any{
		p.Name,
		p.Description,
		p.Price.String(),
		p.Category,
		p.Brand,
		p.Stock,
		p.Rating.String(),
		p.Image,
		galleryJSON,
		offerJSON,
		specsJSON,
	}, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p                      domain.Product
		price, rating          string
		galleryJSON, offerJSON []byte
		specsJSON              []byte
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&price,
		&p.Category,
		&p.Brand,
		&p.Stock,
		&rating,
		&p.Image,
		&galleryJSON,
		&offerJSON,
		&specsJSON,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("decode price id=%s: %w", p.ID, err)
	}
	if p.Rating, err = decimal.NewFromString(rating); err != nil {
		return nil, fmt.Errorf("decode rating id=%s: %w", p.ID, err)
	}
	if len(galleryJSON) > 0 {
		if err := json.Unmarshal(galleryJSON, &p.Gallery); err != nil {
			return nil, fmt.Errorf("decode gallery id=%s: %w", p.ID, err)
		}
	}
	if len(offerJSON) > 0 && string(offerJSON) != "null" {
		var o domain.Offer
		if err := json.Unmarshal(offerJSON, &o); err != nil {
			return nil, fmt.Errorf("decode offer id=%s: %w", p.ID, err)
		}
		p.Offer = &o
	}
	if len(specsJSON) > 0 {
		if err := json.Unmarshal(specsJSON, &p.Specifications); err != nil {
			return nil, fmt.Errorf("decode specifications id=%s: %w", p.ID, err)
		}
	}
	return &p, nil
}

func translate(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return domain.ErrAlreadyExists
		case "22P02":
			// malformed uuid
			return domain.ErrNotFound
		}
	}
	return err
}
