package product

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/b3nzuk3/gameCity-sub000/internal/catalog"
	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	productrepo "github.com/b3nzuk3/gameCity-sub000/internal/repository/product"
	"github.com/shopspring/decimal"
)

// ErrInvalidProduct wraps every product validation failure.
var ErrInvalidProduct = errors.New("invalid product")

const (
	DefaultPageSize = 12
	MaxPageSize     = 100
)

type Service struct {
	repo    productrepo.Repository
	mapping *catalog.Mapping
	now     func() time.Time
}

func New(repo productrepo.Repository, mapping *catalog.Mapping) *Service {
	if mapping == nil {
		mapping = catalog.Default()
	}
	return &Service{repo: repo, mapping: mapping, now: time.Now}
}

// View is a product as shown to shoppers, with the offer applied.
type View struct {
	domain.Product
	EffectivePrice decimal.Decimal `json:"effectivePrice"`
	OnOffer        bool            `json:"onOffer"`
}

type ListQuery struct {
	Category string
	Brand    string
	Query    string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string
	Page     int
	PageSize int
}

type Page struct {
	Products []View `json:"products"`
	Page     int    `json:"page"`
	Pages    int    `json:"pages"`
	Total    int    `json:"total"`
}

func (s *Service) List(ctx context.Context, q ListQuery) (*Page, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	category := ""
	if strings.TrimSpace(q.Category) != "" {
		category = s.mapping.Normalize(q.Category)
	}

	products, total, err := s.repo.List(ctx, productrepo.Filter{
		Category: category,
		Brand:    strings.TrimSpace(q.Brand),
		Query:    q.Query,
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
		Sort:     q.Sort,
		Limit:    size,
		Offset:   (page - 1) * size,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]View, 0, len(products))
	for _, p := range products {
		views = append(views, s.view(p, now))
	}
	pages := (total + size - 1) / size
	return &Page{Products: views, Page: page, Pages: pages, Total: total}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*View, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v := s.view(*p, s.now())
	return &v, nil
}

func (s *Service) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if err := s.prepare(&p); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Update(ctx context.Context, id string, p domain.Product) (*domain.Product, error) {
	p.ID = id
	if err := s.prepare(&p); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Upsert is used by bulk loaders; it matches on product name.
func (s *Service) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if err := s.prepare(&p); err != nil {
		return nil, err
	}
	return s.repo.Upsert(ctx, p)
}

func (s *Service) view(p domain.Product, now time.Time) View {
	eff := p.EffectivePrice(now)
	return View{Product: p, EffectivePrice: eff, OnOffer: eff.LessThan(p.Price)}
}

func (s *Service) prepare(p *domain.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Brand = strings.TrimSpace(p.Brand)
	p.Category = s.mapping.Normalize(p.Category)
	if err := Validate(*p); err != nil {
		return err
	}
	p.Price = p.Price.Round(2)
	return nil
}

// Validate checks a product before it is written.
func Validate(p domain.Product) error {
	if p.Name == "" {
		return fmt.Errorf("%w: name required", ErrInvalidProduct)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	if p.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidProduct)
	}
	if p.Rating.IsNegative() || p.Rating.GreaterThan(decimal.NewFromInt(5)) {
		return fmt.Errorf("%w: rating must be between 0 and 5", ErrInvalidProduct)
	}
	if o := p.Offer; o != nil {
		switch o.Type {
		case domain.OfferPercentage:
			if o.Value.GreaterThan(decimal.NewFromInt(100)) {
				return fmt.Errorf("%w: percentage offer above 100", ErrInvalidProduct)
			}
		case domain.OfferFixed:
		default:
			return fmt.Errorf("%w: unknown offer type %q", ErrInvalidProduct, o.Type)
		}
		if !o.Value.IsPositive() {
			return fmt.Errorf("%w: offer value must be positive", ErrInvalidProduct)
		}
		if !o.EndsAt.After(o.StartsAt) {
			return fmt.Errorf("%w: offer must end after it starts", ErrInvalidProduct)
		}
	}
	return nil
}
