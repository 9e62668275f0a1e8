package product

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/b3nzuk3/gameCity-sub000/internal/catalog"
	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	productrepo "github.com/b3nzuk3/gameCity-sub000/internal/repository/product"
	"github.com/shopspring/decimal"
)

type stubRepo struct {
	products   []domain.Product
	total      int
	lastFilter productrepo.Filter
	created    domain.Product
	getErr     error
}

func (s *stubRepo) List(_ context.Context, f productrepo.Filter) ([]domain.Product, int, error) {
	s.lastFilter = f
	return s.products, s.total, nil
}

func (s *stubRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	for _, p := range s.products {
		if p.ID == id {
			clone := p
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubRepo) Create(_ context.Context, p domain.Product) (*domain.Product, error) {
	s.created = p
	p.ID = "new"
	return &p, nil
}

func (s *stubRepo) Update(_ context.Context, p domain.Product) (*domain.Product, error) {
	return &p, nil
}

func (s *stubRepo) Delete(_ context.Context, _ string) error { return nil }

func (s *stubRepo) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	return &p, nil
}

func TestList_NormalizesCategoryAndPages(t *testing.T) {
	repo := &stubRepo{total: 25, products: []domain.Product{{ID: "p1", Name: "PS5", Price: decimal.NewFromInt(100)}}}
	svc := New(repo, catalog.Default())

	page, err := svc.List(context.Background(), ListQuery{Category: "ps5 games", Page: 3, PageSize: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if repo.lastFilter.Category != "PlayStation" {
		t.Fatalf("expected normalized category, got %q", repo.lastFilter.Category)
	}
	if repo.lastFilter.Limit != 10 || repo.lastFilter.Offset != 20 {
		t.Fatalf("unexpected paging %+v", repo.lastFilter)
	}
	if page.Pages != 3 || page.Page != 3 || page.Total != 25 {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestList_ClampsPageSize(t *testing.T) {
	repo := &stubRepo{}
	svc := New(repo, nil)

	if _, err := svc.List(context.Background(), ListQuery{PageSize: 1000, Page: -1}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if repo.lastFilter.Limit != MaxPageSize || repo.lastFilter.Offset != 0 {
		t.Fatalf("unexpected paging %+v", repo.lastFilter)
	}
}

func TestGet_AppliesActiveOffer(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &stubRepo{products: []domain.Product{{
		ID:    "p1",
		Name:  "Controller",
		Price: decimal.NewFromInt(8000),
		Offer: &domain.Offer{Type: domain.OfferFixed, Value: decimal.NewFromInt(500), StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour)},
	}}}
	svc := New(repo, nil)
	svc.now = func() time.Time { return now }

	v, err := svc.Get(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !v.EffectivePrice.Equal(decimal.NewFromInt(7500)) || !v.OnOffer {
		t.Fatalf("unexpected view %+v", v)
	}

	svc.now = func() time.Time { return now.Add(time.Hour) }
	v, _ = svc.Get(context.Background(), "p1")
	if !v.EffectivePrice.Equal(decimal.NewFromInt(8000)) || v.OnOffer {
		t.Fatalf("offer should have ended, got %+v", v)
	}
}

func TestCreate_Validates(t *testing.T) {
	repo := &stubRepo{}
	svc := New(repo, nil)
	ctx := context.Background()

	cases := []domain.Product{
		{Name: " ", Price: decimal.NewFromInt(1)},
		{Name: "X", Price: decimal.NewFromInt(-1)},
		{Name: "X", Stock: -2},
		{Name: "X", Rating: decimal.NewFromInt(6)},
		{Name: "X", Offer: &domain.Offer{Type: "bogus", Value: decimal.NewFromInt(1)}},
		{Name: "X", Offer: &domain.Offer{Type: domain.OfferPercentage, Value: decimal.NewFromInt(120)}},
	}
	for i, p := range cases {
		if _, err := svc.Create(ctx, p); !errors.Is(err, ErrInvalidProduct) {
			t.Fatalf("case %d: expected ErrInvalidProduct, got %v", i, err)
		}
	}

	if _, err := svc.Create(ctx, domain.Product{Name: " Xbox Pad ", Category: "xbox one", Price: decimal.RequireFromString("4999.999")}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if repo.created.Name != "Xbox Pad" || repo.created.Category != "Xbox" || repo.created.Price.String() != "5000" {
		t.Fatalf("unexpected stored product %+v", repo.created)
	}
}
