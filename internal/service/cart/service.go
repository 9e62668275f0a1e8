package cart

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/b3nzuk3/gameCity-sub000/internal/pricing"
)

// ErrOutOfStock is returned when adding a product with no stock left.
var ErrOutOfStock = errors.New("product out of stock")

type Service struct {
	repo        cartRepo
	productRepo productRepo
	policy      pricing.ShippingPolicy
	now         func() time.Time
}

type cartRepo interface {
	List(ctx context.Context, userID string) ([]domain.CartItem, error)
	Add(ctx context.Context, userID string, item domain.CartItem) (*domain.CartItem, error)
	SetQuantity(ctx context.Context, userID, productID string, qty int) (*domain.CartItem, error)
	Remove(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

func New(repo cartRepo, productRepo productRepo, policy pricing.ShippingPolicy) *Service {
	return &Service{repo: repo, productRepo: productRepo, policy: policy, now: time.Now}
}

// View is a cart with its derived totals.
type View struct {
	Items []domain.CartItem `json:"cartItems"`
	pricing.Summary
}

func (s *Service) Get(ctx context.Context, userID string) (*View, error) {
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &View{Items: items, Summary: pricing.Summarize(items, s.policy)}, nil
}

// Add puts qty of the product into the user's cart, snapshotting its
// current effective price. Repeated adds accumulate.
func (s *Service) Add(ctx context.Context, userID, productID string, qty int) (*View, error) {
	if qty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, domain.ErrNotFound
	}
	p, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.Stock <= 0 {
		return nil, ErrOutOfStock
	}
	item := domain.CartItem{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.EffectivePrice(s.now()),
		Image:     p.Image,
		Quantity:  qty,
	}
	if _, err := s.repo.Add(ctx, userID, item); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *Service) SetQuantity(ctx context.Context, userID, productID string, qty int) (*View, error) {
	if qty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if _, err := s.repo.SetQuantity(ctx, userID, productID, qty); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// Remove deletes the product's row. Removing an absent product succeeds.
func (s *Service) Remove(ctx context.Context, userID, productID string) (*View, error) {
	if err := s.repo.Remove(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.repo.Clear(ctx, userID)
}
