package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/b3nzuk3/gameCity-sub000/internal/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidOrder   = errors.New("invalid order")
	ErrTotalsMismatch = errors.New("order totals do not match items")
	ErrForbidden      = errors.New("not allowed to access this order")
	// ErrKeyReused is returned when an idempotency key already belongs to
	// another customer's order or to a different order body.
	ErrKeyReused = errors.New("idempotency key already used for a different order")
	// ErrUnderpaid is returned by MarkPaid when the amount received is below
	// the order total.
	ErrUnderpaid = errors.New("amount paid is below the order total")
)

type orderRepo interface {
	Create(ctx context.Context, o domain.Order) (*domain.Order, bool, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	List(ctx context.Context, limit, offset int) ([]domain.Order, int, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
	MarkPaid(ctx context.Context, id string, at time.Time) (*domain.Order, error)
}

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

// Notifier is told about every newly created order.
type Notifier interface {
	OrderCreated(o domain.Order)
}

type Service struct {
	repo     orderRepo
	products productRepo
	policy   pricing.ShippingPolicy
	notifier Notifier
	logger   *log.Logger
	now      func() time.Time
}

func New(repo orderRepo, products productRepo, policy pricing.ShippingPolicy, notifier Notifier, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, products: products, policy: policy, notifier: notifier, logger: logger, now: time.Now}
}

type ItemInput struct {
	Product  string          `json:"product"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image"`
	Quantity int             `json:"qty"`
}

// CreateInput is the order-creation request body.
type CreateInput struct {
	OrderItems     []ItemInput      `json:"orderItems"`
	PaymentMethod  string           `json:"paymentMethod"`
	ItemsPrice     decimal.Decimal  `json:"itemsPrice"`
	ShippingPrice  *decimal.Decimal `json:"shippingPrice,omitempty"`
	TotalPrice     decimal.Decimal  `json:"totalPrice"`
	GuestName      string           `json:"guestName,omitempty"`
	GuestEmail     string           `json:"guestEmail,omitempty"`
	GuestPhone     string           `json:"guestPhone,omitempty"`
	IdempotencyKey string           `json:"idempotencyKey,omitempty"`
}

// Create validates and stores an order. userID is nil for guest checkout.
// A repeated IdempotencyKey returns the original order with created=false.
func (s *Service) Create(ctx context.Context, userID *string, in CreateInput) (*domain.Order, bool, error) {
	if len(in.OrderItems) == 0 {
		return nil, false, domain.ErrEmptyCart
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		if _, err := uuid.Parse(key); err != nil {
			return nil, false, fmt.Errorf("%w: idempotency key must be a UUID", ErrInvalidOrder)
		}
	}

	o := domain.Order{
		UserID:         userID,
		PaymentMethod:  strings.TrimSpace(in.PaymentMethod),
		Status:         domain.OrderStatusPending,
		IdempotencyKey: key,
	}
	if o.PaymentMethod == "" {
		o.PaymentMethod = "M-Pesa"
	}
	if userID == nil {
		if err := s.fillGuest(&o, in); err != nil {
			return nil, false, err
		}
	}

	now := s.now()
	for _, it := range in.OrderItems {
		if it.Quantity <= 0 {
			return nil, false, domain.ErrInvalidQuantity
		}
		if it.Price.IsNegative() {
			return nil, false, fmt.Errorf("%w: negative price for %s", ErrInvalidOrder, it.Product)
		}
		p, err := s.products.GetByID(ctx, strings.TrimSpace(it.Product))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, false, fmt.Errorf("%w: unknown product %q", ErrInvalidOrder, it.Product)
			}
			return nil, false, err
		}
		// Lines are priced from the catalog; the client's price must agree.
		price := p.EffectivePrice(now).Round(2)
		if !it.Price.Equal(price) {
			s.logger.Printf("order service: price mismatch product=%s sent=%s current=%s", p.ID, it.Price, price)
			return nil, false, fmt.Errorf("%w: price of %s is now %s", ErrTotalsMismatch, p.Name, price.StringFixed(2))
		}
		item := domain.OrderItem{ProductID: p.ID, Name: it.Name, Price: price, Image: it.Image, Quantity: it.Quantity}
		if item.Name == "" {
			item.Name = p.Name
		}
		if item.Image == "" {
			item.Image = p.Image
		}
		o.Items = append(o.Items, item)
	}

	sum := pricing.SummarizeOrder(o.Items, s.policy)
	if !sum.Subtotal.Equal(in.ItemsPrice) || !sum.Total.Equal(in.TotalPrice) ||
		(in.ShippingPrice != nil && !sum.Shipping.Equal(*in.ShippingPrice)) {
		s.logger.Printf("order service: totals mismatch items=%s/%s total=%s/%s", in.ItemsPrice, sum.Subtotal, in.TotalPrice, sum.Total)
		return nil, false, fmt.Errorf("%w: expected itemsPrice=%s totalPrice=%s", ErrTotalsMismatch, sum.Subtotal, sum.Total)
	}
	o.ItemsPrice = sum.Subtotal
	o.ShippingPrice = sum.Shipping
	o.TotalPrice = sum.Total

	out, created, err := s.repo.Create(ctx, o)
	if err != nil {
		return nil, false, err
	}
	if !created && !sameOrder(*out, o) {
		s.logger.Printf("order service: idempotency key reused order=%s", out.ID)
		return nil, false, ErrKeyReused
	}
	if created && s.notifier != nil {
		s.notifier.OrderCreated(*out)
	}
	return out, created, nil
}

// sameOrder reports whether a replayed request matches the stored order:
// same owner and the same products and quantities.
func sameOrder(stored, req domain.Order) bool {
	switch {
	case stored.UserID == nil && req.UserID == nil:
		if stored.GuestEmail != req.GuestEmail || stored.GuestPhone != req.GuestPhone {
			return false
		}
	case stored.UserID == nil || req.UserID == nil:
		return false
	case *stored.UserID != *req.UserID:
		return false
	}
	if len(stored.Items) != len(req.Items) {
		return false
	}
	for i := range stored.Items {
		a, b := stored.Items[i], req.Items[i]
		if a.ProductID != b.ProductID || a.Quantity != b.Quantity {
			return false
		}
	}
	return true
}

func (s *Service) fillGuest(o *domain.Order, in CreateInput) error {
	o.GuestName = strings.TrimSpace(in.GuestName)
	o.GuestEmail = strings.ToLower(strings.TrimSpace(in.GuestEmail))
	o.GuestPhone = strings.TrimSpace(in.GuestPhone)
	var missing []string
	if o.GuestName == "" {
		missing = append(missing, "guestName")
	}
	if o.GuestEmail == "" {
		missing = append(missing, "guestEmail")
	}
	if o.GuestPhone == "" {
		missing = append(missing, "guestPhone")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidOrder, strings.Join(missing, ", "))
	}
	if _, err := mail.ParseAddress(o.GuestEmail); err != nil {
		return fmt.Errorf("%w: guestEmail is not valid", ErrInvalidOrder)
	}
	return nil
}

// Get returns an order to its owner or an admin. Guest orders are readable
// by anyone holding the id.
func (s *Service) Get(ctx context.Context, id string, requester *domain.User) (*domain.Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.IsGuest() {
		return o, nil
	}
	if requester == nil {
		return nil, ErrForbidden
	}
	if !requester.IsAdmin && *o.UserID != requester.ID {
		return nil, ErrForbidden
	}
	return o, nil
}

func (s *Service) ListMine(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) List(ctx context.Context, page, pageSize int) ([]domain.Order, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	return s.repo.List(ctx, pageSize, (page-1)*pageSize)
}

// UpdateStatus sets the order's status. Repeating the current status is not
// an error.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) (*domain.Order, error) {
	st, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	return s.repo.UpdateStatus(ctx, id, st)
}

// MarkPaid records a payment of amount against the order. The order stays
// unpaid when amount is short of its total.
func (s *Service) MarkPaid(ctx context.Context, id string, amount decimal.Decimal) (*domain.Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if amount.LessThan(o.TotalPrice) {
		s.logger.Printf("order service: underpaid order=%s paid=%s total=%s", id, amount, o.TotalPrice)
		return nil, fmt.Errorf("%w: paid %s of %s", ErrUnderpaid, amount.StringFixed(2), o.TotalPrice.StringFixed(2))
	}
	return s.repo.MarkPaid(ctx, id, s.now().UTC())
}
