package storefront

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"sync"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/b3nzuk3/gameCity-sub000/internal/pricing"
	"github.com/google/uuid"
)

type State int

const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateValidating:
		return "VALIDATING"
	case StateSubmitting:
		return "SUBMITTING"
	case StateSucceeded:
		return "SUCCEEDED"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrCheckoutInProgress is returned when Submit is called while an attempt
// is still running.
var ErrCheckoutInProgress = errors.New("checkout already in progress")

// ValidationError lists the fields that blocked a checkout before any
// network call.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Reason, strings.Join(e.Fields, ", "))
}

// GuestContact is required when checking out without a session.
type GuestContact struct {
	Name  string
	Email string
	Phone string
}

type orderSubmitter interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*domain.Order, bool, error)
}

type authState interface {
	Authenticated() bool
}

type pendingCheckout struct {
	Fingerprint string `json:"fingerprint"`
	Key         string `json:"key"`
}

// Checkout turns the current cart into one order. Each attempt walks
// IDLE -> VALIDATING -> SUBMITTING -> SUCCEEDED|FAILED. The idempotency key
// is kept in the local store, bound to the cart contents, so retrying the
// same cart after a lost response cannot create a second order.
type Checkout struct {
	mu       sync.Mutex
	state    State
	trail    []State
	orders   orderSubmitter
	auth     authState
	store    *LocalStore
	policy   pricing.ShippingPolicy
	notifier Notifier
	newKey   func() string
}

func NewCheckout(orders orderSubmitter, auth authState, store *LocalStore, policy pricing.ShippingPolicy, notifier Notifier) *Checkout {
	if notifier == nil {
		notifier = discardNotifier{}
	}
	return &Checkout{
		orders:   orders,
		auth:     auth,
		store:    store,
		policy:   policy,
		notifier: notifier,
		newKey:   uuid.NewString,
	}
}

func (c *Checkout) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Trail returns the states visited by the last attempt, starting at IDLE.
func (c *Checkout) Trail() []State {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]State, len(c.trail))
	copy(out, c.trail)
	return out
}

func (c *Checkout) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateValidating || c.state == StateSubmitting {
		return ErrCheckoutInProgress
	}
	c.state = StateIdle
	c.trail = []State{StateIdle}
	return nil
}

func (c *Checkout) moveTo(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
	c.trail = append(c.trail, s)
}

// Submit runs one checkout attempt against cart. guest is ignored when a
// session is active. On success the cart is cleared; on failure it is left
// as it was.
func (c *Checkout) Submit(ctx context.Context, cart Cart, guest GuestContact, paymentMethod string) (*domain.Order, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}

	c.moveTo(StateValidating)
	items, err := cart.List(ctx)
	if err != nil {
		return nil, c.fail(fmt.Errorf("read cart: %w", err))
	}
	req, err := c.buildRequest(items, guest, paymentMethod)
	if err != nil {
		c.fail(err)
		// nothing was sent, so the attempt can be retried from the start
		c.moveTo(StateIdle)
		return nil, err
	}

	c.moveTo(StateSubmitting)
	key, err := c.keyFor(items)
	if err != nil {
		return nil, c.fail(err)
	}
	req.IdempotencyKey = key

	order, created, err := c.orders.CreateOrder(ctx, req)
	if err != nil {
		return nil, c.fail(fmt.Errorf("submit order: %w", err))
	}

	// The key outlives a failed clear so that resubmitting the same cart
	// replays this order instead of placing a second one.
	if err := cart.Clear(ctx); err != nil {
		c.notifier.Error("order placed but the cart could not be cleared: " + err.Error())
	} else if err := c.store.Delete(keyCheckout); err != nil {
		c.notifier.Error("could not reset checkout state: " + err.Error())
	}
	c.moveTo(StateSucceeded)
	if created {
		c.notifier.Success(fmt.Sprintf("Order %s placed. Total KES %s", order.ID, order.TotalPrice.StringFixed(2)))
	} else {
		c.notifier.Success(fmt.Sprintf("Order %s was already placed", order.ID))
	}
	return order, nil
}

func (c *Checkout) fail(err error) error {
	c.moveTo(StateFailed)
	c.notifier.Error(err.Error())
	return err
}

func (c *Checkout) buildRequest(items []domain.CartItem, guest GuestContact, paymentMethod string) (OrderRequest, error) {
	if len(items) == 0 {
		return OrderRequest{}, &ValidationError{Reason: domain.ErrEmptyCart.Error()}
	}
	req := OrderRequest{PaymentMethod: strings.TrimSpace(paymentMethod)}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "M-Pesa"
	}

	if !c.auth.Authenticated() {
		g := GuestContact{
			Name:  strings.TrimSpace(guest.Name),
			Email: strings.TrimSpace(guest.Email),
			Phone: strings.TrimSpace(guest.Phone),
		}
		var missing []string
		if g.Name == "" {
			missing = append(missing, "name")
		}
		if g.Email == "" {
			missing = append(missing, "email")
		}
		if g.Phone == "" {
			missing = append(missing, "phone")
		}
		if len(missing) > 0 {
			return OrderRequest{}, &ValidationError{Fields: missing, Reason: "guest checkout needs contact details"}
		}
		if _, err := mail.ParseAddress(g.Email); err != nil {
			return OrderRequest{}, &ValidationError{Fields: []string{"email"}, Reason: "email address is not valid"}
		}
		req.GuestName, req.GuestEmail, req.GuestPhone = g.Name, g.Email, g.Phone
	}

	for _, it := range items {
		req.OrderItems = append(req.OrderItems, domain.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Image:     it.Image,
			Quantity:  it.Quantity,
		})
	}
	sum := pricing.Summarize(items, c.policy)
	req.ItemsPrice = sum.Subtotal
	req.ShippingPrice = sum.Shipping
	req.TotalPrice = sum.Total
	return req, nil
}

// keyFor returns the idempotency key for this cart, reusing the stored one
// when the cart has not changed since the last attempt.
func (c *Checkout) keyFor(items []domain.CartItem) (string, error) {
	fp := fingerprint(items)
	var pending pendingCheckout
	if c.store.Get(keyCheckout, &pending) && pending.Fingerprint == fp && pending.Key != "" {
		return pending.Key, nil
	}
	pending = pendingCheckout{Fingerprint: fp, Key: c.newKey()}
	if err := c.store.Set(keyCheckout, pending); err != nil {
		return "", fmt.Errorf("save checkout key: %w", err)
	}
	return pending.Key, nil
}

// fingerprint hashes the cart lines independent of their order.
func fingerprint(items []domain.CartItem) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("%s|%d|%s", it.ProductID, it.Quantity, it.Price.String()))
	}
	sort.Strings(lines)
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}
