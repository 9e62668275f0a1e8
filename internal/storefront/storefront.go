// Package storefront is the shopper-side client: it keeps the guest cart
// and favorites locally, talks to the API for everything else, moves the
// guest cart to the server at sign-in and drives checkout.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/b3nzuk3/gameCity-sub000/internal/mpesa"
	"github.com/b3nzuk3/gameCity-sub000/internal/pricing"
	"github.com/shopspring/decimal"
)

type Options struct {
	BaseURL    string
	StatePath  string
	Policy     pricing.ShippingPolicy
	Notifier   Notifier
	HTTPClient *http.Client
	Logger     *log.Logger
}

type Storefront struct {
	store     *LocalStore
	session   *Session
	client    *Client
	guest     *GuestCart
	server    *ServerCart
	migrator  *Migrator
	checkout  *Checkout
	favorites *Favorites
	policy    pricing.ShippingPolicy
	notifier  Notifier
	logger    *log.Logger
}

func New(opts Options) (*Storefront, error) {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.Notifier == nil {
		opts.Notifier = LogNotifier{Logger: opts.Logger}
	}
	store, err := OpenLocalStore(opts.StatePath, opts.Logger)
	if err != nil {
		return nil, err
	}
	session := loadSession(store)
	client := NewClient(opts.BaseURL, session, opts.HTTPClient, opts.Logger)
	server := NewServerCart(client)
	return &Storefront{
		store:     store,
		session:   session,
		client:    client,
		guest:     NewGuestCart(store),
		server:    server,
		migrator:  NewMigrator(store, server, opts.Logger),
		checkout:  NewCheckout(client, session, store, opts.Policy, opts.Notifier),
		favorites: NewFavorites(store),
		policy:    opts.Policy,
		notifier:  opts.Notifier,
		logger:    opts.Logger,
	}, nil
}

func (s *Storefront) Client() *Client { return s.client }
func (s *Storefront) Session() *Session { return s.session }
func (s *Storefront) Favorites() *Favorites { return s.favorites }
func (s *Storefront) Migrator() *Migrator { return s.migrator }
func (s *Storefront) CheckoutState() State { return s.checkout.State() }
func (s *Storefront) CheckoutTrail() []State { return s.checkout.Trail() }

// Cart returns the server cart when signed in and the guest cart otherwise.
func (s *Storefront) Cart() Cart {
	if s.session.Authenticated() {
		return s.server
	}
	return s.guest
}

// Login signs in and then moves any guest cart to the server. A failed
// move is reported but does not fail the login; Resume picks it up later.
func (s *Storefront) Login(ctx context.Context, email, password string) (*domain.User, error) {
	u, err := s.client.Login(ctx, email, password)
	if err != nil {
		s.notifier.Error("sign in failed: " + err.Error())
		return nil, err
	}
	if n, err := s.migrator.Start(ctx); err != nil {
		s.notifier.Error("some cart items could not be moved to your account yet: " + err.Error())
	} else if n > 0 {
		s.notifier.Success(fmt.Sprintf("moved %d items from your guest cart", n))
	}
	s.reportRejected()
	return u, nil
}

// reportRejected tells the shopper which guest items the server refused.
// The list is kept when the notice cannot be cleared from the store.
func (s *Storefront) reportRejected() {
	if len(s.migrator.Rejected()) == 0 {
		return
	}
	items, err := s.migrator.TakeRejected()
	if err != nil {
		s.logger.Printf("storefront: take rejected migration items error=%v", err)
		items = s.migrator.Rejected()
	}
	lines := make([]string, 0, len(items))
	for _, r := range items {
		name := r.Item.Name
		if name == "" {
			name = r.Item.ProductID
		}
		lines = append(lines, fmt.Sprintf("%s x%d (%s)", name, r.Item.Quantity, r.Reason))
	}
	s.notifier.Error(fmt.Sprintf("%d items could not be moved to your account: %s", len(items), strings.Join(lines, "; ")))
}

func (s *Storefront) Logout() error {
	return s.session.Clear()
}

// Resume retries a cart migration left over from an earlier sign-in.
func (s *Storefront) Resume(ctx context.Context) (int, error) {
	if !s.session.Authenticated() {
		return 0, errors.New("sign in to resume the cart migration")
	}
	n, err := s.migrator.Resume(ctx)
	if err != nil {
		s.notifier.Error(err.Error())
	}
	s.reportRejected()
	return n, err
}

// AddToCart adds qty of productID. The guest cart snapshots the product's
// current price; the server cart snapshots it server-side.
func (s *Storefront) AddToCart(ctx context.Context, productID string, qty int) error {
	item := domain.CartItem{ProductID: strings.TrimSpace(productID), Quantity: qty}
	if !s.session.Authenticated() {
		if qty <= 0 {
			return s.report(domain.ErrInvalidQuantity)
		}
		p, err := s.client.Product(ctx, item.ProductID)
		if err != nil {
			return s.report(err)
		}
		item.Name = p.Name
		item.Price = p.EffectivePrice
		item.Image = p.Image
	}
	if err := s.Cart().Add(ctx, item); err != nil {
		return s.report(err)
	}
	return nil
}

func (s *Storefront) SetQuantity(ctx context.Context, productID string, qty int) error {
	return s.report(s.Cart().SetQuantity(ctx, productID, qty))
}

func (s *Storefront) RemoveFromCart(ctx context.Context, productID string) error {
	return s.report(s.Cart().Remove(ctx, productID))
}

func (s *Storefront) ClearCart(ctx context.Context) error {
	return s.report(s.Cart().Clear(ctx))
}

// CartView is the current cart with totals derived on read.
type CartView struct {
	Items []domain.CartItem
	pricing.Summary
}

func (s *Storefront) ViewCart(ctx context.Context) (*CartView, error) {
	items, err := s.Cart().List(ctx)
	if err != nil {
		return nil, s.report(err)
	}
	return &CartView{Items: items, Summary: pricing.Summarize(items, s.policy)}, nil
}

// Checkout submits the current cart as an order.
func (s *Storefront) Checkout(ctx context.Context, guest GuestContact, paymentMethod string) (*domain.Order, error) {
	return s.checkout.Submit(ctx, s.Cart(), guest, paymentMethod)
}

// WhatsApp returns a deep link for ordering the current cart by message.
func (s *Storefront) WhatsApp(ctx context.Context, number string) (string, error) {
	view, err := s.ViewCart(ctx)
	if err != nil {
		return "", err
	}
	return WhatsAppLink(number, view.Items, view.Total), nil
}

// Pay prompts phone for amount, or for the order total when orderID is set
// and amount is zero. Phone and amount are checked before any call.
func (s *Storefront) Pay(ctx context.Context, phone string, amount decimal.Decimal, orderID string) mpesa.Result {
	if _, err := mpesa.NormalizePhone(phone); err != nil {
		s.notifier.Error(err.Error())
		return mpesa.Result{Success: false, Error: err.Error()}
	}
	if orderID == "" || !amount.IsZero() {
		if err := mpesa.ValidateAmount(amount); err != nil {
			s.notifier.Error(err.Error())
			return mpesa.Result{Success: false, Error: err.Error()}
		}
	}
	res, err := s.client.InitiatePayment(ctx, phone, amount, orderID)
	if err != nil {
		res = mpesa.Result{Success: false, Error: err.Error()}
	}
	if res.Success {
		s.notifier.Success(res.Message)
	} else {
		s.notifier.Error(res.Error)
	}
	return res
}

func (s *Storefront) report(err error) error {
	if err != nil {
		s.notifier.Error(err.Error())
	}
	return err
}
