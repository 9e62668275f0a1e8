package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/b3nzuk3/gameCity-sub000/internal/mpesa"
	"github.com/shopspring/decimal"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client calls the storefront REST API. A 401 from any call clears the
// session.
type Client struct {
	baseURL string
	http    *http.Client
	session *Session
	logger  *log.Logger
}

func NewClient(baseURL string, session *Session, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient, session: session, logger: logger}
}

func (c *Client) do(ctx context.Context, method, path string, body any, header http.Header, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	if c.session != nil {
		if token := c.session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && c.session != nil && c.session.Authenticated() {
		c.logger.Printf("client: %s %s unauthorized, clearing session", method, path)
		if err := c.session.Clear(); err != nil {
			c.logger.Printf("client: clear session error=%v", err)
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, decodeAPIError(resp)
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &body) == nil {
		msg = body.Message
		if msg == "" {
			msg = body.Error
		}
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

// Login signs in and stores the session.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.User, error) {
	var out struct {
		Token string       `json:"token"`
		User  *domain.User `json:"user"`
	}
	if _, err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password}, nil, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, errors.New("login: empty token in response")
	}
	if err := c.session.set(out.Token, out.User); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Register creates an account. It does not sign in.
func (c *Client) Register(ctx context.Context, name, email, password string) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	_, err := c.do(ctx, http.MethodPost, "/api/auth/register", map[string]string{"name": name, "email": email, "password": password}, nil, &out)
	return out.Message, err
}

func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var out struct {
		User *domain.User `json:"user"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// ProductView is a catalog entry with its offer-adjusted price.
type ProductView struct {
	domain.Product
	EffectivePrice decimal.Decimal `json:"effectivePrice"`
	OnOffer        bool            `json:"onOffer"`
}

type ProductPage struct {
	Products []ProductView `json:"products"`
	Page     int           `json:"page"`
	Pages    int           `json:"pages"`
	Total    int           `json:"total"`
}

func (c *Client) Products(ctx context.Context, query url.Values) (*ProductPage, error) {
	path := "/api/products"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var out ProductPage
	if _, err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Product(ctx context.Context, id string) (*ProductView, error) {
	var out ProductView
	if _, err := c.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type cartResponse struct {
	Items []domain.CartItem `json:"cartItems"`
}

func (c *Client) cart(ctx context.Context) ([]domain.CartItem, error) {
	var out cartResponse
	if _, err := c.do(ctx, http.MethodGet, "/api/cart", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) addCartItem(ctx context.Context, productID string, qty int) error {
	_, err := c.do(ctx, http.MethodPost, "/api/cart/items", map[string]any{"productId": productID, "qty": qty}, nil, nil)
	return err
}

func (c *Client) setCartQuantity(ctx context.Context, productID string, qty int) error {
	_, err := c.do(ctx, http.MethodPut, "/api/cart/items/"+url.PathEscape(productID), map[string]int{"qty": qty}, nil, nil)
	return err
}

func (c *Client) removeCartItem(ctx context.Context, productID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/cart/items/"+url.PathEscape(productID), nil, nil, nil)
	return err
}

func (c *Client) clearCart(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/cart", nil, nil, nil)
	return err
}

// OrderRequest is the order-creation body.
type OrderRequest struct {
	OrderItems     []domain.OrderItem `json:"orderItems"`
	PaymentMethod  string             `json:"paymentMethod"`
	ItemsPrice     decimal.Decimal    `json:"itemsPrice"`
	ShippingPrice  decimal.Decimal    `json:"shippingPrice"`
	TotalPrice     decimal.Decimal    `json:"totalPrice"`
	GuestName      string             `json:"guestName,omitempty"`
	GuestEmail     string             `json:"guestEmail,omitempty"`
	GuestPhone     string             `json:"guestPhone,omitempty"`
	IdempotencyKey string             `json:"idempotencyKey,omitempty"`
}

// CreateOrder submits req. created is false when the server matched the
// idempotency key to an existing order.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*domain.Order, bool, error) {
	header := http.Header{}
	if req.IdempotencyKey != "" {
		header.Set("Idempotency-Key", req.IdempotencyKey)
	}
	var out domain.Order
	status, err := c.do(ctx, http.MethodPost, "/api/orders", req, header, &out)
	if err != nil {
		return nil, false, err
	}
	return &out, status == http.StatusCreated, nil
}

func (c *Client) Order(ctx context.Context, id string) (*domain.Order, error) {
	var out domain.Order
	if _, err := c.do(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MyOrders(ctx context.Context) ([]domain.Order, error) {
	var out []domain.Order
	if _, err := c.do(ctx, http.MethodGet, "/api/orders/mine", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// InitiatePayment asks the server to prompt phone for amount. Rejections
// come back in the Result; the error is for transport failures.
func (c *Client) InitiatePayment(ctx context.Context, phone string, amount decimal.Decimal, orderID string) (mpesa.Result, error) {
	body := map[string]any{"phoneNumber": phone, "amount": amount}
	if orderID != "" {
		body["orderId"] = orderID
	}
	var out mpesa.Result
	_, err := c.do(ctx, http.MethodPost, "/api/payments/mpesa", body, nil, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return mpesa.Result{Success: false, Error: apiErr.Message}, nil
	}
	if err != nil {
		return mpesa.Result{}, err
	}
	return out, nil
}
