package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/b3nzuk3/gameCity-sub000/internal/mpesa"
	ordersvc "github.com/b3nzuk3/gameCity-sub000/internal/service/order"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownPayment = errors.New("unknown payment")
	ErrAlreadyPaid    = errors.New("order is already paid")
	ErrAmountMismatch = errors.New("amount does not match the order total")
)

type prompter interface {
	SimulatePayment(ctx context.Context, phone string, amount decimal.Decimal, reference string) mpesa.Result
}

type paymentRepo interface {
	Create(ctx context.Context, p domain.Payment) (*domain.Payment, error)
	GetByCheckoutID(ctx context.Context, checkoutRequestID string) (*domain.Payment, error)
	Complete(ctx context.Context, p domain.Payment) (*domain.Payment, error)
}

type orderService interface {
	Get(ctx context.Context, id string, requester *domain.User) (*domain.Order, error)
	MarkPaid(ctx context.Context, id string, amount decimal.Decimal) (*domain.Order, error)
}

type Service struct {
	mpesa  prompter
	repo   paymentRepo
	orders orderService
	logger *log.Logger
}

func New(client prompter, repo paymentRepo, orders orderService, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{mpesa: client, repo: repo, orders: orders, logger: logger}
}

// InitiateInput is the payment-initiation request body. With an OrderID the
// amount is the order total: zero means the total and anything else must
// equal it.
type InitiateInput struct {
	PhoneNumber string          `json:"phoneNumber"`
	Amount      decimal.Decimal `json:"amount"`
	OrderID     string          `json:"orderId,omitempty"`
}

// Initiate sends a payment prompt and records it as pending. Provider and
// validation failures are reported in the Result; the error is reserved for
// order lookups the caller is not allowed to make.
func (s *Service) Initiate(ctx context.Context, in InitiateInput, requester *domain.User) (mpesa.Result, error) {
	amount := in.Amount
	reference := "GameCity"
	var orderID *string

	if id := strings.TrimSpace(in.OrderID); id != "" {
		o, err := s.orders.Get(ctx, id, requester)
		if err != nil {
			return mpesa.Result{}, err
		}
		if o.IsPaid {
			return mpesa.Result{}, ErrAlreadyPaid
		}
		if amount.IsZero() {
			amount = o.TotalPrice
		}
		if !amount.Equal(o.TotalPrice) {
			s.logger.Printf("payment service: amount mismatch order_id=%s amount=%s total=%s", o.ID, amount, o.TotalPrice)
			return mpesa.Result{}, fmt.Errorf("%w: expected %s", ErrAmountMismatch, o.TotalPrice.StringFixed(2))
		}
		orderID = &o.ID
		reference = strings.ToUpper(strings.ReplaceAll(o.ID, "-", ""))
	}

	res := s.mpesa.SimulatePayment(ctx, in.PhoneNumber, amount, reference)
	if !res.Success {
		return res, nil
	}

	_, err := s.repo.Create(ctx, domain.Payment{
		CheckoutRequestID: res.CheckoutRequestID,
		MerchantRequestID: res.MerchantRequestID,
		OrderID:           orderID,
		Phone:             res.Phone,
		Amount:            amount,
		Status:            domain.PaymentPending,
	})
	if err != nil {
		// the prompt is already on the customer's phone; the callback will
		// report an unknown checkout id
		s.logger.Printf("payment service: record checkout_id=%s error=%v", res.CheckoutRequestID, err)
	}
	return res, nil
}

// HandleCallback applies the provider's final result. A replayed callback
// returns the stored payment; the order's paidAt is kept from the first one.
// The order is only marked paid when the amount received covers its total.
func (s *Service) HandleCallback(ctx context.Context, body []byte) (*domain.Payment, error) {
	cb, err := mpesa.ParseCallback(body)
	if err != nil {
		return nil, err
	}

	status := domain.PaymentFailed
	if cb.Succeeded() {
		status = domain.PaymentSucceeded
	}
	p, err := s.repo.Complete(ctx, domain.Payment{
		CheckoutRequestID: cb.CheckoutRequestID,
		Status:            status,
		ResultCode:        cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
		Receipt:           cb.Receipt,
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Printf("payment service: callback for unknown checkout_id=%s", cb.CheckoutRequestID)
			return nil, fmt.Errorf("%w: %s", ErrUnknownPayment, cb.CheckoutRequestID)
		}
		return nil, err
	}

	if cb.Succeeded() && p.Status == domain.PaymentSucceeded && p.OrderID != nil {
		if _, err := s.orders.MarkPaid(ctx, *p.OrderID, cb.Amount); err != nil {
			if errors.Is(err, ordersvc.ErrUnderpaid) {
				s.logger.Printf("payment service: order left unpaid order_id=%s receipt=%s amount=%s", *p.OrderID, p.Receipt, cb.Amount)
				return p, nil
			}
			s.logger.Printf("payment service: mark order paid order_id=%s error=%v", *p.OrderID, err)
			return p, err
		}
		s.logger.Printf("payment service: order paid order_id=%s receipt=%s", *p.OrderID, p.Receipt)
	}
	return p, nil
}

func (s *Service) Status(ctx context.Context, checkoutRequestID string) (*domain.Payment, error) {
	return s.repo.GetByCheckoutID(ctx, checkoutRequestID)
}
