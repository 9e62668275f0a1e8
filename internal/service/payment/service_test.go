package payment

import (
	"context"
	"fmt"
	"testing"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/b3nzuk3/gameCity-sub000/internal/mpesa"
	ordersvc "github.com/b3nzuk3/gameCity-sub000/internal/service/order"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPrompter struct {
	calls  int
	amount decimal.Decimal
	ref    string
	result mpesa.Result
}

func (s *stubPrompter) SimulatePayment(_ context.Context, _ string, amount decimal.Decimal, reference string) mpesa.Result {
	s.calls++
	s.amount = amount
	s.ref = reference
	return s.result
}

type memoryPayments map[string]domain.Payment

func (m memoryPayments) Create(_ context.Context, p domain.Payment) (*domain.Payment, error) {
	m[p.CheckoutRequestID] = p
	return &p, nil
}

func (m memoryPayments) GetByCheckoutID(_ context.Context, id string) (*domain.Payment, error) {
	p, ok := m[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m memoryPayments) Complete(_ context.Context, p domain.Payment) (*domain.Payment, error) {
	stored, ok := m[p.CheckoutRequestID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if stored.Status != domain.PaymentPending {
		return &stored, nil
	}
	stored.Status = p.Status
	stored.ResultCode = p.ResultCode
	stored.ResultDesc = p.ResultDesc
	stored.Receipt = p.Receipt
	m[p.CheckoutRequestID] = stored
	return &stored, nil
}

type stubOrders struct {
	orders map[string]*domain.Order
	paid   []string
}

func (s *stubOrders) Get(_ context.Context, id string, _ *domain.User) (*domain.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func (s *stubOrders) MarkPaid(_ context.Context, id string, amount decimal.Decimal) (*domain.Order, error) {
	o := s.orders[id]
	if amount.LessThan(o.TotalPrice) {
		return nil, ordersvc.ErrUnderpaid
	}
	s.paid = append(s.paid, id)
	o.IsPaid = true
	return o, nil
}

const orderID = "0b6f7a52-8a7e-4c61-9a35-3f3c2f6d9e10"

func newFixture() (*Service, *stubPrompter, memoryPayments, *stubOrders) {
	prompter := &stubPrompter{result: mpesa.Result{Success: true, CheckoutRequestID: "ws_CO_1", MerchantRequestID: "mr-1", Phone: "254712345678"}}
	payments := memoryPayments{}
	orders := &stubOrders{orders: map[string]*domain.Order{
		orderID: {ID: orderID, TotalPrice: decimal.NewFromInt(3500)},
	}}
	return New(prompter, payments, orders, nil), prompter, payments, orders
}

func callbackBody(code int) []byte {
	if code != 0 {
		return []byte(`{"Body":{"stkCallback":{"MerchantRequestID":"mr-1","CheckoutRequestID":"ws_CO_1","ResultCode":1032,"ResultDesc":"Request cancelled by user"}}}`)
	}
	return paidCallback(3500)
}

func paidCallback(amount int) []byte {
	return []byte(fmt.Sprintf(`{"Body":{"stkCallback":{"MerchantRequestID":"mr-1","CheckoutRequestID":"ws_CO_1","ResultCode":0,"ResultDesc":"ok","CallbackMetadata":{"Item":[{"Name":"Amount","Value":%d},{"Name":"MpesaReceiptNumber","Value":"NLJ7RT61SV"}]}}}}`, amount))
}

func TestInitiate_UsesOrderTotal(t *testing.T) {
	svc, prompter, payments, _ := newFixture()

	res, err := svc.Initiate(context.Background(), InitiateInput{PhoneNumber: "0712345678", OrderID: orderID}, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, prompter.amount.Equal(decimal.NewFromInt(3500)))
	assert.Equal(t, "0B6F7A528A7E4C619A353F3C2F6D9E10", prompter.ref)

	stored := payments["ws_CO_1"]
	require.NotNil(t, stored.OrderID)
	assert.Equal(t, orderID, *stored.OrderID)
	assert.Equal(t, domain.PaymentPending, stored.Status)
	assert.Equal(t, "254712345678", stored.Phone)
}

func TestInitiate_FailureIsNotRecorded(t *testing.T) {
	svc, prompter, payments, _ := newFixture()
	prompter.result = mpesa.Result{Success: false, Error: "amount must be between 10 and 150000"}

	res, err := svc.Initiate(context.Background(), InitiateInput{PhoneNumber: "0712345678", Amount: decimal.NewFromInt(5)}, nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Empty(t, payments)
}

func TestInitiate_PaidOrderRejected(t *testing.T) {
	svc, prompter, _, orders := newFixture()
	orders.orders[orderID].IsPaid = true

	_, err := svc.Initiate(context.Background(), InitiateInput{PhoneNumber: "0712345678", OrderID: orderID}, nil)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	assert.Zero(t, prompter.calls)
}

func TestInitiate_AmountMustMatchOrderTotal(t *testing.T) {
	svc, prompter, payments, _ := newFixture()
	ctx := context.Background()

	_, err := svc.Initiate(ctx, InitiateInput{PhoneNumber: "0712345678", Amount: decimal.NewFromInt(10), OrderID: orderID}, nil)
	assert.ErrorIs(t, err, ErrAmountMismatch)
	assert.Zero(t, prompter.calls)
	assert.Empty(t, payments)

	res, err := svc.Initiate(ctx, InitiateInput{PhoneNumber: "0712345678", Amount: decimal.RequireFromString("3500.00"), OrderID: orderID}, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, prompter.amount.Equal(decimal.NewFromInt(3500)))
}

func TestHandleCallback_ShortPaymentLeavesOrderUnpaid(t *testing.T) {
	svc, _, payments, orders := newFixture()
	ctx := context.Background()
	// a pending row for the order whose callback reports only 10 KES
	id := orderID
	payments["ws_CO_1"] = domain.Payment{CheckoutRequestID: "ws_CO_1", OrderID: &id, Amount: decimal.NewFromInt(3500), Status: domain.PaymentPending}

	p, err := svc.HandleCallback(ctx, paidCallback(10))
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSucceeded, p.Status)
	assert.Empty(t, orders.paid)
	assert.False(t, orders.orders[orderID].IsPaid)
}

func TestHandleCallback_MarksOrderPaidOnce(t *testing.T) {
	svc, _, _, orders := newFixture()
	ctx := context.Background()
	_, err := svc.Initiate(ctx, InitiateInput{PhoneNumber: "0712345678", OrderID: orderID}, nil)
	require.NoError(t, err)

	p, err := svc.HandleCallback(ctx, callbackBody(0))
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSucceeded, p.Status)
	assert.Equal(t, "NLJ7RT61SV", p.Receipt)
	assert.Equal(t, []string{orderID}, orders.paid)

	// replay with a different result does not undo the payment
	p, err = svc.HandleCallback(ctx, callbackBody(1032))
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSucceeded, p.Status)
}

func TestHandleCallback_Failure(t *testing.T) {
	svc, _, _, orders := newFixture()
	ctx := context.Background()
	_, err := svc.Initiate(ctx, InitiateInput{PhoneNumber: "0712345678", OrderID: orderID}, nil)
	require.NoError(t, err)

	p, err := svc.HandleCallback(ctx, callbackBody(1032))
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentFailed, p.Status)
	assert.Equal(t, 1032, p.ResultCode)
	assert.Empty(t, orders.paid)
}

func TestHandleCallback_Unknown(t *testing.T) {
	svc, _, _, _ := newFixture()

	_, err := svc.HandleCallback(context.Background(), callbackBody(0))
	assert.ErrorIs(t, err, ErrUnknownPayment)

	_, err = svc.HandleCallback(context.Background(), []byte(`not json`))
	assert.Error(t, err)
}
