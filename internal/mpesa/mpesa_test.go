package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	exchanges atomic.Int32
	pushes    atomic.Int32
	lastPush  stkRequest
	mu        sync.Mutex
	pushCode  int
	delay     time.Duration
}

func (f *fakeProvider) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.exchanges.Add(1)
		time.Sleep(f.delay)
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":"3599"}`))
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		f.pushes.Add(1)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		f.mu.Lock()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastPush))
		code := f.pushCode
		f.mu.Unlock()
		if code != 0 {
			w.WriteHeader(code)
			_, _ = w.Write([]byte(`{"requestId":"1","errorCode":"500.001.1001","errorMessage":"Unable to lock subscriber"}`))
			return
		}
		_, _ = w.Write([]byte(`{"MerchantRequestID":"mr-1","CheckoutRequestID":"ws_CO_1","ResponseCode":"0","ResponseDescription":"Success","CustomerMessage":"Success. Request accepted for processing"}`))
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeProvider) (*Client, *time.Time) {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	c := New(Config{
		BaseURL:        srv.URL,
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		ShortCode:      "174379",
		Passkey:        "pk",
		CallbackURL:    "https://example.com/cb",
		SafetyMargin:   60 * time.Second,
	}, nil, srv.Client(), nil)
	now := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestToken_CachedUntilExpiry(t *testing.T) {
	f := &fakeProvider{}
	c, now := newTestClient(t, f)
	ctx := context.Background()

	first, err := c.Token(ctx)
	require.NoError(t, err)
	second, err := c.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", first)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, f.exchanges.Load())

	// expires_in 3599 minus the 60s margin
	*now = now.Add(3538 * time.Second)
	_, err = c.Token(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.exchanges.Load())

	*now = now.Add(time.Second)
	_, err = c.Token(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, f.exchanges.Load())
}

func TestToken_InvalidateForcesExchange(t *testing.T) {
	f := &fakeProvider{}
	c, _ := newTestClient(t, f)
	ctx := context.Background()

	_, err := c.Token(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx))
	_, err = c.Token(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, f.exchanges.Load())
}

func TestToken_ConcurrentCallersShareExchange(t *testing.T) {
	f := &fakeProvider{delay: 50 * time.Millisecond}
	c, _ := newTestClient(t, f)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Token(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, f.exchanges.Load())
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
		err  error
	}{
		{"0712345678", "254712345678", nil},
		{"+254 712 345 678", "254712345678", nil},
		{"712345678", "254712345678", nil},
		{"0112-345-678", "254112345678", nil},
		{"254712345678", "254712345678", nil},
		{"12345", "", ErrInvalidPhone},
		{"07123456789012", "", ErrInvalidPhone},
		{"", "", ErrInvalidPhone},
	}
	for _, tc := range cases {
		got, err := NormalizePhone(tc.in)
		assert.Equal(t, tc.want, got, tc.in)
		assert.ErrorIs(t, err, tc.err, tc.in)
	}
}

func TestPasswordAndTimestamp(t *testing.T) {
	ts := Timestamp(time.Date(2025, 3, 1, 9, 30, 5, 0, time.UTC))
	assert.Equal(t, "20250301123005", ts)

	raw, err := base64.StdEncoding.DecodeString(Password("174379", "pk", ts))
	require.NoError(t, err)
	assert.Equal(t, "174379pk20250301123005", string(raw))
}

func TestSimulatePayment_SendsNormalizedPhone(t *testing.T) {
	f := &fakeProvider{}
	c, _ := newTestClient(t, f)

	res := c.SimulatePayment(context.Background(), "0712345678", decimal.RequireFromString("3499.50"), "ORDER-1234567890")

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "ws_CO_1", res.CheckoutRequestID)
	assert.Equal(t, "254712345678", f.lastPush.PhoneNumber)
	assert.Equal(t, "254712345678", f.lastPush.PartyA)
	assert.EqualValues(t, 3500, f.lastPush.Amount)
	assert.Equal(t, "ORDER-123456", f.lastPush.AccountReference)
	assert.Equal(t, Password("174379", "pk", f.lastPush.Timestamp), f.lastPush.Password)
}

func TestSimulatePayment_ValidationSkipsProvider(t *testing.T) {
	f := &fakeProvider{}
	c, _ := newTestClient(t, f)
	ctx := context.Background()

	res := c.SimulatePayment(ctx, "12", decimal.NewFromInt(100), "")
	assert.False(t, res.Success)
	assert.Equal(t, ErrInvalidPhone.Error(), res.Error)

	res = c.SimulatePayment(ctx, "0712345678", decimal.NewFromInt(5), "")
	assert.False(t, res.Success)
	assert.Equal(t, ErrInvalidAmount.Error(), res.Error)

	res = c.SimulatePayment(ctx, "0712345678", decimal.NewFromInt(150001), "")
	assert.False(t, res.Success)

	assert.EqualValues(t, 0, f.exchanges.Load())
	assert.EqualValues(t, 0, f.pushes.Load())
}

func TestSimulatePayment_ProviderErrorIsResult(t *testing.T) {
	f := &fakeProvider{pushCode: http.StatusInternalServerError}
	c, _ := newTestClient(t, f)

	res := c.SimulatePayment(context.Background(), "0712345678", decimal.NewFromInt(100), "")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Unable to lock subscriber")
}

func TestSimulatePayment_UnreachableProvider(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1", ConsumerKey: "key", ConsumerSecret: "secret"}, nil, nil, nil)

	res := c.SimulatePayment(context.Background(), "0712345678", decimal.NewFromInt(100), "")
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestParseCallback(t *testing.T) {
	body := []byte(`{"Body":{"stkCallback":{"MerchantRequestID":"mr-1","CheckoutRequestID":"ws_CO_1","ResultCode":0,"ResultDesc":"The service request is processed successfully.","CallbackMetadata":{"Item":[{"Name":"Amount","Value":3500.00},{"Name":"MpesaReceiptNumber","Value":"NLJ7RT61SV"},{"Name":"Balance"},{"Name":"TransactionDate","Value":20250301123005},{"Name":"PhoneNumber","Value":254712345678}]}}}}`)

	cb, err := ParseCallback(body)
	require.NoError(t, err)
	assert.True(t, cb.Succeeded())
	assert.Equal(t, "ws_CO_1", cb.CheckoutRequestID)
	assert.Equal(t, "NLJ7RT61SV", cb.Receipt)
	assert.Equal(t, "254712345678", cb.Phone)
	assert.True(t, cb.Amount.Equal(decimal.NewFromInt(3500)))
	assert.True(t, cb.TransactionDate.Equal(time.Date(2025, 3, 1, 9, 30, 5, 0, time.UTC)))

	cancelled, err := ParseCallback([]byte(`{"Body":{"stkCallback":{"MerchantRequestID":"mr-2","CheckoutRequestID":"ws_CO_2","ResultCode":1032,"ResultDesc":"Request cancelled by user"}}}`))
	require.NoError(t, err)
	assert.False(t, cancelled.Succeeded())
	assert.Empty(t, cancelled.Receipt)

	_, err = ParseCallback([]byte(`{"Body":{}}`))
	assert.Error(t, err)
}
