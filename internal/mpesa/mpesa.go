// Package mpesa wraps the Safaricom Daraja STK push API: token caching,
// request signing, phone normalisation and callback decoding.
package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

var (
	ErrInvalidPhone  = errors.New("phone number must have 9 to 12 digits")
	ErrInvalidAmount = errors.New("amount must be between 10 and 150000")
)

var (
	MinAmount = decimal.NewFromInt(10)
	MaxAmount = decimal.NewFromInt(150000)
)

var nairobi = loadNairobi()

func loadNairobi() *time.Location {
	loc, err := time.LoadLocation("Africa/Nairobi")
	if err != nil {
		// no zoneinfo on the host; EAT has no daylight saving
		return time.FixedZone("EAT", 3*60*60)
	}
	return loc
}

type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
	SafetyMargin   time.Duration
}

// Client talks to the payment provider. It is safe for concurrent use.
type Client struct {
	cfg    Config
	http   *http.Client
	store  TokenStore
	logger *log.Logger
	now    func() time.Time
	group  singleflight.Group
}

// New builds a Client. A nil store means a MemoryTokenStore, a nil
// httpClient a client with a 30s timeout.
func New(cfg Config, store TokenStore, httpClient *http.Client, logger *log.Logger) *Client {
	if store == nil {
		store = &MemoryTokenStore{}
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: httpClient, store: store, logger: logger, now: time.Now}
}

// Timestamp formats t as YYYYMMDDHHMMSS in Nairobi time.
func Timestamp(t time.Time) string {
	return t.In(nairobi).Format("20060102150405")
}

// Password is base64(shortCode + passkey + timestamp).
func Password(shortCode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + timestamp))
}

// NormalizePhone strips everything but digits and rewrites local forms
// (07..., 7..., 01...) to the 254 country prefix.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 9 || len(digits) > 12 {
		return "", ErrInvalidPhone
	}
	switch {
	case strings.HasPrefix(digits, "254"):
	case strings.HasPrefix(digits, "0"):
		digits = "254" + digits[1:]
	default:
		digits = "254" + digits
	}
	if len(digits) != 12 {
		return "", ErrInvalidPhone
	}
	return digits, nil
}

// ValidateAmount checks the provider's per-transaction bounds.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThan(MinAmount) || amount.GreaterThan(MaxAmount) {
		return ErrInvalidAmount
	}
	return nil
}

// Result is the outcome of a payment prompt. Failures are reported here
// rather than as Go errors.
type Result struct {
	Success           bool   `json:"success"`
	Message           string `json:"message,omitempty"`
	Error             string `json:"error,omitempty"`
	CheckoutRequestID string `json:"checkoutRequestId,omitempty"`
	MerchantRequestID string `json:"merchantRequestId,omitempty"`
	Phone             string `json:"-"`
}

func failure(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

type stkRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// SimulatePayment validates the inputs and sends an STK push prompt to the
// customer's phone. Amounts are rounded up to whole shillings.
func (c *Client) SimulatePayment(ctx context.Context, phone string, amount decimal.Decimal, reference string) Result {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return failure(err)
	}
	if err := ValidateAmount(amount); err != nil {
		return failure(err)
	}

	token, err := c.Token(ctx)
	if err != nil {
		c.logger.Printf("mpesa: token error=%v", err)
		return failure(fmt.Errorf("payment provider unavailable: %w", err))
	}

	ts := Timestamp(c.now())
	if reference == "" {
		reference = "GameCity"
	}
	if len(reference) > 12 {
		reference = reference[:12]
	}
	payload := stkRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          Password(c.cfg.ShortCode, c.cfg.Passkey, ts),
		Timestamp:         ts,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            amount.Ceil().IntPart(),
		PartyA:            normalized,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       normalized,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  reference,
		TransactionDesc:   "GameCity order payment",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return failure(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(body))
	if err != nil {
		return failure(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Printf("mpesa: stk push phone=%s error=%v", mask(normalized), err)
		return failure(fmt.Errorf("payment provider unreachable: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// token revoked early; the next attempt exchanges again
		if err := c.Invalidate(ctx); err != nil {
			c.logger.Printf("mpesa: invalidate token error=%v", err)
		}
	}
	if resp.StatusCode != http.StatusOK {
		perr := providerError(resp)
		c.logger.Printf("mpesa: stk push phone=%s status=%d error=%v", mask(normalized), resp.StatusCode, perr)
		return failure(perr)
	}

	var out stkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return failure(fmt.Errorf("decode provider response: %w", err))
	}
	if out.ResponseCode != "0" {
		return failure(fmt.Errorf("provider rejected request: %s", out.ResponseDescription))
	}
	c.logger.Printf("mpesa: stk push sent phone=%s checkout_id=%s", mask(normalized), out.CheckoutRequestID)

	msg := out.CustomerMessage
	if msg == "" {
		msg = "Payment prompt sent. Enter your M-Pesa PIN to complete."
	}
	return Result{
		Success:           true,
		Message:           msg,
		CheckoutRequestID: out.CheckoutRequestID,
		MerchantRequestID: out.MerchantRequestID,
		Phone:             normalized,
	}
}

type errorBody struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func providerError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body errorBody
	if json.Unmarshal(raw, &body) == nil && body.ErrorMessage != "" {
		return fmt.Errorf("provider error %d (%s): %s", resp.StatusCode, body.ErrorCode, body.ErrorMessage)
	}
	return fmt.Errorf("provider error %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
}

// mask keeps the country prefix and last three digits for log lines.
func mask(phone string) string {
	if len(phone) < 6 {
		return "***"
	}
	return phone[:3] + strings.Repeat("*", len(phone)-6) + phone[len(phone)-3:]
}
