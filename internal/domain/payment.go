package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment tracks one mobile-money prompt sent to a customer's phone.
type Payment struct {
	CheckoutRequestID string          `json:"checkoutRequestId"`
	MerchantRequestID string          `json:"merchantRequestId"`
	OrderID           *string         `json:"orderId,omitempty"`
	Phone             string          `json:"phone"`
	Amount            decimal.Decimal `json:"amount"`
	Status            PaymentStatus   `json:"status"`
	ResultCode        int             `json:"resultCode"`
	ResultDesc        string          `json:"resultDesc,omitempty"`
	Receipt           string          `json:"receipt,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}
