package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// ParseOrderStatus maps a case-insensitive status name to an OrderStatus.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(strings.ToLower(strings.TrimSpace(s))) {
	case OrderStatusPending:
		return OrderStatusPending, nil
	case OrderStatusProcessing:
		return OrderStatusProcessing, nil
	case OrderStatusShipped:
		return OrderStatusShipped, nil
	case OrderStatusDelivered:
		return OrderStatusDelivered, nil
	case OrderStatusCancelled:
		return OrderStatusCancelled, nil
	default:
		return "", ErrInvalidStatus
	}
}

// OrderItem is a frozen copy of a cart line at checkout time.
type OrderItem struct {
	ProductID string          `json:"product"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
	Quantity  int             `json:"qty"`
}

type Order struct {
	ID             string          `json:"_id"`
	UserID         *string         `json:"user,omitempty"`
	GuestName      string          `json:"guestName,omitempty"`
	GuestEmail     string          `json:"guestEmail,omitempty"`
	GuestPhone     string          `json:"guestPhone,omitempty"`
	Items          []OrderItem     `json:"orderItems"`
	PaymentMethod  string          `json:"paymentMethod"`
	ItemsPrice     decimal.Decimal `json:"itemsPrice"`
	ShippingPrice  decimal.Decimal `json:"shippingPrice"`
	TotalPrice     decimal.Decimal `json:"totalPrice"`
	IsPaid         bool            `json:"isPaid"`
	PaidAt         *time.Time      `json:"paidAt,omitempty"`
	IsDelivered    bool            `json:"isDelivered"`
	DeliveredAt    *time.Time      `json:"deliveredAt,omitempty"`
	Status         OrderStatus     `json:"status"`
	IdempotencyKey string          `json:"-"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// IsGuest reports whether the order was placed without an account.
func (o Order) IsGuest() bool {
	return o.UserID == nil
}
