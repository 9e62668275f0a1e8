package mpesa

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Callback is the provider's final word on one STK push.
type Callback struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Amount            decimal.Decimal
	Receipt           string
	Phone             string
	TransactionDate   time.Time
}

// Succeeded reports whether the customer completed the payment.
func (c Callback) Succeeded() bool {
	return c.ResultCode == 0
}

type callbackEnvelope struct {
	Body struct {
		StkCallback *struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string          `json:"Name"`
					Value json.RawMessage `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// ParseCallback decodes an STK callback body. Metadata is only present on
// successful payments.
func ParseCallback(body []byte) (*Callback, error) {
	var env callbackEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode callback: %w", err)
	}
	stk := env.Body.StkCallback
	if stk == nil || stk.CheckoutRequestID == "" {
		return nil, errors.New("decode callback: missing stkCallback")
	}

	out := &Callback{
		MerchantRequestID: stk.MerchantRequestID,
		CheckoutRequestID: stk.CheckoutRequestID,
		ResultCode:        stk.ResultCode,
		ResultDesc:        stk.ResultDesc,
	}
	for _, item := range stk.CallbackMetadata.Item {
		raw := scalar(item.Value)
		switch item.Name {
		case "Amount":
			if d, err := decimal.NewFromString(raw); err == nil {
				out.Amount = d
			}
		case "MpesaReceiptNumber":
			out.Receipt = raw
		case "PhoneNumber":
			out.Phone = raw
		case "TransactionDate":
			if t, err := time.ParseInLocation("20060102150405", raw, nairobi); err == nil {
				out.TransactionDate = t
			}
		}
	}
	return out, nil
}

// scalar renders a JSON string or number without quotes or exponent.
func scalar(v json.RawMessage) string {
	var s string
	if json.Unmarshal(v, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(v, &n) == nil {
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}
	return string(v)
}
