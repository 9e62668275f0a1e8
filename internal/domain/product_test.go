package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestEffectivePrice(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	window := func(typ OfferType, value int64) *Offer {
		return &Offer{
			Type:     typ,
			Value:    decimal.NewFromInt(value),
			StartsAt: now.Add(-time.Hour),
			EndsAt:   now.Add(time.Hour),
		}
	}

	cases := []struct {
		name  string
		offer *Offer
		at    time.Time
		want  string
	}{
		{"no offer", nil, now, "1000"},
		{"percentage", window(OfferPercentage, 15), now, "850"},
		{"fixed", window(OfferFixed, 250), now, "750"},
		{"fixed above price", window(OfferFixed, 5000), now, "0"},
		{"before window", window(OfferPercentage, 15), now.Add(-2 * time.Hour), "1000"},
		{"end is exclusive", window(OfferPercentage, 15), now.Add(time.Hour), "1000"},
		{"unknown type", window(OfferType("bogo"), 15), now, "1000"},
	}
	for _, tc := range cases {
		p := Product{Price: decimal.NewFromInt(1000), Offer: tc.offer}
		got := p.EffectivePrice(tc.at)
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	got, err := ParseOrderStatus(" Shipped ")
	if err != nil || got != OrderStatusShipped {
		t.Fatalf("expected shipped, got %q err=%v", got, err)
	}
	if _, err := ParseOrderStatus("lost"); err != ErrInvalidStatus {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}
