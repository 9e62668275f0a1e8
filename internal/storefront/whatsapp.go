package storefront

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/shopspring/decimal"
)

// WhatsAppLink builds a wa.me deep link with a pre-filled order message.
// It records nothing and leaves the cart alone.
func WhatsAppLink(number string, items []domain.CartItem, total decimal.Decimal) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, number)

	var b strings.Builder
	b.WriteString("Hello GameCity, I would like to order:\n")
	for i, it := range items {
		fmt.Fprintf(&b, "%d. %s x%d - KES %s\n", i+1, it.Name, it.Quantity, it.LineTotal().StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: KES %s", total.StringFixed(2))

	return "https://wa.me/" + digits + "?text=" + strings.ReplaceAll(url.QueryEscape(b.String()), "+", "%20")
}
