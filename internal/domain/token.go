package domain

import "time"

// ProviderToken is a bearer token issued by an external API.
type ProviderToken struct {
	Value     string
	ExpiresAt time.Time
}

// ValidAt reports whether the token can still be used at now.
func (t ProviderToken) ValidAt(now time.Time) bool {
	return t.Value != "" && now.Before(t.ExpiresAt)
}
