package domain

import "time"

// User is a registered storefront account.
type User struct {
	ID                string    `json:"_id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"`
	IsAdmin           bool      `json:"isAdmin"`
	IsVerified        bool      `json:"isVerified"`
	VerificationToken string    `json:"-"`
	CreatedAt         time.Time `json:"createdAt"`
}
