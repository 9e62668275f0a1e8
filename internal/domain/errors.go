package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidQuantity is returned for non-positive cart quantities.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidStatus   = errors.New("invalid order status")
	ErrEmptyCart       = errors.New("cart is empty")
)
