package storefront

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
)

// Migrator moves the guest cart into the signed-in user's server cart
// through a durable queue. Each entry leaves the queue only after the
// server accepted it, so an interrupted run can be resumed without losing
// or repeating items.
type Migrator struct {
	store  *LocalStore
	target Cart
	logger *log.Logger
}

func NewMigrator(store *LocalStore, target Cart, logger *log.Logger) *Migrator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Migrator{store: store, target: target, logger: logger}
}

// MigrationError reports a drain that stopped early.
type MigrationError struct {
	Migrated  int
	Remaining int
	Err       error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("cart migration stopped after %d items, %d remaining: %v", e.Migrated, e.Remaining, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

// Start enqueues the guest cart and clears it in one local write, then
// drains the queue. Entries already queued by an earlier run stay ahead of
// the new ones.
func (m *Migrator) Start(ctx context.Context) (int, error) {
	err := m.store.Update(func(tx *Tx) error {
		var guest, queue []domain.CartItem
		tx.Get(keyGuestCart, &guest)
		if len(guest) == 0 {
			return nil
		}
		tx.Get(keyCartMigration, &queue)
		if err := tx.Set(keyCartMigration, append(queue, guest...)); err != nil {
			return err
		}
		tx.Delete(keyGuestCart)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("queue guest cart: %w", err)
	}
	return m.Resume(ctx)
}

// Pending returns the entries still waiting to reach the server.
func (m *Migrator) Pending() []domain.CartItem {
	var queue []domain.CartItem
	m.store.Get(keyCartMigration, &queue)
	return queue
}

// RejectedItem is a guest cart entry the server refused during migration.
type RejectedItem struct {
	Item   domain.CartItem `json:"item"`
	Reason string          `json:"reason"`
}

// Rejected returns the entries the server refused, oldest first. They stay
// recorded until TakeRejected is called.
func (m *Migrator) Rejected() []RejectedItem {
	var out []RejectedItem
	m.store.Get(keyCartRejected, &out)
	return out
}

// TakeRejected returns the refused entries and forgets them.
func (m *Migrator) TakeRejected() ([]RejectedItem, error) {
	var out []RejectedItem
	err := m.store.Update(func(tx *Tx) error {
		tx.Get(keyCartRejected, &out)
		tx.Delete(keyCartRejected)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Resume sends queued entries one at a time and returns how many were
// accepted. Entries the server refuses move to the rejected list in the same
// write that dequeues them. On failure the rest stay queued and a
// *MigrationError is returned.
func (m *Migrator) Resume(ctx context.Context) (int, error) {
	migrated := 0
	for {
		queue := m.Pending()
		if len(queue) == 0 {
			if migrated > 0 {
				m.logger.Printf("migrator: moved %d guest items to server cart", migrated)
			}
			return migrated, nil
		}
		head := queue[0]
		var refused *RejectedItem
		if err := m.target.Add(ctx, head); err != nil {
			if !rejected(err) {
				m.logger.Printf("migrator: product=%s error=%v", head.ProductID, err)
				return migrated, &MigrationError{Migrated: migrated, Remaining: len(queue), Err: err}
			}
			m.logger.Printf("migrator: rejected product=%s error=%v", head.ProductID, err)
			refused = &RejectedItem{Item: head, Reason: rejectReason(err)}
		}
		err := m.store.Update(func(tx *Tx) error {
			if refused != nil {
				var list []RejectedItem
				tx.Get(keyCartRejected, &list)
				if err := tx.Set(keyCartRejected, append(list, *refused)); err != nil {
					return err
				}
			}
			var current []domain.CartItem
			tx.Get(keyCartMigration, &current)
			if len(current) <= 1 {
				tx.Delete(keyCartMigration)
				return nil
			}
			return tx.Set(keyCartMigration, current[1:])
		})
		if err != nil {
			// the entry is still queued and will be sent again
			return migrated, &MigrationError{Migrated: migrated, Remaining: len(queue), Err: fmt.Errorf("dequeue %s: %w", head.ProductID, err)}
		}
		if refused == nil {
			migrated++
		}
	}
}

func rejectReason(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// rejected reports errors that retrying cannot fix: the product is gone,
// out of stock, or the entry itself is invalid.
func rejected(err error) bool {
	if errors.Is(err, domain.ErrInvalidQuantity) {
		return true
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Status {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict:
		return true
	}
	return false
}
