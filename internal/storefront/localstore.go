package storefront

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Keys used in the local store.
const (
	keyGuestCart     = "guestCart"
	keyFavorites     = "favorites"
	keyCartMigration = "cartMigration"
	keyCartRejected  = "cartMigrationRejected"
	keySession       = "session"
	keyCheckout      = "pendingCheckout"
)

// LocalStore is a small key/value file standing in for browser local
// storage. Values are JSON documents; the whole file is rewritten on each
// update.
type LocalStore struct {
	mu      sync.Mutex
	path    string
	data    map[string]json.RawMessage
	logger  *log.Logger
	persist func(map[string]json.RawMessage) error
}

// OpenLocalStore loads path, creating an empty store when it does not
// exist. A corrupt file is discarded and logged.
func OpenLocalStore(path string, logger *log.Logger) (*LocalStore, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &LocalStore{path: path, data: make(map[string]json.RawMessage), logger: logger}
	s.persist = s.write
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read local store: %w", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.data); err != nil {
			logger.Printf("local store: discarding corrupt file path=%s error=%v", path, err)
			s.data = make(map[string]json.RawMessage)
		}
	}
	return s, nil
}

// Get decodes key into out and reports whether a usable value was found.
// A value that no longer decodes is treated as absent.
func (s *LocalStore) Get(key string, out any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(s.data, key, out)
}

func (s *LocalStore) get(data map[string]json.RawMessage, key string, out any) bool {
	raw, ok := data[key]
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.logger.Printf("local store: ignoring malformed key=%s error=%v", key, err)
		return false
	}
	return true
}

// Set stores v under key.
func (s *LocalStore) Set(key string, v any) error {
	return s.Update(func(tx *Tx) error { return tx.Set(key, v) })
}

// Delete removes key. Missing keys are not an error.
func (s *LocalStore) Delete(key string) error {
	return s.Update(func(tx *Tx) error {
		tx.Delete(key)
		return nil
	})
}

// Tx is a staged set of changes applied by Update.
type Tx struct {
	store *LocalStore
	data  map[string]json.RawMessage
}

func (tx *Tx) Get(key string, out any) bool {
	return tx.store.get(tx.data, key, out)
}

func (tx *Tx) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	tx.data[key] = raw
	return nil
}

func (tx *Tx) Delete(key string) {
	delete(tx.data, key)
}

// Update runs fn against a copy of the store and persists the result in
// one write. If fn or the write fails, nothing changes.
func (s *LocalStore) Update(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[string]json.RawMessage, len(s.data))
	for k, v := range s.data {
		staged[k] = v
	}
	if err := fn(&Tx{store: s, data: staged}); err != nil {
		return err
	}
	if err := s.persist(staged); err != nil {
		return err
	}
	s.data = staged
	return nil
}

func (s *LocalStore) write(data map[string]json.RawMessage) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode local store: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create local store dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".store-*")
	if err != nil {
		return fmt.Errorf("write local store: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write local store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write local store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("write local store: %w", err)
	}
	return nil
}
