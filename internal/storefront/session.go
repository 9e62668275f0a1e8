package storefront

import (
	"sync"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
)

type sessionData struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user,omitempty"`
}

// Session holds the bearer token and signed-in user, persisted in the
// local store so it survives restarts.
type Session struct {
	mu    sync.RWMutex
	store *LocalStore
	data  sessionData
}

func loadSession(store *LocalStore) *Session {
	s := &Session{store: store}
	store.Get(keySession, &s.data)
	return s
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Token
}

func (s *Session) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.User
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

func (s *Session) set(token string, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := sessionData{Token: token, User: u}
	if err := s.store.Set(keySession, next); err != nil {
		return err
	}
	s.data = next
	return nil
}

// Clear signs the user out locally. The in-memory session is dropped even
// if the store cannot be written.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = sessionData{}
	return s.store.Delete(keySession)
}
