package mpesa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
)

// TokenStore keeps the current access token. Implementations must return
// domain.ErrNotFound from Load when nothing is stored.
type TokenStore interface {
	Load(ctx context.Context) (*domain.ProviderToken, error)
	Save(ctx context.Context, t domain.ProviderToken) error
}

// MemoryTokenStore is a process-local TokenStore. Each API instance keeps
// its own token; use the Postgres store to share one across instances.
type MemoryTokenStore struct {
	mu  sync.Mutex
	tok *domain.ProviderToken
}

func (s *MemoryTokenStore) Load(context.Context) (*domain.ProviderToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tok == nil {
		return nil, domain.ErrNotFound
	}
	out := *s.tok
	return &out, nil
}

func (s *MemoryTokenStore) Save(_ context.Context, t domain.ProviderToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok = &t
	return nil
}

// Token returns a valid access token, exchanging credentials when the
// stored one is missing or expired. Concurrent callers share one exchange.
func (c *Client) Token(ctx context.Context) (string, error) {
	if tok, ok := c.cached(ctx); ok {
		return tok, nil
	}
	v, err, _ := c.group.Do("token", func() (any, error) {
		if tok, ok := c.cached(ctx); ok {
			return tok, nil
		}
		tok, err := c.exchange(ctx)
		if err != nil {
			return "", err
		}
		if err := c.store.Save(ctx, *tok); err != nil {
			// the token is still usable for this call
			c.logger.Printf("mpesa: save token error=%v", err)
		}
		return tok.Value, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the stored token so the next Token call exchanges again.
func (c *Client) Invalidate(ctx context.Context) error {
	return c.store.Save(ctx, domain.ProviderToken{})
}

func (c *Client) cached(ctx context.Context) (string, bool) {
	tok, err := c.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			c.logger.Printf("mpesa: load token error=%v", err)
		}
		return "", false
	}
	if !tok.ValidAt(c.now()) {
		return "", false
	}
	return tok.Value, true
}

type tokenResponse struct {
	AccessToken string  `json:"access_token"`
	ExpiresIn   seconds `json:"expires_in"`
}

// seconds accepts both 3599 and "3599"; the sandbox sends a string.
type seconds int64

func (s *seconds) UnmarshalJSON(b []byte) error {
	n, err := strconv.ParseInt(strings.Trim(string(b), `"`), 10, 64)
	if err != nil {
		return fmt.Errorf("expires_in: %w", err)
	}
	*s = seconds(n)
	return nil
}

func (c *Client) exchange(ctx context.Context) (*domain.ProviderToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)
	req.Header.Set("Accept", "application/json")

	issued := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange: %w", providerError(resp))
	}
	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("token exchange: decode: %w", err)
	}
	if body.AccessToken == "" {
		return nil, errors.New("token exchange: empty access token")
	}

	lifetime := time.Duration(body.ExpiresIn)*time.Second - c.cfg.SafetyMargin
	if lifetime < 0 {
		lifetime = 0
	}
	c.logger.Printf("mpesa: token exchanged expires_in=%ds", body.ExpiresIn)
	return &domain.ProviderToken{Value: body.AccessToken, ExpiresAt: issued.Add(lifetime)}, nil
}
