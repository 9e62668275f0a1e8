package user

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "gamecity"

type tokenClaims struct {
	Admin bool `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

type tokenMeta struct {
	UserID    string
	Admin     bool
	ExpiresAt time.Time
}

// tokenManager issues and checks HS256 bearer tokens. Tokens are not stored;
// they stay valid until they expire.
type tokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func newTokenManager(secret string, ttl time.Duration) *tokenManager {
	return &tokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (m *tokenManager) Issue(userID string, admin bool) (string, time.Time, error) {
	if len(m.secret) == 0 {
		return "", time.Time{}, errors.New("token secret not configured")
	}
	now := m.now()
	exp := now.Add(m.ttl)
	claims := tokenClaims{
		Admin: admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (m *tokenManager) Validate(token string) (tokenMeta, bool) {
	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return tokenMeta{}, false
	}
	return tokenMeta{UserID: claims.Subject, Admin: claims.Admin, ExpiresAt: claims.ExpiresAt.Time}, true
}
