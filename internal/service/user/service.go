package user

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	userrepo "github.com/b3nzuk3/gameCity-sub000/internal/repository/user"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned when email/password do not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates the provided token could not be validated.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNotVerified blocks login until the email address is confirmed.
	ErrNotVerified = errors.New("email address not verified")
	// ErrInvalidInput wraps registration validation failures.
	ErrInvalidInput = errors.New("invalid input")
)

// VerificationSender delivers the email-confirmation link to a new user.
type VerificationSender interface {
	SendVerification(ctx context.Context, u domain.User, link string) error
}

// LogSender writes verification links to a logger instead of sending mail.
type LogSender struct {
	Logger *log.Logger
}

func (s LogSender) SendVerification(_ context.Context, u domain.User, link string) error {
	if s.Logger != nil {
		s.Logger.Printf("verification: email=%s link=%s", u.Email, link)
	}
	return nil
}

// Options configures a Service.
type Options struct {
	Secret    string
	TokenTTL  time.Duration
	PublicURL string
	Sender    VerificationSender
	Logger    *log.Logger
}

// Service handles registration, verification and login.
type Service struct {
	repo        userrepo.Repository
	tokens      *tokenManager
	sender      VerificationSender
	publicURL   string
	passwordMin int
	logger      *log.Logger
}

func New(repo userrepo.Repository, opts Options) *Service {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 7 * 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.Sender == nil {
		opts.Sender = LogSender{Logger: opts.Logger}
	}
	return &Service{
		repo:        repo,
		tokens:      newTokenManager(opts.Secret, opts.TokenTTL),
		sender:      opts.Sender,
		publicURL:   strings.TrimRight(opts.PublicURL, "/"),
		passwordMin: 8,
		logger:      opts.Logger,
	}
}

// RegisterInput captures fields expected by the register endpoint.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an unverified account and sends its verification link.
// It does not log the user in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name required", ErrInvalidInput)
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	password := strings.TrimSpace(in.Password)
	if err := validatePassword(password, s.passwordMin); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	token, err := randomToken()
	if err != nil {
		return nil, err
	}

	u, err := s.repo.Create(ctx, domain.User{
		Name:              name,
		Email:             email,
		PasswordHash:      string(hashed),
		VerificationToken: token,
	})
	if err != nil {
		return nil, err
	}

	link := s.publicURL + "/api/auth/verify?token=" + url.QueryEscape(token)
	if err := s.sender.SendVerification(ctx, *u, link); err != nil {
		// the account exists; the user can ask an admin to verify it
		s.logger.Printf("user service: send verification id=%s error=%v", u.ID, err)
	}
	return u, nil
}

// Verify confirms the email address bound to token.
func (s *Service) Verify(ctx context.Context, token string) (*domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	u, err := s.repo.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return u, nil
}

// Login validates credentials and returns the user with a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	password = strings.TrimSpace(password)
	u, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	if !u.IsVerified {
		return nil, "", ErrNotVerified
	}

	token, _, err := s.tokens.Issue(u.ID, u.IsAdmin)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// LookupByToken returns the user bound to a valid bearer token.
func (s *Service) LookupByToken(ctx context.Context, token string) (*domain.User, error) {
	meta, ok := s.tokens.Validate(token)
	if !ok {
		return nil, ErrInvalidToken
	}
	u, err := s.repo.GetByID(ctx, meta.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return u, nil
}

// EnsureAdmin creates or promotes the bootstrap administrator.
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string) (*domain.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(password, s.passwordMin); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		name = "Admin"
	}
	return s.repo.EnsureAdmin(ctx, domain.User{Name: name, Email: email, PasswordHash: string(hashed)})
}

// TokenTTLSeconds exposes the bearer token lifetime in seconds.
func (s *Service) TokenTTLSeconds() int {
	return int(s.tokens.ttl.Seconds())
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", fmt.Errorf("%w: email required", ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	return email, nil
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func validatePassword(p string, min int) error {
	trimmed := strings.TrimSpace(p)
	if len(trimmed) < min {
		return fmt.Errorf("password must be at least %d characters", min)
	}
	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, r := range trimmed {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return errors.New("password must contain at least 1 uppercase letter, 1 lowercase letter, and 1 number")
	}
	return nil
}
