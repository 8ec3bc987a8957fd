// Package session keeps the bearer token between runs and decodes the
// identity it carries. Tokens are never verified here; the backend does that
// on every call and the decoded claims are only used for display and for
// filling in author fields.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/softrack-city/softrack/internal/models"
)

// TokenKey is the storage key the access token is kept under.
const TokenKey = "access_token"

// ErrNotAuthenticated means there is no usable session: the token is
// missing, expired or cannot be decoded.
var ErrNotAuthenticated = errors.New("not authenticated")

// Storage is durable key/value storage. repository.StorageRepo satisfies it.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Claims is the payload of the backend's access token.
type Claims struct {
	jwt.RegisteredClaims
	UserID    int64  `json:"user_id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type Store struct {
	storage Storage
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures the Store.
type Option func(*Store)

// WithClock replaces time.Now, used when checking expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func New(storage Storage, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		logger:  logger.Named("session"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Token returns the stored token, if any. A storage failure is logged and
// reported as no token.
func (s *Store) Token(ctx context.Context) (string, bool) {
	token, ok, err := s.storage.Get(ctx, TokenKey)
	if err != nil {
		s.logger.Error("Failed to read token", zap.Error(err))
		return "", false
	}
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

func (s *Store) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("refusing to store an empty token")
	}
	if err := s.storage.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// Clear removes the stored token. Clearing an absent token is not an error.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.storage.Delete(ctx, TokenKey); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}

// IsExpired reports whether the token's exp claim is in the past. A token
// that cannot be decoded, or has no exp claim, counts as expired.
func (s *Store) IsExpired(token string) bool {
	claims, err := parse(token)
	if err != nil {
		s.logger.Warn("Treating undecodable token as expired", zap.Error(err))
		return true
	}
	if claims.ExpiresAt == nil {
		s.logger.Warn("Token has no expiry, treating as expired")
		return true
	}
	return !s.now().Before(claims.ExpiresAt.Time)
}

// DecodeCurrentUser extracts the user fields from the token claims.
func (s *Store) DecodeCurrentUser(token string) (*models.User, error) {
	claims, err := parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}
	return &models.User{
		ID:        claims.UserID,
		Username:  claims.Username,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
	}, nil
}

// Current returns the signed-in user and their token. Every screen and
// command calls it before doing anything that needs a session.
func (s *Store) Current(ctx context.Context) (*models.User, string, error) {
	token, ok := s.Token(ctx)
	if !ok {
		return nil, "", ErrNotAuthenticated
	}
	if s.IsExpired(token) {
		return nil, "", fmt.Errorf("%w: token expired", ErrNotAuthenticated)
	}
	user, err := s.DecodeCurrentUser(token)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func parse(token string) (*Claims, error) {
	if token == "" {
		return nil, errors.New("empty token")
	}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	parsed, _, err := parser.ParseUnverified(token, &Claims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	return claims, nil
}
