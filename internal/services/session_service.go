package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/adminauth/internal/auth"
	"github.com/BradenHooton/adminauth/internal/models"
	"github.com/google/uuid"
)

// DefaultSessionTTL is used when Issue is called without a ttl
const DefaultSessionTTL = 8 * time.Hour

// SessionStore persists session records keyed by token id
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	Deactivate(ctx context.Context, tokenID string) error
	IsActive(ctx context.Context, tokenID string, now time.Time) (bool, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// TokenSigner signs and verifies session tokens
type TokenSigner interface {
	Sign(accountID, role, tokenID string, ttl time.Duration) (*auth.SignedToken, error)
	Verify(token string) (*models.TokenClaims, error)
}

// IssuedSession is what a caller receives after a successful login
type IssuedSession struct {
	Token     string
	TokenID   string
	ExpiresAt time.Time
}

// SessionService issues signed tokens backed by revocable session records
type SessionService struct {
	store      SessionStore
	signer     TokenSigner
	defaultTTL time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func NewSessionService(store SessionStore, signer TokenSigner, defaultTTL time.Duration, logger *slog.Logger) *SessionService {
	if defaultTTL <= 0 {
		defaultTTL = DefaultSessionTTL
	}
	return &SessionService{
		store:      store,
		signer:     signer,
		defaultTTL: defaultTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// Issue signs a token with a fresh random token id and records an active
// session for it. The token is only usable once the record exists.
func (s *SessionService) Issue(ctx context.Context, account *models.Account, ttl time.Duration, meta models.RequestMetadata) (*IssuedSession, error) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	tokenID, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token id: %w", err)
	}

	signed, err := s.signer.Sign(account.ID, account.Role, tokenID.String(), ttl)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		TokenID:   signed.TokenID,
		AccountID: account.ID,
		CreatedAt: signed.IssuedAt,
		ExpiresAt: signed.ExpiresAt,
		IsActive:  true,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if err := s.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	return &IssuedSession{
		Token:     signed.Token,
		TokenID:   signed.TokenID,
		ExpiresAt: signed.ExpiresAt,
	}, nil
}

// Revoke deactivates the session with tokenID
func (s *SessionService) Revoke(ctx context.Context, tokenID string) error {
	if err := s.store.Deactivate(ctx, tokenID); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// IsValid reports whether tokenID has an active, unexpired session record
func (s *SessionService) IsValid(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	return s.store.IsActive(ctx, tokenID, s.now())
}

// Authenticate verifies the token signature and then its session record.
// Bad or revoked tokens yield models.ErrInvalidToken; store failures are
// returned as is.
func (s *SessionService) Authenticate(ctx context.Context, token string) (*models.TokenClaims, error) {
	claims, err := s.signer.Verify(token)
	if err != nil {
		return nil, err
	}

	valid, err := s.IsValid(ctx, claims.TokenID())
	if err != nil {
		return nil, fmt.Errorf("failed to check session: %w", err)
	}
	if !valid {
		return nil, fmt.Errorf("%w: session revoked or expired", models.ErrInvalidToken)
	}

	return claims, nil
}

// SweepExpired marks sessions past their expiry inactive
func (s *SessionService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.store.DeactivateExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired sessions: %w", err)
	}
	if n > 0 {
		s.logger.Info("expired sessions deactivated", slog.Int64("count", n))
	}
	return n, nil
}
