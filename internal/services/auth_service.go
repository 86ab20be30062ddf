package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/adminauth/internal/auth"
	"github.com/BradenHooton/adminauth/internal/models"
	pkgauth "github.com/BradenHooton/adminauth/pkg/auth"
	pkghttp "github.com/BradenHooton/adminauth/pkg/http"
	pkglogger "github.com/BradenHooton/adminauth/pkg/logger"
)

// AccountRepository is the account store used by the login flow
type AccountRepository interface {
	FindActiveByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// PasswordVerifier compares a password with a stored hash
type PasswordVerifier interface {
	Verify(password, hash string) bool
}

// RateLimiter applies a named policy to an identifier
type RateLimiter interface {
	Check(ctx context.Context, policy, identifier string) error
	Reset(ctx context.Context, policy, identifier string) error
}

// AccountLockPolicy keeps the persisted failure counter of an account
type AccountLockPolicy interface {
	OnFailedLogin(ctx context.Context, accountID string) (bool, error)
	OnSuccessfulLogin(ctx context.Context, accountID string) error
}

// SessionIssuer mints and revokes session tokens
type SessionIssuer interface {
	Issue(ctx context.Context, account *models.Account, ttl time.Duration, meta models.RequestMetadata) (*IssuedSession, error)
	Revoke(ctx context.Context, tokenID string) error
	Authenticate(ctx context.Context, token string) (*models.TokenClaims, error)
}

// EventEmitter records security events. Emit must not block or fail.
type EventEmitter interface {
	Emit(ctx context.Context, event models.SecurityEvent)
}

// AuthServiceDeps are the collaborators of AuthService
type AuthServiceDeps struct {
	Accounts AccountRepository
	Verifier PasswordVerifier
	Limiter  RateLimiter
	Lockout  AccountLockPolicy
	Sessions SessionIssuer
	Events   EventEmitter
	Timing   *auth.TimingDelay
	Logger   *slog.Logger

	// DummyHash is checked when no account matches the email. It should
	// cost what a stored hash costs; empty means pkgauth.DummyHash().
	DummyHash string
}

// AuthService runs the admin login pipeline:
// validate, rate check, load account, verify password, issue session.
// Each request passes through it once and every request that gets past
// validation produces exactly one security event.
type AuthService struct {
	accounts AccountRepository
	verifier PasswordVerifier
	limiter  RateLimiter
	lockout  AccountLockPolicy
	sessions SessionIssuer
	events   EventEmitter
	timing   *auth.TimingDelay
	logger   *slog.Logger
	now      func() time.Time

	dummyHash string
}

func NewAuthService(deps AuthServiceDeps) *AuthService {
	dummyHash := deps.DummyHash
	if dummyHash == "" {
		dummyHash = pkgauth.DummyHash()
	}

	return &AuthService{
		accounts: deps.Accounts,
		verifier: deps.Verifier,
		limiter:  deps.Limiter,
		lockout:  deps.Lockout,
		sessions: deps.Sessions,
		events:   deps.Events,
		timing:   deps.Timing,
		logger:   deps.Logger,
		now:      time.Now,

		dummyHash: dummyHash,
	}
}

// LoginInput is one login request. ClientIdentifier is the rate limit
// identifier, usually the client IP.
type LoginInput struct {
	Email            string
	Password         string
	ClientIdentifier string
	UserAgent        string
}

// AuthResult is returned on a successful login
type AuthResult struct {
	Token     string
	TokenID   string
	ExpiresAt time.Time
	Account   *models.AccountProfile
}

// Login authenticates an administrator. Failures are one of
// *auth.ValidationError, *RateLimitError, models.ErrInvalidCredentials,
// models.ErrConfiguration or models.ErrInternal. A lock triggered by this
// attempt is reported as ErrInvalidCredentials wrapping ErrAccountLocked.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if err := auth.ValidateLoginCredentials(in.Email, in.Password); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	identifier := in.ClientIdentifier
	if identifier == "" {
		identifier = pkghttp.UnknownClient
	}
	meta := models.RequestMetadata{IPAddress: identifier, UserAgent: in.UserAgent}
	failed := models.NewSecurityEvent(models.EventLoginFailed, s.now()).WithRequest(meta)

	if err := s.limiter.Check(ctx, PolicyLogin, identifier); err != nil {
		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			s.emit(ctx, models.NewSecurityEvent(models.EventRateLimitExceeded, s.now()).
				WithRequest(meta).
				With("policy", PolicyLogin).
				With("retry_after_seconds", rlErr.RetryAfterSeconds))
			return nil, err
		}
		s.logger.Error("login rate limit check failed", slog.Any("error", err))
		s.emit(ctx, failed.With("reason", "internal_error"))
		return nil, models.ErrConfiguration
	}

	// Both credential failures below run one hash check and are padded
	// from here
	start := time.Now()
	email := models.NormalizeEmail(in.Email)

	if err := ctx.Err(); err != nil {
		s.emit(ctx, failed.With("reason", "canceled"))
		return nil, err
	}

	account, err := s.accounts.FindActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.verifier.Verify(in.Password, s.dummyHash)
			s.logger.Info("login failed: invalid credentials",
				slog.String("email", pkglogger.SanitizedEmail(email)))
			s.emit(ctx, failed.With("reason", "invalid_credentials"))
			s.pad(ctx, start)
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to load account by email", slog.Any("error", err))
		s.emit(ctx, failed.With("reason", "internal_error"))
		return nil, models.ErrInternal
	}

	failed = failed.WithAccount(account.ID)

	matched := s.verifier.Verify(in.Password, account.PasswordHash)

	// A running lock wins over an active status and is not charged again
	if account.IsLocked(s.now()) {
		s.logger.Info("login failed: account locked", slog.String("account_id", account.ID))
		s.emit(ctx, failed.With("reason", "account_locked").With("locked", true))
		s.pad(ctx, start)
		return nil, fmt.Errorf("%w: %w", models.ErrInvalidCredentials, models.ErrAccountLocked)
	}

	if !matched {
		return nil, s.rejectPassword(ctx, account, failed, start)
	}

	if err := s.limiter.Reset(ctx, PolicyLogin, identifier); err != nil {
		s.logger.Warn("failed to reset login rate limit", slog.Any("error", err))
	}

	if err := s.lockout.OnSuccessfulLogin(ctx, account.ID); err != nil {
		s.logger.Error("failed to record successful login",
			slog.String("account_id", account.ID), slog.Any("error", err))
		s.emit(ctx, failed.With("reason", "internal_error"))
		return nil, models.ErrInternal
	}

	issued, err := s.sessions.Issue(ctx, account, 0, meta)
	if err != nil {
		s.logger.Error("failed to issue session",
			slog.String("account_id", account.ID), slog.Any("error", err))
		s.emit(ctx, failed.With("reason", "internal_error"))
		if errors.Is(err, models.ErrConfiguration) {
			return nil, models.ErrConfiguration
		}
		return nil, models.ErrInternal
	}

	s.logger.Info("account logged in", slog.String("account_id", account.ID))
	s.emit(ctx, models.NewSecurityEvent(models.EventLoginSuccess, s.now()).
		WithRequest(meta).
		WithAccount(account.ID).
		With("token_id", issued.TokenID))

	_ = s.timing.WaitFrom(ctx, start, true)

	loginAt := s.now()
	account.FailedLoginAttempts = 0
	account.LockedUntil = nil
	account.LastLogin = &loginAt

	return &AuthResult{
		Token:     issued.Token,
		TokenID:   issued.TokenID,
		ExpiresAt: issued.ExpiresAt,
		Account:   account.Profile(),
	}, nil
}

// rejectPassword charges a wrong password against the account. Lock
// bookkeeping errors are logged but never change the answer.
func (s *AuthService) rejectPassword(ctx context.Context, account *models.Account, event models.SecurityEvent, start time.Time) error {
	event = event.With("reason", "invalid_credentials")

	locked, err := s.lockout.OnFailedLogin(ctx, account.ID)
	if err != nil {
		s.logger.Error("failed to record failed login",
			slog.String("account_id", account.ID), slog.Any("error", err))
	}

	result := models.ErrInvalidCredentials
	if locked {
		event = event.With("locked", true).Escalate()
		result = fmt.Errorf("%w: %w", models.ErrInvalidCredentials, models.ErrAccountLocked)
	}

	s.logger.Info("login failed: invalid credentials", slog.String("account_id", account.ID))
	s.emit(ctx, event)
	s.pad(ctx, start)
	return result
}

// Logout revokes the session behind token
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.sessions.Authenticate(ctx, token)
	if err != nil {
		return err
	}

	if err := s.sessions.Revoke(ctx, claims.TokenID()); err != nil {
		s.logger.Error("failed to revoke session",
			slog.String("token_id", claims.TokenID()), slog.Any("error", err))
		return models.ErrInternal
	}

	s.logger.Info("session revoked",
		slog.String("account_id", claims.AccountID()),
		slog.String("token_id", claims.TokenID()))
	return nil
}

// ChangePasswordInput is a password change by a logged in administrator
type ChangePasswordInput struct {
	AccountID        string
	CurrentPassword  string
	NewPassword      string
	ClientIdentifier string
	UserAgent        string
}

// ChangePassword replaces the password of an account after checking the
// current one. The new password must satisfy the strict policy.
func (s *AuthService) ChangePassword(ctx context.Context, in ChangePasswordInput) error {
	if in.CurrentPassword == "" {
		return &auth.ValidationError{Field: "current_password", Message: "current password is required"}
	}
	if err := pkgauth.ValidatePassword(in.NewPassword); err != nil {
		return &auth.ValidationError{Field: "new_password", Message: err.Error()}
	}
	if in.NewPassword == in.CurrentPassword {
		return &auth.ValidationError{Field: "new_password", Message: "new password must differ from current password"}
	}

	identifier := in.ClientIdentifier
	if identifier == "" {
		identifier = pkghttp.UnknownClient
	}
	meta := models.RequestMetadata{IPAddress: identifier, UserAgent: in.UserAgent}

	if err := s.limiter.Check(ctx, PolicyPasswordReset, identifier); err != nil {
		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			s.emit(ctx, models.NewSecurityEvent(models.EventRateLimitExceeded, s.now()).
				WithRequest(meta).
				WithAccount(in.AccountID).
				With("policy", PolicyPasswordReset).
				With("retry_after_seconds", rlErr.RetryAfterSeconds))
			return err
		}
		s.logger.Error("password change rate limit check failed", slog.Any("error", err))
		return models.ErrConfiguration
	}

	account, err := s.accounts.GetByID(ctx, in.AccountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrInvalidCredentials
		}
		s.logger.Error("failed to load account", slog.String("account_id", in.AccountID), slog.Any("error", err))
		return models.ErrInternal
	}

	if !s.verifier.Verify(in.CurrentPassword, account.PasswordHash) {
		s.emit(ctx, models.NewSecurityEvent(models.EventSuspiciousActivity, s.now()).
			WithRequest(meta).
			WithAccount(account.ID).
			With("reason", "wrong_current_password"))
		return models.ErrInvalidCredentials
	}

	hash, err := pkgauth.HashPassword(in.NewPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternal
	}

	if err := s.accounts.UpdatePassword(ctx, account.ID, hash); err != nil {
		s.logger.Error("failed to update password", slog.String("account_id", account.ID), slog.Any("error", err))
		return models.ErrInternal
	}

	s.logger.Info("password changed", slog.String("account_id", account.ID))
	return nil
}

func (s *AuthService) emit(ctx context.Context, event models.SecurityEvent) {
	if s.events != nil {
		s.events.Emit(ctx, event)
	}
}

func (s *AuthService) pad(ctx context.Context, start time.Time) {
	_ = s.timing.WaitFrom(ctx, start, false)
}
