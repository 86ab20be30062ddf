package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/adminauth/internal/models"
	"github.com/BradenHooton/adminauth/internal/ratelimit"
	pkghttp "github.com/BradenHooton/adminauth/pkg/http"
)

// Policy names double as the counter key namespace
const (
	PolicyLogin         = "login"
	PolicyAPI           = "api"
	PolicyPasswordReset = "password-reset"
)

// RateLimitPolicy admits MaxAttempts hits per Window
type RateLimitPolicy struct {
	MaxAttempts int
	Window      time.Duration
}

// RateLimitConfig holds the named policies
type RateLimitConfig struct {
	Login         RateLimitPolicy
	API           RateLimitPolicy
	PasswordReset RateLimitPolicy
}

// DefaultRateLimitConfig returns login 5/15m, api 100/1m, password reset 3/1h
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Login:         RateLimitPolicy{MaxAttempts: 5, Window: 15 * time.Minute},
		API:           RateLimitPolicy{MaxAttempts: 100, Window: time.Minute},
		PasswordReset: RateLimitPolicy{MaxAttempts: 3, Window: time.Hour},
	}
}

// RateLimitError is returned when a policy denies a request
type RateLimitError struct {
	Policy            string
	RetryAfterSeconds int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limit exceeded, retry after %d seconds", e.Policy, e.RetryAfterSeconds)
}

func (e *RateLimitError) Unwrap() error {
	return models.ErrRateLimited
}

// RateLimitService applies named fixed-window policies to identifiers
type RateLimitService struct {
	store    ratelimit.Store
	policies map[string]RateLimitPolicy
	logger   *slog.Logger
}

func NewRateLimitService(store ratelimit.Store, config RateLimitConfig, logger *slog.Logger) *RateLimitService {
	return &RateLimitService{
		store: store,
		policies: map[string]RateLimitPolicy{
			PolicyLogin:         config.Login,
			PolicyAPI:           config.API,
			PolicyPasswordReset: config.PasswordReset,
		},
		logger: logger,
	}
}

// RateLimitKey namespaces identifier under policy. An empty identifier is
// counted under "unknown" so it still shares a bucket.
func RateLimitKey(policy, identifier string) string {
	if identifier == "" {
		identifier = pkghttp.UnknownClient
	}
	return policy + ":" + identifier
}

// Check records one attempt for identifier under policy. It returns a
// *RateLimitError when the attempt is denied. Store failures are logged
// and the attempt is allowed.
func (s *RateLimitService) Check(ctx context.Context, policy, identifier string) error {
	p, ok := s.policies[policy]
	if !ok {
		return fmt.Errorf("%w: unknown rate limit policy %q", models.ErrConfiguration, policy)
	}

	decision, err := s.store.Hit(ctx, RateLimitKey(policy, identifier), p.MaxAttempts, p.Window)
	if err != nil {
		// Fail open on store errors
		s.logger.Error("rate limit store failed, allowing request",
			slog.String("policy", policy),
			slog.Any("error", err))
		return nil
	}

	if !decision.Allowed {
		s.logger.Warn("rate limit exceeded",
			slog.String("policy", policy),
			slog.String("identifier", identifier),
			slog.Int("count", decision.Count),
			slog.Int("retry_after_seconds", decision.RetryAfterSeconds))
		return &RateLimitError{Policy: policy, RetryAfterSeconds: decision.RetryAfterSeconds}
	}

	return nil
}

// Reset clears the counter for identifier under policy
func (s *RateLimitService) Reset(ctx context.Context, policy, identifier string) error {
	if err := s.store.Reset(ctx, RateLimitKey(policy, identifier)); err != nil {
		return fmt.Errorf("failed to reset %s rate limit: %w", policy, err)
	}
	return nil
}

// Policy returns the configured policy by name
func (s *RateLimitService) Policy(name string) (RateLimitPolicy, bool) {
	p, ok := s.policies[name]
	return p, ok
}
