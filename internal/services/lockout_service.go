package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/adminauth/internal/models"
)

// LockoutRepository is the slice of the account store the lock policy needs.
// IncrementFailedAttempts must be a single atomic update.
type LockoutRepository interface {
	IncrementFailedAttempts(ctx context.Context, id string) (int, error)
	UpdateFailedAttempts(ctx context.Context, id string, attempts int, lockedUntil *time.Time, status *models.AccountStatus) error
	UpdateLoginSuccess(ctx context.Context, id string, at time.Time) error
}

// LockoutConfig is the account lock policy
type LockoutConfig struct {
	MaxAttempts  int
	LockDuration time.Duration
}

// DefaultLockoutConfig locks after 5 failures for 30 minutes
func DefaultLockoutConfig() LockoutConfig {
	return LockoutConfig{MaxAttempts: 5, LockDuration: 30 * time.Minute}
}

// LockoutService tracks consecutive password failures per account
type LockoutService struct {
	repo   LockoutRepository
	config LockoutConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewLockoutService(repo LockoutRepository, config LockoutConfig, logger *slog.Logger) *LockoutService {
	return &LockoutService{
		repo:   repo,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// OnFailedLogin counts a wrong password. Once the count reaches the
// maximum the account is suspended until now+LockDuration and locked=true
// is returned.
func (s *LockoutService) OnFailedLogin(ctx context.Context, accountID string) (bool, error) {
	attempts, err := s.repo.IncrementFailedAttempts(ctx, accountID)
	if err != nil {
		return false, fmt.Errorf("failed to record failed attempt: %w", err)
	}

	if attempts < s.config.MaxAttempts {
		return false, nil
	}

	lockedUntil := s.now().Add(s.config.LockDuration)
	suspended := models.AccountStatusSuspended
	if err := s.repo.UpdateFailedAttempts(ctx, accountID, attempts, &lockedUntil, &suspended); err != nil {
		return false, fmt.Errorf("failed to lock account: %w", err)
	}

	s.logger.Warn("account locked after repeated failures",
		slog.String("account_id", accountID),
		slog.Int("failed_attempts", attempts),
		slog.Time("locked_until", lockedUntil))

	return true, nil
}

// OnSuccessfulLogin clears the failure counter and lock and stamps lastLogin.
// It does not change the account status.
func (s *LockoutService) OnSuccessfulLogin(ctx context.Context, accountID string) error {
	if err := s.repo.UpdateLoginSuccess(ctx, accountID, s.now()); err != nil {
		return fmt.Errorf("failed to record successful login: %w", err)
	}
	return nil
}
