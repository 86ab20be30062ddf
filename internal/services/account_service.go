package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/adminauth/internal/models"
	"github.com/BradenHooton/adminauth/pkg/auth"
	pkglogger "github.com/BradenHooton/adminauth/pkg/logger"
)

// AccountCreator inserts new accounts
type AccountCreator interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
}

// EventLister reads stored security events
type EventLister interface {
	ListByAccount(ctx context.Context, accountID string, limit int) ([]models.SecurityEvent, error)
}

// MaxEventPage caps how many events one call returns
const MaxEventPage = 100

// AccountService covers account management outside the login path
type AccountService struct {
	repo   AccountCreator
	events EventLister
	logger *slog.Logger
}

func NewAccountService(repo AccountCreator, events EventLister, logger *slog.Logger) *AccountService {
	return &AccountService{
		repo:   repo,
		events: events,
		logger: logger,
	}
}

// EnsureAdmin creates the bootstrap administrator unless an account with
// that email already exists. It reports whether an account was created.
func (s *AccountService) EnsureAdmin(ctx context.Context, email, name, password string) (bool, error) {
	if err := auth.ValidatePassword(password); err != nil {
		return false, fmt.Errorf("%w: bootstrap admin %v", models.ErrConfiguration, err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("failed to hash bootstrap password: %w", err)
	}

	account, err := s.repo.Create(ctx, &models.Account{
		Email:        models.NormalizeEmail(email),
		Name:         name,
		Role:         "admin",
		PasswordHash: hash,
		Status:       models.AccountStatusActive,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.logger.Info("bootstrap admin already exists",
				slog.String("email", pkglogger.SanitizedEmail(email)))
			return false, nil
		}
		return false, fmt.Errorf("failed to create bootstrap admin: %w", err)
	}

	s.logger.Info("bootstrap admin created", slog.String("account_id", account.ID))
	return true, nil
}

// RecentEvents returns the newest security events about an account
func (s *AccountService) RecentEvents(ctx context.Context, accountID string, limit int) ([]models.SecurityEvent, error) {
	if limit <= 0 || limit > MaxEventPage {
		limit = MaxEventPage
	}

	events, err := s.events.ListByAccount(ctx, accountID, limit)
	if err != nil {
		s.logger.Error("failed to list security events",
			slog.String("account_id", accountID), slog.Any("error", err))
		return nil, models.ErrInternal
	}

	return events, nil
}
