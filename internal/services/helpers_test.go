package services

import (
	"io"
	"log/slog"
	"testing"

	"github.com/BradenHooton/adminauth/internal/auth"
	"github.com/BradenHooton/adminauth/internal/models"
	"github.com/BradenHooton/adminauth/internal/ratelimit"
	pkgauth "github.com/BradenHooton/adminauth/pkg/auth"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSigningKey = "k3Jx9-vQ2mL8pR4tW7yZ1aB5cD0eF6gH-services"
	testPassword   = "Correct-Horse-9!"
	testClientIP   = "203.0.113.10"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testAccount(t *testing.T, id, email string, status models.AccountStatus) *models.Account {
	t.Helper()
	hash, err := pkgauth.HashPasswordWithCost(testPassword, bcrypt.MinCost)
	require.NoError(t, err)
	return &models.Account{
		ID:           id,
		Email:        email,
		Name:         "Test Admin",
		Role:         "admin",
		PasswordHash: hash,
		Status:       status,
	}
}

type authHarness struct {
	svc      *AuthService
	accounts *MockAccountRepository
	sessions *MockSessionStore
	events   *MockEventEmitter
	limiter  *RateLimitService
	store    *ratelimit.MemoryStore
	lockout  *LockoutService
	issuer   *SessionService
}

func newAuthHarness(t *testing.T, accounts ...*models.Account) *authHarness {
	t.Helper()
	logger := testLogger()

	tokens, err := auth.NewTokenManager(testSigningKey, "adminauth")
	require.NoError(t, err)

	h := &authHarness{
		accounts: NewMockAccountRepository(accounts...),
		sessions: NewMockSessionStore(),
		events:   &MockEventEmitter{},
		store:    ratelimit.NewMemoryStore(),
	}
	h.limiter = NewRateLimitService(h.store, DefaultRateLimitConfig(), logger)
	h.lockout = NewLockoutService(h.accounts, DefaultLockoutConfig(), logger)
	h.issuer = NewSessionService(h.sessions, tokens, DefaultSessionTTL, logger)

	dummy, err := pkgauth.HashPasswordWithCost("no-such-account", bcrypt.MinCost)
	require.NoError(t, err)

	h.svc = NewAuthService(AuthServiceDeps{
		Accounts: h.accounts,
		Verifier: pkgauth.NewVerifier(),
		Limiter:  h.limiter,
		Lockout:  h.lockout,
		Sessions: h.issuer,
		Events:   h.events,
		Logger:   logger,

		DummyHash: dummy,
	})
	return h
}
