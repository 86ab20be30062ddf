package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BradenHooton/adminauth/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockoutService_LocksAtMaxAttempts(t *testing.T) {
	repo := NewMockAccountRepository(testAccount(t, "acct-1", "admin@example.com", models.AccountStatusActive))
	svc := NewLockoutService(repo, DefaultLockoutConfig(), testLogger())
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 1; i < 5; i++ {
		locked, err := svc.OnFailedLogin(ctx, "acct-1")
		require.NoError(t, err)
		assert.False(t, locked, "attempt %d", i)
	}

	locked, err := svc.OnFailedLogin(ctx, "acct-1")
	require.NoError(t, err)
	assert.True(t, locked)

	stored := repo.Account("acct-1")
	assert.Equal(t, 5, stored.FailedLoginAttempts)
	assert.Equal(t, models.AccountStatusSuspended, stored.Status)
	require.NotNil(t, stored.LockedUntil)
	assert.Equal(t, now.Add(30*time.Minute), *stored.LockedUntil)
}

func TestLockoutService_LateLockKeepsHigherCount(t *testing.T) {
	account := testAccount(t, "acct-1", "admin@example.com", models.AccountStatusActive)
	account.FailedLoginAttempts = 6
	repo := NewMockAccountRepository(account)
	// A slower concurrent failure saw the counter at 5
	repo.IncrementFailedAttemptsFunc = func(ctx context.Context, id string) (int, error) {
		return 5, nil
	}
	svc := NewLockoutService(repo, DefaultLockoutConfig(), testLogger())

	locked, err := svc.OnFailedLogin(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.True(t, locked)

	stored := repo.Account("acct-1")
	assert.Equal(t, 6, stored.FailedLoginAttempts)
	assert.Equal(t, models.AccountStatusSuspended, stored.Status)
}

func TestLockoutService_BelowMaxDoesNotLock(t *testing.T) {
	repo := NewMockAccountRepository(testAccount(t, "acct-1", "admin@example.com", models.AccountStatusActive))
	svc := NewLockoutService(repo, DefaultLockoutConfig(), testLogger())

	locked, err := svc.OnFailedLogin(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.False(t, locked)
	assert.Equal(t, 0, repo.Calls("UpdateFailedAttempts"))

	stored := repo.Account("acct-1")
	assert.Equal(t, 1, stored.FailedLoginAttempts)
	assert.Equal(t, models.AccountStatusActive, stored.Status)
	assert.Nil(t, stored.LockedUntil)
}

func TestLockoutService_SuccessResetsCounter(t *testing.T) {
	account := testAccount(t, "acct-1", "admin@example.com", models.AccountStatusActive)
	account.FailedLoginAttempts = 4
	past := time.Now().Add(-time.Hour)
	account.LockedUntil = &past
	repo := NewMockAccountRepository(account)
	svc := NewLockoutService(repo, DefaultLockoutConfig(), testLogger())

	require.NoError(t, svc.OnSuccessfulLogin(context.Background(), "acct-1"))

	stored := repo.Account("acct-1")
	assert.Equal(t, 0, stored.FailedLoginAttempts)
	assert.Nil(t, stored.LockedUntil)
	require.NotNil(t, stored.LastLogin)
	assert.WithinDuration(t, time.Now(), *stored.LastLogin, 5*time.Second)
}

func TestLockoutService_RepositoryErrors(t *testing.T) {
	dbErr := errors.New("connection reset")
	repo := &MockAccountRepository{
		IncrementFailedAttemptsFunc: func(ctx context.Context, id string) (int, error) {
			return 0, dbErr
		},
		UpdateLoginSuccessFunc: func(ctx context.Context, id string, at time.Time) error {
			return dbErr
		},
	}
	svc := NewLockoutService(repo, DefaultLockoutConfig(), testLogger())

	locked, err := svc.OnFailedLogin(context.Background(), "acct-1")
	assert.ErrorIs(t, err, dbErr)
	assert.False(t, locked)

	assert.ErrorIs(t, svc.OnSuccessfulLogin(context.Background(), "acct-1"), dbErr)
}

func TestLockoutService_CustomPolicy(t *testing.T) {
	repo := NewMockAccountRepository(testAccount(t, "acct-1", "admin@example.com", models.AccountStatusActive))
	svc := NewLockoutService(repo, LockoutConfig{MaxAttempts: 2, LockDuration: time.Minute}, testLogger())

	locked, err := svc.OnFailedLogin(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.False(t, locked)

	locked, err = svc.OnFailedLogin(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.True(t, locked)
}
