package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/adminauth/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningKey = "k3Jx9-vQ2mL8pR4tW7yZ1aB5cD0eF6gH-test"

func newTestTokenManager(t *testing.T) *TokenManager {
	t.Helper()
	tm, err := NewTokenManager(testSigningKey, "adminauth")
	require.NoError(t, err)
	return tm
}

func TestNewTokenManager_RejectsWeakKeys(t *testing.T) {
	for _, key := range []string{"", "too-short", strings.Repeat("secret", 6)} {
		_, err := NewTokenManager(key, "adminauth")
		assert.ErrorIs(t, err, models.ErrConfiguration, key)
	}
}

func TestTokenManager_SignAndVerify(t *testing.T) {
	tm := newTestTokenManager(t)

	signed, err := tm.Sign("account-1", "admin", "token-1", 8*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "token-1", signed.TokenID)
	assert.Equal(t, 8*time.Hour, signed.ExpiresAt.Sub(signed.IssuedAt))

	claims, err := tm.Verify(signed.Token)
	require.NoError(t, err)
	assert.Equal(t, "account-1", claims.AccountID())
	assert.Equal(t, "token-1", claims.TokenID())
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "adminauth", claims.Issuer)
	require.NotNil(t, claims.IssuedAt)
	require.NotNil(t, claims.ExpiresAt)
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	tm := newTestTokenManager(t)
	tm.now = func() time.Time { return time.Now().Add(-9 * time.Hour) }

	signed, err := tm.Sign("account-1", "admin", "token-1", 8*time.Hour)
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.Verify(signed.Token)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
	assert.True(t, IsExpired(err))
}

func TestTokenManager_RejectsOtherKeyAndIssuer(t *testing.T) {
	tm := newTestTokenManager(t)

	other, err := NewTokenManager("another-signing-key-that-is-long-enough", "adminauth")
	require.NoError(t, err)
	signed, err := other.Sign("account-1", "admin", "token-1", time.Hour)
	require.NoError(t, err)
	_, err = tm.Verify(signed.Token)
	assert.ErrorIs(t, err, models.ErrInvalidToken)

	foreign, err := NewTokenManager(testSigningKey, "someone-else")
	require.NoError(t, err)
	signed, err = foreign.Sign("account-1", "admin", "token-1", time.Hour)
	require.NoError(t, err)
	_, err = tm.Verify(signed.Token)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
	assert.False(t, IsExpired(err))
}

func TestTokenManager_RejectsNoneAlgorithm(t *testing.T) {
	tm := newTestTokenManager(t)

	claims := &models.TokenClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "account-1",
			ID:        "token-1",
			Issuer:    "adminauth",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = tm.Verify(unsigned)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestTokenManager_RejectsMissingTokenID(t *testing.T) {
	tm := newTestTokenManager(t)

	signed, err := tm.Sign("account-1", "admin", "", time.Hour)
	require.NoError(t, err)

	_, err = tm.Verify(signed.Token)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestTokenManager_RejectsGarbage(t *testing.T) {
	tm := newTestTokenManager(t)

	_, err := tm.Verify("not.a.jwt")
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}
