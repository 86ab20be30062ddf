package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/adminauth/internal/models"
	pkgauth "github.com/BradenHooton/adminauth/pkg/auth"
	"github.com/golang-jwt/jwt/v5"
)

// TokenManager signs and verifies HS256 session tokens
type TokenManager struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenManager validates the signing key once and returns a manager.
// A weak key is a configuration error, not a per-request failure.
func NewTokenManager(secret, issuer string) (*TokenManager, error) {
	if err := pkgauth.ValidateSigningKey(secret); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrConfiguration, err)
	}

	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}, nil
}

// SignedToken is a freshly signed token and the claims it carries
type SignedToken struct {
	Token     string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Sign creates a token for accountID whose jti is tokenID
func (tm *TokenManager) Sign(accountID, role, tokenID string, ttl time.Duration) (*SignedToken, error) {
	issuedAt := tm.now()
	expiresAt := issuedAt.Add(ttl)

	claims := &models.TokenClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   accountID,
			Issuer:    tm.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &SignedToken{
		Token:     tokenString,
		TokenID:   tokenID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify checks signature, issuer and expiry and returns the claims.
// Every failure is reported as models.ErrInvalidToken.
func (tm *TokenManager) Verify(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	},
		jwt.WithIssuer(tm.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, models.ErrInvalidToken
	}

	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing subject or token id", models.ErrInvalidToken)
	}

	return claims, nil
}

// IsExpired reports whether err came from an expired token
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
