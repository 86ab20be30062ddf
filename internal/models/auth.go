package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the claims carried by a session token.
// Subject is the account id and ID (jti) is the session token id.
type TokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AccountID returns the subject claim
func (c *TokenClaims) AccountID() string {
	return c.Subject
}

// TokenID returns the jti claim
func (c *TokenClaims) TokenID() string {
	return c.ID
}
