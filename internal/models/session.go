package models

import "time"

// Session is the server-side record backing an issued token.
// TokenID is the jti claim and the revocation key.
type Session struct {
	TokenID   string
	AccountID string
	CreatedAt time.Time
	ExpiresAt time.Time
	IsActive  bool
	IPAddress string
	UserAgent string
}

// IsValidAt reports whether the session can still be used at now
func (s *Session) IsValidAt(now time.Time) bool {
	return s.IsActive && s.ExpiresAt.After(now)
}

// RequestMetadata describes where a request came from
type RequestMetadata struct {
	IPAddress string
	UserAgent string
}
