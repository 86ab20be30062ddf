package models

import (
	"strings"
	"time"
)

// AccountStatus is the administrative state of an account
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusInactive  AccountStatus = "inactive"
	AccountStatusSuspended AccountStatus = "suspended"
)

// Account is an administrator record as stored by the account repository
type Account struct {
	ID                  string
	Email               string
	Name                string
	Role                string
	PasswordHash        string
	Status              AccountStatus
	FailedLoginAttempts int
	LockedUntil         *time.Time
	LastLogin           *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsLocked reports whether a lock window is still running at now.
// A running lock wins over Status.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}

// AccountProfile is the public view of an account. It never carries the hash.
type AccountProfile struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      string     `json:"role"`
	Status    string     `json:"status"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Profile strips credential material from the account
func (a *Account) Profile() *AccountProfile {
	return &AccountProfile{
		ID:        a.ID,
		Email:     a.Email,
		Name:      a.Name,
		Role:      a.Role,
		Status:    string(a.Status),
		LastLogin: a.LastLogin,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// NormalizeEmail lower-cases and trims an email for lookup
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
