package auth

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost     = 12
	MinPasswordLen = 8
	MaxPasswordLen = 128
)

// PasswordValidationError lists every policy rule a password broke
type PasswordValidationError struct {
	Errors []string
}

func (e *PasswordValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "password validation failed"
	}
	return "password " + strings.Join(e.Errors, ", ")
}

// Common weak passwords to reject
var commonPasswords = map[string]bool{
	"password":     true,
	"password1!":   true,
	"password123":  true,
	"password123!": true,
	"12345678":     true,
	"qwerty123":    true,
	"letmein1!":    true,
	"welcome1!":    true,
	"passw0rd":     true,
	"p@ssw0rd":     true,
	"p@ssw0rd1":    true,
	"admin123!":    true,
	"changeme1!":   true,
	"trustno1":     true,
}

var dummyHash = sync.OnceValue(func() string {
	hash, err := HashPassword("adminauth-no-such-account")
	if err != nil {
		return ""
	}
	return hash
})

// DummyHash returns a bcrypt hash at BcryptCost that no account owns.
// Checking a password against it costs as much as checking a stored hash.
func DummyHash() string {
	return dummyHash()
}

// HashPassword hashes a password with bcrypt at the default cost
func HashPassword(password string) (string, error) {
	return HashPasswordWithCost(password, BcryptCost)
}

// HashPasswordWithCost hashes a password with bcrypt at the given cost
func HashPasswordWithCost(password string, cost int) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// ComparePassword returns nil when password matches a bcrypt hash
func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// ValidatePassword enforces the strict policy used by password-change flows:
// 8-128 characters with lowercase, uppercase, digit and symbol.
func ValidatePassword(password string) error {
	errors := make([]string, 0)

	if len(password) < MinPasswordLen {
		errors = append(errors, fmt.Sprintf("must be at least %d characters", MinPasswordLen))
	}
	if len(password) > MaxPasswordLen {
		errors = append(errors, fmt.Sprintf("must be at most %d characters", MaxPasswordLen))
	}

	hasUpper := false
	hasLower := false
	hasDigit := false
	hasSpecial := false

	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !hasLower {
		errors = append(errors, "must contain at least one lowercase letter")
	}
	if !hasUpper {
		errors = append(errors, "must contain at least one uppercase letter")
	}
	if !hasDigit {
		errors = append(errors, "must contain at least one digit")
	}
	if !hasSpecial {
		errors = append(errors, "must contain at least one special character")
	}

	if commonPasswords[strings.ToLower(password)] {
		errors = append(errors, "is too common")
	}

	if len(errors) > 0 {
		return &PasswordValidationError{Errors: errors}
	}

	return nil
}
