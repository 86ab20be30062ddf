package auth

import (
	"strings"
	"unicode/utf8"

	"github.com/BradenHooton/adminauth/internal/models"
	"github.com/go-playground/validator/v10"
)

const (
	// MaxEmailLength is the RFC 5321 path limit
	MaxEmailLength = 254
	// MinLoginPasswordLength is the only password rule enforced at login
	MinLoginPasswordLength = 8
)

// ValidationError describes rejected input. Message never echoes the input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return models.ErrInvalidInput
}

var validate = validator.New()

// ValidateLoginCredentials checks the shape of a login request.
// It performs no I/O and its result depends only on its input.
func ValidateLoginCredentials(email, password string) error {
	email = strings.TrimSpace(email)

	if email == "" {
		return &ValidationError{Field: "email", Message: "email is required"}
	}
	if password == "" {
		return &ValidationError{Field: "password", Message: "password is required"}
	}
	if !IsValidEmail(email) {
		return &ValidationError{Field: "email", Message: "invalid email format"}
	}
	if utf8.RuneCountInString(password) < MinLoginPasswordLength {
		return &ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}

	return nil
}

// IsValidEmail accepts plain ASCII local@domain.tld addresses
func IsValidEmail(email string) bool {
	if len(email) > MaxEmailLength || strings.TrimSpace(email) != email {
		return false
	}

	for i := 0; i < len(email); i++ {
		if email[i] >= utf8.RuneSelf {
			return false
		}
	}

	if strings.Count(email, "@") != 1 {
		return false
	}

	local, domain, _ := strings.Cut(email, "@")
	if local == "" || !strings.Contains(domain, ".") ||
		strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return false
	}

	return validate.Var(email, "email") == nil
}
