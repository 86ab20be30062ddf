package auth

import (
	"fmt"
	"strings"
)

// MinSigningKeyLength is the shortest accepted HMAC signing key (256 bits)
const MinSigningKeyLength = 32

var weakSigningKeys = []string{"secret", "password", "changeme", "default", "example"}

// ValidateSigningKey rejects short keys and keys that are only repetitions
// of a common placeholder value
func ValidateSigningKey(key string) error {
	if len(key) < MinSigningKeyLength {
		return fmt.Errorf("signing key must be at least %d characters (got %d)", MinSigningKeyLength, len(key))
	}

	lower := strings.ToLower(key)
	for _, weak := range weakSigningKeys {
		if strings.ReplaceAll(lower, weak, "") == "" {
			return fmt.Errorf("signing key cannot be a repetition of %q", weak)
		}
	}

	return nil
}
