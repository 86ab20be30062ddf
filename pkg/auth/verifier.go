package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidHash         = errors.New("invalid hash format")
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
)

// argon2Params are the parameters encoded in an argon2id PHC string
type argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	KeyLength   uint32
}

// Verifier checks a plaintext password against a stored hash.
// bcrypt hashes are the default; argon2id PHC strings
// ($argon2id$v=19$m=...,t=...,p=...$salt$hash) imported from other
// systems are accepted as well.
type Verifier struct{}

// NewVerifier creates a password verifier
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Verify reports whether password matches hash. Malformed hashes never match.
func (v *Verifier) Verify(password, hash string) bool {
	if hash == "" {
		return false
	}
	if strings.HasPrefix(hash, "$argon2id$") {
		ok, err := verifyArgon2id(password, hash)
		return err == nil && ok
	}
	return ComparePassword(hash, password) == nil
}

func verifyArgon2id(password, encodedHash string) (bool, error) {
	params, salt, hash, err := decodeArgon2Hash(encodedHash)
	if err != nil {
		return false, err
	}

	otherHash := argon2.IDKey(
		[]byte(password),
		salt,
		params.Iterations,
		params.Memory,
		params.Parallelism,
		params.KeyLength,
	)

	return subtle.ConstantTimeCompare(hash, otherHash) == 1, nil
}

func decodeArgon2Hash(encodedHash string) (*argon2Params, []byte, []byte, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, nil, ErrInvalidHash
	}
	if version != argon2.Version {
		return nil, nil, nil, ErrIncompatibleVersion
	}

	params := &argon2Params{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return nil, nil, nil, ErrInvalidHash
	}
	// argon2.IDKey panics on zero time or parallelism
	if params.Memory == 0 || params.Iterations == 0 || params.Parallelism == 0 {
		return nil, nil, nil, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return nil, nil, nil, ErrInvalidHash
	}

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return nil, nil, nil, ErrInvalidHash
	}
	params.KeyLength = uint32(len(hash))

	return params, salt, hash, nil
}
