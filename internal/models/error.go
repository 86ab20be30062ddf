package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound   = errors.New("resource not found")
	ErrConflict   = errors.New("resource already exists")
	ErrBadRequest = errors.New("bad request")
	ErrInternal   = errors.New("internal server error")

	// Authentication outcomes
	ErrInvalidInput       = errors.New("invalid input")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account is temporarily locked")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrConfiguration      = errors.New("server configuration error")
)
