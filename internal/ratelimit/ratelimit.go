// Package ratelimit implements fixed-window attempt counters keyed by an
// identifier string. A window opens on the first hit and admits at most
// maxAttempts hits until it expires; counts are never decremented.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidLimit is returned when a hit is requested with a non-positive limit or window
var ErrInvalidLimit = errors.New("ratelimit: maxAttempts and window must be positive")

// Decision is the outcome of a single Hit
type Decision struct {
	Allowed           bool
	Count             int
	ResetAt           time.Time
	RetryAfterSeconds int // set only when Allowed is false
}

// Store is a fixed-window counter table. Hit performs check-and-record as
// one atomic step per key.
type Store interface {
	Hit(ctx context.Context, key string, maxAttempts int, window time.Duration) (Decision, error)
	Reset(ctx context.Context, key string) error
}

// retryAfterSeconds rounds the remaining window up to whole seconds, minimum 1
func retryAfterSeconds(resetAt, now time.Time) int {
	remaining := resetAt.Sub(now)
	secs := int((remaining + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

func validateLimit(maxAttempts int, window time.Duration) error {
	if maxAttempts <= 0 || window <= 0 {
		return ErrInvalidLimit
	}
	return nil
}
