package auth

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig controls how long credential failures are padded
type TimingConfig struct {
	BaseDelayMs    int  // Floor for a padded response
	RandomDelayMs  int  // Random jitter added on top of the base
	DelayOnSuccess bool // Pad successful logins too
}

// TimingDelay pads authentication outcomes so that an unknown account and
// a wrong password take about the same time to answer
type TimingDelay struct {
	config TimingConfig
}

func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{config: config}
}

// cryptoRandIntn returns a uniform-ish value in [0, max) from crypto/rand
func cryptoRandIntn(max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}

	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}

	return int(binary.BigEndian.Uint64(b[:]) % uint64(max)), nil
}

// target is base plus jitter. A failed random read drops the jitter only.
func (td *TimingDelay) target() time.Duration {
	delay := time.Duration(td.config.BaseDelayMs) * time.Millisecond
	if td.config.RandomDelayMs > 0 {
		if n, err := cryptoRandIntn(td.config.RandomDelayMs); err == nil {
			delay += time.Duration(n) * time.Millisecond
		}
	}
	return delay
}

func (td *TimingDelay) skip(success bool) bool {
	return td == nil || (success && !td.config.DelayOnSuccess)
}

// WaitFrom sleeps until at least the target delay has passed since start.
// It gives up early when ctx is done.
func (td *TimingDelay) WaitFrom(ctx context.Context, start time.Time, success bool) error {
	if td.skip(success) {
		return nil
	}

	remaining := td.target() - time.Since(start)
	if remaining <= 0 {
		return nil
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
