package ratelimit

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	mu      sync.Mutex
	count   int
	resetAt time.Time
}

// MemoryStore is a process-local Store. Each key has its own lock; the
// table lock is only held exclusively to add, reset or sweep entries.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock creates a store that reads time from now
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
		now:     now,
	}
}

// acquire returns the entry for key with the table read-locked.
// The caller must release s.mu.RUnlock.
func (s *MemoryStore) acquire(key string) *entry {
	for {
		s.mu.RLock()
		if e, ok := s.entries[key]; ok {
			return e
		}
		s.mu.RUnlock()

		s.mu.Lock()
		if _, ok := s.entries[key]; !ok {
			s.entries[key] = &entry{}
		}
		s.mu.Unlock()
	}
}

// Hit records an attempt for key and reports whether it is admitted
func (s *MemoryStore) Hit(ctx context.Context, key string, maxAttempts int, window time.Duration) (Decision, error) {
	if err := validateLimit(maxAttempts, window); err != nil {
		return Decision{}, err
	}
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	e := s.acquire(key)
	defer s.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	now := s.now()

	if e.resetAt.IsZero() || now.After(e.resetAt) {
		e.count = 1
		e.resetAt = now.Add(window)
		return Decision{Allowed: true, Count: e.count, ResetAt: e.resetAt}, nil
	}

	if e.count >= maxAttempts {
		return Decision{
			Allowed:           false,
			Count:             e.count,
			ResetAt:           e.resetAt,
			RetryAfterSeconds: retryAfterSeconds(e.resetAt, now),
		}, nil
	}

	e.count++
	return Decision{Allowed: true, Count: e.count, ResetAt: e.resetAt}, nil
}

// Reset deletes the entry for key
func (s *MemoryStore) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Sweep removes entries whose window has passed and returns how many were removed
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.entries {
		if now.After(e.resetAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
