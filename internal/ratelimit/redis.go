package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript runs the fixed-window algorithm server-side so that
// every instance sharing the Redis keyspace sees one counter.
// Returns {allowed, count, remaining_ms}.
var fixedWindowScript = redis.NewScript(`
local max = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
local ttl = redis.call('PTTL', KEYS[1])

if count == 0 or ttl < 0 then
	redis.call('SET', KEYS[1], 1, 'PX', window)
	return {1, 1, window}
end

if count >= max then
	return {0, count, ttl}
end

count = redis.call('INCR', KEYS[1])
return {1, count, ttl}
`)

const redisKeyPrefix = "ratelimit:"

// RedisStore is a Store shared by every process connected to the same Redis
type RedisStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedisStore creates a Redis-backed store
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// Hit records an attempt for key and reports whether it is admitted
func (s *RedisStore) Hit(ctx context.Context, key string, maxAttempts int, window time.Duration) (Decision, error) {
	if err := validateLimit(maxAttempts, window); err != nil {
		return Decision{}, err
	}

	windowMs := window.Milliseconds()
	if windowMs < 1 {
		windowMs = 1
	}

	res, err := fixedWindowScript.Run(ctx, s.client, []string{redisKeyPrefix + key}, maxAttempts, windowMs).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("failed to run rate limit script: %w", err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("unexpected rate limit script reply: %v", res)
	}

	now := s.now()
	resetAt := now.Add(time.Duration(res[2]) * time.Millisecond)
	decision := Decision{
		Allowed: res[0] == 1,
		Count:   int(res[1]),
		ResetAt: resetAt,
	}
	if !decision.Allowed {
		decision.RetryAfterSeconds = retryAfterSeconds(resetAt, now)
	}
	return decision, nil
}

// Reset deletes the counter for key
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to reset rate limit: %w", err)
	}
	return nil
}
