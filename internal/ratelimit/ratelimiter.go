package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of a fixed-window rate limit check.
type Decision struct {
	Limited   bool      // true when the request exceeds the window limit
	Amount    int       // configured requests-per-window limit
	Remaining int       // requests left in the window, -1 when unlimited
	ResetAt   time.Time // when the current window expires
}

// Limiter bounds request volume per caller fingerprint over a fixed window.
// A limit of zero or less disables limiting.
type Limiter interface {
	Check(ctx context.Context, fingerprint string, limit int, window time.Duration) (Decision, error)
}

// NoopLimiter allows every request.
type NoopLimiter struct{}

func NewNoopLimiter() *NoopLimiter {
	return &NoopLimiter{}
}

func (l *NoopLimiter) Check(ctx context.Context, fingerprint string, limit int, window time.Duration) (Decision, error) {
	return Decision{Amount: limit, Remaining: -1}, nil
}

// RedisLimiter implements distributed fixed-window counting on Redis.
// The increment and the expiry are applied in one Lua script, so concurrent
// requests sharing a fingerprint can never both observe a pre-increment
// count: the counter moves first, the comparison happens after.
type RedisLimiter struct {
	client *redis.Client
}

// NewRedisLimiter creates a Redis-backed limiter.
func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

// The first request of a window sets the expiry; every later request inherits
// it, which is what aligns the window to windowStart + windowDuration.
var fixedWindowScript = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('PTTL', KEYS[1])
	return {count, ttl}
`)

func (l *RedisLimiter) Check(ctx context.Context, fingerprint string, limit int, window time.Duration) (Decision, error) {
	if limit <= 0 {
		return Decision{Amount: limit, Remaining: -1}, nil
	}

	key := "ratelimit:" + fingerprint

	res, err := fixedWindowScript.Run(ctx, l.client, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit check failed: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("rate limit check returned %d values", len(res))
	}

	count, ttlMillis := res[0], res[1]
	if ttlMillis < 0 {
		// PTTL reports -1 when the key lost its expiry (e.g. a restore);
		// treat the full window as remaining rather than pinning the key
		// forever.
		ttlMillis = window.Milliseconds()
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Limited:   count > int64(limit),
		Amount:    limit,
		Remaining: remaining,
		ResetAt:   time.Now().Add(time.Duration(ttlMillis) * time.Millisecond),
	}, nil
}

// CurrentUsage returns the current request count in the fingerprint's window.
func (l *RedisLimiter) CurrentUsage(ctx context.Context, fingerprint string) (int64, error) {
	count, err := l.client.Get(ctx, "ratelimit:"+fingerprint).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get current usage: %w", err)
	}
	return count, nil
}

// Reset clears the window for a fingerprint.
func (l *RedisLimiter) Reset(ctx context.Context, fingerprint string) error {
	return l.client.Del(ctx, "ratelimit:"+fingerprint).Err()
}
