package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func TestRedisLimiter_Check(t *testing.T) {
	ctx := context.Background()
	day := 24 * time.Hour

	t.Run("allows requests within limit", func(t *testing.T) {
		client, _ := setupTestRedis(t)
		limiter := NewRedisLimiter(client)

		for i := 0; i < 10; i++ {
			dec, err := limiter.Check(ctx, "1.2.3.4", 10, day)
			require.NoError(t, err)
			assert.False(t, dec.Limited)
			assert.Equal(t, 10, dec.Amount)
			assert.Equal(t, 10-i-1, dec.Remaining)
			assert.False(t, dec.ResetAt.IsZero())
		}
	})

	t.Run("blocks the request over the limit", func(t *testing.T) {
		client, _ := setupTestRedis(t)
		limiter := NewRedisLimiter(client)

		for i := 0; i < 10; i++ {
			dec, err := limiter.Check(ctx, "1.2.3.4", 10, day)
			require.NoError(t, err)
			require.False(t, dec.Limited)
		}

		dec, err := limiter.Check(ctx, "1.2.3.4", 10, day)
		require.NoError(t, err)
		assert.True(t, dec.Limited)
		assert.Equal(t, 0, dec.Remaining)
	})

	t.Run("new window after expiry", func(t *testing.T) {
		client, mr := setupTestRedis(t)
		limiter := NewRedisLimiter(client)

		for i := 0; i < 11; i++ {
			_, err := limiter.Check(ctx, "1.2.3.4", 10, day)
			require.NoError(t, err)
		}

		mr.FastForward(day)

		dec, err := limiter.Check(ctx, "1.2.3.4", 10, day)
		require.NoError(t, err)
		assert.False(t, dec.Limited)
		assert.Equal(t, 9, dec.Remaining)
	})

	t.Run("fingerprints are independent", func(t *testing.T) {
		client, _ := setupTestRedis(t)
		limiter := NewRedisLimiter(client)

		for i := 0; i < 11; i++ {
			_, err := limiter.Check(ctx, "1.2.3.4", 10, day)
			require.NoError(t, err)
		}

		dec, err := limiter.Check(ctx, "5.6.7.8", 10, day)
		require.NoError(t, err)
		assert.False(t, dec.Limited)
	})

	t.Run("unlimited when limit is 0", func(t *testing.T) {
		client, _ := setupTestRedis(t)
		limiter := NewRedisLimiter(client)

		for i := 0; i < 100; i++ {
			dec, err := limiter.Check(ctx, "1.2.3.4", 0, day)
			require.NoError(t, err)
			assert.False(t, dec.Limited)
			assert.Equal(t, -1, dec.Remaining)
		}
	})

	t.Run("concurrent requests never double-pass the boundary", func(t *testing.T) {
		client, _ := setupTestRedis(t)
		limiter := NewRedisLimiter(client)

		const total = 30
		const limit = 10

		var wg sync.WaitGroup
		var mu sync.Mutex
		allowed := 0

		for i := 0; i < total; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				dec, err := limiter.Check(ctx, "shared", limit, day)
				if !assert.NoError(t, err) {
					return
				}
				if !dec.Limited {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, limit, allowed)
	})
}

func TestRedisLimiter_CurrentUsage(t *testing.T) {
	ctx := context.Background()
	client, _ := setupTestRedis(t)
	limiter := NewRedisLimiter(client)

	usage, err := limiter.CurrentUsage(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, int64(0), usage)

	for i := 0; i < 3; i++ {
		_, err := limiter.Check(ctx, "1.2.3.4", 10, time.Minute)
		require.NoError(t, err)
	}

	usage, err = limiter.CurrentUsage(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, int64(3), usage)
}

func TestRedisLimiter_Reset(t *testing.T) {
	ctx := context.Background()
	client, _ := setupTestRedis(t)
	limiter := NewRedisLimiter(client)

	for i := 0; i < 3; i++ {
		_, err := limiter.Check(ctx, "1.2.3.4", 2, time.Minute)
		require.NoError(t, err)
	}

	require.NoError(t, limiter.Reset(ctx, "1.2.3.4"))

	dec, err := limiter.Check(ctx, "1.2.3.4", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, dec.Limited)
	assert.Equal(t, 1, dec.Remaining)
}

func TestMemoryLimiter_Check(t *testing.T) {
	ctx := context.Background()
	day := 24 * time.Hour

	t.Run("eleventh request in the window is limited", func(t *testing.T) {
		limiter := NewMemoryLimiter()

		for i := 0; i < 10; i++ {
			dec, err := limiter.Check(ctx, "1.2.3.4", 10, day)
			require.NoError(t, err)
			require.False(t, dec.Limited)
		}

		dec, err := limiter.Check(ctx, "1.2.3.4", 10, day)
		require.NoError(t, err)
		assert.True(t, dec.Limited)
	})

	t.Run("window resets on the wall clock", func(t *testing.T) {
		limiter := NewMemoryLimiter()
		current := time.Now()
		limiter.now = func() time.Time { return current }

		for i := 0; i < 11; i++ {
			_, err := limiter.Check(ctx, "1.2.3.4", 10, day)
			require.NoError(t, err)
		}

		current = current.Add(day)

		dec, err := limiter.Check(ctx, "1.2.3.4", 10, day)
		require.NoError(t, err)
		assert.False(t, dec.Limited)
		assert.Equal(t, 9, dec.Remaining)
	})

	t.Run("unlimited when limit is 0", func(t *testing.T) {
		limiter := NewMemoryLimiter()

		dec, err := limiter.Check(ctx, "1.2.3.4", 0, day)
		require.NoError(t, err)
		assert.False(t, dec.Limited)
		assert.Equal(t, -1, dec.Remaining)
	})
}

func TestNoopLimiter(t *testing.T) {
	limiter := NewNoopLimiter()

	for i := 0; i < 100; i++ {
		dec, err := limiter.Check(context.Background(), "any", 1, time.Minute)
		require.NoError(t, err)
		assert.False(t, dec.Limited)
	}
}
