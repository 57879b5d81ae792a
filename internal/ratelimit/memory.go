package ratelimit

import (
	"context"
	"sync"
	"time"
)

// sweepThreshold bounds how many windows accumulate before expired entries
// are swept inline.
const sweepThreshold = 4096

// MemoryLimiter is a single-process fixed-window limiter backed by a plain
// map. It satisfies the same atomic increment-then-compare contract as the
// Redis limiter, but its counters are per process: multi-process deployments
// need the Redis limiter to share one quota pool.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window

	// now is swappable for tests.
	now func() time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// NewMemoryLimiter creates an in-memory limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Check(ctx context.Context, fingerprint string, limit int, windowDuration time.Duration) (Decision, error) {
	if limit <= 0 {
		return Decision{Amount: limit, Remaining: -1}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	w, ok := l.windows[fingerprint]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(windowDuration)}
		l.windows[fingerprint] = w
	}
	w.count++

	if len(l.windows) > sweepThreshold {
		l.sweepLocked(now)
	}

	remaining := limit - w.count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Limited:   w.count > limit,
		Amount:    limit,
		Remaining: remaining,
		ResetAt:   w.resetAt,
	}, nil
}

// Reset clears the window for a fingerprint.
func (l *MemoryLimiter) Reset(fingerprint string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, fingerprint)
}

func (l *MemoryLimiter) sweepLocked(now time.Time) {
	for fp, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, fp)
		}
	}
}
