package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"model_gateway/internal/queue"
)

// memoryInserter collects inserted records in memory
type memoryInserter struct {
	mu        sync.Mutex
	records   []*UsageRecord
	failBatch bool
	failNext  int
}

func (m *memoryInserter) InsertBatch(ctx context.Context, records []*UsageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failBatch {
		return errors.New("batch insert failed")
	}
	m.records = append(m.records, records...)
	return nil
}

func (m *memoryInserter) Insert(ctx context.Context, record *UsageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext > 0 {
		m.failNext--
		return errors.New("insert failed")
	}
	m.records = append(m.records, record)
	return nil
}

func (m *memoryInserter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *memoryInserter) get(i int) *UsageRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[i]
}

func workerConfig() *queue.Config {
	cfg := queue.DefaultConfig("usage-test")
	cfg.BatchSize = 10
	cfg.BatchTimeout = 20 * time.Millisecond
	cfg.MaxRetries = 2
	cfg.RetryBackoff = time.Millisecond
	return cfg
}

func TestUsageQueueWorker(t *testing.T) {
	ctx := context.Background()

	t.Run("persists enqueued records in batches", func(t *testing.T) {
		q := NewMemoryTestQueue(t)
		inserter := &memoryInserter{}
		worker := NewUsageQueueWorker(q, inserter, workerConfig())

		worker.Start(ctx)
		defer worker.Stop()

		for i := 0; i < 5; i++ {
			require.NoError(t, worker.Enqueue(ctx, &UsageRecord{
				RequestID: "req",
				Provider:  "openai",
				Model:     "openai:gpt-4o",
				Outcome:   "ok",
			}))
		}

		assert.Eventually(t, func() bool {
			return inserter.count() == 5
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("falls back to individual inserts when batch fails", func(t *testing.T) {
		q := NewMemoryTestQueue(t)
		inserter := &memoryInserter{failBatch: true}
		worker := NewUsageQueueWorker(q, inserter, workerConfig())

		worker.Start(ctx)
		defer worker.Stop()

		require.NoError(t, worker.Enqueue(ctx, &UsageRecord{RequestID: "a", Outcome: "ok"}))
		require.NoError(t, worker.Enqueue(ctx, &UsageRecord{RequestID: "b", Outcome: "rate_limited"}))

		assert.Eventually(t, func() bool {
			return inserter.count() == 2
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("retries individual inserts with backoff", func(t *testing.T) {
		q := NewMemoryTestQueue(t)
		inserter := &memoryInserter{failBatch: true, failNext: 1}
		worker := NewUsageQueueWorker(q, inserter, workerConfig())

		worker.Start(ctx)
		defer worker.Stop()

		require.NoError(t, worker.Enqueue(ctx, &UsageRecord{RequestID: "retry-me", Outcome: "ok"}))

		assert.Eventually(t, func() bool {
			return inserter.count() == 1
		}, time.Second, 10*time.Millisecond)
		assert.Equal(t, "retry-me", inserter.get(0).RequestID)
	})

	t.Run("round-trips record fields through the queue", func(t *testing.T) {
		q := NewMemoryTestQueue(t)
		inserter := &memoryInserter{}
		worker := NewUsageQueueWorker(q, inserter, workerConfig())

		worker.Start(ctx)
		defer worker.Stop()

		record := &UsageRecord{
			RequestID:   "req-1",
			Fingerprint: "fp-1",
			UserID:      "user-1",
			TeamID:      "team-1",
			Provider:    "anthropic",
			Model:       "anthropic:claude-sonnet-4",
			Alias:       "claude",
			Outcome:     "ok",
			StatusCode:  200,
			ProviderMs:  120,
			GatewayMs:   135,
		}
		require.NoError(t, worker.Enqueue(ctx, record))

		require.Eventually(t, func() bool {
			return inserter.count() == 1
		}, time.Second, 10*time.Millisecond)

		got := inserter.get(0)
		assert.Equal(t, "req-1", got.RequestID)
		assert.Equal(t, "anthropic:claude-sonnet-4", got.Model)
		assert.Equal(t, "claude", got.Alias)
		assert.Equal(t, int64(120), got.ProviderMs)
	})

	t.Run("stop drains cleanly", func(t *testing.T) {
		q := NewMemoryTestQueue(t)
		inserter := &memoryInserter{}
		worker := NewUsageQueueWorker(q, inserter, workerConfig())

		worker.Start(ctx)
		require.NoError(t, worker.Stop())
	})
}

// NewMemoryTestQueue builds a memory queue closed with the test
func NewMemoryTestQueue(t *testing.T) queue.Queue {
	t.Helper()
	q := queue.NewMemoryQueue(nil)
	t.Cleanup(func() { q.Close() })
	return q
}
