package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"model_gateway/internal/queue"
	"model_gateway/internal/utils"
)

// UsageInserter writes a batch of usage records. Satisfied by
// *UsageRepository; tests substitute an in-memory implementation.
type UsageInserter interface {
	InsertBatch(ctx context.Context, records []*UsageRecord) error
	Insert(ctx context.Context, record *UsageRecord) error
}

// InsertBatch inserts multiple usage records in a single transaction.
// A failure anywhere in the batch rolls back every row, so the worker's
// per-record fallback never collides with half-committed data.
func (r *UsageRepository) InsertBatch(ctx context.Context, records []*UsageRecord) error {
	tx, err := r.db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, record := range records {
		if err := r.create(ctx, tx, record); err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Insert inserts a single usage record
func (r *UsageRepository) Insert(ctx context.Context, record *UsageRecord) error {
	return r.Create(ctx, record)
}

// UsageQueueWorker drains the usage queue and persists records in batches.
// Recording is best-effort: failures are logged and retried, never
// surfaced to the request path.
type UsageQueueWorker struct {
	queue       queue.Queue
	inserter    UsageInserter
	config      *queue.Config
	logger      *utils.Logger
	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewUsageQueueWorker creates a new usage queue worker
func NewUsageQueueWorker(q queue.Queue, inserter UsageInserter, config *queue.Config) *UsageQueueWorker {
	if config == nil {
		config = queue.DefaultConfig("usage")
	}

	return &UsageQueueWorker{
		queue:       q,
		inserter:    inserter,
		config:      config,
		logger:      utils.NewLogger("usage-worker"),
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// Start starts the worker goroutine
func (w *UsageQueueWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop gracefully stops the worker
func (w *UsageQueueWorker) Stop() error {
	close(w.stopChan)
	<-w.stoppedChan
	return nil
}

// Enqueue adds a usage record to the queue
func (w *UsageQueueWorker) Enqueue(ctx context.Context, record *UsageRecord) error {
	return w.queue.Enqueue(ctx, record)
}

// run is the main worker loop
func (w *UsageQueueWorker) run(ctx context.Context) {
	defer close(w.stoppedChan)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Usage worker stopping")
			return
		case <-ctx.Done():
			w.logger.Info("Usage worker context cancelled")
			return
		default:
			w.processBatch(ctx)
		}
	}
}

// processBatch processes a batch of usage records
func (w *UsageQueueWorker) processBatch(ctx context.Context) {
	items, err := w.queue.DequeueWithTimeout(ctx, w.config.BatchSize, w.config.BatchTimeout)
	if err != nil {
		w.logger.Error("Failed to dequeue usage records", "error", err)
		time.Sleep(1 * time.Second) // Back off on error
		return
	}

	if len(items) == 0 {
		return
	}

	w.logger.Debug("Processing usage batch", "count", len(items))

	records := make([]*UsageRecord, 0, len(items))
	for _, item := range items {
		var record UsageRecord
		if err := w.unmarshalItem(item, &record); err != nil {
			w.logger.Error("Failed to unmarshal usage record", "error", err)
			continue
		}
		records = append(records, &record)
	}

	if len(records) == 0 {
		return
	}

	if err := w.inserter.InsertBatch(ctx, records); err != nil {
		w.logger.Error("Failed to insert batch, falling back to individual inserts", "error", err)
		for _, record := range records {
			if err := w.processItem(ctx, record); err != nil {
				w.logger.Error("Failed to process usage record", "request_id", record.RequestID, "error", err)
			}
		}
	}
}

// processItem inserts a single usage record with retries
func (w *UsageQueueWorker) processItem(ctx context.Context, record *UsageRecord) error {
	var lastErr error
	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			backoff := w.config.RetryBackoff * time.Duration(1<<uint(attempt-1))
			w.logger.Debug("Retrying usage record", "attempt", attempt, "backoff", backoff)
			time.Sleep(backoff)
		}

		if err := w.inserter.Insert(ctx, record); err != nil {
			lastErr = err
			continue
		}

		w.logger.Debug("Usage record inserted", "request_id", record.RequestID)
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// unmarshalItem unmarshals a queue item into a UsageRecord
func (w *UsageQueueWorker) unmarshalItem(item interface{}, record *UsageRecord) error {
	switch v := item.(type) {
	case *UsageRecord:
		*record = *v
		return nil
	case UsageRecord:
		*record = v
		return nil
	case []byte:
		return json.Unmarshal(v, record)
	case json.RawMessage:
		return json.Unmarshal(v, record)
	default:
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("failed to marshal item: %w", err)
		}
		return json.Unmarshal(data, record)
	}
}

// GetQueueLength returns the current queue length
func (w *UsageQueueWorker) GetQueueLength(ctx context.Context) (int, error) {
	return w.queue.Length(ctx)
}
