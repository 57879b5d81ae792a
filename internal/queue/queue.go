// Package queue provides the async buffer between the request path and the
// usage writer, with two backends:
//
//  1. Memory queue (channel-based): no persistence, no external
//     dependencies, right for single-process deployments.
//  2. Redis queue (list-based): survives restarts and can feed workers in
//     other processes.
//
// The request path enqueues and returns; a batch worker dequeues and writes.
package queue

import (
	"context"
	"time"
)

// Queue is the interface both backends implement. Items are JSON-encodable
// values; the Redis backend hands them back as json.RawMessage.
type Queue interface {
	// Enqueue adds an item to the queue.
	Enqueue(ctx context.Context, item interface{}) error

	// DequeueWithTimeout retrieves up to maxItems, waiting at most timeout
	// for the first one. An empty slice means the timeout elapsed.
	DequeueWithTimeout(ctx context.Context, maxItems int, timeout time.Duration) ([]interface{}, error)

	// Length returns the current queue length.
	Length(ctx context.Context) (int, error)

	// Close shuts down the queue.
	Close() error
}

// Config holds queue tuning shared by the backends and their worker.
type Config struct {
	// BatchSize is the maximum number of items a worker takes per batch.
	BatchSize int

	// BatchTimeout is how long a worker waits before processing a partial
	// batch.
	BatchTimeout time.Duration

	// MaxRetries bounds per-item write retries in the worker.
	MaxRetries int

	// RetryBackoff is the initial backoff between retries.
	RetryBackoff time.Duration

	// QueueName keys the Redis list for the Redis backend.
	QueueName string
}

// DefaultConfig returns the default tuning for a named queue.
func DefaultConfig(queueName string) *Config {
	return &Config{
		BatchSize:    100,
		BatchTimeout: 5 * time.Second,
		MaxRetries:   3,
		RetryBackoff: 1 * time.Second,
		QueueName:    queueName,
	}
}
