package logging

import (
	"context"
	"errors"
	"sync"
	"time"

	"model_gateway/internal/utils"
)

// ErrSinkFull is returned when the in-memory buffer is saturated. Records are
// dropped rather than stalling the request path.
var ErrSinkFull = errors.New("logging sink buffer full")

// BatchWriter persists a batch of records somewhere durable.
type BatchWriter interface {
	WriteBatch(ctx context.Context, records []*LogRecord) (string, error)
}

// BufferedSink accumulates records in memory and flushes them to a
// BatchWriter when either the batch size or the flush interval is reached.
type BufferedSink struct {
	writer        BatchWriter
	records       chan *LogRecord
	flushSize     int
	flushInterval time.Duration
	logger        *utils.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// BufferedSinkConfig configures the buffered sink.
type BufferedSinkConfig struct {
	BufferSize    int           // in-memory queue size
	FlushSize     int           // flush after this many records
	FlushInterval time.Duration // flush after this much time
}

// NewBufferedSink creates the sink and starts its flush worker.
func NewBufferedSink(writer BatchWriter, cfg BufferedSinkConfig) *BufferedSink {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}
	if cfg.FlushSize <= 0 {
		cfg.FlushSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 10 * time.Second
	}

	s := &BufferedSink{
		writer:        writer,
		records:       make(chan *LogRecord, cfg.BufferSize),
		flushSize:     cfg.FlushSize,
		flushInterval: cfg.FlushInterval,
		logger:        utils.NewLogger("log-sink"),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}

	go s.run()
	return s
}

// Enqueue buffers a record without blocking.
func (s *BufferedSink) Enqueue(rec *LogRecord) error {
	select {
	case s.records <- rec:
		return nil
	default:
		return ErrSinkFull
	}
}

// Shutdown stops the worker and flushes whatever is still buffered.
func (s *BufferedSink) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *BufferedSink) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	batch := make([]*LogRecord, 0, s.flushSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if _, err := s.writer.WriteBatch(ctx, batch); err != nil {
			s.logger.Error("failed to flush log batch", "count", len(batch), "error", err)
		}
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case rec := <-s.records:
			batch = append(batch, rec)
			if len(batch) >= s.flushSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.stop:
			// Drain what is already buffered, then flush once.
			for {
				select {
				case rec := <-s.records:
					batch = append(batch, rec)
				default:
					flush()
					return
				}
			}
		}
	}
}
