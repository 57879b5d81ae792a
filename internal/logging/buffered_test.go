package logging

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu      sync.Mutex
	batches [][]*LogRecord
}

func (w *fakeWriter) WriteBatch(ctx context.Context, records []*LogRecord) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	batch := make([]*LogRecord, len(records))
	copy(batch, records)
	w.batches = append(w.batches, batch)
	return "fake-key", nil
}

func (w *fakeWriter) total() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, b := range w.batches {
		n += len(b)
	}
	return n
}

func TestBufferedSink_FlushOnSize(t *testing.T) {
	writer := &fakeWriter{}
	sink := NewBufferedSink(writer, BufferedSinkConfig{
		BufferSize:    100,
		FlushSize:     5,
		FlushInterval: time.Hour, // size triggers first
	})

	for i := 0; i < 5; i++ {
		require.NoError(t, sink.Enqueue(&LogRecord{RequestID: "r", Outcome: "ok"}))
	}

	assert.Eventually(t, func() bool { return writer.total() == 5 },
		time.Second, 10*time.Millisecond)

	require.NoError(t, sink.Shutdown(context.Background()))
}

func TestBufferedSink_FlushOnShutdown(t *testing.T) {
	writer := &fakeWriter{}
	sink := NewBufferedSink(writer, BufferedSinkConfig{
		BufferSize:    100,
		FlushSize:     100,
		FlushInterval: time.Hour,
	})

	for i := 0; i < 3; i++ {
		require.NoError(t, sink.Enqueue(&LogRecord{RequestID: "r", Outcome: "ok"}))
	}

	require.NoError(t, sink.Shutdown(context.Background()))
	assert.Equal(t, 3, writer.total())
}

type blockingWriter struct {
	entered chan struct{}
	release chan struct{}
}

func (w *blockingWriter) WriteBatch(ctx context.Context, records []*LogRecord) (string, error) {
	w.entered <- struct{}{}
	<-w.release
	return "blocked-key", nil
}

func TestBufferedSink_DropsWhenFull(t *testing.T) {
	writer := &blockingWriter{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	sink := NewBufferedSink(writer, BufferedSinkConfig{
		BufferSize:    1,
		FlushSize:     1,
		FlushInterval: time.Hour,
	})

	// First record reaches the writer and parks there.
	require.NoError(t, sink.Enqueue(&LogRecord{RequestID: "r1"}))
	<-writer.entered

	// Second record sits in the buffer; the third has nowhere to go and is
	// dropped instead of blocking the request path.
	require.NoError(t, sink.Enqueue(&LogRecord{RequestID: "r2"}))
	assert.ErrorIs(t, sink.Enqueue(&LogRecord{RequestID: "r3"}), ErrSinkFull)

	close(writer.release)
	require.NoError(t, sink.Shutdown(context.Background()))
}

func TestNoopSink(t *testing.T) {
	assert.NoError(t, NewNoopSink().Enqueue(&LogRecord{RequestID: "r"}))
}
