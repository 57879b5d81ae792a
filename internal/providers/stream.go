package providers

import (
	"bufio"
	"bytes"
	"io"
)

// StreamEvent is a single event read from an upstream SSE stream.
type StreamEvent struct {
	Data []byte
	Done bool
}

// StreamReader iterates the "data:" lines of a server-sent event stream.
// All three supported vendors emit SSE for streaming generations, so one
// reader covers them.
type StreamReader struct {
	scanner *bufio.Scanner
	closer  io.Closer
}

// NewStreamReader wraps an upstream response stream.
func NewStreamReader(rc io.ReadCloser) *StreamReader {
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &StreamReader{scanner: scanner, closer: rc}
}

// Read returns the next event. io.EOF signals the end of the stream; an
// explicit "[DONE]" marker is reported as an event with Done set.
func (r *StreamReader) Read() (*StreamEvent, error) {
	for r.scanner.Scan() {
		line := r.scanner.Bytes()
		if !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}

		data := bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data:")))
		if len(data) == 0 {
			continue
		}
		if bytes.Equal(data, []byte("[DONE]")) {
			return &StreamEvent{Done: true}, nil
		}

		// Copy out: the scanner reuses its buffer on the next Scan.
		out := make([]byte, len(data))
		copy(out, data)
		return &StreamEvent{Data: out}, nil
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Close releases the underlying stream.
func (r *StreamReader) Close() error {
	return r.closer.Close()
}
