package logging

import "time"

// LogRecord is one terminal request outcome, emitted once per request after
// the gateway reaches a terminal state.
type LogRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id"`
	Fingerprint string    `json:"fingerprint,omitempty"` // hashed, never the raw IP
	UserID      string    `json:"user_id,omitempty"`
	TeamID      string    `json:"team_id,omitempty"`

	Model    string `json:"model"`           // resolved provider:model id
	Alias    string `json:"alias,omitempty"` // raw caller input when it differed
	Provider string `json:"provider"`

	Outcome    string `json:"outcome"` // "ok" or a failure kind
	StatusCode int    `json:"status_code"`
	Error      string `json:"error,omitempty"`

	ProviderMs int64 `json:"provider_ms"`
	GatewayMs  int64 `json:"gateway_ms"`

	Tags map[string]string `json:"tags,omitempty"`
}

// Sink receives log records from the request path. Implementations must not
// block: the request path enqueues best-effort and moves on.
type Sink interface {
	Enqueue(rec *LogRecord) error
}

// NoopSink discards all records.
type NoopSink struct{}

func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (s *NoopSink) Enqueue(rec *LogRecord) error {
	return nil
}
