package providers

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Message is one turn of a normalized chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a normalized generation request bound for one upstream model.
type ChatRequest struct {
	Messages []Message      // conversation turns
	System   string         // system prompt, empty if none
	APIKey   string         // caller-supplied credential override, empty = shared key
	Params   map[string]any // vendor passthrough parameters
	Stream   bool           // whether to stream the response
}

// ChatResponse is a normalized upstream response. Exactly one of Body or
// Stream is set: Body for buffered responses, Stream for live ones.
type ChatResponse struct {
	StatusCode      int
	Body            []byte
	Stream          io.ReadCloser
	ProviderLatency time.Duration
}

// Close releases the upstream stream, if any.
func (r *ChatResponse) Close() error {
	if r.Stream != nil {
		return r.Stream.Close()
	}
	return nil
}

// Handle is an opaque binding to one vendor model's generation entry point.
// Constructing a handle performs no network I/O; the upstream call happens
// only in Generate. Handles carry no per-request state and are safe to share
// across concurrent requests.
type Handle interface {
	// Provider returns the provider name the handle is bound to.
	Provider() string

	// Model returns the upstream vendor model name the handle invokes.
	Model() string

	// Generate performs the upstream call. Vendor-reported failures are
	// returned as *APIError so the gateway can classify them.
	Generate(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// Factory mints handles for one vendor. Implementations keep an explicit map
// from public model names to upstream names; when fallback is enabled, an
// unregistered name is forwarded to the vendor verbatim instead of failing.
// That lets newly released upstream models work without a catalog update, at
// the cost of skipping local capability metadata for them.
type Factory interface {
	// Name returns the provider name this factory serves.
	Name() string

	// CreateHandle mints a handle for the given public model name. Returns
	// ErrUnsupportedModel when the name is unregistered and fallback is off.
	CreateHandle(model string) (Handle, error)
}

// APIError carries an upstream vendor's HTTP status and message.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API returned status %d: %s", e.Provider, e.StatusCode, e.Message)
}
