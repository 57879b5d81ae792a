package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"model_gateway/internal/gateway"
	"model_gateway/internal/logging"
	"model_gateway/internal/providers"
	"model_gateway/internal/storage"
	"model_gateway/internal/utils"
)

// chatRequest is the inbound body for POST /api/chat.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	System   string        `json:"system,omitempty"`

	UserID string `json:"userId,omitempty"`
	TeamID string `json:"teamId,omitempty"`

	// Stream defaults to true when absent.
	Stream *bool `json:"stream,omitempty"`

	Config *chatConfig `json:"config,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatConfig carries per-request overrides from the caller.
type chatConfig struct {
	// APIKey is the caller's own upstream credential (BYOK).
	APIKey string         `json:"apiKey,omitempty"`
	Params map[string]any `json:"params,omitempty"`
}

func (c *chatRequest) validate() string {
	if c.Model == "" {
		return "missing 'model' field"
	}
	if len(c.Messages) == 0 {
		return "missing 'messages' field"
	}
	for _, m := range c.Messages {
		if m.Role == "" || m.Content == "" {
			return "messages must have role and content"
		}
	}
	return ""
}

// handleChat drives one generation request through the gateway and
// relays the upstream response, streaming when asked to.
func (d *Dependencies) handleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if msg := body.validate(); msg != "" {
		utils.RespondWithError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	stream := true
	if body.Stream != nil {
		stream = *body.Stream
	}

	messages := make([]providers.Message, 0, len(body.Messages))
	for _, m := range body.Messages {
		messages = append(messages, providers.Message{Role: m.Role, Content: m.Content})
	}

	req := gateway.Request{
		RequestID:   uuid.New().String(),
		Fingerprint: clientFingerprint(r),
		UserID:      body.UserID,
		TeamID:      body.TeamID,
		Model:       body.Model,
		Messages:    messages,
		System:      body.System,
		Stream:      stream,
	}
	if body.Config != nil {
		req.APIKey = body.Config.APIKey
		req.Params = body.Config.Params
	}

	result, err := d.Gateway.Generate(r.Context(), req)
	if err != nil {
		d.writeFailure(w, req, err, start)
		return
	}
	defer result.Close()

	if stream && result.Response.Stream != nil {
		d.relayStream(w, req, result, start)
	} else {
		d.relayBody(w, req, result, start)
	}
}

// clientFingerprint buckets callers by the first hop of X-Forwarded-For.
// Requests with no forwarded address share one bucket.
func clientFingerprint(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded == "" {
		return gateway.FingerprintUnknown
	}
	first, _, _ := strings.Cut(forwarded, ",")
	first = strings.TrimSpace(first)
	if first == "" {
		return gateway.FingerprintUnknown
	}
	return first
}

// writeFailure translates a classified gateway failure onto HTTP. Rate
// metadata rides on X-RateLimit-* headers when present.
func (d *Dependencies) writeFailure(w http.ResponseWriter, req gateway.Request, err error, start time.Time) {
	failure, ok := gateway.AsFailure(err)
	if !ok {
		d.Logger.Error("unclassified gateway error", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "An unexpected error has occurred. Please try again later.")
		return
	}

	if failure.Rate != nil {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(failure.Rate.Amount))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(failure.Rate.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(failure.Rate.ResetAt.Unix(), 10))
	}

	d.record(req, "", string(failure.Kind), failure.StatusCode, 0, time.Since(start), failure.Error())

	utils.RespondWithError(w, failure.StatusCode, failure.Message)
}

// relayBody forwards a buffered upstream response verbatim.
func (d *Dependencies) relayBody(w http.ResponseWriter, req gateway.Request, result *gateway.Result, start time.Time) {
	body := result.Response.Body
	if body == nil && result.Response.Stream != nil {
		// Caller asked for a buffered response but the upstream streamed.
		var err error
		body, err = io.ReadAll(result.Response.Stream)
		if err != nil {
			d.Logger.Error("failed to drain upstream response",
				"request_id", result.RequestID, "error", err)
			utils.RespondWithError(w, http.StatusBadGateway, "The provider is currently unavailable. Please try again later.")
			return
		}
	}

	d.record(req, result.Ref.ResolvedID, "ok", result.Response.StatusCode,
		result.Response.ProviderLatency, time.Since(start), "")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.Response.StatusCode)
	_, _ = w.Write(body)
}

// relayStream forwards upstream SSE events to the client as they arrive.
func (d *Dependencies) relayStream(w http.ResponseWriter, req gateway.Request, result *gateway.Result, start time.Time) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(result.Response.StatusCode)

	reader := providers.NewStreamReader(result.Response.Stream)

	outcome := "ok"
	for {
		event, err := reader.Read()
		if err == io.EOF || (event != nil && event.Done) {
			break
		}
		if err != nil {
			// Mid-stream failure: the status line is gone, all we can do
			// is stop and record it.
			d.Logger.Error("stream read failed",
				"request_id", result.RequestID, "error", err)
			outcome = "stream_interrupted"
			break
		}

		if _, err := w.Write([]byte("data: ")); err != nil {
			outcome = "client_gone"
			break
		}
		if _, err := w.Write(event.Data); err != nil {
			outcome = "client_gone"
			break
		}
		if _, err := w.Write([]byte("\n\n")); err != nil {
			outcome = "client_gone"
			break
		}
		flusher.Flush()
	}

	_, _ = w.Write([]byte("data: [DONE]\n\n"))
	flusher.Flush()

	d.record(req, result.Ref.ResolvedID, outcome, result.Response.StatusCode,
		result.Response.ProviderLatency, time.Since(start), "")
}

// record enqueues the request log and usage row, both best-effort.
func (d *Dependencies) record(req gateway.Request, resolvedID, outcome string, statusCode int, providerLatency, gatewayLatency time.Duration, errDetail string) {
	provider := ""
	alias := ""
	if resolvedID != "" {
		provider, _, _ = strings.Cut(resolvedID, ":")
		if req.Model != resolvedID {
			alias = req.Model
		}
	}

	model := resolvedID
	if model == "" {
		model = req.Model
	}

	_ = d.LogSink.Enqueue(&logging.LogRecord{
		Timestamp:   time.Now(),
		RequestID:   req.RequestID,
		Fingerprint: utils.HashFingerprint(req.Fingerprint),
		UserID:      req.UserID,
		TeamID:      req.TeamID,
		Model:       model,
		Alias:       alias,
		Provider:    provider,
		Outcome:     outcome,
		StatusCode:  statusCode,
		Error:       errDetail,
		ProviderMs:  providerLatency.Milliseconds(),
		GatewayMs:   gatewayLatency.Milliseconds(),
	})

	if d.Usage != nil {
		_ = d.Usage.Enqueue(context.Background(), &storage.UsageRecord{
			RequestID:   req.RequestID,
			Fingerprint: utils.HashFingerprint(req.Fingerprint),
			UserID:      req.UserID,
			TeamID:      req.TeamID,
			Provider:    provider,
			Model:       model,
			Alias:       alias,
			Outcome:     outcome,
			StatusCode:  statusCode,
			ProviderMs:  providerLatency.Milliseconds(),
			GatewayMs:   gatewayLatency.Milliseconds(),
			Timestamp:   time.Now(),
		})
	}
}
