package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const googleDefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GoogleFactory mints handles for the Google generative language API.
type GoogleFactory struct {
	apiKey   string
	baseURL  string
	client   *http.Client
	models   map[string]string
	fallback bool
}

// GoogleConfig configures the Google factory.
type GoogleConfig struct {
	APIKey  string
	BaseURL string
}

// NewGoogleFactory creates the Google factory. "gemini-2.5-pro" is pinned to
// a preview snapshot and "gemini-2.0-flash" to its stable 001 version;
// unregistered names fall back to the raw model string.
func NewGoogleFactory(cfg GoogleConfig) *GoogleFactory {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = googleDefaultBaseURL
	}

	return &GoogleFactory{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		client:  newHTTPClient(),
		models: map[string]string{
			"gemini-2.5-pro":   "gemini-2.5-pro-preview-06-05",
			"gemini-2.5-flash": "gemini-2.5-flash",
			"gemini-2.0-flash": "gemini-2.0-flash-001",
		},
		fallback: true,
	}
}

func (f *GoogleFactory) Name() string {
	return "google"
}

func (f *GoogleFactory) CreateHandle(model string) (Handle, error) {
	return f.createHandle(model, f.fallback)
}

func (f *GoogleFactory) createHandle(model string, fallback bool) (Handle, error) {
	upstream, ok := f.models[model]
	if !ok {
		if !fallback {
			return nil, fmt.Errorf("%w: google has no model %q", ErrUnsupportedModel, model)
		}
		upstream = model
	}

	return &googleHandle{factory: f, model: upstream}, nil
}

type googleHandle struct {
	factory *GoogleFactory
	model   string
}

func (h *googleHandle) Provider() string {
	return "google"
}

func (h *googleHandle) Model() string {
	return h.model
}

func (h *googleHandle) Generate(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	contents := make([]map[string]any, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := m.Role
		if role == "assistant" {
			role = "model"
		}
		contents = append(contents, map[string]any{
			"role":  role,
			"parts": []map[string]any{{"text": m.Content}},
		})
	}

	payload := map[string]any{
		"contents": contents,
	}
	if req.System != "" {
		payload["systemInstruction"] = map[string]any{
			"parts": []map[string]any{{"text": req.System}},
		}
	}
	for k, v := range req.Params {
		payload[k] = v
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	action := "generateContent"
	if req.Stream {
		action = "streamGenerateContent"
	}
	url := fmt.Sprintf("%s/models/%s:%s", h.factory.baseURL, h.model, action)
	if req.Stream {
		url += "?alt=sse"
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	apiKey := h.factory.apiKey
	if req.APIKey != "" {
		apiKey = req.APIKey
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", apiKey)

	resp, err := h.factory.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("google request failed: %w", err)
	}

	latency := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		return nil, apiErrorFromResponse("google", resp)
	}

	if req.Stream {
		return &ChatResponse{
			StatusCode:      resp.StatusCode,
			Stream:          resp.Body,
			ProviderLatency: latency,
		}, nil
	}

	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &ChatResponse{
		StatusCode:      resp.StatusCode,
		Body:            respBody,
		ProviderLatency: latency,
	}, nil
}
