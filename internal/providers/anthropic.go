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

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion        = "2023-06-01"
	anthropicMaxTokens      = 8192
)

// AnthropicFactory mints handles for the Anthropic messages API.
type AnthropicFactory struct {
	apiKey   string
	baseURL  string
	client   *http.Client
	models   map[string]string
	fallback bool
}

// AnthropicConfig configures the Anthropic factory.
type AnthropicConfig struct {
	APIKey  string
	BaseURL string
}

// NewAnthropicFactory creates the Anthropic factory. Registered names map
// public model names onto pinned upstream snapshot versions; unregistered
// names fall back to the raw model string.
func NewAnthropicFactory(cfg AnthropicConfig) *AnthropicFactory {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = anthropicDefaultBaseURL
	}

	return &AnthropicFactory{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		client:  newHTTPClient(),
		models: map[string]string{
			"claude-sonnet-4":   "claude-4-sonnet-20250514",
			"claude-3.7-sonnet": "claude-3-7-sonnet-20250219",
		},
		fallback: true,
	}
}

func (f *AnthropicFactory) Name() string {
	return "anthropic"
}

func (f *AnthropicFactory) CreateHandle(model string) (Handle, error) {
	upstream, ok := f.models[model]
	if !ok {
		if !f.fallback {
			return nil, fmt.Errorf("%w: anthropic has no model %q", ErrUnsupportedModel, model)
		}
		upstream = model
	}

	return &anthropicHandle{factory: f, model: upstream}, nil
}

type anthropicHandle struct {
	factory *AnthropicFactory
	model   string
}

func (h *anthropicHandle) Provider() string {
	return "anthropic"
}

func (h *anthropicHandle) Model() string {
	return h.model
}

func (h *anthropicHandle) Generate(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	payload := map[string]any{
		"model":      h.model,
		"max_tokens": anthropicMaxTokens,
		"messages":   req.Messages,
		"stream":     req.Stream,
	}
	if req.System != "" {
		payload["system"] = req.System
	}
	for k, v := range req.Params {
		payload[k] = v
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.factory.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	apiKey := h.factory.apiKey
	if req.APIKey != "" {
		apiKey = req.APIKey
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := h.factory.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	latency := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		return nil, apiErrorFromResponse("anthropic", resp)
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
