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

const openAIDefaultBaseURL = "https://api.openai.com/v1"

// OpenAIFactory mints handles for the OpenAI chat completions API.
type OpenAIFactory struct {
	apiKey   string
	baseURL  string
	client   *http.Client
	models   map[string]string // public name -> upstream name
	fallback bool
}

// OpenAIConfig configures the OpenAI factory.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // defaults to the public API endpoint
}

// NewOpenAIFactory creates the OpenAI factory with its registered sub-models.
// Unregistered names fall back to the raw model string.
func NewOpenAIFactory(cfg OpenAIConfig) *OpenAIFactory {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openAIDefaultBaseURL
	}

	return &OpenAIFactory{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		client:  newHTTPClient(),
		models: map[string]string{
			"gpt-4.1":      "gpt-4.1",
			"gpt-4.1-mini": "gpt-4.1-mini",
			"gpt-4o":       "gpt-4o",
			"gpt-4o-mini":  "gpt-4o-mini",
			"o3":           "o3",
			"o4-mini":      "o4-mini",
		},
		fallback: true,
	}
}

func (f *OpenAIFactory) Name() string {
	return "openai"
}

func (f *OpenAIFactory) CreateHandle(model string) (Handle, error) {
	upstream, ok := f.models[model]
	if !ok {
		if !f.fallback {
			return nil, fmt.Errorf("%w: openai has no model %q", ErrUnsupportedModel, model)
		}
		upstream = model
	}

	return &openAIHandle{factory: f, model: upstream}, nil
}

type openAIHandle struct {
	factory *OpenAIFactory
	model   string
}

func (h *openAIHandle) Provider() string {
	return "openai"
}

func (h *openAIHandle) Model() string {
	return h.model
}

// Generate posts to /chat/completions and returns either a buffered body or a
// live SSE stream, depending on req.Stream.
func (h *openAIHandle) Generate(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	payload := map[string]any{
		"model":  h.model,
		"stream": req.Stream,
	}

	messages := make([]Message, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, Message{Role: "system", Content: req.System})
	}
	messages = append(messages, req.Messages...)
	payload["messages"] = messages

	for k, v := range req.Params {
		payload[k] = v
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.factory.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	apiKey := h.factory.apiKey
	if req.APIKey != "" {
		apiKey = req.APIKey
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := h.factory.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}

	latency := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		return nil, apiErrorFromResponse("openai", resp)
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
