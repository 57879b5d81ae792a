package providers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"
)

const providerTimeout = 90 * time.Second

// newHTTPClient returns the shared transport configuration used by every
// vendor handle. The client timeout is a safety net; per-request budgets come
// from the caller's context.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: providerTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// apiErrorFromResponse drains a non-2xx vendor response into an *APIError.
// OpenAI, Anthropic and Google all wrap failures as {"error":{"message":...}};
// anything else falls back to the raw body.
func apiErrorFromResponse(provider string, resp *http.Response) *APIError {
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	message := string(body)
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}

	return &APIError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Message:    message,
	}
}
