package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"model_gateway/internal/providers"
	"model_gateway/internal/ratelimit"
)

// Kind names one class of terminal request failure.
type Kind string

const (
	KindInvalidRequest Kind = "invalid_request"
	KindRateLimited    Kind = "rate_limited"
	KindOverloaded     Kind = "overloaded"
	KindAccessDenied   Kind = "access_denied"
	KindUnknown        Kind = "unknown"
)

// Caller-visible messages. Full error detail stays in server-side logs.
const (
	msgSharedLimitReached = "You have reached your request limit for the day."
	msgProviderLimit      = "The provider is currently unavailable due to request limit. Try using your own API key."
	msgProviderOverloaded = "The provider is currently unavailable. Please try again later."
	msgAccessDenied       = "Access denied. Please make sure your API key is valid."
	msgUnexpected         = "An unexpected error has occurred. Please try again later."
)

// Failure is a classified terminal error for one request. Classification
// happens exactly once, at the gateway boundary; callers translate the
// StatusCode and Message onto their transport and never re-classify.
type Failure struct {
	Kind       Kind
	StatusCode int    // HTTP-equivalent status for the caller
	Message    string // user-facing text

	// Rate carries limit/remaining/reset metadata when Kind is
	// KindRateLimited by the shared pool.
	Rate *ratelimit.Decision

	cause error
}

func (f *Failure) Error() string {
	if f.cause != nil {
		return fmt.Sprintf("%s: %v", f.Kind, f.cause)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.cause
}

// AsFailure extracts a classified failure from an error chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	ok := errors.As(err, &f)
	return f, ok
}

func invalidRequestFailure(attemptedID string) *Failure {
	return &Failure{
		Kind:       KindInvalidRequest,
		StatusCode: 400,
		Message:    fmt.Sprintf("Invalid model: %s", attemptedID),
	}
}

func rateLimitedFailure(dec ratelimit.Decision) *Failure {
	return &Failure{
		Kind:       KindRateLimited,
		StatusCode: 429,
		Message:    msgSharedLimitReached,
		Rate:       &dec,
	}
}

// classifyDispatchError maps an upstream dispatch error into the taxonomy.
// The vendor status rules mirror what callers of the hosted SDKs observe:
// 429 (or a message mentioning a limit) is the vendor's own rate limit,
// 529/503 is capacity, 403/401 is a credential problem. A blown request
// budget reads as overload, not as a vendor fault.
func classifyDispatchError(err error) *Failure {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Failure{
			Kind:       KindOverloaded,
			StatusCode: 503,
			Message:    msgProviderOverloaded,
			cause:      err,
		}
	}

	var apiErr *providers.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429 || strings.Contains(apiErr.Message, "limit"):
			return &Failure{
				Kind:       KindRateLimited,
				StatusCode: 429,
				Message:    msgProviderLimit,
				cause:      err,
			}
		case apiErr.StatusCode == 529 || apiErr.StatusCode == 503:
			return &Failure{
				Kind:       KindOverloaded,
				StatusCode: 529,
				Message:    msgProviderOverloaded,
				cause:      err,
			}
		case apiErr.StatusCode == 403 || apiErr.StatusCode == 401:
			return &Failure{
				Kind:       KindAccessDenied,
				StatusCode: 403,
				Message:    msgAccessDenied,
				cause:      err,
			}
		}
	}

	return &Failure{
		Kind:       KindUnknown,
		StatusCode: 500,
		Message:    msgUnexpected,
		cause:      err,
	}
}
