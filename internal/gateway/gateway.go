package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"model_gateway/internal/catalog"
	"model_gateway/internal/providers"
	"model_gateway/internal/ratelimit"
	"model_gateway/internal/utils"
)

// FingerprintUnknown is the shared bucket for callers with no forwarded IP.
// Every such caller draws from one quota; see DESIGN.md for why this
// coarsening is kept.
const FingerprintUnknown = "unknown"

// Request is one inbound generation request.
type Request struct {
	RequestID   string // assigned when empty
	Fingerprint string // rate-limit bucket key, typically the caller IP
	UserID      string
	TeamID      string

	Model    string // raw model id or alias
	Messages []providers.Message
	System   string

	// APIKey is the caller's own upstream credential. Its presence alone
	// bypasses shared-pool rate limiting; the gateway never checks its
	// validity.
	APIKey string

	Params map[string]any
	Stream bool
}

// Result is a successful dispatch: the resolved reference plus the live
// upstream response. Callers must Close it when the stream is drained or
// abandoned.
type Result struct {
	RequestID string
	Ref       catalog.ResolvedRef
	Response  *providers.ChatResponse

	cancel context.CancelFunc
}

// Close cancels the request budget and releases the upstream stream.
func (r *Result) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	return r.Response.Close()
}

// Config holds the gateway's per-request policy.
type Config struct {
	RateLimit     int           // shared-pool requests per window, <=0 disables
	RateWindow    time.Duration // fixed-window duration
	RequestBudget time.Duration // wall-clock budget per request, <=0 disables
}

// Gateway is the per-request entry point: it resolves the model id, enforces
// the shared-pool rate limit, obtains the provider handle and dispatches the
// upstream call, classifying any failure exactly once.
type Gateway struct {
	resolver *catalog.Resolver
	registry *providers.Registry
	limiter  ratelimit.Limiter
	cfg      Config
	logger   *utils.Logger
}

// New constructs a gateway. All collaborators are injected and read-only
// after construction; the gateway itself holds no mutable state.
func New(resolver *catalog.Resolver, registry *providers.Registry, limiter ratelimit.Limiter, cfg Config) *Gateway {
	if limiter == nil {
		limiter = ratelimit.NewNoopLimiter()
	}
	return &Gateway{
		resolver: resolver,
		registry: registry,
		limiter:  limiter,
		cfg:      cfg,
		logger:   utils.NewLogger("gateway"),
	}
}

// Generate drives one request through
// Received -> Resolved -> (RateChecked | BypassedRateCheck) -> Dispatched.
// On success the caller owns the returned Result and its stream; on failure
// the returned error is always a *Failure.
func (g *Gateway) Generate(ctx context.Context, req Request) (*Result, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}
	if req.Fingerprint == "" {
		req.Fingerprint = FingerprintUnknown
	}

	ref := g.resolver.Resolve(req.Model)
	if !ref.Valid {
		g.logger.Warn("rejected unresolvable model",
			"request_id", req.RequestID, "model", ref.ResolvedID)
		return nil, invalidRequestFailure(ref.ResolvedID)
	}
	g.logger.Debug("resolved model",
		"request_id", req.RequestID, "model", ref.ResolvedID, "provider", ref.Provider)

	if req.APIKey == "" {
		dec, err := g.limiter.Check(ctx, req.Fingerprint, g.cfg.RateLimit, g.cfg.RateWindow)
		if err != nil {
			// A broken counter store must not take the gateway down with
			// it: fail open and keep serving from the shared pool.
			g.logger.Error("rate limit check failed, allowing request",
				"request_id", req.RequestID, "error", err)
		} else if dec.Limited {
			g.logger.Info("rate limited",
				"request_id", req.RequestID,
				"fingerprint", utils.HashFingerprint(req.Fingerprint),
				"reset_at", dec.ResetAt)
			return nil, rateLimitedFailure(dec)
		}
	} else {
		g.logger.Debug("rate check bypassed, caller key present",
			"request_id", req.RequestID)
	}

	handle, err := g.registry.Handle(ref.ResolvedID)
	if err != nil {
		// The catalog said yes but the registry said no: configuration
		// drift between the two. Surfaced like any other bad id.
		if errors.Is(err, providers.ErrUnsupportedProvider) || errors.Is(err, providers.ErrUnsupportedModel) {
			g.logger.Error("catalog and registry disagree",
				"request_id", req.RequestID, "model", ref.ResolvedID, "error", err)
			return nil, invalidRequestFailure(ref.ResolvedID)
		}
		return nil, classifyDispatchError(err)
	}

	dispatchCtx := ctx
	var cancel context.CancelFunc
	if g.cfg.RequestBudget > 0 {
		dispatchCtx, cancel = context.WithTimeout(ctx, g.cfg.RequestBudget)
	}

	resp, err := handle.Generate(dispatchCtx, providers.ChatRequest{
		Messages: req.Messages,
		System:   req.System,
		APIKey:   req.APIKey,
		Params:   req.Params,
		Stream:   req.Stream,
	})
	if err != nil {
		if cancel != nil {
			cancel()
		}
		failure := classifyDispatchError(err)
		g.logger.Error("dispatch failed",
			"request_id", req.RequestID,
			"model", ref.ResolvedID,
			"kind", failure.Kind,
			"error", err)
		return nil, failure
	}

	g.logger.Info("dispatched",
		"request_id", req.RequestID,
		"model", ref.ResolvedID,
		"provider", handle.Provider(),
		"upstream_model", handle.Model(),
		"provider_ms", resp.ProviderLatency.Milliseconds())

	return &Result{
		RequestID: req.RequestID,
		Ref:       ref,
		Response:  resp,
		cancel:    cancel,
	}, nil
}
