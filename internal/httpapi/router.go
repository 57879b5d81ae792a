package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"model_gateway/internal/catalog"
	"model_gateway/internal/config"
	"model_gateway/internal/gateway"
	"model_gateway/internal/logging"
	"model_gateway/internal/providers"
	"model_gateway/internal/queue"
	"model_gateway/internal/ratelimit"
	"model_gateway/internal/storage"
	"model_gateway/internal/utils"
)

// Generator is the slice of the gateway the HTTP layer calls.
type Generator interface {
	Generate(ctx context.Context, req gateway.Request) (*gateway.Result, error)
}

// UsageRecorder accepts usage records for async persistence.
type UsageRecorder interface {
	Enqueue(ctx context.Context, record *storage.UsageRecord) error
}

// Dependencies aggregates all services the HTTP layer needs.
type Dependencies struct {
	Gateway Generator
	Catalog *catalog.Catalog
	LogSink logging.Sink
	Usage   UsageRecorder // nil when usage recording is disabled
	Logger  *utils.Logger

	usageWorker *storage.UsageQueueWorker
	closers     []func() error
}

// NewRouter creates an HTTP router with all dependencies wired up
func NewRouter(cfg *config.Config) (*http.ServeMux, *Dependencies, error) {
	cat, err := catalog.NewCatalog(catalog.DefaultModels())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build model catalog: %w", err)
	}

	aliases, err := catalog.NewAliasTable(cat, catalog.DefaultAliases())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build alias table: %w", err)
	}

	resolver := catalog.NewResolver(cat, aliases)

	google := providers.NewGoogleFactory(providers.GoogleConfig{
		APIKey:  cfg.Providers.GoogleAPIKey,
		BaseURL: cfg.Providers.GoogleBaseURL,
	})

	registry := providers.NewRegistry()
	registry.Register(providers.NewOpenAIFactory(providers.OpenAIConfig{
		APIKey:  cfg.Providers.OpenAIAPIKey,
		BaseURL: cfg.Providers.OpenAIBaseURL,
	}))
	registry.Register(providers.NewAnthropicFactory(providers.AnthropicConfig{
		APIKey:  cfg.Providers.AnthropicAPIKey,
		BaseURL: cfg.Providers.AnthropicBaseURL,
	}))
	registry.Register(google)
	registry.Register(providers.NewObbyLabsFactory(google))

	deps := &Dependencies{
		Catalog: cat,
		LogSink: logging.NewNoopSink(),
		Logger:  utils.NewLogger("httpapi"),
	}

	// Redis is only dialed when something needs it. A redis usage queue
	// counts only when usage recording is actually on.
	var redisClient *storage.RedisClient
	needRedis := cfg.RateLimit.Backend == "redis" ||
		(cfg.Usage.QueueBackend == "redis" && cfg.Database.URL != "")
	if needRedis {
		redisClient, err = storage.NewRedisClient(storage.RedisConfig{
			Address:         cfg.Redis.Address,
			Password:        cfg.Redis.Password,
			DB:              cfg.Redis.DB,
			PoolSize:        cfg.Redis.PoolSize,
			MinIdleConns:    cfg.Redis.MinIdleConns,
			DialTimeout:     cfg.Redis.DialTimeout,
			ReadTimeout:     cfg.Redis.ReadTimeout,
			WriteTimeout:    cfg.Redis.WriteTimeout,
			MaxRetries:      3,
			MinRetryBackoff: 8 * time.Millisecond,
			MaxRetryBackoff: 512 * time.Millisecond,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		deps.closers = append(deps.closers, redisClient.Close)
	}

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Backend == "redis" {
		limiter = ratelimit.NewRedisLimiter(redisClient.Client())
	} else {
		limiter = ratelimit.NewMemoryLimiter()
	}

	deps.Gateway = gateway.New(resolver, registry, limiter, gateway.Config{
		RateLimit:     cfg.RateLimit.MaxRequests,
		RateWindow:    cfg.RateLimit.Window,
		RequestBudget: cfg.RateLimit.RequestBudget,
	})

	if cfg.LoggingSink.Enabled {
		writer, err := logging.NewS3Writer(context.Background(),
			cfg.LoggingSink.S3Bucket, cfg.LoggingSink.S3Region,
			cfg.LoggingSink.S3Prefix, cfg.LoggingSink.PodName)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize S3 log writer: %w", err)
		}
		deps.LogSink = logging.NewBufferedSink(writer, logging.BufferedSinkConfig{
			BufferSize:    cfg.LoggingSink.BufferSize,
			FlushSize:     cfg.LoggingSink.FlushSize,
			FlushInterval: cfg.LoggingSink.FlushInterval,
		})
	}

	// Usage recording is opt-in via DATABASE_URL.
	if cfg.Database.URL != "" {
		db, err := storage.NewDB(storage.DBConfig{
			DSN:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		deps.closers = append(deps.closers, db.Close)

		if err := db.EnsureSchema(context.Background()); err != nil {
			return nil, nil, err
		}

		queueCfg := queue.DefaultConfig("usage")
		queueCfg.BatchSize = cfg.Usage.BatchSize
		queueCfg.BatchTimeout = cfg.Usage.BatchTimeout
		queueCfg.MaxRetries = cfg.Usage.MaxRetries
		queueCfg.RetryBackoff = cfg.Usage.RetryBackoff

		var usageQueue queue.Queue
		if cfg.Usage.QueueBackend == "redis" {
			usageQueue, err = queue.NewRedisQueue(redisClient.Client(), queueCfg)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to initialize usage queue: %w", err)
			}
		} else {
			usageQueue = queue.NewMemoryQueue(queueCfg)
		}
		deps.closers = append(deps.closers, usageQueue.Close)

		worker := storage.NewUsageQueueWorker(usageQueue, db.NewUsageRepository(), queueCfg)
		worker.Start(context.Background())
		deps.usageWorker = worker
		deps.Usage = worker
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", deps.handleChat)
	mux.HandleFunc("/api/models", deps.handleModels)
	mux.HandleFunc("/healthz", deps.handleHealth)

	return mux, deps, nil
}

// handleHealth reports liveness. Upstream providers are not probed.
func (d *Dependencies) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Close stops the usage worker, flushes the log sink and releases
// connections. Called from main during graceful shutdown.
func (d *Dependencies) Close(ctx context.Context) error {
	var firstErr error

	if d.usageWorker != nil {
		if err := d.usageWorker.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if sink, ok := d.LogSink.(*logging.BufferedSink); ok {
		if err := sink.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
