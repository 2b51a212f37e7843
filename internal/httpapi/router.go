package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"creative_gateway/internal/auth"
	"creative_gateway/internal/config"
	"creative_gateway/internal/generation"
	"creative_gateway/internal/ledger"
	"creative_gateway/internal/mediastore"
	"creative_gateway/internal/middleware"
	"creative_gateway/internal/models"
	"creative_gateway/internal/providers"
	"creative_gateway/internal/queue"
	"creative_gateway/internal/ratelimit"
	"creative_gateway/internal/storage"
	"creative_gateway/internal/utils"
)

// Generator runs one creative request end to end.
type Generator interface {
	Generate(ctx context.Context, req *models.CreativeRequest) (*generation.Result, error)
}

// AssistantStreamer produces token streams for the assistant endpoint.
type AssistantStreamer interface {
	StreamText(ctx context.Context, model, prompt string) *providers.TokenStream
}

// DetailedLimiter is the rate limiter surface the handlers need.
type DetailedLimiter interface {
	AllowWithDetails(ctx context.Context, key string, limit int) (bool, int, time.Time, error)
}

// UsageRecorder appends entries to the usage ledger.
type UsageRecorder interface {
	Record(ctx context.Context, e ledger.Entry)
}

// Dependencies aggregates all services the HTTP layer needs.
type Dependencies struct {
	Identities auth.IdentityStore
	Generator  Generator
	Assistant  AssistantStreamer
	RateLimit  DetailedLimiter
	Ledger     UsageRecorder

	// Owned infrastructure, closed on shutdown
	UsageWorker *ledger.Worker
	DB          *storage.DB
	Redis       *storage.RedisClient

	logger *utils.Logger
}

// NewRouter creates an HTTP router with all dependencies wired up
func NewRouter(ctx context.Context, cfg *config.Config) (*http.ServeMux, *Dependencies, error) {
	logger := utils.NewLogger("httpapi")

	// Initialize database
	dbConfig := storage.DefaultDBConfig()
	dbConfig.MaxOpenConns = cfg.Database.MaxOpenConns
	dbConfig.MaxIdleConns = cfg.Database.MaxIdleConns
	dbConfig.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
	dbConfig.ConnMaxIdleTime = cfg.Database.ConnMaxIdleTime
	dbConfig.IdentityCacheSize = cfg.Cache.IdentityCacheSize
	dbConfig.IdentityCacheTTL = cfg.Cache.IdentityCacheTTL

	db, err := storage.NewDBFromURL(cfg.Database.URL, dbConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize Redis; the gateway runs without it, losing distributed
	// rate limits and queue persistence.
	var redisClient *storage.RedisClient
	useRedis := cfg.Redis.Address != ""
	if useRedis {
		redisClient, err = storage.NewRedisClient(storage.RedisConfig{
			Address:         cfg.Redis.Address,
			Password:        cfg.Redis.Password,
			DB:              cfg.Redis.DB,
			PoolSize:        cfg.Redis.PoolSize,
			MinIdleConns:    cfg.Redis.MinIdleConns,
			DialTimeout:     cfg.Redis.DialTimeout,
			ReadTimeout:     cfg.Redis.ReadTimeout,
			WriteTimeout:    cfg.Redis.WriteTimeout,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			PoolTimeout:     4 * time.Second,
		})
		if err != nil {
			logger.Warn("Redis unavailable, falling back to in-memory queue and no rate limiting", "error", err)
			redisClient = nil
			useRedis = false
		}
	}

	// Usage record queue and worker
	queueCfg := queue.DefaultConfig("usage")
	queueCfg.UseRedis = useRedis
	queueCfg.BatchSize = cfg.LedgerQueue.BatchSize
	queueCfg.BatchTimeout = cfg.LedgerQueue.PollInterval
	queueCfg.MaxRetries = cfg.LedgerQueue.MaxRetries
	queueCfg.RetryBackoff = cfg.LedgerQueue.RetryBackoff

	var usageQueue queue.Queue
	var usageDLQ queue.DeadLetterQueue
	if useRedis {
		queueCfg.RedisAddr = cfg.Redis.Address
		queueCfg.RedisPassword = cfg.Redis.Password
		queueCfg.RedisDB = cfg.Redis.DB
		usageQueue, err = queue.NewRedisQueue(queueCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create usage queue: %w", err)
		}
		usageDLQ, err = queue.NewRedisDeadLetterQueue(queueCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create usage DLQ: %w", err)
		}
	} else {
		usageQueue = queue.NewMemoryQueue(queueCfg)
		usageDLQ = queue.NewMemoryDeadLetterQueue()
	}

	usageWorker := ledger.NewWorker(usageQueue, usageDLQ, db.NewUsageRepository(), queueCfg)
	usageWorker.Start(ctx)

	// Pricing and ledger
	pricing := models.DefaultPricingTable()
	usageLedger := ledger.New(pricing, usageWorker)

	// Providers
	google, err := providers.NewGoogleClient(ctx, cfg.Providers.GeminiAPIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize google client: %w", err)
	}
	fal, err := providers.NewFalClient(cfg.Providers.FalAPIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize fal client: %w", err)
	}

	// Media store
	store, err := mediastore.New(ctx, mediastore.Config{
		Bucket:        cfg.MediaStore.Bucket,
		Region:        cfg.MediaStore.Region,
		Prefix:        cfg.MediaStore.Prefix,
		PublicBaseURL: cfg.MediaStore.PublicBaseURL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize media store: %w", err)
	}

	// Orchestrator
	retry := providers.RetryPolicy{
		MaxAttempts: cfg.Providers.RetryMaxAttempts,
		BaseDelay:   cfg.Providers.RetryBaseDelay,
	}
	poller := generation.NewPoller(cfg.Providers.PollInterval, cfg.Providers.PollDeadline)
	orchestrator := generation.New(
		generation.GoogleAdapter{GoogleClient: google},
		fal, pricing, store, usageLedger, retry, poller,
	)

	// Rate limiter; without Redis every request passes.
	var limiter DetailedLimiter = ratelimit.NewNoopLimiter()
	if redisClient != nil {
		limiter = ratelimit.NewRateLimiter(redisClient.Client())
	}

	deps := &Dependencies{
		Identities:  NewDatabaseIdentityStore(db.NewIdentityRepository()),
		Generator:   orchestrator,
		Assistant:   google,
		RateLimit:   limiter,
		Ledger:      usageLedger,
		UsageWorker: usageWorker,
		DB:          db,
		Redis:       redisClient,
		logger:      logger,
	}

	mux := http.NewServeMux()
	registerRoutes(mux, deps)

	return mux, deps, nil
}

// Close stops the async worker and closes owned connections.
func (d *Dependencies) Close() error {
	if d.UsageWorker != nil {
		if err := d.UsageWorker.Stop(); err != nil {
			d.logger.Error("Failed to stop usage worker", "error", err)
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.logger.Error("Failed to close Redis", "error", err)
		}
	}
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

func registerRoutes(mux *http.ServeMux, deps *Dependencies) {
	identityMiddleware := middleware.IdentityMiddleware(deps.Identities)

	mux.Handle("/v1/generations", identityMiddleware(http.HandlerFunc(deps.handleGenerate)))
	mux.Handle("/v1/assistant/stream", identityMiddleware(http.HandlerFunc(deps.handleAssistantStream)))

	mux.HandleFunc("/healthz", deps.handleHealth)
}

// handleHealth reports gateway and dependency health.
func (d *Dependencies) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"gateway": "ok"}
	healthy := true

	if d.DB != nil {
		if err := d.DB.Health(ctx); err != nil {
			checks["database"] = err.Error()
			healthy = false
		} else {
			checks["database"] = "ok"
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Health(ctx); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, checks)
}
