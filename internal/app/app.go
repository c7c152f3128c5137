package app

import (
	"context"
	"fmt"

	"github.com/SurajPatil2645/VentureFlow/internal/auth"
	"github.com/SurajPatil2645/VentureFlow/internal/cache"
	"github.com/SurajPatil2645/VentureFlow/internal/common/errors"
	"github.com/SurajPatil2645/VentureFlow/internal/common/logging"
	"github.com/SurajPatil2645/VentureFlow/internal/common/utils"
	"github.com/SurajPatil2645/VentureFlow/internal/config"
	"github.com/SurajPatil2645/VentureFlow/internal/dedup"
	"github.com/SurajPatil2645/VentureFlow/internal/enrich"
	"github.com/SurajPatil2645/VentureFlow/internal/extraction"
	"github.com/SurajPatil2645/VentureFlow/internal/fetch"
	"github.com/SurajPatil2645/VentureFlow/internal/locks"
	"github.com/SurajPatil2645/VentureFlow/internal/ratelimit"
	"github.com/SurajPatil2645/VentureFlow/internal/redis"
	"github.com/SurajPatil2645/VentureFlow/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App holds all the application dependencies
type App struct {
	Config    *config.Config
	Storage   storage.Backend
	Locks     locks.Manager
	Service   *enrich.Service
	Auth      *auth.Auth
	Scheduler *Scheduler
	Registry  *prometheus.Registry
	Logger    logging.Logger
}

// New creates a new application instance with all dependencies. The
// durable cache tier falls back to memory when the configured backend is
// unreachable.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.GetGlobalLogger().WithFields(logging.String("component", "app"))
	app := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app.Storage = storage.NewBackendOrMemory(ctx, cfg.StorageConfig(), logging.GetGlobalLogger())
	app.initializeLocks()

	service, err := app.initializeService()
	if err != nil {
		app.Cleanup()
		return nil, err
	}
	app.Service = service

	proxies, err := auth.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		app.Cleanup()
		return nil, errors.ConfigError(err.Error())
	}
	app.Auth = auth.New(cfg.JWTSecret, logging.GetGlobalLogger(), auth.WithTrustedProxies(proxies))
	if cfg.JWTSecret == "" {
		logger.Info("JWT identities disabled, rate limiting by client IP")
	}

	scheduler, err := NewScheduler(cfg.SweepSchedule, cfg.DrainSchedule, service, logging.GetGlobalLogger())
	if err != nil {
		app.Cleanup()
		return nil, err
	}
	app.Scheduler = scheduler

	return app, nil
}

// initializeLocks enables cross-instance deduplication when the durable tier
// is a shared Redis.
func (app *App) initializeLocks() {
	redisClient, ok := app.Storage.(*redis.Client)
	if !ok {
		return
	}
	manager, err := locks.NewRedsyncManager(redisClient)
	if err != nil {
		app.Logger.Warn("Distributed locks unavailable", logging.Err(err))
		return
	}
	app.Locks = manager
	app.Logger.Info("Distributed enrichment locks: Enabled")
}

func (app *App) initializeService() (*enrich.Service, error) {
	cfg := app.Config
	clock := utils.RealClock{}
	global := logging.GetGlobalLogger()

	limiterConfig := ratelimit.DefaultConfig()
	limiterConfig.Enabled = cfg.RateLimitEnabled
	limiterConfig.RequestsPerMinute = cfg.RateLimitPerMinute
	limiter := ratelimit.NewLimiter(limiterConfig, clock, global)

	enrichCache := cache.New[enrich.Response](cache.Config{
		Enabled:    cfg.CacheEnabled,
		DefaultTTL: cfg.CacheTTL,
	}, app.Storage, clock, global)

	queue := dedup.NewQueue(dedup.Config{
		Timeout:     cfg.QueueTimeout,
		MaxAttempts: cfg.QueueMaxAttempts,
	}, clock, global)

	fetchConfig := fetch.DefaultConfig()
	fetchConfig.UserAgent = cfg.UserAgent
	fetchConfig.PageTimeout = cfg.FetchTimeout
	fetchConfig.AuxTimeout = cfg.AuxFetchTimeout
	fetcher := fetch.NewFetcher(fetchConfig, nil, global)

	var model extraction.Model
	if cfg.OpenAIAPIKey != "" {
		openAI, err := extraction.NewOpenAIModel(extraction.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.OpenAITimeout,
		}, global)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize model client: %w", err)
		}
		model = openAI
		app.Logger.Info("Model API configured", logging.String("model", cfg.OpenAIModel))
	} else {
		app.Logger.Warn("OPENAI_API_KEY not set, every enrichment uses synthesised data")
	}

	return enrich.NewService(enrich.Config{
		MaxRetries:   cfg.MaxRetries,
		FetchRetries: cfg.FetchRetries,
		RetryDelay:   cfg.RetryDelay,
		CacheTTL:     cfg.CacheTTL,
	}, enrich.Dependencies{
		Limiter:   limiter,
		Cache:     enrichCache,
		Queue:     queue,
		Fetcher:   fetcher,
		Extractor: extraction.NewPipeline(model, global),
		Clock:     clock,
		Metrics:   enrich.NewMetrics(app.Registry),
		Logger:    global,
		Locks:     app.Locks,
	})
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	if app.Scheduler != nil {
		app.Scheduler.Stop()
	}
	if app.Locks != nil {
		app.Locks.Close()
	}
	if app.Storage != nil {
		if err := app.Storage.Close(); err != nil {
			app.Logger.Warn("Error closing storage", logging.Err(err))
		}
	}
}
