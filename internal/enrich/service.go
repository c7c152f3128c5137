package enrich

import (
	"context"
	stderrors "errors"

	"github.com/SurajPatil2645/VentureFlow/internal/cache"
	"github.com/SurajPatil2645/VentureFlow/internal/common/errors"
	"github.com/SurajPatil2645/VentureFlow/internal/common/logging"
	"github.com/SurajPatil2645/VentureFlow/internal/common/utils"
	"github.com/SurajPatil2645/VentureFlow/internal/common/validation"
	"github.com/SurajPatil2645/VentureFlow/internal/dedup"
	"github.com/SurajPatil2645/VentureFlow/internal/fetch"
	"github.com/SurajPatil2645/VentureFlow/internal/locks"
	"github.com/SurajPatil2645/VentureFlow/internal/ratelimit"
)

// AnonymousIdentity is used for callers without a resolved identity
const AnonymousIdentity = "anonymous"

// Dependencies are the components the service composes.
type Dependencies struct {
	Limiter   *ratelimit.Limiter
	Cache     *cache.TieredCache[Response]
	Queue     *dedup.Queue
	Fetcher   PageFetcher
	Extractor Extractor
	Clock     utils.Clock
	Metrics   *Metrics
	Logger    logging.Logger
	// Locks is optional; without it deduplication is per instance.
	Locks locks.Manager
}

// Service is the only component that knows about all the others.
type Service struct {
	config    Config
	limiter   *ratelimit.Limiter
	cache     *cache.TieredCache[Response]
	queue     *dedup.Queue
	fetcher   PageFetcher
	extractor Extractor
	locks     locks.Manager
	retrier   *utils.Retrier
	clock     utils.Clock
	metrics   *Metrics
	logger    logging.Logger
}

// NewService creates the orchestrator. Limiter, cache, queue, fetcher and
// extractor are required.
func NewService(config Config, deps Dependencies) (*Service, error) {
	if deps.Limiter == nil || deps.Cache == nil || deps.Queue == nil {
		return nil, errors.ConfigError("limiter, cache and queue are required")
	}
	if deps.Fetcher == nil || deps.Extractor == nil {
		return nil, errors.ConfigError("fetcher and extractor are required")
	}

	defaults := DefaultConfig()
	if config.MaxRetries <= 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.FetchRetries <= 0 {
		config.FetchRetries = defaults.FetchRetries
	}
	if config.RetryDelay < 0 {
		config.RetryDelay = defaults.RetryDelay
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = defaults.CacheTTL
	}
	if config.LockTTL <= 0 {
		config.LockTTL = defaults.LockTTL
	}

	clock := deps.Clock
	if clock == nil {
		clock = utils.RealClock{}
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &Service{
		config:    config,
		limiter:   deps.Limiter,
		cache:     deps.Cache,
		queue:     deps.Queue,
		fetcher:   deps.Fetcher,
		extractor: deps.Extractor,
		locks:     deps.Locks,
		retrier:   utils.NewRetrier(clock),
		clock:     clock,
		metrics:   metrics,
		logger:    logger.WithFields(logging.String("component", "enrich")),
	}, nil
}

// Enrich runs the full enrichment flow for one request. A second caller for
// a key that is already being enriched gets an in-progress error and may poll.
func (s *Service) Enrich(ctx context.Context, req Request) (*Response, error) {
	start := s.clock.Now()
	resp, outcome, err := s.enrich(ctx, req)
	s.metrics.observe(outcome, s.clock.Now().Sub(start))
	return resp, err
}

func (s *Service) enrich(ctx context.Context, req Request) (*Response, string, error) {
	target, err := validation.TargetURL(req.URL)
	if err != nil {
		return nil, OutcomeInvalid, err
	}
	targetURL := target.String()

	identity := req.Identity
	if identity == "" {
		identity = AnonymousIdentity
	}
	logger := s.logger.WithContext(ctx).WithFields(
		logging.String("url", targetURL),
		logging.String("subject_id", req.SubjectID),
	)

	if admitted := s.limiter.Check(identity); !admitted.Allowed {
		s.metrics.RateLimitedTotal.Inc()
		logger.Warn("Enrichment rate limited",
			logging.String("identity", identity),
			logging.Int("retry_after", admitted.RetryAfterSeconds),
		)
		return nil, OutcomeRateLimited, errors.RateLimitError(identity, admitted.RetryAfterSeconds)
	}

	cacheKey := cache.GenerateKey(req.SubjectID, targetURL)
	if !req.Force {
		if cached, ok := s.cachedResponse(ctx, cacheKey); ok {
			logger.Debug("Serving cached enrichment")
			return cached, OutcomeCached, nil
		}
	}

	key := dedup.Key(req.SubjectID, targetURL)
	if !s.queue.TryMarkProcessing(key) {
		logger.Info("Enrichment already in progress", logging.String("key", key))
		return nil, OutcomeInProgress, errors.InProgressError(key)
	}
	defer s.queue.UnmarkProcessing(key)

	release, err := s.acquireShared(ctx, key, logger)
	if err != nil {
		logger.Info("Enrichment in progress on another instance", logging.String("key", key))
		return nil, OutcomeInProgress, err
	}
	defer release()

	// a concurrent enrichment may have landed while we waited for the marker
	if !req.Force {
		if cached, ok := s.cachedResponse(ctx, cacheKey); ok {
			return cached, OutcomeCached, nil
		}
	}

	resp, err := s.run(ctx, targetURL)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		logger.Error("Enrichment failed", err)
		return nil, OutcomeFailed, err
	}

	s.cache.Set(ctx, cacheKey, *resp, s.config.CacheTTL)
	logger.Info("Enrichment completed",
		logging.String("method", string(resp.ExtractionMethod)),
		logging.Int("sources", len(resp.Sources)),
	)
	return resp, OutcomeEnriched, nil
}

// acquireShared takes the cross-instance lock for key when one is configured.
// A failing lock backend degrades to per-instance deduplication.
func (s *Service) acquireShared(ctx context.Context, key string, logger logging.Logger) (func(), error) {
	if s.locks == nil {
		return func() {}, nil
	}

	lock, err := s.locks.TryAcquire(ctx, key, s.config.LockTTL)
	if stderrors.Is(err, locks.ErrLockHeld) {
		return nil, errors.InProgressError(key)
	}
	if err != nil {
		logger.Warn("Shared enrichment lock unavailable", logging.Err(err))
		return func() {}, nil
	}

	return func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Failed to release shared enrichment lock", logging.Err(err))
		}
	}, nil
}

func (s *Service) cachedResponse(ctx context.Context, key string) (*Response, bool) {
	cached, ok := s.cache.Get(ctx, key)
	s.metrics.cacheLookup(ok)
	if !ok {
		return nil, false
	}
	cached.Cached = true
	return &cached, true
}

// run is the retried unit of work: fetch, text, extraction, auxiliary pages.
// The page fetch carries its own, nested retry budget.
func (s *Service) run(ctx context.Context, targetURL string) (*Response, error) {
	return utils.RetryValue(ctx, s.retrier, s.config.MaxRetries, s.config.RetryDelay,
		func(ctx context.Context, attempt int) (*Response, error) {
			if attempt > 0 {
				s.logger.Debug("Retrying enrichment",
					logging.String("url", targetURL),
					logging.Int("attempt", attempt+1),
				)
			}

			page, err := utils.RetryValue(ctx, s.retrier, s.config.FetchRetries, s.config.RetryDelay,
				func(ctx context.Context, _ int) (string, error) {
					return s.fetcher.FetchPage(ctx, targetURL)
				})
			if err != nil {
				return nil, err
			}

			text, err := fetch.ExtractText(page)
			if err != nil {
				return nil, err
			}

			result, err := s.extractor.Extract(ctx, text, targetURL)
			if err != nil {
				return nil, err
			}
			s.metrics.ExtractionsTotal.WithLabelValues(string(result.Method)).Inc()

			sources := []Source{{URL: targetURL, Timestamp: s.clock.Now()}}
			for _, page := range s.fetcher.AuxiliarySources(ctx, targetURL) {
				sources = append(sources, Source{URL: page, Timestamp: s.clock.Now()})
			}

			return &Response{
				Summary:          result.Summary,
				WhatTheyDo:       result.WhatTheyDo,
				Keywords:         result.Keywords,
				Signals:          result.Signals,
				Sources:          sources,
				EnrichedAt:       s.clock.Now(),
				ExtractionMethod: result.Method,
			}, nil
		})
}
