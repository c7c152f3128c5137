package enrich

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "ventureflow"
	metricsSubsystem = "enrich"
)

// Outcome labels for RequestsTotal
const (
	OutcomeEnriched    = "enriched"
	OutcomeCached      = "cached"
	OutcomeInvalid     = "invalid"
	OutcomeRateLimited = "rate_limited"
	OutcomeInProgress  = "in_progress"
	OutcomeFailed      = "failed"
)

// Metrics holds the prometheus collectors of the enrichment service.
//
// All operations are thread-safe.
type Metrics struct {
	// RequestsTotal counts enrich calls by outcome.
	// Labels: outcome (enriched, cached, invalid, rate_limited, in_progress, failed)
	RequestsTotal *prometheus.CounterVec

	// CacheLookupsTotal counts cache reads.
	// Labels: result (hit, miss)
	CacheLookupsTotal *prometheus.CounterVec

	// ExtractionsTotal counts completed extractions by cascade stage.
	// Labels: method (primary, fallback, mock)
	ExtractionsTotal *prometheus.CounterVec

	// RateLimitedTotal counts requests refused by admission control.
	RateLimitedTotal prometheus.Counter

	// DurationSeconds measures enrich latency.
	// Labels: outcome
	DurationSeconds *prometheus.HistogramVec

	// QueueDrainedTotal counts queued requests settled by a drain.
	// Labels: result (succeeded, failed, dropped, skipped)
	QueueDrainedTotal *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "requests_total",
				Help:      "Total enrichment requests by outcome",
			},
			[]string{"outcome"},
		),

		CacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "cache_lookups_total",
				Help:      "Total enrichment cache lookups by result",
			},
			[]string{"result"},
		),

		ExtractionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "extractions_total",
				Help:      "Total extractions by the cascade stage that produced them",
			},
			[]string{"method"},
		),

		RateLimitedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "rate_limited_total",
				Help:      "Total requests refused by the rate limiter",
			},
		),

		DurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "duration_seconds",
				Help:      "Enrichment request duration in seconds",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"outcome"},
		),

		QueueDrainedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "queue_drained_total",
				Help:      "Total queued requests settled by drain passes",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) observe(outcome string, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(outcome).Inc()
	m.DurationSeconds.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) cacheLookup(hit bool) {
	if hit {
		m.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	m.CacheLookupsTotal.WithLabelValues("miss").Inc()
}
