// Package ratelimit admits or refuses enrichment requests per caller identity
// using one token bucket per identity.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"github.com/SurajPatil2645/VentureFlow/internal/common/logging"
	"github.com/SurajPatil2645/VentureFlow/internal/common/utils"
	"golang.org/x/time/rate"
)

// Config configures the limiter.
type Config struct {
	Enabled           bool          `json:"enabled"`
	RequestsPerMinute int           `json:"requests_per_minute"`
	IdleTimeout       time.Duration `json:"idle_timeout"`
}

// DefaultConfig returns 10 requests per minute with idle buckets pruned after 10 minutes.
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		RequestsPerMinute: 10,
		IdleTimeout:       10 * time.Minute,
	}
}

// Result is the outcome of a single admission check.
type Result struct {
	Allowed           bool `json:"allowed"`
	Remaining         int  `json:"remaining"`
	RetryAfterSeconds int  `json:"retryAfter,omitempty"`
}

// Settings is the operator-facing view of the limiter configuration.
type Settings struct {
	Enabled           bool    `json:"enabled"`
	RequestsPerMinute int     `json:"requestsPerMinute"`
	TokenRefillRate   float64 `json:"tokenRefillRate"`
	MaxTokens         int     `json:"maxTokens"`
	Identities        int     `json:"identities"`
}

type bucket struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	lastUsed time.Time
}

func (b *bucket) touch(now time.Time) {
	b.mu.Lock()
	b.touchLocked(now)
	b.mu.Unlock()
}

// touchLocked never moves lastUsed backwards.
func (b *bucket) touchLocked(now time.Time) {
	if now.After(b.lastUsed) {
		b.lastUsed = now
	}
}

// Limiter is a per-identity token bucket limiter. Each bucket holds at most
// RequestsPerMinute tokens and refills continuously at RequestsPerMinute/60
// tokens per second.
type Limiter struct {
	mu          sync.Mutex
	config      Config
	clock       utils.Clock
	buckets     map[string]*bucket
	lastCleanup time.Time
	logger      logging.Logger
}

// NewLimiter creates a limiter. A nil clock uses the wall clock.
func NewLimiter(config Config, clock utils.Clock, logger logging.Logger) *Limiter {
	if config.RequestsPerMinute < 1 {
		config.RequestsPerMinute = DefaultConfig().RequestsPerMinute
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultConfig().IdleTimeout
	}
	if clock == nil {
		clock = utils.RealClock{}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Limiter{
		config:      config,
		clock:       clock,
		buckets:     make(map[string]*bucket),
		lastCleanup: clock.Now(),
		logger:      logger.WithFields(logging.Field{Key: "component", Value: "ratelimit"}),
	}
}

func (l *Limiter) maxTokens() int {
	return l.config.RequestsPerMinute
}

func (l *Limiter) refillRate() float64 {
	return float64(l.config.RequestsPerMinute) / 60
}

// Check consumes one token for identity if one is available.
func (l *Limiter) Check(identity string) Result {
	if !l.config.Enabled {
		return Result{Allowed: true, Remaining: l.maxTokens()}
	}

	now := l.clock.Now()
	b := l.bucketFor(identity, now)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.touchLocked(now)
	if b.limiter.AllowN(now, 1) {
		return Result{Allowed: true, Remaining: floorTokens(b.limiter.TokensAt(now))}
	}

	retryAfter := l.retryAfter(b.limiter.TokensAt(now))
	l.logger.Debug("Rate limit exceeded",
		logging.Field{Key: "identity", Value: identity},
		logging.Field{Key: "retry_after", Value: retryAfter},
	)
	return Result{Allowed: false, Remaining: 0, RetryAfterSeconds: retryAfter}
}

// Status reports what Check would return without consuming a token.
func (l *Limiter) Status(identity string) Result {
	if !l.config.Enabled {
		return Result{Allowed: true, Remaining: l.maxTokens()}
	}

	l.mu.Lock()
	b, ok := l.buckets[identity]
	l.mu.Unlock()
	if !ok {
		return Result{Allowed: true, Remaining: l.maxTokens()}
	}

	now := l.clock.Now()
	b.mu.Lock()
	tokens := b.limiter.TokensAt(now)
	b.mu.Unlock()

	if tokens >= 1 {
		return Result{Allowed: true, Remaining: floorTokens(tokens)}
	}
	return Result{Allowed: false, Remaining: 0, RetryAfterSeconds: l.retryAfter(tokens)}
}

// Reset forgets the bucket for identity, restoring a full allowance.
func (l *Limiter) Reset(identity string) {
	l.mu.Lock()
	delete(l.buckets, identity)
	l.mu.Unlock()

	l.logger.Info("Rate limit reset", logging.Field{Key: "identity", Value: identity})
}

// Settings returns a snapshot of the limiter configuration.
func (l *Limiter) Settings() Settings {
	l.mu.Lock()
	identities := len(l.buckets)
	l.mu.Unlock()

	return Settings{
		Enabled:           l.config.Enabled,
		RequestsPerMinute: l.config.RequestsPerMinute,
		TokenRefillRate:   l.refillRate(),
		MaxTokens:         l.maxTokens(),
		Identities:        identities,
	}
}

func (l *Limiter) bucketFor(identity string, now time.Time) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastCleanup) > l.config.IdleTimeout {
		l.cleanup(now)
	}

	b, ok := l.buckets[identity]
	if !ok {
		b = &bucket{
			limiter:  rate.NewLimiter(rate.Limit(l.refillRate()), l.maxTokens()),
			lastUsed: now,
		}
		l.buckets[identity] = b
		return b
	}

	// touched under l.mu so a concurrent cleanup cannot drop a bucket that
	// is about to be charged
	b.touch(now)
	return b
}

// cleanup drops buckets idle for longer than IdleTimeout. A bucket idle for a
// full minute has refilled completely, so dropping it changes nothing.
func (l *Limiter) cleanup(now time.Time) {
	cutoff := now.Add(-l.config.IdleTimeout)
	for key, b := range l.buckets {
		b.mu.Lock()
		idle := b.lastUsed.Before(cutoff)
		b.mu.Unlock()
		if idle {
			delete(l.buckets, key)
		}
	}
	l.lastCleanup = now
}

func (l *Limiter) retryAfter(tokens float64) int {
	seconds := int(math.Ceil((1 - tokens) * 60 / float64(l.maxTokens())))
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}

func floorTokens(tokens float64) int {
	if tokens <= 0 {
		return 0
	}
	return int(math.Floor(tokens))
}
