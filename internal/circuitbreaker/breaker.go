// Package circuitbreaker guards calls to the model API with Sony's gobreaker
package circuitbreaker

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/SurajPatil2645/VentureFlow/internal/common/errors"
	"github.com/SurajPatil2645/VentureFlow/internal/common/logging"
	"github.com/SurajPatil2645/VentureFlow/internal/common/validation"
	"github.com/sony/gobreaker"
)

type Config struct {
	// Threshold consecutive failures open the breaker.
	Threshold int
	// OpenFor is how long an open breaker rejects calls before probing.
	OpenFor time.Duration
	// Probes is the number of calls let through while half-open.
	Probes int
}

// DefaultConfig is what the model API uses
func DefaultConfig() Config {
	return Config{Threshold: 5, OpenFor: time.Minute, Probes: 1}
}

func (c Config) Validate() error {
	v := validation.NewValidator()
	v.RequirePositive(c.Threshold, "threshold")
	v.RequirePositiveDuration(c.OpenFor, "open_for")
	v.RequirePositive(c.Probes, "probes")
	return v.Error()
}

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

var stateNames = [...]string{"closed", "open", "half-open"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Stats is the JSON view of a breaker
type Stats struct {
	Name      string `json:"name"`
	State     string `json:"state"`
	Failures  int    `json:"failures"`
	Successes int    `json:"successes"`
}

// Breaker trips on upstream failures only. Validation and extraction errors
// count as successes since they say nothing about upstream health.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker
}

// New builds a breaker. An invalid config is logged and replaced by DefaultConfig.
func New(name string, config Config, logger logging.Logger) *Breaker {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	if err := config.Validate(); err != nil {
		logger.Warn("Invalid circuit breaker config, using defaults",
			logging.String("breaker", name), logging.Err(err))
		config = DefaultConfig()
	}

	threshold := uint32(config.Threshold)
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(config.Probes),
		Interval:    time.Minute,
		Timeout:     config.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				logging.String("breaker", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()))
		},
		IsSuccessful: countsAsSuccess,
	})
	return &Breaker{name: name, cb: cb}
}

func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	t := errors.GetType(err)
	return t == errors.ErrTypeValidation || t == errors.ErrTypeExtraction
}

// Execute runs fn unless ctx is done or the breaker rejects the call. A
// rejection is returned as a retryable fetch error.
func (b *Breaker) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := b.cb.Execute(func() (interface{}, error) { return nil, fn() })
	switch {
	case stderrors.Is(err, gobreaker.ErrOpenState):
		return errors.FetchError(fmt.Sprintf("circuit breaker %q is open", b.name), err)
	case stderrors.Is(err, gobreaker.ErrTooManyRequests):
		return errors.FetchError(fmt.Sprintf("circuit breaker %q is half-open and busy", b.name), err)
	}
	return err
}

func (b *Breaker) State() State {
	switch b.cb.State() {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	}
	return StateClosed
}

func (b *Breaker) IsOpen() bool { return b.State() == StateOpen }

// Stats reports totals for the current gobreaker interval
func (b *Breaker) Stats() Stats {
	counts := b.cb.Counts()
	return Stats{
		Name:      b.name,
		State:     b.State().String(),
		Failures:  int(counts.TotalFailures),
		Successes: int(counts.TotalSuccesses),
	}
}
