package app

import (
	"context"
	"fmt"

	"github.com/SurajPatil2645/VentureFlow/internal/common/logging"
	"github.com/SurajPatil2645/VentureFlow/internal/dedup"

	"github.com/robfig/cron/v3"
)

// Maintainer is the part of the enrichment service the background jobs drive.
type Maintainer interface {
	ClearExpired(ctx context.Context) int
	ProcessQueued(ctx context.Context) dedup.DrainReport
}

// Scheduler runs the cache sweep and queue drain on cron schedules. A job
// still running when its next tick arrives is skipped.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	logger logging.Logger
}

// NewScheduler registers both jobs. Specs use the standard five-field cron
// syntax or descriptors such as "@every 15s".
func NewScheduler(sweepSpec, drainSpec string, svc Maintainer, logger logging.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.WithFields(logging.String("component", "scheduler"))
	adapter := cronLogger{logger: logger}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}

	if _, err := s.cron.AddFunc(sweepSpec, func() {
		if removed := svc.ClearExpired(s.ctx); removed > 0 {
			logger.Info("Expired cache entries swept", logging.Int("removed", removed))
		}
	}); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", sweepSpec, err)
	}

	if _, err := s.cron.AddFunc(drainSpec, func() {
		svc.ProcessQueued(s.ctx)
	}); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid drain schedule %q: %w", drainSpec, err)
	}

	return s, nil
}

// Start begins running the jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Background jobs started")
}

// Stop cancels in-flight jobs and waits for them to return
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

// cronLogger forwards cron's key/value logging to the application logger
type cronLogger struct {
	logger logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, toFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, err, toFields(keysAndValues)...)
}

func toFields(keysAndValues []interface{}) []logging.Field {
	fields := make([]logging.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		fields = append(fields, logging.Any(key, keysAndValues[i+1]))
	}
	return fields
}
