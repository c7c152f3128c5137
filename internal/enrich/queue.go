package enrich

import (
	"context"

	"github.com/SurajPatil2645/VentureFlow/internal/cache"
	"github.com/SurajPatil2645/VentureFlow/internal/common/logging"
	"github.com/SurajPatil2645/VentureFlow/internal/common/validation"
	"github.com/SurajPatil2645/VentureFlow/internal/dedup"
)

// Enqueue validates the URL and queues it for a later drain. It returns the
// request id.
func (s *Service) Enqueue(url, subjectID string) (string, error) {
	target, err := validation.TargetURL(url)
	if err != nil {
		return "", err
	}
	return s.queue.Enqueue(target.String(), subjectID), nil
}

// QueueStatus returns the queue snapshot for the operator view.
func (s *Service) QueueStatus() dedup.Status {
	return s.queue.Status()
}

// ProcessQueued drains the queue through the enrichment pipeline. The drain
// already holds the processing marker of each request, so the callback does
// not acquire it again. Requests whose result is already cached succeed
// without work.
func (s *Service) ProcessQueued(ctx context.Context) dedup.DrainReport {
	report := s.queue.Drain(ctx, func(ctx context.Context, req dedup.Request) error {
		cacheKey := cache.GenerateKey(req.SubjectID, req.URL)
		if s.cache.Has(ctx, cacheKey) {
			return nil
		}

		release, err := s.acquireShared(ctx, dedup.Key(req.SubjectID, req.URL), s.logger)
		if err != nil {
			return err
		}
		defer release()

		resp, err := s.run(ctx, req.URL)
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			return err
		}
		s.cache.Set(ctx, cacheKey, *resp, s.config.CacheTTL)
		return nil
	})

	s.metrics.QueueDrainedTotal.WithLabelValues("succeeded").Add(float64(report.Succeeded))
	s.metrics.QueueDrainedTotal.WithLabelValues("failed").Add(float64(report.Failed))
	s.metrics.QueueDrainedTotal.WithLabelValues("dropped").Add(float64(report.Dropped))
	s.metrics.QueueDrainedTotal.WithLabelValues("skipped").Add(float64(report.Skipped))

	if report != (dedup.DrainReport{}) {
		s.logger.Info("Queue drained",
			logging.Int("succeeded", report.Succeeded),
			logging.Int("failed", report.Failed),
			logging.Int("dropped", report.Dropped),
			logging.Int("skipped", report.Skipped),
		)
	}
	return report
}
