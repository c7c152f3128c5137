package extraction

import (
	"context"

	"github.com/SurajPatil2645/VentureFlow/internal/common/errors"
	"github.com/SurajPatil2645/VentureFlow/internal/common/logging"
)

// State is a stage of the extraction cascade. Stages only move forward.
type State int

const (
	StatePrimary State = iota
	StateFallback
	StateMock
)

func (s State) String() string {
	switch s {
	case StatePrimary:
		return "primary"
	case StateFallback:
		return "fallback"
	case StateMock:
		return "mock"
	default:
		return "unknown"
	}
}

// Pipeline runs the primary, fallback, mock cascade.
type Pipeline struct {
	model  Model
	logger logging.Logger
}

// NewPipeline creates a pipeline. A nil model sends every extraction
// straight to the mock stage.
func NewPipeline(model Model, logger logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Pipeline{
		model:  model,
		logger: logger.WithFields(logging.Field{Key: "component", Value: "extraction"}),
	}
}

// Extract degrades instead of failing; the stage that produced the result is
// in Result.Method. The only error is ctx's once it is done; a done context
// never yields mock data.
func (p *Pipeline) Extract(ctx context.Context, content, targetURL string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	state := StatePrimary
	if p.model == nil {
		p.logger.Debug("No model configured, using mock extraction")
		state = StateMock
	}

	for {
		switch state {
		case StatePrimary:
			result, err := p.attempt(ctx, PrimaryCompletion(content))
			if err == nil {
				result.Method = MethodPrimary
				return result, nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, ctxErr
			}
			p.logger.Warn("Primary extraction failed, trying fallback", logging.Err(err))
			state = StateFallback

		case StateFallback:
			result, err := p.attempt(ctx, FallbackCompletion(content))
			if err == nil {
				result.Method = MethodFallback
				return result, nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, ctxErr
			}
			p.logger.Warn("Fallback extraction failed, using mock data", logging.Err(err))
			state = StateMock

		default:
			return Mock(targetURL), nil
		}
	}
}

func (p *Pipeline) attempt(ctx context.Context, c Completion) (Result, error) {
	text, err := p.model.Complete(ctx, c)
	if err != nil {
		return Result{}, err
	}

	raw, err := ParseJSON(text)
	if err != nil {
		return Result{}, errors.ExtractionError("unparseable model response", err)
	}
	return Normalize(raw), nil
}
