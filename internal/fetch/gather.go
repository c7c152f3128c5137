package fetch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Gather runs fn for every input concurrently, each under its own timeout.
// Failed operations are discarded; successful results keep input order.
// Gather never returns an error and waits for every operation to settle.
func Gather[T any](ctx context.Context, inputs []string, timeout time.Duration, fn func(context.Context, string) (T, error)) []T {
	type slot struct {
		value T
		ok    bool
	}
	slots := make([]slot, len(inputs))

	var g errgroup.Group
	for i, input := range inputs {
		g.Go(func() error {
			opCtx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				opCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			value, err := fn(opCtx, input)
			if err == nil {
				slots[i] = slot{value: value, ok: true}
			}
			return nil
		})
	}
	_ = g.Wait()

	results := make([]T, 0, len(inputs))
	for _, s := range slots {
		if s.ok {
			results = append(results, s.value)
		}
	}
	return results
}
