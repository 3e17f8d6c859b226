package util

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Parallel runs fn over inputs with at most workerLimit calls in flight.
// The first error cancels the remaining work and is returned.
func Parallel[T any](ctx context.Context, inputs []T, workerLimit int, fn func(context.Context, T) error) error {
	if len(inputs) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(workerLimit, len(inputs))))

	for _, item := range inputs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// Go may hand out a slot freed by a failing call
			if gctx.Err() != nil {
				return nil
			}
			return fn(gctx, item)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
