package orchestrator

import (
	"context"
	"log/slog"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

// RunBounded applies fn to every item with at most limit calls in flight.
// Items are admitted in input order and results[i] always holds fn's
// result for items[i]. A panicking call is logged to logger (slog.Default
// when nil), leaves the zero R in its slot and does not stop admission of
// the remaining items.
func RunBounded[T, R any](ctx context.Context, logger *slog.Logger, items []T, limit int, fn func(ctx context.Context, item T) R) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}
	if limit < 1 {
		limit = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, item := range items {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("bounded call panicked", "index", i, "panic", r, "stack", string(debug.Stack()))
				}
			}()
			results[i] = fn(ctx, item)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
