// Package dispatcher fans a materialized task list out to a bounded pool of
// workers and streams results back as they complete.
package dispatcher

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/wayback-news-harvester/internal/metrics"
)

// DefaultWorkers is used when a non-positive pool size is requested.
const DefaultWorkers = 3

// Task processes one item; ok=false drops the result.
type Task[T, R any] func(ctx context.Context, item T) (result R, ok bool)

// Result carries a task output together with its input position.
type Result[R any] struct {
	Index int
	Value R
}

// Run executes task over items with at most workers goroutines and returns a
// channel yielding results in completion order. The channel closes once
// every started task has returned. Items not yet started when ctx is done
// are skipped.
func Run[T, R any](ctx context.Context, workers int, items []T, task Task[T, R]) <-chan Result[R] {
	out := make(chan Result[R], len(items))
	if workers <= 0 {
		workers = DefaultWorkers
	}

	go func() {
		defer close(out)
		var g errgroup.Group
		g.SetLimit(max(1, min(workers, len(items))))
		for i, item := range items {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				metrics.IncActiveWorkers()
				defer metrics.DecActiveWorkers()
				if v, ok := task(ctx, item); ok {
					out <- Result[R]{Index: i, Value: v}
				}
				return nil
			})
		}
		_ = g.Wait()
	}()
	return out
}

// Collect drains Run and returns the values in input order.
func Collect[T, R any](ctx context.Context, workers int, items []T, task Task[T, R]) []R {
	slots := make([]*R, len(items))
	for res := range Run(ctx, workers, items, task) {
		v := res.Value
		slots[res.Index] = &v
	}
	values := make([]R, 0, len(items))
	for _, v := range slots {
		if v != nil {
			values = append(values, *v)
		}
	}
	return values
}
