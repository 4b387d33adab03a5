// Package batch applies a per-item function across a slice on a bounded
// worker pool while keeping results aligned with their inputs.
package batch

import (
	"context"

	"github.com/couchcryptid/grid-geo-etl/internal/osgb"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome for one input item. Index matches the item's
// position in the input slice.
type Result[R any] struct {
	Index int
	Value R
	Err   error
}

// PointConverter converts one grid coordinate. *osgb.Converter and
// *cache.Converter both satisfy it.
type PointConverter interface {
	Convert(p osgb.Planar) (osgb.Geographic, error)
}

// Map calls fn for every item using at most workers goroutines and returns
// one Result per item in input order. A failing item never stops the others.
// Items not started before ctx is cancelled carry ctx.Err().
func Map[T, R any](ctx context.Context, items []T, workers int, fn func(context.Context, T) (R, error)) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}
	if workers < 1 {
		workers = 1
	}

	g := new(errgroup.Group)
	g.SetLimit(workers)

	for i := range items {
		results[i].Index = i
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Value, results[i].Err = fn(ctx, items[i])
			return nil
		})
	}
	_ = g.Wait() // workers report through results, never through the group

	return results
}

// Points converts every coordinate with conv.
func Points(ctx context.Context, conv PointConverter, points []osgb.Planar, workers int) []Result[osgb.Geographic] {
	return Map(ctx, points, workers, func(_ context.Context, p osgb.Planar) (osgb.Geographic, error) {
		return conv.Convert(p)
	})
}

// Split separates successful values from failures, preserving order within
// each group.
func Split[R any](results []Result[R]) (ok []R, failed []Result[R]) {
	ok = make([]R, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
			continue
		}
		ok = append(ok, r.Value)
	}
	return ok, failed
}
