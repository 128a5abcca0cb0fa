package gotensor

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ParallelSum adds terms using up to parallel.workers goroutines. Each
// worker aggregates a contiguous chunk into its own builder and the partial
// sums are merged at the end. Below parallel.threshold terms it is Sum.
func (e *Engine) ParallelSum(ctx context.Context, terms []Tensor) (Tensor, error) {
	workers := e.cfg.Parallel.Workers
	if len(terms) < e.cfg.Parallel.Threshold || workers <= 1 {
		return e.Sum(terms...)
	}
	workers = min(workers, len(terms))

	ctx, span := e.tracer.Start(ctx, "gotensor.ParallelSum", trace.WithAttributes(
		attribute.Int("gotensor.terms", len(terms)),
		attribute.Int("gotensor.workers", workers),
	))
	defer span.End()
	start := time.Now()

	partial := make([]Tensor, workers)
	chunk := (len(terms) + workers - 1) / workers
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo, hi := w*chunk, min((w+1)*chunk, len(terms))
		if lo >= hi {
			partial[w] = N(0)
			continue
		}
		g.Go(func() error {
			b := e.NewSumBuilder()
			for _, t := range terms[lo:hi] {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := b.Put(t); err != nil {
					return err
				}
			}
			s, err := b.Build()
			if err != nil {
				return err
			}
			partial[w] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out, err := e.Sum(partial...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	elapsed := time.Since(start)
	if m := e.m(); m != nil {
		m.parallelSum.Observe(elapsed.Seconds())
	}
	e.log().Debug("parallel sum", "terms", len(terms), "workers", workers, "elapsed", elapsed)
	return out, nil
}
