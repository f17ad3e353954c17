package workflow

import (
	"context"
	"fmt"

	"github.com/san-kum/timelag/internal/permeation"
	"golang.org/x/sync/errgroup"
)

// Job is one experiment of a batch.
type Job struct {
	Params Params
	Load   func(ctx context.Context) ([]permeation.RawSample, error)
}

// Batch analyses jobs concurrently, at most limit at a time (limit <= 0 means
// no limit). Results are in job order. The first failure cancels the others.
func (r *Runner) Batch(ctx context.Context, jobs []Job, limit int) ([]*Result, error) {
	results := make([]*Result, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, job := range jobs {
		g.Go(func() error {
			raw, err := job.Load(ctx)
			if err != nil {
				return fmt.Errorf("%s: load: %w", job.Params.Experiment, err)
			}
			res, err := r.Run(ctx, raw, job.Params)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
