package worker

import (
	"context"
	"fmt"

	"github.com/jakelever/kindred-sub000/internal/estimator"
	"github.com/jakelever/kindred-sub000/internal/sparse"
)

// FitJob fits one estimator on a shared design matrix
type FitJob struct {
	Position  int
	Estimator estimator.Estimator
	X         *sparse.Matrix
	Y         []int
}

// Index returns the job position
func (j *FitJob) Index() int {
	return j.Position
}

// Execute fits the estimator unless ctx is already done
func (j *FitJob) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return j.Estimator.Fit(j.X, j.Y)
}

// FitAll fits every job with at most workers running at once. The error of
// the lowest-positioned failing job is returned.
func FitAll(ctx context.Context, workers int, jobs []*FitJob) error {
	if len(jobs) == 0 {
		return nil
	}

	pool := NewPool(ctx, workers)
	pool.Start()
	for _, j := range jobs {
		if !pool.Submit(j) {
			break
		}
	}
	results := pool.Wait()

	if len(results) < len(jobs) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("fit: %w", err)
		}
	}
	for _, r := range results {
		if r.Err != nil {
			return fmt.Errorf("fit estimator %d: %w", r.Index, r.Err)
		}
	}
	if len(results) < len(jobs) {
		return fmt.Errorf("fit: %d of %d estimators did not run", len(jobs)-len(results), len(jobs))
	}
	return nil
}
