package classify

import (
	"context"
	"fmt"

	"github.com/jakelever/kindred-sub000/internal/estimator"
	"github.com/jakelever/kindred-sub000/internal/model"
	"github.com/jakelever/kindred-sub000/internal/sparse"
	"github.com/jakelever/kindred-sub000/internal/worker"
)

// MultiLabelClassifier fits one binary estimator per class so a row may
// carry any number of classes. Class k (1-based) is decided by estimator k-1.
type MultiLabelClassifier struct {
	factory    estimator.Factory
	params     estimator.Params
	workers    int
	estimators []estimator.Estimator
}

// NewMultiLabelClassifier creates an unfitted classifier. Estimator k is
// seeded with params.Seed + k.
func NewMultiLabelClassifier(factory estimator.Factory, params estimator.Params, workers int) *MultiLabelClassifier {
	return &MultiLabelClassifier{factory: factory, params: params, workers: workers}
}

// Fit trains numClasses binary estimators concurrently. labels[i] holds the
// classes of row i, with {0} or an empty set meaning none.
func (m *MultiLabelClassifier) Fit(ctx context.Context, X *sparse.Matrix, labels [][]int, numClasses int) error {
	if m.estimators != nil {
		return fmt.Errorf("%w: multi-label classifier already fitted", model.ErrState)
	}
	rows, _ := X.Dims()
	if len(labels) != rows {
		return fmt.Errorf("%w: %d label sets for %d rows", model.ErrConfig, len(labels), rows)
	}

	estimators := make([]estimator.Estimator, numClasses)
	jobs := make([]*worker.FitJob, numClasses)
	for k := 1; k <= numClasses; k++ {
		p := m.params
		p.Seed += int64(k)
		e, err := m.factory(p)
		if err != nil {
			return fmt.Errorf("create estimator for class %d: %w", k, err)
		}

		y := make([]int, rows)
		for i, set := range labels {
			for _, c := range set {
				if c == k {
					y[i] = 1
				}
			}
		}
		estimators[k-1] = e
		jobs[k-1] = &worker.FitJob{Position: k - 1, Estimator: e, X: X, Y: y}
	}

	if err := worker.FitAll(ctx, m.workers, jobs); err != nil {
		return err
	}
	m.estimators = estimators
	return nil
}

// NumClasses returns the number of positive classes
func (m *MultiLabelClassifier) NumClasses() int {
	return len(m.estimators)
}

// SupportsProbability reports whether every estimator produces probabilities
func (m *MultiLabelClassifier) SupportsProbability() bool {
	for _, e := range m.estimators {
		if _, ok := estimator.SupportsProbability(e); !ok {
			return false
		}
	}
	return true
}

// Predict returns, per row, whether each class is present. Column k-1 is
// class k.
func (m *MultiLabelClassifier) Predict(X *sparse.Matrix) ([][]bool, error) {
	if m.estimators == nil {
		return nil, fmt.Errorf("%w: multi-label classifier used before fit", model.ErrState)
	}
	rows, _ := X.Dims()
	out := newGrid[bool](rows, len(m.estimators))
	for k, e := range m.estimators {
		pred, err := e.Predict(X)
		if err != nil {
			return nil, fmt.Errorf("predict class %d: %w", k+1, err)
		}
		for i, c := range pred {
			out[i][k] = c == 1
		}
	}
	return out, nil
}

// PredictProba returns, per row, the probability of each class. Column k-1
// is class k.
func (m *MultiLabelClassifier) PredictProba(X *sparse.Matrix) ([][]float64, error) {
	if m.estimators == nil {
		return nil, fmt.Errorf("%w: multi-label classifier used before fit", model.ErrState)
	}
	rows, _ := X.Dims()
	out := newGrid[float64](rows, len(m.estimators))
	for k, e := range m.estimators {
		pe, ok := estimator.SupportsProbability(e)
		if !ok {
			return nil, fmt.Errorf("%w: estimator for class %d does not support probabilities", model.ErrConfig, k+1)
		}
		proba, err := pe.PredictProba(X)
		if err != nil {
			return nil, fmt.Errorf("predict class %d: %w", k+1, err)
		}
		for i, row := range proba {
			out[i][k] = row[1]
		}
	}
	return out, nil
}

func newGrid[T any](rows, cols int) [][]T {
	out := make([][]T, rows)
	for i := range out {
		out[i] = make([]T, cols)
	}
	return out
}
