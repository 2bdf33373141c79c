package estimator

import (
	"github.com/jakelever/kindred-sub000/internal/sparse"
)

// LinearSVM is a one-vs-rest linear support vector machine trained by
// hinge-loss stochastic gradient descent with balanced class weights. It
// does not produce probabilities.
type LinearSVM struct {
	linear
}

// NewLinearSVM creates an unfitted linear SVM
func NewLinearSVM(p Params) *LinearSVM {
	return &LinearSVM{linear: linear{params: p}}
}

// Fit trains one separating hyperplane per class
func (m *LinearSVM) Fit(X *sparse.Matrix, y []int) error {
	weights, err := m.prepare(X, y)
	if err != nil {
		return err
	}

	rows, _ := X.Dims()
	m.epochs(rows, func(i int, lr float64) {
		cols, vals := X.Row(i)
		scores := m.scores(cols, vals)
		cw := weights[y[i]]
		for c, s := range scores {
			sign := -1.0
			if c == y[i] {
				sign = 1
			}
			if sign*s < 1 {
				m.update(c, cols, vals, lr*cw*sign)
			}
		}
	})
	return nil
}

// Predict returns the class with the largest margin per row
func (m *LinearSVM) Predict(X *sparse.Matrix) ([]int, error) {
	return m.predict(X)
}
