package estimator

import (
	"math"

	"github.com/jakelever/kindred-sub000/internal/sparse"
	"gonum.org/v1/gonum/floats"
)

// LogisticRegression is a multinomial logistic regression trained by
// stochastic gradient descent with balanced class weights
type LogisticRegression struct {
	linear
}

// NewLogisticRegression creates an unfitted logistic regression
func NewLogisticRegression(p Params) *LogisticRegression {
	return &LogisticRegression{linear: linear{params: p}}
}

// Fit trains on X with class IDs y
func (m *LogisticRegression) Fit(X *sparse.Matrix, y []int) error {
	weights, err := m.prepare(X, y)
	if err != nil {
		return err
	}

	rows, _ := X.Dims()
	m.epochs(rows, func(i int, lr float64) {
		cols, vals := X.Row(i)
		p := softmax(m.scores(cols, vals))
		cw := weights[y[i]]
		for c := range p {
			grad := p[c]
			if c == y[i] {
				grad--
			}
			if grad != 0 {
				m.update(c, cols, vals, -lr*cw*grad)
			}
		}
	})
	return nil
}

// Predict returns the most probable class per row
func (m *LogisticRegression) Predict(X *sparse.Matrix) ([]int, error) {
	return m.predict(X)
}

// PredictProba returns class probabilities per row
func (m *LogisticRegression) PredictProba(X *sparse.Matrix) ([][]float64, error) {
	if err := m.check(X); err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	out := make([][]float64, rows)
	for i := range out {
		cols, vals := X.Row(i)
		out[i] = softmax(m.scores(cols, vals))
	}
	return out, nil
}

func softmax(z []float64) []float64 {
	lse := floats.LogSumExp(z)
	for i, v := range z {
		z[i] = math.Exp(v - lse)
	}
	return z
}
