package estimator

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/jakelever/kindred-sub000/internal/model"
	"github.com/jakelever/kindred-sub000/internal/sparse"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// linear holds one weight row and bias per class
type linear struct {
	params Params
	w      *mat.Dense // classes x features
	b      []float64
}

func (l *linear) NumClasses() int {
	return len(l.b)
}

// prepare validates training input, allocates weights and returns balanced
// class weights n / (k * count)
func (l *linear) prepare(X *sparse.Matrix, y []int) ([]float64, error) {
	if l.w != nil {
		return nil, fmt.Errorf("%w: estimator already fitted", model.ErrState)
	}
	rows, cols := X.Dims()
	if rows == 0 {
		return nil, fmt.Errorf("%w: no training rows", model.ErrConfig)
	}
	if len(y) != rows {
		return nil, fmt.Errorf("%w: %d labels for %d rows", model.ErrConfig, len(y), rows)
	}

	k := 2
	for _, c := range y {
		if c < 0 {
			return nil, fmt.Errorf("%w: negative class label %d", model.ErrConfig, c)
		}
		if c+1 > k {
			k = c + 1
		}
	}

	counts := make([]float64, k)
	for _, c := range y {
		counts[c]++
	}
	weights := make([]float64, k)
	for c, n := range counts {
		if n == 0 {
			weights[c] = 1
			continue
		}
		weights[c] = float64(rows) / (float64(k) * n)
	}

	// gonum panics on zero-sized matrices
	l.w = mat.NewDense(k, max(cols, 1), nil)
	l.b = make([]float64, k)
	return weights, nil
}

// epochs runs step over a freshly shuffled row order each epoch, with a
// learning rate decaying as 1/sqrt(epoch)
func (l *linear) epochs(rows int, step func(i int, lr float64)) {
	rng := rand.New(rand.NewSource(l.params.Seed))
	for epoch := 0; epoch < l.params.Epochs; epoch++ {
		lr := l.params.LearningRate / math.Sqrt(float64(epoch+1))
		for _, i := range rng.Perm(rows) {
			step(i, lr)
		}
		if l.params.L2 > 0 {
			l.w.Scale(1-lr*l.params.L2, l.w)
		}
	}
}

// scores returns w·x + b for every class
func (l *linear) scores(cols []int, vals []float64) []float64 {
	out := append([]float64(nil), l.b...)
	for c := range out {
		row := l.w.RawRowView(c)
		for k, j := range cols {
			out[c] += row[j] * vals[k]
		}
	}
	return out
}

// update adds scale*x to the weights of class c
func (l *linear) update(c int, cols []int, vals []float64, scale float64) {
	row := l.w.RawRowView(c)
	for k, j := range cols {
		row[j] += scale * vals[k]
	}
	l.b[c] += scale
}

func (l *linear) check(X *sparse.Matrix) error {
	if l.w == nil {
		return fmt.Errorf("%w: estimator used before fit", model.ErrState)
	}
	_, cols := X.Dims()
	if _, fitted := l.w.Dims(); cols > fitted {
		return fmt.Errorf("%w: %d columns, estimator fitted on %d", model.ErrConfig, cols, fitted)
	}
	return nil
}

// predict returns the highest scoring class per row. Ties go to the lowest
// class ID.
func (l *linear) predict(X *sparse.Matrix) ([]int, error) {
	if err := l.check(X); err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	out := make([]int, rows)
	for i := range out {
		cols, vals := X.Row(i)
		out[i] = floats.MaxIdx(l.scores(cols, vals))
	}
	return out, nil
}
