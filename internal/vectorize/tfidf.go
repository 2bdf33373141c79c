package vectorize

import (
	"fmt"
	"math"

	"github.com/jakelever/kindred-sub000/internal/model"
	"github.com/jakelever/kindred-sub000/internal/sparse"
	"gonum.org/v1/gonum/floats"
)

// TfidfTransformer reweights counts by smoothed inverse document frequency
// and scales each row to unit L2 norm
type TfidfTransformer struct {
	idf []float64
}

// NewTfidfTransformer creates an unfitted transformer
func NewTfidfTransformer() *TfidfTransformer {
	return &TfidfTransformer{}
}

// Fit computes idf = ln((1+n)/(1+df)) + 1 per column, where df counts the
// rows in which the column is non-zero
func (t *TfidfTransformer) Fit(m *sparse.Matrix) error {
	if t.idf != nil {
		return fmt.Errorf("%w: tf-idf transformer already fitted", model.ErrState)
	}

	rows, cols := m.Dims()
	df := make([]float64, cols)
	for i := 0; i < rows; i++ {
		idx, _ := m.Row(i)
		for _, c := range idx {
			df[c]++
		}
	}

	t.idf = make([]float64, cols)
	n := float64(rows)
	for c := range df {
		t.idf[c] = math.Log((1+n)/(1+df[c])) + 1
	}
	return nil
}

// Transform applies the fitted weights. Rows with no values stay empty.
func (t *TfidfTransformer) Transform(m *sparse.Matrix) (*sparse.Matrix, error) {
	if t.idf == nil {
		return nil, fmt.Errorf("%w: tf-idf transformer used before fit", model.ErrState)
	}
	if _, cols := m.Dims(); cols != len(t.idf) {
		return nil, fmt.Errorf("%w: tf-idf fitted on %d columns, got %d", model.ErrInvariant, len(t.idf), cols)
	}

	return m.Map(func(_ int, idx []int, vals []float64) []float64 {
		for k, c := range idx {
			vals[k] *= t.idf[c]
		}
		if norm := floats.Norm(vals, 2); norm > 0 {
			floats.Scale(1/norm, vals)
		}
		return vals
	}), nil
}
