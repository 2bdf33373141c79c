// Package sparse holds the compressed sparse row design matrices. Rows are
// candidates, columns are features. Storage is a james-bowman/sparse CSR, so
// a Matrix can be handed to gonum as a mat.Matrix.
package sparse

import (
	"fmt"
	"sort"

	jbsparse "github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// Matrix is an immutable CSR matrix. Column indices are ascending within
// each row, which keeps row dot products in a fixed summation order.
type Matrix struct {
	csr *jbsparse.CSR
}

func newMatrix(rows, cols int, indptr, indices []int, data []float64) *Matrix {
	return &Matrix{csr: jbsparse.NewCSR(rows, cols, indptr, indices, data)}
}

// Dims returns the number of rows and columns
func (m *Matrix) Dims() (int, int) {
	return m.csr.Dims()
}

// NNZ returns the number of stored values
func (m *Matrix) NNZ() int {
	return m.csr.NNZ()
}

// Row returns the column indices and values of row i. The slices alias the
// matrix storage and must not be modified.
func (m *Matrix) Row(i int) ([]int, []float64) {
	raw := m.csr.RawMatrix()
	start, end := raw.Indptr[i], raw.Indptr[i+1]
	return raw.Ind[start:end], raw.Data[start:end]
}

// At returns the value at (i, j)
func (m *Matrix) At(i, j int) float64 {
	return m.csr.At(i, j)
}

// Mat exposes the matrix to gonum
func (m *Matrix) Mat() mat.Matrix {
	return m.csr
}

// Builder assembles a matrix row by row
type Builder struct {
	cols    int
	indptr  []int
	indices []int
	data    []float64
}

// NewBuilder creates a builder for a matrix with the given column count
func NewBuilder(cols int) *Builder {
	return &Builder{cols: cols, indptr: []int{0}}
}

// AddRow appends a row given as column→value. Zero values are not stored.
func (b *Builder) AddRow(values map[int]float64) error {
	cols := make([]int, 0, len(values))
	for c, v := range values {
		if c < 0 || c >= b.cols {
			return fmt.Errorf("column %d out of range [0, %d)", c, b.cols)
		}
		if v != 0 {
			cols = append(cols, c)
		}
	}
	sort.Ints(cols)
	for _, c := range cols {
		b.indices = append(b.indices, c)
		b.data = append(b.data, values[c])
	}
	b.indptr = append(b.indptr, len(b.indices))
	return nil
}

// Build returns the assembled matrix
func (b *Builder) Build() *Matrix {
	return newMatrix(len(b.indptr)-1, b.cols, b.indptr, b.indices, b.data)
}

// HStack concatenates matrices with equal row counts side by side
func HStack(ms ...*Matrix) (*Matrix, error) {
	if len(ms) == 0 {
		return NewBuilder(0).Build(), nil
	}

	rows, _ := ms[0].Dims()
	cols := 0
	nnz := 0
	for i, m := range ms {
		r, c := m.Dims()
		if r != rows {
			return nil, fmt.Errorf("hstack: matrix %d has %d rows, expected %d", i, r, rows)
		}
		cols += c
		nnz += m.NNZ()
	}

	indptr := make([]int, 1, rows+1)
	indices := make([]int, 0, nnz)
	data := make([]float64, 0, nnz)
	for i := 0; i < rows; i++ {
		offset := 0
		for _, m := range ms {
			idx, vals := m.Row(i)
			for k, c := range idx {
				indices = append(indices, c+offset)
				data = append(data, vals[k])
			}
			_, c := m.Dims()
			offset += c
		}
		indptr = append(indptr, len(indices))
	}

	return newMatrix(rows, cols, indptr, indices, data), nil
}

// Map returns a copy of the matrix with f applied row by row. f receives the
// row's values and returns replacements of the same length.
func (m *Matrix) Map(f func(row int, cols []int, vals []float64) []float64) *Matrix {
	raw := m.csr.RawMatrix()
	rows, cols := m.Dims()
	data := make([]float64, 0, len(raw.Data))
	for i := 0; i < rows; i++ {
		idx, vals := m.Row(i)
		data = append(data, f(i, idx, append([]float64(nil), vals...))...)
	}
	return newMatrix(rows, cols,
		append([]int(nil), raw.Indptr...),
		append([]int(nil), raw.Ind...),
		data)
}
