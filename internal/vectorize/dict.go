package vectorize

import (
	"fmt"
	"sort"

	"github.com/jakelever/kindred-sub000/internal/model"
	"github.com/jakelever/kindred-sub000/internal/sparse"
)

// DictVectorizer maps feature dictionaries to matrix columns. The vocabulary
// is fixed by Fit and sorted, so column order does not depend on map order.
type DictVectorizer struct {
	vocab map[string]int
	names []string
}

// NewDictVectorizer creates an unfitted dictionary vectorizer
func NewDictVectorizer() *DictVectorizer {
	return &DictVectorizer{}
}

// Fit builds the vocabulary from every key present in dicts
func (d *DictVectorizer) Fit(dicts []map[string]float64) error {
	if d.vocab != nil {
		return fmt.Errorf("%w: dictionary vectorizer already fitted", model.ErrState)
	}

	seen := make(map[string]bool)
	for _, dict := range dicts {
		for k := range dict {
			seen[k] = true
		}
	}
	d.names = make([]string, 0, len(seen))
	for k := range seen {
		d.names = append(d.names, k)
	}
	sort.Strings(d.names)

	d.vocab = make(map[string]int, len(d.names))
	for i, k := range d.names {
		d.vocab[k] = i
	}
	return nil
}

// Transform builds one row per dictionary. Keys outside the vocabulary are
// dropped.
func (d *DictVectorizer) Transform(dicts []map[string]float64) (*sparse.Matrix, error) {
	if d.vocab == nil {
		return nil, fmt.Errorf("%w: dictionary vectorizer used before fit", model.ErrState)
	}

	b := sparse.NewBuilder(len(d.names))
	for _, dict := range dicts {
		row := make(map[int]float64, len(dict))
		for k, v := range dict {
			if col, ok := d.vocab[k]; ok {
				row[col] = v
			}
		}
		if err := b.AddRow(row); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// FeatureNames returns the vocabulary in column order
func (d *DictVectorizer) FeatureNames() []string {
	return append([]string(nil), d.names...)
}
