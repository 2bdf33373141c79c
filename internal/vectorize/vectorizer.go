// Package vectorize turns candidates into sparse design matrices using a
// fixed catalogue of feature families.
package vectorize

import (
	"fmt"
	"strings"

	"github.com/jakelever/kindred-sub000/internal/cache"
	"github.com/jakelever/kindred-sub000/internal/candidate"
	"github.com/jakelever/kindred-sub000/internal/diag"
	"github.com/jakelever/kindred-sub000/internal/model"
	"github.com/jakelever/kindred-sub000/internal/sparse"
	"github.com/jakelever/kindred-sub000/internal/subgraph"
	"github.com/sirupsen/logrus"
)

// Vectorizer owns the fitted vocabulary of every selected family. It is not
// safe for concurrent use.
type Vectorizer struct {
	families []Family
	tfidf    bool
	dicts    []*DictVectorizer
	weights  []*TfidfTransformer // nil entry when the family is not reweighted
	fitted   bool

	sink   diag.Sink
	logger *logrus.Logger
	cache  cache.Cache
}

// Option configures a Vectorizer
type Option func(*Vectorizer)

// WithSink directs subgraph warnings to sink
func WithSink(sink diag.Sink) Option {
	return func(v *Vectorizer) { v.sink = sink }
}

// WithLogger sets the progress logger
func WithLogger(logger *logrus.Logger) Option {
	return func(v *Vectorizer) { v.logger = logger }
}

// WithCache sets the subgraph memo cache. It is cleared at the start of
// every pass.
func WithCache(c cache.Cache) Option {
	return func(v *Vectorizer) { v.cache = c }
}

// NewVectorizer selects families by name. With tfidf set, families that
// carry term frequencies are reweighted.
func NewVectorizer(names []string, tfidf bool, opts ...Option) (*Vectorizer, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no feature families selected", model.ErrConfig)
	}

	v := &Vectorizer{tfidf: tfidf}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		f, ok := Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown feature family %q, valid names are %s",
				model.ErrConfig, name, strings.Join(FamilyNames(), ", "))
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: feature family %q selected twice", model.ErrConfig, name)
		}
		seen[name] = true
		v.families = append(v.families, f)
	}

	for _, opt := range opts {
		opt(v)
	}
	if v.sink == nil {
		v.sink = diag.Discard
	}
	if v.logger == nil {
		v.logger = diag.NewNopLogger()
	}
	if v.cache == nil {
		v.cache = cache.NewMemoryCache(0, 0)
	}

	return v, nil
}

// FitTransform fixes the vocabulary on cands and returns their matrix
func (v *Vectorizer) FitTransform(cands []*candidate.Candidate) (*sparse.Matrix, error) {
	if v.fitted {
		return nil, fmt.Errorf("%w: vectorizer already fitted", model.ErrState)
	}

	dicts := v.extract(cands)
	v.dicts = make([]*DictVectorizer, len(v.families))
	v.weights = make([]*TfidfTransformer, len(v.families))
	for i, f := range v.families {
		d := NewDictVectorizer()
		if err := d.Fit(dicts[i]); err != nil {
			return nil, fmt.Errorf("fit %s: %w", f.Name, err)
		}
		v.dicts[i] = d

		if v.tfidf && f.TFIDF {
			counts, err := d.Transform(dicts[i])
			if err != nil {
				return nil, fmt.Errorf("fit %s: %w", f.Name, err)
			}
			t := NewTfidfTransformer()
			if err := t.Fit(counts); err != nil {
				return nil, fmt.Errorf("fit %s: %w", f.Name, err)
			}
			v.weights[i] = t
		}
	}
	v.fitted = true

	m, err := v.assemble(dicts)
	if err != nil {
		return nil, err
	}
	rows, cols := m.Dims()
	v.logger.WithFields(logrus.Fields{"rows": rows, "columns": cols, "nnz": m.NNZ()}).Debug("Fitted feature vocabulary")
	return m, nil
}

// Transform builds the matrix of cands over the fitted vocabulary
func (v *Vectorizer) Transform(cands []*candidate.Candidate) (*sparse.Matrix, error) {
	if !v.fitted {
		return nil, fmt.Errorf("%w: vectorizer used before fit", model.ErrState)
	}
	return v.assemble(v.extract(cands))
}

// FeatureNames returns "family:key" for every column, in column order
func (v *Vectorizer) FeatureNames() ([]string, error) {
	if !v.fitted {
		return nil, fmt.Errorf("%w: vectorizer used before fit", model.ErrState)
	}

	var names []string
	for i, f := range v.families {
		for _, k := range v.dicts[i].FeatureNames() {
			names = append(names, f.Name+":"+k)
		}
	}
	return names, nil
}

// extract returns, per family, one dictionary per candidate
func (v *Vectorizer) extract(cands []*candidate.Candidate) [][]map[string]float64 {
	v.cache.Clear()
	ctx := &Context{Subgraphs: subgraph.NewMemo(subgraph.NewExtractor(v.sink), v.cache)}

	dicts := make([][]map[string]float64, len(v.families))
	for i, f := range v.families {
		dicts[i] = make([]map[string]float64, len(cands))
		for j, c := range cands {
			dicts[i][j] = f.Extract(ctx, c)
		}
	}
	return dicts
}

func (v *Vectorizer) assemble(dicts [][]map[string]float64) (*sparse.Matrix, error) {
	parts := make([]*sparse.Matrix, len(v.families))
	for i, f := range v.families {
		m, err := v.dicts[i].Transform(dicts[i])
		if err != nil {
			return nil, fmt.Errorf("transform %s: %w", f.Name, err)
		}
		if v.weights[i] != nil {
			if m, err = v.weights[i].Transform(m); err != nil {
				return nil, fmt.Errorf("transform %s: %w", f.Name, err)
			}
		}
		parts[i] = m
	}
	return sparse.HStack(parts...)
}
