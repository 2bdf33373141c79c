// Package pipeline wires corpus loading, parsing, training, prediction and
// evaluation into single calls.
package pipeline

import (
	"context"
	"fmt"

	"github.com/jakelever/kindred-sub000/internal/cache"
	"github.com/jakelever/kindred-sub000/internal/candidate"
	"github.com/jakelever/kindred-sub000/internal/classify"
	"github.com/jakelever/kindred-sub000/internal/corpusio"
	"github.com/jakelever/kindred-sub000/internal/diag"
	"github.com/jakelever/kindred-sub000/internal/model"
	"github.com/jakelever/kindred-sub000/internal/parse"
	"github.com/jakelever/kindred-sub000/internal/vectorize"
	"github.com/sirupsen/logrus"
)

// Pipeline runs the relation extraction workflow for one configuration
type Pipeline struct {
	config *model.Config
	parser parse.Parser
	logger *logrus.Logger
	sink   diag.Sink
	cache  cache.Cache
}

// NewPipeline creates a pipeline. Warnings go to the logger at Warn level.
func NewPipeline(cfg *model.Config, logger *logrus.Logger) *Pipeline {
	if logger == nil {
		logger = diag.NewNopLogger()
	}
	return &Pipeline{
		config: cfg,
		parser: parse.NewProseParser(logger),
		logger: logger,
		sink:   diag.NewLogSink(logger),
		cache:  cache.NewMemoryCache(0, 0),
	}
}

// WithParser replaces the parser used for documents without sentences
func (p *Pipeline) WithParser(parser parse.Parser) *Pipeline {
	p.parser = parser
	return p
}

// RunResult contains the outcome of a train and predict run
type RunResult struct {
	Predicted  *model.Corpus
	Added      int
	Evaluation Evaluation
	Relations  []model.RelationKey
}

// Load reads a corpus and parses it when it has no sentences
func (p *Pipeline) Load(path string) (*model.Corpus, error) {
	corpus, err := corpusio.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !corpus.Parsed {
		if err := p.parser.Parse(corpus); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	p.logger.WithFields(logrus.Fields{
		"path":      path,
		"documents": len(corpus.Documents),
		"relations": len(corpus.Relations()),
	}).Info("Loaded corpus")
	return corpus, nil
}

// Run trains on trainPath, predicts on a relation-free copy of testPath and
// evaluates the predictions against the test relations
func (p *Pipeline) Run(ctx context.Context, trainPath, testPath string) (*RunResult, error) {
	// 1. Load corpora
	train, err := p.Load(trainPath)
	if err != nil {
		return nil, fmt.Errorf("load train: %w", err)
	}
	test, err := p.Load(testPath)
	if err != nil {
		return nil, fmt.Errorf("load test: %w", err)
	}

	// 2. Train
	clf, err := p.NewClassifier()
	if err != nil {
		return nil, err
	}
	if err := clf.Train(ctx, train); err != nil {
		return nil, err
	}

	// 3. Predict on a held-out copy
	heldOut := test.CloneWithoutRelations()
	added, err := clf.Predict(ctx, heldOut)
	if err != nil {
		return nil, err
	}

	// 4. Evaluate
	eval := Evaluate(test, heldOut)
	p.logger.WithFields(logrus.Fields{
		"precision": eval.Precision,
		"recall":    eval.Recall,
		"f1":        eval.F1,
	}).Info("Evaluated predictions")

	return &RunResult{
		Predicted:  heldOut,
		Added:      len(added),
		Evaluation: eval,
		Relations:  clf.RelationKeys(),
	}, nil
}

// NewClassifier creates an untrained classifier sharing the pipeline's
// logger, warning sink and subgraph cache
func (p *Pipeline) NewClassifier() (*classify.RelationClassifier, error) {
	return classify.NewRelationClassifier(p.config,
		classify.WithLogger(p.logger),
		classify.WithSink(p.sink),
		classify.WithCache(p.cache),
	)
}

// Candidates loads a corpus and generates its labeled candidates
func (p *Pipeline) Candidates(path string) (*candidate.CandidateSet, error) {
	corpus, err := p.Load(path)
	if err != nil {
		return nil, err
	}
	gen, err := candidate.NewGenerator(p.config.Candidates, p.sink)
	if err != nil {
		return nil, err
	}
	return gen.Build(corpus, true)
}

// Features loads a corpus, fits the configured feature families on its
// candidates and returns the column names with the per-row values
func (p *Pipeline) Features(path string) ([]string, *candidate.CandidateSet, [][]Feature, error) {
	cs, err := p.Candidates(path)
	if err != nil {
		return nil, nil, nil, err
	}
	vec, err := vectorize.NewVectorizer(p.config.Features.Names, p.config.Features.TFIDF,
		vectorize.WithLogger(p.logger),
		vectorize.WithSink(p.sink),
		vectorize.WithCache(p.cache),
	)
	if err != nil {
		return nil, nil, nil, err
	}
	m, err := vec.FitTransform(cs.Candidates)
	if err != nil {
		return nil, nil, nil, err
	}
	names, err := vec.FeatureNames()
	if err != nil {
		return nil, nil, nil, err
	}

	rows, _ := m.Dims()
	out := make([][]Feature, rows)
	for i := range out {
		cols, vals := m.Row(i)
		for k, c := range cols {
			out[i] = append(out[i], Feature{Name: names[c], Value: vals[k]})
		}
	}
	return names, cs, out, nil
}

// Feature is one non-zero design matrix value
type Feature struct {
	Name  string
	Value float64
}
