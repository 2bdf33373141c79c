// Package classify trains relation classifiers on annotated corpora and
// applies them to add predicted relations to documents.
package classify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/jakelever/kindred-sub000/internal/cache"
	"github.com/jakelever/kindred-sub000/internal/candidate"
	"github.com/jakelever/kindred-sub000/internal/diag"
	"github.com/jakelever/kindred-sub000/internal/estimator"
	"github.com/jakelever/kindred-sub000/internal/metrics"
	"github.com/jakelever/kindred-sub000/internal/model"
	"github.com/jakelever/kindred-sub000/internal/sparse"
	"github.com/jakelever/kindred-sub000/internal/vectorize"
	"github.com/sirupsen/logrus"
)

// RelationClassifier predicts relations between entities that co-occur in
// a sentence window. It is trained once; a second Train is a state error.
type RelationClassifier struct {
	cfg        model.Config
	generator  *candidate.Generator
	vectorizer *vectorize.Vectorizer
	factory    estimator.Factory
	sink       diag.Sink
	logger     *logrus.Logger
	cache      cache.Cache

	trained bool
	keys    []model.RelationKey
	valid   map[model.RelationKey]mapset.Set[string]
	roles   map[model.RelationKey]map[string][]string // Gold argument types per type key

	single *singleLabel          // multiclass strategy
	multi  *MultiLabelClassifier // onevsrest strategy
}

// Option configures a RelationClassifier
type Option func(*RelationClassifier)

// WithSink directs data-consistency warnings to sink
func WithSink(sink diag.Sink) Option {
	return func(c *RelationClassifier) { c.sink = sink }
}

// WithLogger sets the progress logger
func WithLogger(logger *logrus.Logger) Option {
	return func(c *RelationClassifier) { c.logger = logger }
}

// WithEstimatorFactory replaces the estimator named in the config
func WithEstimatorFactory(f estimator.Factory) Option {
	return func(c *RelationClassifier) { c.factory = f }
}

// WithCache sets the subgraph memo cache used during vectorization
func WithCache(cc cache.Cache) Option {
	return func(c *RelationClassifier) { c.cache = cc }
}

// NewRelationClassifier validates cfg and creates an untrained classifier.
// The classifier keeps its own copy of cfg.
func NewRelationClassifier(cfg *model.Config, opts ...Option) (*RelationClassifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &RelationClassifier{cfg: *cfg}
	if t := cfg.Classifier.Threshold; t != nil {
		threshold := *t
		c.cfg.Classifier.Threshold = &threshold
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sink == nil {
		c.sink = diag.Discard
	}
	if c.logger == nil {
		c.logger = diag.NewNopLogger()
	}
	if c.factory == nil {
		c.factory = estimator.FactoryFor(cfg.Classifier.Estimator)
	}

	gen, err := candidate.NewGenerator(cfg.Candidates, c.sink)
	if err != nil {
		return nil, err
	}
	c.generator = gen

	vec, err := c.newVectorizer()
	if err != nil {
		return nil, err
	}
	c.vectorizer = vec

	return c, nil
}

func (c *RelationClassifier) newVectorizer() (*vectorize.Vectorizer, error) {
	opts := []vectorize.Option{vectorize.WithSink(c.sink), vectorize.WithLogger(c.logger)}
	if c.cache != nil {
		opts = append(opts, vectorize.WithCache(c.cache))
	}
	return vectorize.NewVectorizer(c.cfg.Features.Names, c.cfg.Features.TFIDF, opts...)
}

// Trained reports whether Train has completed
func (c *RelationClassifier) Trained() bool {
	return c.trained
}

// RelationKeys returns the relation classes learned in training
func (c *RelationClassifier) RelationKeys() []model.RelationKey {
	return append([]model.RelationKey(nil), c.keys...)
}

// FeatureNames returns the design matrix column names
func (c *RelationClassifier) FeatureNames() ([]string, error) {
	return c.vectorizer.FeatureNames()
}

// Train fits the classifier on the relations annotated in corpus. A failed
// Train leaves the classifier untrained and may be retried.
func (c *RelationClassifier) Train(ctx context.Context, corpus *model.Corpus) error {
	if c.trained {
		return fmt.Errorf("%w: relation classifier already trained", model.ErrState)
	}

	cs, err := c.generator.Build(corpus, true)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	if cs.Len() == 0 {
		return fmt.Errorf("%w: no candidates generated for training; no sentence holds %d accepted entities",
			model.ErrConfig, c.cfg.Candidates.EntityCount)
	}

	keys := cs.RelationKeys()
	valid := make(map[model.RelationKey]mapset.Set[string], len(keys))
	roles := make(map[model.RelationKey]map[string][]string, len(keys))
	for _, k := range keys {
		valid[k] = mapset.NewThreadUnsafeSet[string]()
		roles[k] = make(map[string][]string)
	}
	positives := 0
	for _, cand := range cs.Candidates {
		if len(cand.Labels) > 0 {
			positives++
		}
		tk := c.typeKey(cand.EntityTypes())
		argTypes := cand.KnownArgumentTypes()
		for j, k := range cand.KnownRelations() {
			valid[k].Add(tk)
			if _, ok := roles[k][tk]; !ok {
				roles[k][tk] = argTypes[j]
			}
		}
	}

	c.logger.WithFields(logrus.Fields{
		"candidates": cs.Len(),
		"positives":  positives,
		"classes":    len(keys),
		"strategy":   c.cfg.Classifier.Strategy,
	}).Info("Training relation classifier")

	// A fresh vectorizer per attempt; it replaces c.vectorizer only on success
	vec, err := c.newVectorizer()
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	X, err := vec.FitTransform(cs.Candidates)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	var (
		single *singleLabel
		multi  *MultiLabelClassifier
	)

	params := estimator.ParamsFrom(c.cfg.Classifier)
	switch c.cfg.Classifier.Strategy {
	case model.StrategyMultiClass:
		e, err := c.factory(params)
		if err != nil {
			return fmt.Errorf("train: %w", err)
		}
		if err := c.requireProbability(e); err != nil {
			return err
		}
		y := make([]int, cs.Len())
		for i := range y {
			y[i] = cs.ClassLabel(i)
		}
		if err := e.Fit(X, y); err != nil {
			return fmt.Errorf("train: %w", err)
		}
		single = &singleLabel{estimator: e}

	case model.StrategyOneVsRest:
		labels := make([][]int, cs.Len())
		for i := range labels {
			labels[i] = cs.ClassLabels(i)
		}
		multi = NewMultiLabelClassifier(c.factory, params, c.cfg.Classifier.Workers)
		if err := multi.Fit(ctx, X, labels, len(keys)); err != nil {
			return fmt.Errorf("train: %w", err)
		}
		if c.cfg.Classifier.Threshold != nil && !multi.SupportsProbability() {
			return fmt.Errorf("%w: threshold requires an estimator with probabilities", model.ErrConfig)
		}

	default:
		return fmt.Errorf("%w: unknown strategy %q", model.ErrConfig, c.cfg.Classifier.Strategy)
	}

	c.vectorizer = vec
	c.single = single
	c.multi = multi
	c.keys = keys
	c.valid = valid
	c.roles = roles
	c.trained = true
	return nil
}

// Predict adds positive predictions to the owning documents of corpus and
// returns the relations that were added. Relations already present are not
// added again.
func (c *RelationClassifier) Predict(ctx context.Context, corpus *model.Corpus) ([]*model.Relation, error) {
	if !c.trained {
		return nil, fmt.Errorf("%w: relation classifier used before training", model.ErrState)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cs, err := c.generator.Build(corpus, false)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if cs.Len() == 0 {
		return nil, nil
	}

	X, err := c.vectorizer.Transform(cs.Candidates)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	decisions, err := c.decide(X)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	// Resolve every owner before touching a document so an invariant error
	// leaves the corpus unchanged
	type placement struct {
		doc *model.Document
		rel *model.Relation
		key model.RelationKey
	}
	owners := entityOwners(corpus)
	var pending []placement
	for i, cand := range cs.Candidates {
		tk := c.typeKey(cand.EntityTypes())
		for _, d := range decisions[i] {
			if d.class > len(c.keys) {
				continue
			}
			key := c.keys[d.class-1]
			if !c.valid[key].Contains(tk) {
				metrics.PredictionsFiltered.WithLabelValues(metrics.ReasonInvalidEntityTypes).Inc()
				continue
			}

			entities := cand.Entities
			if !c.cfg.Candidates.Ordered {
				entities = arrange(entities, c.roles[key][tk])
			}
			rel, err := model.NewRelation(key.Type, entities, key.Args())
			if err != nil {
				return nil, fmt.Errorf("predict: %w", err)
			}
			if d.probability != nil {
				p := *d.probability
				rel.Probability = &p
			}

			doc, err := owningDocument(owners, rel)
			if err != nil {
				return nil, fmt.Errorf("predict: %w", err)
			}
			pending = append(pending, placement{doc: doc, rel: rel, key: key})
		}
	}

	var added []*model.Relation
	for _, p := range pending {
		if !p.doc.AddRelation(p.rel) {
			metrics.PredictionsFiltered.WithLabelValues(metrics.ReasonDuplicate).Inc()
			continue
		}
		metrics.RelationsPredicted.WithLabelValues(p.key.String()).Inc()
		added = append(added, p.rel)
	}

	c.logger.WithFields(logrus.Fields{
		"candidates": cs.Len(),
		"added":      len(added),
	}).Info("Predicted relations")
	return added, nil
}

// decision is one positive class for a candidate
type decision struct {
	class       int
	probability *float64
}

// decide applies the decision rule to every row. With a threshold, the
// background score is the threshold itself and ties go to background, so a
// class must be strictly above the threshold to be positive.
func (c *RelationClassifier) decide(X *sparse.Matrix) ([][]decision, error) {
	threshold := c.cfg.Classifier.Threshold
	if c.single != nil {
		return c.single.decide(X, threshold)
	}

	rows, _ := X.Dims()
	out := make([][]decision, rows)
	if threshold == nil {
		present, err := c.multi.Predict(X)
		if err != nil {
			return nil, err
		}
		var proba [][]float64
		if c.multi.SupportsProbability() {
			if proba, err = c.multi.PredictProba(X); err != nil {
				return nil, err
			}
		}
		for i, row := range present {
			for k, ok := range row {
				if !ok {
					continue
				}
				d := decision{class: k + 1}
				if proba != nil {
					d.probability = &proba[i][k]
				}
				out[i] = append(out[i], d)
			}
		}
		return out, nil
	}

	proba, err := c.multi.PredictProba(X)
	if err != nil {
		return nil, err
	}
	for i, row := range proba {
		for k := range row {
			if argmaxBackgroundFirst([]float64{*threshold, row[k]}) == 1 {
				out[i] = append(out[i], decision{class: k + 1, probability: &row[k]})
			}
		}
	}
	return out, nil
}

func (c *RelationClassifier) requireProbability(e estimator.Estimator) error {
	if c.cfg.Classifier.Threshold == nil {
		return nil
	}
	if _, ok := estimator.SupportsProbability(e); !ok {
		return fmt.Errorf("%w: threshold requires an estimator with probabilities", model.ErrConfig)
	}
	return nil
}

// typeKey identifies an entity-type tuple; unordered candidates compare as
// multisets
func (c *RelationClassifier) typeKey(types []string) string {
	if !c.cfg.Candidates.Ordered {
		types = append([]string(nil), types...)
		sort.Strings(types)
	}
	return strings.Join(types, "\x00")
}

// singleLabel wraps the multiclass estimator. Class 0 is background.
type singleLabel struct {
	estimator estimator.Estimator
}

func (s *singleLabel) decide(X *sparse.Matrix, threshold *float64) ([][]decision, error) {
	rows, _ := X.Dims()
	out := make([][]decision, rows)

	pe, hasProba := estimator.SupportsProbability(s.estimator)
	if !hasProba {
		pred, err := s.estimator.Predict(X)
		if err != nil {
			return nil, err
		}
		for i, class := range pred {
			if class > 0 {
				out[i] = []decision{{class: class}}
			}
		}
		return out, nil
	}

	proba, err := pe.PredictProba(X)
	if err != nil {
		return nil, err
	}
	for i, row := range proba {
		scores := append([]float64(nil), row...)
		if threshold != nil {
			scores[0] = *threshold
		}
		if class := argmaxBackgroundFirst(scores); class > 0 {
			out[i] = []decision{{class: class, probability: &row[class]}}
		}
	}
	return out, nil
}

// argmaxBackgroundFirst returns the highest scoring index; ties resolve to
// the lowest index, which is background
func argmaxBackgroundFirst(scores []float64) int {
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best
}

// arrange orders unordered candidate entities to follow the gold argument
// types seen in training. Arguments sharing a type keep candidate order.
func arrange(entities []*model.Entity, types []string) []*model.Entity {
	if len(types) != len(entities) {
		return entities
	}
	out := make([]*model.Entity, 0, len(entities))
	used := make([]bool, len(entities))
	for _, t := range types {
		for i, e := range entities {
			if !used[i] && e.Type == t {
				used[i] = true
				out = append(out, e)
				break
			}
		}
	}
	if len(out) != len(entities) {
		return entities
	}
	return out
}

// entityOwners maps entity IDs to the documents listing them
func entityOwners(corpus *model.Corpus) map[int][]*model.Document {
	owners := make(map[int][]*model.Document)
	for _, doc := range corpus.Documents {
		for _, e := range doc.Entities {
			owners[e.ID] = append(owners[e.ID], doc)
		}
	}
	return owners
}

func owningDocument(owners map[int][]*model.Document, rel *model.Relation) (*model.Document, error) {
	var doc *model.Document
	for _, e := range rel.Entities {
		docs := owners[e.ID]
		if len(docs) != 1 {
			return nil, fmt.Errorf("%w: entity %d belongs to %d documents", model.ErrInvariant, e.ID, len(docs))
		}
		if doc != nil && doc != docs[0] {
			return nil, fmt.Errorf("%w: relation %s spans more than one document", model.ErrInvariant, rel.Key())
		}
		doc = docs[0]
	}
	return doc, nil
}
