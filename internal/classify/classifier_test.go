package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/jakelever/kindred-sub000/internal/diag"
	"github.com/jakelever/kindred-sub000/internal/estimator"
	"github.com/jakelever/kindred-sub000/internal/fixture"
	"github.com/jakelever/kindred-sub000/internal/metrics"
	"github.com/jakelever/kindred-sub000/internal/model"
	"github.com/jakelever/kindred-sub000/internal/sparse"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// alwaysPositive predicts the highest class for every row
type alwaysPositive struct {
	classes int
}

func (a *alwaysPositive) Fit(X *sparse.Matrix, y []int) error {
	a.classes = 2
	for _, c := range y {
		if c+1 > a.classes {
			a.classes = c + 1
		}
	}
	return nil
}

func (a *alwaysPositive) Predict(X *sparse.Matrix) ([]int, error) {
	rows, _ := X.Dims()
	out := make([]int, rows)
	for i := range out {
		out[i] = a.classes - 1
	}
	return out, nil
}

func (a *alwaysPositive) NumClasses() int {
	return a.classes
}

func (a *alwaysPositive) PredictProba(X *sparse.Matrix) ([][]float64, error) {
	rows, _ := X.Dims()
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, a.classes)
		out[i][a.classes-1] = 1
	}
	return out, nil
}

func alwaysPositiveFactory(estimator.Params) (estimator.Estimator, error) {
	return &alwaysPositive{}, nil
}

func newClassifier(t *testing.T, cfg *model.Config, opts ...Option) *RelationClassifier {
	t.Helper()
	c, err := NewRelationClassifier(cfg, opts...)
	if err != nil {
		t.Fatalf("NewRelationClassifier: %v", err)
	}
	return c
}

func TestNewRelationClassifier_InvalidConfig(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Features.Names = []string{"trigrams"}
	if _, err := NewRelationClassifier(cfg); !errors.Is(err, model.ErrConfig) {
		t.Errorf("expected configuration error for unknown family, got %v", err)
	}

	cfg = model.DefaultConfig()
	cfg.Classifier.Strategy = "tournament"
	if _, err := NewRelationClassifier(cfg); !errors.Is(err, model.ErrConfig) {
		t.Errorf("expected configuration error for unknown strategy, got %v", err)
	}
}

func TestRelationClassifier_StateMachine(t *testing.T) {
	ctx := context.Background()
	c := newClassifier(t, model.DefaultConfig())

	if _, err := c.Predict(ctx, fixture.Build(fixture.ErlotinibDoc(false))); !errors.Is(err, model.ErrState) {
		t.Errorf("expected state error for predict before train, got %v", err)
	}
	if err := c.Train(ctx, fixture.Build(fixture.ErlotinibDoc(true))); err != nil {
		t.Fatalf("Train: %v", err)
	}
	if !c.Trained() {
		t.Error("expected classifier to be trained")
	}

	err := c.Train(ctx, fixture.Build(fixture.ErlotinibDoc(true)))
	if !errors.Is(err, model.ErrState) || !errors.Is(err, model.ErrConfig) {
		t.Errorf("expected state error for second train, got %v", err)
	}
}

func TestRelationClassifier_Train_NoCandidates(t *testing.T) {
	doc := fixture.Doc{
		Sentences: fixture.Erlotinib(),
		Mentions:  [][]fixture.Mention{{{Type: "drug", Start: 0, End: 1, ID: "T1"}}},
	}
	c := newClassifier(t, model.DefaultConfig())

	if err := c.Train(context.Background(), fixture.Build(doc)); !errors.Is(err, model.ErrConfig) {
		t.Errorf("expected configuration error for zero candidates, got %v", err)
	}
	if c.Trained() {
		t.Error("expected classifier to stay untrained")
	}
}

func TestRelationClassifier_Train_Unparsed(t *testing.T) {
	corpus := fixture.Build(fixture.ErlotinibDoc(true))
	corpus.Parsed = false
	c := newClassifier(t, model.DefaultConfig())

	if err := c.Train(context.Background(), corpus); !errors.Is(err, model.ErrConfig) {
		t.Errorf("expected configuration error for unparsed corpus, got %v", err)
	}
}

func TestRelationClassifier_EndToEnd(t *testing.T) {
	cases := []struct {
		name      string
		strategy  string
		estimator string
	}{
		{"onevsrest logistic", model.StrategyOneVsRest, model.EstimatorLogistic},
		{"multiclass logistic", model.StrategyMultiClass, model.EstimatorLogistic},
		{"onevsrest svm", model.StrategyOneVsRest, model.EstimatorSVM},
		{"multiclass svm", model.StrategyMultiClass, model.EstimatorSVM},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			cfg := model.DefaultConfig()
			cfg.Classifier.Strategy = tc.strategy
			cfg.Classifier.Estimator = tc.estimator

			train := fixture.Build(fixture.ErlotinibDoc(true))
			c := newClassifier(t, cfg)
			if err := c.Train(ctx, train); err != nil {
				t.Fatalf("Train: %v", err)
			}

			heldOut := train.CloneWithoutRelations()
			added, err := c.Predict(ctx, heldOut)
			if err != nil {
				t.Fatalf("Predict: %v", err)
			}

			rels := heldOut.Relations()
			if len(added) != 1 || len(rels) != 1 {
				t.Fatalf("expected exactly one predicted relation, got %d added and %d in corpus", len(added), len(rels))
			}
			rel := rels[0]
			if rel.Type != "treats" {
				t.Errorf("expected treats, got %s", rel.Type)
			}
			if rel.Entities[0].Text != "Erlotinib" || rel.Entities[1].Text != "NSCLC" {
				t.Errorf("expected treats(Erlotinib, NSCLC), got (%s, %s)", rel.Entities[0].Text, rel.Entities[1].Text)
			}
			doc := heldOut.Documents[0]
			if !doc.HasEntity(rel.Entities[0].ID) || !doc.HasEntity(rel.Entities[1].ID) {
				t.Error("expected relation to reference the held-out entities")
			}
			if tc.estimator == model.EstimatorLogistic && rel.Probability == nil {
				t.Error("expected a probability from logistic regression")
			}
			if tc.estimator == model.EstimatorSVM && rel.Probability != nil {
				t.Error("expected no probability from the linear SVM")
			}
		})
	}
}

func TestRelationClassifier_Predict_Idempotent(t *testing.T) {
	ctx := context.Background()
	train := fixture.Build(fixture.ErlotinibDoc(true))
	c := newClassifier(t, model.DefaultConfig())
	if err := c.Train(ctx, train); err != nil {
		t.Fatalf("Train: %v", err)
	}

	heldOut := train.CloneWithoutRelations()
	if _, err := c.Predict(ctx, heldOut); err != nil {
		t.Fatalf("Predict: %v", err)
	}
	once := len(heldOut.Relations())

	before := testutil.ToFloat64(metrics.PredictionsFiltered.WithLabelValues(metrics.ReasonDuplicate))
	added, err := c.Predict(ctx, heldOut)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	if len(added) != 0 {
		t.Errorf("expected second prediction to add nothing, added %d", len(added))
	}
	if got := len(heldOut.Relations()); got != once {
		t.Errorf("expected %d relations after predicting twice, got %d", once, got)
	}
	if after := testutil.ToFloat64(metrics.PredictionsFiltered.WithLabelValues(metrics.ReasonDuplicate)); after-before != float64(once) {
		t.Errorf("expected %d duplicates counted, got %v", once, after-before)
	}
}

func TestRelationClassifier_EntityTypeFiltering(t *testing.T) {
	ctx := context.Background()
	cfg := model.DefaultConfig()
	c := newClassifier(t, cfg, WithEstimatorFactory(alwaysPositiveFactory))

	train := fixture.Build(fixture.Interaction("EGFR", "gene", "KRAS", "gene", true))
	if err := c.Train(ctx, train); err != nil {
		t.Fatalf("Train: %v", err)
	}

	before := testutil.ToFloat64(metrics.PredictionsFiltered.WithLabelValues(metrics.ReasonInvalidEntityTypes))
	mixed := fixture.Build(fixture.Interaction("erlotinib", "drug", "EGFR", "gene", false))
	added, err := c.Predict(ctx, mixed)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(added) != 0 || len(mixed.Relations()) != 0 {
		t.Errorf("expected (drug, gene) predictions to be dropped, got %d", len(mixed.Relations()))
	}
	if after := testutil.ToFloat64(metrics.PredictionsFiltered.WithLabelValues(metrics.ReasonInvalidEntityTypes)); after-before != 2 {
		t.Errorf("expected 2 filtered predictions, got %v", after-before)
	}

	genes := fixture.Build(fixture.Interaction("BRAF", "gene", "MEK", "gene", false))
	added, err = c.Predict(ctx, genes)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(added) != 2 {
		t.Errorf("expected both (gene, gene) orderings to be kept, got %d", len(added))
	}
}

func TestRelationClassifier_Threshold(t *testing.T) {
	ctx := context.Background()

	cfg := model.DefaultConfig()
	threshold := 0.99
	cfg.Classifier.Threshold = &threshold
	strict := newClassifier(t, cfg)
	train := fixture.Build(fixture.ErlotinibDoc(true))
	if err := strict.Train(ctx, train); err != nil {
		t.Fatalf("Train: %v", err)
	}
	added, err := strict.Predict(ctx, train.CloneWithoutRelations())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	for _, r := range added {
		if *r.Probability <= threshold {
			t.Errorf("expected probability above %v, got %v", threshold, *r.Probability)
		}
	}

	// a stub with probability exactly 1 never ties a threshold below 1
	cfg = model.DefaultConfig()
	half := 0.5
	cfg.Classifier.Threshold = &half
	loose := newClassifier(t, cfg, WithEstimatorFactory(alwaysPositiveFactory))
	if err := loose.Train(ctx, fixture.Build(fixture.ErlotinibDoc(true))); err != nil {
		t.Fatalf("Train: %v", err)
	}
	added, err = loose.Predict(ctx, fixture.Build(fixture.ErlotinibDoc(false)))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(added) != 1 {
		t.Errorf("expected only the valid (drug, cancer) ordering to survive, got %d", len(added))
	}
}

func TestRelationClassifier_ThresholdRequiresProbability(t *testing.T) {
	cfg := model.DefaultConfig()
	threshold := 0.5
	cfg.Classifier.Threshold = &threshold
	svm := func(p estimator.Params) (estimator.Estimator, error) {
		return estimator.NewLinearSVM(p), nil
	}

	for _, strategy := range []string{model.StrategyOneVsRest, model.StrategyMultiClass} {
		cfg.Classifier.Strategy = strategy
		c := newClassifier(t, cfg, WithEstimatorFactory(svm))
		if err := c.Train(context.Background(), fixture.Build(fixture.ErlotinibDoc(true))); !errors.Is(err, model.ErrConfig) {
			t.Errorf("%s: expected configuration error, got %v", strategy, err)
		}
	}
}

func TestRelationClassifier_UnmatchedRelationWarning(t *testing.T) {
	rec := diag.NewRecorder()
	cfg := model.DefaultConfig()
	cfg.Candidates.AcceptedEntityTypes = [][]string{{"cancer", "drug"}}
	c := newClassifier(t, cfg, WithSink(rec))

	if err := c.Train(context.Background(), fixture.Build(fixture.ErlotinibDoc(true))); err != nil {
		t.Fatalf("Train: %v", err)
	}
	if rec.Count(diag.UnmatchedRelation) != 1 {
		t.Errorf("expected one unmatched relation warning, got %d", rec.Count(diag.UnmatchedRelation))
	}
}

func TestRelationClassifier_CrossDocumentRelation(t *testing.T) {
	corpus := fixture.Build(fixture.ErlotinibDoc(false), fixture.ErlotinibDoc(false))
	owners := entityOwners(corpus)

	rel, err := model.NewRelation("treats", []*model.Entity{
		corpus.Documents[0].Entities[0],
		corpus.Documents[1].Entities[1],
	}, nil)
	if err != nil {
		t.Fatalf("NewRelation: %v", err)
	}
	if _, err := owningDocument(owners, rel); !errors.Is(err, model.ErrInvariant) {
		t.Errorf("expected invariant error, got %v", err)
	}
}

func TestRelationClassifier_Predict_InvariantLeavesCorpusUnchanged(t *testing.T) {
	ctx := context.Background()
	c := newClassifier(t, model.DefaultConfig(), WithEstimatorFactory(alwaysPositiveFactory))
	if err := c.Train(ctx, fixture.Build(fixture.ErlotinibDoc(true))); err != nil {
		t.Fatalf("Train: %v", err)
	}

	// the second document's drug is also listed by the first
	corpus := fixture.Build(fixture.ErlotinibDoc(false), fixture.ErlotinibDoc(false))
	first := corpus.Documents[0]
	first.Entities = append(first.Entities, corpus.Documents[1].Entities[0])

	added, err := c.Predict(ctx, corpus)
	if !errors.Is(err, model.ErrInvariant) {
		t.Fatalf("expected invariant error, got %v", err)
	}
	if added != nil {
		t.Errorf("expected no relations returned, got %d", len(added))
	}
	if n := len(corpus.Relations()); n != 0 {
		t.Errorf("expected corpus to stay unchanged, got %d relations", n)
	}
}

func TestRelationClassifier_Unordered_KeepsArgumentRoles(t *testing.T) {
	ctx := context.Background()
	cfg := model.DefaultConfig()
	cfg.Candidates.Ordered = false
	c := newClassifier(t, cfg, WithEstimatorFactory(alwaysPositiveFactory))

	if err := c.Train(ctx, fixture.Build(fixture.TreatedBy(true))); err != nil {
		t.Fatalf("Train: %v", err)
	}
	added, err := c.Predict(ctx, fixture.Build(fixture.TreatedBy(false)))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(added) != 1 {
		t.Fatalf("expected one relation, got %d", len(added))
	}

	rel := added[0]
	if rel.Entities[0].Text != "Erlotinib" || rel.Entities[1].Text != "NSCLC" {
		t.Errorf("expected treats(Erlotinib, NSCLC), got treats(%s, %s)", rel.Entities[0].Text, rel.Entities[1].Text)
	}
	if got := rel.Key().String(); got != "treats(drug,disease)" {
		t.Errorf("unexpected key %q", got)
	}

	// text order matching the gold order is left alone
	added, err = c.Predict(ctx, fixture.Build(fixture.ErlotinibDoc(false)))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(added) != 1 || added[0].Entities[0].Type != "drug" {
		t.Errorf("expected drug as the first argument, got %v", added)
	}
}

func TestRelationClassifier_Train_RetryAfterFailure(t *testing.T) {
	c := newClassifier(t, model.DefaultConfig())
	train := fixture.Build(fixture.ErlotinibDoc(true))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Train(ctx, train); err == nil {
		t.Fatal("expected cancelled training to fail")
	}
	if c.Trained() {
		t.Fatal("expected classifier to stay untrained after a failed Train")
	}
	if _, err := c.FeatureNames(); !errors.Is(err, model.ErrState) {
		t.Errorf("expected feature names to be unavailable after a failed Train, got %v", err)
	}

	if err := c.Train(context.Background(), train); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if !c.Trained() {
		t.Error("expected classifier to be trained after retry")
	}
	if names, err := c.FeatureNames(); err != nil || len(names) == 0 {
		t.Errorf("expected feature names after retry, got %v, %v", names, err)
	}
}
