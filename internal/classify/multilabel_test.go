package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/jakelever/kindred-sub000/internal/estimator"
	"github.com/jakelever/kindred-sub000/internal/model"
	"github.com/jakelever/kindred-sub000/internal/sparse"
)

func TestMultiLabelClassifier_FitPredict(t *testing.T) {
	// columns 0 and 1 indicate classes 1 and 2; row 2 carries both
	b := sparse.NewBuilder(3)
	rows := []map[int]float64{{2: 1}, {0: 1, 2: 1}, {0: 1, 1: 1, 2: 1}, {1: 1, 2: 1}}
	for _, r := range rows {
		if err := b.AddRow(r); err != nil {
			t.Fatalf("AddRow: %v", err)
		}
	}
	X := b.Build()
	labels := [][]int{{0}, {1}, {1, 2}, {2}}

	params := estimator.ParamsFrom(model.DefaultConfig().Classifier)
	m := NewMultiLabelClassifier(estimator.FactoryFor(model.EstimatorLogistic), params, 2)

	if _, err := m.Predict(X); !errors.Is(err, model.ErrState) {
		t.Errorf("expected state error before fit, got %v", err)
	}
	if err := m.Fit(context.Background(), X, labels, 2); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if m.NumClasses() != 2 || !m.SupportsProbability() {
		t.Fatalf("expected 2 probabilistic estimators, got %d", m.NumClasses())
	}

	got, err := m.Predict(X)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	want := [][]bool{{false, false}, {true, false}, {true, true}, {false, true}}
	for i := range want {
		for k := range want[i] {
			if got[i][k] != want[i][k] {
				t.Errorf("row %d class %d: expected %v, got %v", i, k+1, want[i][k], got[i][k])
			}
		}
	}

	if err := m.Fit(context.Background(), X, labels, 2); !errors.Is(err, model.ErrState) {
		t.Errorf("expected state error for second fit, got %v", err)
	}
}

func TestMultiLabelClassifier_SeedsPerClass(t *testing.T) {
	var seeds []int64
	factory := func(p estimator.Params) (estimator.Estimator, error) {
		seeds = append(seeds, p.Seed)
		return &alwaysPositive{}, nil
	}
	params := estimator.ParamsFrom(model.DefaultConfig().Classifier)
	params.Seed = 10

	b := sparse.NewBuilder(1)
	_ = b.AddRow(map[int]float64{0: 1})
	m := NewMultiLabelClassifier(factory, params, 1)
	if err := m.Fit(context.Background(), b.Build(), [][]int{{1}}, 3); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	if len(seeds) != 3 || seeds[0] != 11 || seeds[1] != 12 || seeds[2] != 13 {
		t.Errorf("expected seeds [11 12 13], got %v", seeds)
	}
}
