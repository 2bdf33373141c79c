package vectorize

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/jakelever/kindred-sub000/internal/model"
)

func TestDictVectorizer_SortedVocabulary(t *testing.T) {
	d := NewDictVectorizer()
	if _, err := d.Transform(nil); !errors.Is(err, model.ErrState) {
		t.Errorf("expected state error before fit, got %v", err)
	}

	if err := d.Fit([]map[string]float64{{"b": 1, "a": 2}, {"c": 1}}); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if got := d.FeatureNames(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("expected sorted vocabulary, got %v", got)
	}
	if err := d.Fit(nil); !errors.Is(err, model.ErrState) {
		t.Errorf("expected state error for second fit, got %v", err)
	}

	m, err := d.Transform([]map[string]float64{{"a": 3, "z": 9}})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if m.NNZ() != 1 || m.At(0, 0) != 3 {
		t.Errorf("expected only a=3 to survive, got nnz=%d a=%v", m.NNZ(), m.At(0, 0))
	}
}

func TestTfidfTransformer_Weights(t *testing.T) {
	d := NewDictVectorizer()
	dicts := []map[string]float64{{"common": 1}, {"common": 1, "rare": 1}}
	if err := d.Fit(dicts); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	counts, err := d.Transform(dicts)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}

	tf := NewTfidfTransformer()
	if _, err := tf.Transform(counts); !errors.Is(err, model.ErrState) {
		t.Errorf("expected state error before fit, got %v", err)
	}
	if err := tf.Fit(counts); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	m, err := tf.Transform(counts)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}

	// idf(common) = ln(3/3)+1 = 1, idf(rare) = ln(3/2)+1
	rare := math.Log(1.5) + 1
	norm := math.Sqrt(1 + rare*rare)
	if got := m.At(0, 0); math.Abs(got-1) > 1e-12 {
		t.Errorf("expected single-term row normalized to 1, got %v", got)
	}
	if got := m.At(1, 0); math.Abs(got-1/norm) > 1e-12 {
		t.Errorf("expected common weight %v, got %v", 1/norm, got)
	}
	if got := m.At(1, 1); math.Abs(got-rare/norm) > 1e-12 {
		t.Errorf("expected rare weight %v, got %v", rare/norm, got)
	}
}
