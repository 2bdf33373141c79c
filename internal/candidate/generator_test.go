package candidate

import (
	"errors"
	"reflect"
	"testing"

	"github.com/jakelever/kindred-sub000/internal/diag"
	"github.com/jakelever/kindred-sub000/internal/fixture"
	"github.com/jakelever/kindred-sub000/internal/model"
)

func newGenerator(t *testing.T, cfg model.CandidateConfig, sink diag.Sink) *Generator {
	t.Helper()
	g, err := NewGenerator(cfg, sink)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	return g
}

func TestNewGenerator_Validation(t *testing.T) {
	if _, err := NewGenerator(model.CandidateConfig{EntityCount: 1}, nil); !errors.Is(err, model.ErrConfig) {
		t.Errorf("expected configuration error for entity count 1, got %v", err)
	}
	if _, err := NewGenerator(model.CandidateConfig{EntityCount: 2, Window: -1}, nil); !errors.Is(err, model.ErrConfig) {
		t.Errorf("expected configuration error for negative window, got %v", err)
	}
	cfg := model.CandidateConfig{EntityCount: 2, AcceptedEntityTypes: [][]string{{"drug"}}}
	if _, err := NewGenerator(cfg, nil); !errors.Is(err, model.ErrConfig) {
		t.Errorf("expected configuration error for short type tuple, got %v", err)
	}
}

func TestGenerator_Build_Unparsed(t *testing.T) {
	g := newGenerator(t, model.CandidateConfig{EntityCount: 2}, nil)
	corpus := fixture.Build(fixture.ErlotinibDoc(true))
	corpus.Parsed = false

	if _, err := g.Build(corpus, true); !errors.Is(err, model.ErrConfig) {
		t.Errorf("expected configuration error for unparsed corpus, got %v", err)
	}
}

func TestGenerator_Build_PairCounts(t *testing.T) {
	corpus := fixture.Build(fixture.ErlotinibDoc(false))

	unordered := newGenerator(t, model.CandidateConfig{EntityCount: 2}, nil)
	cs, err := unordered.Build(corpus, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs.Len() != 1 {
		t.Errorf("expected 1 unordered candidate, got %d", cs.Len())
	}

	ordered := newGenerator(t, model.CandidateConfig{EntityCount: 2, Ordered: true}, nil)
	cs, err = ordered.Build(corpus, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs.Len() != 2 {
		t.Errorf("expected 2 ordered candidates, got %d", cs.Len())
	}
	if got := cs.Candidates[0].EntityTypes(); !reflect.DeepEqual(got, []string{"drug", "cancer"}) {
		t.Errorf("expected first candidate (drug, cancer), got %v", got)
	}
	if got := cs.Candidates[1].EntityTypes(); !reflect.DeepEqual(got, []string{"cancer", "drug"}) {
		t.Errorf("expected second candidate (cancer, drug), got %v", got)
	}
}

func TestGenerator_Build_Labels(t *testing.T) {
	rec := diag.NewRecorder()
	g := newGenerator(t, model.CandidateConfig{EntityCount: 2, Ordered: true}, rec)
	corpus := fixture.Build(fixture.ErlotinibDoc(true))

	cs, err := g.Build(corpus, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	keys := cs.RelationKeys()
	if len(keys) != 1 || keys[0].Type != "treats" {
		t.Fatalf("expected single relation key treats, got %v", keys)
	}
	if cs.ClassLabel(0) != 1 {
		t.Errorf("expected (Erlotinib, NSCLC) to carry class 1, got %d", cs.ClassLabel(0))
	}
	if cs.ClassLabel(1) != 0 {
		t.Errorf("expected reversed pair to be background, got %d", cs.ClassLabel(1))
	}
	if got := cs.ClassLabels(1); !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("expected background label set {0}, got %v", got)
	}
	if got := cs.Candidates[0].KnownRelations(); len(got) != 1 || got[0].Type != "treats" {
		t.Errorf("expected known relation treats, got %v", got)
	}
	if rec.Count(diag.UnmatchedRelation) != 0 {
		t.Errorf("expected no unmatched warnings, got %v", rec.Warnings())
	}
}

func TestGenerator_Build_UnlabeledIgnoresRelations(t *testing.T) {
	g := newGenerator(t, model.CandidateConfig{EntityCount: 2, Ordered: true}, nil)
	corpus := fixture.Build(fixture.ErlotinibDoc(true))

	cs, err := g.Build(corpus, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range cs.Candidates {
		if cs.ClassLabel(i) != 0 {
			t.Errorf("expected candidate %d to be background when unlabeled", i)
		}
	}
}

func TestGenerator_Build_MultiLabel(t *testing.T) {
	doc := fixture.ErlotinibDoc(true)
	doc.Relations = append(doc.Relations, fixture.Rel{Type: "studied_for", Args: []string{"T1", "T2"}})
	corpus := fixture.Build(doc)

	g := newGenerator(t, model.CandidateConfig{EntityCount: 2, Ordered: true}, nil)
	cs, err := g.Build(corpus, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := cs.ClassLabels(0); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("expected both classes on the pair, got %v", got)
	}
	if cs.ClassLabel(0) != 1 {
		t.Errorf("expected scalar label to be the first class, got %d", cs.ClassLabel(0))
	}
}

func TestGenerator_Build_UnmatchedRelationWarning(t *testing.T) {
	rec := diag.NewRecorder()
	cfg := model.CandidateConfig{
		EntityCount:         2,
		Ordered:             true,
		AcceptedEntityTypes: [][]string{{"cancer", "drug"}},
	}
	g := newGenerator(t, cfg, rec)
	corpus := fixture.Build(fixture.ErlotinibDoc(true))

	cs, err := g.Build(corpus, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cs.Len() != 1 {
		t.Errorf("expected type filter to keep only (cancer, drug), got %d candidates", cs.Len())
	}
	if rec.Count(diag.UnmatchedRelation) != 1 {
		t.Errorf("expected one unmatched relation warning, got %d", rec.Count(diag.UnmatchedRelation))
	}
}

func TestGenerator_Build_UnorderedTypeFilter(t *testing.T) {
	cfg := model.CandidateConfig{
		EntityCount:         2,
		AcceptedEntityTypes: [][]string{{"cancer", "drug"}},
	}
	g := newGenerator(t, cfg, nil)
	corpus := fixture.Build(fixture.ErlotinibDoc(true))

	cs, err := g.Build(corpus, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs.Len() != 1 {
		t.Fatalf("expected one candidate, got %d", cs.Len())
	}
	if cs.ClassLabel(0) != 1 {
		t.Error("expected unordered candidate to match the relation regardless of argument order")
	}
}

func TestGenerator_Build_UnorderedKeepsArgumentTypes(t *testing.T) {
	g := newGenerator(t, model.CandidateConfig{EntityCount: 2}, nil)
	cs, err := g.Build(fixture.Build(fixture.TreatedBy(true)), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs.Len() != 1 {
		t.Fatalf("expected one unordered candidate, got %d", cs.Len())
	}

	c := cs.Candidates[0]
	if got := c.EntityTypes(); !reflect.DeepEqual(got, []string{"cancer", "drug"}) {
		t.Errorf("expected candidate in text order [cancer drug], got %v", got)
	}
	if got := c.KnownArgumentTypes(); !reflect.DeepEqual(got, [][]string{{"drug", "cancer"}}) {
		t.Errorf("expected gold argument types [[drug cancer]], got %v", got)
	}
}

func TestGenerator_Build_Window(t *testing.T) {
	doc := fixture.Doc{
		Sentences: [][]fixture.Word{
			{{Text: "Erlotinib", POS: "NNP", Head: 1, Label: "nsubj"}, {Text: "works", POS: "VBZ", Head: -1, Label: "ROOT"}},
			{{Text: "It", POS: "PRP", Head: 1, Label: "nsubj"}, {Text: "targets", POS: "VBZ", Head: -1, Label: "ROOT"}, {Text: "EGFR", POS: "NNP", Head: 1, Label: "dobj"}},
			{{Text: "NSCLC", POS: "NNP", Head: 1, Label: "nsubj"}, {Text: "spreads", POS: "VBZ", Head: -1, Label: "ROOT"}},
		},
		Mentions: [][]fixture.Mention{
			{{Type: "drug", Start: 0, End: 1, ID: "T1"}},
			{{Type: "gene", Start: 2, End: 3, ID: "T2"}},
			{{Type: "cancer", Start: 0, End: 1, ID: "T3"}},
		},
	}
	corpus := fixture.Build(doc)

	same := newGenerator(t, model.CandidateConfig{EntityCount: 2}, nil)
	cs, err := same.Build(corpus, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs.Len() != 0 {
		t.Errorf("expected no same-sentence candidates, got %d", cs.Len())
	}

	windowed := newGenerator(t, model.CandidateConfig{EntityCount: 2, Window: 1}, nil)
	cs, err = windowed.Build(corpus, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// (T1,T2) anchored at sentence 0 and (T2,T3) anchored at sentence 1
	if cs.Len() != 2 {
		t.Fatalf("expected 2 cross-sentence candidates, got %d", cs.Len())
	}
	first := cs.Candidates[0]
	if len(first.Sentences) != 2 {
		t.Errorf("expected first candidate to span 2 sentences, got %d", len(first.Sentences))
	}
	if got := first.ArgTokens(1); !reflect.DeepEqual(got, []int{4}) {
		t.Errorf("expected EGFR at concatenated index 4, got %v", got)
	}
	if len(first.Tokens()) != 5 {
		t.Errorf("expected 5 concatenated tokens, got %d", len(first.Tokens()))
	}
}

func TestGenerator_Build_Deterministic(t *testing.T) {
	docs := []fixture.Doc{fixture.ErlotinibDoc(true), fixture.Interaction("EGFR", "gene", "KRAS", "gene", true)}
	g := newGenerator(t, model.CandidateConfig{EntityCount: 2, Ordered: true}, nil)

	var first [][]int
	for run := 0; run < 5; run++ {
		cs, err := g.Build(fixture.Build(docs...), true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var got [][]int
		for _, c := range cs.Candidates {
			got = append(got, c.EntityIDs())
		}
		if run == 0 {
			first = got
			continue
		}
		if !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: candidate order changed: %v vs %v", run, got, first)
		}
	}
}

func TestGenerator_Build_Ternary(t *testing.T) {
	doc := fixture.Doc{
		Sentences: [][]fixture.Word{{
			{Text: "A", POS: "NN", Head: 1, Label: "nsubj"},
			{Text: "binds", POS: "VBZ", Head: -1, Label: "ROOT"},
			{Text: "B", POS: "NN", Head: 1, Label: "dobj"},
			{Text: "C", POS: "NN", Head: 1, Label: "obl"},
		}},
		Mentions: [][]fixture.Mention{{
			{Type: "gene", Start: 0, End: 1, ID: "T1"},
			{Type: "gene", Start: 2, End: 3, ID: "T2"},
			{Type: "drug", Start: 3, End: 4, ID: "T3"},
		}},
		Relations: []fixture.Rel{{Type: "complex", Args: []string{"T1", "T2", "T3"}, ArgNames: []string{"a", "b", "c"}}},
	}
	corpus := fixture.Build(doc)

	g := newGenerator(t, model.CandidateConfig{EntityCount: 3, Ordered: true}, nil)
	cs, err := g.Build(corpus, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs.Len() != 6 {
		t.Errorf("expected 3! = 6 ordered triples, got %d", cs.Len())
	}
	if cs.ClassLabel(0) != 1 {
		t.Errorf("expected (T1,T2,T3) to be positive, got %d", cs.ClassLabel(0))
	}
	if got := cs.RelationKeys()[0].Args(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("expected role names in key, got %v", got)
	}
}
