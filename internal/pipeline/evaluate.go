package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jakelever/kindred-sub000/internal/model"
)

// Evaluation compares predicted relations with gold relations as sets
type Evaluation struct {
	TruePositives  int
	FalsePositives int
	FalseNegatives int
	Precision      float64
	Recall         float64
	F1             float64
}

// Evaluate matches relations by document position, relation key and
// argument source IDs. The corpora must hold the same documents in the
// same order; predicted may hold fresh entity IDs.
func Evaluate(gold, predicted *model.Corpus) Evaluation {
	goldSet := relationSet(gold)
	predSet := relationSet(predicted)

	var e Evaluation
	for k := range predSet {
		if goldSet[k] {
			e.TruePositives++
		} else {
			e.FalsePositives++
		}
	}
	for k := range goldSet {
		if !predSet[k] {
			e.FalseNegatives++
		}
	}

	if tp := float64(e.TruePositives); tp > 0 {
		e.Precision = tp / float64(e.TruePositives+e.FalsePositives)
		e.Recall = tp / float64(e.TruePositives+e.FalseNegatives)
		e.F1 = 2 * e.Precision * e.Recall / (e.Precision + e.Recall)
	}
	return e
}

func (e Evaluation) String() string {
	return fmt.Sprintf("precision=%.3f recall=%.3f f1=%.3f (tp=%d fp=%d fn=%d)",
		e.Precision, e.Recall, e.F1, e.TruePositives, e.FalsePositives, e.FalseNegatives)
}

func relationSet(corpus *model.Corpus) map[string]bool {
	out := make(map[string]bool)
	for di, doc := range corpus.Documents {
		for _, r := range doc.Relations {
			parts := []string{strconv.Itoa(di), r.Key().String()}
			for _, e := range r.Entities {
				parts = append(parts, entityRef(e))
			}
			out[strings.Join(parts, "\x00")] = true
		}
	}
	return out
}

// entityRef identifies an entity across corpus copies
func entityRef(e *model.Entity) string {
	if e.SourceEntityID != "" {
		return e.SourceEntityID
	}
	var b strings.Builder
	b.WriteString(e.Type)
	for _, sp := range e.Position {
		fmt.Fprintf(&b, ":%d-%d", sp.Start, sp.End)
	}
	return b.String()
}
