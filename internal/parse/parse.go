// Package parse turns document text into tokenized sentences and links
// entities to the tokens that realize them.
package parse

import (
	"github.com/jakelever/kindred-sub000/internal/model"
)

// Parser fills in the sentences of every document in a corpus and marks the
// corpus parsed
type Parser interface {
	Parse(corpus *model.Corpus) error
}

// AnnotateEntities records, on every sentence without annotations, which
// tokens overlap each document entity's spans, and marks the corpus parsed
func AnnotateEntities(corpus *model.Corpus) {
	for _, doc := range corpus.Documents {
		for _, s := range doc.Sentences {
			if len(s.EntityAnnotations) > 0 {
				continue
			}
			for _, e := range doc.Entities {
				if idx := overlappingTokens(s.Tokens, e.Position); len(idx) > 0 {
					s.AddEntityAnnotation(e, idx)
				}
			}
		}
	}
	corpus.Parsed = true
}

func overlappingTokens(tokens []model.Token, spans []model.Span) []int {
	var idx []int
	for i, t := range tokens {
		ts := model.Span{Start: t.StartPos, End: t.EndPos}
		for _, sp := range spans {
			if ts.Overlaps(sp) {
				idx = append(idx, i)
				break
			}
		}
	}
	return idx
}
