// Package fixture builds small hand-parsed corpora shared by the candidate,
// vectorize, classify and pipeline tests. Only _test.go files
// import it; production code must not.
package fixture

import (
	"strings"

	"github.com/jakelever/kindred-sub000/internal/model"
)

// Word is one token of a hand-parsed sentence. Head is the governor index,
// or -1 for the root.
type Word struct {
	Text  string
	POS   string
	Head  int
	Label string
}

// Mention marks tokens [Start, End) of a sentence as an entity
type Mention struct {
	Type  string
	Start int
	End   int
	ID    string
}

// Doc is a document made of hand-parsed sentences
type Doc struct {
	Sentences [][]Word
	Mentions  [][]Mention // Parallel to Sentences
	Relations []Rel
}

// Rel references mentions by their ID
type Rel struct {
	Type     string
	Args     []string
	ArgNames []string
}

// Build turns document descriptions into a parsed corpus. Token text is
// joined by single spaces, and sentences by a single space.
func Build(docs ...Doc) *model.Corpus {
	corpus := model.NewCorpus()
	corpus.Parsed = true

	for _, d := range docs {
		doc := &model.Document{}
		var text strings.Builder
		byID := make(map[string]*model.Entity)

		for si, words := range d.Sentences {
			if si > 0 {
				text.WriteString(" ")
			}
			sentStart := text.Len()
			s := &model.Sentence{}
			for wi, w := range words {
				if wi > 0 {
					text.WriteString(" ")
				}
				start := text.Len()
				text.WriteString(w.Text)
				s.Tokens = append(s.Tokens, model.Token{
					Word:     w.Text,
					Lemma:    strings.ToLower(w.Text),
					POS:      w.POS,
					StartPos: start,
					EndPos:   text.Len(),
				})
				if w.Head >= 0 {
					s.Dependencies = append(s.Dependencies, model.Dependency{Governor: w.Head, Dependent: wi, Label: w.Label})
				}
			}
			s.Text = text.String()[sentStart:]

			if si < len(d.Mentions) {
				for _, m := range d.Mentions[si] {
					span := model.Span{Start: s.Tokens[m.Start].StartPos, End: s.Tokens[m.End-1].EndPos}
					e := corpus.IDs.NewEntity(m.Type, text.String()[span.Start:span.End], []model.Span{span}, m.ID, "")
					doc.Entities = append(doc.Entities, e)
					byID[m.ID] = e

					var idx []int
					for t := m.Start; t < m.End; t++ {
						idx = append(idx, t)
					}
					s.AddEntityAnnotation(e, idx)
				}
			}

			doc.Sentences = append(doc.Sentences, s)
		}
		doc.Text = text.String()

		for _, r := range d.Relations {
			entities := make([]*model.Entity, len(r.Args))
			for i, a := range r.Args {
				entities[i] = byID[a]
			}
			rel, err := model.NewRelation(r.Type, entities, r.ArgNames)
			if err != nil {
				panic(err)
			}
			doc.AddRelation(rel)
		}

		corpus.AddDocument(doc)
	}

	return corpus
}

// Erlotinib is "Erlotinib is a common treatment for NSCLC ." with a drug
// and a cancer mention
func Erlotinib() [][]Word {
	return [][]Word{{
		{"Erlotinib", "NNP", 1, "nsubj"},
		{"is", "VBZ", -1, "ROOT"},
		{"a", "DT", 4, "det"},
		{"common", "JJ", 4, "amod"},
		{"treatment", "NN", 1, "attr"},
		{"for", "IN", 4, "prep"},
		{"NSCLC", "NNP", 5, "pobj"},
		{".", ".", 1, "punct"},
	}}
}

// ErlotinibDoc is the Erlotinib sentence with treats(Erlotinib, NSCLC)
func ErlotinibDoc(withRelation bool) Doc {
	d := Doc{
		Sentences: Erlotinib(),
		Mentions: [][]Mention{{
			{Type: "drug", Start: 0, End: 1, ID: "T1"},
			{Type: "cancer", Start: 6, End: 7, ID: "T2"},
		}},
	}
	if withRelation {
		d.Relations = []Rel{{Type: "treats", Args: []string{"T1", "T2"}}}
	}
	return d
}

// Interaction is "<a> interacts with <b> ." with the given entity types and
// an interacts(a, b) relation when withRelation is set
func Interaction(a, aType, b, bType string, withRelation bool) Doc {
	d := Doc{
		Sentences: [][]Word{{
			{a, "NNP", 1, "nsubj"},
			{"interacts", "VBZ", -1, "ROOT"},
			{"with", "IN", 1, "prep"},
			{b, "NNP", 2, "pobj"},
			{".", ".", 1, "punct"},
		}},
		Mentions: [][]Mention{{
			{Type: aType, Start: 0, End: 1, ID: "T1"},
			{Type: bType, Start: 3, End: 4, ID: "T2"},
		}},
	}
	if withRelation {
		d.Relations = []Rel{{Type: "interacts", Args: []string{"T1", "T2"}}}
	}
	return d
}

// TreatedBy is "NSCLC is treated by Erlotinib ." where the cancer mention
// precedes the drug, with treats(Erlotinib, NSCLC) when withRelation is set
func TreatedBy(withRelation bool) Doc {
	d := Doc{
		Sentences: [][]Word{{
			{"NSCLC", "NNP", 2, "nsubjpass"},
			{"is", "VBZ", 2, "auxpass"},
			{"treated", "VBN", -1, "ROOT"},
			{"by", "IN", 2, "agent"},
			{"Erlotinib", "NNP", 3, "pobj"},
			{".", ".", 2, "punct"},
		}},
		Mentions: [][]Mention{{
			{Type: "cancer", Start: 0, End: 1, ID: "T2"},
			{Type: "drug", Start: 4, End: 5, ID: "T1"},
		}},
	}
	if withRelation {
		d.Relations = []Rel{{Type: "treats", Args: []string{"T1", "T2"}, ArgNames: []string{"drug", "disease"}}}
	}
	return d
}
