package model

import "fmt"

// Token is a word of a sentence with its linguistic annotations
type Token struct {
	Word     string
	Lemma    string
	POS      string
	StartPos int // Byte offset into the document text
	EndPos   int
}

// Dependency is a labelled edge of the dependency parse. Indices are local
// to the sentence.
type Dependency struct {
	Governor  int
	Dependent int
	Label     string
}

// EntityAnnotation records which tokens of a sentence realize an entity
type EntityAnnotation struct {
	Entity       *Entity
	TokenIndices []int
}

// Sentence is a tokenized, parsed span of a document
type Sentence struct {
	Text              string
	Tokens            []Token
	Dependencies      []Dependency
	EntityAnnotations []EntityAnnotation
	SourceFilename    string
}

// Validate checks that every dependency edge points inside the token list
func (s *Sentence) Validate() error {
	for _, d := range s.Dependencies {
		if d.Governor < 0 || d.Governor >= len(s.Tokens) || d.Dependent < 0 || d.Dependent >= len(s.Tokens) {
			return fmt.Errorf("%w: dependency %d->%d (%s) outside sentence of %d tokens", ErrConfig, d.Governor, d.Dependent, d.Label, len(s.Tokens))
		}
	}
	return nil
}

// AddEntityAnnotation records the tokens realizing an entity
func (s *Sentence) AddEntityAnnotation(e *Entity, tokenIndices []int) {
	s.EntityAnnotations = append(s.EntityAnnotations, EntityAnnotation{
		Entity:       e,
		TokenIndices: append([]int(nil), tokenIndices...),
	})
}

// TokenIndicesFor returns the token indices annotated for the entity ID, or nil
func (s *Sentence) TokenIndicesFor(entityID int) []int {
	var out []int
	for _, a := range s.EntityAnnotations {
		if a.Entity.ID == entityID {
			out = append(out, a.TokenIndices...)
		}
	}
	return out
}
