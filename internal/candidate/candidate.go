// Package candidate enumerates entity tuples that may express a relation.
package candidate

import (
	"sort"

	"github.com/jakelever/kindred-sub000/internal/model"
)

// Candidate is an unconfirmed relation hypothesis: an ordered entity tuple
// drawn from one sentence, or from a small window of adjacent sentences.
type Candidate struct {
	Document  *model.Document
	Sentences []*model.Sentence // In document order; Sentences[0] owns the candidate
	Entities  []*model.Entity   // Argument order

	// Labels are 1-based class IDs into the owning CandidateSet's RelationKeys.
	// An empty slice means background.
	Labels []int

	known      []model.RelationKey
	knownTypes [][]string // Entity types of each known relation, in its argument order
}

// EntityIDs returns the argument entity IDs
func (c *Candidate) EntityIDs() []int {
	ids := make([]int, len(c.Entities))
	for i, e := range c.Entities {
		ids[i] = e.ID
	}
	return ids
}

// EntityTypes returns the argument entity types
func (c *Candidate) EntityTypes() []string {
	types := make([]string, len(c.Entities))
	for i, e := range c.Entities {
		types[i] = e.Type
	}
	return types
}

// KnownRelations returns the gold relation keys matched by this candidate
func (c *Candidate) KnownRelations() []model.RelationKey {
	return c.known
}

// KnownArgumentTypes returns, parallel to KnownRelations, the entity types
// of each matched gold relation in that relation's argument order
func (c *Candidate) KnownArgumentTypes() [][]string {
	return c.knownTypes
}

// Tokens returns the tokens of all candidate sentences, concatenated
func (c *Candidate) Tokens() []model.Token {
	if len(c.Sentences) == 1 {
		return c.Sentences[0].Tokens
	}
	var out []model.Token
	for _, s := range c.Sentences {
		out = append(out, s.Tokens...)
	}
	return out
}

// ArgTokens returns the indices of argument i's tokens in Tokens()
func (c *Candidate) ArgTokens(i int) []int {
	id := c.Entities[i].ID
	var out []int
	offset := 0
	for _, s := range c.Sentences {
		for _, t := range s.TokenIndicesFor(id) {
			out = append(out, t+offset)
		}
		offset += len(s.Tokens)
	}
	sort.Ints(out)
	return out
}

// LocalArgTokens returns, for sentence si of the candidate, the local token
// indices of argument i
func (c *Candidate) LocalArgTokens(si, i int) []int {
	out := c.Sentences[si].TokenIndicesFor(c.Entities[i].ID)
	sort.Ints(out)
	return out
}

// CandidateSet is the ordered output of one Generator run
type CandidateSet struct {
	Candidates []*Candidate

	keys     []model.RelationKey
	keyIndex map[model.RelationKey]int
}

func newCandidateSet() *CandidateSet {
	return &CandidateSet{keyIndex: make(map[model.RelationKey]int)}
}

// Len returns the number of candidates
func (cs *CandidateSet) Len() int {
	return len(cs.Candidates)
}

// RelationKeys returns the relation classes seen, in first-seen order. Class
// ID k refers to RelationKeys()[k-1]; class 0 is background.
func (cs *CandidateSet) RelationKeys() []model.RelationKey {
	return cs.keys
}

// ClassLabel returns the single class of candidate i: its lowest class ID, or 0
func (cs *CandidateSet) ClassLabel(i int) int {
	labels := cs.Candidates[i].Labels
	if len(labels) == 0 {
		return 0
	}
	return labels[0]
}

// ClassLabels returns every class of candidate i. Background is {0}.
func (cs *CandidateSet) ClassLabels(i int) []int {
	labels := cs.Candidates[i].Labels
	if len(labels) == 0 {
		return []int{0}
	}
	return labels
}

func (cs *CandidateSet) classID(key model.RelationKey) int {
	if id, ok := cs.keyIndex[key]; ok {
		return id
	}
	cs.keys = append(cs.keys, key)
	id := len(cs.keys)
	cs.keyIndex[key] = id
	return id
}
