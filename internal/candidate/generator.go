package candidate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jakelever/kindred-sub000/internal/diag"
	"github.com/jakelever/kindred-sub000/internal/metrics"
	"github.com/jakelever/kindred-sub000/internal/model"
)

// Generator builds candidates from a parsed corpus
type Generator struct {
	cfg      model.CandidateConfig
	accepted map[string]bool
	sink     diag.Sink
}

// NewGenerator creates a generator. A nil sink discards warnings.
func NewGenerator(cfg model.CandidateConfig, sink diag.Sink) (*Generator, error) {
	if cfg.EntityCount < 2 {
		return nil, fmt.Errorf("%w: entity count must be at least 2, got %d", model.ErrConfig, cfg.EntityCount)
	}
	if cfg.Window < 0 {
		return nil, fmt.Errorf("%w: window must not be negative, got %d", model.ErrConfig, cfg.Window)
	}
	if sink == nil {
		sink = diag.Discard
	}

	g := &Generator{cfg: cfg, sink: sink}
	if len(cfg.AcceptedEntityTypes) > 0 {
		g.accepted = make(map[string]bool, len(cfg.AcceptedEntityTypes))
		for _, tuple := range cfg.AcceptedEntityTypes {
			if len(tuple) != cfg.EntityCount {
				return nil, fmt.Errorf("%w: accepted entity types %v do not have %d entries", model.ErrConfig, tuple, cfg.EntityCount)
			}
			g.accepted[g.typeKey(tuple)] = true
		}
	}

	return g, nil
}

// poolEntry is an entity available to an anchor sentence
type poolEntry struct {
	entity *model.Entity
	home   int // First sentence (within the window) annotating the entity
}

// Build enumerates candidates in document, sentence and tuple order. With
// labeled set, candidates matching a document relation carry its class and
// relations that never match are reported as warnings.
func (g *Generator) Build(corpus *model.Corpus, labeled bool) (*CandidateSet, error) {
	if !corpus.Parsed {
		return nil, fmt.Errorf("%w: corpus must be parsed before generating candidates", model.ErrConfig)
	}

	cs := newCandidateSet()
	for di, doc := range corpus.Documents {
		var known map[string][]*model.Relation
		matched := make(map[*model.Relation]bool)
		if labeled {
			known = make(map[string][]*model.Relation, len(doc.Relations))
			for _, r := range doc.Relations {
				k := g.idKey(r.EntityIDs())
				known[k] = append(known[k], r)
			}
		}

		seen := make(map[string]bool)
		for si := range doc.Sentences {
			pool := g.pool(doc, si)
			g.enumerate(len(pool), func(tuple []int) {
				entities := make([]*model.Entity, len(tuple))
				anchored := false
				for i, p := range tuple {
					entities[i] = pool[p].entity
					if pool[p].home == si {
						anchored = true
					}
				}
				if !anchored {
					return
				}

				ids := make([]int, len(entities))
				types := make([]string, len(entities))
				for i, e := range entities {
					ids[i] = e.ID
					types[i] = e.Type
				}
				if g.accepted != nil && !g.accepted[g.typeKey(types)] {
					return
				}

				key := g.idKey(ids)
				if seen[key] {
					return
				}
				seen[key] = true

				c := &Candidate{
					Document:  doc,
					Sentences: g.sentencesFor(doc, si, entities),
					Entities:  entities,
				}
				if labeled {
					g.label(cs, c, known[key], matched)
				}
				cs.Candidates = append(cs.Candidates, c)
			})
		}

		if labeled {
			for _, r := range doc.Relations {
				if matched[r] {
					continue
				}
				diag.Emit(g.sink, diag.UnmatchedRelation, map[string]interface{}{
					"document": di,
					"relation": r.Key().String(),
					"entities": r.EntityIDs(),
				}, "relation %s between entities %v did not match any candidate", r.Key(), r.EntityIDs())
			}
		}
	}

	metrics.CandidatesGenerated.Add(float64(len(cs.Candidates)))
	return cs, nil
}

func (g *Generator) label(cs *CandidateSet, c *Candidate, rels []*model.Relation, matched map[*model.Relation]bool) {
	labels := make(map[int]bool)
	for _, r := range rels {
		matched[r] = true
		key := r.Key()
		id := cs.classID(key)
		if labels[id] {
			continue
		}
		labels[id] = true
		c.known = append(c.known, key)
		types := make([]string, len(r.Entities))
		for i, e := range r.Entities {
			types[i] = e.Type
		}
		c.knownTypes = append(c.knownTypes, types)
		c.Labels = append(c.Labels, id)
	}
	sort.Ints(c.Labels)
}

// pool collects the entities annotated in sentences si..si+window
func (g *Generator) pool(doc *model.Document, si int) []poolEntry {
	last := si + g.cfg.Window
	if last >= len(doc.Sentences) {
		last = len(doc.Sentences) - 1
	}

	var pool []poolEntry
	index := make(map[int]bool)
	for sj := si; sj <= last; sj++ {
		for _, a := range doc.Sentences[sj].EntityAnnotations {
			if index[a.Entity.ID] {
				continue
			}
			index[a.Entity.ID] = true
			pool = append(pool, poolEntry{entity: a.Entity, home: sj})
		}
	}
	return pool
}

// sentencesFor returns the window sentences annotating any of the entities
func (g *Generator) sentencesFor(doc *model.Document, si int, entities []*model.Entity) []*model.Sentence {
	if g.cfg.Window == 0 {
		return []*model.Sentence{doc.Sentences[si]}
	}

	last := si + g.cfg.Window
	if last >= len(doc.Sentences) {
		last = len(doc.Sentences) - 1
	}

	var out []*model.Sentence
	for sj := si; sj <= last; sj++ {
		s := doc.Sentences[sj]
		for _, e := range entities {
			if len(s.TokenIndicesFor(e.ID)) > 0 {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// enumerate calls emit for every tuple of distinct pool indices: permutations
// when ordered, increasing combinations otherwise
func (g *Generator) enumerate(n int, emit func([]int)) {
	k := g.cfg.EntityCount
	if n < k {
		return
	}

	tuple := make([]int, 0, k)
	used := make([]bool, n)

	var rec func(start int)
	rec = func(start int) {
		if len(tuple) == k {
			emit(append([]int(nil), tuple...))
			return
		}
		from := 0
		if !g.cfg.Ordered {
			from = start
		}
		for i := from; i < n; i++ {
			if used[i] {
				continue
			}
			used[i] = true
			tuple = append(tuple, i)
			rec(i + 1)
			tuple = tuple[:len(tuple)-1]
			used[i] = false
		}
	}
	rec(0)
}

// idKey is the matching key for an entity ID tuple; unordered candidates
// match regardless of argument order
func (g *Generator) idKey(ids []int) string {
	ids = append([]int(nil), ids...)
	if !g.cfg.Ordered {
		sort.Ints(ids)
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

func (g *Generator) typeKey(types []string) string {
	types = append([]string(nil), types...)
	if !g.cfg.Ordered {
		sort.Strings(types)
	}
	return strings.Join(types, "\x00")
}
