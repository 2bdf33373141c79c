package vectorize

import (
	"sort"
	"strconv"
	"strings"

	"github.com/jakelever/kindred-sub000/internal/candidate"
	"github.com/jakelever/kindred-sub000/internal/subgraph"
)

// Feature family names
const (
	EntityTypes                     = "entityTypes"
	UnigramsBetweenEntities         = "unigramsBetweenEntities"
	Bigrams                         = "bigrams"
	DependencyPathEdges             = "dependencyPathEdges"
	DependencyPathEdgesNearEntities = "dependencyPathEdgesNearEntities"
)

// Context carries what feature extraction may consult besides the candidate
type Context struct {
	Subgraphs *subgraph.Memo
}

// Family is a named feature extractor. TFIDF marks families whose counts
// are term frequencies and may be reweighted; structural families never are.
type Family struct {
	Name    string
	TFIDF   bool
	Extract func(ctx *Context, c *candidate.Candidate) map[string]float64
}

// registry lists every family in declaration order
var registry = []Family{
	{Name: EntityTypes, Extract: entityTypes},
	{Name: UnigramsBetweenEntities, TFIDF: true, Extract: unigramsBetweenEntities},
	{Name: Bigrams, TFIDF: true, Extract: bigrams},
	{Name: DependencyPathEdges, Extract: dependencyPathEdges},
	{Name: DependencyPathEdgesNearEntities, Extract: dependencyPathEdgesNearEntities},
}

// Families returns the catalogue in declaration order
func Families() []Family {
	return append([]Family(nil), registry...)
}

// FamilyNames returns the names of every family in declaration order
func FamilyNames() []string {
	names := make([]string, len(registry))
	for i, f := range registry {
		names[i] = f.Name
	}
	return names
}

// Lookup finds a family by name
func Lookup(name string) (Family, bool) {
	for _, f := range registry {
		if f.Name == name {
			return f, true
		}
	}
	return Family{}, false
}

func entityTypes(_ *Context, c *candidate.Candidate) map[string]float64 {
	out := make(map[string]float64, len(c.Entities))
	for i, e := range c.Entities {
		out[strconv.Itoa(i)+"_"+e.Type] = 1
	}
	return out
}

// unigramsBetweenEntities counts lowercased words strictly between the
// closest boundaries of the first two arguments. Overlapping arguments have
// nothing between them.
func unigramsBetweenEntities(_ *Context, c *candidate.Candidate) map[string]float64 {
	out := make(map[string]float64)
	a, b := c.ArgTokens(0), c.ArgTokens(1)
	if len(a) == 0 || len(b) == 0 {
		return out
	}

	var from, to int
	switch {
	case a[len(a)-1] < b[0]:
		from, to = a[len(a)-1], b[0]
	case b[len(b)-1] < a[0]:
		from, to = b[len(b)-1], a[0]
	default:
		return out
	}

	tokens := c.Tokens()
	for i := from + 1; i < to; i++ {
		out[strings.ToLower(tokens[i].Word)]++
	}
	return out
}

// bigrams counts adjacent lowercased word pairs within each sentence
func bigrams(_ *Context, c *candidate.Candidate) map[string]float64 {
	out := make(map[string]float64)
	for _, s := range c.Sentences {
		for i := 1; i < len(s.Tokens); i++ {
			out[strings.ToLower(s.Tokens[i-1].Word)+" "+strings.ToLower(s.Tokens[i].Word)]++
		}
	}
	return out
}

func dependencyPathEdges(ctx *Context, c *candidate.Candidate) map[string]float64 {
	out := make(map[string]float64)
	for _, ps := range pathSubgraphs(ctx, c) {
		for _, d := range ps.graph.SortedEdges() {
			out[d.Label]++
		}
	}
	return out
}

func dependencyPathEdgesNearEntities(ctx *Context, c *candidate.Candidate) map[string]float64 {
	out := make(map[string]float64)
	for _, ps := range pathSubgraphs(ctx, c) {
		edges := ps.graph.SortedEdges()
		for arg := range c.Entities {
			local := c.LocalArgTokens(ps.sentence, arg)
			if len(local) == 0 {
				continue
			}
			prefix := strconv.Itoa(arg) + "_"
			for _, d := range edges {
				if contains(local, d.Governor) || contains(local, d.Dependent) {
					out[prefix+d.Label]++
				}
			}
		}
	}
	return out
}

type sentenceSubgraph struct {
	sentence int // Index into Candidate.Sentences
	graph    subgraph.Subgraph
}

// pathSubgraphs returns the minimal subgraph over every argument token when
// the candidate lies in one sentence, and a root path per sentence otherwise
func pathSubgraphs(ctx *Context, c *candidate.Candidate) []sentenceSubgraph {
	if len(c.Sentences) == 1 {
		return []sentenceSubgraph{{sentence: 0, graph: ctx.Subgraphs.ExtractMinimalSubgraph(c.Sentences[0], allArgTokens(c, 0))}}
	}

	out := make([]sentenceSubgraph, 0, len(c.Sentences))
	for si, s := range c.Sentences {
		nodes := allArgTokens(c, si)
		if len(nodes) == 0 {
			continue
		}
		out = append(out, sentenceSubgraph{sentence: si, graph: ctx.Subgraphs.ExtractSubgraphToRoot(s, nodes)})
	}
	return out
}

func allArgTokens(c *candidate.Candidate, si int) []int {
	var nodes []int
	for arg := range c.Entities {
		nodes = append(nodes, c.LocalArgTokens(si, arg)...)
	}
	sort.Ints(nodes)
	return nodes
}

func contains(sorted []int, n int) bool {
	i := sort.SearchInts(sorted, n)
	return i < len(sorted) && sorted[i] == n
}
