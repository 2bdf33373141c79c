// Package subgraph locates the part of a dependency parse that connects a set
// of tokens. Dependency-path features are computed over these subgraphs.
package subgraph

import (
	"math"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/jakelever/kindred-sub000/internal/diag"
	"github.com/jakelever/kindred-sub000/internal/model"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// Subgraph is a set of token indices and the dependency edges joining them
type Subgraph struct {
	Nodes mapset.Set[int]
	Edges mapset.Set[model.Dependency]
}

// NewSubgraph returns an empty subgraph
func NewSubgraph() Subgraph {
	return Subgraph{
		Nodes: mapset.NewThreadUnsafeSet[int](),
		Edges: mapset.NewThreadUnsafeSet[model.Dependency](),
	}
}

// SortedNodes returns the node indices in ascending order
func (s Subgraph) SortedNodes() []int {
	nodes := s.Nodes.ToSlice()
	sort.Ints(nodes)
	return nodes
}

// SortedEdges returns the edges ordered by governor, dependent and label
func (s Subgraph) SortedEdges() []model.Dependency {
	edges := s.Edges.ToSlice()
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.Governor != b.Governor {
			return a.Governor < b.Governor
		}
		if a.Dependent != b.Dependent {
			return a.Dependent < b.Dependent
		}
		return a.Label < b.Label
	})
	return edges
}

// Extractor computes subgraphs and reports data problems to a sink
type Extractor struct {
	sink diag.Sink
}

// NewExtractor creates an extractor. A nil sink discards warnings.
func NewExtractor(sink diag.Sink) *Extractor {
	if sink == nil {
		sink = diag.Discard
	}
	return &Extractor{sink: sink}
}

// ExtractMinimalSubgraph approximates the minimum Steiner tree spanning
// nodeIndices: shortest paths between every terminal pair, a minimum spanning
// tree over those path lengths, and the union of the paths the tree uses.
//
// Terminals missing from the graph and unreachable pairs are reported and
// skipped, so a disconnected terminal set yields a partial result.
func (x *Extractor) ExtractMinimalSubgraph(sentence *model.Sentence, nodeIndices []int) Subgraph {
	result := NewSubgraph()
	if len(nodeIndices) == 0 {
		return result
	}

	g := newDepGraph(sentence.Dependencies)

	terminals := uniqueSorted(nodeIndices)
	var present []int
	for _, n := range terminals {
		if !g.has(n) {
			diag.Emit(x.sink, diag.NodeNotFound, map[string]interface{}{"node": n}, "token %d not found in dependency graph", n)
			continue
		}
		present = append(present, n)
		result.Nodes.Add(n)
	}

	if len(present) < 2 {
		return result
	}

	// Aux complete graph over terminals, weighted by path length. Each pair
	// gets a distinct sub-unit offset so ties never make the MST ambiguous.
	aux := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for _, n := range present {
		aux.AddNode(simple.Node(n))
	}

	paths := make(map[[2]int][]graph.Node)
	numPairs := len(present) * (len(present) - 1) / 2
	rank := 0
	for i, a := range present {
		shortest := path.DijkstraFrom(simple.Node(a), g)
		for _, b := range present[i+1:] {
			nodes, weight := shortest.To(int64(b))
			if len(nodes) == 0 || math.IsInf(weight, 1) {
				diag.Emit(x.sink, diag.NoPath, map[string]interface{}{"from": a, "to": b}, "no dependency path between tokens %d and %d", a, b)
				rank++
				continue
			}
			paths[pairKey(a, b)] = nodes
			w := weight + float64(rank)/float64(numPairs+1)
			aux.SetWeightedEdge(aux.NewWeightedEdge(simple.Node(a), simple.Node(b), w))
			rank++
		}
	}

	mst := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	path.Kruskal(mst, aux)

	edges := mst.Edges()
	for edges.Next() {
		e := edges.Edge()
		key := pairKey(int(e.From().ID()), int(e.To().ID()))
		x.addPath(result, g, paths[key])
	}

	return result
}

func (x *Extractor) addPath(result Subgraph, g *depGraph, nodes []graph.Node) {
	for i, n := range nodes {
		result.Nodes.Add(int(n.ID()))
		if i == 0 {
			continue
		}
		for _, d := range g.labelled(int(nodes[i-1].ID()), int(n.ID())) {
			result.Edges.Add(d)
		}
	}
}

// ExtractSubgraphToRoot follows governor edges upward from every requested
// node until no governor remains. The seen-set guarantees termination on
// cyclic or self-referential parses.
func (x *Extractor) ExtractSubgraphToRoot(sentence *model.Sentence, nodeIndices []int) Subgraph {
	result := NewSubgraph()

	governors := make(map[int][]model.Dependency)
	for _, d := range sentence.Dependencies {
		governors[d.Dependent] = append(governors[d.Dependent], d)
	}

	seen := mapset.NewThreadUnsafeSet[int]()
	work := uniqueSorted(nodeIndices)
	for len(work) > 0 {
		n := work[0]
		work = work[1:]
		if !seen.Add(n) {
			continue
		}
		result.Nodes.Add(n)

		for _, d := range governors[n] {
			result.Edges.Add(d)
			if !seen.Contains(d.Governor) {
				work = append(work, d.Governor)
			}
		}
	}

	return result
}

func uniqueSorted(ns []int) []int {
	out := append([]int(nil), ns...)
	sort.Ints(out)
	j := 0
	for i, n := range out {
		if i > 0 && n == out[j-1] {
			continue
		}
		out[j] = n
		j++
	}
	return out[:j]
}
