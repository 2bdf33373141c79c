package subgraph

import (
	"sort"

	"github.com/jakelever/kindred-sub000/internal/model"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/simple"
)

// depGraph is an undirected view of a sentence's dependency edges. Neighbour
// iteration is sorted so shortest paths are reproducible across runs.
type depGraph struct {
	adj   map[int64][]int64
	edges map[[2]int][]model.Dependency // All labelled edges per unordered node pair
}

func pairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

func newDepGraph(deps []model.Dependency) *depGraph {
	g := &depGraph{
		adj:   make(map[int64][]int64),
		edges: make(map[[2]int][]model.Dependency),
	}

	for _, d := range deps {
		key := pairKey(d.Governor, d.Dependent)
		if _, seen := g.edges[key]; !seen {
			g.touch(int64(d.Governor))
			g.touch(int64(d.Dependent))
			if d.Governor != d.Dependent {
				g.adj[int64(d.Governor)] = append(g.adj[int64(d.Governor)], int64(d.Dependent))
				g.adj[int64(d.Dependent)] = append(g.adj[int64(d.Dependent)], int64(d.Governor))
			}
		}
		g.edges[key] = append(g.edges[key], d)
	}

	for id := range g.adj {
		ns := g.adj[id]
		sort.Slice(ns, func(i, j int) bool { return ns[i] < ns[j] })
	}

	return g
}

func (g *depGraph) touch(id int64) {
	if _, ok := g.adj[id]; !ok {
		g.adj[id] = nil
	}
}

func (g *depGraph) has(id int) bool {
	_, ok := g.adj[int64(id)]
	return ok
}

// labelled returns the dependencies joining two adjacent nodes
func (g *depGraph) labelled(a, b int) []model.Dependency {
	return g.edges[pairKey(a, b)]
}

// Node implements graph.Graph
func (g *depGraph) Node(id int64) graph.Node {
	if _, ok := g.adj[id]; !ok {
		return nil
	}
	return simple.Node(id)
}

// Nodes implements graph.Graph
func (g *depGraph) Nodes() graph.Nodes {
	ids := make([]int64, 0, len(g.adj))
	for id := range g.adj {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return orderedNodes(ids)
}

// From implements graph.Graph
func (g *depGraph) From(id int64) graph.Nodes {
	ns, ok := g.adj[id]
	if !ok || len(ns) == 0 {
		return graph.Empty
	}
	return orderedNodes(ns)
}

// HasEdgeBetween implements graph.Graph
func (g *depGraph) HasEdgeBetween(xid, yid int64) bool {
	if xid == yid {
		return false
	}
	_, ok := g.edges[pairKey(int(xid), int(yid))]
	return ok
}

// Edge implements graph.Graph
func (g *depGraph) Edge(uid, vid int64) graph.Edge {
	if !g.HasEdgeBetween(uid, vid) {
		return nil
	}
	return simple.Edge{F: simple.Node(uid), T: simple.Node(vid)}
}

// EdgeBetween implements graph.Undirected
func (g *depGraph) EdgeBetween(xid, yid int64) graph.Edge {
	return g.Edge(xid, yid)
}

func orderedNodes(ids []int64) graph.Nodes {
	nodes := make([]graph.Node, len(ids))
	for i, id := range ids {
		nodes[i] = simple.Node(id)
	}
	return iterator.NewOrderedNodes(nodes)
}

var _ graph.Undirected = (*depGraph)(nil)
