package subgraph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jakelever/kindred-sub000/internal/cache"
	"github.com/jakelever/kindred-sub000/internal/model"
)

const (
	modeMinimal = "minimal"
	modeRoot    = "root"
)

// Memo caches extractor results per sentence, index set and mode. Returned
// subgraphs are shared between callers and must be treated as read-only.
type Memo struct {
	x     *Extractor
	cache cache.Cache
}

// NewMemo wraps an extractor with a cache
func NewMemo(x *Extractor, c cache.Cache) *Memo {
	return &Memo{x: x, cache: c}
}

// ExtractMinimalSubgraph is the cached form of Extractor.ExtractMinimalSubgraph
func (m *Memo) ExtractMinimalSubgraph(sentence *model.Sentence, nodeIndices []int) Subgraph {
	return m.lookup(modeMinimal, sentence, nodeIndices, m.x.ExtractMinimalSubgraph)
}

// ExtractSubgraphToRoot is the cached form of Extractor.ExtractSubgraphToRoot
func (m *Memo) ExtractSubgraphToRoot(sentence *model.Sentence, nodeIndices []int) Subgraph {
	return m.lookup(modeRoot, sentence, nodeIndices, m.x.ExtractSubgraphToRoot)
}

func (m *Memo) lookup(mode string, sentence *model.Sentence, nodeIndices []int, compute func(*model.Sentence, []int) Subgraph) Subgraph {
	nodes := uniqueSorted(nodeIndices)
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = strconv.Itoa(n)
	}
	key := cache.Key("subgraph", mode, fmt.Sprintf("%p", sentence), strings.Join(parts, ","))

	if v, ok := m.cache.Get(key); ok {
		return v.(Subgraph)
	}
	sg := compute(sentence, nodes)
	m.cache.Set(key, sg, 0)
	return sg
}
