package algorithms

import (
	"context"
	"sort"
)

// MSTEdge is one accepted edge of a minimum spanning tree.
type MSTEdge struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Weight float64 `json:"weight"`
}

// MSTResult holds the accepted edges and the summed weight.
type MSTResult struct {
	Edges       []MSTEdge `json:"edges"`
	TotalWeight float64   `json:"total_weight"`
}

// MinimumSpanningTree runs Kruskal's algorithm over edges sorted ascending
// by the named weight property (missing weights default to 1), stopping once
// node_count-1 edges are accepted. Disconnected graphs yield a spanning
// forest.
func (e *Engine) MinimumSpanningTree(ctx context.Context, relType, weightProp string, labels ...string) (*MSTResult, error) {
	nodes, err := e.fetchNodeIDs(ctx, labels...)
	if err != nil {
		return nil, err
	}
	edges, err := e.fetchEdges(ctx, relType, labels...)
	if err != nil {
		return nil, err
	}
	return kruskalMST(nodes, edges, weightProp), nil
}

func kruskalMST(nodes []string, edges []Edge, weightProp string) *MSTResult {
	sorted := append([]Edge(nil), edges...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Weight(weightProp, 1) < sorted[j].Weight(weightProp, 1)
	})

	uf := newUnionFind(nodes)
	result := &MSTResult{}
	for _, edge := range sorted {
		if len(result.Edges) >= len(nodes)-1 {
			break
		}
		if !uf.union(edge.From, edge.To) {
			continue
		}
		w := edge.Weight(weightProp, 1)
		result.Edges = append(result.Edges, MSTEdge{From: edge.From, To: edge.To, Weight: w})
		result.TotalWeight += w
	}
	return result
}

// unionFind with path compression and union by rank.
type unionFind struct {
	parent map[string]string
	rank   map[string]int
}

func newUnionFind(nodes []string) *unionFind {
	uf := &unionFind{
		parent: make(map[string]string, len(nodes)),
		rank:   make(map[string]int, len(nodes)),
	}
	for _, n := range nodes {
		uf.parent[n] = n
	}
	return uf
}

func (uf *unionFind) find(x string) string {
	if _, ok := uf.parent[x]; !ok {
		uf.parent[x] = x
	}
	if uf.parent[x] != x {
		uf.parent[x] = uf.find(uf.parent[x])
	}
	return uf.parent[x]
}

// union merges the sets containing a and b; returns false when they were
// already joined.
func (uf *unionFind) union(a, b string) bool {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return false
	}
	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
	return true
}
