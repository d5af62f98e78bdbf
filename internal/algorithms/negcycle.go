package algorithms

import (
	"context"
	"math"
	"sort"

	"github.com/plusplusoneplusplus/taskgraph/internal/graph"
)

// NegativeCycles detects negative-weight cycles with Bellman-Ford, run once
// per candidate source so disconnected regions are covered. Cycles are
// deduplicated by their canonical rotation.
func (e *Engine) NegativeCycles(ctx context.Context, relType, weightProp string, labels ...string) ([][]string, error) {
	nodes, err := e.fetchNodeIDs(ctx, labels...)
	if err != nil {
		return nil, err
	}
	edges, err := e.fetchEdges(ctx, relType, labels...)
	if err != nil {
		return nil, err
	}
	return bellmanFordCycles(nodes, edges, weightProp), nil
}

func bellmanFordCycles(nodes []string, edges []Edge, weightProp string) [][]string {
	sorted := append([]string(nil), nodes...)
	sort.Strings(sorted)

	seen := make(map[string]bool)
	var cycles [][]string

	for _, source := range sorted {
		dist := make(map[string]float64, len(nodes))
		pred := make(map[string]string, len(nodes))
		for _, n := range nodes {
			dist[n] = math.Inf(1)
		}
		dist[source] = 0

		for i := 0; i < len(nodes)-1; i++ {
			relaxed := false
			for _, edge := range edges {
				w := edge.Weight(weightProp, 1)
				if dist[edge.From]+w < dist[edge.To] {
					dist[edge.To] = dist[edge.From] + w
					pred[edge.To] = edge.From
					relaxed = true
				}
			}
			if !relaxed {
				break
			}
		}

		for _, edge := range edges {
			w := edge.Weight(weightProp, 1)
			if dist[edge.From]+w >= dist[edge.To] {
				continue
			}
			// Still relaxable after |V|-1 rounds: a negative cycle is
			// reachable. Walk predecessors until a node repeats, then
			// extract the loop.
			cycle := traceCycle(edge.To, pred, len(nodes))
			if len(cycle) == 0 {
				continue
			}
			key := graph.CycleKey(cycle)
			if !seen[key] {
				seen[key] = true
				cycles = append(cycles, graph.CanonicalCycle(cycle))
			}
		}
	}
	return cycles
}

func traceCycle(start string, pred map[string]string, maxHops int) []string {
	// Advance into the cycle first; start may hang off it.
	cur := start
	for i := 0; i <= maxHops; i++ {
		p, ok := pred[cur]
		if !ok {
			return nil
		}
		cur = p
	}

	visited := map[string]int{}
	var path []string
	for {
		if idx, ok := visited[cur]; ok {
			return path[idx:]
		}
		visited[cur] = len(path)
		path = append(path, cur)
		p, ok := pred[cur]
		if !ok {
			return nil
		}
		cur = p
	}
}
