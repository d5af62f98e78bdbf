package algorithms

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/plusplusoneplusplus/taskgraph/internal/graph"
)

// FlowResult holds the total flow and the augmenting paths that carried it.
type FlowResult struct {
	MaxFlow float64          `json:"max_flow"`
	Paths   []AugmentingPath `json:"paths"`
}

// AugmentingPath is one BFS-found path and the flow pushed along it.
type AugmentingPath struct {
	Nodes []string `json:"nodes"`
	Flow  float64  `json:"flow"`
}

// MaximumFlow computes the max flow from source to sink with Edmonds-Karp
// over a capacity map keyed by the named capacity property (missing
// capacities default to 1). Empty endpoint IDs are a validation error;
// endpoints absent from the snapshot are an operation error.
func (e *Engine) MaximumFlow(ctx context.Context, relType, capacityProp, source, sink string) (*FlowResult, error) {
	source = strings.TrimSpace(source)
	sink = strings.TrimSpace(sink)
	if source == "" {
		return nil, graph.NewValidationError("source", "must not be empty")
	}
	if sink == "" {
		return nil, graph.NewValidationError("sink", "must not be empty")
	}

	edges, err := e.fetchEdges(ctx, relType)
	if err != nil {
		return nil, err
	}
	return edmondsKarp(edges, capacityProp, source, sink)
}

func edmondsKarp(edges []Edge, capacityProp, source, sink string) (*FlowResult, error) {
	residual := make(map[string]map[string]float64)
	ensure := func(id string) {
		if residual[id] == nil {
			residual[id] = make(map[string]float64)
		}
	}
	for _, e := range edges {
		ensure(e.From)
		ensure(e.To)
		residual[e.From][e.To] += e.Weight(capacityProp, 1)
		if _, ok := residual[e.To][e.From]; !ok {
			residual[e.To][e.From] = 0
		}
	}

	if _, ok := residual[source]; !ok {
		return nil, graph.NewOperationError("maximum flow", fmt.Sprintf("source not in graph: %s", source))
	}
	if _, ok := residual[sink]; !ok {
		return nil, graph.NewOperationError("maximum flow", fmt.Sprintf("sink not in graph: %s", sink))
	}

	result := &FlowResult{}
	for {
		path := bfsAugmentingPath(residual, source, sink)
		if path == nil {
			break
		}

		bottleneck := residual[path[0]][path[1]]
		for i := 1; i < len(path)-1; i++ {
			if c := residual[path[i]][path[i+1]]; c < bottleneck {
				bottleneck = c
			}
		}

		for i := 0; i < len(path)-1; i++ {
			u, v := path[i], path[i+1]
			residual[u][v] -= bottleneck
			residual[v][u] += bottleneck
		}

		result.MaxFlow += bottleneck
		result.Paths = append(result.Paths, AugmentingPath{Nodes: path, Flow: bottleneck})
	}
	return result, nil
}

func bfsAugmentingPath(residual map[string]map[string]float64, source, sink string) []string {
	parent := map[string]string{source: source}
	queue := []string{source}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		neighbors := make([]string, 0, len(residual[u]))
		for v := range residual[u] {
			neighbors = append(neighbors, v)
		}
		sort.Strings(neighbors)
		for _, v := range neighbors {
			if residual[u][v] <= 0 {
				continue
			}
			if _, seen := parent[v]; seen {
				continue
			}
			parent[v] = u
			if v == sink {
				var path []string
				for cur := sink; ; cur = parent[cur] {
					path = append([]string{cur}, path...)
					if cur == source {
						return path
					}
				}
			}
			queue = append(queue, v)
		}
	}
	return nil
}
