package algorithms

import (
	"context"
	"fmt"
	"sort"

	"github.com/plusplusoneplusplus/taskgraph/internal/graph"
)

// TopologicalSort orders nodes with Kahn's algorithm so every prerequisite
// appears before its dependents: for an edge (u)-[:DEPENDS_ON]->(v), v comes
// before u. Labels restrict the projection. A cycle fails the whole call
// with an OperationError; no partial order is returned.
func (e *Engine) TopologicalSort(ctx context.Context, relType string, labels ...string) ([]string, error) {
	nodes, err := e.fetchNodeIDs(ctx, labels...)
	if err != nil {
		return nil, err
	}
	edges, err := e.fetchEdges(ctx, relType, labels...)
	if err != nil {
		return nil, err
	}
	return kahnSort(nodes, edges)
}

// kahnSort runs Kahn's algorithm over a dependency edge set (source depends
// on target). Output is deterministic: ties resolve by node ID.
func kahnSort(nodes []string, edges []Edge) ([]string, error) {
	inDegree := make(map[string]int, len(nodes))
	for _, id := range nodes {
		inDegree[id] = 0
	}
	dependents := make(map[string][]string)
	for _, edge := range edges {
		if _, ok := inDegree[edge.From]; !ok {
			continue
		}
		if _, ok := inDegree[edge.To]; !ok {
			continue
		}
		inDegree[edge.From]++
		dependents[edge.To] = append(dependents[edge.To], edge.From)
	}

	queue := make([]string, 0, len(nodes))
	for _, id := range nodes {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)
	for _, list := range dependents {
		sort.Strings(list)
	}

	order := make([]string, 0, len(nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, dep := range dependents[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(order) != len(nodes) {
		return nil, graph.NewOperationError("topological sort",
			fmt.Sprintf("cycle detected: ordered %d of %d nodes", len(order), len(nodes)))
	}
	return order, nil
}
