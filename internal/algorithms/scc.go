package algorithms

import (
	"context"
	"sort"
)

// StronglyConnectedComponents finds all SCCs with Tarjan's algorithm,
// singletons included.
func (e *Engine) StronglyConnectedComponents(ctx context.Context, relType string, labels ...string) ([][]string, error) {
	nodes, err := e.fetchNodeIDs(ctx, labels...)
	if err != nil {
		return nil, err
	}
	edges, err := e.fetchEdges(ctx, relType, labels...)
	if err != nil {
		return nil, err
	}
	return tarjanSCC(nodes, edges), nil
}

func tarjanSCC(nodes []string, edges []Edge) [][]string {
	adj := adjacency(edges)

	index := make(map[string]int, len(nodes))
	lowlink := make(map[string]int, len(nodes))
	onStack := make(map[string]bool, len(nodes))
	var stack []string
	counter := 0
	var components [][]string

	var strongConnect func(v string)
	strongConnect = func(v string) {
		index[v] = counter
		lowlink[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adj[v] {
			if _, visited := index[w]; !visited {
				strongConnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] && index[w] < lowlink[v] {
				lowlink[v] = index[w]
			}
		}

		if lowlink[v] == index[v] {
			var comp []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			sort.Strings(comp)
			components = append(components, comp)
		}
	}

	sorted := append([]string(nil), nodes...)
	sort.Strings(sorted)
	for _, v := range sorted {
		if _, visited := index[v]; !visited {
			strongConnect(v)
		}
	}
	return components
}
