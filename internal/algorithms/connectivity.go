package algorithms

import (
	"context"
	"sort"
)

// Bridge is an edge whose removal disconnects the undirected projection of
// the graph, reported in the orientation present in the directed edge set.
type Bridge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Bridges finds bridge edges with Tarjan's bridge algorithm over the
// undirected projection. A bridge is reported only when it corresponds to a
// directed edge actually present in the snapshot.
func (e *Engine) Bridges(ctx context.Context, relType string, labels ...string) ([]Bridge, error) {
	nodes, err := e.fetchNodeIDs(ctx, labels...)
	if err != nil {
		return nil, err
	}
	edges, err := e.fetchEdges(ctx, relType, labels...)
	if err != nil {
		return nil, err
	}
	return findBridges(nodes, edges), nil
}

func findBridges(nodes []string, edges []Edge) []Bridge {
	adj := undirectedAdjacency(edges)
	directed := make(map[[2]string]bool, len(edges))
	for _, e := range edges {
		directed[[2]string{e.From, e.To}] = true
	}

	disc := make(map[string]int, len(nodes))
	low := make(map[string]int, len(nodes))
	timer := 0
	var bridges []Bridge

	var dfs func(u, parent string)
	dfs = func(u, parent string) {
		timer++
		disc[u] = timer
		low[u] = timer
		for _, v := range adj[u] {
			if v == parent {
				continue
			}
			if disc[v] != 0 {
				if disc[v] < low[u] {
					low[u] = disc[v]
				}
				continue
			}
			dfs(v, u)
			if low[v] < low[u] {
				low[u] = low[v]
			}
			if low[v] > disc[u] {
				// Order-insensitive membership: report in whichever
				// orientation the directed snapshot contains.
				switch {
				case directed[[2]string{u, v}]:
					bridges = append(bridges, Bridge{From: u, To: v})
				case directed[[2]string{v, u}]:
					bridges = append(bridges, Bridge{From: v, To: u})
				}
			}
		}
	}

	sorted := append([]string(nil), nodes...)
	sort.Strings(sorted)
	for _, n := range sorted {
		if disc[n] == 0 {
			dfs(n, "")
		}
	}
	return bridges
}

// ArticulationPoints finds nodes whose removal disconnects the undirected
// projection: the DFS root when it has two or more DFS children, any other
// node u with a child whose low time reaches no higher than disc[u].
func (e *Engine) ArticulationPoints(ctx context.Context, relType string, labels ...string) ([]string, error) {
	nodes, err := e.fetchNodeIDs(ctx, labels...)
	if err != nil {
		return nil, err
	}
	edges, err := e.fetchEdges(ctx, relType, labels...)
	if err != nil {
		return nil, err
	}
	return findArticulationPoints(nodes, edges), nil
}

func findArticulationPoints(nodes []string, edges []Edge) []string {
	adj := undirectedAdjacency(edges)

	disc := make(map[string]int, len(nodes))
	low := make(map[string]int, len(nodes))
	isArticulation := make(map[string]bool)
	timer := 0

	var dfs func(u, parent string)
	dfs = func(u, parent string) {
		timer++
		disc[u] = timer
		low[u] = timer
		children := 0
		for _, v := range adj[u] {
			if v == parent {
				continue
			}
			if disc[v] != 0 {
				if disc[v] < low[u] {
					low[u] = disc[v]
				}
				continue
			}
			children++
			dfs(v, u)
			if low[v] < low[u] {
				low[u] = low[v]
			}
			if parent != "" && low[v] >= disc[u] {
				isArticulation[u] = true
			}
		}
		if parent == "" && children >= 2 {
			isArticulation[u] = true
		}
	}

	sorted := append([]string(nil), nodes...)
	sort.Strings(sorted)
	for _, n := range sorted {
		if disc[n] == 0 {
			dfs(n, "")
		}
	}

	points := make([]string, 0, len(isArticulation))
	for id := range isArticulation {
		points = append(points, id)
	}
	sort.Strings(points)
	return points
}
