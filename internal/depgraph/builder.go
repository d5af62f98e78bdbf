package depgraph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/plusplusoneplusplus/taskgraph/internal/graph"
)

// Projection queries. Tests key canned results on these.
const (
	QueryTaskNodes     = "MATCH (t:`Task`) RETURN t.id AS id, t.name AS name, t.status AS status"
	QueryResourceNodes = "MATCH (r:`Resource`) RETURN r.id AS id, r.name AS name"
	QueryGraphEdges    = "MATCH (a)-[e:`DEPENDS_ON`|`FALLBACK_FOR`|`CLEANUP_FOR`|`REQUIRES`|`CAN_USE`]->(b) RETURN a.id AS source, b.id AS target, type(e) AS type, e.weight AS weight"
)

// Build fetches the task graph and computes its export view.
func Build(ctx context.Context, exec graph.QueryExecutor) (*Graph, error) {
	g := &Graph{}
	seen := make(map[string]bool)

	tasks, err := exec.Execute(ctx, QueryTaskNodes, nil)
	if err != nil {
		return nil, graph.WrapOperationError("export", err)
	}
	for _, rec := range tasks.Records {
		id := rec.StringValue("id")
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		name := rec.StringValue("name")
		if name == "" {
			name = id
		}
		g.Nodes = append(g.Nodes, Node{
			ID:     id,
			Name:   name,
			Kind:   NodeTask,
			Status: rec.StringValue("status"),
		})
	}

	resources, err := exec.Execute(ctx, QueryResourceNodes, nil)
	if err != nil {
		return nil, graph.WrapOperationError("export", err)
	}
	for _, rec := range resources.Records {
		id := rec.StringValue("id")
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		name := rec.StringValue("name")
		if name == "" {
			name = id
		}
		g.Nodes = append(g.Nodes, Node{ID: id, Name: name, Kind: NodeResource})
	}

	edges, err := exec.Execute(ctx, QueryGraphEdges, nil)
	if err != nil {
		return nil, graph.WrapOperationError("export", err)
	}
	for _, rec := range edges.Records {
		from := rec.StringValue("source")
		to := rec.StringValue("target")
		if from == "" || to == "" {
			continue
		}
		weight, _ := rec.FloatValue("weight")
		g.Edges = append(g.Edges, Edge{
			From:   from,
			To:     to,
			Kind:   edgeKind(rec.StringValue("type")),
			Weight: weight,
		})
	}

	g.computeStats()
	return g, nil
}

func edgeKind(relType string) EdgeKind {
	switch strings.ToUpper(relType) {
	case "DEPENDS_ON":
		return EdgeDependsOn
	case "FALLBACK_FOR":
		return EdgeFallbackFor
	case "CLEANUP_FOR":
		return EdgeCleanupFor
	case "REQUIRES":
		return EdgeRequires
	case "CAN_USE":
		return EdgeCanUse
	default:
		return EdgeKind(strings.ToLower(relType))
	}
}

func (g *Graph) computeStats() {
	g.Stats.TotalNodes = len(g.Nodes)
	g.Stats.TotalEdges = len(g.Edges)
	g.Stats.StatusCounts = make(map[string]int)

	for _, n := range g.Nodes {
		switch n.Kind {
		case NodeTask:
			g.Stats.TaskCount++
			if n.Status != "" {
				g.Stats.StatusCounts[n.Status]++
			}
		case NodeResource:
			g.Stats.ResourceCount++
		}
	}

	fanOut := make(map[string]int)
	fanIn := make(map[string]int)
	for _, e := range g.Edges {
		if e.Kind != EdgeDependsOn {
			continue
		}
		fanOut[e.From]++
		fanIn[e.To]++
	}

	hotspots := make([]string, 0, len(fanOut))
	for id := range fanOut {
		hotspots = append(hotspots, id)
	}
	sort.Strings(hotspots)
	for _, id := range hotspots {
		if fanOut[id] > g.Stats.MaxFanOut {
			g.Stats.MaxFanOut = fanOut[id]
			g.Stats.HotspotNode = id
		}
	}
	for _, count := range fanIn {
		if count > g.Stats.MaxFanIn {
			g.Stats.MaxFanIn = count
		}
	}

	g.Stats.ConnectedComponents = g.countComponents()
	g.Stats.Cycles = g.detectCycles()
}

// countComponents counts connected components via union-find.
func (g *Graph) countComponents() int {
	parent := make(map[string]string)
	var find func(string) string
	find = func(x string) string {
		if parent[x] == "" {
			parent[x] = x
		}
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b string) {
		fa, fb := find(a), find(b)
		if fa != fb {
			parent[fa] = fb
		}
	}

	for _, n := range g.Nodes {
		find(n.ID)
	}
	for _, e := range g.Edges {
		union(e.From, e.To)
	}

	roots := make(map[string]bool)
	for _, n := range g.Nodes {
		roots[find(n.ID)] = true
	}
	return len(roots)
}

// detectCycles finds dependency cycles using DFS over DEPENDS_ON edges.
func (g *Graph) detectCycles() [][]string {
	adj := make(map[string][]string)
	tasks := make(map[string]bool)

	for _, e := range g.Edges {
		if e.Kind != EdgeDependsOn {
			continue
		}
		adj[e.From] = append(adj[e.From], e.To)
		tasks[e.From] = true
		tasks[e.To] = true
	}

	var cycles [][]string
	visited := make(map[string]int) // 0=unvisited, 1=in-progress, 2=done
	path := make([]string, 0)

	var dfs func(node string)
	dfs = func(node string) {
		if visited[node] == 2 {
			return
		}
		if visited[node] == 1 {
			cycle := make([]string, 0)
			for i := len(path) - 1; i >= 0; i-- {
				cycle = append(cycle, path[i])
				if path[i] == node {
					break
				}
			}
			for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
				cycle[i], cycle[j] = cycle[j], cycle[i]
			}
			cycles = append(cycles, cycle)
			return
		}
		visited[node] = 1
		path = append(path, node)
		for _, next := range adj[node] {
			dfs(next)
		}
		path = path[:len(path)-1]
		visited[node] = 2
	}

	sortedTasks := make([]string, 0, len(tasks))
	for t := range tasks {
		sortedTasks = append(sortedTasks, t)
	}
	sort.Strings(sortedTasks)

	for _, t := range sortedTasks {
		if visited[t] == 0 {
			dfs(t)
		}
	}

	return cycles
}

// FormatStats returns a human-readable summary of graph statistics.
func FormatStats(g *Graph) string {
	var b strings.Builder
	b.WriteString("Task Graph Statistics\n")
	b.WriteString("=====================\n\n")
	b.WriteString(fmt.Sprintf("Nodes:       %d total\n", g.Stats.TotalNodes))
	b.WriteString(fmt.Sprintf("  Tasks:     %d\n", g.Stats.TaskCount))
	b.WriteString(fmt.Sprintf("  Resources: %d\n", g.Stats.ResourceCount))
	b.WriteString(fmt.Sprintf("Edges:       %d total\n", g.Stats.TotalEdges))
	b.WriteString(fmt.Sprintf("Max Fan-Out: %d (%s)\n", g.Stats.MaxFanOut, g.Stats.HotspotNode))
	b.WriteString(fmt.Sprintf("Max Fan-In:  %d\n", g.Stats.MaxFanIn))
	b.WriteString(fmt.Sprintf("Components:  %d\n", g.Stats.ConnectedComponents))

	if len(g.Stats.StatusCounts) > 0 {
		b.WriteString("\nTasks by status:\n")
		statuses := make([]string, 0, len(g.Stats.StatusCounts))
		for s := range g.Stats.StatusCounts {
			statuses = append(statuses, s)
		}
		sort.Strings(statuses)
		for _, s := range statuses {
			b.WriteString(fmt.Sprintf("  %s: %d\n", s, g.Stats.StatusCounts[s]))
		}
	}

	if len(g.Stats.Cycles) > 0 {
		b.WriteString(fmt.Sprintf("\nDependency Cycles: %d\n", len(g.Stats.Cycles)))
		for i, cycle := range g.Stats.Cycles {
			b.WriteString(fmt.Sprintf("  %d: %s\n", i+1, strings.Join(cycle, " -> ")))
		}
	}

	return b.String()
}
