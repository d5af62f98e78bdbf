// Package manager composes the graph stores with traversal, path finding,
// cycle detection, connected components, and subgraph extraction. Like the
// algorithms engine it works on snapshots fetched fresh per call.
package manager

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/plusplusoneplusplus/taskgraph/internal/graph"
)

// Direction selects which incident edges a traversal follows.
type Direction string

const (
	DirectionOut  Direction = "OUT"
	DirectionIn   Direction = "IN"
	DirectionBoth Direction = "BOTH"
)

// Projection queries. Tests key canned results on these.
const (
	QueryNodeList    = "MATCH (n) RETURN n.id AS id, labels(n) AS labels, properties(n) AS properties"
	QueryEdgeList    = "MATCH (a)-[r]->(b) RETURN a.id AS source, b.id AS target, type(r) AS type, properties(r) AS properties"
	QueryNodeCount   = "MATCH (n) RETURN count(n) AS count"
	QueryRelCount    = "MATCH ()-[r]->() RETURN count(r) AS count"
	QueryLabelCounts = "MATCH (n) UNWIND labels(n) AS label RETURN label AS label, count(*) AS count"
	QueryTypeCounts  = "MATCH ()-[r]->() RETURN type(r) AS type, count(*) AS count"
)

// DefaultMaxDepth bounds traversals and cycle searches when the caller
// passes zero.
const DefaultMaxDepth = 10

// Manager is the graph facade used by the scheduler and the CLI.
type Manager struct {
	exec  graph.QueryExecutor
	nodes graph.NodeStore
	rels  graph.RelationshipStore
}

// New creates a Manager over the executor and stores.
func New(exec graph.QueryExecutor, nodes graph.NodeStore, rels graph.RelationshipStore) *Manager {
	return &Manager{exec: exec, nodes: nodes, rels: rels}
}

// Nodes exposes the node store.
func (m *Manager) Nodes() graph.NodeStore { return m.nodes }

// Relationships exposes the relationship store.
func (m *Manager) Relationships() graph.RelationshipStore { return m.rels }

// edge is one snapshot edge including its relationship type.
type edge struct {
	from       string
	to         string
	relType    string
	properties map[string]any
}

func (m *Manager) fetchEdges(ctx context.Context) ([]edge, error) {
	res, err := m.exec.Execute(ctx, QueryEdgeList, nil)
	if err != nil {
		return nil, graph.WrapOperationError("fetch edges", err)
	}
	edges := make([]edge, 0, len(res.Records))
	for _, rec := range res.Records {
		props, _ := rec["properties"].(map[string]any)
		edges = append(edges, edge{
			from:       rec.StringValue("source"),
			to:         rec.StringValue("target"),
			relType:    rec.StringValue("type"),
			properties: props,
		})
	}
	return edges, nil
}

func (m *Manager) fetchNodes(ctx context.Context) ([]*graph.Node, error) {
	res, err := m.exec.Execute(ctx, QueryNodeList, nil)
	if err != nil {
		return nil, graph.WrapOperationError("fetch nodes", err)
	}
	nodes := make([]*graph.Node, 0, len(res.Records))
	for _, rec := range res.Records {
		props, _ := rec["properties"].(map[string]any)
		n, err := graph.NewNode(rec.StringValue("id"), rec.StringSlice("labels"), props)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// neighbors builds an adjacency map honoring direction and an optional
// relationship-type whitelist.
func neighbors(edges []edge, direction Direction, relTypes []string) map[string][]string {
	allowed := make(map[string]bool, len(relTypes))
	for _, t := range relTypes {
		allowed[strings.ToUpper(t)] = true
	}
	adj := make(map[string][]string)
	for _, e := range edges {
		if len(allowed) > 0 && !allowed[e.relType] {
			continue
		}
		if direction == DirectionOut || direction == DirectionBoth {
			adj[e.from] = append(adj[e.from], e.to)
		}
		if direction == DirectionIn || direction == DirectionBoth {
			adj[e.to] = append(adj[e.to], e.from)
		}
	}
	for _, list := range adj {
		sort.Strings(list)
	}
	return adj
}

// TraverseBFS visits nodes breadth-first from start, bounded by maxDepth
// (0 = DefaultMaxDepth), and returns IDs in visit order including start.
func (m *Manager) TraverseBFS(ctx context.Context, start string, direction Direction, maxDepth int, relTypes ...string) ([]string, error) {
	return m.traverse(ctx, start, direction, maxDepth, relTypes, false)
}

// TraverseDFS visits nodes depth-first from start under the same bounds.
func (m *Manager) TraverseDFS(ctx context.Context, start string, direction Direction, maxDepth int, relTypes ...string) ([]string, error) {
	return m.traverse(ctx, start, direction, maxDepth, relTypes, true)
}

func (m *Manager) traverse(ctx context.Context, start string, direction Direction, maxDepth int, relTypes []string, depthFirst bool) ([]string, error) {
	start = strings.TrimSpace(start)
	if start == "" {
		return nil, graph.NewValidationError("start", "must not be empty")
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	edges, err := m.fetchEdges(ctx)
	if err != nil {
		return nil, err
	}
	adj := neighbors(edges, direction, relTypes)

	type frame struct {
		id    string
		depth int
	}
	visited := map[string]bool{start: true}
	order := []string{start}
	frontier := []frame{{start, 0}}

	for len(frontier) > 0 {
		var cur frame
		if depthFirst {
			cur = frontier[len(frontier)-1]
			frontier = frontier[:len(frontier)-1]
		} else {
			cur = frontier[0]
			frontier = frontier[1:]
		}
		if cur.depth >= maxDepth {
			continue
		}
		next := adj[cur.id]
		if depthFirst {
			// Reverse push order so lexicographically smaller IDs pop first.
			for i := len(next) - 1; i >= 0; i-- {
				if !visited[next[i]] {
					visited[next[i]] = true
					order = append(order, next[i])
					frontier = append(frontier, frame{next[i], cur.depth + 1})
				}
			}
		} else {
			for _, n := range next {
				if !visited[n] {
					visited[n] = true
					order = append(order, n)
					frontier = append(frontier, frame{n, cur.depth + 1})
				}
			}
		}
	}
	return order, nil
}

// FindPaths returns every simple path from start to end up to maxDepth hops,
// as node-ID sequences.
func (m *Manager) FindPaths(ctx context.Context, start, end string, maxDepth int, relTypes ...string) ([][]string, error) {
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return nil, graph.NewValidationError("start/end", "must not be empty")
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	edges, err := m.fetchEdges(ctx)
	if err != nil {
		return nil, err
	}
	adj := neighbors(edges, DirectionOut, relTypes)

	var paths [][]string
	onPath := map[string]bool{start: true}
	path := []string{start}

	var dfs func(cur string)
	dfs = func(cur string) {
		if cur == end {
			paths = append(paths, append([]string(nil), path...))
			return
		}
		if len(path)-1 >= maxDepth {
			return
		}
		for _, next := range adj[cur] {
			if onPath[next] {
				continue
			}
			onPath[next] = true
			path = append(path, next)
			dfs(next)
			path = path[:len(path)-1]
			onPath[next] = false
		}
	}
	dfs(start)
	return paths, nil
}

// ShortestPath finds the minimum-cost path from start to end with Dijkstra.
// Edge cost is the named weight property (default 1 when empty or absent),
// so an empty weightProp yields the fewest-hops path.
func (m *Manager) ShortestPath(ctx context.Context, start, end, weightProp string, relTypes ...string) ([]string, float64, error) {
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return nil, 0, graph.NewValidationError("start/end", "must not be empty")
	}
	edges, err := m.fetchEdges(ctx)
	if err != nil {
		return nil, 0, err
	}

	allowed := make(map[string]bool, len(relTypes))
	for _, t := range relTypes {
		allowed[strings.ToUpper(t)] = true
	}
	type weightedEdge struct {
		to string
		w  float64
	}
	adj := make(map[string][]weightedEdge)
	for _, e := range edges {
		if len(allowed) > 0 && !allowed[e.relType] {
			continue
		}
		w := 1.0
		if weightProp != "" {
			if v, ok := floatProp(e.properties, weightProp); ok {
				w = v
			}
		}
		adj[e.from] = append(adj[e.from], weightedEdge{to: e.to, w: w})
	}

	dist := map[string]float64{start: 0}
	prev := map[string]string{}
	done := map[string]bool{}

	for {
		cur := ""
		best := math.Inf(1)
		for id, d := range dist {
			if !done[id] && d < best {
				cur, best = id, d
			}
		}
		if cur == "" {
			break
		}
		if cur == end {
			break
		}
		done[cur] = true
		for _, e := range adj[cur] {
			if nd := best + e.w; nd < distOr(dist, e.to) {
				dist[e.to] = nd
				prev[e.to] = cur
			}
		}
	}

	d, ok := dist[end]
	if !ok {
		return nil, 0, graph.NewOperationError("shortest path",
			fmt.Sprintf("no path from %s to %s", start, end))
	}
	var path []string
	for cur := end; ; cur = prev[cur] {
		path = append([]string{cur}, path...)
		if cur == start {
			break
		}
	}
	return path, d, nil
}

func distOr(dist map[string]float64, id string) float64 {
	if d, ok := dist[id]; ok {
		return d
	}
	return math.Inf(1)
}

func floatProp(props map[string]any, key string) (float64, bool) {
	switch v := props[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// DetectCycles finds directed cycles up to maxDepth hops via bounded
// self-to-self DFS. Rotations of the same cycle are deduplicated through the
// canonical rotation.
func (m *Manager) DetectCycles(ctx context.Context, maxDepth int, relTypes ...string) ([][]string, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	edges, err := m.fetchEdges(ctx)
	if err != nil {
		return nil, err
	}
	adj := neighbors(edges, DirectionOut, relTypes)

	starts := make([]string, 0, len(adj))
	for id := range adj {
		starts = append(starts, id)
	}
	sort.Strings(starts)

	seen := make(map[string]bool)
	var cycles [][]string

	for _, start := range starts {
		onPath := map[string]bool{start: true}
		path := []string{start}
		var dfs func(cur string)
		dfs = func(cur string) {
			for _, next := range adj[cur] {
				if next == start {
					key := graph.CycleKey(path)
					if !seen[key] {
						seen[key] = true
						cycles = append(cycles, graph.CanonicalCycle(path))
					}
					continue
				}
				if onPath[next] || len(path) >= maxDepth {
					continue
				}
				onPath[next] = true
				path = append(path, next)
				dfs(next)
				path = path[:len(path)-1]
				onPath[next] = false
			}
		}
		dfs(start)
	}
	return cycles, nil
}

// ConnectedComponents groups nodes by connectivity over the undirected
// projection using union-find.
func (m *Manager) ConnectedComponents(ctx context.Context) ([][]string, error) {
	nodes, err := m.fetchNodes(ctx)
	if err != nil {
		return nil, err
	}
	edges, err := m.fetchEdges(ctx)
	if err != nil {
		return nil, err
	}

	parent := make(map[string]string, len(nodes))
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
	for _, n := range nodes {
		find(n.ID)
	}
	for _, e := range edges {
		ra, rb := find(e.from), find(e.to)
		if ra != rb {
			parent[ra] = rb
		}
	}

	groups := make(map[string][]string)
	for _, n := range nodes {
		root := find(n.ID)
		groups[root] = append(groups[root], n.ID)
	}
	components := make([][]string, 0, len(groups))
	for _, g := range groups {
		sort.Strings(g)
		components = append(components, g)
	}
	sort.Slice(components, func(i, j int) bool { return components[i][0] < components[j][0] })
	return components, nil
}

// Subgraph is an induced subgraph over a node-ID set.
type Subgraph struct {
	Nodes         []*graph.Node         `json:"nodes"`
	Relationships []*graph.Relationship `json:"relationships"`
}

// ExtractSubgraph returns the induced subgraph over nodeIDs, keeping only
// relationships whose endpoints are both in the set and, when relTypes is
// given, whose type matches.
func (m *Manager) ExtractSubgraph(ctx context.Context, nodeIDs []string, relTypes ...string) (*Subgraph, error) {
	if len(nodeIDs) == 0 {
		return nil, graph.NewValidationError("node_ids", "must not be empty")
	}
	include := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		include[id] = true
	}
	allowed := make(map[string]bool, len(relTypes))
	for _, t := range relTypes {
		allowed[strings.ToUpper(t)] = true
	}

	nodes, err := m.fetchNodes(ctx)
	if err != nil {
		return nil, err
	}
	edges, err := m.fetchEdges(ctx)
	if err != nil {
		return nil, err
	}

	sub := &Subgraph{}
	for _, n := range nodes {
		if include[n.ID] {
			sub.Nodes = append(sub.Nodes, n)
		}
	}
	for _, e := range edges {
		if !include[e.from] || !include[e.to] {
			continue
		}
		if len(allowed) > 0 && !allowed[e.relType] {
			continue
		}
		sub.Relationships = append(sub.Relationships, &graph.Relationship{
			StartID:    e.from,
			EndID:      e.to,
			Type:       e.relType,
			Properties: e.properties,
		})
	}
	return sub, nil
}

// Stats aggregates node/relationship counts with per-label and per-type
// histograms; calling it twice without mutation yields identical counts.
func (m *Manager) Stats(ctx context.Context) (*graph.Stats, error) {
	nodeCount, err := m.countQuery(ctx, QueryNodeCount)
	if err != nil {
		return nil, err
	}
	relCount, err := m.countQuery(ctx, QueryRelCount)
	if err != nil {
		return nil, err
	}
	labelCounts, err := m.histogramQuery(ctx, QueryLabelCounts, "label")
	if err != nil {
		return nil, err
	}
	typeCounts, err := m.histogramQuery(ctx, QueryTypeCounts, "type")
	if err != nil {
		return nil, err
	}
	return graph.NewStats(nodeCount, relCount, labelCounts, typeCounts), nil
}

func (m *Manager) countQuery(ctx context.Context, query string) (int, error) {
	res, err := m.exec.Execute(ctx, query, nil)
	if err != nil {
		return 0, graph.WrapOperationError("stats", err)
	}
	if len(res.Records) == 0 {
		return 0, nil
	}
	count, _ := res.Records[0].IntValue("count")
	return count, nil
}

func (m *Manager) histogramQuery(ctx context.Context, query, keyColumn string) (map[string]int, error) {
	res, err := m.exec.Execute(ctx, query, nil)
	if err != nil {
		return nil, graph.WrapOperationError("stats", err)
	}
	hist := make(map[string]int, len(res.Records))
	for _, rec := range res.Records {
		count, _ := rec.IntValue("count")
		hist[rec.StringValue(keyColumn)] = count
	}
	return hist, nil
}
