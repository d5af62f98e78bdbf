// Package algorithms runs textbook graph algorithms over snapshots fetched
// from the graph store. Every operation builds its adjacency structures
// fresh from a query result and never mutates the graph; object graphs with
// pointer cycles are never kept across calls.
package algorithms

import (
	"context"
	"fmt"
	"strings"

	"github.com/plusplusoneplusplus/taskgraph/internal/graph"
)

// Query shapes used to project nodes and edges. Exposed for test executors
// that key canned results on the query text.
const (
	QueryNodeIDs = "MATCH (n%s) RETURN n.id AS id"
	QueryEdges   = "MATCH (a%s)-[r%s]->(b%s) RETURN a.id AS source, b.id AS target, properties(r) AS properties"
)

// Edge is one directed edge of a snapshot.
type Edge struct {
	From       string
	To         string
	Properties map[string]any
}

// Weight returns a numeric edge property, defaulting when absent.
func (e Edge) Weight(prop string, def float64) float64 {
	if v, ok := asFloat(e.Properties[prop]); ok {
		return v
	}
	return def
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

// Engine fetches projections through a QueryExecutor and runs the
// algorithms in-process.
type Engine struct {
	exec graph.QueryExecutor
}

// New creates an algorithms engine over the given executor.
func New(exec graph.QueryExecutor) *Engine {
	return &Engine{exec: exec}
}

func labelFragment(labels []string) string {
	var b strings.Builder
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		b.WriteString(":`")
		b.WriteString(strings.ReplaceAll(l, "`", ""))
		b.WriteString("`")
	}
	return b.String()
}

func typeFragment(relType string) string {
	relType = strings.TrimSpace(relType)
	if relType == "" {
		return ""
	}
	return ":`" + strings.ToUpper(strings.ReplaceAll(relType, "`", "")) + "`"
}

// fetchNodeIDs projects the identities of all nodes carrying the labels.
func (e *Engine) fetchNodeIDs(ctx context.Context, labels ...string) ([]string, error) {
	query := fmt.Sprintf(QueryNodeIDs, labelFragment(labels))
	res, err := e.exec.Execute(ctx, query, nil)
	if err != nil {
		return nil, graph.WrapOperationError("fetch nodes", err)
	}
	ids := make([]string, 0, len(res.Records))
	for _, rec := range res.Records {
		if id := rec.StringValue("id"); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// fetchEdges projects directed edges, optionally restricted to a
// relationship type and endpoint labels.
func (e *Engine) fetchEdges(ctx context.Context, relType string, labels ...string) ([]Edge, error) {
	lf := labelFragment(labels)
	query := fmt.Sprintf(QueryEdges, lf, typeFragment(relType), lf)
	res, err := e.exec.Execute(ctx, query, nil)
	if err != nil {
		return nil, graph.WrapOperationError("fetch edges", err)
	}
	edges := make([]Edge, 0, len(res.Records))
	for _, rec := range res.Records {
		props, _ := rec["properties"].(map[string]any)
		edges = append(edges, Edge{
			From:       rec.StringValue("source"),
			To:         rec.StringValue("target"),
			Properties: props,
		})
	}
	return edges, nil
}

// adjacency builds a successor list from an edge snapshot.
func adjacency(edges []Edge) map[string][]string {
	adj := make(map[string][]string)
	for _, e := range edges {
		adj[e.From] = append(adj[e.From], e.To)
	}
	return adj
}

// undirectedAdjacency builds a neighbor list treating edges as undirected,
// collapsing parallel edges.
func undirectedAdjacency(edges []Edge) map[string][]string {
	seen := make(map[[2]string]bool)
	adj := make(map[string][]string)
	add := func(a, b string) {
		if a == b || seen[[2]string{a, b}] {
			return
		}
		seen[[2]string{a, b}] = true
		adj[a] = append(adj[a], b)
	}
	for _, e := range edges {
		add(e.From, e.To)
		add(e.To, e.From)
	}
	return adj
}
