package algorithms

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/plusplusoneplusplus/taskgraph/internal/graph"
)

// fakeExecutor returns canned results keyed by the exact query text.
type fakeExecutor struct {
	results map[string]*graph.QueryResult
	err     error
}

func (f *fakeExecutor) Execute(ctx context.Context, query string, params map[string]any) (*graph.QueryResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	res, ok := f.results[query]
	if !ok {
		return &graph.QueryResult{}, nil
	}
	return res, nil
}

func nodeResult(ids ...string) *graph.QueryResult {
	res := &graph.QueryResult{}
	for _, id := range ids {
		res.Records = append(res.Records, graph.Record{"id": id})
	}
	return res
}

func edgeResult(edges ...Edge) *graph.QueryResult {
	res := &graph.QueryResult{}
	for _, e := range edges {
		res.Records = append(res.Records, graph.Record{
			"source":     e.From,
			"target":     e.To,
			"properties": e.Properties,
		})
	}
	return res
}

func edge(from, to string) Edge { return Edge{From: from, To: to} }

func weighted(from, to string, w float64) Edge {
	return Edge{From: from, To: to, Properties: map[string]any{"weight": w}}
}

func TestKahnSort_PrerequisitesFirst(t *testing.T) {
	// C depends on B depends on A; D independent.
	nodes := []string{"A", "B", "C", "D"}
	edges := []Edge{edge("B", "A"), edge("C", "B")}

	order, err := kahnSort(nodes, edges)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(order))
	}
	pos := make(map[string]int)
	for i, id := range order {
		pos[id] = i
	}
	// For every dependency edge (u)->(v), v must appear before u.
	for _, e := range edges {
		if pos[e.To] >= pos[e.From] {
			t.Errorf("prerequisite %s must precede %s, order %v", e.To, e.From, order)
		}
	}
}

func TestKahnSort_CycleFails(t *testing.T) {
	nodes := []string{"A", "B", "C"}
	edges := []Edge{edge("A", "B"), edge("B", "C"), edge("C", "A")}

	_, err := kahnSort(nodes, edges)
	var opErr *graph.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %v", err)
	}
}

func TestKahnSort_Deterministic(t *testing.T) {
	nodes := []string{"C", "A", "B"}
	first, err := kahnSort(nodes, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := kahnSort(nodes, nil)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("expected deterministic order, got %v vs %v", first, second)
		}
	}
	if first[0] != "A" || first[1] != "B" || first[2] != "C" {
		t.Errorf("expected lexicographic tie-break, got %v", first)
	}
}

func TestEngineTopologicalSort(t *testing.T) {
	exec := &fakeExecutor{results: map[string]*graph.QueryResult{
		"MATCH (n:`Task`) RETURN n.id AS id": nodeResult("t1", "t2"),
		"MATCH (a:`Task`)-[r:`DEPENDS_ON`]->(b:`Task`) RETURN a.id AS source, b.id AS target, properties(r) AS properties": edgeResult(edge("t2", "t1")),
	}}
	eng := New(exec)

	order, err := eng.TopologicalSort(context.Background(), "DEPENDS_ON", "Task")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 2 || order[0] != "t1" || order[1] != "t2" {
		t.Errorf("expected [t1 t2], got %v", order)
	}
}

func TestEngineWrapsQueryFailure(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("connection reset")}
	eng := New(exec)

	_, err := eng.TopologicalSort(context.Background(), "DEPENDS_ON")
	var opErr *graph.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %v", err)
	}
	if opErr.Unwrap() == nil {
		t.Error("expected wrapped cause to be preserved")
	}
}

func TestTarjanSCC(t *testing.T) {
	nodes := []string{"A", "B", "C", "D"}
	edges := []Edge{edge("A", "B"), edge("B", "C"), edge("C", "A"), edge("C", "D")}

	comps := tarjanSCC(nodes, edges)
	if len(comps) != 2 {
		t.Fatalf("expected 2 components, got %d: %v", len(comps), comps)
	}
	var triple, single bool
	for _, c := range comps {
		switch len(c) {
		case 3:
			triple = c[0] == "A" && c[1] == "B" && c[2] == "C"
		case 1:
			single = c[0] == "D"
		}
	}
	if !triple || !single {
		t.Errorf("expected {A,B,C} and {D}, got %v", comps)
	}
}

func TestTarjanSCC_AllSingletons(t *testing.T) {
	comps := tarjanSCC([]string{"A", "B"}, []Edge{edge("A", "B")})
	if len(comps) != 2 {
		t.Errorf("expected 2 singleton components, got %v", comps)
	}
}

func TestFindBridges(t *testing.T) {
	// A-B-C triangle plus pendant C->D: only C-D is a bridge.
	nodes := []string{"A", "B", "C", "D"}
	edges := []Edge{edge("A", "B"), edge("B", "C"), edge("C", "A"), edge("C", "D")}

	bridges := findBridges(nodes, edges)
	if len(bridges) != 1 {
		t.Fatalf("expected 1 bridge, got %v", bridges)
	}
	if bridges[0].From != "C" || bridges[0].To != "D" {
		t.Errorf("expected bridge C->D in directed orientation, got %v", bridges[0])
	}
}

func TestFindArticulationPoints(t *testing.T) {
	// Two triangles joined at C.
	nodes := []string{"A", "B", "C", "D", "E"}
	edges := []Edge{
		edge("A", "B"), edge("B", "C"), edge("C", "A"),
		edge("C", "D"), edge("D", "E"), edge("E", "C"),
	}

	points := findArticulationPoints(nodes, edges)
	if len(points) != 1 || points[0] != "C" {
		t.Errorf("expected [C], got %v", points)
	}
}

func TestFindArticulationPoints_RootCase(t *testing.T) {
	// A is the DFS root of a path B-A-C with two children.
	nodes := []string{"A", "B", "C"}
	edges := []Edge{edge("A", "B"), edge("A", "C")}

	points := findArticulationPoints(nodes, edges)
	if len(points) != 1 || points[0] != "A" {
		t.Errorf("expected [A], got %v", points)
	}
}

func TestKruskalMST(t *testing.T) {
	nodes := []string{"A", "B", "C", "D"}
	edges := []Edge{
		weighted("A", "B", 1.0),
		weighted("B", "C", 2.0),
		weighted("A", "C", 3.0),
		weighted("C", "D", 1.5),
	}

	result := kruskalMST(nodes, edges, "weight")
	if len(result.Edges) != 3 {
		t.Fatalf("expected 3 MST edges, got %d", len(result.Edges))
	}
	if math.Abs(result.TotalWeight-4.5) > 1e-9 {
		t.Errorf("expected total weight 4.5, got %v", result.TotalWeight)
	}
	for _, e := range result.Edges {
		if e.From == "A" && e.To == "C" {
			t.Error("MST must exclude the A-C edge")
		}
	}
}

func TestUnionFind(t *testing.T) {
	uf := newUnionFind([]string{"a", "b", "c"})
	if !uf.union("a", "b") {
		t.Error("first union should merge")
	}
	if uf.union("a", "b") {
		t.Error("second union of same pair should be a no-op")
	}
	if uf.find("a") != uf.find("b") {
		t.Error("a and b should share a root")
	}
	if uf.find("a") == uf.find("c") {
		t.Error("c should remain separate")
	}
}

func TestBellmanFordCycles(t *testing.T) {
	nodes := []string{"A", "B", "C", "D"}
	edges := []Edge{
		weighted("A", "B", 1),
		weighted("B", "C", -2),
		weighted("C", "A", -1),
		weighted("C", "D", 5),
	}

	cycles := bellmanFordCycles(nodes, edges, "weight")
	if len(cycles) != 1 {
		t.Fatalf("expected 1 negative cycle, got %v", cycles)
	}
	if len(cycles[0]) != 3 {
		t.Fatalf("expected 3-node cycle, got %v", cycles[0])
	}
	if cycles[0][0] != "A" {
		t.Errorf("expected canonical rotation starting at A, got %v", cycles[0])
	}
}

func TestBellmanFordCycles_NoneOnPositiveWeights(t *testing.T) {
	nodes := []string{"A", "B", "C"}
	edges := []Edge{weighted("A", "B", 1), weighted("B", "C", 2), weighted("C", "A", 3)}

	if cycles := bellmanFordCycles(nodes, edges, "weight"); len(cycles) != 0 {
		t.Errorf("expected no negative cycles, got %v", cycles)
	}
}

func TestEdmondsKarp(t *testing.T) {
	edges := []Edge{
		{From: "S", To: "A", Properties: map[string]any{"capacity": 10.0}},
		{From: "S", To: "B", Properties: map[string]any{"capacity": 10.0}},
		{From: "A", To: "T", Properties: map[string]any{"capacity": 10.0}},
		{From: "B", To: "T", Properties: map[string]any{"capacity": 10.0}},
		{From: "A", To: "B", Properties: map[string]any{"capacity": 2.0}},
	}

	result, err := edmondsKarp(edges, "capacity", "S", "T")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(result.MaxFlow-20) > 1e-9 {
		t.Errorf("expected max flow 20, got %v", result.MaxFlow)
	}
	if len(result.Paths) == 0 {
		t.Error("expected augmenting paths to be reported")
	}
	var total float64
	for _, p := range result.Paths {
		total += p.Flow
	}
	if math.Abs(total-result.MaxFlow) > 1e-9 {
		t.Errorf("path flows %v do not sum to max flow %v", total, result.MaxFlow)
	}
}

func TestMaximumFlow_Validation(t *testing.T) {
	eng := New(&fakeExecutor{})

	_, err := eng.MaximumFlow(context.Background(), "", "capacity", "", "T")
	var vErr *graph.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError for empty source, got %v", err)
	}
	_, err = eng.MaximumFlow(context.Background(), "", "capacity", "S", "  ")
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError for empty sink, got %v", err)
	}
}

func TestEdmondsKarp_MissingEndpoint(t *testing.T) {
	edges := []Edge{{From: "S", To: "A"}}

	_, err := edmondsKarp(edges, "capacity", "S", "Z")
	var opErr *graph.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError for missing sink, got %v", err)
	}
}
