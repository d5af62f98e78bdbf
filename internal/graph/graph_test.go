package graph

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestNewNode_TrimsID(t *testing.T) {
	n, err := NewNode("  task-1  ", []string{"Task"}, map[string]any{"name": "X"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.ID != "task-1" {
		t.Errorf("expected trimmed id, got %q", n.ID)
	}
	if !n.HasLabel("Task") {
		t.Error("expected Task label")
	}
	if n.StringProperty("name") != "X" {
		t.Errorf("expected name=X, got %q", n.StringProperty("name"))
	}
}

func TestNewNode_EmptyID(t *testing.T) {
	_, err := NewNode("   ", []string{"Task"}, nil)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestNewNode_EmptyLabel(t *testing.T) {
	_, err := NewNode("n1", []string{"Task", " "}, nil)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestNode_SetPropertyStampsUpdatedAt(t *testing.T) {
	n, _ := NewNode("n1", []string{"Task"}, nil)
	n.SetProperty("status", "running")
	if n.StringProperty("status") != "running" {
		t.Error("property not set")
	}
	if n.StringProperty("updated_at") == "" {
		t.Error("expected updated_at stamp")
	}
}

func TestNode_RemoveProperty(t *testing.T) {
	n, _ := NewNode("n1", []string{"Task"}, map[string]any{"a": 1})
	n.RemoveProperty("a")
	if _, ok := n.Properties["a"]; ok {
		t.Error("property not removed")
	}
	if n.StringProperty("updated_at") == "" {
		t.Error("expected updated_at stamp")
	}
}

func TestNewRelationship_NormalizesType(t *testing.T) {
	r, err := NewRelationship("a", "b", " depends_on ", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Type != "DEPENDS_ON" {
		t.Errorf("expected DEPENDS_ON, got %q", r.Type)
	}
	if r.Properties["created_at"] == "" {
		t.Error("expected created_at stamp")
	}
}

func TestNewRelationship_Validation(t *testing.T) {
	cases := []struct {
		name            string
		start, end, typ string
	}{
		{"empty start", "", "b", "X"},
		{"empty end", "a", " ", "X"},
		{"empty type", "a", "b", "  "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRelationship(tc.start, tc.end, tc.typ, nil)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestNewPath_LengthInvariant(t *testing.T) {
	a, _ := NewNode("a", []string{"Task"}, nil)
	b, _ := NewNode("b", []string{"Task"}, nil)
	r, _ := NewRelationship("a", "b", "DEPENDS_ON", nil)

	p, err := NewPath([]*Node{a, b}, []*Relationship{r})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Length() != 1 {
		t.Errorf("expected length 1, got %d", p.Length())
	}
	if !reflect.DeepEqual(p.NodeIDs(), []string{"a", "b"}) {
		t.Errorf("unexpected node ids %v", p.NodeIDs())
	}

	if _, err := NewPath([]*Node{a, b}, nil); err == nil {
		t.Error("expected length invariant violation")
	}
	if _, err := NewPath(nil, []*Relationship{r}); err == nil {
		t.Error("expected empty path with relationships to fail")
	}
}

func TestCalculateDensity(t *testing.T) {
	cases := []struct {
		nodes, rels int
		want        float64
	}{
		{0, 0, 0},
		{1, 0, 0},
		{4, 6, 0.5},
		{2, 2, 1},
		{2, 5, 1}, // clamped
	}
	for _, tc := range cases {
		if got := CalculateDensity(tc.nodes, tc.rels); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("density(%d,%d) = %v, want %v", tc.nodes, tc.rels, got, tc.want)
		}
	}
}

func TestCanonicalCycle(t *testing.T) {
	rotations := [][]string{
		{"B", "C", "A"},
		{"C", "A", "B"},
		{"A", "B", "C"},
	}
	for _, rot := range rotations {
		got := CanonicalCycle(rot)
		if !reflect.DeepEqual(got, []string{"A", "B", "C"}) {
			t.Errorf("canonical(%v) = %v", rot, got)
		}
	}
	if CycleKey([]string{"B", "A"}) != CycleKey([]string{"A", "B"}) {
		t.Error("rotations should share a cycle key")
	}
}

func TestOperationError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := WrapOperationError("topological sort", cause)
	if !errors.Is(err, cause) {
		t.Error("expected cause to be preserved")
	}
	if err.Error() == "" {
		t.Error("expected message")
	}
}
