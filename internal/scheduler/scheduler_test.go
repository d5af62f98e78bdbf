package scheduler

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/plusplusoneplusplus/taskgraph/internal/graph"
)

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

// buildSnapshot assembles the in-memory view the pure helpers operate on.
func buildSnapshot(tasks []*Task, deps [][2]string) *snapshot {
	snap := &snapshot{
		tasks:      make(map[string]*Task),
		prereqs:    make(map[string][]string),
		dependents: make(map[string][]string),
	}
	for _, t := range tasks {
		snap.tasks[t.ID] = t
		snap.order = append(snap.order, t.ID)
	}
	sort.Strings(snap.order)
	for _, d := range deps {
		snap.prereqs[d[0]] = append(snap.prereqs[d[0]], d[1])
		snap.dependents[d[1]] = append(snap.dependents[d[1]], d[0])
	}
	for _, list := range snap.prereqs {
		sort.Strings(list)
	}
	return snap
}

func task(id, status string, priority int) *Task {
	return &Task{ID: id, Status: status, Priority: priority}
}

func taskResults(tasks []*Task, deps [][2]string) map[string]*graph.QueryResult {
	taskRes := &graph.QueryResult{}
	for _, t := range tasks {
		props := map[string]any{"status": t.Status, "priority": int64(t.Priority)}
		if t.EstimatedDuration > 0 {
			props["estimated_duration"] = t.EstimatedDuration
		}
		if t.HasDeadline() {
			props["deadline"] = t.Deadline.Format(time.RFC3339)
		}
		if t.CPUCores > 0 {
			props["cpu_cores"] = t.CPUCores
		}
		if t.MemoryGB > 0 {
			props["memory_gb"] = t.MemoryGB
		}
		taskRes.Records = append(taskRes.Records, graph.Record{"id": t.ID, "properties": props})
	}
	depRes := &graph.QueryResult{}
	for _, d := range deps {
		depRes.Records = append(depRes.Records, graph.Record{"source": d[0], "target": d[1]})
	}
	return map[string]*graph.QueryResult{
		QueryTasks:        taskRes,
		QueryDependencies: depRes,
	}
}

func ids(tasks []*Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestFindReadyTasks_DependencyGate(t *testing.T) {
	// B depends on A; only A is ready while A is pending.
	tasks := []*Task{task("A", StatusPending, 1), task("B", StatusPending, 1)}
	deps := [][2]string{{"B", "A"}}
	s := New(&fakeExecutor{results: taskResults(tasks, deps)})

	ready, err := s.FindReadyTasks(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(ids(ready), []string{"A"}) {
		t.Errorf("expected [A], got %v", ids(ready))
	}

	// After A completes, B becomes ready.
	tasks[0].Status = StatusCompleted
	s = New(&fakeExecutor{results: taskResults(tasks, deps)})
	ready, err = s.FindReadyTasks(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(ids(ready), []string{"B"}) {
		t.Errorf("expected [B], got %v", ids(ready))
	}
}

func TestFindReadyTasks_NeverIncludesBlocked(t *testing.T) {
	tasks := []*Task{
		task("A", StatusRunning, 1),
		task("B", StatusPending, 1),
		task("C", StatusPending, 1),
		task("D", StatusFailed, 1),
		task("E", StatusPending, 1),
	}
	deps := [][2]string{{"B", "A"}, {"E", "D"}}
	snap := buildSnapshot(tasks, deps)

	ready := readyTasks(snap)
	for _, r := range ready {
		for _, prereq := range snap.prereqs[r.ID] {
			if snap.tasks[prereq].Status != StatusCompleted {
				t.Errorf("ready task %s has incomplete prerequisite %s", r.ID, prereq)
			}
		}
	}
	if !reflect.DeepEqual(ids(ready), []string{"C"}) {
		t.Errorf("expected only [C], got %v", ids(ready))
	}
}

func TestFindReadyTasks_MissingPrerequisiteBlocks(t *testing.T) {
	snap := buildSnapshot([]*Task{task("A", StatusPending, 1)}, [][2]string{{"A", "ghost"}})
	if ready := readyTasks(snap); len(ready) != 0 {
		t.Errorf("task with missing prerequisite must not be ready, got %v", ids(ready))
	}
}

func TestFindReadyTasks_Ordering(t *testing.T) {
	deadline := time.Now().Add(2 * time.Hour)
	later := time.Now().Add(48 * time.Hour)
	tasks := []*Task{
		{ID: "noDeadline", Status: StatusPending, Priority: 1},
		{ID: "urgent", Status: StatusPending, Priority: 1, Deadline: deadline},
		{ID: "relaxed", Status: StatusPending, Priority: 1, Deadline: later},
		{ID: "lowPriority", Status: StatusPending, Priority: 5, Deadline: deadline},
	}
	snap := buildSnapshot(tasks, nil)

	got := ids(readyTasks(snap))
	want := []string{"urgent", "relaxed", "noDeadline", "lowPriority"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestFindReadyTasks_MaxTasks(t *testing.T) {
	tasks := []*Task{task("A", StatusPending, 1), task("B", StatusPending, 2)}
	s := New(&fakeExecutor{results: taskResults(tasks, nil)})

	ready, err := s.FindReadyTasks(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ready) != 1 || ready[0].ID != "A" {
		t.Errorf("expected [A], got %v", ids(ready))
	}

	_, err = s.FindReadyTasks(context.Background(), -1)
	var vErr *graph.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestFindReadyTasks_QueryFailureWrapped(t *testing.T) {
	s := New(&fakeExecutor{err: errors.New("socket closed")})
	_, err := s.FindReadyTasks(context.Background(), 0)
	var opErr *graph.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %v", err)
	}
}

func TestDetectCircularDependencies(t *testing.T) {
	tasks := []*Task{
		task("A", StatusPending, 1),
		task("B", StatusPending, 1),
		task("C", StatusPending, 1),
		task("D", StatusPending, 1),
	}
	deps := [][2]string{{"A", "B"}, {"B", "C"}, {"C", "A"}, {"D", "A"}}
	snap := buildSnapshot(tasks, deps)

	cycles := findCycles(snap)
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle after rotation dedup, got %v", cycles)
	}
	if !reflect.DeepEqual(cycles[0], []string{"A", "B", "C"}) {
		t.Errorf("expected canonical [A B C], got %v", cycles[0])
	}
}

func TestDetectCircularDependencies_DepthBound(t *testing.T) {
	// A cycle longer than MaxCycleDepth stays undetected by design.
	var tasks []*Task
	var deps [][2]string
	n := MaxCycleDepth + 2
	for i := 0; i < n; i++ {
		tasks = append(tasks, task(string(rune('a'+i)), StatusPending, 1))
	}
	for i := 0; i < n; i++ {
		deps = append(deps, [2]string{string(rune('a' + i)), string(rune('a' + (i+1)%n))})
	}
	snap := buildSnapshot(tasks, deps)

	if cycles := findCycles(snap); len(cycles) != 0 {
		t.Errorf("expected no cycles within depth bound, got %v", cycles)
	}
}

func TestDetectCircularDependencies_Acyclic(t *testing.T) {
	snap := buildSnapshot(
		[]*Task{task("A", StatusPending, 1), task("B", StatusPending, 1)},
		[][2]string{{"B", "A"}})
	if cycles := findCycles(snap); len(cycles) != 0 {
		t.Errorf("expected no cycles, got %v", cycles)
	}
}

func TestCalculateCriticalPath(t *testing.T) {
	tasks := []*Task{
		{ID: "end", Status: StatusPending, EstimatedDuration: 10},
		{ID: "mid1", Status: StatusPending, EstimatedDuration: 100},
		{ID: "mid2", Status: StatusPending, EstimatedDuration: 5},
		{ID: "start", Status: StatusPending, EstimatedDuration: 10},
	}
	// end depends on mid1 and mid2; both depend on start. The critical
	// (longest) chain goes through mid1.
	deps := [][2]string{{"end", "mid1"}, {"end", "mid2"}, {"mid1", "start"}, {"mid2", "start"}}
	snap := buildSnapshot(tasks, deps)

	cp := criticalPath(snap, "end", "start")
	if cp == nil {
		t.Fatal("expected a path")
	}
	if !reflect.DeepEqual(cp.TaskIDs, []string{"end", "mid1", "start"}) {
		t.Errorf("expected end-mid1-start, got %v", cp.TaskIDs)
	}
	if math.Abs(cp.TotalDuration-120) > 1e-9 {
		t.Errorf("expected duration 120, got %v", cp.TotalDuration)
	}
}

func TestCalculateCriticalPath_Errors(t *testing.T) {
	s := New(&fakeExecutor{results: taskResults([]*Task{task("A", StatusPending, 1)}, nil)})

	_, err := s.CalculateCriticalPath(context.Background(), "", "A")
	var vErr *graph.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	_, err = s.CalculateCriticalPath(context.Background(), "A", "missing")
	var opErr *graph.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %v", err)
	}
}

func TestLongestChain(t *testing.T) {
	tasks := []*Task{
		{ID: "a", Status: StatusPending, EstimatedDuration: 10},
		{ID: "b", Status: StatusPending, EstimatedDuration: 20},
		{ID: "c", Status: StatusPending, EstimatedDuration: 30},
	}
	// c -> b -> a is the only chain.
	snap := buildSnapshot(tasks, [][2]string{{"c", "b"}, {"b", "a"}})
	considered := map[string]bool{"a": true, "b": true, "c": true}

	if got := longestChain(snap, considered); math.Abs(got-60) > 1e-9 {
		t.Errorf("expected 60, got %v", got)
	}
}

func TestTaskView(t *testing.T) {
	tasks := []*Task{
		task("build", StatusCompleted, 1),
		task("deploy", StatusPending, 2),
		task("test", StatusFailed, 1),
	}
	deps := [][2]string{{"deploy", "test"}, {"test", "build"}}
	sched := New(&fakeExecutor{results: taskResults(tasks, deps)})

	view, prereqs, err := sched.TaskView(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := make([]string, len(view))
	for i, v := range view {
		got[i] = v.ID
	}
	if want := []string{"build", "deploy", "test"}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if !reflect.DeepEqual(prereqs["deploy"], []string{"test"}) {
		t.Errorf("deploy prereqs = %v", prereqs["deploy"])
	}
	if !reflect.DeepEqual(prereqs["test"], []string{"build"}) {
		t.Errorf("test prereqs = %v", prereqs["test"])
	}
}

func TestTaskView_QueryFailureWrapped(t *testing.T) {
	sched := New(&fakeExecutor{err: errors.New("down")})
	if _, _, err := sched.TaskView(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
