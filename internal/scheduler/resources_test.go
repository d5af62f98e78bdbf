package scheduler

import (
	"context"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/plusplusoneplusplus/taskgraph/internal/graph"
)

func resourceResults(resources []*Resource, links []resourceLink) map[string]*graph.QueryResult {
	resRes := &graph.QueryResult{}
	for _, r := range resources {
		resRes.Records = append(resRes.Records, graph.Record{
			"id": r.ID,
			"properties": map[string]any{
				"cpu_cores": r.CPUCores,
				"memory_gb": r.MemoryGB,
				"status":    r.Status,
			},
		})
	}
	linkRes := &graph.QueryResult{}
	for _, l := range links {
		linkRes.Records = append(linkRes.Records, graph.Record{
			"task": l.task, "resource": l.resource, "type": l.relType,
		})
	}
	return map[string]*graph.QueryResult{
		QueryResources:     resRes,
		QueryResourceLinks: linkRes,
	}
}

func merge(maps ...map[string]*graph.QueryResult) map[string]*graph.QueryResult {
	out := make(map[string]*graph.QueryResult)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

func TestCheckResourceConflicts_PairOverCapacity(t *testing.T) {
	tasks := []*Task{
		{ID: "A", Status: StatusPending, Priority: 1, CPUCores: 6, MemoryGB: 1},
		{ID: "B", Status: StatusPending, Priority: 1, CPUCores: 6, MemoryGB: 1},
	}
	resources := []*Resource{{ID: "node-1", CPUCores: 8, MemoryGB: 32}}
	links := []resourceLink{
		{task: "A", resource: "node-1", relType: graph.RelRequires},
		{task: "B", resource: "node-1", relType: graph.RelRequires},
	}
	s := New(&fakeExecutor{results: merge(taskResults(tasks, nil), resourceResults(resources, links))})

	conflicts, err := s.CheckResourceConflicts(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("expected exactly 1 conflict, got %v", conflicts)
	}
	c := conflicts[0]
	if c.ResourceID != "node-1" || c.TaskA != "A" || c.TaskB != "B" {
		t.Errorf("unexpected conflict: %+v", c)
	}
	if math.Abs(c.CPUNeeded-12) > 1e-9 || math.Abs(c.CPULimit-8) > 1e-9 {
		t.Errorf("expected cpu 12 over limit 8, got %+v", c)
	}
}

func TestCheckResourceConflicts_WithinCapacity(t *testing.T) {
	tasks := []*Task{
		{ID: "A", Status: StatusPending, Priority: 1, CPUCores: 3},
		{ID: "B", Status: StatusPending, Priority: 1, CPUCores: 3},
	}
	snap := buildSnapshot(tasks, nil)
	resources := map[string]*Resource{"node-1": {ID: "node-1", CPUCores: 8, MemoryGB: 32}}
	links := []resourceLink{
		{task: "A", resource: "node-1", relType: graph.RelRequires},
		{task: "B", resource: "node-1", relType: graph.RelCanUse},
	}

	if conflicts := resourceConflicts(snap, resources, links); len(conflicts) != 0 {
		t.Errorf("expected no conflicts, got %v", conflicts)
	}
}

func TestResourceConflicts_IgnoresNonPending(t *testing.T) {
	tasks := []*Task{
		{ID: "A", Status: StatusRunning, CPUCores: 6},
		{ID: "B", Status: StatusPending, CPUCores: 6},
	}
	snap := buildSnapshot(tasks, nil)
	resources := map[string]*Resource{"node-1": {ID: "node-1", CPUCores: 8}}
	links := []resourceLink{
		{task: "A", resource: "node-1", relType: graph.RelRequires},
		{task: "B", resource: "node-1", relType: graph.RelRequires},
	}

	if conflicts := resourceConflicts(snap, resources, links); len(conflicts) != 0 {
		t.Errorf("running tasks must not pair into conflicts, got %v", conflicts)
	}
}

func TestParallelGroups_Exclusivity(t *testing.T) {
	ready := []*Task{
		task("A", StatusPending, 1),
		task("B", StatusPending, 1),
		task("C", StatusPending, 1),
	}
	conflicts := []ResourceConflict{{ResourceID: "r", TaskA: "A", TaskB: "B"}}

	groups := parallelGroups(ready, conflicts)

	// Every ready task appears in exactly one group.
	count := make(map[string]int)
	for _, g := range groups {
		for _, id := range g {
			count[id]++
		}
	}
	for _, t2 := range ready {
		if count[t2.ID] != 1 {
			t.Errorf("task %s appears %d times", t2.ID, count[t2.ID])
		}
	}
	// No group contains a conflicting pair.
	for _, g := range groups {
		in := make(map[string]bool)
		for _, id := range g {
			in[id] = true
		}
		if in["A"] && in["B"] {
			t.Errorf("conflicting A and B co-placed: %v", groups)
		}
	}
}

func TestParallelGroups_SingletonWhenAllConflict(t *testing.T) {
	ready := []*Task{task("A", StatusPending, 1), task("B", StatusPending, 1)}
	conflicts := []ResourceConflict{{ResourceID: "r", TaskA: "A", TaskB: "B"}}

	groups := parallelGroups(ready, conflicts)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %v", groups)
	}
}

func TestPackTasks(t *testing.T) {
	ready := []*Task{
		{ID: "big", Status: StatusPending, CPUCores: 8, MemoryGB: 16},
		{ID: "small", Status: StatusPending, CPUCores: 1, MemoryGB: 1},
		{ID: "huge", Status: StatusPending, CPUCores: 64, MemoryGB: 256},
	}
	available := []*Resource{
		{ID: "node-small", CPUCores: 2, MemoryGB: 4},
		{ID: "node-big", CPUCores: 16, MemoryGB: 32},
	}

	schedule := packTasks(ready, available, 0)
	if len(schedule.Assignments) != 2 {
		t.Fatalf("expected 2 assignments, got %+v", schedule)
	}
	got := make(map[string]string)
	for _, a := range schedule.Assignments {
		got[a.TaskID] = a.ResourceID
	}
	// Smallest-first keeps the big node free for the big task.
	if got["small"] != "node-small" || got["big"] != "node-big" {
		t.Errorf("unexpected packing: %v", got)
	}
	if !reflect.DeepEqual(schedule.Unscheduled, []string{"huge"}) {
		t.Errorf("expected huge unscheduled, got %v", schedule.Unscheduled)
	}
}

func TestPackTasks_TimeWindow(t *testing.T) {
	ready := []*Task{
		{ID: "quick", Status: StatusPending, CPUCores: 1, EstimatedDuration: 60},
		{ID: "long", Status: StatusPending, CPUCores: 1, EstimatedDuration: 7200},
	}
	available := []*Resource{
		{ID: "node-a", CPUCores: 4, MemoryGB: 8},
		{ID: "node-b", CPUCores: 4, MemoryGB: 8},
	}

	schedule := packTasks(ready, available, time.Hour)
	if len(schedule.Assignments) != 1 || schedule.Assignments[0].TaskID != "quick" {
		t.Fatalf("expected only quick assigned, got %+v", schedule.Assignments)
	}
	if !reflect.DeepEqual(schedule.Unscheduled, []string{"long"}) {
		t.Errorf("expected long excluded by window, got %v", schedule.Unscheduled)
	}

	// The excluded task must not have consumed a resource.
	schedule = packTasks(ready, available, 0)
	if len(schedule.Assignments) != 2 {
		t.Errorf("zero window must not exclude, got %+v", schedule.Assignments)
	}
}

func TestPackTasks_ResourceConsumedWhole(t *testing.T) {
	ready := []*Task{
		{ID: "a", Status: StatusPending, CPUCores: 1},
		{ID: "b", Status: StatusPending, CPUCores: 1},
	}
	available := []*Resource{{ID: "only", CPUCores: 8, MemoryGB: 8}}

	schedule := packTasks(ready, available, 0)
	if len(schedule.Assignments) != 1 {
		t.Errorf("a resource must host one task per pass, got %+v", schedule)
	}
	if len(schedule.Unscheduled) != 1 {
		t.Errorf("expected one unscheduled task, got %v", schedule.Unscheduled)
	}
}

func TestExecutionOrder_ComposedKeys(t *testing.T) {
	soon := time.Now().Add(1 * time.Hour)
	tasks := []*Task{
		{ID: "slow", Status: StatusPending, Priority: 2, EstimatedDuration: 100},
		{ID: "fast", Status: StatusPending, Priority: 2, EstimatedDuration: 10},
		{ID: "deadline", Status: StatusPending, Priority: 2, EstimatedDuration: 50, Deadline: soon},
		{ID: "top", Status: StatusPending, Priority: 1, EstimatedDuration: 500},
	}
	s := New(&fakeExecutor{results: taskResults(tasks, nil)})

	order, err := s.ExecutionOrder(context.Background(), true, true, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := make([]string, len(order))
	for i, st := range order {
		got[i] = st.Task.ID
	}
	want := []string{"top", "deadline", "fast", "slow"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestSchedulingScore(t *testing.T) {
	now := time.Now()
	base := schedulingScore(&Task{ID: "a", Priority: 1}, now)
	near := schedulingScore(&Task{ID: "b", Priority: 1, Deadline: now.Add(time.Hour)}, now)
	far := schedulingScore(&Task{ID: "c", Priority: 1, Deadline: now.Add(100 * time.Hour)}, now)
	overdue := schedulingScore(&Task{ID: "d", Priority: 1, Deadline: now.Add(-time.Minute)}, now)

	if near <= far {
		t.Errorf("nearer deadline must score higher: near=%v far=%v", near, far)
	}
	if far <= base {
		t.Errorf("any deadline must add urgency: far=%v base=%v", far, base)
	}
	if overdue <= near {
		t.Errorf("overdue must dominate: overdue=%v near=%v", overdue, near)
	}
}

func TestEstimateCompletionTime(t *testing.T) {
	tasks := []*Task{
		{ID: "a", Status: StatusPending, Priority: 1, EstimatedDuration: 30},
		{ID: "b", Status: StatusPending, Priority: 1, EstimatedDuration: 20},
		{ID: "c", Status: StatusPending, Priority: 1, EstimatedDuration: 10},
	}
	// c depends on a; b independent.
	deps := [][2]string{{"c", "a"}}
	s := New(&fakeExecutor{results: merge(taskResults(tasks, deps), resourceResults(nil, nil))})

	est, err := s.EstimateCompletionTime(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(est.SequentialDuration-60) > 1e-9 {
		t.Errorf("expected sequential 60, got %v", est.SequentialDuration)
	}
	if math.Abs(est.CriticalPathDuration-40) > 1e-9 {
		t.Errorf("expected critical chain 40 (a then c), got %v", est.CriticalPathDuration)
	}
	if est.EstimatedDuration < est.CriticalPathDuration {
		t.Errorf("estimate %v must be at least the critical chain %v",
			est.EstimatedDuration, est.CriticalPathDuration)
	}
	if est.ParallelDuration > 0 && est.ParallelEfficiency <= 0 {
		t.Errorf("expected positive efficiency, got %v", est.ParallelEfficiency)
	}
}

func TestComputeMetrics_HealthBands(t *testing.T) {
	now := time.Now()

	healthy := buildSnapshot([]*Task{
		{ID: "a", Status: StatusCompleted},
		{ID: "b", Status: StatusPending},
	}, nil)
	m := computeMetrics(healthy, nil, now)
	if m.HealthBand != HealthExcellent {
		t.Errorf("expected excellent, got %s (score %d)", m.HealthBand, m.HealthScore)
	}
	if m.StatusCounts[StatusCompleted] != 1 || m.StatusCounts[StatusPending] != 1 {
		t.Errorf("unexpected status counts: %v", m.StatusCounts)
	}

	var overdueTasks []*Task
	for i := 0; i < 6; i++ {
		overdueTasks = append(overdueTasks, &Task{
			ID: string(rune('a' + i)), Status: StatusPending,
			Deadline: now.Add(-time.Hour),
		})
	}
	sick := buildSnapshot(overdueTasks, nil)
	m = computeMetrics(sick, nil, now)
	if m.OverdueTasks != 6 {
		t.Errorf("expected 6 overdue, got %d", m.OverdueTasks)
	}
	if m.HealthBand == HealthExcellent || m.HealthBand == HealthGood {
		t.Errorf("expected degraded band, got %s (score %d)", m.HealthBand, m.HealthScore)
	}
}

func TestComputeMetrics_DependencyDepth(t *testing.T) {
	tasks := []*Task{
		task("a", StatusPending, 1), task("b", StatusPending, 1),
		task("c", StatusPending, 1), task("d", StatusPending, 1),
	}
	deps := [][2]string{{"d", "c"}, {"c", "b"}, {"b", "a"}}
	m := computeMetrics(buildSnapshot(tasks, deps), nil, time.Now())
	if m.MaxDependencyDepth != 3 {
		t.Errorf("expected max depth 3, got %d", m.MaxDependencyDepth)
	}
	if m.AvgDependencyDepth <= 0 {
		t.Errorf("expected positive average depth, got %v", m.AvgDependencyDepth)
	}
}

func TestHealthBanding(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{95, HealthExcellent}, {90, HealthExcellent},
		{89, HealthGood}, {70, HealthGood},
		{69, HealthFair}, {50, HealthFair},
		{49, HealthPoor}, {0, HealthPoor},
	}
	for _, tc := range cases {
		if got := healthBand(tc.score); got != tc.want {
			t.Errorf("band(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}
