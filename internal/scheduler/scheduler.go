// Package scheduler decides which tasks can run now, in what order, and
// whether running them is safe given dependency and resource constraints.
// Every pass rebuilds its view from a fresh graph snapshot; the scheduler
// holds no state between calls and provides no mutual exclusion across
// concurrent passes.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/plusplusoneplusplus/taskgraph/internal/graph"
)

// Task statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// DefaultPriority applies when a task has no priority property. Lower is
// more urgent.
const DefaultPriority = 10

// MaxCycleDepth bounds the circular-dependency search.
const MaxCycleDepth = 10

// Snapshot projection queries. Tests key canned results on these.
const (
	QueryTasks         = "MATCH (t:`Task`) RETURN t.id AS id, properties(t) AS properties"
	QueryDependencies  = "MATCH (a:`Task`)-[:`DEPENDS_ON`]->(b:`Task`) RETURN a.id AS source, b.id AS target"
	QueryResources     = "MATCH (r:`Resource`) RETURN r.id AS id, properties(r) AS properties"
	QueryResourceLinks = "MATCH (t:`Task`)-[e:`REQUIRES`|`CAN_USE`]->(r:`Resource`) RETURN t.id AS task, r.id AS resource, type(e) AS type"
)

// Task is the scheduling view of a Task node.
type Task struct {
	ID                string         `json:"id"`
	Status            string         `json:"status"`
	Priority          int            `json:"priority"`
	EstimatedDuration float64        `json:"estimated_duration"`
	Deadline          time.Time      `json:"deadline,omitzero"`
	Command           string         `json:"command,omitempty"`
	CPUCores          float64        `json:"cpu_cores,omitempty"`
	MemoryGB          float64        `json:"memory_gb,omitempty"`
	Properties        map[string]any `json:"-"`
}

// HasDeadline reports whether the task carries a deadline.
func (t *Task) HasDeadline() bool { return !t.Deadline.IsZero() }

// Resource is the scheduling view of a Resource node.
type Resource struct {
	ID       string  `json:"id"`
	CPUCores float64 `json:"cpu_cores"`
	MemoryGB float64 `json:"memory_gb"`
	Status   string  `json:"status"`
}

// snapshot is one pass's view of the task graph.
type snapshot struct {
	tasks      map[string]*Task
	order      []string            // task IDs in fetch order, for stable iteration
	prereqs    map[string][]string // task -> prerequisites (DEPENDS_ON targets)
	dependents map[string][]string // prerequisite -> tasks depending on it
}

// Scheduler computes scheduling decisions over graph snapshots.
type Scheduler struct {
	exec graph.QueryExecutor
	now  func() time.Time
}

// New creates a Scheduler over the executor.
func New(exec graph.QueryExecutor) *Scheduler {
	return &Scheduler{exec: exec, now: time.Now}
}

func (s *Scheduler) fetchSnapshot(ctx context.Context) (*snapshot, error) {
	res, err := s.exec.Execute(ctx, QueryTasks, nil)
	if err != nil {
		return nil, graph.WrapOperationError("fetch tasks", err)
	}
	snap := &snapshot{
		tasks:      make(map[string]*Task, len(res.Records)),
		prereqs:    make(map[string][]string),
		dependents: make(map[string][]string),
	}
	for _, rec := range res.Records {
		props, _ := rec["properties"].(map[string]any)
		task := taskFromProperties(rec.StringValue("id"), props)
		if task.ID == "" {
			continue
		}
		snap.tasks[task.ID] = task
		snap.order = append(snap.order, task.ID)
	}
	sort.Strings(snap.order)

	deps, err := s.exec.Execute(ctx, QueryDependencies, nil)
	if err != nil {
		return nil, graph.WrapOperationError("fetch dependencies", err)
	}
	for _, rec := range deps.Records {
		from := rec.StringValue("source")
		to := rec.StringValue("target")
		if from == "" || to == "" {
			continue
		}
		snap.prereqs[from] = append(snap.prereqs[from], to)
		snap.dependents[to] = append(snap.dependents[to], from)
	}
	for _, list := range snap.prereqs {
		sort.Strings(list)
	}
	for _, list := range snap.dependents {
		sort.Strings(list)
	}
	return snap, nil
}

func taskFromProperties(id string, props map[string]any) *Task {
	task := &Task{
		ID:         id,
		Status:     StatusPending,
		Priority:   DefaultPriority,
		Properties: props,
	}
	if s, ok := props["status"].(string); ok && s != "" {
		task.Status = s
	}
	if v, ok := floatProp(props, "priority"); ok {
		task.Priority = int(v)
	}
	if v, ok := floatProp(props, "estimated_duration"); ok {
		task.EstimatedDuration = v
	}
	if s, ok := props["deadline"].(string); ok && s != "" {
		if d, err := time.Parse(time.RFC3339, s); err == nil {
			task.Deadline = d
		}
	}
	if s, ok := props["command"].(string); ok {
		task.Command = s
	}
	if v, ok := floatProp(props, "cpu_cores"); ok {
		task.CPUCores = v
	}
	if v, ok := floatProp(props, "memory_gb"); ok {
		task.MemoryGB = v
	}
	return task
}

func floatProp(props map[string]any, key string) (float64, bool) {
	switch v := props[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// FindReadyTasks returns pending tasks whose every prerequisite is
// completed, ordered by priority ascending then deadline ascending (tasks
// without a deadline last) with the task ID as the final tie-break. maxTasks
// limits the result; 0 means no limit, negative is invalid.
func (s *Scheduler) FindReadyTasks(ctx context.Context, maxTasks int) ([]*Task, error) {
	if maxTasks < 0 {
		return nil, graph.NewValidationError("max_tasks", "must be positive")
	}
	snap, err := s.fetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	ready := readyTasks(snap)
	if maxTasks > 0 && len(ready) > maxTasks {
		ready = ready[:maxTasks]
	}
	return ready, nil
}

// TaskView returns every task and its prerequisite list from a fresh
// snapshot, for read-only consumers such as the triage UI.
func (s *Scheduler) TaskView(ctx context.Context) ([]Task, map[string][]string, error) {
	snap, err := s.fetchSnapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	tasks := make([]Task, 0, len(snap.order))
	for _, id := range snap.order {
		tasks = append(tasks, *snap.tasks[id])
	}
	prereqs := make(map[string][]string, len(snap.prereqs))
	for id, list := range snap.prereqs {
		prereqs[id] = append([]string(nil), list...)
	}
	return tasks, prereqs, nil
}

// readyTasks is the pure readiness computation over a snapshot.
func readyTasks(snap *snapshot) []*Task {
	var ready []*Task
	for _, id := range snap.order {
		task := snap.tasks[id]
		if task.Status != StatusPending {
			continue
		}
		blocked := false
		for _, prereq := range snap.prereqs[id] {
			p, ok := snap.tasks[prereq]
			if !ok || p.Status != StatusCompleted {
				blocked = true
				break
			}
		}
		if !blocked {
			ready = append(ready, task)
		}
	}
	sortByUrgency(ready)
	return ready
}

// sortByUrgency orders by priority asc, deadline asc (missing last), ID asc.
func sortByUrgency(tasks []*Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		switch {
		case a.HasDeadline() && !b.HasDeadline():
			return true
		case !a.HasDeadline() && b.HasDeadline():
			return false
		case a.HasDeadline() && b.HasDeadline() && !a.Deadline.Equal(b.Deadline):
			return a.Deadline.Before(b.Deadline)
		}
		return a.ID < b.ID
	})
}

// DetectCircularDependencies searches for DEPENDS_ON paths from a task back
// to itself, bounded at MaxCycleDepth hops. Each cycle is returned as a task
// ID sequence with the duplicated start removed, deduplicated by canonical
// rotation.
func (s *Scheduler) DetectCircularDependencies(ctx context.Context) ([][]string, error) {
	snap, err := s.fetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return findCycles(snap), nil
}

func findCycles(snap *snapshot) [][]string {
	seen := make(map[string]bool)
	var cycles [][]string

	for _, start := range snap.order {
		onPath := map[string]bool{start: true}
		path := []string{start}
		var dfs func(cur string)
		dfs = func(cur string) {
			for _, next := range snap.prereqs[cur] {
				if next == start {
					key := graph.CycleKey(path)
					if !seen[key] {
						seen[key] = true
						cycles = append(cycles, graph.CanonicalCycle(path))
					}
					continue
				}
				if onPath[next] || len(path) >= MaxCycleDepth {
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
	return cycles
}

// CriticalPath is the dependency chain with the greatest summed estimated
// duration between two tasks.
type CriticalPath struct {
	TaskIDs       []string `json:"task_ids"`
	TotalDuration float64  `json:"total_duration"`
}

// CalculateCriticalPath finds the DEPENDS_ON path from start to end that
// maximizes the summed estimated_duration over its tasks. Critical means
// longest: the bottleneck chain.
func (s *Scheduler) CalculateCriticalPath(ctx context.Context, start, end string) (*CriticalPath, error) {
	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)
	if start == "" || end == "" {
		return nil, graph.NewValidationError("start/end", "must not be empty")
	}
	snap, err := s.fetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := snap.tasks[start]; !ok {
		return nil, graph.NewOperationError("critical path", fmt.Sprintf("task not found: %s", start))
	}
	if _, ok := snap.tasks[end]; !ok {
		return nil, graph.NewOperationError("critical path", fmt.Sprintf("task not found: %s", end))
	}
	cp := criticalPath(snap, start, end)
	if cp == nil {
		return nil, graph.NewOperationError("critical path", fmt.Sprintf("no dependency path from %s to %s", start, end))
	}
	return cp, nil
}

func criticalPath(snap *snapshot, start, end string) *CriticalPath {
	var best *CriticalPath
	onPath := map[string]bool{start: true}
	path := []string{start}
	total := snap.tasks[start].EstimatedDuration

	var dfs func(cur string)
	dfs = func(cur string) {
		if cur == end {
			if best == nil || total > best.TotalDuration {
				best = &CriticalPath{
					TaskIDs:       append([]string(nil), path...),
					TotalDuration: total,
				}
			}
			return
		}
		for _, next := range snap.prereqs[cur] {
			t, ok := snap.tasks[next]
			if !ok || onPath[next] {
				continue
			}
			onPath[next] = true
			path = append(path, next)
			total += t.EstimatedDuration
			dfs(next)
			total -= t.EstimatedDuration
			path = path[:len(path)-1]
			onPath[next] = false
		}
	}
	dfs(start)
	return best
}
