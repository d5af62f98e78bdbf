package scheduler

import (
	"context"
	"sort"
	"time"
)

// ScheduledTask is one entry of an execution order recommendation.
type ScheduledTask struct {
	Task *Task `json:"task"`
	// SchedulingScore grows with urgency: priority contributes a fixed
	// weight, and a deadline adds the inverse of the hours remaining,
	// spiking as the deadline nears and capped once it has passed. Omitted
	// (zero urgency contribution) when the task has no deadline.
	SchedulingScore float64 `json:"scheduling_score"`
}

const (
	priorityScoreBase = 100.0
	overdueUrgency    = 1000.0
)

// ExecutionOrder returns the ready tasks in recommended dispatch order.
// Ordering composes priority ascending, then deadline ascending with a
// far-future sentinel for missing deadlines, then estimated duration
// ascending as the final tie-break. Flags drop the corresponding key.
// considerResources additionally demotes tasks involved in a resource
// conflict behind conflict-free ones of equal standing.
func (s *Scheduler) ExecutionOrder(ctx context.Context, considerPriority, considerDeadlines, considerResources bool) ([]ScheduledTask, error) {
	snap, err := s.fetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	ready := readyTasks(snap)

	conflicted := make(map[string]bool)
	if considerResources {
		resources, links, err := s.fetchResources(ctx)
		if err != nil {
			return nil, err
		}
		for _, c := range resourceConflicts(snap, resources, links) {
			conflicted[c.TaskA] = true
			conflicted[c.TaskB] = true
		}
	}

	orderTasks(ready, considerPriority, considerDeadlines, conflicted)

	now := s.now()
	out := make([]ScheduledTask, 0, len(ready))
	for _, t := range ready {
		out = append(out, ScheduledTask{Task: t, SchedulingScore: schedulingScore(t, now)})
	}
	return out, nil
}

// sentinel deadline for tasks without one; sorts after any real deadline.
var farFuture = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)

func orderTasks(tasks []*Task, considerPriority, considerDeadlines bool, conflicted map[string]bool) {
	deadlineOf := func(t *Task) time.Time {
		if t.HasDeadline() {
			return t.Deadline
		}
		return farFuture
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if considerPriority && a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if considerDeadlines {
			da, db := deadlineOf(a), deadlineOf(b)
			if !da.Equal(db) {
				return da.Before(db)
			}
		}
		if conflicted[a.ID] != conflicted[b.ID] {
			return !conflicted[a.ID]
		}
		if a.EstimatedDuration != b.EstimatedDuration {
			return a.EstimatedDuration < b.EstimatedDuration
		}
		return a.ID < b.ID
	})
}

// schedulingScore derives a numeric urgency: higher means dispatch sooner.
func schedulingScore(t *Task, now time.Time) float64 {
	score := priorityScoreBase - float64(t.Priority)
	if !t.HasDeadline() {
		return score
	}
	hoursLeft := t.Deadline.Sub(now).Hours()
	if hoursLeft <= 0 {
		return score + overdueUrgency
	}
	urgency := 1.0 / hoursLeft
	if urgency > overdueUrgency {
		urgency = overdueUrgency
	}
	return score + urgency
}

// CompletionEstimate compares the sequential, dependency-bound, and
// parallel-group timings for a task set.
type CompletionEstimate struct {
	CriticalPathDuration float64 `json:"critical_path_duration"`
	SequentialDuration   float64 `json:"sequential_duration"`
	ParallelDuration     float64 `json:"parallel_duration"`
	// EstimatedDuration is the realistic estimate: the dependency chain and
	// the parallel schedule both lower-bound completion, so the max wins.
	EstimatedDuration  float64 `json:"estimated_duration"`
	ParallelEfficiency float64 `json:"parallel_efficiency"`
}

// EstimateCompletionTime estimates completion for the given tasks (all
// not-yet-completed tasks when empty): longest dependency chain, naive
// sequential sum, and parallel-groups duration (sum of each group's longest
// member).
func (s *Scheduler) EstimateCompletionTime(ctx context.Context, taskIDs ...string) (*CompletionEstimate, error) {
	snap, err := s.fetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	resources, links, err := s.fetchResources(ctx)
	if err != nil {
		return nil, err
	}

	considered := make(map[string]bool)
	if len(taskIDs) > 0 {
		for _, id := range taskIDs {
			considered[id] = true
		}
	} else {
		for id, t := range snap.tasks {
			if t.Status != StatusCompleted {
				considered[id] = true
			}
		}
	}

	estimate := &CompletionEstimate{}
	for id := range considered {
		if t, ok := snap.tasks[id]; ok {
			estimate.SequentialDuration += t.EstimatedDuration
		}
	}
	estimate.CriticalPathDuration = longestChain(snap, considered)

	ready := readyTasks(snap)
	conflicts := resourceConflicts(snap, resources, links)
	for _, group := range parallelGroups(ready, conflicts) {
		longest := 0.0
		for _, id := range group {
			if t, ok := snap.tasks[id]; ok && considered[id] && t.EstimatedDuration > longest {
				longest = t.EstimatedDuration
			}
		}
		estimate.ParallelDuration += longest
	}

	estimate.EstimatedDuration = estimate.CriticalPathDuration
	if estimate.ParallelDuration > estimate.EstimatedDuration {
		estimate.EstimatedDuration = estimate.ParallelDuration
	}
	if estimate.ParallelDuration > 0 {
		estimate.ParallelEfficiency = estimate.SequentialDuration / estimate.ParallelDuration
	}
	return estimate, nil
}

// longestChain returns the heaviest dependency chain weight within the
// considered set, memoized per task.
func longestChain(snap *snapshot, considered map[string]bool) float64 {
	memo := make(map[string]float64, len(snap.tasks))
	onPath := make(map[string]bool)

	var chain func(id string) float64
	chain = func(id string) float64 {
		if v, ok := memo[id]; ok {
			return v
		}
		if onPath[id] {
			// Cycle guard; cycles are reported by DetectCircularDependencies.
			return 0
		}
		onPath[id] = true
		best := 0.0
		for _, prereq := range snap.prereqs[id] {
			if !considered[prereq] {
				continue
			}
			if v := chain(prereq); v > best {
				best = v
			}
		}
		onPath[id] = false
		total := best
		if t, ok := snap.tasks[id]; ok {
			total += t.EstimatedDuration
		}
		memo[id] = total
		return total
	}

	longest := 0.0
	for id := range considered {
		if _, ok := snap.tasks[id]; !ok {
			continue
		}
		if v := chain(id); v > longest {
			longest = v
		}
	}
	return longest
}
