package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/plusplusoneplusplus/taskgraph/internal/scheduler"
)

// TriageDecision represents the operator's decision for a stuck task
type TriageDecision int

const (
	DecisionPending TriageDecision = iota
	DecisionRetry
	DecisionSkip
	DecisionEscalated
)

// String returns the string representation of TriageDecision
func (d TriageDecision) String() string {
	switch d {
	case DecisionPending:
		return "pending"
	case DecisionRetry:
		return "retry"
	case DecisionSkip:
		return "skip"
	case DecisionEscalated:
		return "escalated"
	default:
		return "unknown"
	}
}

// TriageItem represents a single failed or blocked task to triage
type TriageItem struct {
	TaskID        string
	Status        string // task lifecycle status
	Priority      int
	Deadline      time.Time
	Error         string
	Prerequisites []string
	Dependents    []string // tasks directly blocked by this one
	BlockedCount  int      // total downstream tasks affected
	Detail        string   // rendered task properties
	Impact        string   // rendered downstream impact
	Note          string   // operator note attached to the decision
	Decision      TriageDecision
}

// TriageSession holds all items for a triage pass
type TriageSession struct {
	Items       []*TriageItem
	GraphName   string
	HealthScore float64 // 0-100
	CreatedAt   time.Time
}

// NewTriageSession builds a session from the scheduling view of the graph.
// It picks up failed tasks and pending tasks whose prerequisites failed;
// healthy tasks are not triage candidates.
func NewTriageSession(graphName string, healthScore float64, tasks []scheduler.Task, prereqs map[string][]string) *TriageSession {
	session := &TriageSession{
		Items:       make([]*TriageItem, 0),
		GraphName:   graphName,
		HealthScore: healthScore,
		CreatedAt:   time.Now(),
	}

	byID := make(map[string]*scheduler.Task, len(tasks))
	for i := range tasks {
		byID[tasks[i].ID] = &tasks[i]
	}

	dependents := make(map[string][]string)
	for task, pres := range prereqs {
		for _, pre := range pres {
			dependents[pre] = append(dependents[pre], task)
		}
	}

	for i := range tasks {
		task := &tasks[i]
		if !needsTriage(task, prereqs, byID) {
			continue
		}

		item := &TriageItem{
			TaskID:        task.ID,
			Status:        task.Status,
			Priority:      task.Priority,
			Deadline:      task.Deadline,
			Prerequisites: append([]string(nil), prereqs[task.ID]...),
			Dependents:    append([]string(nil), dependents[task.ID]...),
			Decision:      DecisionPending,
		}
		if msg, ok := task.Properties["error"].(string); ok {
			item.Error = msg
		}
		sort.Strings(item.Prerequisites)
		sort.Strings(item.Dependents)
		item.BlockedCount = countDownstream(task.ID, dependents)
		item.Detail = renderTaskDetail(task)
		item.Impact = renderImpact(item, byID)

		session.Items = append(session.Items, item)
	}

	// Failed tasks first, then by priority (lower is more urgent).
	sort.SliceStable(session.Items, func(i, j int) bool {
		a, b := session.Items[i], session.Items[j]
		if (a.Status == scheduler.StatusFailed) != (b.Status == scheduler.StatusFailed) {
			return a.Status == scheduler.StatusFailed
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.TaskID < b.TaskID
	})

	return session
}

// needsTriage reports whether a task is stuck: it failed, or it is pending
// behind a failed prerequisite.
func needsTriage(task *scheduler.Task, prereqs map[string][]string, byID map[string]*scheduler.Task) bool {
	if task.Status == scheduler.StatusFailed {
		return true
	}
	if task.Status != scheduler.StatusPending {
		return false
	}
	for _, pre := range prereqs[task.ID] {
		if dep, ok := byID[pre]; ok && dep.Status == scheduler.StatusFailed {
			return true
		}
	}
	return false
}

// countDownstream counts the distinct tasks transitively blocked by id.
func countDownstream(id string, dependents map[string][]string) int {
	seen := map[string]bool{id: true}
	queue := append([]string(nil), dependents[id]...)
	count := 0
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next] {
			continue
		}
		seen[next] = true
		count++
		queue = append(queue, dependents[next]...)
	}
	return count
}

// renderTaskDetail formats the task's scheduling view for the left panel
func renderTaskDetail(task *scheduler.Task) string {
	var b strings.Builder

	fmt.Fprintf(&b, "id: %s\n", task.ID)
	fmt.Fprintf(&b, "status: %s\n", task.Status)
	fmt.Fprintf(&b, "priority: %d\n", task.Priority)
	if task.EstimatedDuration > 0 {
		fmt.Fprintf(&b, "estimated_duration: %.1fh\n", task.EstimatedDuration)
	}
	if task.HasDeadline() {
		fmt.Fprintf(&b, "deadline: %s\n", task.Deadline.Format(time.RFC3339))
	}
	if task.Command != "" {
		fmt.Fprintf(&b, "command: %s\n", task.Command)
	}
	if task.CPUCores > 0 {
		fmt.Fprintf(&b, "cpu_cores: %.1f\n", task.CPUCores)
	}
	if task.MemoryGB > 0 {
		fmt.Fprintf(&b, "memory_gb: %.1f\n", task.MemoryGB)
	}

	extra := make([]string, 0, len(task.Properties))
	for key := range task.Properties {
		switch key {
		case "id", "status", "priority", "estimated_duration", "deadline",
			"command", "cpu_cores", "memory_gb":
			continue
		}
		extra = append(extra, key)
	}
	sort.Strings(extra)
	for _, key := range extra {
		fmt.Fprintf(&b, "%s: %v\n", key, task.Properties[key])
	}

	return b.String()
}

// renderImpact formats the downstream consequences for the right panel
func renderImpact(item *TriageItem, byID map[string]*scheduler.Task) string {
	var b strings.Builder

	if item.Error != "" {
		fmt.Fprintf(&b, "error: %s\n\n", item.Error)
	}

	if len(item.Prerequisites) > 0 {
		b.WriteString("waiting on:\n")
		for _, pre := range item.Prerequisites {
			status := "unknown"
			if dep, ok := byID[pre]; ok {
				status = dep.Status
			}
			fmt.Fprintf(&b, "  %s [%s]\n", pre, status)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "blocks %d downstream task(s)\n", item.BlockedCount)
	for _, dep := range item.Dependents {
		fmt.Fprintf(&b, "  %s\n", dep)
	}

	return b.String()
}
