package scheduler

import (
	"context"
	"time"
)

// Health bands.
const (
	HealthExcellent = "excellent"
	HealthGood      = "good"
	HealthFair      = "fair"
	HealthPoor      = "poor"
)

// AtRiskWindow is how close a deadline may be before a pending task counts
// as at risk.
const AtRiskWindow = 24 * time.Hour

// Metrics aggregates the scheduling health of the task graph.
type Metrics struct {
	StatusCounts map[string]int `json:"status_counts"`

	MaxDependencyDepth int     `json:"max_dependency_depth"`
	AvgDependencyDepth float64 `json:"avg_dependency_depth"`

	ResourceConflicts int `json:"resource_conflicts"`

	OverdueTasks int `json:"overdue_tasks"`
	AtRiskTasks  int `json:"at_risk_tasks"`

	HealthScore int    `json:"health_score"`
	HealthBand  string `json:"health_band"`
}

// SchedulingMetrics reduces the task graph to a 0-100 health score with
// deductions for overdue tasks, pending backlog, resource contention, and
// deep dependency chains.
func (s *Scheduler) SchedulingMetrics(ctx context.Context) (*Metrics, error) {
	snap, err := s.fetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	resources, links, err := s.fetchResources(ctx)
	if err != nil {
		return nil, err
	}
	conflicts := resourceConflicts(snap, resources, links)
	return computeMetrics(snap, conflicts, s.now()), nil
}

func computeMetrics(snap *snapshot, conflicts []ResourceConflict, now time.Time) *Metrics {
	m := &Metrics{
		StatusCounts:      make(map[string]int),
		ResourceConflicts: len(conflicts),
	}

	depthTotal := 0
	for _, id := range snap.order {
		task := snap.tasks[id]
		m.StatusCounts[task.Status]++

		d := dependencyDepth(snap, id, make(map[string]bool))
		depthTotal += d
		if d > m.MaxDependencyDepth {
			m.MaxDependencyDepth = d
		}

		if task.Status == StatusPending || task.Status == StatusRunning {
			if task.HasDeadline() {
				switch {
				case task.Deadline.Before(now):
					m.OverdueTasks++
				case task.Deadline.Sub(now) <= AtRiskWindow:
					m.AtRiskTasks++
				}
			}
		}
	}
	if len(snap.order) > 0 {
		m.AvgDependencyDepth = float64(depthTotal) / float64(len(snap.order))
	}

	m.HealthScore = healthScore(m)
	m.HealthBand = healthBand(m.HealthScore)
	return m
}

// dependencyDepth is the longest prerequisite chain below a task.
func dependencyDepth(snap *snapshot, id string, onPath map[string]bool) int {
	if onPath[id] {
		return 0
	}
	onPath[id] = true
	defer delete(onPath, id)

	deepest := 0
	for _, prereq := range snap.prereqs[id] {
		if d := dependencyDepth(snap, prereq, onPath) + 1; d > deepest {
			deepest = d
		}
	}
	return deepest
}

const (
	overduePenalty    = 10
	backlogThreshold  = 20
	backlogPenalty    = 1
	conflictPenalty   = 5
	deepChainDepth    = 5
	deepChainPenalty  = 3
	maxBacklogPenalty = 20
)

func healthScore(m *Metrics) int {
	score := 100

	score -= m.OverdueTasks * overduePenalty
	score -= m.AtRiskTasks * 2

	if backlog := m.StatusCounts[StatusPending]; backlog > backlogThreshold {
		penalty := (backlog - backlogThreshold) * backlogPenalty
		if penalty > maxBacklogPenalty {
			penalty = maxBacklogPenalty
		}
		score -= penalty
	}

	score -= m.ResourceConflicts * conflictPenalty

	if m.MaxDependencyDepth > deepChainDepth {
		score -= (m.MaxDependencyDepth - deepChainDepth) * deepChainPenalty
	}

	if score < 0 {
		score = 0
	}
	return score
}

func healthBand(score int) string {
	switch {
	case score >= 90:
		return HealthExcellent
	case score >= 70:
		return HealthGood
	case score >= 50:
		return HealthFair
	default:
		return HealthPoor
	}
}
