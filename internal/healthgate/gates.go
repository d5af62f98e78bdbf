package healthgate

import (
	"fmt"
	"strings"
)

// HealthScoreGate checks that the scheduler health score meets a threshold.
type HealthScoreGate struct {
	MinScore float64 // 0-100
	severity GateSeverity
}

func NewHealthScoreGate(minScore float64, severity GateSeverity) *HealthScoreGate {
	return &HealthScoreGate{MinScore: minScore, severity: severity}
}

func (g *HealthScoreGate) Name() string           { return "health-score" }
func (g *HealthScoreGate) Severity() GateSeverity { return g.severity }
func (g *HealthScoreGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{
		Name:      g.Name(),
		Severity:  g.severity,
		Score:     ctx.HealthScore / 100,
		Threshold: g.MinScore / 100,
	}
	if ctx.HealthScore >= g.MinScore {
		r.Status = GatePassed
		r.Message = fmt.Sprintf("Health score %.1f meets threshold %.1f", ctx.HealthScore, g.MinScore)
	} else {
		r.Status = GateFailed
		r.Message = fmt.Sprintf("Health score %.1f below threshold %.1f", ctx.HealthScore, g.MinScore)
	}
	return r, nil
}

// CycleGate checks that the dependency graph is acyclic.
type CycleGate struct {
	severity GateSeverity
}

func NewCycleGate(severity GateSeverity) *CycleGate {
	return &CycleGate{severity: severity}
}

func (g *CycleGate) Name() string           { return "cycles" }
func (g *CycleGate) Severity() GateSeverity { return g.severity }
func (g *CycleGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{
		Name:     g.Name(),
		Severity: g.severity,
	}
	if len(ctx.Cycles) == 0 {
		r.Status = GatePassed
		r.Score = 1.0
		r.Message = "Dependency graph is acyclic"
		return r, nil
	}

	r.Status = GateFailed
	r.Score = 0.0
	r.Message = fmt.Sprintf("Found %d dependency cycles", len(ctx.Cycles))
	for _, cycle := range ctx.Cycles {
		r.Details = append(r.Details, strings.Join(cycle, " -> "))
	}
	return r, nil
}

// FailureGate checks that the failed-task ratio stays within bounds.
type FailureGate struct {
	MaxFailRate float64 // failed / total, 0-1
	severity    GateSeverity
}

func NewFailureGate(maxFailRate float64, severity GateSeverity) *FailureGate {
	return &FailureGate{MaxFailRate: maxFailRate, severity: severity}
}

func (g *FailureGate) Name() string           { return "failures" }
func (g *FailureGate) Severity() GateSeverity { return g.severity }
func (g *FailureGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{
		Name:      g.Name(),
		Severity:  g.severity,
		Threshold: g.MaxFailRate,
	}

	if ctx.TotalTasks == 0 {
		r.Status = GateSkipped
		r.Message = "No tasks to evaluate"
		return r, nil
	}

	failed := ctx.StatusCounts["failed"]
	failRate := float64(failed) / float64(ctx.TotalTasks)
	r.Score = 1 - failRate

	if failRate <= g.MaxFailRate {
		r.Status = GatePassed
		r.Message = fmt.Sprintf("Failure rate %.1f%% within threshold %.1f%%",
			failRate*100, g.MaxFailRate*100)
	} else {
		r.Status = GateFailed
		r.Message = fmt.Sprintf("Failure rate %.1f%% exceeds threshold %.1f%% (%d/%d failed)",
			failRate*100, g.MaxFailRate*100, failed, ctx.TotalTasks)
	}
	return r, nil
}

// DeadlineGate checks overdue and at-risk task counts.
type DeadlineGate struct {
	MaxOverdue int
	severity   GateSeverity
}

func NewDeadlineGate(maxOverdue int, severity GateSeverity) *DeadlineGate {
	return &DeadlineGate{MaxOverdue: maxOverdue, severity: severity}
}

func (g *DeadlineGate) Name() string           { return "deadlines" }
func (g *DeadlineGate) Severity() GateSeverity { return g.severity }
func (g *DeadlineGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{
		Name:     g.Name(),
		Severity: g.severity,
	}

	if ctx.OverdueTasks <= g.MaxOverdue {
		r.Status = GatePassed
		r.Score = 1.0
		r.Message = fmt.Sprintf("%d overdue tasks within limit %d", ctx.OverdueTasks, g.MaxOverdue)
		if ctx.AtRiskTasks > 0 {
			r.Status = GateWarning
			r.Message += fmt.Sprintf(", %d tasks at risk", ctx.AtRiskTasks)
		}
	} else {
		r.Status = GateFailed
		r.Score = 0.0
		r.Message = fmt.Sprintf("%d overdue tasks exceed limit %d", ctx.OverdueTasks, g.MaxOverdue)
	}
	return r, nil
}

// ConflictGate checks resource contention between pending tasks.
type ConflictGate struct {
	MaxConflicts int
	severity     GateSeverity
}

func NewConflictGate(maxConflicts int, severity GateSeverity) *ConflictGate {
	return &ConflictGate{MaxConflicts: maxConflicts, severity: severity}
}

func (g *ConflictGate) Name() string           { return "conflicts" }
func (g *ConflictGate) Severity() GateSeverity { return g.severity }
func (g *ConflictGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{
		Name:     g.Name(),
		Severity: g.severity,
	}
	if ctx.ResourceConflicts <= g.MaxConflicts {
		r.Status = GatePassed
		r.Score = 1.0
		r.Message = fmt.Sprintf("%d resource conflicts within limit %d", ctx.ResourceConflicts, g.MaxConflicts)
	} else {
		r.Status = GateFailed
		r.Score = 0.0
		r.Message = fmt.Sprintf("%d resource conflicts exceed limit %d", ctx.ResourceConflicts, g.MaxConflicts)
	}
	return r, nil
}

// SyncGate checks executor/graph drift from the last reconciliation.
type SyncGate struct {
	severity GateSeverity
}

func NewSyncGate(severity GateSeverity) *SyncGate {
	return &SyncGate{severity: severity}
}

func (g *SyncGate) Name() string           { return "sync" }
func (g *SyncGate) Severity() GateSeverity { return g.severity }
func (g *SyncGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{
		Name:     g.Name(),
		Severity: g.severity,
	}

	if ctx.StaleTasks == 0 && ctx.OrphanedTokens == 0 {
		r.Status = GatePassed
		r.Score = 1.0
		r.Message = "Executor and graph are in sync"
		return r, nil
	}

	if ctx.StaleTasks > 0 {
		r.Status = GateFailed
		r.Score = 0.0
		r.Message = fmt.Sprintf("%d stale tasks, %d orphaned tokens", ctx.StaleTasks, ctx.OrphanedTokens)
		return r, nil
	}

	r.Status = GateWarning
	r.Score = 0.5
	r.Message = fmt.Sprintf("%d orphaned executor tokens", ctx.OrphanedTokens)
	return r, nil
}
