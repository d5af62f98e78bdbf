package healthgate

import (
	"errors"
	"strings"
	"testing"
)

func healthyContext() *EvalContext {
	return &EvalContext{
		HealthScore: 90,
		TotalTasks:  10,
		ReadyTasks:  3,
		StatusCounts: map[string]int{
			"pending":   5,
			"running":   2,
			"completed": 3,
		},
	}
}

func TestHealthScoreGate(t *testing.T) {
	gate := NewHealthScoreGate(50, SeverityRequired)

	r, err := gate.Evaluate(healthyContext())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if r.Status != GatePassed {
		t.Fatalf("expected passed, got %s: %s", r.Status, r.Message)
	}
	if r.Score != 0.9 {
		t.Fatalf("expected normalized score 0.9, got %f", r.Score)
	}

	r, _ = gate.Evaluate(&EvalContext{HealthScore: 30})
	if r.Status != GateFailed {
		t.Fatalf("expected failed for low score, got %s", r.Status)
	}
}

func TestCycleGate(t *testing.T) {
	gate := NewCycleGate(SeverityCritical)

	r, _ := gate.Evaluate(healthyContext())
	if r.Status != GatePassed {
		t.Fatalf("expected passed for acyclic graph, got %s", r.Status)
	}

	ctx := healthyContext()
	ctx.Cycles = [][]string{{"a", "b", "c"}}
	r, _ = gate.Evaluate(ctx)
	if r.Status != GateFailed {
		t.Fatalf("expected failed with cycle, got %s", r.Status)
	}
	if len(r.Details) != 1 || r.Details[0] != "a -> b -> c" {
		t.Fatalf("unexpected cycle details: %v", r.Details)
	}
}

func TestFailureGate(t *testing.T) {
	gate := NewFailureGate(0.1, SeverityRequired)

	r, _ := gate.Evaluate(healthyContext())
	if r.Status != GatePassed {
		t.Fatalf("expected passed without failures, got %s", r.Status)
	}

	ctx := healthyContext()
	ctx.StatusCounts["failed"] = 3
	r, _ = gate.Evaluate(ctx)
	if r.Status != GateFailed {
		t.Fatalf("expected failed at 30%% fail rate, got %s", r.Status)
	}
}

func TestFailureGate_NoTasksSkips(t *testing.T) {
	gate := NewFailureGate(0.1, SeverityRequired)
	r, _ := gate.Evaluate(&EvalContext{})
	if r.Status != GateSkipped {
		t.Fatalf("expected skipped with no tasks, got %s", r.Status)
	}
}

func TestDeadlineGate(t *testing.T) {
	gate := NewDeadlineGate(0, SeverityAdvisory)

	r, _ := gate.Evaluate(healthyContext())
	if r.Status != GatePassed {
		t.Fatalf("expected passed, got %s", r.Status)
	}

	ctx := healthyContext()
	ctx.AtRiskTasks = 2
	r, _ = gate.Evaluate(ctx)
	if r.Status != GateWarning {
		t.Fatalf("expected warning with at-risk tasks, got %s", r.Status)
	}

	ctx = healthyContext()
	ctx.OverdueTasks = 1
	r, _ = gate.Evaluate(ctx)
	if r.Status != GateFailed {
		t.Fatalf("expected failed with overdue tasks, got %s", r.Status)
	}
}

func TestConflictGate(t *testing.T) {
	gate := NewConflictGate(2, SeverityAdvisory)

	ctx := healthyContext()
	ctx.ResourceConflicts = 2
	r, _ := gate.Evaluate(ctx)
	if r.Status != GatePassed {
		t.Fatalf("expected passed at limit, got %s", r.Status)
	}

	ctx.ResourceConflicts = 3
	r, _ = gate.Evaluate(ctx)
	if r.Status != GateFailed {
		t.Fatalf("expected failed above limit, got %s", r.Status)
	}
}

func TestSyncGate(t *testing.T) {
	gate := NewSyncGate(SeverityRequired)

	r, _ := gate.Evaluate(healthyContext())
	if r.Status != GatePassed {
		t.Fatalf("expected passed in sync, got %s", r.Status)
	}

	ctx := healthyContext()
	ctx.OrphanedTokens = 2
	r, _ = gate.Evaluate(ctx)
	if r.Status != GateWarning {
		t.Fatalf("expected warning with orphans only, got %s", r.Status)
	}

	ctx.StaleTasks = 1
	r, _ = gate.Evaluate(ctx)
	if r.Status != GateFailed {
		t.Fatalf("expected failed with stale tasks, got %s", r.Status)
	}
}

func TestPipeline_AllPass(t *testing.T) {
	p := BuildPipeline(DefaultConfig())
	result := p.Run(healthyContext())

	if result.Status != GatePassed {
		t.Fatalf("expected overall pass, got %s: %s", result.Status, result.Summary)
	}
	if result.FailedCount != 0 {
		t.Fatalf("expected no failures, got %d", result.FailedCount)
	}
}

func TestPipeline_CriticalFailureSkipsRest(t *testing.T) {
	p := BuildPipeline(DefaultConfig())

	ctx := healthyContext()
	ctx.Cycles = [][]string{{"a", "b"}}
	result := p.Run(ctx)

	if result.Status != GateFailed {
		t.Fatalf("expected overall fail, got %s", result.Status)
	}
	if result.SkippedCount == 0 {
		t.Fatal("expected later gates skipped after critical failure")
	}
	for _, gr := range result.Gates[1:] {
		if gr.Status != GateSkipped {
			t.Fatalf("expected gate %s skipped, got %s", gr.Name, gr.Status)
		}
	}
}

func TestPipeline_RequiredFailureContinues(t *testing.T) {
	p := BuildPipeline(DefaultConfig())

	ctx := healthyContext()
	ctx.HealthScore = 20
	result := p.Run(ctx)

	if result.Status != GateFailed {
		t.Fatalf("expected overall fail, got %s", result.Status)
	}
	if result.SkippedCount != 0 {
		t.Fatalf("expected no skips for required failure, got %d", result.SkippedCount)
	}
	if result.PassedCount == 0 {
		t.Fatal("expected later gates to still run and pass")
	}
}

func TestPipeline_AdvisoryFailureDoesNotBlock(t *testing.T) {
	p := NewPipeline(NewConflictGate(0, SeverityAdvisory))

	ctx := healthyContext()
	ctx.ResourceConflicts = 5
	result := p.Run(ctx)

	if result.Status != GatePassed {
		t.Fatalf("expected overall pass despite advisory failure, got %s", result.Status)
	}
	if result.FailedCount != 1 {
		t.Fatalf("expected the advisory gate recorded as failed, got %d", result.FailedCount)
	}
}

type errorGate struct{}

func (errorGate) Name() string           { return "broken" }
func (errorGate) Severity() GateSeverity { return SeverityRequired }
func (errorGate) Evaluate(*EvalContext) (*GateResult, error) {
	return nil, errors.New("metrics unavailable")
}

func TestPipeline_EvaluationError(t *testing.T) {
	p := NewPipeline(errorGate{})
	result := p.Run(healthyContext())

	if result.Status != GateFailed {
		t.Fatalf("expected fail on evaluation error, got %s", result.Status)
	}
	if !strings.Contains(result.Gates[0].Message, "metrics unavailable") {
		t.Fatalf("expected error message surfaced, got %q", result.Gates[0].Message)
	}
}

func TestParseSeverity(t *testing.T) {
	cases := map[string]GateSeverity{
		"critical": SeverityCritical,
		"required": SeverityRequired,
		"advisory": SeverityAdvisory,
		"unknown":  SeverityRequired,
	}
	for in, want := range cases {
		if got := parseSeverity(in); got != want {
			t.Fatalf("parseSeverity(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestFormatReport(t *testing.T) {
	p := BuildPipeline(DefaultConfig())
	result := p.Run(healthyContext())

	report := FormatReport(result)
	if !strings.Contains(report, "Schedule Health Report") {
		t.Fatal("expected report header")
	}
	if !strings.Contains(report, "Result: PASSED") {
		t.Fatalf("expected PASSED result line:\n%s", report)
	}
}
