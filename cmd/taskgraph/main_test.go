package main

import (
	"strings"
	"testing"

	"github.com/plusplusoneplusplus/taskgraph/internal/scheduler"
)

func TestFormatExecutionOrder(t *testing.T) {
	order := []scheduler.ScheduledTask{
		{Task: &scheduler.Task{ID: "build", Priority: 1}, SchedulingScore: 100},
		{Task: &scheduler.Task{ID: "deploy", Priority: 2}, SchedulingScore: 50.5},
	}

	out := formatExecutionOrder(order)

	if !strings.Contains(out, "Execution order (2 tasks)") {
		t.Errorf("missing header in %q", out)
	}
	if !strings.Contains(out, "build") || !strings.Contains(out, "score=100.00") {
		t.Errorf("missing first entry in %q", out)
	}
	if !strings.Contains(out, "deploy") || !strings.Contains(out, "score=50.50") {
		t.Errorf("missing second entry in %q", out)
	}
}

func TestFormatExecutionOrder_Empty(t *testing.T) {
	out := formatExecutionOrder(nil)
	if !strings.Contains(out, "Execution order (0 tasks)") {
		t.Errorf("unexpected output %q", out)
	}
}
