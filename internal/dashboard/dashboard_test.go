package dashboard

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestStore_CreateAndGetRun(t *testing.T) {
	store := NewStore()

	run := &ScheduleRun{
		ID:         "run-1",
		Name:       "nightly deploy",
		Status:     StatusRunning,
		StartedAt:  time.Now(),
		TotalTasks: 4,
	}
	store.CreateRun(run)

	got, ok := store.GetRun("run-1")
	if !ok {
		t.Fatal("expected run-1 to exist")
	}
	if got.Name != "nightly deploy" {
		t.Errorf("Name = %q, want %q", got.Name, "nightly deploy")
	}
	if got.TotalTasks != 4 {
		t.Errorf("TotalTasks = %d, want 4", got.TotalTasks)
	}

	if _, ok := store.GetRun("missing"); ok {
		t.Error("expected missing run to be absent")
	}
}

func TestStore_ListRuns(t *testing.T) {
	store := NewStore()
	base := time.Now()

	store.CreateRun(&ScheduleRun{ID: "old", StartedAt: base.Add(-2 * time.Hour)})
	store.CreateRun(&ScheduleRun{ID: "new", StartedAt: base})
	store.CreateRun(&ScheduleRun{ID: "mid", StartedAt: base.Add(-time.Hour)})

	runs := store.ListRuns()
	if len(runs) != 3 {
		t.Fatalf("len = %d, want 3", len(runs))
	}

	want := []string{"new", "mid", "old"}
	for i, id := range want {
		if runs[i].ID != id {
			t.Errorf("runs[%d].ID = %q, want %q", i, runs[i].ID, id)
		}
	}
}

func TestStore_UpdateRun(t *testing.T) {
	store := NewStore()
	store.CreateRun(&ScheduleRun{ID: "run-1", Status: StatusRunning})

	store.UpdateRun("run-1", func(run *ScheduleRun) {
		run.Status = StatusCompleted
		run.CompletedTasks = 3
	})

	got, _ := store.GetRun("run-1")
	if got.Status != StatusCompleted {
		t.Errorf("Status = %q, want completed", got.Status)
	}
	if got.CompletedTasks != 3 {
		t.Errorf("CompletedTasks = %d, want 3", got.CompletedTasks)
	}

	// Updating a missing run is a no-op.
	store.UpdateRun("missing", func(run *ScheduleRun) {
		t.Error("update fn called for missing run")
	})
}

func TestStore_GetStats(t *testing.T) {
	store := NewStore()
	base := time.Now()
	done := base.Add(10 * time.Second)

	store.CreateRun(&ScheduleRun{
		ID:             "a",
		Status:         StatusCompleted,
		StartedAt:      base,
		CompletedAt:    &done,
		CompletedTasks: 5,
	})
	store.CreateRun(&ScheduleRun{
		ID:          "b",
		Status:      StatusFailed,
		StartedAt:   base,
		FailedTasks: 2,
	})
	store.CreateRun(&ScheduleRun{ID: "c", Status: StatusRunning, StartedAt: base})

	stats := store.GetStats()
	if stats.TotalRuns != 3 {
		t.Errorf("TotalRuns = %d, want 3", stats.TotalRuns)
	}
	if stats.ActiveRuns != 1 {
		t.Errorf("ActiveRuns = %d, want 1", stats.ActiveRuns)
	}
	if stats.CompletedRuns != 1 {
		t.Errorf("CompletedRuns = %d, want 1", stats.CompletedRuns)
	}
	if stats.FailedRuns != 1 {
		t.Errorf("FailedRuns = %d, want 1", stats.FailedRuns)
	}
	if stats.TasksExecuted != 5 {
		t.Errorf("TasksExecuted = %d, want 5", stats.TasksExecuted)
	}
	if stats.TasksFailed != 2 {
		t.Errorf("TasksFailed = %d, want 2", stats.TasksFailed)
	}
	if stats.AvgDuration != 10 {
		t.Errorf("AvgDuration = %v, want 10", stats.AvgDuration)
	}
	if want := 1.0 / 3.0; stats.SuccessRate != want {
		t.Errorf("SuccessRate = %v, want %v", stats.SuccessRate, want)
	}
}

func TestStore_GetStats_Empty(t *testing.T) {
	stats := NewStore().GetStats()
	if stats.TotalRuns != 0 || stats.SuccessRate != 0 || stats.AvgDuration != 0 {
		t.Errorf("empty store stats = %+v, want zeros", stats)
	}
}

func TestStore_AddAndGetLogs(t *testing.T) {
	store := NewStore()

	for i := 0; i < 5; i++ {
		store.AddLog(LogEntry{
			RunID:   "run-1",
			TaskID:  "deploy",
			Level:   "info",
			Message: fmt.Sprintf("step %d", i),
		})
	}
	store.AddLog(LogEntry{RunID: "run-2", Message: "other"})

	logs := store.GetLogs("run-1", 0)
	if len(logs) != 5 {
		t.Fatalf("len = %d, want 5", len(logs))
	}
	// Most recent first.
	if logs[0].Message != "step 4" {
		t.Errorf("logs[0] = %q, want %q", logs[0].Message, "step 4")
	}

	limited := store.GetLogs("run-1", 2)
	if len(limited) != 2 {
		t.Errorf("limited len = %d, want 2", len(limited))
	}

	if got := store.GetLogs("missing", 0); len(got) != 0 {
		t.Errorf("missing run logs = %d, want 0", len(got))
	}
}

func TestStore_Eviction(t *testing.T) {
	store := NewStore()
	base := time.Now()

	// Fill past the limit with finished runs, oldest completing first.
	for i := 0; i < maxRuns+10; i++ {
		done := base.Add(time.Duration(i) * time.Second)
		store.CreateRun(&ScheduleRun{
			ID:          fmt.Sprintf("run-%03d", i),
			Status:      StatusCompleted,
			StartedAt:   base,
			CompletedAt: &done,
		})
	}

	runs := store.ListRuns()
	if len(runs) > maxRuns {
		t.Errorf("len = %d, want <= %d", len(runs), maxRuns)
	}

	// The oldest finished runs were evicted.
	if _, ok := store.GetRun("run-000"); ok {
		t.Error("expected run-000 to be evicted")
	}
	last := fmt.Sprintf("run-%03d", maxRuns+9)
	if _, ok := store.GetRun(last); !ok {
		t.Errorf("expected %s to survive", last)
	}
}

func TestEmitter_RunLifecycle(t *testing.T) {
	store := NewStore()
	hub := NewHub()
	emitter := NewEmitter(store, hub)

	emitter.RunStarted("run-1", "release pipeline", 2)

	run, ok := store.GetRun("run-1")
	if !ok {
		t.Fatal("run not created")
	}
	if run.Status != StatusRunning {
		t.Errorf("Status = %q, want running", run.Status)
	}
	if run.TotalTasks != 2 {
		t.Errorf("TotalTasks = %d, want 2", run.TotalTasks)
	}

	emitter.TaskStarted("run-1", "build")
	emitter.TaskCompleted("run-1", "build", 1)
	emitter.TaskStarted("run-1", "deploy")
	emitter.TaskCompleted("run-1", "deploy", 2)
	emitter.RunCompleted("run-1", 92.5)

	run, _ = store.GetRun("run-1")
	if run.Status != StatusCompleted {
		t.Errorf("Status = %q, want completed", run.Status)
	}
	if run.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}
	if run.CompletedTasks != 2 {
		t.Errorf("CompletedTasks = %d, want 2", run.CompletedTasks)
	}
	if run.HealthScore != 92.5 {
		t.Errorf("HealthScore = %v, want 92.5", run.HealthScore)
	}
	if len(run.Tasks) != 2 {
		t.Fatalf("len(Tasks) = %d, want 2", len(run.Tasks))
	}
	if run.Tasks[0].Status != StatusCompleted || run.Tasks[0].CompletedAt == nil {
		t.Errorf("build task not completed: %+v", run.Tasks[0])
	}
	if run.Tasks[1].Attempts != 2 {
		t.Errorf("deploy Attempts = %d, want 2", run.Tasks[1].Attempts)
	}
}

func TestEmitter_RunFailed(t *testing.T) {
	store := NewStore()
	emitter := NewEmitter(store, NewHub())

	emitter.RunStarted("run-1", "release pipeline", 1)
	emitter.TaskStarted("run-1", "deploy")
	emitter.TaskFailed("run-1", "deploy", errors.New("resource unavailable"), 3)
	emitter.RunFailed("run-1", errors.New("deploy failed"))

	run, _ := store.GetRun("run-1")
	if run.Status != StatusFailed {
		t.Errorf("Status = %q, want failed", run.Status)
	}
	if run.Error != "deploy failed" {
		t.Errorf("Error = %q", run.Error)
	}
	if run.FailedTasks != 1 {
		t.Errorf("FailedTasks = %d, want 1", run.FailedTasks)
	}
	if len(run.Tasks) != 1 {
		t.Fatalf("len(Tasks) = %d, want 1", len(run.Tasks))
	}
	task := run.Tasks[0]
	if task.Status != StatusFailed {
		t.Errorf("task Status = %q, want failed", task.Status)
	}
	if task.Error != "resource unavailable" {
		t.Errorf("task Error = %q", task.Error)
	}
	if task.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", task.Attempts)
	}
}

func TestEmitter_Log(t *testing.T) {
	store := NewStore()
	emitter := NewEmitter(store, NewHub())

	emitter.RunStarted("run-1", "pipeline", 1)
	emitter.Log("run-1", "deploy", "warn", "retrying after lease conflict")

	logs := store.GetLogs("run-1", 0)
	if len(logs) != 1 {
		t.Fatalf("len = %d, want 1", len(logs))
	}
	if logs[0].Level != "warn" || logs[0].TaskID != "deploy" {
		t.Errorf("log = %+v", logs[0])
	}
}
