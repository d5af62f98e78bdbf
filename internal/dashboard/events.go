package dashboard

import "time"

// Emitter collects execution events and forwards them to the dashboard.
// It is safe to use from multiple goroutines.
type Emitter struct {
	store *Store
	hub   *Hub
}

// NewEmitter creates a new event emitter.
func NewEmitter(store *Store, hub *Hub) *Emitter {
	return &Emitter{store: store, hub: hub}
}

// RunStarted creates a new ScheduleRun in the store with StatusRunning and
// broadcasts "run.started".
func (e *Emitter) RunStarted(id, name string, totalTasks int) {
	run := &ScheduleRun{
		ID:         id,
		Name:       name,
		Status:     StatusRunning,
		Tasks:      make([]TaskResult, 0),
		StartedAt:  time.Now(),
		TotalTasks: totalTasks,
	}

	e.store.CreateRun(run)

	e.hub.Broadcast(&Event{
		Type:      "run.started",
		Timestamp: time.Now(),
		RunID:     id,
		Data:      run,
	})
}

// TaskStarted appends a TaskResult with StatusRunning to the run and
// broadcasts "task.started".
func (e *Emitter) TaskStarted(runID, taskID string) {
	result := TaskResult{
		TaskID:    taskID,
		Status:    StatusRunning,
		StartedAt: time.Now(),
		Attempts:  1,
	}

	e.store.UpdateRun(runID, func(run *ScheduleRun) {
		run.Tasks = append(run.Tasks, result)
	})

	e.hub.Broadcast(&Event{
		Type:      "task.started",
		Timestamp: time.Now(),
		RunID:     runID,
		TaskID:    taskID,
		Data:      result,
	})
}

// TaskCompleted marks the task completed, records its duration, and
// broadcasts "task.completed".
func (e *Emitter) TaskCompleted(runID, taskID string, attempts int) {
	var result TaskResult

	e.store.UpdateRun(runID, func(run *ScheduleRun) {
		for i := range run.Tasks {
			if run.Tasks[i].TaskID == taskID {
				now := time.Now()
				run.Tasks[i].Status = StatusCompleted
				run.Tasks[i].CompletedAt = &now
				run.Tasks[i].Duration = now.Sub(run.Tasks[i].StartedAt)
				run.Tasks[i].Attempts = attempts
				result = run.Tasks[i]
				break
			}
		}
		run.CompletedTasks++
	})

	e.hub.Broadcast(&Event{
		Type:      "task.completed",
		Timestamp: time.Now(),
		RunID:     runID,
		TaskID:    taskID,
		Data:      result,
	})
}

// TaskFailed marks the task failed, records the error, and broadcasts
// "task.failed".
func (e *Emitter) TaskFailed(runID, taskID string, err error, attempts int) {
	var result TaskResult
	errorMsg := ""
	if err != nil {
		errorMsg = err.Error()
	}

	e.store.UpdateRun(runID, func(run *ScheduleRun) {
		for i := range run.Tasks {
			if run.Tasks[i].TaskID == taskID {
				now := time.Now()
				run.Tasks[i].Status = StatusFailed
				run.Tasks[i].CompletedAt = &now
				run.Tasks[i].Duration = now.Sub(run.Tasks[i].StartedAt)
				run.Tasks[i].Error = errorMsg
				run.Tasks[i].Attempts = attempts
				result = run.Tasks[i]
				break
			}
		}
		run.FailedTasks++
	})

	e.hub.Broadcast(&Event{
		Type:      "task.failed",
		Timestamp: time.Now(),
		RunID:     runID,
		TaskID:    taskID,
		Data:      result,
	})
}

// RunCompleted marks the run completed with its final health score and
// broadcasts "run.completed".
func (e *Emitter) RunCompleted(runID string, healthScore float64) {
	var completed *ScheduleRun

	e.store.UpdateRun(runID, func(run *ScheduleRun) {
		now := time.Now()
		run.Status = StatusCompleted
		run.CompletedAt = &now
		run.HealthScore = healthScore
		completed = run
	})

	e.hub.Broadcast(&Event{
		Type:      "run.completed",
		Timestamp: time.Now(),
		RunID:     runID,
		Data:      completed,
	})
}

// RunFailed marks the run failed and broadcasts "run.failed".
func (e *Emitter) RunFailed(runID string, err error) {
	var failed *ScheduleRun
	errorMsg := ""
	if err != nil {
		errorMsg = err.Error()
	}

	e.store.UpdateRun(runID, func(run *ScheduleRun) {
		now := time.Now()
		run.Status = StatusFailed
		run.CompletedAt = &now
		run.Error = errorMsg
		failed = run
	})

	e.hub.Broadcast(&Event{
		Type:      "run.failed",
		Timestamp: time.Now(),
		RunID:     runID,
		Data:      failed,
	})
}

// Log adds a LogEntry to the store and broadcasts "log".
func (e *Emitter) Log(runID, taskID, level, message string) {
	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		RunID:     runID,
		TaskID:    taskID,
	}

	e.store.AddLog(entry)

	e.hub.Broadcast(&Event{
		Type:      "log",
		Timestamp: time.Now(),
		RunID:     runID,
		Data:      entry,
	})
}
