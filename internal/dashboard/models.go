package dashboard

import "time"

// RunStatus represents the state of a schedule run.
type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// ScheduleRun represents a single end-to-end execution of a task schedule.
type ScheduleRun struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Status         RunStatus    `json:"status"`
	Tasks          []TaskResult `json:"tasks"`
	StartedAt      time.Time    `json:"started_at"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
	Error          string       `json:"error,omitempty"`
	TotalTasks     int          `json:"total_tasks"`
	CompletedTasks int          `json:"completed_tasks"`
	FailedTasks    int          `json:"failed_tasks"`
	HealthScore    float64      `json:"health_score"`
}

// TaskResult represents a single task execution within a run.
type TaskResult struct {
	TaskID      string        `json:"task_id"`
	Status      RunStatus     `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration_ms"`
	Error       string        `json:"error,omitempty"`
	Attempts    int           `json:"attempts"`
}

// DashboardStats holds aggregate statistics.
type DashboardStats struct {
	TotalRuns     int     `json:"total_runs"`
	ActiveRuns    int     `json:"active_runs"`
	CompletedRuns int     `json:"completed_runs"`
	FailedRuns    int     `json:"failed_runs"`
	TasksExecuted int     `json:"tasks_executed"`
	TasksFailed   int     `json:"tasks_failed"`
	AvgDuration   float64 `json:"avg_duration_seconds"`
	SuccessRate   float64 `json:"success_rate"`
}

// Event represents a real-time dashboard event.
type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	RunID     string      `json:"run_id,omitempty"`
	TaskID    string      `json:"task_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// LogEntry represents a log line for a run.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	RunID     string    `json:"run_id"`
	TaskID    string    `json:"task_id,omitempty"`
}
