// Package executor defines the external process execution contract the
// scheduler integrates with, plus a local implementation.
package executor

import (
	"context"
	"time"
)

// Status of an executed process.
type Status string

const (
	StatusRunning    Status = "running"
	StatusCompleted  Status = "completed"
	StatusTerminated Status = "terminated"
)

// StartResult is returned when a process is launched. Token is the
// correlation token monitoring reconciles on.
type StartResult struct {
	Token  string `json:"token"`
	Status Status `json:"status"`
	PID    int    `json:"pid"`
}

// ProcessStatus describes a process at query time.
type ProcessStatus struct {
	Status     Status `json:"status"`
	Success    bool   `json:"success"`
	Output     string `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
	ReturnCode int    `json:"return_code"`
}

// RunningProcess is one entry of the executor's running set.
type RunningProcess struct {
	Token   string        `json:"token"`
	Command string        `json:"command"`
	Runtime time.Duration `json:"runtime"`
}

// ProcessExecutor launches commands asynchronously and reports on them by
// correlation token.
type ProcessExecutor interface {
	// StartProcess launches the command and returns immediately.
	StartProcess(ctx context.Context, command string) (*StartResult, error)
	// QueryProcess reports the process state. With wait set it blocks until
	// the process finishes or the timeout elapses.
	QueryProcess(ctx context.Context, token string, wait bool, timeout time.Duration) (*ProcessStatus, error)
	// ListRunning returns the currently running processes.
	ListRunning(ctx context.Context) ([]RunningProcess, error)
}
