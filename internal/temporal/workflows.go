// Package temporal runs task commands as Temporal workflows, giving task
// execution durability across worker restarts.
package temporal

import (
	"time"

	"go.temporal.io/sdk/workflow"
)

// DefaultRunTimeout bounds a single command execution when the task
// carries no timeout of its own.
const DefaultRunTimeout = 10 * time.Minute

// TaskRunInput holds the workflow parameters for one task command.
type TaskRunInput struct {
	TaskID  string
	Command string
	Timeout time.Duration
}

// TaskRunOutput holds the outcome of a task command.
type TaskRunOutput struct {
	Success    bool
	Output     string
	Error      string
	ReturnCode int
}

// TaskRunWorkflow executes a single task command as one activity. The
// command's own failure is carried in the output, not as a workflow error,
// so a non-zero exit never burns workflow retries.
func TaskRunWorkflow(ctx workflow.Context, input TaskRunInput) (*TaskRunOutput, error) {
	timeout := input.Timeout
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var result TaskRunOutput
	if err := workflow.ExecuteActivity(ctx, RunCommandActivity, input).Get(ctx, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
