package temporal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"

	"github.com/plusplusoneplusplus/taskgraph/internal/executor"
	"github.com/plusplusoneplusplus/taskgraph/internal/graph"
)

// Executor runs task commands as Temporal workflows. The correlation
// token is the workflow ID, so a process outlives the executor instance
// that started it.
type Executor struct {
	client    client.Client
	taskQueue string

	mu   sync.Mutex
	runs map[string]*workflowRun
}

type workflowRun struct {
	command   string
	startedAt time.Time
}

// NewExecutor creates an Executor over an existing Temporal client.
func NewExecutor(c client.Client, taskQueue string) *Executor {
	return &Executor{
		client:    c,
		taskQueue: taskQueue,
		runs:      make(map[string]*workflowRun),
	}
}

// StartProcess launches a TaskRunWorkflow and returns its workflow ID as
// the correlation token.
func (e *Executor) StartProcess(ctx context.Context, command string) (*executor.StartResult, error) {
	if command == "" {
		return nil, &graph.ValidationError{Field: "command", Message: "command is required"}
	}

	workflowID := fmt.Sprintf("taskrun-%s", uuid.NewString())
	opts := client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: e.taskQueue,
	}
	if _, err := e.client.ExecuteWorkflow(ctx, opts, TaskRunWorkflow, TaskRunInput{Command: command}); err != nil {
		return nil, graph.WrapOperationError("start_process", err, "start workflow")
	}

	e.mu.Lock()
	e.runs[workflowID] = &workflowRun{command: command, startedAt: time.Now()}
	e.mu.Unlock()

	return &executor.StartResult{Token: workflowID, Status: executor.StatusRunning}, nil
}

// QueryProcess reports the workflow state behind a token. With wait set it
// blocks until the workflow finishes or the timeout elapses.
func (e *Executor) QueryProcess(ctx context.Context, token string, wait bool, timeout time.Duration) (*executor.ProcessStatus, error) {
	if wait {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return e.fetchResult(ctx, token)
	}

	desc, err := e.client.DescribeWorkflowExecution(ctx, token, "")
	if err != nil {
		return nil, graph.WrapOperationError("query_process", err, fmt.Sprintf("describe workflow %s", token))
	}

	switch desc.WorkflowExecutionInfo.Status {
	case enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING:
		return &executor.ProcessStatus{Status: executor.StatusRunning}, nil
	case enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		// Finished; fetching the result returns promptly.
		return e.fetchResult(ctx, token)
	default:
		e.forget(token)
		return &executor.ProcessStatus{
			Status:     executor.StatusTerminated,
			Error:      fmt.Sprintf("workflow %s", desc.WorkflowExecutionInfo.Status),
			ReturnCode: -1,
		}, nil
	}
}

func (e *Executor) fetchResult(ctx context.Context, token string) (*executor.ProcessStatus, error) {
	var out TaskRunOutput
	if err := e.client.GetWorkflow(ctx, token, "").Get(ctx, &out); err != nil {
		return nil, graph.WrapOperationError("query_process", err, fmt.Sprintf("workflow result %s", token))
	}
	e.forget(token)

	return &executor.ProcessStatus{
		Status:     executor.StatusCompleted,
		Success:    out.Success,
		Output:     out.Output,
		Error:      out.Error,
		ReturnCode: out.ReturnCode,
	}, nil
}

// ListRunning returns the workflows this executor started that are still
// running.
func (e *Executor) ListRunning(ctx context.Context) ([]executor.RunningProcess, error) {
	e.mu.Lock()
	tokens := make(map[string]*workflowRun, len(e.runs))
	for token, run := range e.runs {
		tokens[token] = run
	}
	e.mu.Unlock()

	var running []executor.RunningProcess
	for token, run := range tokens {
		desc, err := e.client.DescribeWorkflowExecution(ctx, token, "")
		if err != nil {
			return nil, graph.WrapOperationError("list_running", err, fmt.Sprintf("describe workflow %s", token))
		}
		if desc.WorkflowExecutionInfo.Status != enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING {
			continue
		}
		running = append(running, executor.RunningProcess{
			Token:   token,
			Command: run.command,
			Runtime: time.Since(run.startedAt),
		})
	}
	return running, nil
}

func (e *Executor) forget(token string) {
	e.mu.Lock()
	delete(e.runs, token)
	e.mu.Unlock()
}
