// Package execution drives the task lifecycle state machine: dispatching
// ready tasks to a process executor, folding executor outcomes back into
// the graph, and reconciling the two sides when they drift.
package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/plusplusoneplusplus/taskgraph/internal/executor"
	"github.com/plusplusoneplusplus/taskgraph/internal/graph"
	"github.com/plusplusoneplusplus/taskgraph/internal/observability"
	"github.com/plusplusoneplusplus/taskgraph/internal/scheduler"
)

// Queries used by the lifecycle state machine.
const (
	// QueryDependentReadiness returns the direct dependents of a task
	// together with the statuses of all their prerequisites.
	QueryDependentReadiness = "MATCH (d:`Task`)-[:`DEPENDS_ON`]->(t:`Task` {id: $id}) OPTIONAL MATCH (d)-[:`DEPENDS_ON`]->(p:`Task`) RETURN d.id AS id, d.status AS status, collect(p.status) AS prereq_statuses"

	// QueryFallbacks returns tasks registered as fallbacks for a task.
	QueryFallbacks = "MATCH (f:`Task`)-[:`FALLBACK_FOR`]->(t:`Task` {id: $id}) RETURN f.id AS id, f.status AS status"

	// QueryCleanups returns cleanup tasks registered for a task.
	QueryCleanups = "MATCH (c:`Task`)-[:`CLEANUP_FOR`]->(t:`Task` {id: $id}) RETURN c.id AS id, c.command AS command"

	// QueryRunningTasks returns tasks the graph believes are running.
	QueryRunningTasks = "MATCH (t:`Task` {status: 'running'}) RETURN t.id AS id, t.execution_token AS token"
)

// Integration couples the graph's task states to a process executor.
//
// The graph is the source of truth for task status; the executor is the
// source of truth for process liveness. All transitions flow through here
// so the two stay consistent.
type Integration struct {
	exec  graph.QueryExecutor
	nodes graph.NodeStore
	procs executor.ProcessExecutor
	log   *slog.Logger
	now   func() time.Time

	mu        sync.Mutex
	taskToken map[string]string // task ID -> correlation token
	tokenTask map[string]string // correlation token -> task ID
	startedAt map[string]time.Time
}

// New creates an Integration over the given graph access and executor.
func New(exec graph.QueryExecutor, nodes graph.NodeStore, procs executor.ProcessExecutor, log *slog.Logger) *Integration {
	if log == nil {
		log = slog.Default()
	}
	return &Integration{
		exec:      exec,
		nodes:     nodes,
		procs:     procs,
		log:       log,
		now:       time.Now,
		taskToken: make(map[string]string),
		tokenTask: make(map[string]string),
		startedAt: make(map[string]time.Time),
	}
}

// Dispatch launches a pending task's command and transitions it to running.
// The returned token correlates the graph task with the executor process.
func (i *Integration) Dispatch(ctx context.Context, task *scheduler.Task) (string, error) {
	if task == nil || task.ID == "" {
		return "", &graph.ValidationError{Field: "task", Message: "task with id is required"}
	}
	if task.Command == "" {
		return "", &graph.ValidationError{Field: "command", Message: "task has no command to execute"}
	}
	if task.Status != scheduler.StatusPending {
		return "", &graph.ValidationError{Field: "status", Message: fmt.Sprintf("task %s is %s, not pending", task.ID, task.Status)}
	}

	ctx, span := observability.StartDispatchSpan(ctx, task.ID)
	defer span.End()

	start, err := i.procs.StartProcess(ctx, task.Command)
	if err != nil {
		observability.RecordError(span, err)
		return "", graph.WrapOperationError("dispatch", err, fmt.Sprintf("start process for task %s", task.ID))
	}

	now := i.now().UTC()
	i.track(task.ID, start.Token, now)

	_, err = i.nodes.UpdateNode(ctx, task.ID, map[string]any{
		"status":          scheduler.StatusRunning,
		"started_at":      now.Format(time.RFC3339),
		"execution_token": start.Token,
	})
	if err != nil {
		// Process is already running; keep the token tracked so the next
		// monitor tick can reconcile.
		observability.RecordError(span, err)
		return start.Token, graph.WrapOperationError("dispatch", err, fmt.Sprintf("mark task %s running", task.ID))
	}

	observability.RecordDispatchResult(span, start.Token, true)
	observability.Metrics().RecordDispatch()
	observability.Audit().LogTaskDispatch(ctx, task.ID, start.Token, task.Command)
	i.log.Info("task dispatched", "task", task.ID, "token", start.Token, "pid", start.PID)

	return start.Token, nil
}

// TickReport summarizes one monitoring pass.
type TickReport struct {
	Completed  []string `json:"completed"`
	Failed     []string `json:"failed"`
	NewlyReady []string `json:"newly_ready"`
}

// MonitorTick polls every tracked process once and applies the resulting
// state transitions. A failure on one task never stops the pass; per-task
// errors are joined into the returned error.
func (i *Integration) MonitorTick(ctx context.Context) (*TickReport, error) {
	report := &TickReport{}
	var errs []error

	for taskID, token := range i.trackedPairs() {
		status, err := i.procs.QueryProcess(ctx, token, false, 0)
		if err != nil {
			// Executor lost the process; the task cannot be left running.
			if failErr := i.failTask(ctx, taskID, token, -1, fmt.Sprintf("executor lost process: %v", err)); failErr != nil {
				errs = append(errs, failErr)
			}
			report.Failed = append(report.Failed, taskID)
			continue
		}
		if status.Status == executor.StatusRunning {
			continue
		}

		if status.Status == executor.StatusCompleted && status.Success {
			ready, err := i.completeTask(ctx, taskID, token)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			report.Completed = append(report.Completed, taskID)
			report.NewlyReady = append(report.NewlyReady, ready...)
			continue
		}

		msg := status.Error
		if msg == "" {
			msg = fmt.Sprintf("exited with code %d", status.ReturnCode)
		}
		if err := i.failTask(ctx, taskID, token, status.ReturnCode, msg); err != nil {
			errs = append(errs, err)
		}
		report.Failed = append(report.Failed, taskID)
	}

	return report, errors.Join(errs...)
}

// completeTask transitions a finished task to completed and reports which
// direct dependents became ready.
func (i *Integration) completeTask(ctx context.Context, taskID, token string) ([]string, error) {
	started := i.untrack(taskID, token)
	now := i.now().UTC()

	_, err := i.nodes.UpdateNode(ctx, taskID, map[string]any{
		"status":       scheduler.StatusCompleted,
		"completed_at": now.Format(time.RFC3339),
	})
	if err != nil {
		return nil, graph.WrapOperationError("monitor", err, fmt.Sprintf("mark task %s completed", taskID))
	}

	ready, err := i.OnTaskCompleted(ctx, taskID)
	if err != nil {
		return nil, err
	}

	duration := now.Sub(started)
	observability.Metrics().RecordTaskResult(duration, true)
	observability.Audit().LogTaskComplete(ctx, taskID, token, duration, ready)
	i.log.Info("task completed", "task", taskID, "duration", duration, "newly_ready", len(ready))

	return ready, nil
}

// failTask transitions a task to failed, records the error on the node,
// and activates fallback and cleanup tasks.
func (i *Integration) failTask(ctx context.Context, taskID, token string, returnCode int, errMsg string) error {
	started := i.untrack(taskID, token)
	now := i.now().UTC()

	duration := now.Sub(started)
	observability.Metrics().RecordTaskResult(duration, false)
	observability.Audit().LogTaskFail(ctx, taskID, token, returnCode, errMsg)
	i.log.Warn("task failed", "task", taskID, "return_code", returnCode, "error", errMsg)

	return i.OnTaskFailed(ctx, taskID, errMsg)
}

// OnTaskCompleted recomputes readiness among the direct dependents of a
// completed task and returns the IDs that became ready, sorted.
func (i *Integration) OnTaskCompleted(ctx context.Context, taskID string) ([]string, error) {
	res, err := i.exec.Execute(ctx, QueryDependentReadiness, map[string]any{"id": taskID})
	if err != nil {
		return nil, graph.WrapOperationError("on_task_completed", err, fmt.Sprintf("fetch dependents of %s", taskID))
	}

	var ready []string
	for _, rec := range res.Records {
		id := rec.StringValue("id")
		if id == "" || rec.StringValue("status") != scheduler.StatusPending {
			continue
		}
		allDone := true
		for _, st := range rec.StringSlice("prereq_statuses") {
			if st != scheduler.StatusCompleted {
				allDone = false
				break
			}
		}
		if allDone {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)
	return ready, nil
}

// OnTaskFailed marks the task failed with the error recorded as a node
// property, resets its fallback tasks to pending, and dispatches its
// cleanup tasks immediately. Cleanup tasks bypass the readiness gate.
func (i *Integration) OnTaskFailed(ctx context.Context, taskID, errMsg string) error {
	now := i.now().UTC()
	var errs []error

	_, err := i.nodes.UpdateNode(ctx, taskID, map[string]any{
		"status":    scheduler.StatusFailed,
		"error":     errMsg,
		"failed_at": now.Format(time.RFC3339),
	})
	if err != nil {
		errs = append(errs, graph.WrapOperationError("on_task_failed", err, fmt.Sprintf("mark task %s failed", taskID)))
	}

	// Fallbacks go back to pending so the next scheduling pass picks them up.
	fallbacks, err := i.exec.Execute(ctx, QueryFallbacks, map[string]any{"id": taskID})
	if err != nil {
		errs = append(errs, graph.WrapOperationError("on_task_failed", err, fmt.Sprintf("fetch fallbacks of %s", taskID)))
	} else {
		for _, rec := range fallbacks.Records {
			fallbackID := rec.StringValue("id")
			if fallbackID == "" {
				continue
			}
			if _, err := i.nodes.UpdateNode(ctx, fallbackID, map[string]any{
				"status": scheduler.StatusPending,
				"error":  "",
			}); err != nil {
				errs = append(errs, graph.WrapOperationError("on_task_failed", err, fmt.Sprintf("reset fallback %s", fallbackID)))
				continue
			}
			observability.Metrics().FallbacksTotal.Inc()
			observability.Audit().LogTaskFallback(ctx, taskID, fallbackID)
			i.log.Info("fallback activated", "failed_task", taskID, "fallback", fallbackID)
		}
	}

	// Cleanups run now regardless of their own dependencies.
	cleanups, err := i.exec.Execute(ctx, QueryCleanups, map[string]any{"id": taskID})
	if err != nil {
		errs = append(errs, graph.WrapOperationError("on_task_failed", err, fmt.Sprintf("fetch cleanups of %s", taskID)))
	} else {
		for _, rec := range cleanups.Records {
			cleanupID := rec.StringValue("id")
			command := rec.StringValue("command")
			if cleanupID == "" || command == "" {
				continue
			}
			if err := i.dispatchCleanup(ctx, cleanupID, command); err != nil {
				errs = append(errs, err)
				continue
			}
			observability.Metrics().CleanupsTotal.Inc()
			observability.Audit().LogTaskCleanup(ctx, taskID, cleanupID)
			i.log.Info("cleanup dispatched", "failed_task", taskID, "cleanup", cleanupID)
		}
	}

	return errors.Join(errs...)
}

func (i *Integration) dispatchCleanup(ctx context.Context, cleanupID, command string) error {
	start, err := i.procs.StartProcess(ctx, command)
	if err != nil {
		return graph.WrapOperationError("cleanup", err, fmt.Sprintf("start cleanup %s", cleanupID))
	}

	now := i.now().UTC()
	i.track(cleanupID, start.Token, now)

	if _, err := i.nodes.UpdateNode(ctx, cleanupID, map[string]any{
		"status":          scheduler.StatusRunning,
		"started_at":      now.Format(time.RFC3339),
		"execution_token": start.Token,
	}); err != nil {
		return graph.WrapOperationError("cleanup", err, fmt.Sprintf("mark cleanup %s running", cleanupID))
	}
	return nil
}

// SyncReport summarizes a reconciliation pass.
type SyncReport struct {
	// Orphaned lists executor tokens with no corresponding running task.
	// They are reported, not touched.
	Orphaned []string `json:"orphaned"`
	// Stale lists tasks the graph had running with no executor process
	// behind them. They are force-failed.
	Stale []string `json:"stale"`
}

// Synchronize reconciles the executor's running set against the graph's
// running tasks. Orphaned executor processes are reported only; stale
// graph tasks are force-failed.
func (i *Integration) Synchronize(ctx context.Context) (*SyncReport, error) {
	ctx, span := observability.StartSyncSpan(ctx)
	defer span.End()

	report := &SyncReport{}
	var errs []error

	running, err := i.procs.ListRunning(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return nil, graph.WrapOperationError("synchronize", err, "list running processes")
	}
	executorTokens := make(map[string]string, len(running))
	for _, p := range running {
		executorTokens[p.Token] = p.Command
	}

	res, err := i.exec.Execute(ctx, QueryRunningTasks, nil)
	if err != nil {
		observability.RecordError(span, err)
		return nil, graph.WrapOperationError("synchronize", err, "fetch running tasks")
	}
	graphTokens := make(map[string]bool)
	for _, rec := range res.Records {
		taskID := rec.StringValue("id")
		token := rec.StringValue("token")
		if token != "" {
			graphTokens[token] = true
		}

		if token != "" && executorTokens[token] != "" {
			continue
		}
		// The executor may know a finished process that ListRunning no
		// longer shows; only an unknown token makes the task stale.
		if token != "" {
			if _, err := i.procs.QueryProcess(ctx, token, false, 0); err == nil {
				continue
			}
		}
		report.Stale = append(report.Stale, taskID)
		observability.Audit().LogSyncStale(ctx, taskID)
		if err := i.failTask(ctx, taskID, token, -1, "no executor process behind running task"); err != nil {
			errs = append(errs, err)
		}
	}

	for token, command := range executorTokens {
		if graphTokens[token] {
			continue
		}
		if _, tracked := i.taskFor(token); tracked {
			continue
		}
		report.Orphaned = append(report.Orphaned, token)
		observability.Audit().LogSyncOrphaned(ctx, token, command)
		i.log.Warn("orphaned executor process", "token", token, "command", command)
	}

	sort.Strings(report.Orphaned)
	sort.Strings(report.Stale)
	observability.RecordSyncResult(span, len(report.Orphaned), len(report.Stale))
	observability.Metrics().RecordSync(len(report.Orphaned), len(report.Stale))

	return report, errors.Join(errs...)
}

// TrackedTasks returns the task IDs currently tracked as running, sorted.
func (i *Integration) TrackedTasks() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	ids := make([]string, 0, len(i.taskToken))
	for id := range i.taskToken {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (i *Integration) track(taskID, token string, started time.Time) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.taskToken[taskID] = token
	i.tokenTask[token] = taskID
	i.startedAt[taskID] = started
}

// untrack removes the pair and returns the recorded start time.
func (i *Integration) untrack(taskID, token string) time.Time {
	i.mu.Lock()
	defer i.mu.Unlock()
	started, ok := i.startedAt[taskID]
	if !ok {
		started = i.now().UTC()
	}
	delete(i.taskToken, taskID)
	delete(i.tokenTask, token)
	delete(i.startedAt, taskID)
	return started
}

func (i *Integration) taskFor(token string) (string, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	id, ok := i.tokenTask[token]
	return id, ok
}

// trackedPairs snapshots the task/token map so transitions during the
// iteration cannot corrupt it.
func (i *Integration) trackedPairs() map[string]string {
	i.mu.Lock()
	defer i.mu.Unlock()
	pairs := make(map[string]string, len(i.taskToken))
	for id, token := range i.taskToken {
		pairs[id] = token
	}
	return pairs
}
