package temporal

import (
	"fmt"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// StartWorker registers the task-run workflow and its activities on the
// given queue and starts polling. The caller stops it via worker.Stop.
func StartWorker(c client.Client, taskQueue string) (worker.Worker, error) {
	if taskQueue == "" {
		return nil, fmt.Errorf("task queue name required")
	}

	w := worker.New(c, taskQueue, worker.Options{})
	w.RegisterWorkflow(TaskRunWorkflow)
	w.RegisterActivity(RunCommandActivity)

	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("starting worker on %s: %w", taskQueue, err)
	}
	return w, nil
}
