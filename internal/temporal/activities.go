package temporal

import (
	"bytes"
	"context"
	"errors"
	"os/exec"

	"github.com/plusplusoneplusplus/taskgraph/internal/graph"
)

// RunCommandActivity runs the task command through the shell and captures
// its combined output. A non-zero exit is reported in the result rather
// than returned as an activity error.
func RunCommandActivity(ctx context.Context, input TaskRunInput) (TaskRunOutput, error) {
	if input.Command == "" {
		return TaskRunOutput{}, &graph.ValidationError{Field: "command", Message: "command is required"}
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", input.Command)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	out := TaskRunOutput{
		Success: err == nil,
		Output:  buf.String(),
	}
	if err != nil {
		out.Error = err.Error()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.ReturnCode = exitErr.ExitCode()
		} else {
			// Command never ran (bad shell, context canceled).
			out.ReturnCode = -1
		}
	}
	return out, nil
}
