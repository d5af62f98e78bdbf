package executor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Local runs commands through the local shell and tracks them in memory.
type Local struct {
	mu    sync.Mutex
	procs map[string]*localProcess
}

type localProcess struct {
	command   string
	cmd       *exec.Cmd
	startedAt time.Time
	done      chan struct{}

	// written once before done closes
	output     string
	errMsg     string
	returnCode int
	success    bool
}

// NewLocal creates a local process executor.
func NewLocal() *Local {
	return &Local{procs: make(map[string]*localProcess)}
}

func (l *Local) StartProcess(ctx context.Context, command string) (*StartResult, error) {
	if command == "" {
		return nil, fmt.Errorf("start process: empty command")
	}

	cmd := exec.Command("sh", "-c", command)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start process: %w", err)
	}

	proc := &localProcess{
		command:   command,
		cmd:       cmd,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
	token := uuid.NewString()

	l.mu.Lock()
	l.procs[token] = proc
	l.mu.Unlock()

	go func() {
		err := cmd.Wait()
		l.mu.Lock()
		proc.output = buf.String()
		if err != nil {
			proc.errMsg = err.Error()
			proc.returnCode = cmd.ProcessState.ExitCode()
		} else {
			proc.success = true
		}
		l.mu.Unlock()
		close(proc.done)
	}()

	return &StartResult{Token: token, Status: StatusRunning, PID: cmd.Process.Pid}, nil
}

func (l *Local) QueryProcess(ctx context.Context, token string, wait bool, timeout time.Duration) (*ProcessStatus, error) {
	l.mu.Lock()
	proc, ok := l.procs[token]
	l.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("query process: unknown token %s", token)
	}

	if wait {
		if timeout <= 0 {
			timeout = time.Minute
		}
		select {
		case <-proc.done:
		case <-time.After(timeout):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	select {
	case <-proc.done:
	default:
		return &ProcessStatus{Status: StatusRunning}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	status := &ProcessStatus{
		Status:     StatusCompleted,
		Success:    proc.success,
		Output:     proc.output,
		Error:      proc.errMsg,
		ReturnCode: proc.returnCode,
	}
	if proc.returnCode < 0 {
		status.Status = StatusTerminated
	}
	return status, nil
}

func (l *Local) ListRunning(ctx context.Context) ([]RunningProcess, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var running []RunningProcess
	for token, proc := range l.procs {
		select {
		case <-proc.done:
			continue
		default:
		}
		running = append(running, RunningProcess{
			Token:   token,
			Command: proc.command,
			Runtime: time.Since(proc.startedAt),
		})
	}
	return running, nil
}

var _ ProcessExecutor = (*Local)(nil)
