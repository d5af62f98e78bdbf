package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// AuditEventType categorizes audit events.
type AuditEventType string

const (
	AuditEventTaskDispatch  AuditEventType = "task.dispatch"
	AuditEventTaskComplete  AuditEventType = "task.complete"
	AuditEventTaskFail      AuditEventType = "task.fail"
	AuditEventTaskFallback  AuditEventType = "task.fallback"
	AuditEventTaskCleanup   AuditEventType = "task.cleanup"
	AuditEventGraphQuery    AuditEventType = "graph.query"
	AuditEventSyncOrphaned  AuditEventType = "sync.orphaned"
	AuditEventSyncStale     AuditEventType = "sync.stale"
	AuditEventSchedulerPass AuditEventType = "scheduler.pass"
)

// AuditEvent represents a single audit log entry.
type AuditEvent struct {
	Timestamp   time.Time              `json:"timestamp"`
	EventType   AuditEventType         `json:"event_type"`
	SessionID   string                 `json:"session_id"`
	TaskID      string                 `json:"task_id,omitempty"`
	Token       string                 `json:"token,omitempty"`
	Success     bool                   `json:"success"`
	Duration    time.Duration          `json:"duration_ms,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
	ErrorDetail string                 `json:"error_detail,omitempty"`
}

// AuditLogger handles audit event logging.
type AuditLogger struct {
	mu        sync.Mutex
	writer    io.Writer
	sessionID string
	enabled   bool
}

// AuditConfig configures the audit logger.
type AuditConfig struct {
	Enabled    bool
	OutputPath string // File path or "stdout"/"stderr"
	SessionID  string
}

// DefaultAuditConfig returns default audit configuration.
func DefaultAuditConfig() *AuditConfig {
	return &AuditConfig{
		Enabled:    true,
		OutputPath: "stdout",
	}
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(config *AuditConfig) (*AuditLogger, error) {
	if config == nil {
		config = DefaultAuditConfig()
	}

	var writer io.Writer
	switch config.OutputPath {
	case "stdout", "":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		f, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		writer = f
	}

	sessionID := config.SessionID
	if sessionID == "" {
		sessionID = fmt.Sprintf("session-%d", time.Now().UnixNano())
	}

	return &AuditLogger{
		writer:    writer,
		sessionID: sessionID,
		enabled:   config.Enabled,
	}, nil
}

// Log writes an audit event.
func (l *AuditLogger) Log(event *AuditEvent) error {
	if !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Fill in defaults
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.SessionID == "" {
		event.SessionID = l.sessionID
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	_, err = fmt.Fprintf(l.writer, "%s\n", data)
	return err
}

// LogTaskDispatch logs a task dispatch event.
func (l *AuditLogger) LogTaskDispatch(ctx context.Context, taskID, token, command string) {
	l.Log(&AuditEvent{
		EventType: AuditEventTaskDispatch,
		TaskID:    taskID,
		Token:     token,
		Success:   true,
		Message:   fmt.Sprintf("Task %s dispatched", taskID),
		Details: map[string]interface{}{
			"command": command,
		},
	})
}

// LogTaskComplete logs a task completion event.
func (l *AuditLogger) LogTaskComplete(ctx context.Context, taskID, token string, duration time.Duration, newlyReady []string) {
	l.Log(&AuditEvent{
		EventType: AuditEventTaskComplete,
		TaskID:    taskID,
		Token:     token,
		Success:   true,
		Duration:  duration,
		Message:   fmt.Sprintf("Task %s completed", taskID),
		Details: map[string]interface{}{
			"newly_ready": newlyReady,
		},
	})
}

// LogTaskFail logs a task failure event.
func (l *AuditLogger) LogTaskFail(ctx context.Context, taskID, token string, returnCode int, errMsg string) {
	l.Log(&AuditEvent{
		EventType:   AuditEventTaskFail,
		TaskID:      taskID,
		Token:       token,
		Success:     false,
		Message:     fmt.Sprintf("Task %s failed", taskID),
		ErrorDetail: errMsg,
		Details: map[string]interface{}{
			"return_code": returnCode,
		},
	})
}

// LogTaskFallback logs activation of a fallback task.
func (l *AuditLogger) LogTaskFallback(ctx context.Context, failedTaskID, fallbackTaskID string) {
	l.Log(&AuditEvent{
		EventType: AuditEventTaskFallback,
		TaskID:    fallbackTaskID,
		Success:   true,
		Message:   fmt.Sprintf("Fallback %s reset to pending for failed task %s", fallbackTaskID, failedTaskID),
		Details: map[string]interface{}{
			"failed_task": failedTaskID,
		},
	})
}

// LogTaskCleanup logs dispatch of a cleanup task.
func (l *AuditLogger) LogTaskCleanup(ctx context.Context, failedTaskID, cleanupTaskID string) {
	l.Log(&AuditEvent{
		EventType: AuditEventTaskCleanup,
		TaskID:    cleanupTaskID,
		Success:   true,
		Message:   fmt.Sprintf("Cleanup %s triggered for failed task %s", cleanupTaskID, failedTaskID),
		Details: map[string]interface{}{
			"failed_task": failedTaskID,
		},
	})
}

// LogGraphQuery logs a graph query event.
func (l *AuditLogger) LogGraphQuery(ctx context.Context, operation string, recordCount int, duration time.Duration, err error) {
	event := &AuditEvent{
		EventType: AuditEventGraphQuery,
		Success:   err == nil,
		Duration:  duration,
		Message:   fmt.Sprintf("Graph query: %s", operation),
		Details: map[string]interface{}{
			"operation":    operation,
			"record_count": recordCount,
		},
	}
	if err != nil {
		event.ErrorDetail = err.Error()
	}
	l.Log(event)
}

// LogSyncOrphaned logs an executor token with no tracked task.
func (l *AuditLogger) LogSyncOrphaned(ctx context.Context, token, command string) {
	l.Log(&AuditEvent{
		EventType: AuditEventSyncOrphaned,
		Token:     token,
		Success:   true,
		Message:   fmt.Sprintf("Orphaned executor process %s", token),
		Details: map[string]interface{}{
			"command": command,
		},
	})
}

// LogSyncStale logs a running task with no executor process.
func (l *AuditLogger) LogSyncStale(ctx context.Context, taskID string) {
	l.Log(&AuditEvent{
		EventType: AuditEventSyncStale,
		TaskID:    taskID,
		Success:   false,
		Message:   fmt.Sprintf("Stale running task %s force-failed", taskID),
	})
}

// LogSchedulerPass logs a scheduling pass.
func (l *AuditLogger) LogSchedulerPass(ctx context.Context, taskCount, readyCount, dispatchedCount int, duration time.Duration) {
	l.Log(&AuditEvent{
		EventType: AuditEventSchedulerPass,
		Success:   true,
		Duration:  duration,
		Message:   fmt.Sprintf("Scheduling pass: %d ready, %d dispatched", readyCount, dispatchedCount),
		Details: map[string]interface{}{
			"task_count":       taskCount,
			"ready_count":      readyCount,
			"dispatched_count": dispatchedCount,
		},
	})
}

// Close closes the audit logger (if using a file).
func (l *AuditLogger) Close() error {
	if closer, ok := l.writer.(io.Closer); ok {
		if closer != os.Stdout && closer != os.Stderr {
			return closer.Close()
		}
	}
	return nil
}

// Global audit logger instance
var globalAuditLogger *AuditLogger
var auditOnce sync.Once

// InitGlobalAuditLogger initializes the global audit logger.
func InitGlobalAuditLogger(config *AuditConfig) error {
	var err error
	auditOnce.Do(func() {
		globalAuditLogger, err = NewAuditLogger(config)
	})
	return err
}

// Audit returns the global audit logger.
func Audit() *AuditLogger {
	if globalAuditLogger == nil {
		// Return a disabled logger if not initialized
		return &AuditLogger{enabled: false}
	}
	return globalAuditLogger
}
