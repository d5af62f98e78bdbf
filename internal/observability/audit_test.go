package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultAuditConfig(t *testing.T) {
	cfg := DefaultAuditConfig()
	if !cfg.Enabled {
		t.Fatal("expected enabled by default")
	}
	if cfg.OutputPath != "stdout" {
		t.Fatalf("expected stdout, got %s", cfg.OutputPath)
	}
}

func TestAuditLogger_New_File(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.log")

	l, err := NewAuditLogger(&AuditConfig{
		Enabled:    true,
		OutputPath: logPath,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer l.Close()

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		t.Fatal("expected log file to be created")
	}
}

func TestAuditLogger_New_NilConfig(t *testing.T) {
	l, err := NewAuditLogger(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l == nil {
		t.Fatal("expected non-nil logger with default config")
	}
}

func TestAuditLogger_Log_Disabled(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{
		writer:  &buf,
		enabled: false,
	}

	err := l.Log(&AuditEvent{EventType: AuditEventTaskDispatch})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() > 0 {
		t.Fatal("expected no output when disabled")
	}
}

func TestAuditLogger_Log_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{
		writer:    &buf,
		sessionID: "test-session",
		enabled:   true,
	}

	err := l.Log(&AuditEvent{
		EventType: AuditEventTaskDispatch,
		TaskID:    "task-1",
		Success:   true,
		Message:   "test message",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var event AuditEvent
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if event.EventType != AuditEventTaskDispatch {
		t.Fatalf("expected task.dispatch, got %s", event.EventType)
	}
	if event.TaskID != "task-1" {
		t.Fatalf("expected task-1, got %s", event.TaskID)
	}
	if event.SessionID != "test-session" {
		t.Fatalf("expected session filled in, got %s", event.SessionID)
	}
	if event.Timestamp.IsZero() {
		t.Fatal("expected timestamp filled in")
	}
}

func TestAuditLogger_LogTaskDispatch(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{writer: &buf, enabled: true}

	l.LogTaskDispatch(context.Background(), "task-1", "tok-abc", "make build")

	out := buf.String()
	if !strings.Contains(out, `"task.dispatch"`) {
		t.Fatal("expected task.dispatch event type")
	}
	if !strings.Contains(out, "tok-abc") {
		t.Fatal("expected token in output")
	}
	if !strings.Contains(out, "make build") {
		t.Fatal("expected command in details")
	}
}

func TestAuditLogger_LogTaskComplete(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{writer: &buf, enabled: true}

	l.LogTaskComplete(context.Background(), "task-1", "tok-abc", 2*time.Second, []string{"task-2", "task-3"})

	out := buf.String()
	if !strings.Contains(out, `"task.complete"`) {
		t.Fatal("expected task.complete event type")
	}
	if !strings.Contains(out, "task-2") {
		t.Fatal("expected newly ready tasks in details")
	}
}

func TestAuditLogger_LogTaskFail(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{writer: &buf, enabled: true}

	l.LogTaskFail(context.Background(), "task-1", "tok-abc", 3, "exit status 3")

	var event AuditEvent
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if event.EventType != AuditEventTaskFail {
		t.Fatalf("expected task.fail, got %s", event.EventType)
	}
	if event.Success {
		t.Fatal("expected success=false")
	}
	if event.ErrorDetail != "exit status 3" {
		t.Fatalf("expected error detail, got %s", event.ErrorDetail)
	}
}

func TestAuditLogger_LogTaskFallback(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{writer: &buf, enabled: true}

	l.LogTaskFallback(context.Background(), "task-1", "task-1-fallback")

	out := buf.String()
	if !strings.Contains(out, `"task.fallback"`) {
		t.Fatal("expected task.fallback event type")
	}
	if !strings.Contains(out, "task-1-fallback") {
		t.Fatal("expected fallback task in output")
	}
}

func TestAuditLogger_LogSyncEvents(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{writer: &buf, enabled: true}

	l.LogSyncOrphaned(context.Background(), "tok-unknown", "sleep 60")
	l.LogSyncStale(context.Background(), "task-9")

	out := buf.String()
	if !strings.Contains(out, `"sync.orphaned"`) {
		t.Fatal("expected sync.orphaned event type")
	}
	if !strings.Contains(out, `"sync.stale"`) {
		t.Fatal("expected sync.stale event type")
	}
	if !strings.Contains(out, "task-9") {
		t.Fatal("expected stale task id in output")
	}
}

func TestAuditLogger_LogSchedulerPass(t *testing.T) {
	var buf bytes.Buffer
	l := &AuditLogger{writer: &buf, enabled: true}

	l.LogSchedulerPass(context.Background(), 20, 5, 3, 40*time.Millisecond)

	out := buf.String()
	if !strings.Contains(out, `"scheduler.pass"`) {
		t.Fatal("expected scheduler.pass event type")
	}
	if !strings.Contains(out, `"dispatched_count":3`) {
		t.Fatal("expected dispatched count in details")
	}
}

func TestAudit_Uninitialized(t *testing.T) {
	// Global logger not initialized in this process; returns disabled logger.
	l := Audit()
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if err := l.Log(&AuditEvent{EventType: AuditEventGraphQuery}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
