package server

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewShutdownHandler_Defaults(t *testing.T) {
	s := NewShutdownHandler(nil)
	if s.timeout != 30*time.Second {
		t.Fatalf("expected 30s default timeout, got %v", s.timeout)
	}
}

func TestShutdownHandler_HooksRunInPriorityOrder(t *testing.T) {
	s := NewShutdownHandler(&ShutdownConfig{Timeout: time.Second})

	var order []string
	s.RegisterHook("late", 90, func(ctx context.Context) error {
		order = append(order, "late")
		return nil
	})
	s.RegisterHook("early", 10, func(ctx context.Context) error {
		order = append(order, "early")
		return nil
	})
	s.RegisterHook("mid", 50, func(ctx context.Context) error {
		order = append(order, "mid")
		return nil
	})

	s.Start()
	s.Shutdown()
	if !s.WaitWithTimeout(2 * time.Second) {
		t.Fatal("shutdown did not complete")
	}

	if len(order) != 3 || order[0] != "early" || order[1] != "mid" || order[2] != "late" {
		t.Fatalf("unexpected hook order: %v", order)
	}
}

func TestShutdownHandler_HookErrorDoesNotStopOthers(t *testing.T) {
	s := NewShutdownHandler(&ShutdownConfig{Timeout: time.Second})

	var ran atomic.Bool
	s.RegisterHook("failing", 10, func(ctx context.Context) error {
		return errors.New("close failed")
	})
	s.RegisterHook("after", 20, func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})

	s.Start()
	s.Shutdown()
	if !s.WaitWithTimeout(2 * time.Second) {
		t.Fatal("shutdown did not complete")
	}

	if !ran.Load() {
		t.Fatal("expected later hook to run after a failing hook")
	}
}

func TestShutdownHandler_ShutdownBeforeStartIsNoop(t *testing.T) {
	s := NewShutdownHandler(nil)
	s.Shutdown()

	select {
	case <-s.Done():
		t.Fatal("done channel should not close before Start")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestShutdownHandler_DoubleShutdown(t *testing.T) {
	s := NewShutdownHandler(&ShutdownConfig{Timeout: time.Second})
	s.Start()
	s.Shutdown()
	s.Shutdown() // must not panic
	if !s.WaitWithTimeout(2 * time.Second) {
		t.Fatal("shutdown did not complete")
	}
}

func TestTemporalWorkerShutdownHook(t *testing.T) {
	var stopped bool
	hook := TemporalWorkerShutdownHook(func() { stopped = true })

	if hook.Name != "temporal-worker" {
		t.Fatalf("unexpected hook name %q", hook.Name)
	}
	if err := hook.Fn(context.Background()); err != nil {
		t.Fatalf("hook returned error: %v", err)
	}
	if !stopped {
		t.Fatal("expected stop function to run")
	}
}

func TestGraphShutdownHook(t *testing.T) {
	var closed bool
	hook := GraphShutdownHook(func(ctx context.Context) error {
		closed = true
		return nil
	})

	if err := hook.Fn(context.Background()); err != nil {
		t.Fatalf("hook returned error: %v", err)
	}
	if !closed {
		t.Fatal("expected close function to run")
	}
	if hook.Priority <= TemporalWorkerShutdownHook(func() {}).Priority {
		t.Fatal("graph hook must run after worker hook")
	}
}

func TestGracefulServer_ShutdownMarksNotReady(t *testing.T) {
	g := NewGracefulServer(nil, &ShutdownConfig{Timeout: time.Second})
	g.Shutdown.Start()
	g.Health.SetReady(true)

	g.Shutdown.Shutdown()
	if !g.Shutdown.WaitWithTimeout(2 * time.Second) {
		t.Fatal("shutdown did not complete")
	}

	// The not-ready flip happens in a goroutine watching ShutdownCh.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		g.Health.mu.RLock()
		ready := g.Health.ready
		g.Health.mu.RUnlock()
		if !ready {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected health server to be marked not ready")
}
