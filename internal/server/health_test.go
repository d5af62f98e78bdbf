package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewHealthServer(t *testing.T) {
	s := NewHealthServer(nil)
	if s == nil {
		t.Fatal("expected non-nil server")
	}
}

func TestNewHealthServer_WithConfig(t *testing.T) {
	s := NewHealthServer(&HealthConfig{Version: "1.0.0"})
	if s.version != "1.0.0" {
		t.Fatalf("expected version 1.0.0, got %s", s.version)
	}
}

func TestHealthServer_SetReady(t *testing.T) {
	s := NewHealthServer(nil)

	if s.ready {
		t.Fatal("expected not ready initially")
	}

	s.SetReady(true)
	if !s.ready {
		t.Fatal("expected ready after SetReady(true)")
	}

	s.SetReady(false)
	if s.ready {
		t.Fatal("expected not ready after SetReady(false)")
	}
}

func TestHealthServer_SetLive(t *testing.T) {
	s := NewHealthServer(nil)

	if !s.live {
		t.Fatal("expected live initially")
	}

	s.SetLive(false)
	if s.live {
		t.Fatal("expected not live after SetLive(false)")
	}
}

func TestHealthServer_HandleHealth(t *testing.T) {
	s := NewHealthServer(&HealthConfig{Version: "1.0.0"})
	s.RegisterCheck("graph", func(ctx context.Context) HealthCheck {
		return HealthCheck{Status: HealthStatusHealthy, Message: "all good"}
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.handleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != HealthStatusHealthy {
		t.Fatalf("expected healthy, got %s", resp.Status)
	}
	if len(resp.Checks) != 1 || resp.Checks[0].Name != "graph" {
		t.Fatalf("unexpected checks: %+v", resp.Checks)
	}
}

func TestHealthServer_HandleHealth_Unhealthy(t *testing.T) {
	s := NewHealthServer(nil)
	s.RegisterCheck("graph", func(ctx context.Context) HealthCheck {
		return HealthCheck{Status: HealthStatusUnhealthy, Message: "connection refused"}
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.handleHealth(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestHealthServer_HandleHealth_DegradedDoesNotFail(t *testing.T) {
	s := NewHealthServer(nil)
	s.RegisterCheck("scheduler", func(ctx context.Context) HealthCheck {
		return HealthCheck{Status: HealthStatusDegraded}
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.handleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for degraded, got %d", w.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != HealthStatusDegraded {
		t.Fatalf("expected degraded overall status, got %s", resp.Status)
	}
}

func TestHealthServer_HandleReady(t *testing.T) {
	s := NewHealthServer(nil)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	s.handleReady(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before ready, got %d", w.Code)
	}

	s.SetReady(true)
	w = httptest.NewRecorder()
	s.handleReady(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 when ready, got %d", w.Code)
	}
}

func TestHealthServer_HandleLive(t *testing.T) {
	s := NewHealthServer(nil)

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	w := httptest.NewRecorder()
	s.handleLive(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 while live, got %d", w.Code)
	}

	s.SetLive(false)
	w = httptest.NewRecorder()
	s.handleLive(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when not live, got %d", w.Code)
	}
}

func TestHealthServer_Mount(t *testing.T) {
	s := NewHealthServer(nil)
	s.Mount("/metrics", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("taskgraph_queries_total 0\n"))
	}))

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from mounted handler, got %d", resp.StatusCode)
	}
}

func TestGraphHealthChecker(t *testing.T) {
	healthy := GraphHealthChecker(func(ctx context.Context) error { return nil })
	check := healthy(context.Background())
	if check.Status != HealthStatusHealthy {
		t.Fatalf("expected healthy, got %s", check.Status)
	}

	failing := GraphHealthChecker(func(ctx context.Context) error {
		return errors.New("connection refused")
	})
	check = failing(context.Background())
	if check.Status != HealthStatusUnhealthy {
		t.Fatalf("expected unhealthy, got %s", check.Status)
	}
}

func TestTemporalHealthChecker(t *testing.T) {
	failing := TemporalHealthChecker(func(ctx context.Context) error {
		return errors.New("dial timeout")
	})
	check := failing(context.Background())
	if check.Status != HealthStatusUnhealthy {
		t.Fatalf("expected unhealthy, got %s", check.Status)
	}
}

func TestSchedulerHealthChecker(t *testing.T) {
	good := SchedulerHealthChecker(func(ctx context.Context) (float64, error) {
		return 92.5, nil
	}, 50)
	check := good(context.Background())
	if check.Status != HealthStatusHealthy {
		t.Fatalf("expected healthy, got %s", check.Status)
	}
	if check.Details["score"] != "92.5" {
		t.Fatalf("unexpected score detail: %q", check.Details["score"])
	}

	low := SchedulerHealthChecker(func(ctx context.Context) (float64, error) {
		return 30, nil
	}, 50)
	check = low(context.Background())
	if check.Status != HealthStatusDegraded {
		t.Fatalf("expected degraded for low score, got %s", check.Status)
	}

	broken := SchedulerHealthChecker(func(ctx context.Context) (float64, error) {
		return 0, errors.New("graph unavailable")
	}, 50)
	check = broken(context.Background())
	if check.Status != HealthStatusUnhealthy {
		t.Fatalf("expected unhealthy on error, got %s", check.Status)
	}
}

func TestExecutorHealthChecker(t *testing.T) {
	ok := ExecutorHealthChecker(func(ctx context.Context) (int, error) { return 3, nil })
	check := ok(context.Background())
	if check.Status != HealthStatusHealthy {
		t.Fatalf("expected healthy, got %s", check.Status)
	}
	if check.Details["running"] != "3" {
		t.Fatalf("unexpected running detail: %q", check.Details["running"])
	}
}
