package server

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"
)

// ShutdownHook is one step of an ordered teardown. Lower priorities run
// first, so outer surfaces (HTTP listeners) stop before the resources
// they depend on (graph driver, audit log).
type ShutdownHook struct {
	Name     string
	Priority int
	Fn       func(ctx context.Context) error
}

// ShutdownConfig tunes the handler.
type ShutdownConfig struct {
	// Timeout bounds the whole hook sequence. Default 30s.
	Timeout time.Duration
	// Signals that trigger shutdown. Default SIGTERM and SIGINT.
	Signals []os.Signal
}

// DefaultShutdownConfig returns the standard timeout and signal set.
func DefaultShutdownConfig() *ShutdownConfig {
	return &ShutdownConfig{
		Timeout: 30 * time.Second,
		Signals: []os.Signal{syscall.SIGTERM, syscall.SIGINT},
	}
}

// ShutdownHandler turns a signal or a manual Shutdown call into one
// ordered run of the registered hooks. Hooks run at most once.
type ShutdownHandler struct {
	timeout time.Duration
	signals []os.Signal

	mu      sync.Mutex
	hooks   []ShutdownHook
	started bool

	shutdownCh   chan struct{}
	doneCh       chan struct{}
	shutdownOnce sync.Once
	doneOnce     sync.Once
}

// NewShutdownHandler creates a handler. Nothing happens until Start.
func NewShutdownHandler(config *ShutdownConfig) *ShutdownHandler {
	if config == nil {
		config = DefaultShutdownConfig()
	}
	return &ShutdownHandler{
		timeout:    config.Timeout,
		signals:    config.Signals,
		shutdownCh: make(chan struct{}, 1),
		doneCh:     make(chan struct{}),
	}
}

// RegisterHook adds a hook. Registration order breaks priority ties.
func (s *ShutdownHandler) RegisterHook(name string, priority int, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, ShutdownHook{Name: name, Priority: priority, Fn: fn})
	sort.SliceStable(s.hooks, func(i, j int) bool {
		return s.hooks[i].Priority < s.hooks[j].Priority
	})
}

// Start begins watching for shutdown signals.
func (s *ShutdownHandler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, s.signals...)

	go func() {
		select {
		case sig := <-sigCh:
			slog.Info("shutdown signal received", "signal", sig.String())
		case <-s.shutdownCh:
		}
		signal.Stop(sigCh)
		s.runHooks()
	}()
}

// Shutdown triggers the teardown manually. A no-op before Start.
func (s *ShutdownHandler) Shutdown() {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return
	}
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })
}

// Wait blocks until every hook has run.
func (s *ShutdownHandler) Wait() { <-s.doneCh }

// WaitWithTimeout reports whether teardown finished within the timeout.
func (s *ShutdownHandler) WaitWithTimeout(timeout time.Duration) bool {
	select {
	case <-s.doneCh:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Done closes when teardown is complete.
func (s *ShutdownHandler) Done() <-chan struct{} { return s.doneCh }

// ShutdownCh closes when teardown begins. Loops select on it to stop
// producing work before their resources go away.
func (s *ShutdownHandler) ShutdownCh() <-chan struct{} { return s.shutdownCh }

func (s *ShutdownHandler) runHooks() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.mu.Lock()
	hooks := make([]ShutdownHook, len(s.hooks))
	copy(hooks, s.hooks)
	s.mu.Unlock()

	// A failing hook must not strand the ones after it.
	for _, hook := range hooks {
		if err := hook.Fn(ctx); err != nil {
			slog.Warn("shutdown hook failed", "hook", hook.Name, "error", err)
		}
	}

	s.doneOnce.Do(func() { close(s.doneCh) })
}

// Hook constructors below fix the relative ordering of the usual
// teardown steps so call sites do not invent priorities ad hoc.

// HTTPServerShutdownHook stops an HTTP listener early, before the
// resources its handlers read from.
func HTTPServerShutdownHook(name string, shutdownFn func(ctx context.Context) error) ShutdownHook {
	return ShutdownHook{Name: name, Priority: 10, Fn: shutdownFn}
}

// TemporalWorkerShutdownHook stops workflow polling after listeners are
// down but while the graph is still reachable.
func TemporalWorkerShutdownHook(stopFn func()) ShutdownHook {
	return ShutdownHook{
		Name:     "temporal-worker",
		Priority: 20,
		Fn: func(ctx context.Context) error {
			stopFn()
			return nil
		},
	}
}

// TracingShutdownHook flushes pending spans near the end.
func TracingShutdownHook(shutdownFn func(ctx context.Context) error) ShutdownHook {
	return ShutdownHook{Name: "tracing", Priority: 80, Fn: shutdownFn}
}

// GraphShutdownHook closes the graph driver late, after in-flight
// dispatches are done.
func GraphShutdownHook(closeFn func(ctx context.Context) error) ShutdownHook {
	return ShutdownHook{Name: "graph", Priority: 90, Fn: closeFn}
}

// AuditLoggerShutdownHook closes the audit log last so earlier hooks
// can still record events.
func AuditLoggerShutdownHook(closeFn func() error) ShutdownHook {
	return ShutdownHook{
		Name:     "audit-logger",
		Priority: 95,
		Fn: func(ctx context.Context) error {
			return closeFn()
		},
	}
}

// GracefulServer pairs the health endpoint with shutdown handling: the
// readiness probe flips to not-ready the moment teardown begins, and
// the health listener itself stops first.
type GracefulServer struct {
	Health   *HealthServer
	Shutdown *ShutdownHandler
}

// NewGracefulServer builds the pair with nil-able configs.
func NewGracefulServer(healthConfig *HealthConfig, shutdownConfig *ShutdownConfig) *GracefulServer {
	g := &GracefulServer{
		Health:   NewHealthServer(healthConfig),
		Shutdown: NewShutdownHandler(shutdownConfig),
	}

	g.Shutdown.RegisterHook("health-server", 5, func(ctx context.Context) error {
		g.Health.Shutdown()
		return nil
	})
	go func() {
		<-g.Shutdown.ShutdownCh()
		g.Health.SetReady(false)
	}()

	return g
}

// Start launches the health listener and arms the signal watcher.
func (g *GracefulServer) Start(addr string) error {
	g.Shutdown.Start()
	go g.Health.ListenAndServe(addr)
	g.Health.SetReady(true)
	return nil
}

// Wait blocks until teardown is complete.
func (g *GracefulServer) Wait() { g.Shutdown.Wait() }

// RegisterHook adds a shutdown hook.
func (g *GracefulServer) RegisterHook(name string, priority int, fn func(ctx context.Context) error) {
	g.Shutdown.RegisterHook(name, priority, fn)
}

// AddHook registers a prebuilt hook.
func (g *GracefulServer) AddHook(h ShutdownHook) {
	g.Shutdown.RegisterHook(h.Name, h.Priority, h.Fn)
}
