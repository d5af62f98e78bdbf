package dashboard

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

//go:embed static
var staticFS embed.FS

// Config holds dashboard server configuration.
type Config struct {
	ListenAddr string // e.g. ":9090"
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{ListenAddr: ":9090"}
}

// Server exposes the run store and event hub over HTTP: a read-only JSON
// API, an SSE stream, and the embedded frontend at the root.
type Server struct {
	config *Config
	store  *Store
	hub    *Hub
	server *http.Server
}

// NewServer builds the server and its routes. A nil config uses defaults.
func NewServer(config *Config, store *Store, hub *Hub) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	s := &Server{
		config: config,
		store:  store,
		hub:    hub,
	}

	// Method patterns let the mux reject non-GET traffic with 405.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/runs", s.handleRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleRun)
	mux.HandleFunc("GET /api/runs/{id}/logs", s.handleLogs)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/events", s.handleSSE)
	mux.HandleFunc("GET /", s.handleStatic)

	s.server = &http.Server{
		Addr:         config.ListenAddr,
		Handler:      corsMiddleware(loggingMiddleware(mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start begins serving the dashboard.
func (s *Server) Start() error {
	slog.Info("Starting dashboard server", "addr", s.config.ListenAddr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	slog.Info("Stopping dashboard server")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.store.ListRuns())
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.store.GetRun(r.PathValue("id"))
	if !ok {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	respondJSON(w, run)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	respondJSON(w, s.store.GetLogs(r.PathValue("id"), limit))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.store.GetStats())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	client, err := NewClient(s.hub, w)
	if err != nil {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	s.hub.Register(client)
	defer s.hub.Unregister(client)

	slog.Info("SSE client connected")

	data, _ := json.Marshal(&Event{Type: "connected", Timestamp: time.Now()})
	client.write(data)

	go client.KeepAlive(30 * time.Second)

	<-r.Context().Done()
	slog.Info("SSE client disconnected")
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	staticFiles, err := fs.Sub(staticFS, "static")
	if err != nil {
		slog.Error("Failed to access static files", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.FileServer(http.FS(staticFiles)).ServeHTTP(w, r)
}

func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}
