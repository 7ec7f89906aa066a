// Package server exposes the dashboard HTTP API: thin proxy endpoints in
// front of the Saros API plus the analysis and backtest surface.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"dlmm-position-lab/internal/analysis"
	"dlmm-position-lab/internal/observability"
	"dlmm-position-lab/internal/saros"
	"dlmm-position-lab/internal/simulation"
	"dlmm-position-lab/internal/storage"
)

// Server wires the gateway, simulation engine and stores behind HTTP
// handlers. All state lives in the injected components.
type Server struct {
	gateway   *saros.Client
	presenter *analysis.Presenter
	engine    *simulation.Engine

	positions storage.PositionStore
	runs      storage.BacktestRunStore
	perf      storage.PerformancePointStore

	metrics *observability.Metrics
	logger  *log.Logger
	started time.Time
	now     func() time.Time
}

// Option configures Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMetrics attaches Prometheus metrics. Nil metrics are a no-op.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithClock overrides the time source for run IDs and uptime.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// NewServer creates a Server. The stores may be the in-memory or the
// database-backed implementations; perf may be nil when no series store is
// configured.
func NewServer(
	gateway *saros.Client,
	presenter *analysis.Presenter,
	engine *simulation.Engine,
	positions storage.PositionStore,
	runs storage.BacktestRunStore,
	perf storage.PerformancePointStore,
	opts ...Option,
) *Server {
	s := &Server{
		gateway:   gateway,
		presenter: presenter,
		engine:    engine,
		positions: positions,
		runs:      runs,
		perf:      perf,
		logger:    log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.started = s.now()
	return s
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Upstream proxy
	mux.HandleFunc("/api/bin-position", s.handleBinPositionProxy)
	mux.HandleFunc("/api/pool-position", s.handlePoolPositionProxy)

	// Dashboard API
	mux.HandleFunc("/api/positions", s.handlePositions)
	mux.HandleFunc("/api/pool", s.handlePool)
	mux.HandleFunc("/api/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/backtest", s.handleBacktest)
	mux.HandleFunc("/api/backtest/export", s.handleBacktestExport)
	mux.HandleFunc("/api/rebalance", s.handleRebalance)

	// Operational endpoints
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)

	return mux
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status           string    `json:"status"`
	Uptime           string    `json:"uptime"`
	Started          time.Time `json:"started"`
	PositionsTracked int       `json:"positions_tracked"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:           "running",
		Uptime:           s.now().Sub(s.started).String(),
		Started:          s.started,
		PositionsTracked: len(s.presenter.Analyses()),
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorResponse is the uniform error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

// writeError writes the {"error": ...} envelope.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// newRunID builds a unique backtest run identifier.
func (s *Server) newRunID() string {
	return fmt.Sprintf("run-%d", s.now().UnixNano())
}
