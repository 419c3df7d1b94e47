// Package server exposes the dataset pipeline over HTTP.
//
// Routes:
//
//	POST /api/v1/datasets → multipart upload (part "file", optional "table")
//	POST /api/v1/query    → {"filters": {"field": "value"}} filter query
//	GET  /api/v1/status   → tracked dataset status
//	GET  /healthz         → liveness
//	GET  /metrics         → Prometheus scrape, when configured
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"datasetd/internal/logging"
	"datasetd/internal/pipeline"
	"datasetd/internal/query"
)

// Config controls server startup.
type Config struct {
	Addr           string
	RequestTimeout time.Duration
	MaxUploadBytes int64
	ChunkSize      int
	UploadsDir     string

	// Metrics, when non-nil, is served at /metrics.
	Metrics http.Handler
}

// Server wires the orchestrator and query engine to HTTP routes.
type Server struct {
	cfg    Config
	mux    *http.ServeMux
	orch   *pipeline.Orchestrator
	engine *query.Engine
	log    *zap.Logger
	srv    *http.Server
}

// NewServer constructs a Server with its routes registered.
func NewServer(cfg Config, orch *pipeline.Orchestrator, engine *query.Engine, log *zap.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		mux:    http.NewServeMux(),
		orch:   orch,
		engine: engine,
		log:    logging.OrNop(log),
	}
	s.routes()
	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return requestLogger(s.log)(withTimeout(s.cfg.RequestTimeout)(s.mux))
}

// ListenAndServe starts the HTTP server. It returns nil after Shutdown.
func (s *Server) ListenAndServe() error {
	s.log.Info("http server listening", zap.String("addr", s.cfg.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/v1/datasets", s.handleUpload)
	s.mux.HandleFunc("POST /api/v1/query", s.handleQuery)
	s.mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.cfg.Metrics != nil {
		s.mux.Handle("GET /metrics", s.cfg.Metrics)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.Status())
}
