package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbscanner/state"
	"github.com/michaelpento.lv/arbscanner/types"
)

// Controller is the running scanner as seen by the control surface
type Controller interface {
	Start(ctx context.Context, dryRun bool) error
	Stop() bool
	Running() bool
	Snapshot() state.Snapshot
	SetStrategyEnabled(kind types.Strategy, enabled bool) error
}

// Config holds the HTTP server configuration
type Config struct {
	Listen      string
	MetricsPath string
	// Gatherer serves MetricsPath when set
	Gatherer prometheus.Gatherer
}

// Server exposes status and run control over HTTP JSON
type Server struct {
	httpServer *http.Server
	ctrl       Controller
	logger     *zap.Logger
}

// NewServer registers every route on a fresh ServeMux
func NewServer(cfg Config, ctrl Controller, logger *zap.Logger) *Server {
	s := &Server{
		ctrl:   ctrl,
		logger: logger.With(zap.String("component", "control")),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /status", s.status)
	mux.HandleFunc("POST /start", s.start)
	mux.HandleFunc("POST /stop", s.stop)
	mux.HandleFunc("POST /strategies/{name}/toggle", s.toggle)
	if cfg.Gatherer != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Listen,
		Handler:      s.logging(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks until the server fails or is shut down
func (s *Server) ListenAndServe() error {
	s.logger.Info("Control server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("control: listen: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight requests within ctx
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("control: shutdown: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.code),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// decodeBody reads an optional JSON body into v. An empty body keeps v.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"running": s.ctrl.Running(),
	})
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) start(w http.ResponseWriter, r *http.Request) {
	req := struct {
		DryRun *bool `json:"dryRun"`
	}{}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	dryRun := true
	if req.DryRun != nil {
		dryRun = *req.DryRun
	}

	if err := s.ctrl.Start(r.Context(), dryRun); err != nil {
		if errors.Is(err, types.ErrAlreadyRunning) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.logger.Info("Scanning started", zap.Bool("dry_run", dryRun))
	writeJSON(w, http.StatusOK, map[string]any{"running": true, "dryRun": dryRun})
}

func (s *Server) stop(w http.ResponseWriter, _ *http.Request) {
	was := s.ctrl.Stop()
	if was {
		s.logger.Info("Scanning stopped")
	}
	writeJSON(w, http.StatusOK, map[string]any{"running": false, "wasRunning": was})
}

func (s *Server) toggle(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	kind, ok := types.ParseStrategy(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", types.ErrUnknownStrategy, name))
		return
	}

	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := decodeBody(r, &req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, errors.New(`body must be {"enabled": bool}`))
		return
	}

	if err := s.ctrl.SetStrategyEnabled(kind, *req.Enabled); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	s.logger.Info("Strategy toggled", zap.String("strategy", name), zap.Bool("enabled", *req.Enabled))
	writeJSON(w, http.StatusOK, map[string]any{"strategy": name, "enabled": *req.Enabled})
}
