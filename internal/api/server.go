package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"git.home.luguber.info/inful/docrestyle/internal/foundation/errors"
	"git.home.luguber.info/inful/docrestyle/internal/state"
	"git.home.luguber.info/inful/docrestyle/internal/version"
)

// StatusProvider reports the most recent run, or nil when none has completed.
type StatusProvider interface {
	LastRun(ctx context.Context) (*state.Run, error)
}

// Server is the daemon's status API.
type Server struct {
	Addr     string
	router   *chi.Mux
	server   *http.Server
	listener net.Listener
	status   StatusProvider
	metrics  http.Handler
	errors   *errors.HTTPErrorAdapter
	started  time.Time
}

// NewServer creates a new API server. metricsHandler may be nil, in which case
// /metrics is not mounted.
func NewServer(addr string, status StatusProvider, metricsHandler http.Handler) *Server {
	s := &Server{
		Addr:    addr,
		router:  chi.NewRouter(),
		status:  status,
		metrics: metricsHandler,
		errors:  errors.NewHTTPErrorAdapter(nil),
		started: time.Now(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(RequestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/status", s.handleStatus)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics)
	}
}

// Listen binds the configured address. After it returns, BoundAddr reports
// the actual address, which matters when the port was 0.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return errors.WrapError(err, errors.CategoryDaemon, "failed to listen").
			WithContext("addr", s.Addr).Build()
	}
	s.listener = ln
	return nil
}

// BoundAddr returns the listening address, or the configured one before Listen.
func (s *Server) BoundAddr() string {
	if s.listener == nil {
		return s.Addr
	}
	return s.listener.Addr().String()
}

// Serve blocks until the server is shut down. It returns nil on a clean shutdown.
func (s *Server) Serve() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	if err := s.server.Serve(s.listener); err != nil && err != http.ErrServerClosed {
		return errors.WrapError(err, errors.CategoryDaemon, "status server failed").Build()
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// HealthResponse is the /healthz payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// StatusResponse is the /status payload.
type StatusResponse struct {
	Version string     `json:"version"`
	LastRun *state.Run `json:"last_run"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	run, err := s.status.LastRun(r.Context())
	if err != nil {
		s.errors.WriteErrorResponse(w, r, err)
		return
	}
	if run == nil {
		s.errors.WriteErrorResponse(w, r, errors.NewError(errors.CategoryNotFound, "no run has completed yet").Build())
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Version: version.Version, LastRun: run})
}
