package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seantiz/geodig/internal/stream"
)

const readHeaderTimeout = 10 * time.Second

// Server exposes the worker's health, status and metrics endpoints. The
// consume loop is the worker's real job; this surface exists for probes and
// scraping.
type Server struct {
	router     *chi.Mux
	worker     *Worker
	log        stream.Log
	logger     *slog.Logger
	addr       string
	httpServer *http.Server
}

// NewServer creates the worker HTTP server for w.
func NewServer(addr string, w *Worker, log stream.Log, logger *slog.Logger) *Server {
	srv := &Server{
		router: chi.NewRouter(),
		worker: w,
		log:    log,
		logger: logger,
		addr:   addr,
	}

	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.Recoverer)
	srv.router.Use(srv.loggingMiddleware)

	srv.router.Get("/healthz", srv.handleHealthz)
	srv.router.Get("/status", srv.handleStatus)
	srv.router.Handle("/metrics", promhttp.Handler())

	return srv
}

// Router returns the chi router for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start begins serving and blocks until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	s.logger.Info("worker server listening", "addr", s.addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	redisStatus := "up"
	code := http.StatusOK
	if err := s.log.Ping(r.Context()); err != nil {
		status = "degraded"
		redisStatus = "down"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{
		"status": status,
		"redis":  redisStatus,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	redisStatus := "up"
	if err := s.log.Ping(r.Context()); err != nil {
		redisStatus = "down"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"origin":         s.worker.origin,
		"group":          s.worker.group,
		"tasks_stream":   s.worker.tasks,
		"results_stream": s.worker.results,
		"redis":          redisStatus,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
