// Package api exposes the daemon's read-only HTTP surface: health, the
// latest run summary, the registered process table, and Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hiveworks/swarmkernel/pkg/kernel"
	"github.com/hiveworks/swarmkernel/pkg/logging"
	"github.com/hiveworks/swarmkernel/pkg/ratelimit"
	"github.com/hiveworks/swarmkernel/pkg/tracing"
)

// Server serves kernel state over HTTP. It only reads: all mutation happens
// through the kernel's registration API before the daemon starts ticking.
type Server struct {
	kernel *kernel.Kernel
	log    *logging.Logger
	srv    *http.Server

	// last is published by the tick-loop goroutine and read by handler
	// goroutines; summaries are immutable once published, so an atomic
	// pointer swap is the only synchronization needed.
	last atomic.Pointer[kernel.RunSummary]

	tracer  *tracing.Provider
	limiter *ratelimit.Limiter
}

// Option configures the server at construction.
type Option func(*Server)

// WithTracing traces every request through the given provider.
func WithTracing(p *tracing.Provider) Option {
	return func(s *Server) { s.tracer = p }
}

// WithRateLimit rejects over-limit clients with 429, keyed by address.
func WithRateLimit(l *ratelimit.Limiter) Option {
	return func(s *Server) { s.limiter = l }
}

// NewServer creates a server for the given kernel. The Prometheus gatherer
// backs /metrics; pass prometheus.DefaultGatherer unless testing.
func NewServer(addr string, k *kernel.Kernel, gatherer prometheus.Gatherer, log *logging.Logger, opts ...Option) *Server {
	s := &Server{kernel: k, log: log}
	for _, opt := range opts {
		opt(s)
	}

	router := mux.NewRouter()
	if s.tracer != nil {
		router.Use(tracing.HTTPMiddleware(s.tracer))
	}
	if s.limiter != nil {
		router.Use(s.limiter.Middleware(ratelimit.IPKeyFunc))
	}
	router.HandleFunc("/healthz", s.Health).Methods("GET")
	router.HandleFunc("/summary", s.Summary).Methods("GET")
	router.HandleFunc("/processes", s.Processes).Methods("GET")
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// RecordSummary publishes the latest invocation result.
func (s *Server) RecordSummary(sum *kernel.RunSummary) {
	s.last.Store(sum)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start serves until Shutdown. It blocks; run it in a goroutine.
func (s *Server) Start() error {
	s.log.Info("API server listening", map[string]interface{}{"addr": s.srv.Addr})
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Health reports liveness.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// Summary returns the most recent run summary, or 404 before the first tick.
func (s *Server) Summary(w http.ResponseWriter, r *http.Request) {
	sum := s.last.Load()
	if sum == nil {
		http.Error(w, "no invocation has completed yet", http.StatusNotFound)
		return
	}
	writeJSON(w, sum)
}

// Processes returns the registered process table in execution order.
func (s *Server) Processes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.kernel.Descriptors())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding failed", http.StatusInternalServerError)
	}
}
