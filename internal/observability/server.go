// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package observability serves bridge metrics and health probes over HTTP.
package observability

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"

	"github.com/mfkl/vlclr/internal/events"
	"github.com/mfkl/vlclr/internal/frame"
	"github.com/mfkl/vlclr/internal/loader"
)

// Probe paths.
const (
	MetricsPath   = "/metrics"
	LivenessPath  = "/healthz/liveness"
	ReadinessPath = "/healthz/readiness"
)

// ReadinessChecker reports whether a managed module is open.
type ReadinessChecker func() bool

// Metrics groups the bridge component metrics served by the server.
type Metrics struct {
	Loader *loader.Metrics
	Events *events.Metrics
	Frames *frame.Metrics
}

// NewMetrics creates and registers the bridge component metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Loader: loader.NewMetrics(reg),
		Events: events.NewMetrics(reg),
		Frames: frame.NewMetrics(reg),
	}
}

// Server exposes the bridge metrics and probes. A Server runs at most once.
type Server struct {
	addr     string
	ready    ReadinessChecker
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *Metrics

	listener net.Listener
	http     *http.Server
	running  atomic.Bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a server for addr ("host:port"; port 0 picks a free
// port). A nil ready checker always reports ready.
func NewServer(addr string, ready ReadinessChecker, opts ...Option) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		addr:     addr,
		ready:    ready,
		logger:   slog.Default(),
		registry: registry,
		metrics:  NewMetrics(registry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Metrics returns the metrics to hand to the bridge components.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start listens on the configured address and serves in the background.
// The returned channel carries a serve failure and is closed when serving
// ends.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.In("observability").Errorf("server already running")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.In("observability").With("addr", s.addr).Wrapf(err, "failed to listen")
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.Handle(MetricsPath, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	mux.HandleFunc(LivenessPath, probe(nil, "alive", ""))
	mux.HandleFunc(ReadinessPath, probe(s.ready, "ready", "no module open"))

	s.http = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("observability server failed", "error", err)
			errCh <- err
		}
	}()

	s.logger.Info("observability server listening", "addr", ln.Addr().String())
	return errCh, nil
}

// Stop shuts the server down, waiting for in-flight requests until ctx
// ends. Stopping a server that is not running is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := s.http.Shutdown(ctx); err != nil {
		s.running.Store(true)
		return oops.In("observability").With("addr", s.Addr()).Wrapf(err, "failed to shut down")
	}
	s.logger.Info("observability server stopped")
	return nil
}

// Addr returns the listening address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// probe answers 200 with okBody while check passes (or is nil), 503 with
// failBody otherwise.
func probe(check func() bool, okBody, failBody string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		status, body := http.StatusOK, okBody
		if check != nil && !check() {
			status, body = http.StatusServiceUnavailable, failBody
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body + "\n"))
	}
}
