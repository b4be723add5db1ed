// Package serve provides the local trace-provider HTTP server the viewer
// fetches converted traces from.
package serve

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/grovetools/traceport/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const (
	// DefaultAddr is where the viewer expects to find the trace.
	DefaultAddr = "127.0.0.1:9001"
	// TracePath is the URL path the trace is served at.
	TracePath = "/trace.proto"
	// DefaultGrace is how long a temporary server lingers after serving.
	DefaultGrace = 250 * time.Millisecond
)

// Link returns the viewer URL that loads the trace served at addr.
func Link(origin, addr string) string {
	return fmt.Sprintf("%s/#!/?url=%s", origin, (&url.URL{Scheme: "http", Host: addr, Path: TracePath}).String())
}

// Options configure a Server.
type Options struct {
	// Origin is allowed to fetch the trace cross-origin.
	Origin string
	// Temporary stops the server Grace after the first trace download.
	Temporary bool
	Grace     time.Duration
}

// Server serves a single trace to the viewer.
type Server struct {
	logger *logrus.Entry
	opts   Options
	server *http.Server

	mu    sync.RWMutex
	trace []byte
	etag  string
	mod   time.Time
	addr  string

	servedOnce sync.Once
	served     chan struct{}
	stopped    chan struct{}
	serveErr   error
}

// New creates a Server. Nothing is bound until Start.
func New(logger *logrus.Entry, opts Options) *Server {
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	return &Server{
		logger:  logger,
		opts:    opts,
		served:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// SetTrace replaces the served trace and issues a fresh ETag.
func (s *Server) SetTrace(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trace = data
	s.etag = `"` + uuid.NewString() + `"`
	s.mod = time.Now()
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+TracePath, s.handleTrace)
	mux.HandleFunc("POST /status", s.handleStatus)
	mux.HandleFunc("OPTIONS /", s.handlePreflight)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.logger.WithField("method", r.Method).WithField("path", r.URL.Path).Warn("Unknown request")
		http.NotFound(w, r)
	})
	return mux
}

// Start binds addr and serves in the background.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.addr = listener.Addr().String()
	s.mu.Unlock()

	s.server = &http.Server{
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.opts.Temporary {
		s.logger.Info("Starting temporary trace-provider server")
		go s.stopAfterServed()
	} else {
		s.logger.Info("Starting trace-provider server")
	}

	go func() {
		defer close(s.stopped)
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.serveErr = err
		}
		s.logger.Info("Server stopped")
	}()

	s.logger.WithField("addr", s.Addr()).Debug("Trace server listening")
	return nil
}

// Addr returns the bound address, valid after Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Served is closed after the trace has been downloaded once.
func (s *Server) Served() <-chan struct{} {
	return s.served
}

// Wait blocks until the server stops or ctx ends; ctx ending shuts the
// server down.
func (s *Server) Wait(ctx context.Context) error {
	select {
	case <-s.stopped:
		return s.serveErr
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-s.stopped
		return s.serveErr
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Stopping server...")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) stopAfterServed() {
	select {
	case <-s.served:
	case <-s.stopped:
		return
	}
	time.Sleep(s.opts.Grace)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to stop temporary server")
	}
}

func (s *Server) allowOrigin(w http.ResponseWriter) {
	if s.opts.Origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", s.opts.Origin)
	}
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	data, etag, mod := s.trace, s.etag, s.mod
	s.mu.RUnlock()

	if data == nil {
		s.logger.Warn("Trace requested before one was loaded")
		http.Error(w, "no trace loaded", http.StatusNotFound)
		return
	}

	s.allowOrigin(w)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("ETag", etag)
	http.ServeContent(w, r, "trace.proto", mod, bytes.NewReader(data))

	s.logger.WithField("bytes", len(data)).Info("Serving trace")
	metrics.TracesServed.Inc()
	s.servedOnce.Do(func() { close(s.served) })
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("Acknowledging status request")
	s.allowOrigin(w)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handlePreflight(w http.ResponseWriter, r *http.Request) {
	s.allowOrigin(w)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "*")
	w.WriteHeader(http.StatusOK)
}
