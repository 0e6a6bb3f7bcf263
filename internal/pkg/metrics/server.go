package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/endorses/stringmatch/internal/pkg/constants"
	"github.com/endorses/stringmatch/internal/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves /metrics and /health for a Collector.
type Server struct {
	collector *Collector
	addr      string

	enabled  atomic.Bool
	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewServer creates a server listening on addr, e.g. ":9464".
func NewServer(c *Collector, addr string) *Server {
	return &Server{collector: c, addr: addr}
}

// Enable starts the HTTP server in the background.
func (s *Server) Enable() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.enabled.Load() {
		return nil
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.collector.Registry(), promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/health", healthHandler)

	s.listener = ln
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: constants.MetricsReadHeaderTimeout,
	}

	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server error", "error", err)
		}
	}(s.server)

	s.enabled.Store(true)
	logger.Info("Prometheus metrics enabled", "endpoint", fmt.Sprintf("http://%s/metrics", ln.Addr()))
	return nil
}

// Addr returns the address the server listens on, once enabled.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Disable stops the server, waiting for in-flight requests.
func (s *Server) Disable(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled.Load() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, constants.GracefulShutdownTimeout)
	defer cancel()

	err := s.server.Shutdown(ctx)
	s.server = nil
	s.listener = nil
	s.enabled.Store(false)

	if err != nil {
		return fmt.Errorf("failed to stop metrics server: %w", err)
	}
	logger.Info("Prometheus metrics disabled")
	return nil
}

// IsEnabled reports whether the server is running.
func (s *Server) IsEnabled() bool {
	return s.enabled.Load()
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}
