package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/openinfra/mcp-crd/internal/instrumentation"
)

// DefaultShutdownTimeout bounds graceful shutdown of the HTTP servers.
const DefaultShutdownTimeout = 30 * time.Second

// MetricsServerConfig holds configuration for the dedicated metrics server.
type MetricsServerConfig struct {
	// Addr is the listen address, e.g. ":9090".
	Addr string

	// InstrumentationProvider supplies the Prometheus handler.
	InstrumentationProvider *instrumentation.Provider
}

// MetricsServer serves Prometheus metrics on a dedicated listener, keeping
// the scrape endpoint off the MCP port.
type MetricsServer struct {
	httpServer *http.Server
}

// NewMetricsServer creates a metrics server from the config. The provider
// must be enabled with the prometheus exporter active.
func NewMetricsServer(config MetricsServerConfig) (*MetricsServer, error) {
	if config.Addr == "" {
		return nil, fmt.Errorf("metrics server address is required")
	}
	handler := config.InstrumentationProvider.PrometheusHandler()
	if handler == nil {
		return nil, fmt.Errorf("prometheus exporter is not active (set METRICS_EXPORTER=prometheus)")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	return &MetricsServer{
		httpServer: &http.Server{
			Addr:              config.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}, nil
}

// Start runs the metrics server. Blocks until the listener stops.
func (s *MetricsServer) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
