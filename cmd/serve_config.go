package cmd

import (
	"fmt"
	"time"

	"github.com/openinfra/mcp-crd/internal/kube"
)

// ServeConfig holds every setting the serve command accepts, collected from
// flags and environment variables before the server starts.
type ServeConfig struct {
	// Cluster access
	KubeconfigPath string
	KubeContext    string
	InCluster      bool
	QPSLimit       float32
	BurstLimit     int
	RequestTimeout time.Duration

	// AccessConfigPath points at the YAML access configuration. Empty means
	// every discovered custom resource is fully exposed.
	AccessConfigPath string

	// Transport options
	Transport       string
	HTTPAddr        string
	SSEEndpoint     string
	MessageEndpoint string
	HTTPEndpoint    string

	DebugMode bool

	Metrics MetricsServeConfig
}

// MetricsServeConfig configures the dedicated Prometheus metrics listener.
// It is separate from the MCP listener so the scrape endpoint is never
// exposed on the transport port.
type MetricsServeConfig struct {
	Enabled bool
	Addr    string
}

// Validate rejects configurations the server cannot start with.
func (c *ServeConfig) Validate() error {
	switch c.Transport {
	case transportStdio, transportSSE, transportStreamableHTTP:
	default:
		return fmt.Errorf("invalid transport type %q (valid: %s, %s, %s)",
			c.Transport, transportStdio, transportSSE, transportStreamableHTTP)
	}

	if c.Transport != transportStdio && c.HTTPAddr == "" {
		return fmt.Errorf("--http-addr is required for the %s transport", c.Transport)
	}

	if c.QPSLimit <= 0 {
		return fmt.Errorf("--qps-limit must be positive, got %v", c.QPSLimit)
	}
	if c.BurstLimit <= 0 {
		return fmt.Errorf("--burst-limit must be positive, got %d", c.BurstLimit)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("--request-timeout must be positive, got %v", c.RequestTimeout)
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("--metrics-addr is required when the metrics server is enabled")
	}

	return nil
}

// clientConfig translates the serve settings into a cluster client config.
func (c *ServeConfig) clientConfig() *kube.ClientConfig {
	return &kube.ClientConfig{
		KubeconfigPath: c.KubeconfigPath,
		Context:        c.KubeContext,
		InCluster:      c.InCluster,
		QPSLimit:       c.QPSLimit,
		BurstLimit:     c.BurstLimit,
		Timeout:        c.RequestTimeout,
	}
}
