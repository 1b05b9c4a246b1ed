package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/openinfra/mcp-crd/internal/dispatch"
	"github.com/openinfra/mcp-crd/internal/instrumentation"
	"github.com/openinfra/mcp-crd/internal/kube"
	"github.com/openinfra/mcp-crd/internal/policy"
	"github.com/openinfra/mcp-crd/internal/registry"
)

// ServerContext encapsulates all dependencies needed by the MCP server
// and provides a clean abstraction for dependency injection and lifecycle
// management.
type ServerContext struct {
	// Core dependencies
	kubeClient kube.Client
	table      *policy.Table
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
	config     *Config

	// Observability
	instrumentationProvider *instrumentation.Provider

	// Context management
	ctx    context.Context
	cancel context.CancelFunc

	// Lifecycle management
	mu       sync.RWMutex
	shutdown bool
}

// Config holds the server configuration.
type Config struct {
	// Server identity
	ServerName string `json:"serverName"`
	Version    string `json:"version"`

	// AccessConfigPath is the policy file the capability registry was built
	// from. Empty means no policy file: everything discovered is exposed.
	AccessConfigPath string `json:"accessConfigPath"`

	// InCluster records whether the server authenticates with a service
	// account instead of a kubeconfig.
	InCluster bool `json:"inCluster"`
}

// NewDefaultConfig creates a configuration with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		ServerName: "mcp-crd",
		Version:    "0.1.0",
	}
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// NewServerContext creates a new ServerContext with default values.
// Use the provided functional options to customize the context.
func NewServerContext(ctx context.Context, opts ...Option) (*ServerContext, error) {
	serverCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:    serverCtx,
		cancel: cancel,
		config: NewDefaultConfig(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(sc); err != nil {
			cancel()
			return nil, err
		}
	}

	if err := sc.validate(); err != nil {
		cancel()
		return nil, err
	}

	return sc, nil
}

// Context returns the server context for cancellation and deadlines.
func (sc *ServerContext) Context() context.Context {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.ctx
}

// KubeClient returns the cluster client.
func (sc *ServerContext) KubeClient() kube.Client {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.kubeClient
}

// PolicyTable returns the normalized access policy.
func (sc *ServerContext) PolicyTable() *policy.Table {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.table
}

// Registry returns the capability registry.
func (sc *ServerContext) Registry() *registry.Registry {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.registry
}

// Dispatcher returns the invocation dispatcher.
func (sc *ServerContext) Dispatcher() *dispatch.Dispatcher {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.dispatcher
}

// Logger returns the structured logger.
func (sc *ServerContext) Logger() *slog.Logger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.logger
}

// Config returns the server configuration.
func (sc *ServerContext) Config() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config
}

// InClusterMode reports whether service account authentication is in use.
func (sc *ServerContext) InClusterMode() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.InCluster
}

// InstrumentationProvider returns the OpenTelemetry provider, which may be nil.
func (sc *ServerContext) InstrumentationProvider() *instrumentation.Provider {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.instrumentationProvider
}

// RecordToolInvocation records tool invocation metrics when instrumentation
// is enabled. Safe to call with a nil or disabled provider.
func (sc *ServerContext) RecordToolInvocation(ctx context.Context, operation, status string, duration time.Duration) {
	provider := sc.InstrumentationProvider()
	if provider == nil || !provider.Enabled() {
		return
	}
	provider.Metrics().RecordToolInvocation(ctx, operation, status, duration)
}

// RecordClusterOperation records cluster operation metrics when
// instrumentation is enabled. Safe to call with a nil or disabled provider.
func (sc *ServerContext) RecordClusterOperation(ctx context.Context, operation, resourceType, namespace, status string, duration time.Duration) {
	provider := sc.InstrumentationProvider()
	if provider == nil || !provider.Enabled() {
		return
	}
	provider.Metrics().RecordClusterOperation(ctx, operation, resourceType, namespace, status, duration)
}

// Shutdown gracefully shuts down the server context.
// This cancels the context and releases any resources.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.logger.Info("shutting down server context")

	if sc.cancel != nil {
		sc.cancel()
	}
	sc.shutdown = true

	return nil
}

// IsShutdown returns true if the server context has been shutdown.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// validate ensures all required dependencies are set.
func (sc *ServerContext) validate() error {
	if sc.kubeClient == nil {
		return ErrMissingKubeClient
	}
	if sc.table == nil {
		return ErrMissingPolicyTable
	}
	if sc.registry == nil {
		return ErrMissingRegistry
	}
	if sc.dispatcher == nil {
		return ErrMissingDispatcher
	}
	if sc.config == nil {
		return ErrMissingConfig
	}
	return nil
}
