package server

import (
	"errors"
	"log/slog"

	"github.com/openinfra/mcp-crd/internal/dispatch"
	"github.com/openinfra/mcp-crd/internal/instrumentation"
	"github.com/openinfra/mcp-crd/internal/kube"
	"github.com/openinfra/mcp-crd/internal/policy"
	"github.com/openinfra/mcp-crd/internal/registry"
)

// Option is a functional option for configuring ServerContext.
type Option func(*ServerContext) error

// WithKubeClient sets the cluster client for the ServerContext.
func WithKubeClient(client kube.Client) Option {
	return func(sc *ServerContext) error {
		if client == nil {
			return ErrMissingKubeClient
		}
		sc.kubeClient = client
		return nil
	}
}

// WithPolicyTable sets the normalized access policy.
func WithPolicyTable(table *policy.Table) Option {
	return func(sc *ServerContext) error {
		if table == nil {
			return ErrMissingPolicyTable
		}
		sc.table = table
		return nil
	}
}

// WithRegistry sets the capability registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(sc *ServerContext) error {
		if reg == nil {
			return ErrMissingRegistry
		}
		sc.registry = reg
		return nil
	}
}

// WithDispatcher sets the invocation dispatcher.
func WithDispatcher(d *dispatch.Dispatcher) Option {
	return func(sc *ServerContext) error {
		if d == nil {
			return ErrMissingDispatcher
		}
		sc.dispatcher = d
		return nil
	}
}

// WithLogger sets the structured logger for the ServerContext.
func WithLogger(logger *slog.Logger) Option {
	return func(sc *ServerContext) error {
		if logger == nil {
			return ErrMissingLogger
		}
		sc.logger = logger
		return nil
	}
}

// WithConfig sets the configuration for the ServerContext.
func WithConfig(config *Config) Option {
	return func(sc *ServerContext) error {
		if config == nil {
			return ErrMissingConfig
		}
		sc.config = config.Clone()
		return nil
	}
}

// WithServerName sets the server name in the configuration.
func WithServerName(name string) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.ServerName = name
		return nil
	}
}

// WithVersion sets the server version in the configuration.
func WithVersion(version string) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.Version = version
		return nil
	}
}

// WithInCluster records whether in-cluster authentication is used.
func WithInCluster(inCluster bool) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.InCluster = inCluster
		return nil
	}
}

// WithAccessConfigPath records the policy file the registry was built from.
func WithAccessConfigPath(path string) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.AccessConfigPath = path
		return nil
	}
}

// WithInstrumentationProvider sets the OpenTelemetry instrumentation provider.
func WithInstrumentationProvider(provider *instrumentation.Provider) Option {
	return func(sc *ServerContext) error {
		sc.instrumentationProvider = provider
		return nil
	}
}

// Error definitions for ServerContext validation and operations.
var (
	ErrMissingKubeClient  = errors.New("cluster client is required")
	ErrMissingPolicyTable = errors.New("access policy table is required")
	ErrMissingRegistry    = errors.New("capability registry is required")
	ErrMissingDispatcher  = errors.New("dispatcher is required")
	ErrMissingLogger      = errors.New("logger is required")
	ErrMissingConfig      = errors.New("configuration is required")
)
