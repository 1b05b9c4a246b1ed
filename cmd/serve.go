package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/openinfra/mcp-crd/internal/dispatch"
	"github.com/openinfra/mcp-crd/internal/instrumentation"
	"github.com/openinfra/mcp-crd/internal/kube"
	"github.com/openinfra/mcp-crd/internal/policy"
	"github.com/openinfra/mcp-crd/internal/registry"
	"github.com/openinfra/mcp-crd/internal/server"
	"github.com/openinfra/mcp-crd/internal/tools/crd"
)

// Transport type constants for the MCP server.
const (
	transportStdio          = "stdio"
	transportSSE            = "sse"
	transportStreamableHTTP = "streamable-http"
)

// newServeCmd creates the Cobra command for starting the MCP server.
func newServeCmd() *cobra.Command {
	var (
		accessConfigPath string
		kubeconfigPath   string
		kubeContext      string
		inCluster        bool
		qpsLimit         float32
		burstLimit       int
		requestTimeout   time.Duration
		debugMode        bool

		// Transport options
		transport       string
		httpAddr        string
		sseEndpoint     string
		messageEndpoint string
		httpEndpoint    string

		// Metrics server options
		enableMetrics bool
		metricsAddr   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP custom resource server",
		Long: `Start the MCP server: discover the cluster's custom resource
definitions and expose each of them as schema, list, get, create and
update tools over the Model Context Protocol.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - sse: Server-Sent Events over HTTP
  - streamable-http: Streamable HTTP transport

Authentication modes:
  - Kubeconfig (default): Uses standard kubeconfig file authentication
  - In-cluster: Uses service account token when running inside a Kubernetes pod

Access configuration (--access-config):
  Points at a YAML file declaring which API groups and custom resources are
  exposed and with which methods. Without it, every discovered custom
  resource is exposed with all methods.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := ServeConfig{
				KubeconfigPath:   kubeconfigPath,
				KubeContext:      kubeContext,
				InCluster:        inCluster,
				QPSLimit:         qpsLimit,
				BurstLimit:       burstLimit,
				RequestTimeout:   requestTimeout,
				AccessConfigPath: accessConfigPath,
				Transport:        transport,
				HTTPAddr:         httpAddr,
				SSEEndpoint:      sseEndpoint,
				MessageEndpoint:  messageEndpoint,
				HTTPEndpoint:     httpEndpoint,
				DebugMode:        debugMode,
				Metrics: MetricsServeConfig{
					Enabled: enableMetrics,
					Addr:    metricsAddr,
				},
			}
			loadEnvIfEmpty(&config.AccessConfigPath, "ACCESS_CONFIG")
			loadEnvIfEmpty(&config.KubeconfigPath, "KUBECONFIG")
			return runServe(config)
		},
	}

	cmd.Flags().StringVar(&accessConfigPath, "access-config", "", "Path to the YAML access configuration (can also be set via ACCESS_CONFIG env var)")
	cmd.Flags().StringVar(&kubeconfigPath, "kubeconfig", "", "Path to the kubeconfig file (defaults to KUBECONFIG env var or ~/.kube/config)")
	cmd.Flags().StringVar(&kubeContext, "kube-context", "", "Kubeconfig context to use (defaults to the current context)")
	cmd.Flags().BoolVar(&inCluster, "in-cluster", false, "Use in-cluster authentication (service account token) instead of kubeconfig")
	cmd.Flags().Float32Var(&qpsLimit, "qps-limit", kube.DefaultQPSLimit, "QPS limit for Kubernetes API calls")
	cmd.Flags().IntVar(&burstLimit, "burst-limit", kube.DefaultBurstLimit, "Burst limit for Kubernetes API calls")
	cmd.Flags().DurationVar(&requestTimeout, "request-timeout", kube.DefaultTimeout, "Per-invocation timeout for Kubernetes API calls")
	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	// Transport flags
	cmd.Flags().StringVar(&transport, "transport", transportStdio, "Transport type: stdio, sse, or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", "127.0.0.1:8000", "HTTP server address (for sse and streamable-http transports)")
	cmd.Flags().StringVar(&sseEndpoint, "sse-endpoint", "/sse", "SSE endpoint path (for sse transport)")
	cmd.Flags().StringVar(&messageEndpoint, "message-endpoint", "/message", "Message endpoint path (for sse transport)")
	cmd.Flags().StringVar(&httpEndpoint, "http-endpoint", "/mcp", "HTTP endpoint path (for streamable-http transport)")

	// Metrics flags
	cmd.Flags().BoolVar(&enableMetrics, "enable-metrics-server", false, "Serve Prometheus metrics on a dedicated listener")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Listen address of the dedicated metrics server")

	return cmd
}

// loadEnvIfEmpty fills target from the environment when the flag left it empty.
func loadEnvIfEmpty(target *string, envName string) {
	if *target == "" {
		*target = os.Getenv(envName)
	}
}

// setupLogging installs the default slog logger. Logs always go to stderr so
// the stdio transport keeps stdout clean for MCP framing.
func setupLogging(debugMode bool) *slog.Logger {
	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// loadPolicyTable reads and normalizes the access configuration. A missing
// path yields the undeclared table, which exposes everything.
func loadPolicyTable(path string) (*policy.Table, error) {
	cfg := &policy.Config{}
	if path != "" {
		loaded, err := policy.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load access config: %w", err)
		}
		cfg = loaded
	}

	table, err := policy.Normalize(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid access config: %w", err)
	}
	return table, nil
}

// runServe contains the main server logic with support for multiple transports.
func runServe(config ServeConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	logger := setupLogging(config.DebugMode)

	table, err := loadPolicyTable(config.AccessConfigPath)
	if err != nil {
		return err
	}

	kubeClient, err := kube.NewClient(config.clientConfig())
	if err != nil {
		return fmt.Errorf("failed to create Kubernetes client: %w", err)
	}

	// Setup graceful shutdown - listen for both SIGINT and SIGTERM
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize OpenTelemetry instrumentation provider
	instrumentationConfig := instrumentation.DefaultConfig()
	instrumentationConfig.ServiceVersion = rootCmd.Version
	instrumentationProvider, err := instrumentation.NewProvider(shutdownCtx, instrumentationConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if shutdownErr := instrumentationProvider.Shutdown(context.Background()); shutdownErr != nil {
			logger.Error("error during instrumentation shutdown", "error", shutdownErr)
		}
	}()

	if instrumentationProvider.Enabled() {
		logger.Info("OpenTelemetry instrumentation enabled",
			"metrics", instrumentationConfig.MetricsExporter,
			"tracing", instrumentationConfig.TracingExporter)
	}

	// Discover the cluster's custom resource kinds and build the capability
	// registry from them. Startup fails if discovery fails: an empty tool
	// surface is worse than an explicit error.
	discoverCtx, discoverCancel := context.WithTimeout(shutdownCtx, config.RequestTimeout)
	kinds, err := kubeClient.DiscoverKinds(discoverCtx)
	discoverCancel()
	if err != nil {
		return fmt.Errorf("failed to discover custom resource definitions: %w", err)
	}

	reg, err := registry.Build(kinds, table)
	if err != nil {
		return fmt.Errorf("failed to build capability registry: %w", err)
	}
	instrumentationProvider.Metrics().SetRegisteredCapabilities(shutdownCtx, reg.Len())

	dispatcher := dispatch.New(reg, table, kubeClient, dispatch.Config{
		RequestTimeout: config.RequestTimeout,
	}, logger)

	serverConfig := server.NewDefaultConfig()
	serverConfig.Version = rootCmd.Version
	serverConfig.AccessConfigPath = config.AccessConfigPath
	serverConfig.InCluster = config.InCluster

	serverContext, err := server.NewServerContext(shutdownCtx,
		server.WithKubeClient(kubeClient),
		server.WithPolicyTable(table),
		server.WithRegistry(reg),
		server.WithDispatcher(dispatcher),
		server.WithLogger(logger),
		server.WithConfig(serverConfig),
		server.WithInstrumentationProvider(instrumentationProvider),
	)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if shutdownErr := serverContext.Shutdown(); shutdownErr != nil {
			logger.Error("error during server context shutdown", "error", shutdownErr)
		}
	}()

	// Create MCP server and register one tool per capability
	mcpSrv := mcpserver.NewMCPServer("mcp-crd", rootCmd.Version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := crd.RegisterCapabilityTools(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register capability tools: %w", err)
	}

	logger.Info("capability tools registered",
		"kinds", len(kinds),
		"tools", reg.Len(),
		"access_config", config.AccessConfigPath != "")

	// Start the appropriate server based on transport type
	switch config.Transport {
	case transportStdio:
		return runStdioServer(mcpSrv, config, shutdownCtx, instrumentationProvider)
	case transportSSE:
		return runSSEServer(mcpSrv, config, shutdownCtx, instrumentationProvider)
	case transportStreamableHTTP:
		return runStreamableHTTPServer(mcpSrv, config, shutdownCtx, instrumentationProvider, serverContext)
	default:
		return fmt.Errorf("unsupported transport type: %s", config.Transport)
	}
}
