package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/openinfra/mcp-crd/internal/instrumentation"
	"github.com/openinfra/mcp-crd/internal/server"
)

// runStdioServer runs the server with STDIO transport. Stdout carries MCP
// framing, so all logging stays on stderr and nothing else is printed. The
// metrics listener, when enabled, still runs on its own port.
func runStdioServer(mcpSrv *mcpserver.MCPServer, config ServeConfig, ctx context.Context, provider *instrumentation.Provider) error {
	metricsServer, err := startMetricsServer(config.Metrics, provider)
	if err != nil {
		return err
	}

	slog.Info("stdio server starting")

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		stdioSrv := mcpserver.NewStdioServer(mcpSrv)
		stdioSrv.SetErrorLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelError))
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received, stopping stdio server")
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("stdio server stopped with error: %w", err)
		}
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("error shutting down metrics server", "error", err)
		}
	}
	return nil
}
