// Package cmd provides the command-line interface for mcp-crd.
//
// This package implements a Cobra-based CLI with multiple subcommands:
//   - serve: Starts the MCP server (default behavior when no subcommand is provided)
//   - version: Displays the application version
//   - self-update: Updates the binary to the latest version from GitHub releases
//
// Command Structure:
//
//	mcp-crd [flags]                 # Starts the MCP server (default)
//	mcp-crd serve [flags]           # Explicitly starts the MCP server
//	mcp-crd version                 # Shows version information
//	mcp-crd self-update             # Updates to latest release
//	mcp-crd help [command]          # Shows help information
//
// The serve command supports multiple transport options:
//   - stdio: Standard input/output (default) - for command-line integration
//   - sse: Server-Sent Events over HTTP - for web-based clients
//   - streamable-http: Streamable HTTP transport - for HTTP-based integration
//
// Transport Configuration Examples:
//
//	mcp-crd serve --transport stdio           # Default STDIO transport
//	mcp-crd serve --transport sse --http-addr 127.0.0.1:8000 --sse-endpoint /sse
//	mcp-crd serve --transport streamable-http --http-addr :9000 --http-endpoint /mcp
//
// The serve command also supports flags for selecting the kubeconfig context,
// pointing at an access configuration file that restricts which custom
// resources are exposed, and tuning Kubernetes API rate limits.
package cmd
