// Package server wires the MCP server's dependencies together.
//
// ServerContext carries the cluster client, the access policy table, the
// capability registry, the dispatcher and the instrumentation provider, and
// manages their lifecycle. It is built with functional options and validated
// at construction, so tool handlers can assume a complete context.
//
// The package also provides the HTTP plumbing shared by the network
// transports: health endpoints for Kubernetes probes and the dedicated
// metrics server that keeps Prometheus scraping off the MCP port.
package server
