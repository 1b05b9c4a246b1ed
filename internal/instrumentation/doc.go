// Package instrumentation provides OpenTelemetry metrics and tracing for the
// server.
//
// Instrumentation is disabled by default and activated via environment
// variables, so stdio deployments pay no overhead:
//
//	INSTRUMENTATION_ENABLED=true    # enable metrics and tracing
//	METRICS_EXPORTER=prometheus     # prometheus (default), otlp, stdout
//	TRACING_EXPORTER=none           # none (default), otlp, stdout
//	OTEL_EXPORTER_OTLP_ENDPOINT=http://localhost:4318
//
// Usage:
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil { ... }
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordToolInvocation(ctx, "get", "success", duration)
package instrumentation
