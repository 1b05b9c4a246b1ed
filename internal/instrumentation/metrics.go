package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrMethod       = "method"
	attrPath         = "path"
	attrStatus       = "status"
	attrOperation    = "operation"
	attrResourceType = "resource_type"
	attrNamespace    = "namespace"
)

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Tool invocation metrics
	toolInvocationsTotal   metric.Int64Counter
	toolInvocationDuration metric.Float64Histogram

	// Cluster operation metrics
	clusterOperationsTotal   metric.Int64Counter
	clusterOperationDuration metric.Float64Histogram

	// Capability registry size
	registeredCapabilities metric.Int64UpDownCounter

	// detailedLabels controls whether high-cardinality labels (namespace,
	// resource_type) are included in operation metrics
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool_invocations_total counter: %w", err)
	}

	m.toolInvocationDuration, err = meter.Float64Histogram(
		"tool_invocation_duration_seconds",
		metric.WithDescription("MCP tool invocation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool_invocation_duration_seconds histogram: %w", err)
	}

	m.clusterOperationsTotal, err = meter.Int64Counter(
		"cluster_operations_total",
		metric.WithDescription("Total number of Kubernetes API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cluster_operations_total counter: %w", err)
	}

	m.clusterOperationDuration, err = meter.Float64Histogram(
		"cluster_operation_duration_seconds",
		metric.WithDescription("Kubernetes API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cluster_operation_duration_seconds histogram: %w", err)
	}

	m.registeredCapabilities, err = meter.Int64UpDownCounter(
		"registered_capabilities",
		metric.WithDescription("Number of registered tool capabilities"),
		metric.WithUnit("{capability}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create registered_capabilities gauge: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordToolInvocation records an MCP tool invocation with its operation
// method, status, and duration. Operation and status are the only labels so
// cardinality stays bounded regardless of how many CRDs the cluster has.
func (m *Metrics) RecordToolInvocation(ctx context.Context, operation, status string, duration time.Duration) {
	if m.toolInvocationsTotal == nil || m.toolInvocationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolInvocationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordClusterOperation records a Kubernetes API operation with operation
// type, resource type, namespace, status, and duration.
//
// CARDINALITY NOTE: When detailedLabels is false (default), only operation and
// status labels are recorded. When true, resource_type and namespace are also
// included; keep it disabled on clusters with many CRDs or namespaces.
func (m *Metrics) RecordClusterOperation(ctx context.Context, operation, resourceType, namespace, status string, duration time.Duration) {
	if m.clusterOperationsTotal == nil || m.clusterOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	if m.detailedLabels {
		attrs = append(attrs,
			attribute.String(attrResourceType, resourceType),
			attribute.String(attrNamespace, namespace),
		)
	}

	m.clusterOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.clusterOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// SetRegisteredCapabilities records the capability count after registry build.
// Called once at startup; the counter starts at zero so a single Add sets it.
func (m *Metrics) SetRegisteredCapabilities(ctx context.Context, count int) {
	if m.registeredCapabilities == nil {
		return // Instrumentation not initialized
	}

	m.registeredCapabilities.Add(ctx, int64(count))
}
