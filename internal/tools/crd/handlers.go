package crd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/openinfra/mcp-crd/internal/instrumentation"
	"github.com/openinfra/mcp-crd/internal/registry"
	"github.com/openinfra/mcp-crd/internal/server"
)

// newCapabilityHandler builds the tool handler for one capability. All
// handlers are a thin shell around the dispatcher: extract arguments, invoke,
// record, render.
func newCapabilityHandler(sc *server.ServerContext, capability registry.Capability) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		ctx, span := instrumentation.StartToolSpan(ctx, capability.Name,
			attribute.String(instrumentation.SpanAttrOperation, string(capability.Method)),
			attribute.String(instrumentation.SpanAttrResourceType, capability.Kind.FullName()),
		)
		defer span.End()

		namespace := stringArg(args, "namespace")
		invocation := instrumentation.NewToolInvocation(capability.Name).
			WithOperation(string(capability.Method)).
			WithResource(namespace, capability.Kind.FullName(), stringArg(args, "name")).
			WithSpanContext(ctx)
		defer func() {
			sc.InstrumentationProvider().AuditLogger().LogToolInvocation(invocation)
		}()

		start := time.Now()
		result, err := sc.Dispatcher().Invoke(ctx, capability.Name, args)
		duration := time.Since(start)

		if err != nil {
			invocation.CompleteWithError(err)
			instrumentation.SetSpanError(span, err)
			sc.RecordToolInvocation(ctx, string(capability.Method), instrumentation.StatusError, duration)
			sc.RecordClusterOperation(ctx, string(capability.Method), capability.Kind.FullName(), namespace, instrumentation.StatusError, duration)
			return mcp.NewToolResultError(err.Error()), nil
		}

		invocation.CompleteSuccess()
		instrumentation.SetSpanSuccess(span)
		sc.RecordToolInvocation(ctx, string(capability.Method), instrumentation.StatusSuccess, duration)
		sc.RecordClusterOperation(ctx, string(capability.Method), capability.Kind.FullName(), namespace, instrumentation.StatusSuccess, duration)

		body, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}

// stringArg extracts a string argument, tolerating absent or non-string
// values. Validation proper happens in the dispatcher.
func stringArg(args map[string]interface{}, key string) string {
	value, _ := args[key].(string)
	return value
}
