package crd

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/openinfra/mcp-crd/internal/policy"
	"github.com/openinfra/mcp-crd/internal/registry"
	"github.com/openinfra/mcp-crd/internal/server"
)

var titleCaser = cases.Title(language.English)

// RegisterCapabilityTools registers one MCP tool per capability in the
// server context's registry. The tool schema is derived from the capability's
// method and the resource's scope, so a client sees exactly the parameters
// the invocation will validate.
func RegisterCapabilityTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	for _, capability := range sc.Registry().Capabilities() {
		opts, err := toolOptions(capability)
		if err != nil {
			return fmt.Errorf("failed to build tool %s: %w", capability.Name, err)
		}
		s.AddTool(mcp.NewTool(capability.Name, opts...), newCapabilityHandler(sc, capability))
	}
	return nil
}

// toolOptions builds the MCP tool schema for a capability.
func toolOptions(capability registry.Capability) ([]mcp.ToolOption, error) {
	kind := capability.Kind
	scope := "cluster-scoped"
	if kind.Namespaced {
		scope = "namespaced"
	}

	opts := []mcp.ToolOption{
		mcp.WithDescription(toolDescription(capability)),
	}

	// Docs is pure schema inspection and takes no parameters at all.
	if capability.Method == policy.MethodDocs {
		return opts, nil
	}

	if kind.Namespaced {
		opts = append(opts, mcp.WithString("namespace",
			mcp.Required(),
			mcp.Description(fmt.Sprintf("Namespace to operate in. %s is a %s resource.", kind.Kind, scope)),
		))
	}

	switch capability.Method {
	case policy.MethodList:
		// Namespace (when namespaced) is the only parameter.
	case policy.MethodGet:
		opts = append(opts, mcp.WithString("name",
			mcp.Required(),
			mcp.Description(fmt.Sprintf("Name of the %s resource to retrieve.", kind.Kind)),
		))
	case policy.MethodCreate:
		opts = append(opts,
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description(fmt.Sprintf("Name for the new %s resource.", kind.Kind)),
			),
			mcp.WithObject("spec",
				mcp.Required(),
				mcp.Description(fmt.Sprintf("Desired spec of the %s resource. Use the docs tool for the field schema.", kind.Kind)),
			),
		)
	case policy.MethodUpdate:
		opts = append(opts,
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description(fmt.Sprintf("Name of the %s resource to update.", kind.Kind)),
			),
			mcp.WithObject("spec",
				mcp.Required(),
				mcp.Description(fmt.Sprintf("Spec fields to merge into the existing %s resource. Omitted fields are left untouched.", kind.Kind)),
			),
		)
	default:
		return nil, fmt.Errorf("unknown method %q", capability.Method)
	}

	return opts, nil
}

// toolDescription renders the one-line tool description shown to MCP clients.
func toolDescription(capability registry.Capability) string {
	kind := capability.Kind
	full := kind.FullName()

	switch capability.Method {
	case policy.MethodDocs:
		return fmt.Sprintf("Get the writable field documentation (spec schema) for %s resources (%s).", kind.Kind, full)
	case policy.MethodList:
		return fmt.Sprintf("List the names of %s resources (%s).", kind.Kind, full)
	case policy.MethodGet:
		return fmt.Sprintf("Get a single %s resource (%s) by name.", kind.Kind, full)
	case policy.MethodCreate:
		return fmt.Sprintf("Create a new %s resource (%s) from a spec.", kind.Kind, full)
	case policy.MethodUpdate:
		return fmt.Sprintf("Update an existing %s resource (%s) by merge-patching its spec.", kind.Kind, full)
	default:
		return fmt.Sprintf("%s a %s resource (%s).", titleCaser.String(string(capability.Method)), kind.Kind, full)
	}
}
