// Package crd registers the discovered custom resource capabilities as MCP
// tools. Each capability becomes one tool whose schema mirrors what its
// method and resource scope require; all handlers route through the
// dispatcher.
package crd
