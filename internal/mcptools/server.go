package mcptools

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/sopforge/core/internal/impact"
)

// NewServer registers every sop_* tool on a new MCP server.
func NewServer(name, version string, source SnapshotSource, analyzer *impact.Analyzer) *server.MCPServer {
	s := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	impactTool := NewImpactTool(source, analyzer)
	s.AddTool(impactTool.Definition(), impactTool.Handle)

	cyclesTool := NewCyclesTool(source)
	s.AddTool(cyclesTool.Definition(), cyclesTool.Handle)

	validateTool := NewValidateTool(source)
	s.AddTool(validateTool.Definition(), validateTool.Handle)

	nodeTool := NewNodeTool(source)
	s.AddTool(nodeTool.Definition(), nodeTool.Handle)

	return s
}
