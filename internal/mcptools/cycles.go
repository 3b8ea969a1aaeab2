package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sopforge/core/internal/graph"
)

// CyclesTool handles the sop_cycles MCP tool.
type CyclesTool struct {
	source SnapshotSource
}

// NewCyclesTool creates a CyclesTool over the given graph source.
func NewCyclesTool(source SnapshotSource) *CyclesTool {
	return &CyclesTool{source: source}
}

// Definition returns the MCP tool definition for sop_cycles.
func (t *CyclesTool) Definition() mcp.Tool {
	return mcp.NewTool("sop_cycles",
		mcp.WithDescription(
			"List circular dependencies in the SOP graph. "+
				"Set containment to also check module, phase and journey child lists.",
		),
		mcp.WithBoolean("containment",
			mcp.Description("Also report cycles in containment lists (default: false)"),
		),
	)
}

// Handle processes the sop_cycles tool call.
func (t *CyclesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g := t.source.Snapshot().Graph

	var sb strings.Builder
	writeCycles(&sb, "Dependency cycles", graph.DetectCycles(g))
	if boolArg(req, "containment", false) {
		sb.WriteString("\n")
		writeCycles(&sb, "Containment cycles", graph.DetectContainmentCycles(g))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func writeCycles(sb *strings.Builder, title string, cycles []graph.Cycle) {
	sb.WriteString(fmt.Sprintf("## %s\n\n", title))
	if len(cycles) == 0 {
		sb.WriteString("No circular dependencies found.\n")
		return
	}
	for i, c := range cycles {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, c))
	}
}
