package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sopforge/core/internal/graph"
)

// NodeTool handles the sop_node MCP tool.
type NodeTool struct {
	source SnapshotSource
}

// NewNodeTool creates a NodeTool over the given graph source.
func NewNodeTool(source SnapshotSource) *NodeTool {
	return &NodeTool{source: source}
}

// Definition returns the MCP tool definition for sop_node.
func (t *NodeTool) Definition() mcp.Tool {
	return mcp.NewTool("sop_node",
		mcp.WithDescription(
			"Show one node of the SOP graph with its direct dependencies, dependents "+
				"and the documents that list it as a component.",
		),
		mcp.WithString("node_id",
			mcp.Required(),
			mcp.Description("ID of the node to show"),
		),
	)
}

// Handle processes the sop_node tool call.
func (t *NodeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("node_id", "")
	if id == "" {
		return mcp.NewToolResultError("'node_id' is required"), nil
	}
	g := t.source.Snapshot().Graph

	deps, err := graph.Dependencies(g, id)
	if err != nil {
		return notFound(err), nil
	}
	dependents, _ := graph.Dependents(g, id)
	node := g.Nodes[id]

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n\n", node.Label()))
	sb.WriteString(fmt.Sprintf("- **ID**: %s\n", node.ID))
	sb.WriteString(fmt.Sprintf("- **Type**: %s\n", node.Type))
	if node.Version != "" {
		sb.WriteString(fmt.Sprintf("- **Version**: %s\n", node.Version))
	}

	writeNeighbors(&sb, "Depends on", deps)
	writeNeighbors(&sb, "Used by", dependents)

	if usage := graph.ComponentUsage(g, id); len(usage) > 0 {
		sb.WriteString("\n### Included in\n\n")
		for _, u := range usage {
			sb.WriteString(fmt.Sprintf("- %s (%s)\n", u.ID, u.Relationship))
		}
	}

	block, err := jsonBlock(node)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode node: %v", err)), nil
	}
	sb.WriteString("\n")
	sb.WriteString(block)
	return mcp.NewToolResultText(sb.String()), nil
}

func writeNeighbors(sb *strings.Builder, title string, ns []graph.Neighbor) {
	if len(ns) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("\n### %s\n\n", title))
	for _, n := range ns {
		strong := ""
		if n.Strong() {
			strong = " **strong**"
		}
		sb.WriteString(fmt.Sprintf("- %s (%s)%s\n", n.ID, n.Edge.Type, strong))
	}
}
