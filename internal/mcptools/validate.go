package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sopforge/core/internal/validate"
)

// ValidateTool handles the sop_validate MCP tool.
type ValidateTool struct {
	source SnapshotSource
}

// NewValidateTool creates a ValidateTool over the given graph source.
func NewValidateTool(source SnapshotSource) *ValidateTool {
	return &ValidateTool{source: source}
}

// Definition returns the MCP tool definition for sop_validate.
func (t *ValidateTool) Definition() mcp.Tool {
	return mcp.NewTool("sop_validate",
		mcp.WithDescription(
			"Validate the loaded SOP graph: structure, references, containment, cycles, "+
				"SLA consistency, versions and component metadata.",
		),
		mcp.WithBoolean("strict",
			mcp.Description("Treat warnings as errors (default: false)"),
		),
	)
}

// Handle processes the sop_validate tool call.
func (t *ValidateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := t.source.Snapshot()
	res := validate.New(boolArg(req, "strict", false), snap.Library).Validate(snap.Graph)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Validation %s\n\n", strings.ToUpper(res.Status)))
	sb.WriteString(fmt.Sprintf("- **Nodes**: %d\n", res.Summary.TotalNodes))
	sb.WriteString(fmt.Sprintf("- **Edges**: %d\n", res.Summary.TotalEdges))
	sb.WriteString(fmt.Sprintf("- **Errors**: %d\n", res.Summary.Errors))
	sb.WriteString(fmt.Sprintf("- **Warnings**: %d\n", res.Summary.Warnings))

	writeIssues(&sb, "Errors", res.Errors)
	writeIssues(&sb, "Warnings", res.Warnings)
	return mcp.NewToolResultText(sb.String()), nil
}

func writeIssues(sb *strings.Builder, title string, issues []validate.Issue) {
	if len(issues) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("\n### %s\n\n", title))
	for _, is := range issues {
		sb.WriteString(fmt.Sprintf("- %s\n", is.Message))
	}
}
