package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sopforge/core/internal/graph"
	"github.com/sopforge/core/internal/impact"
)

// ImpactTool handles the sop_impact MCP tool.
type ImpactTool struct {
	source   SnapshotSource
	analyzer *impact.Analyzer
}

// NewImpactTool creates an ImpactTool over the given graph source.
func NewImpactTool(source SnapshotSource, analyzer *impact.Analyzer) *ImpactTool {
	return &ImpactTool{source: source, analyzer: analyzer}
}

// Definition returns the MCP tool definition for sop_impact.
func (t *ImpactTool) Definition() mcp.Tool {
	return mcp.NewTool("sop_impact",
		mcp.WithDescription(
			"Analyze the impact of changing an SOP, component or journey node. "+
				"Returns the affected nodes, customer-facing and regulatory touchpoints, "+
				"a risk level and recommendations.",
		),
		mcp.WithString("node_id",
			mcp.Required(),
			mcp.Description("ID of the node being changed"),
		),
		mcp.WithString("change_type",
			mcp.Description("modify, delete or update-sla (default: modify)"),
		),
		mcp.WithString("direction",
			mcp.Description("downstream follows outgoing edges, upstream follows incoming edges (default: downstream)"),
		),
		mcp.WithBoolean("include_start",
			mcp.Description("Count the changed node itself as affected (default: false)"),
		),
	)
}

// Handle processes the sop_impact tool call.
func (t *ImpactTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("node_id", "")
	if id == "" {
		return mcp.NewToolResultError("'node_id' is required"), nil
	}
	change, err := impact.ParseChangeType(req.GetString("change_type", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dir, err := graph.ParseDirection(req.GetString("direction", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := t.analyzer.Analyze(ctx, t.source.Snapshot().Graph, id, impact.Options{
		ChangeType:   change,
		Direction:    dir,
		IncludeStart: boolArg(req, "include_start", false),
	})
	if err != nil {
		return notFound(err), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Impact of %s on %s\n\n", report.ChangeType, report.NodeID))
	sb.WriteString(fmt.Sprintf("- **Risk**: %s (score %d)\n", report.Risk.Level, report.Risk.Score))
	sb.WriteString(fmt.Sprintf("- **Affected nodes** (%s): %d\n", report.Direction, len(report.Affected)))
	sb.WriteString(fmt.Sprintf("- **Customer-facing touchpoints**: %d\n", len(report.CustomerFacing)))
	sb.WriteString(fmt.Sprintf("- **Regulatory touchpoints**: %d\n", len(report.Regulatory)))
	sb.WriteString(fmt.Sprintf("- **Total SLA hours**: %g\n", report.TotalSLAHours))
	if refs := report.RegulatoryRefs(); len(refs) > 0 {
		sb.WriteString(fmt.Sprintf("- **Regulations**: %s\n", strings.Join(refs, ", ")))
	}
	if len(report.Recommendations) > 0 {
		sb.WriteString("\n### Recommendations\n\n")
		for _, r := range report.Recommendations {
			sb.WriteString(fmt.Sprintf("- [%s] %s: %s\n", r.Priority, r.Action, r.Details))
		}
	}

	block, err := jsonBlock(report)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode report: %v", err)), nil
	}
	sb.WriteString("\n")
	sb.WriteString(block)
	return mcp.NewToolResultText(sb.String()), nil
}
