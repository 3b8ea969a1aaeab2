// Package mcptools provides MCP tool handlers over the loaded SOP graph.
//
// Each tool follows the same shape:
// - A struct with its dependencies injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
//
// Tools only read the graph. Failures are returned as tool errors so the
// client sees them instead of a transport error.
package mcptools

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sopforge/core/internal/graph"
	"github.com/sopforge/core/internal/store"
)

// SnapshotSource is the part of store.Store the tools need.
type SnapshotSource interface {
	Snapshot() *store.Snapshot
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// jsonBlock renders v as an indented JSON code block.
func jsonBlock(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return "```json\n" + string(data) + "\n```\n", nil
}

// notFound formats a missing node error with a few of the ids that exist.
func notFound(err error) *mcp.CallToolResult {
	var nf *graph.NotFoundError
	if !errors.As(err, &nf) {
		return mcp.NewToolResultError(err.Error())
	}
	ids := nf.Available
	more := ""
	if len(ids) > 10 {
		more = fmt.Sprintf(" (and %d more)", len(ids)-10)
		ids = ids[:10]
	}
	return mcp.NewToolResultError(fmt.Sprintf("node '%s' not found. Available: %s%s",
		nf.ID, strings.Join(ids, ", "), more))
}
