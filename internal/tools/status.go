package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardcser/web-offline/internal/worker"
)

// CacheStatusHandler returns the MCP tool handler for the "cache-status" tool.
func CacheStatusHandler(reg *worker.Registration) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(formatStatus(reg.Status())), nil
	}
}

func formatStatus(st worker.Status) string {
	var sb strings.Builder
	sb.WriteString("State: ")
	sb.WriteString(st.State)
	if st.Static != "" {
		sb.WriteString("\nStatic: ")
		sb.WriteString(st.Static)
		sb.WriteString("\nDynamic: ")
		sb.WriteString(st.Dynamic)
	}
	if len(st.Partitions) > 0 {
		sb.WriteString("\nPartitions:\n")
		for _, p := range st.Partitions {
			fmt.Fprintf(&sb, "- %s (%d entries)\n", p, st.Entries[p])
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
