package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardcser/web-offline/internal/queue"
	"github.com/leonardcser/web-offline/internal/worker"
)

// SyncHandler returns the MCP tool handler for the "sync" tool.
func SyncHandler(s worker.Syncer, d queue.Deliverer) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if ctx.Err() != nil {
			return mcp.NewToolResultError(ctx.Err().Error()), nil
		}
		tag, err := req.RequireString("tag")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		res, err := s.Sync(ctx, tag, d)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatReplay(res)), nil
	}
}

func formatReplay(r queue.ReplayResult) string {
	if r.Delivered == 0 && r.Failed == 0 {
		return fmt.Sprintf("Queue %s is empty.", r.Queue)
	}
	s := fmt.Sprintf("Queue %s: %d delivered", r.Queue, r.Delivered)
	if r.Failed > 0 {
		s += fmt.Sprintf(", %d still queued", r.Failed)
	}
	return s + "."
}
