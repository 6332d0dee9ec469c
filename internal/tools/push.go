package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardcser/web-offline/internal/push"
)

// PushHandler returns the MCP tool handler for the "push" tool.
func PushHandler(center *push.Center) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		n := center.Receive([]byte(req.GetString("payload", "")))
		return mcp.NewToolResultText(formatNotification(n)), nil
	}
}

// NotificationClickHandler returns the MCP tool handler for the
// "notification-click" tool.
func NotificationClickHandler(center *push.Center) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tag := req.GetString("tag", push.Tag)
		open := center.Click(tag, req.GetString("action", ""))
		if open == "" {
			return mcp.NewToolResultText("Notification closed."), nil
		}
		return mcp.NewToolResultText("Notification closed. Open " + open), nil
	}
}

func formatNotification(n push.Notification) string {
	var sb strings.Builder
	sb.WriteString(n.Title)
	sb.WriteString("\n")
	sb.WriteString(n.Body)
	sb.WriteString("\nActions:")
	for _, a := range n.Actions {
		sb.WriteString(" [")
		sb.WriteString(a.Title)
		sb.WriteString("]")
	}
	return sb.String()
}
