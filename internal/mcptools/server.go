package mcptools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version is reported to MCP clients.
var Version = "dev"

// Tool is one MCP tool handler.
type Tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Tools returns every tool bound to engine.
func Tools(engine Engine) []Tool {
	return []Tool{
		NewStatusTool(engine),
		NewStartTrackingTool(engine),
		NewStopTrackingTool(engine),
		NewCaptureTool(engine),
		NewDashboardTool(engine),
		NewSessionsTool(engine),
		NewSessionDetailsTool(engine),
		NewAIStatusTool(engine),
		NewScoreTool(engine),
		NewInsightsTool(engine),
		NewStatsTool(engine),
	}
}

// NewServer creates an MCP server exposing the tracking engine.
func NewServer(engine Engine) *server.MCPServer {
	s := server.NewMCPServer(
		"attentive",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(
			"Attentive tracks which documents the user reads and scores their productivity from screen captures. "+
				"Use get_status and get_dashboard_data for the current picture, get_insights for patterns.",
		),
	)
	for _, t := range Tools(engine) {
		s.AddTool(t.Definition(), t.Handle)
	}
	return s
}
