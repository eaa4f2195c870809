package mcptools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StartTrackingTool handles the start_tracking MCP tool.
type StartTrackingTool struct {
	engine Engine
}

// NewStartTrackingTool creates a StartTrackingTool.
func NewStartTrackingTool(engine Engine) *StartTrackingTool {
	return &StartTrackingTool{engine: engine}
}

// Definition returns the MCP tool definition for start_tracking.
func (t *StartTrackingTool) Definition() mcp.Tool {
	return mcp.NewTool("start_tracking",
		mcp.WithDescription("Start document detection and periodic productivity analysis. Safe to call when already tracking."),
	)
}

// Handle processes the start_tracking tool call.
func (t *StartTrackingTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return commandResult(t.engine.StartTracking(ctx))
}

// StopTrackingTool handles the stop_tracking MCP tool.
type StopTrackingTool struct {
	engine Engine
}

// NewStopTrackingTool creates a StopTrackingTool.
func NewStopTrackingTool(engine Engine) *StopTrackingTool {
	return &StopTrackingTool{engine: engine}
}

// Definition returns the MCP tool definition for stop_tracking.
func (t *StopTrackingTool) Definition() mcp.Tool {
	return mcp.NewTool("stop_tracking",
		mcp.WithDescription("Stop tracking and close the open session, if any. Safe to call when not tracking."),
	)
}

// Handle processes the stop_tracking tool call.
func (t *StopTrackingTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return commandResult(t.engine.StopTracking(ctx))
}

// CaptureTool handles the manual_capture_and_analyze MCP tool.
type CaptureTool struct {
	engine Engine
}

// NewCaptureTool creates a CaptureTool.
func NewCaptureTool(engine Engine) *CaptureTool {
	return &CaptureTool{engine: engine}
}

// Definition returns the MCP tool definition for manual_capture_and_analyze.
func (t *CaptureTool) Definition() mcp.Tool {
	return mcp.NewTool("manual_capture_and_analyze",
		mcp.WithDescription("Capture the screen now and score it with the AI. Fails when no API key is configured."),
	)
}

// Handle processes the manual_capture_and_analyze tool call.
func (t *CaptureTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return commandResult(t.engine.ManualCaptureAndAnalyze(ctx))
}
