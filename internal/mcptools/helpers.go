// Package mcptools exposes the daemon to MCP clients such as assistants.
//
// Each tool follows the same pattern:
// - A struct holding the Engine, injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() runs the command or query and replies with JSON text
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Atharva-Kanherkar/attentive/internal/daemon"
	"github.com/Atharva-Kanherkar/attentive/internal/insights"
	"github.com/Atharva-Kanherkar/attentive/internal/model"
)

// Engine is the daemon surface the tools use.
type Engine interface {
	StartTracking(ctx context.Context) daemon.CommandResult
	StopTracking(ctx context.Context) daemon.CommandResult
	ManualCaptureAndAnalyze(ctx context.Context) daemon.CommandResult
	Status() daemon.Status
	DashboardData(ctx context.Context) (*daemon.Dashboard, error)
	Sessions(ctx context.Context, limit, offset int) ([]model.Session, error)
	SessionDetails(ctx context.Context, id string) (*daemon.SessionDetails, error)
	AIStatus() daemon.AIStatus
	CurrentProductivityScore() daemon.Score
	Insights(ctx context.Context, timeframe string) (*insights.Result, error)
	ProductivityStats(ctx context.Context, timeframe string) (*model.ProductivityStats, error)
}

// timeframeOption documents the accepted timeframe keys.
func timeframeOption() mcp.ToolOption {
	keys := make([]string, 0, 5)
	for _, tf := range model.Timeframes() {
		keys = append(keys, string(tf))
	}
	return mcp.WithString("timeframe",
		mcp.Required(),
		mcp.Description("Look-back window"),
		mcp.Enum(keys...),
	)
}

// intArg extracts an integer argument, returning defaultVal if the key is
// missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// jsonResult renders v as indented JSON text.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult renders the {error, message} shape.
func errorResult(code, message string) *mcp.CallToolResult {
	data, _ := json.Marshal(map[string]string{"error": code, "message": message})
	return mcp.NewToolResultError(string(data))
}

// commandResult renders a command outcome; failures are flagged as errors.
func commandResult(res daemon.CommandResult) (*mcp.CallToolResult, error) {
	r, err := jsonResult(res)
	if err == nil && !res.Success {
		r.IsError = true
	}
	return r, err
}
