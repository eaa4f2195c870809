package mcptools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Atharva-Kanherkar/attentive/internal/insights"
	"github.com/Atharva-Kanherkar/attentive/internal/model"
	"github.com/Atharva-Kanherkar/attentive/internal/storage"
)

// StatusTool handles the get_status MCP tool.
type StatusTool struct {
	engine Engine
}

// NewStatusTool creates a StatusTool.
func NewStatusTool(engine Engine) *StatusTool {
	return &StatusTool{engine: engine}
}

// Definition returns the MCP tool definition for get_status.
func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("get_status",
		mcp.WithDescription("Whether tracking is running, the open reading session and the last detected document."),
	)
}

// Handle processes the get_status tool call.
func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(t.engine.Status())
}

// DashboardTool handles the get_dashboard_data MCP tool.
type DashboardTool struct {
	engine Engine
}

// NewDashboardTool creates a DashboardTool.
func NewDashboardTool(engine Engine) *DashboardTool {
	return &DashboardTool{engine: engine}
}

// Definition returns the MCP tool definition for get_dashboard_data.
func (t *DashboardTool) Definition() mcp.Tool {
	return mcp.NewTool("get_dashboard_data",
		mcp.WithDescription("Recent sessions, today's reading statistics and the open session."),
	)
}

// Handle processes the get_dashboard_data tool call.
func (t *DashboardTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dash, err := t.engine.DashboardData(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load dashboard: %v", err)), nil
	}
	return jsonResult(dash)
}

// SessionsTool handles the get_sessions MCP tool.
type SessionsTool struct {
	engine Engine
}

// NewSessionsTool creates a SessionsTool.
func NewSessionsTool(engine Engine) *SessionsTool {
	return &SessionsTool{engine: engine}
}

// Definition returns the MCP tool definition for get_sessions.
func (t *SessionsTool) Definition() mcp.Tool {
	return mcp.NewTool("get_sessions",
		mcp.WithDescription("List reading sessions, newest first."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of sessions (default 50)"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Number of sessions to skip (default 0)"),
		),
	)
}

// Handle processes the get_sessions tool call.
func (t *SessionsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions, err := t.engine.Sessions(ctx, intArg(req, "limit", 50), intArg(req, "offset", 0))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list sessions: %v", err)), nil
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	return jsonResult(sessions)
}

// SessionDetailsTool handles the get_session_details MCP tool.
type SessionDetailsTool struct {
	engine Engine
}

// NewSessionDetailsTool creates a SessionDetailsTool.
func NewSessionDetailsTool(engine Engine) *SessionDetailsTool {
	return &SessionDetailsTool{engine: engine}
}

// Definition returns the MCP tool definition for get_session_details.
func (t *SessionDetailsTool) Definition() mcp.Tool {
	return mcp.NewTool("get_session_details",
		mcp.WithDescription("One session with its productivity analyses."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Session id"),
		),
	)
}

// Handle processes the get_session_details tool call.
func (t *SessionDetailsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return errorResult("invalid_argument", "id is required"), nil
	}
	details, err := t.engine.SessionDetails(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return errorResult("not_found", fmt.Sprintf("session %s not found", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load session: %v", err)), nil
	}
	return jsonResult(details)
}

// AIStatusTool handles the get_ai_status MCP tool.
type AIStatusTool struct {
	engine Engine
}

// NewAIStatusTool creates an AIStatusTool.
func NewAIStatusTool(engine Engine) *AIStatusTool {
	return &AIStatusTool{engine: engine}
}

// Definition returns the MCP tool definition for get_ai_status.
func (t *AIStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("get_ai_status",
		mcp.WithDescription("Whether AI analysis is enabled and how many analyses and screenshots are buffered."),
	)
}

// Handle processes the get_ai_status tool call.
func (t *AIStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(t.engine.AIStatus())
}

// ScoreTool handles the get_current_productivity_score MCP tool.
type ScoreTool struct {
	engine Engine
}

// NewScoreTool creates a ScoreTool.
func NewScoreTool(engine Engine) *ScoreTool {
	return &ScoreTool{engine: engine}
}

// Definition returns the MCP tool definition for get_current_productivity_score.
func (t *ScoreTool) Definition() mcp.Tool {
	return mcp.NewTool("get_current_productivity_score",
		mcp.WithDescription("The most recent productivity score (0-10), or null before the first analysis."),
	)
}

// Handle processes the get_current_productivity_score tool call.
func (t *ScoreTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(t.engine.CurrentProductivityScore())
}

// InsightsTool handles the get_insights MCP tool.
type InsightsTool struct {
	engine Engine
}

// NewInsightsTool creates an InsightsTool.
func NewInsightsTool(engine Engine) *InsightsTool {
	return &InsightsTool{engine: engine}
}

// Definition returns the MCP tool definition for get_insights.
func (t *InsightsTool) Definition() mcp.Tool {
	return mcp.NewTool("get_insights",
		mcp.WithDescription(
			"Productivity patterns and recommendations for a timeframe. "+
				"Results are cached for 4 hours; too few analyses returns an insufficient_data error.",
		),
		timeframeOption(),
	)
}

// Handle processes the get_insights tool call.
func (t *InsightsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := t.engine.Insights(ctx, req.GetString("timeframe", ""))
	if errors.Is(err, model.ErrInvalidTimeframe) {
		return errorResult("invalid_argument", err.Error()), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get insights: %v", err)), nil
	}
	switch res.Status {
	case insights.StatusInsufficientData, insights.StatusUnavailable:
		return errorResult(string(res.Status), res.Message), nil
	}
	return jsonResult(res)
}

// StatsTool handles the get_productivity_stats MCP tool.
type StatsTool struct {
	engine Engine
}

// NewStatsTool creates a StatsTool.
func NewStatsTool(engine Engine) *StatsTool {
	return &StatsTool{engine: engine}
}

// Definition returns the MCP tool definition for get_productivity_stats.
func (t *StatsTool) Definition() mcp.Tool {
	return mcp.NewTool("get_productivity_stats",
		mcp.WithDescription("Average, minimum and maximum productivity score over a timeframe."),
		timeframeOption(),
	)
}

// Handle processes the get_productivity_stats tool call.
func (t *StatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := t.engine.ProductivityStats(ctx, req.GetString("timeframe", ""))
	if errors.Is(err, model.ErrInvalidTimeframe) {
		return errorResult("invalid_argument", err.Error()), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get stats: %v", err)), nil
	}
	return jsonResult(stats)
}
