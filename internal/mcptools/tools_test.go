package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Atharva-Kanherkar/attentive/internal/daemon"
	"github.com/Atharva-Kanherkar/attentive/internal/insights"
	"github.com/Atharva-Kanherkar/attentive/internal/model"
	"github.com/Atharva-Kanherkar/attentive/internal/storage"
)

type fakeEngine struct {
	tracking  bool
	aiEnabled bool
	sessions  []model.Session
	insight   *insights.Result
	calls     []string
}

func (f *fakeEngine) StartTracking(context.Context) daemon.CommandResult {
	f.calls = append(f.calls, "start")
	f.tracking = true
	return daemon.CommandResult{Success: true, Message: "Tracking started"}
}

func (f *fakeEngine) StopTracking(context.Context) daemon.CommandResult {
	f.calls = append(f.calls, "stop")
	f.tracking = false
	return daemon.CommandResult{Success: true, Message: "Tracking stopped"}
}

func (f *fakeEngine) ManualCaptureAndAnalyze(context.Context) daemon.CommandResult {
	if !f.aiEnabled {
		return daemon.CommandResult{Success: false, Error: "AI analysis is not available"}
	}
	return daemon.CommandResult{Success: true, Message: "Capture analyzed"}
}

func (f *fakeEngine) Status() daemon.Status {
	return daemon.Status{IsTracking: f.tracking}
}

func (f *fakeEngine) DashboardData(context.Context) (*daemon.Dashboard, error) {
	return &daemon.Dashboard{RecentSessions: f.sessions, DailyStats: &model.DailyStats{Date: "2026-03-10"}}, nil
}

func (f *fakeEngine) Sessions(_ context.Context, limit, offset int) ([]model.Session, error) {
	f.calls = append(f.calls, fmt.Sprintf("sessions %d %d", limit, offset))
	return f.sessions, nil
}

func (f *fakeEngine) SessionDetails(_ context.Context, id string) (*daemon.SessionDetails, error) {
	for _, s := range f.sessions {
		if s.ID == id {
			return &daemon.SessionDetails{Session: &s}, nil
		}
	}
	return nil, fmt.Errorf("session %s: %w", id, storage.ErrNotFound)
}

func (f *fakeEngine) AIStatus() daemon.AIStatus {
	return daemon.AIStatus{Enabled: f.aiEnabled}
}

func (f *fakeEngine) CurrentProductivityScore() daemon.Score {
	return daemon.Score{}
}

func (f *fakeEngine) Insights(_ context.Context, timeframe string) (*insights.Result, error) {
	if _, err := model.ParseTimeframe(timeframe); err != nil {
		return nil, err
	}
	return f.insight, nil
}

func (f *fakeEngine) ProductivityStats(_ context.Context, timeframe string) (*model.ProductivityStats, error) {
	tf, err := model.ParseTimeframe(timeframe)
	if err != nil {
		return nil, err
	}
	return &model.ProductivityStats{Timeframe: tf, Count: 3, ScoredCount: 3, AverageScore: model.Float(6.5)}, nil
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func decode(t *testing.T, r *mcp.CallToolResult) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(resultText(r)), &out); err != nil {
		t.Fatalf("result is not a JSON object: %q", resultText(r))
	}
	return out
}

func TestToolNames(t *testing.T) {
	want := []string{
		"get_status", "start_tracking", "stop_tracking", "manual_capture_and_analyze",
		"get_dashboard_data", "get_sessions", "get_session_details", "get_ai_status",
		"get_current_productivity_score", "get_insights", "get_productivity_stats",
	}
	tools := Tools(&fakeEngine{})
	if len(tools) != len(want) {
		t.Fatalf("expected %d tools, got %d", len(want), len(tools))
	}
	for i, tool := range tools {
		if got := tool.Definition().Name; got != want[i] {
			t.Errorf("tool %d = %q, want %q", i, got, want[i])
		}
	}

	def := NewInsightsTool(&fakeEngine{}).Definition()
	if _, ok := def.InputSchema.Properties["timeframe"]; !ok {
		t.Error("get_insights is missing the timeframe parameter")
	}
	if len(def.InputSchema.Required) != 1 || def.InputSchema.Required[0] != "timeframe" {
		t.Errorf("timeframe should be required: %v", def.InputSchema.Required)
	}
}

func TestStopTrackingTwice(t *testing.T) {
	engine := &fakeEngine{}
	ctx := context.Background()
	start := NewStartTrackingTool(engine)
	stop := NewStopTrackingTool(engine)

	if r, _ := start.Handle(ctx, makeReq(nil)); r.IsError {
		t.Fatalf("start failed: %s", resultText(r))
	}
	for i := 0; i < 2; i++ {
		r, err := stop.Handle(ctx, makeReq(nil))
		if err != nil || r.IsError || decode(t, r)["success"] != true {
			t.Errorf("stop #%d: %s %v", i+1, resultText(r), err)
		}
	}

	r, _ := NewStatusTool(engine).Handle(ctx, makeReq(nil))
	if decode(t, r)["is_tracking"] != false {
		t.Errorf("unexpected status %s", resultText(r))
	}
}

func TestCaptureUnavailable(t *testing.T) {
	engine := &fakeEngine{}
	ctx := context.Background()

	r, _ := NewCaptureTool(engine).Handle(ctx, makeReq(nil))
	if !r.IsError || !strings.Contains(resultText(r), "not available") {
		t.Errorf("expected an unavailable error, got %s", resultText(r))
	}
	r, _ = NewAIStatusTool(engine).Handle(ctx, makeReq(nil))
	if decode(t, r)["enabled"] != false {
		t.Errorf("unexpected ai status %s", resultText(r))
	}
	r, _ = NewScoreTool(engine).Handle(ctx, makeReq(nil))
	if decode(t, r)["score"] != nil {
		t.Errorf("score should be null: %s", resultText(r))
	}
}

func TestSessionsTools(t *testing.T) {
	engine := &fakeEngine{sessions: []model.Session{{ID: "s1", Title: "Paper", StartTime: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}}}
	ctx := context.Background()

	r, _ := NewSessionsTool(engine).Handle(ctx, makeReq(map[string]any{"limit": float64(5), "offset": float64(1)}))
	if r.IsError || !strings.Contains(resultText(r), "Paper") {
		t.Errorf("unexpected sessions %s", resultText(r))
	}
	if engine.calls[len(engine.calls)-1] != "sessions 5 1" {
		t.Errorf("arguments not passed through: %v", engine.calls)
	}

	r, _ = NewSessionDetailsTool(engine).Handle(ctx, makeReq(map[string]any{"id": "s1"}))
	if r.IsError {
		t.Errorf("details failed: %s", resultText(r))
	}
	r, _ = NewSessionDetailsTool(engine).Handle(ctx, makeReq(map[string]any{"id": "missing"}))
	if !r.IsError || decode(t, r)["error"] != "not_found" {
		t.Errorf("expected not_found, got %s", resultText(r))
	}
	r, _ = NewSessionDetailsTool(engine).Handle(ctx, makeReq(nil))
	if !r.IsError {
		t.Error("missing id should fail")
	}

	r, _ = NewDashboardTool(engine).Handle(ctx, makeReq(nil))
	if !strings.Contains(resultText(r), "2026-03-10") {
		t.Errorf("unexpected dashboard %s", resultText(r))
	}
}

func TestInsightsTool(t *testing.T) {
	engine := &fakeEngine{insight: &insights.Result{
		Status:  insights.StatusInsufficientData,
		Message: "need at least 5 analyses",
	}}
	ctx := context.Background()
	tool := NewInsightsTool(engine)

	r, _ := tool.Handle(ctx, makeReq(map[string]any{"timeframe": "24h"}))
	out := decode(t, r)
	if !r.IsError || out["error"] != "insufficient_data" || out["message"] != "need at least 5 analyses" {
		t.Errorf("expected insufficient data shape, got %s", resultText(r))
	}

	engine.insight = &insights.Result{Status: insights.StatusReady, Timeframe: model.Timeframe24h, Payload: json.RawMessage(`{"summary":"steady"}`)}
	r, _ = tool.Handle(ctx, makeReq(map[string]any{"timeframe": "24h"}))
	if r.IsError || !strings.Contains(resultText(r), "steady") {
		t.Errorf("unexpected insight %s", resultText(r))
	}

	r, _ = tool.Handle(ctx, makeReq(map[string]any{"timeframe": "1y"}))
	if !r.IsError || decode(t, r)["error"] != "invalid_argument" {
		t.Errorf("expected invalid_argument, got %s", resultText(r))
	}
}

func TestStatsTool(t *testing.T) {
	r, _ := NewStatsTool(&fakeEngine{}).Handle(context.Background(), makeReq(map[string]any{"timeframe": "7d"}))
	out := decode(t, r)
	if out["average_score"] != 6.5 || out["timeframe"] != "7d" {
		t.Errorf("unexpected stats %s", resultText(r))
	}
}

func TestNewServerRegistersTools(t *testing.T) {
	if s := NewServer(&fakeEngine{}); s == nil {
		t.Fatal("NewServer returned nil")
	}
}
