// Package daemon provides the Manager that orchestrates tracking.
//
// The Manager runs two loops at different intervals:
// - Detection: every 3 seconds (window polling, opens and closes sessions)
// - Analysis: every 60 seconds (screen capture scored by the AI)
//
// Both loops share one cancellation context created by StartTracking.
// Everything else on the Manager is a command or a query used by the
// HTTP API, the MCP tools and the CLI.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/Atharva-Kanherkar/attentive/internal/ai"
	"github.com/Atharva-Kanherkar/attentive/internal/analysis"
	"github.com/Atharva-Kanherkar/attentive/internal/capture"
	"github.com/Atharva-Kanherkar/attentive/internal/config"
	"github.com/Atharva-Kanherkar/attentive/internal/history"
	"github.com/Atharva-Kanherkar/attentive/internal/insights"
	"github.com/Atharva-Kanherkar/attentive/internal/model"
	"github.com/Atharva-Kanherkar/attentive/internal/notify"
	"github.com/Atharva-Kanherkar/attentive/internal/storage"
	"github.com/Atharva-Kanherkar/attentive/internal/tracking"
)

// warmupHours is how far back the analysis history is reloaded on start.
const warmupHours = 168

// Deps are the collaborators a Manager drives. Enricher, Reporter, Hub,
// Desktop and Closer are optional.
type Deps struct {
	Repo     storage.Repository
	Windows  capture.WindowLister
	Screen   capture.ScreenCapturer
	Analyzer ai.Analyzer
	Reporter ai.Reporter
	Enricher tracking.Enricher
	Hub      *notify.Hub
	Desktop  *notify.DesktopNotifier
	Closer   io.Closer
}

// Manager orchestrates detection, analysis and insights.
type Manager struct {
	cfg    *config.Config
	repo   storage.Repository
	hub    *notify.Hub
	closer io.Closer

	lifecycle *tracking.Lifecycle
	detector  *tracking.Detector
	scheduler *analysis.Scheduler
	generator *insights.Generator
	engine    *insights.Engine
	desktop   *notify.DesktopNotifier

	mu       sync.Mutex
	tracking bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	now func() time.Time
}

// New wires a Manager. The analyzer is initialised here so AIStatus is
// accurate before tracking starts.
func New(cfg *config.Config, deps Deps) *Manager {
	if deps.Analyzer != nil {
		deps.Analyzer.Init()
	}

	m := &Manager{
		cfg:     cfg,
		repo:    deps.Repo,
		hub:     deps.Hub,
		closer:  deps.Closer,
		desktop: deps.Desktop,
		now:     func() time.Time { return time.Now().Truncate(time.Millisecond) },
	}

	screenshots := history.New[model.Screenshot](cfg.History.Capacity, cfg.History.Retain)
	analyses := history.New[model.Analysis](cfg.History.Capacity, cfg.History.Retain)

	m.lifecycle = tracking.NewLifecycle(deps.Repo)
	m.detector = tracking.NewDetector(
		deps.Windows,
		tracking.NewClassifier(cfg.ReaderApps),
		m.lifecycle,
		deps.Enricher,
		cfg.DetectionInterval(),
	)

	m.scheduler = analysis.NewScheduler(analysis.Config{
		Capturer:          deps.Screen,
		Windows:           deps.Windows,
		Analyzer:          deps.Analyzer,
		Store:             deps.Repo,
		Sessions:          m.lifecycle,
		Screenshots:       screenshots,
		Analyses:          analyses,
		Interval:          cfg.AnalysisInterval(),
		PersistUnattached: cfg.PersistUnattachedAnalyses,
		Blocked:           cfg.IsAppBlocked,
	})

	m.generator = insights.NewGenerator(insights.GeneratorConfig{
		Store:       deps.Repo,
		Reporter:    deps.Reporter,
		TTL:         cfg.InsightTTL(),
		MinTotal:    cfg.Insights.MinTotalAnalyses,
		MinInWindow: cfg.Insights.MinWindowAnalyses,
	})

	m.engine = insights.NewEngine(analyses, cfg.Notifications.LowScoreThreshold)

	m.lifecycle.Subscribe(m.onSessionEvent)
	m.scheduler.Subscribe(m.onAnalysis)
	m.engine.AddSink(m.onAlert)

	return m
}

func (m *Manager) onSessionEvent(e tracking.Event) {
	if e.Session != nil {
		log.Printf("[detector] %s: %s", e.Type, e.Session.Title)
	}
	m.publish(e.Type, e.Session)
}

func (m *Manager) onAnalysis(a model.Analysis) {
	m.publish(notify.TypeAnalysis, a)
	m.engine.Process(a)
}

func (m *Manager) onAlert(alert insights.Alert) {
	m.publish(notify.TypeAlert, alert)
	if m.desktop == nil || !m.cfg.Notifications.Desktop {
		return
	}
	switch alert.Severity {
	case insights.SeverityUrgent:
		m.desktop.SendAsync(alert.Title, alert.Body, notify.UrgencyCritical)
	case insights.SeverityWarning:
		m.desktop.SendAsync(alert.Title, alert.Body, notify.UrgencyNormal)
	}
}

func (m *Manager) publish(msgType string, payload any) {
	if m.hub != nil {
		m.hub.Publish(msgType, payload)
	}
}

// CommandResult is the outcome of a command.
type CommandResult struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message,omitempty"`
	Error    string          `json:"error,omitempty"`
	Analysis *model.Analysis `json:"analysis,omitempty"`
}

func failed(err error) CommandResult {
	return CommandResult{Success: false, Error: err.Error()}
}

// StartTracking closes sessions left open by a previous run, reloads the
// analysis history and starts both loops. Starting twice is a no-op.
func (m *Manager) StartTracking(ctx context.Context) CommandResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tracking {
		return CommandResult{Success: true, Message: "Tracking already active"}
	}

	if n, err := m.repo.CloseOpenSessions(ctx, m.now()); err != nil {
		log.Printf("[daemon] Failed to close orphaned sessions: %v", err)
	} else if n > 0 {
		log.Printf("[daemon] Closed %d orphaned session(s)", n)
	}

	if err := m.LoadHistory(ctx); err != nil {
		log.Printf("[daemon] %v", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		m.detector.Run(loopCtx)
	}()
	go func() {
		defer m.wg.Done()
		m.scheduler.Run(loopCtx)
	}()

	m.tracking = true
	log.Printf("[daemon] Tracking started (detection: %s, analysis: %s, ai: %v)",
		m.cfg.DetectionInterval(), m.cfg.AnalysisInterval(), m.scheduler.Enabled())
	m.publish(notify.TypeTracking, map[string]bool{"is_tracking": true})
	return CommandResult{Success: true, Message: "Tracking started"}
}

// StopTracking cancels both loops, waits for them and closes the open
// session. Stopping when not tracking only retries a close that failed
// before, and is otherwise a no-op success.
func (m *Manager) StopTracking(ctx context.Context) CommandResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.tracking {
		// a close that failed on the previous stop is retried
		if m.lifecycle.Current() == nil {
			return CommandResult{Success: true, Message: "Tracking is not active"}
		}
		if _, err := m.lifecycle.Close(ctx); err != nil {
			return CommandResult{Success: false, Message: "Tracking is not active", Error: err.Error()}
		}
		return CommandResult{Success: true, Message: "Tracking is not active"}
	}

	m.cancel()
	m.wg.Wait()
	m.tracking = false
	m.cancel = nil

	_, err := m.lifecycle.Close(ctx)
	m.detector.Reset()
	m.publish(notify.TypeTracking, map[string]bool{"is_tracking": false})

	if err != nil {
		log.Printf("[daemon] Failed to close session on stop: %v", err)
		return CommandResult{Success: false, Message: "Tracking stopped", Error: err.Error()}
	}
	log.Println("[daemon] Tracking stopped")
	return CommandResult{Success: true, Message: "Tracking stopped"}
}

// ManualCaptureAndAnalyze runs one analysis pass now.
func (m *Manager) ManualCaptureAndAnalyze(ctx context.Context) CommandResult {
	a, err := m.scheduler.AnalyzeNow(ctx)
	switch {
	case errors.Is(err, ai.ErrUnavailable):
		return CommandResult{Success: false, Error: "AI analysis is not available: no OpenRouter API key configured"}
	case errors.Is(err, analysis.ErrBlocked):
		return CommandResult{Success: false, Error: err.Error()}
	case err != nil && a == nil:
		return failed(err)
	case err != nil:
		return CommandResult{Success: true, Message: "Capture analyzed but not stored", Error: err.Error(), Analysis: a}
	}
	return CommandResult{Success: true, Message: "Capture analyzed", Analysis: a}
}

// LoadHistory refills the analysis history from the signed-in owner's last
// week of stored analyses. It runs on start and whenever the owner changes.
func (m *Manager) LoadHistory(ctx context.Context) error {
	recent, err := m.repo.GetRecentAnalysis(ctx, warmupHours)
	if err != nil {
		return fmt.Errorf("failed to load analysis history: %w", err)
	}
	m.scheduler.Analyses().Reset(recent)
	return nil
}

// IsTracking reports whether the loops are running.
func (m *Manager) IsTracking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tracking
}

// Status is the live tracking state.
type Status struct {
	IsTracking         bool             `json:"is_tracking"`
	CurrentSession     *model.Session   `json:"current_session"`
	LastDetectedSignal *tracking.Signal `json:"last_detected_signal"`
}

// Status returns the live tracking state.
func (m *Manager) Status() Status {
	return Status{
		IsTracking:         m.IsTracking(),
		CurrentSession:     m.lifecycle.Current(),
		LastDetectedSignal: m.detector.LastSignal(),
	}
}

// Dashboard is the summary shown on the main screen.
type Dashboard struct {
	RecentSessions []model.Session   `json:"recent_sessions"`
	DailyStats     *model.DailyStats `json:"daily_stats"`
	CurrentSession *model.Session    `json:"current_session"`
}

// DashboardData returns recent sessions and today's statistics.
func (m *Manager) DashboardData(ctx context.Context) (*Dashboard, error) {
	recent, err := m.repo.GetRecentSessions(ctx, 10)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent sessions: %w", err)
	}
	daily, err := m.repo.GetDailyStats(ctx, m.now())
	if err != nil {
		return nil, fmt.Errorf("failed to get daily stats: %w", err)
	}
	return &Dashboard{
		RecentSessions: recent,
		DailyStats:     daily,
		CurrentSession: m.lifecycle.Current(),
	}, nil
}

// Sessions lists sessions newest first. A non-positive limit means 50.
func (m *Manager) Sessions(ctx context.Context, limit, offset int) ([]model.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return m.repo.GetSessions(ctx, limit, offset)
}

// SessionDetails is one session with its analyses.
type SessionDetails struct {
	Session  *model.Session           `json:"session"`
	Analyses []model.Analysis         `json:"analyses"`
	Stats    *model.ProductivityStats `json:"stats"`
}

// SessionDetails returns a session, its analyses and their aggregate.
func (m *Manager) SessionDetails(ctx context.Context, id string) (*SessionDetails, error) {
	s, err := m.repo.GetSessionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	analyses, err := m.repo.GetSessionAnalysis(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session analyses: %w", err)
	}
	return &SessionDetails{
		Session:  s,
		Analyses: analyses,
		Stats:    sessionStats(analyses),
	}, nil
}

func sessionStats(analyses []model.Analysis) *model.ProductivityStats {
	stats := &model.ProductivityStats{Count: len(analyses)}
	var sum float64
	for _, a := range analyses {
		if a.ProductivityScore == nil {
			continue
		}
		v := *a.ProductivityScore
		if stats.ScoredCount == 0 || v < *stats.MinScore {
			stats.MinScore = model.Float(v)
		}
		if stats.ScoredCount == 0 || v > *stats.MaxScore {
			stats.MaxScore = model.Float(v)
		}
		sum += v
		stats.ScoredCount++
	}
	if stats.ScoredCount > 0 {
		stats.AverageScore = model.Float(sum / float64(stats.ScoredCount))
	}
	return stats
}

// AIStatus describes the AI capability and the in-memory histories.
type AIStatus struct {
	Enabled                bool       `json:"enabled"`
	AnalysisHistoryCount   int        `json:"analysis_history_count"`
	ScreenshotHistoryCount int        `json:"screenshot_history_count"`
	LastAnalysisTimestamp  *time.Time `json:"last_analysis_timestamp"`
}

// AIStatus reports whether analysis is enabled and how much is buffered.
func (m *Manager) AIStatus() AIStatus {
	st := AIStatus{
		Enabled:                m.scheduler.Enabled(),
		AnalysisHistoryCount:   m.scheduler.Analyses().Len(),
		ScreenshotHistoryCount: m.scheduler.Screenshots().Len(),
	}
	if last, ok := m.scheduler.Analyses().Last(); ok {
		ts := last.Timestamp
		st.LastAnalysisTimestamp = &ts
	}
	return st
}

// Score is the most recent productivity score.
type Score struct {
	Score      *float64        `json:"score"`
	Timestamp  *time.Time      `json:"timestamp"`
	Confidence *float64        `json:"confidence"`
	Analysis   *model.Analysis `json:"analysis"`
}

// CurrentProductivityScore returns the latest buffered analysis. All
// fields are nil before the first analysis.
func (m *Manager) CurrentProductivityScore() Score {
	last, ok := m.scheduler.Analyses().Last()
	if !ok {
		return Score{}
	}
	ts := last.Timestamp
	return Score{
		Score:      last.ProductivityScore,
		Timestamp:  &ts,
		Confidence: last.ConfidenceScore,
		Analysis:   &last,
	}
}

// Insights returns the cached or freshly generated insight for timeframe.
func (m *Manager) Insights(ctx context.Context, timeframe string) (*insights.Result, error) {
	tf, err := model.ParseTimeframe(timeframe)
	if err != nil {
		return nil, err
	}
	return m.generator.Get(ctx, tf)
}

// ProductivityStats aggregates stored analyses over timeframe.
func (m *Manager) ProductivityStats(ctx context.Context, timeframe string) (*model.ProductivityStats, error) {
	tf, err := model.ParseTimeframe(timeframe)
	if err != nil {
		return nil, err
	}
	return m.repo.GetProductivityStats(ctx, tf)
}

// RunSweeper deletes expired insights until ctx is cancelled.
func (m *Manager) RunSweeper(ctx context.Context) {
	m.generator.RunSweeper(ctx, m.cfg.SweepInterval())
}

// Storage describes which backend and owner the next call resolves to.
func (m *Manager) Storage() (backend, owner string) {
	if t, ok := m.repo.(interface{ Target() (string, string) }); ok {
		return t.Target()
	}
	return "local", storage.LocalOwner
}

// Close stops tracking and releases the storage backends.
func (m *Manager) Close() error {
	m.StopTracking(context.Background())
	if m.closer != nil {
		return m.closer.Close()
	}
	return nil
}
