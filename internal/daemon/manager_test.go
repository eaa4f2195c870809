package daemon

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Atharva-Kanherkar/attentive/internal/ai"
	"github.com/Atharva-Kanherkar/attentive/internal/capture"
	"github.com/Atharva-Kanherkar/attentive/internal/config"
	"github.com/Atharva-Kanherkar/attentive/internal/insights"
	"github.com/Atharva-Kanherkar/attentive/internal/model"
	"github.com/Atharva-Kanherkar/attentive/internal/storage"
)

type staticWindows []capture.Window

func (w staticWindows) ListWindows(context.Context) ([]capture.Window, error) { return w, nil }

type stubScreen struct{}

func (stubScreen) CaptureScreen(context.Context) (*capture.Frame, error) {
	return &capture.Frame{Timestamp: time.Now().Truncate(time.Millisecond), Data: []byte("png"), Format: "png"}, nil
}

type stubAnalyzer struct {
	enabled bool
	score   float64
}

func (s *stubAnalyzer) Init() bool    { return s.enabled }
func (s *stubAnalyzer) Enabled() bool { return s.enabled }

func (s *stubAnalyzer) Analyze(context.Context, []byte, ai.CaptureContext) (*model.AnalysisResult, error) {
	return &model.AnalysisResult{
		ProductivityScore: model.Float(s.score),
		ActivityType:      "reading",
		FocusQuality:      model.FocusGood,
		ConfidenceScore:   model.Float(0.8),
	}, nil
}

func newTestManager(t *testing.T, windows staticWindows, analyzer *stubAnalyzer) (*Manager, *storage.Adapter) {
	t.Helper()
	local, err := storage.NewSQLiteStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	repo := storage.NewAdapter(local, nil, nil)

	cfg := config.DefaultConfig()
	cfg.Notifications.Desktop = false

	m := New(cfg, Deps{
		Repo:     repo,
		Windows:  windows,
		Screen:   stubScreen{},
		Analyzer: analyzer,
		Closer:   repo,
	})
	t.Cleanup(func() { m.Close() })
	return m, repo
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStopTrackingTwice(t *testing.T) {
	windows := staticWindows{{Title: "Attention Is All You Need - Zotero", Class: "Zotero", Focused: true}}
	m, repo := newTestManager(t, windows, &stubAnalyzer{})
	ctx := context.Background()

	if res := m.StartTracking(ctx); !res.Success {
		t.Fatalf("StartTracking: %+v", res)
	}
	if res := m.StartTracking(ctx); !res.Success || !m.IsTracking() {
		t.Fatalf("second StartTracking should be a no-op success: %+v", res)
	}
	waitFor(t, "session to open", func() bool { return m.Status().CurrentSession != nil })

	st := m.Status()
	if st.CurrentSession.Title != "Attention Is All You Need" || st.LastDetectedSignal == nil {
		t.Errorf("unexpected status %+v", st)
	}

	for i := 0; i < 2; i++ {
		if res := m.StopTracking(ctx); !res.Success {
			t.Fatalf("StopTracking #%d: %+v", i+1, res)
		}
	}
	if m.IsTracking() || m.Status().CurrentSession != nil || m.Status().LastDetectedSignal != nil {
		t.Error("stop should clear the live state")
	}

	sessions, err := repo.GetRecentSessions(ctx, 10)
	if err != nil {
		t.Fatalf("GetRecentSessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if sessions[0].IsOpen() || sessions[0].Duration < 0 {
		t.Errorf("session should be closed with a non-negative duration: %+v", sessions[0])
	}
}

// swappableWindows lets a test change the focused window between ticks.
type swappableWindows struct {
	mu    sync.Mutex
	title string
}

func (w *swappableWindows) set(title string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.title = title
}

func (w *swappableWindows) ListWindows(context.Context) ([]capture.Window, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return []capture.Window{{Title: w.title, Class: "Zotero", Focused: true}}, nil
}

type switchableIdentity struct {
	mu     sync.Mutex
	userID string
}

func (s *switchableIdentity) set(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
}

func (s *switchableIdentity) CurrentUserID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID, s.userID != ""
}

func TestLoginDuringSessionThenStopTwice(t *testing.T) {
	ctx := context.Background()
	local, err := storage.NewSQLiteStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	mr := miniredis.RunT(t)
	cloud := storage.NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test")
	identity := &switchableIdentity{}
	repo := storage.NewAdapter(local, cloud, identity)

	cfg := config.DefaultConfig()
	cfg.Notifications.Desktop = false
	cfg.DetectionIntervalSeconds = 1
	windows := &swappableWindows{title: "Paper A - Zotero"}
	m := New(cfg, Deps{Repo: repo, Windows: windows, Screen: stubScreen{}, Analyzer: &stubAnalyzer{}, Closer: repo})
	t.Cleanup(func() { m.Close() })

	if res := m.StartTracking(ctx); !res.Success {
		t.Fatalf("StartTracking: %+v", res)
	}
	waitFor(t, "first session", func() bool { return m.Status().CurrentSession != nil })
	first := m.Status().CurrentSession

	identity.set("user-1")
	windows.set("Paper B - Zotero")
	waitFor(t, "second session", func() bool {
		cur := m.Status().CurrentSession
		return cur != nil && cur.Title == "Paper B"
	})
	second := m.Status().CurrentSession

	for i := 0; i < 2; i++ {
		if res := m.StopTracking(ctx); !res.Success {
			t.Fatalf("StopTracking #%d: %+v", i+1, res)
		}
	}
	if m.Status().CurrentSession != nil {
		t.Error("no session should stay open after stopping")
	}

	a, err := local.GetSessionByID(ctx, storage.LocalOwner, first.ID)
	if err != nil || a.IsOpen() {
		t.Errorf("session opened before login should be closed locally: %+v %v", a, err)
	}
	b, err := cloud.GetSessionByID(ctx, "user-1", second.ID)
	if err != nil || b.IsOpen() {
		t.Errorf("session opened after login should be closed in the cloud: %+v %v", b, err)
	}
}

func TestStartTrackingRecoversAndWarmsUp(t *testing.T) {
	m, repo := newTestManager(t, staticWindows{}, &stubAnalyzer{})
	ctx := context.Background()

	orphan := &model.Session{Title: "Left open", SessionType: model.SessionTypePDFReading, StartTime: time.Now().Add(-time.Hour).Truncate(time.Millisecond), Source: "zotero"}
	if err := repo.CreateSession(ctx, orphan); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	for i := 0; i < 3; i++ {
		a := &model.Analysis{Timestamp: time.Now().Add(-time.Duration(i+1) * time.Minute).Truncate(time.Millisecond), ProductivityScore: model.Float(7), FocusQuality: model.FocusGood}
		if err := repo.CreateAnalysis(ctx, a); err != nil {
			t.Fatalf("CreateAnalysis: %v", err)
		}
	}

	if res := m.StartTracking(ctx); !res.Success {
		t.Fatalf("StartTracking: %+v", res)
	}
	defer m.StopTracking(ctx)

	got, err := repo.GetSessionByID(ctx, orphan.ID)
	if err != nil {
		t.Fatalf("GetSessionByID: %v", err)
	}
	if got.IsOpen() {
		t.Error("orphaned session should be closed on start")
	}
	if n := m.AIStatus().AnalysisHistoryCount; n != 3 {
		t.Errorf("expected 3 warmed analyses, got %d", n)
	}
}

func TestAIDisabled(t *testing.T) {
	m, _ := newTestManager(t, staticWindows{}, &stubAnalyzer{enabled: false})

	st := m.AIStatus()
	if st.Enabled || st.LastAnalysisTimestamp != nil {
		t.Errorf("unexpected status %+v", st)
	}
	res := m.ManualCaptureAndAnalyze(context.Background())
	if res.Success || !strings.Contains(res.Error, "not available") {
		t.Errorf("expected unavailable error, got %+v", res)
	}
	if score := m.CurrentProductivityScore(); score.Score != nil || score.Analysis != nil {
		t.Errorf("no score expected before any analysis: %+v", score)
	}
}

func TestManualCaptureUpdatesScore(t *testing.T) {
	m, _ := newTestManager(t, staticWindows{{Title: "notes.pdf - Okular", Class: "okular", Focused: true}}, &stubAnalyzer{enabled: true, score: 7.5})

	res := m.ManualCaptureAndAnalyze(context.Background())
	if !res.Success || res.Analysis == nil {
		t.Fatalf("ManualCaptureAndAnalyze: %+v", res)
	}
	score := m.CurrentProductivityScore()
	if score.Score == nil || *score.Score != 7.5 || score.Confidence == nil || score.Timestamp == nil {
		t.Errorf("unexpected score %+v", score)
	}
	if st := m.AIStatus(); !st.Enabled || st.AnalysisHistoryCount != 1 || st.ScreenshotHistoryCount != 1 {
		t.Errorf("unexpected ai status %+v", st)
	}
}

func TestManualCaptureBlockedApp(t *testing.T) {
	m, _ := newTestManager(t, staticWindows{{Title: "Passwords", Class: "org.keepassxc.KeePassXC", Focused: true}}, &stubAnalyzer{enabled: true, score: 5})

	res := m.ManualCaptureAndAnalyze(context.Background())
	if res.Success || m.AIStatus().ScreenshotHistoryCount != 0 {
		t.Errorf("blocked app must not be captured: %+v", res)
	}
}

func TestInsightsInsufficientData(t *testing.T) {
	m, _ := newTestManager(t, staticWindows{}, &stubAnalyzer{enabled: true, score: 6})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if res := m.ManualCaptureAndAnalyze(ctx); !res.Success {
			t.Fatalf("ManualCaptureAndAnalyze: %+v", res)
		}
	}
	res, err := m.Insights(ctx, "24h")
	if err != nil {
		t.Fatalf("Insights: %v", err)
	}
	if res.Status != insights.StatusInsufficientData || res.Cached || res.Payload != nil {
		t.Errorf("expected insufficient data, got %+v", res)
	}

	if _, err := m.Insights(ctx, "2d"); !errors.Is(err, model.ErrInvalidTimeframe) {
		t.Errorf("expected ErrInvalidTimeframe, got %v", err)
	}
	if _, err := m.ProductivityStats(ctx, "forever"); !errors.Is(err, model.ErrInvalidTimeframe) {
		t.Errorf("expected ErrInvalidTimeframe, got %v", err)
	}
}

func TestDashboardAndSessionDetails(t *testing.T) {
	m, repo := newTestManager(t, staticWindows{}, &stubAnalyzer{})
	ctx := context.Background()

	s := &model.Session{Title: "Paper", SessionType: model.SessionTypePDFReading, StartTime: time.Now().Truncate(time.Millisecond), Source: "zotero"}
	if err := repo.CreateSession(ctx, s); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	for _, v := range []float64{4, 8} {
		a := &model.Analysis{SessionID: s.ID, Timestamp: time.Now().Truncate(time.Millisecond), ProductivityScore: model.Float(v)}
		if err := repo.CreateAnalysis(ctx, a); err != nil {
			t.Fatalf("CreateAnalysis: %v", err)
		}
	}

	dash, err := m.DashboardData(ctx)
	if err != nil {
		t.Fatalf("DashboardData: %v", err)
	}
	if len(dash.RecentSessions) != 1 || dash.DailyStats.TotalSessions != 1 || dash.CurrentSession != nil {
		t.Errorf("unexpected dashboard %+v", dash)
	}

	details, err := m.SessionDetails(ctx, s.ID)
	if err != nil {
		t.Fatalf("SessionDetails: %v", err)
	}
	if len(details.Analyses) != 2 || *details.Stats.AverageScore != 6 || *details.Stats.MaxScore != 8 {
		t.Errorf("unexpected details %+v", details.Stats)
	}
	if _, err := m.SessionDetails(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	list, err := m.Sessions(ctx, 0, -1)
	if err != nil || len(list) != 1 {
		t.Errorf("Sessions: %v %d", err, len(list))
	}
	if backend, owner := m.Storage(); backend != "local" || owner != storage.LocalOwner {
		t.Errorf("unexpected target %s/%s", backend, owner)
	}
}

func TestProjects(t *testing.T) {
	m, repo := newTestManager(t, staticWindows{}, &stubAnalyzer{})
	ctx := context.Background()

	name := "Thesis"
	p, err := m.CreateProject(ctx, ProjectInput{Name: &name})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if p.Status != model.ProjectActive || p.ID == "" {
		t.Errorf("unexpected project %+v", p)
	}

	if _, err := m.CreateProject(ctx, ProjectInput{}); !errors.Is(err, ErrInvalidProject) {
		t.Errorf("missing name should be invalid, got %v", err)
	}
	bad := "someday"
	if _, err := m.UpdateProject(ctx, p.ID, ProjectInput{Status: &bad}); !errors.Is(err, ErrInvalidProject) {
		t.Errorf("unknown status should be invalid, got %v", err)
	}
	paused := model.ProjectPaused
	updated, err := m.UpdateProject(ctx, p.ID, ProjectInput{Status: &paused})
	if err != nil || updated.Status != model.ProjectPaused || updated.Name != "Thesis" {
		t.Errorf("UpdateProject: %+v %v", updated, err)
	}

	s := &model.Session{Title: "Chapter 2", SessionType: model.SessionTypePDFReading, StartTime: time.Now().Truncate(time.Millisecond)}
	if err := repo.CreateSession(ctx, s); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := m.AssignSession(ctx, s.ID, p.ID); err != nil {
		t.Fatalf("AssignSession: %v", err)
	}
	sessions, err := m.ProjectSessions(ctx, p.ID)
	if err != nil || len(sessions) != 1 {
		t.Fatalf("ProjectSessions: %v %d", err, len(sessions))
	}

	if err := m.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	if _, err := m.GetProject(ctx, p.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	got, _ := repo.GetSessionByID(ctx, s.ID)
	if got.ProjectID != "" {
		t.Error("deleting a project should detach its sessions")
	}
}
