// Package analysis periodically captures the screen and has it scored.
//
// Each pass runs the same sequence:
// - gather best-effort context (focused window, open session)
// - skip the pass if the focused app is on the privacy blocklist
// - capture the screen and remember the frame
// - ask the AI for a productivity analysis
// - fan the result out to the history buffer, the repository and observers
//
// The scheduler runs independently of session detection. An analysis keeps
// the session id it saw at capture time even if that session closes before
// the analysis is stored.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Atharva-Kanherkar/attentive/internal/ai"
	"github.com/Atharva-Kanherkar/attentive/internal/capture"
	"github.com/Atharva-Kanherkar/attentive/internal/history"
	"github.com/Atharva-Kanherkar/attentive/internal/model"
)

// DefaultInterval is the capture cadence.
const DefaultInterval = 60 * time.Second

// Store is the part of the repository the scheduler writes to.
type Store interface {
	CreateAnalysis(ctx context.Context, a *model.Analysis) error
}

// SessionSource reports the open session, if any.
type SessionSource interface {
	Current() *model.Session
}

// Observer receives every new analysis. It must not block.
type Observer func(model.Analysis)

// Config wires a Scheduler.
type Config struct {
	Capturer    capture.ScreenCapturer
	Windows     capture.WindowLister // optional, context only
	Analyzer    ai.Analyzer
	Store       Store
	Sessions    SessionSource // optional
	Screenshots *history.Buffer[model.Screenshot]
	Analyses    *history.Buffer[model.Analysis]
	Interval    time.Duration

	// PersistUnattached stores analyses taken while no session is open.
	PersistUnattached bool

	// Blocked reports apps that must never be captured. Optional.
	Blocked func(app string) bool
}

// ErrBlocked is returned when the focused app is excluded from capture.
var ErrBlocked = errors.New("focused app is excluded from capture")

// Scheduler runs capture and scoring passes.
type Scheduler struct {
	cfg Config
	now func() time.Time

	// runMu keeps passes serial, including manual ones.
	runMu sync.Mutex

	mu        sync.RWMutex
	observers []Observer
}

// NewScheduler creates a scheduler. Missing buffers get default sizes.
func NewScheduler(cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Screenshots == nil {
		cfg.Screenshots = history.New[model.Screenshot](0, 0)
	}
	if cfg.Analyses == nil {
		cfg.Analyses = history.New[model.Analysis](0, 0)
	}
	return &Scheduler{
		cfg: cfg,
		now: func() time.Time { return time.Now().Truncate(time.Millisecond) },
	}
}

// Subscribe registers an observer.
func (s *Scheduler) Subscribe(o Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()
}

// Screenshots returns the screenshot history.
func (s *Scheduler) Screenshots() *history.Buffer[model.Screenshot] {
	return s.cfg.Screenshots
}

// Analyses returns the analysis history.
func (s *Scheduler) Analyses() *history.Buffer[model.Analysis] {
	return s.cfg.Analyses
}

// Enabled reports whether the AI capability is available.
func (s *Scheduler) Enabled() bool {
	return s.cfg.Analyzer != nil && s.cfg.Analyzer.Enabled()
}

// Run performs a pass every interval until ctx is cancelled. The first
// pass runs immediately.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one scheduled pass. Failures are logged and never escape.
func (s *Scheduler) Tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[analysis] pass panicked: %v", r)
		}
	}()
	if !s.Enabled() {
		return
	}
	if _, err := s.pass(context.WithoutCancel(ctx)); err != nil {
		log.Printf("[analysis] %v", err)
	}
}

// AnalyzeNow runs one pass synchronously and reports its outcome.
func (s *Scheduler) AnalyzeNow(ctx context.Context) (*model.Analysis, error) {
	if !s.Enabled() {
		return nil, ai.ErrUnavailable
	}
	return s.pass(ctx)
}

func (s *Scheduler) pass(ctx context.Context) (*model.Analysis, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	cc := s.captureContext(ctx)
	if s.cfg.Blocked != nil && s.cfg.Blocked(cc.ActiveApp) {
		return nil, fmt.Errorf("%w: %s", ErrBlocked, cc.ActiveApp)
	}

	frame, err := s.cfg.Capturer.CaptureScreen(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to capture screen: %w", err)
	}
	ts := frame.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	cc.Timestamp = ts
	s.cfg.Screenshots.Push(model.Screenshot{
		Timestamp: ts,
		Image:     frame.Data,
		Format:    frame.Format,
		Width:     frame.Width,
		Height:    frame.Height,
	})

	result, err := s.cfg.Analyzer.Analyze(ctx, frame.Data, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze capture: %w", err)
	}

	a := result.ToAnalysis(ts, cc.SessionID)
	var persistErr error
	if cc.SessionID != "" || s.cfg.PersistUnattached {
		if err := s.cfg.Store.CreateAnalysis(ctx, &a); err != nil {
			persistErr = fmt.Errorf("failed to store analysis: %w", err)
		}
	}

	s.cfg.Analyses.Push(a)
	s.notify(a)
	return &a, persistErr
}

func (s *Scheduler) captureContext(ctx context.Context) ai.CaptureContext {
	var cc ai.CaptureContext
	if s.cfg.Sessions != nil {
		if cur := s.cfg.Sessions.Current(); cur != nil {
			cc.SessionID = cur.ID
			cc.SessionTitle = cur.Title
		}
	}
	if s.cfg.Windows != nil {
		if windows, err := s.cfg.Windows.ListWindows(ctx); err == nil {
			if w, ok := capture.Focused(windows); ok {
				cc.ActiveApp = w.Class
				cc.WindowTitle = w.Title
			}
		}
	}
	return cc
}

func (s *Scheduler) notify(a model.Analysis) {
	s.mu.RLock()
	observers := append([]Observer(nil), s.observers...)
	s.mu.RUnlock()
	for _, o := range observers {
		o(a)
	}
}
