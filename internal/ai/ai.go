// Package ai scores screen captures and summarises analysis history through
// a vision-capable LLM served by OpenRouter.
//
// OpenRouter is an API proxy that gives access to multiple LLM providers
// through a single chat-completions endpoint. We use it for:
// - Productivity scoring of a single screenshot (vision model)
// - Pattern analysis and recommendations over a window of analyses (chat model)
//
// Without an API key the client runs disabled: Init reports false and every
// call returns ErrUnavailable.
package ai

import (
	"context"
	"errors"
	"time"

	"github.com/Atharva-Kanherkar/attentive/internal/model"
)

// ErrUnavailable is returned by every call while the client is disabled.
var ErrUnavailable = errors.New("ai analysis not available")

// CaptureContext describes what was on screen when a capture was taken.
// Every field except Timestamp is best effort.
type CaptureContext struct {
	Timestamp    time.Time `json:"timestamp"`
	ActiveApp    string    `json:"active_app,omitempty"`
	WindowTitle  string    `json:"window_title,omitempty"`
	SessionID    string    `json:"session_id,omitempty"`
	SessionTitle string    `json:"session_title,omitempty"`
}

// Analyzer scores a single capture.
type Analyzer interface {
	Init() bool
	Enabled() bool
	Analyze(ctx context.Context, image []byte, c CaptureContext) (*model.AnalysisResult, error)
}

// Reporter derives patterns and recommendations from past analyses.
type Reporter interface {
	Enabled() bool
	Report(ctx context.Context, analyses []model.Analysis, tf model.Timeframe) (*Report, error)
}

// Pattern is one observation about the analysed window.
type Pattern struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Severity string `json:"severity"`
}

// Report is the AI half of a productivity insight.
type Report struct {
	Summary         string    `json:"summary"`
	Patterns        []Pattern `json:"patterns"`
	Recommendations []string  `json:"recommendations"`
}
