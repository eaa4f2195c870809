// Package model defines the entities shared by the tracking engine and
// every storage backend: sessions, analyses, insights and projects.
package model

import (
	"encoding/json"
	"time"
)

// SessionTypePDFReading is the stream produced by document detection.
const SessionTypePDFReading = "pdf_reading"

// Session is a bounded interval of sustained activity of one type.
// EndTime is nil while the session is open.
type Session struct {
	ID          string            `json:"id"`
	Owner       string            `json:"owner"`
	Title       string            `json:"title"`
	SessionType string            `json:"session_type"`
	StartTime   time.Time         `json:"start_time"`
	EndTime     *time.Time        `json:"end_time,omitempty"`
	Duration    time.Duration     `json:"duration"`
	Source      string            `json:"source"`
	ProjectID   string            `json:"project_id,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// IsOpen reports whether the session has not been closed yet.
func (s *Session) IsOpen() bool {
	return s.EndTime == nil
}

// Clone returns a deep copy so callers can hand sessions to readers
// without sharing the metadata map.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.EndTime != nil {
		end := *s.EndTime
		c.EndTime = &end
	}
	if s.Metadata != nil {
		c.Metadata = make(map[string]string, len(s.Metadata))
		for k, v := range s.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// SessionUpdate carries the mutable fields of a session. Nil fields are
// left untouched.
type SessionUpdate struct {
	Title     *string
	EndTime   *time.Time
	Duration  *time.Duration
	ProjectID *string
	Metadata  map[string]string
}

// FocusQuality grades how focused the captured activity looked.
type FocusQuality string

const (
	FocusExcellent FocusQuality = "excellent"
	FocusGood      FocusQuality = "good"
	FocusFair      FocusQuality = "fair"
	FocusPoor      FocusQuality = "poor"
	FocusUnknown   FocusQuality = "unknown"
)

// ParseFocusQuality maps free text onto the enum, falling back to unknown.
func ParseFocusQuality(s string) FocusQuality {
	switch FocusQuality(s) {
	case FocusExcellent, FocusGood, FocusFair, FocusPoor:
		return FocusQuality(s)
	default:
		return FocusUnknown
	}
}

// Score bounds.
const (
	MinProductivityScore = 0.0
	MaxProductivityScore = 10.0
	MinConfidenceScore   = 0.0
	MaxConfidenceScore   = 1.0
)

// Analysis is one AI scoring of a screen capture.
type Analysis struct {
	ID                string       `json:"id"`
	Owner             string       `json:"owner"`
	SessionID         string       `json:"session_id,omitempty"`
	Timestamp         time.Time    `json:"timestamp"`
	ProductivityScore *float64     `json:"productivity_score"`
	ActivityType      string       `json:"activity_type"`
	Applications      []string     `json:"applications"`
	FocusQuality      FocusQuality `json:"focus_quality"`
	ConfidenceScore   *float64     `json:"confidence_score"`
	RawAnalysis       string       `json:"raw_analysis"`
	Categories        []string     `json:"categories"`
	Tags              []string     `json:"tags"`
}

// AnalysisResult is what the AI capability returns for one capture.
// Every score is optional; values are range-checked when the response
// is parsed, so a non-nil score is always within bounds.
type AnalysisResult struct {
	ProductivityScore *float64
	ActivityType      string
	Applications      []string
	FocusQuality      FocusQuality
	ConfidenceScore   *float64
	RawAnalysis       string
	Categories        []string
	Tags              []string
}

// ToAnalysis stamps a result with its capture time and session.
func (r *AnalysisResult) ToAnalysis(ts time.Time, sessionID string) Analysis {
	return Analysis{
		SessionID:         sessionID,
		Timestamp:         ts,
		ProductivityScore: r.ProductivityScore,
		ActivityType:      r.ActivityType,
		Applications:      r.Applications,
		FocusQuality:      r.FocusQuality,
		ConfidenceScore:   r.ConfidenceScore,
		RawAnalysis:       r.RawAnalysis,
		Categories:        r.Categories,
		Tags:              r.Tags,
	}
}

// Screenshot is one captured frame kept in the screenshot history.
type Screenshot struct {
	Timestamp time.Time `json:"timestamp"`
	Image     []byte    `json:"-"`
	Format    string    `json:"format"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
}

// InsightTypeProductivity is the aggregate served by get_insights.
const InsightTypeProductivity = "productivity_insights"

// Insight is a cached aggregate result for an (insight type, timeframe) pair.
type Insight struct {
	ID          string          `json:"id"`
	Owner       string          `json:"owner"`
	InsightType string          `json:"insight_type"`
	Timeframe   Timeframe       `json:"timeframe"`
	DataPoints  int             `json:"data_points"`
	Payload     json.RawMessage `json:"payload"`
	GeneratedAt time.Time       `json:"generated_at"`
	ExpiresAt   time.Time       `json:"expires_at"`
}

// Expired reports whether the insight is no longer valid at now.
func (i *Insight) Expired(now time.Time) bool {
	return !i.ExpiresAt.After(now)
}

// Project groups sessions and analyses.
type Project struct {
	ID          string     `json:"id"`
	Owner       string     `json:"owner"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	Tags        []string   `json:"tags,omitempty"`
	Priority    int        `json:"priority"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Project statuses.
const (
	ProjectActive    = "active"
	ProjectPaused    = "paused"
	ProjectCompleted = "completed"
	ProjectArchived  = "archived"
)

// DailyStats summarises the sessions that started on one calendar day.
type DailyStats struct {
	Date            string                   `json:"date"`
	TotalSessions   int                      `json:"total_sessions"`
	TotalDuration   time.Duration            `json:"total_duration"`
	AverageDuration time.Duration            `json:"average_duration"`
	LongestSession  time.Duration            `json:"longest_session"`
	ByType          map[string]time.Duration `json:"by_type"`
}

// ProductivityStats aggregates analyses over a timeframe. Score fields
// are nil when no analysis in the window carried a score.
type ProductivityStats struct {
	Timeframe         Timeframe `json:"timeframe"`
	Count             int       `json:"count"`
	ScoredCount       int       `json:"scored_count"`
	AverageScore      *float64  `json:"average_score"`
	MinScore          *float64  `json:"min_score"`
	MaxScore          *float64  `json:"max_score"`
	AverageConfidence *float64  `json:"average_confidence"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
