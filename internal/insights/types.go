// Package insights derives productivity insights from stored analyses.
//
// Two kinds of output:
// - Generator: on-demand statistics plus AI patterns and recommendations
//   for a timeframe, cached per (type, timeframe) with a fixed TTL
// - Engine: rule-based alerts evaluated on every new analysis
package insights

import (
	"encoding/json"
	"time"

	"github.com/Atharva-Kanherkar/attentive/internal/ai"
	"github.com/Atharva-Kanherkar/attentive/internal/model"
)

// Status of a generation request.
type Status string

const (
	StatusReady            Status = "ready"
	StatusInsufficientData Status = "insufficient_data"
	StatusUnavailable      Status = "unavailable"
)

// Result is returned by Generator.Get. Payload is set only when Status is
// ready; a cached payload is returned exactly as it was stored.
type Result struct {
	Status      Status          `json:"status"`
	Timeframe   model.Timeframe `json:"timeframe"`
	Cached      bool            `json:"cached"`
	Message     string          `json:"message,omitempty"`
	DataPoints  int             `json:"data_points"`
	GeneratedAt time.Time       `json:"generated_at,omitempty"`
	ExpiresAt   time.Time       `json:"expires_at,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// Payload is the stored body of a productivity insight.
type Payload struct {
	Timeframe       model.Timeframe          `json:"timeframe"`
	GeneratedAt     time.Time                `json:"generated_at"`
	Stats           *model.ProductivityStats `json:"stats"`
	Summary         string                   `json:"summary"`
	Patterns        []ai.Pattern             `json:"patterns"`
	Recommendations []string                 `json:"recommendations"`
	TopActivities   []string                 `json:"top_activities"`
}

// Severity indicates urgency level
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityUrgent  Severity = "urgent"
)

// Alert is a rule-triggered observation about recent analyses.
type Alert struct {
	Rule      string    `json:"rule"`
	Severity  Severity  `json:"severity"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	SessionID string    `json:"session_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
