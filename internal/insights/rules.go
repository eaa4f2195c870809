package insights

import (
	"fmt"
	"strings"
	"time"

	"github.com/Atharva-Kanherkar/attentive/internal/model"
)

// Rule evaluates recent analyses and may raise an alert.
type Rule interface {
	Name() string
	Evaluate(ctx *RuleContext) *Alert
}

// RuleContext provides data for rule evaluation.
type RuleContext struct {
	Latest model.Analysis
	Recent []model.Analysis // oldest first, Latest included
	Now    time.Time
}

// tail returns the last n analyses, or nil if there are fewer.
func (c *RuleContext) tail(n int) []model.Analysis {
	if len(c.Recent) < n {
		return nil
	}
	return c.Recent[len(c.Recent)-n:]
}

// LowScoreRule fires when a single score falls below the threshold.
type LowScoreRule struct {
	threshold float64
	cooldown  time.Duration
	lastAlert time.Time
}

func NewLowScoreRule(threshold float64) *LowScoreRule {
	return &LowScoreRule{threshold: threshold, cooldown: 15 * time.Minute}
}

func (r *LowScoreRule) Name() string {
	return "low_score"
}

func (r *LowScoreRule) Evaluate(ctx *RuleContext) *Alert {
	score := ctx.Latest.ProductivityScore
	if score == nil || *score >= r.threshold {
		return nil
	}
	if !r.lastAlert.IsZero() && ctx.Now.Sub(r.lastAlert) < r.cooldown {
		return nil
	}
	r.lastAlert = ctx.Now

	body := fmt.Sprintf("Productivity score %.1f", *score)
	if ctx.Latest.ActivityType != "" {
		body += " while " + ctx.Latest.ActivityType
	}
	if len(ctx.Latest.Applications) > 0 {
		body += " in " + strings.Join(ctx.Latest.Applications, ", ")
	}
	return &Alert{
		Rule:      r.Name(),
		Severity:  SeverityWarning,
		Title:     "Productivity dipped",
		Body:      body,
		SessionID: ctx.Latest.SessionID,
		CreatedAt: ctx.Now,
	}
}

// SustainedDistractionRule fires once when several consecutive analyses
// show poor focus, and re-arms after focus recovers.
type SustainedDistractionRule struct {
	window    int
	threshold float64
	alerted   bool
}

func NewSustainedDistractionRule(threshold float64) *SustainedDistractionRule {
	return &SustainedDistractionRule{window: 3, threshold: threshold}
}

func (r *SustainedDistractionRule) Name() string {
	return "sustained_distraction"
}

func (r *SustainedDistractionRule) Evaluate(ctx *RuleContext) *Alert {
	recent := ctx.tail(r.window)
	if recent == nil {
		return nil
	}
	for _, a := range recent {
		if !r.distracted(a) {
			r.alerted = false
			return nil
		}
	}
	if r.alerted {
		return nil
	}
	r.alerted = true

	span := recent[len(recent)-1].Timestamp.Sub(recent[0].Timestamp).Round(time.Minute)
	return &Alert{
		Rule:      r.Name(),
		Severity:  SeverityUrgent,
		Title:     "Focus has drifted",
		Body:      fmt.Sprintf("The last %d captures over %v looked distracted. Time for a reset?", r.window, span),
		SessionID: ctx.Latest.SessionID,
		CreatedAt: ctx.Now,
	}
}

func (r *SustainedDistractionRule) distracted(a model.Analysis) bool {
	if a.FocusQuality == model.FocusPoor {
		return true
	}
	return a.ProductivityScore != nil && *a.ProductivityScore < r.threshold
}

// DeepFocusRule celebrates a streak of highly focused captures.
type DeepFocusRule struct {
	window   int
	minScore float64
	alerted  bool
}

func NewDeepFocusRule() *DeepFocusRule {
	return &DeepFocusRule{window: 5, minScore: 8}
}

func (r *DeepFocusRule) Name() string {
	return "deep_focus"
}

func (r *DeepFocusRule) Evaluate(ctx *RuleContext) *Alert {
	recent := ctx.tail(r.window)
	if recent == nil {
		return nil
	}
	for _, a := range recent {
		focused := a.FocusQuality == model.FocusExcellent || a.FocusQuality == model.FocusGood
		if !focused || a.ProductivityScore == nil || *a.ProductivityScore < r.minScore {
			r.alerted = false
			return nil
		}
	}
	if r.alerted {
		return nil
	}
	r.alerted = true

	return &Alert{
		Rule:      r.Name(),
		Severity:  SeverityInfo,
		Title:     "Deep focus streak",
		Body:      fmt.Sprintf("%d focused captures in a row. Keep going.", r.window),
		SessionID: ctx.Latest.SessionID,
		CreatedAt: ctx.Now,
	}
}

// ContextSwitchRule notices many different activities in a short run.
type ContextSwitchRule struct {
	window    int
	distinct  int
	cooldown  time.Duration
	lastAlert time.Time
}

func NewContextSwitchRule() *ContextSwitchRule {
	return &ContextSwitchRule{window: 5, distinct: 4, cooldown: 30 * time.Minute}
}

func (r *ContextSwitchRule) Name() string {
	return "context_switching"
}

func (r *ContextSwitchRule) Evaluate(ctx *RuleContext) *Alert {
	recent := ctx.tail(r.window)
	if recent == nil {
		return nil
	}
	seen := make(map[string]bool)
	var order []string
	for _, a := range recent {
		if a.ActivityType == "" || a.ActivityType == "unknown" || seen[a.ActivityType] {
			continue
		}
		seen[a.ActivityType] = true
		order = append(order, a.ActivityType)
	}
	if len(order) < r.distinct {
		return nil
	}
	if !r.lastAlert.IsZero() && ctx.Now.Sub(r.lastAlert) < r.cooldown {
		return nil
	}
	r.lastAlert = ctx.Now

	return &Alert{
		Rule:      r.Name(),
		Severity:  SeverityInfo,
		Title:     "Fragmented attention",
		Body:      "Switched between " + strings.Join(order, ", "),
		SessionID: ctx.Latest.SessionID,
		CreatedAt: ctx.Now,
	}
}
