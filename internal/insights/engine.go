package insights

import (
	"log"
	"sync"
	"time"

	"github.com/Atharva-Kanherkar/attentive/internal/history"
	"github.com/Atharva-Kanherkar/attentive/internal/model"
)

// DefaultLowScoreThreshold is the score below which an analysis counts as
// a dip.
const DefaultLowScoreThreshold = 4.0

// AlertSink receives alerts. It must not block.
type AlertSink func(Alert)

// Engine runs alert rules over the analysis history.
type Engine struct {
	analyses *history.Buffer[model.Analysis]
	window   int
	now      func() time.Time

	mu    sync.Mutex
	rules []Rule
	sinks []AlertSink
}

// NewEngine creates an engine reading from analyses. A non-positive
// threshold falls back to DefaultLowScoreThreshold.
func NewEngine(analyses *history.Buffer[model.Analysis], lowScoreThreshold float64) *Engine {
	if lowScoreThreshold <= 0 {
		lowScoreThreshold = DefaultLowScoreThreshold
	}
	return &Engine{
		analyses: analyses,
		window:   10,
		now:      time.Now,
		rules: []Rule{
			NewLowScoreRule(lowScoreThreshold),
			NewSustainedDistractionRule(lowScoreThreshold),
			NewDeepFocusRule(),
			NewContextSwitchRule(),
		},
	}
}

// AddSink registers an alert destination.
func (e *Engine) AddSink(s AlertSink) {
	e.mu.Lock()
	e.sinks = append(e.sinks, s)
	e.mu.Unlock()
}

// Process evaluates every rule after a new analysis. The analysis is
// expected to already be in the history buffer.
func (e *Engine) Process(a model.Analysis) []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx := &RuleContext{
		Latest: a,
		Recent: e.analyses.Recent(e.window),
		Now:    e.now(),
	}

	var alerts []Alert
	for _, rule := range e.rules {
		if alert := rule.Evaluate(ctx); alert != nil {
			log.Printf("[insights] Alert: [%s] %s", alert.Severity, alert.Title)
			alerts = append(alerts, *alert)
			for _, s := range e.sinks {
				s(*alert)
			}
		}
	}
	return alerts
}
