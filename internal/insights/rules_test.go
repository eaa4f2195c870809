package insights

import (
	"testing"
	"time"

	"github.com/Atharva-Kanherkar/attentive/internal/history"
	"github.com/Atharva-Kanherkar/attentive/internal/model"
)

func scored(score float64, focus model.FocusQuality, activity string) model.Analysis {
	return model.Analysis{ProductivityScore: model.Float(score), FocusQuality: focus, ActivityType: activity}
}

type engineHarness struct {
	buf    *history.Buffer[model.Analysis]
	engine *Engine
	now    time.Time
	sent   []Alert
}

func newEngineHarness() *engineHarness {
	h := &engineHarness{
		buf: history.New[model.Analysis](0, 0),
		now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	h.engine = NewEngine(h.buf, 0)
	h.engine.now = func() time.Time { return h.now }
	h.engine.AddSink(func(a Alert) { h.sent = append(h.sent, a) })
	return h
}

func (h *engineHarness) push(a model.Analysis) []Alert {
	h.now = h.now.Add(time.Minute)
	a.Timestamp = h.now
	h.buf.Push(a)
	return h.engine.Process(a)
}

func rulesOf(alerts []Alert) map[string]bool {
	out := make(map[string]bool)
	for _, a := range alerts {
		out[a.Rule] = true
	}
	return out
}

func TestLowScoreRuleCooldown(t *testing.T) {
	h := newEngineHarness()

	alerts := h.push(scored(2, model.FocusFair, "browsing"))
	if !rulesOf(alerts)["low_score"] {
		t.Fatalf("expected low score alert, got %v", alerts)
	}
	if rulesOf(h.push(scored(3, model.FocusFair, "browsing")))["low_score"] {
		t.Error("second dip within cooldown should be quiet")
	}
	h.now = h.now.Add(20 * time.Minute)
	if !rulesOf(h.push(scored(3, model.FocusFair, "browsing")))["low_score"] {
		t.Error("dip after cooldown should alert again")
	}
	if rulesOf(h.push(model.Analysis{ActivityType: "browsing"}))["low_score"] {
		t.Error("unscored analysis must not alert")
	}
	if len(h.sent) == 0 {
		t.Error("alerts should reach sinks")
	}
}

func TestSustainedDistractionRule(t *testing.T) {
	h := newEngineHarness()

	h.push(scored(7, model.FocusPoor, "video"))
	h.push(scored(6, model.FocusPoor, "video"))
	if !rulesOf(h.push(scored(6, model.FocusPoor, "video")))["sustained_distraction"] {
		t.Fatal("three poor captures should alert")
	}
	if rulesOf(h.push(scored(6, model.FocusPoor, "video")))["sustained_distraction"] {
		t.Error("alert fires once per streak")
	}

	h.push(scored(9, model.FocusGood, "reading"))
	h.push(scored(6, model.FocusPoor, "video"))
	h.push(scored(6, model.FocusPoor, "video"))
	if !rulesOf(h.push(scored(6, model.FocusPoor, "video")))["sustained_distraction"] {
		t.Error("rule should re-arm after recovery")
	}
}

func TestDeepFocusRule(t *testing.T) {
	h := newEngineHarness()
	var alerts []Alert
	for i := 0; i < 5; i++ {
		alerts = h.push(scored(9, model.FocusExcellent, "reading"))
	}
	if !rulesOf(alerts)["deep_focus"] {
		t.Fatal("five focused captures should alert")
	}
	if rulesOf(h.push(scored(9, model.FocusExcellent, "reading")))["deep_focus"] {
		t.Error("streak alert fires once")
	}
}

func TestContextSwitchRule(t *testing.T) {
	h := newEngineHarness()
	var alerts []Alert
	for _, act := range []string{"reading", "coding", "chat", "video", "coding"} {
		alerts = h.push(scored(6, model.FocusFair, act))
	}
	if !rulesOf(alerts)["context_switching"] {
		t.Fatalf("four distinct activities should alert, got %v", alerts)
	}
}
