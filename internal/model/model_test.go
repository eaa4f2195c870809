package model

import (
	"errors"
	"testing"
	"time"
)

func TestParseTimeframe(t *testing.T) {
	for _, tf := range Timeframes() {
		got, err := ParseTimeframe(string(tf))
		if err != nil {
			t.Fatalf("parse %s: %v", tf, err)
		}
		if got.Duration() <= 0 {
			t.Errorf("%s: expected positive duration", tf)
		}
	}

	if _, err := ParseTimeframe("2h"); !errors.Is(err, ErrInvalidTimeframe) {
		t.Errorf("expected ErrInvalidTimeframe, got %v", err)
	}
}

func TestTimeframeCutoff(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	if got := Timeframe7d.Cutoff(now); !got.Equal(now.Add(-168 * time.Hour)) {
		t.Errorf("unexpected cutoff %v", got)
	}
}

func TestSessionClone(t *testing.T) {
	end := time.Now()
	s := &Session{ID: "1", EndTime: &end, Metadata: map[string]string{"k": "v"}}
	c := s.Clone()
	c.Metadata["k"] = "changed"
	*c.EndTime = end.Add(time.Hour)

	if s.Metadata["k"] != "v" {
		t.Error("clone shares metadata map")
	}
	if !s.EndTime.Equal(end) {
		t.Error("clone shares end time")
	}
	if (*Session)(nil).Clone() != nil {
		t.Error("nil clone should be nil")
	}
}

func TestParseFocusQuality(t *testing.T) {
	if ParseFocusQuality("good") != FocusGood {
		t.Error("expected good")
	}
	if ParseFocusQuality("superb") != FocusUnknown {
		t.Error("expected unknown for unlisted value")
	}
}

func TestInsightExpired(t *testing.T) {
	now := time.Now()
	in := Insight{ExpiresAt: now}
	if !in.Expired(now) {
		t.Error("insight expiring exactly now should be expired")
	}
	in.ExpiresAt = now.Add(time.Second)
	if in.Expired(now) {
		t.Error("insight should still be valid")
	}
}
