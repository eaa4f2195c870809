package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Atharva-Kanherkar/attentive/internal/ai"
	"github.com/Atharva-Kanherkar/attentive/internal/model"
	"github.com/Atharva-Kanherkar/attentive/internal/storage"
)

// memInsightStore keeps rows per owner; owner plays the signed-in account.
type memInsightStore struct {
	owner      string
	insights   map[string]*model.Insight
	analyses   map[string][]model.Analysis
	stores     int
	statsCalls int
}

func newMemInsightStore() *memInsightStore {
	return &memInsightStore{
		owner:    storage.LocalOwner,
		insights: make(map[string]*model.Insight),
		analyses: make(map[string][]model.Analysis),
	}
}

func (m *memInsightStore) cacheKey(insightType string, tf model.Timeframe) string {
	return m.owner + "/" + insightType + "/" + string(tf)
}

func (m *memInsightStore) GetCachedInsights(_ context.Context, insightType string, tf model.Timeframe, now time.Time) (*model.Insight, error) {
	in, ok := m.insights[m.cacheKey(insightType, tf)]
	if !ok || in.Expired(now) {
		return nil, storage.ErrNotFound
	}
	c := *in
	return &c, nil
}

func (m *memInsightStore) StoreInsights(_ context.Context, in *model.Insight) error {
	m.stores++
	in.ID = "i1"
	in.Owner = m.owner
	c := *in
	m.insights[m.cacheKey(in.InsightType, in.Timeframe)] = &c
	return nil
}

func (m *memInsightStore) GetRecentAnalysis(_ context.Context, hours int) ([]model.Analysis, error) {
	cutoff := genNow.Add(-time.Duration(hours) * time.Hour)
	var out []model.Analysis
	for _, a := range m.analyses[m.owner] {
		if !a.Timestamp.Before(cutoff) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memInsightStore) CountAnalyses(context.Context) (int, error) {
	return len(m.analyses[m.owner]), nil
}

func (m *memInsightStore) GetProductivityStats(_ context.Context, tf model.Timeframe) (*model.ProductivityStats, error) {
	m.statsCalls++
	return &model.ProductivityStats{Timeframe: tf, Count: 5, ScoredCount: 5, AverageScore: model.Float(6.5)}, nil
}

func (m *memInsightStore) DeleteExpiredInsights(_ context.Context, now time.Time) (int, error) {
	n := 0
	for k, in := range m.insights {
		if in.Expired(now) {
			delete(m.insights, k)
			n++
		}
	}
	return n, nil
}

type fakeReporter struct {
	enabled bool
	calls   int
	seen    int
}

func (f *fakeReporter) Enabled() bool { return f.enabled }

func (f *fakeReporter) Report(_ context.Context, analyses []model.Analysis, _ model.Timeframe) (*ai.Report, error) {
	f.calls++
	f.seen = len(analyses)
	return &ai.Report{
		Summary:         "Mostly reading",
		Patterns:        []ai.Pattern{{Type: "focus", Title: "Morning reading", Severity: "info"}},
		Recommendations: []string{"Keep mornings free"},
	}, nil
}

var genNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestGenerator(analyses int, spacing time.Duration) (*Generator, *memInsightStore, *fakeReporter) {
	store := newMemInsightStore()
	for i := analyses; i > 0; i-- {
		store.analyses[store.owner] = append(store.analyses[store.owner], model.Analysis{
			Timestamp:         genNow.Add(-time.Duration(i) * spacing),
			ProductivityScore: model.Float(6),
			ActivityType:      "reading",
			Owner:             store.owner,
		})
	}
	rep := &fakeReporter{enabled: true}
	g := NewGenerator(GeneratorConfig{Store: store, Reporter: rep})
	g.now = func() time.Time { return genNow }
	return g, store, rep
}

func TestGetInsufficientData(t *testing.T) {
	g, store, rep := newTestGenerator(2, time.Minute)

	res, err := g.Get(context.Background(), model.Timeframe24h)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.Status != StatusInsufficientData || res.Payload != nil || res.Message == "" {
		t.Errorf("unexpected result %+v", res)
	}
	if store.stores != 0 || rep.calls != 0 {
		t.Error("insufficient data must not call the AI or cache anything")
	}
}

func TestGetInsufficientDataInWindow(t *testing.T) {
	// six analyses, only two within the last hour
	g, _, rep := newTestGenerator(6, 25*time.Minute)

	res, err := g.Get(context.Background(), model.Timeframe1h)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.Status != StatusInsufficientData || res.DataPoints != 2 {
		t.Errorf("unexpected result %+v", res)
	}
	if rep.calls != 0 {
		t.Error("AI should not be called")
	}
}

func TestGetUnavailableWithoutAI(t *testing.T) {
	g, store, rep := newTestGenerator(6, time.Minute)
	rep.enabled = false

	res, err := g.Get(context.Background(), model.Timeframe1h)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.Status != StatusUnavailable || store.stores != 0 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestGetCachesPayload(t *testing.T) {
	g, store, rep := newTestGenerator(6, time.Minute)
	ctx := context.Background()

	first, err := g.Get(ctx, model.Timeframe4h)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if first.Status != StatusReady || first.Cached {
		t.Fatalf("unexpected first result %+v", first)
	}
	if !first.ExpiresAt.Equal(genNow.Add(4 * time.Hour)) {
		t.Errorf("expected 4h ttl, got %v", first.ExpiresAt)
	}
	if rep.seen != 6 || store.stores != 1 {
		t.Errorf("expected one report over 6 analyses and one write, got %d/%d", rep.seen, store.stores)
	}

	var p Payload
	if err := json.Unmarshal(first.Payload, &p); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if p.Summary != "Mostly reading" || p.Stats == nil || *p.Stats.AverageScore != 6.5 {
		t.Errorf("unexpected payload %+v", p)
	}
	if len(p.TopActivities) != 1 || p.TopActivities[0] != "reading" {
		t.Errorf("unexpected top activities %v", p.TopActivities)
	}

	g.now = func() time.Time { return genNow.Add(time.Hour) }
	second, err := g.Get(ctx, model.Timeframe4h)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !second.Cached || !bytes.Equal(first.Payload, second.Payload) {
		t.Error("second call should return the cached payload unchanged")
	}
	if rep.calls != 1 || store.stores != 1 || store.statsCalls != 1 {
		t.Errorf("cache hit must not call AI or storage writes: ai=%d stores=%d", rep.calls, store.stores)
	}

	// at expiry the cached entry is ignored and the window is re-evaluated
	g.now = func() time.Time { return genNow.Add(4 * time.Hour) }
	third, err := g.Get(ctx, model.Timeframe4h)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if third.Cached || third.Status != StatusInsufficientData {
		t.Errorf("expired insight must not be served: %+v", third)
	}
}

func TestGetIgnoresOtherOwnersAnalyses(t *testing.T) {
	g, store, rep := newTestGenerator(6, time.Minute)
	ctx := context.Background()

	if res, err := g.Get(ctx, model.Timeframe1h); err != nil || res.Status != StatusReady {
		t.Fatalf("local owner should get insights: %+v %v", res, err)
	}

	store.owner = "user-1"
	res, err := g.Get(ctx, model.Timeframe1h)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.Status != StatusInsufficientData || res.Cached || res.DataPoints != 0 {
		t.Errorf("a new owner must not see another owner's analyses or cache: %+v", res)
	}
	if rep.calls != 1 || store.stores != 1 {
		t.Errorf("nothing should be generated for the new owner: ai=%d stores=%d", rep.calls, store.stores)
	}
}

func TestGetRejectsUnknownTimeframe(t *testing.T) {
	g, _, _ := newTestGenerator(6, time.Minute)
	if _, err := g.Get(context.Background(), model.Timeframe("2d")); err == nil {
		t.Error("expected invalid timeframe error")
	}
}

func TestSweep(t *testing.T) {
	g, store, _ := newTestGenerator(6, time.Minute)
	g.Get(context.Background(), model.Timeframe1h)

	if n, _ := g.Sweep(context.Background()); n != 0 {
		t.Errorf("fresh insight should survive, swept %d", n)
	}
	g.now = func() time.Time { return genNow.Add(5 * time.Hour) }
	if n, _ := g.Sweep(context.Background()); n != 1 || len(store.insights) != 0 {
		t.Errorf("expired insight should be swept, swept %d", n)
	}
}
