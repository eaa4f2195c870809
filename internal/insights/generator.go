package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/Atharva-Kanherkar/attentive/internal/ai"
	"github.com/Atharva-Kanherkar/attentive/internal/model"
	"github.com/Atharva-Kanherkar/attentive/internal/storage"
)

// Defaults for GeneratorConfig.
const (
	DefaultTTL           = 4 * time.Hour
	DefaultMinTotal      = 5
	DefaultMinInWindow   = 3
	DefaultSweepInterval = 30 * time.Minute
)

// Store is the part of the repository the generator uses. Every call is
// scoped to the signed-in owner.
type Store interface {
	GetCachedInsights(ctx context.Context, insightType string, tf model.Timeframe, now time.Time) (*model.Insight, error)
	StoreInsights(ctx context.Context, in *model.Insight) error
	GetProductivityStats(ctx context.Context, tf model.Timeframe) (*model.ProductivityStats, error)
	GetRecentAnalysis(ctx context.Context, hours int) ([]model.Analysis, error)
	CountAnalyses(ctx context.Context) (int, error)
	DeleteExpiredInsights(ctx context.Context, now time.Time) (int, error)
}

// GeneratorConfig configures a Generator.
type GeneratorConfig struct {
	Store       Store
	Reporter    ai.Reporter
	TTL         time.Duration
	MinTotal    int
	MinInWindow int
}

// Generator builds and caches productivity insights.
type Generator struct {
	cfg GeneratorConfig
	now func() time.Time
}

// NewGenerator creates a generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MinTotal <= 0 {
		cfg.MinTotal = DefaultMinTotal
	}
	if cfg.MinInWindow <= 0 {
		cfg.MinInWindow = DefaultMinInWindow
	}
	return &Generator{
		cfg: cfg,
		now: func() time.Time { return time.Now().Truncate(time.Millisecond) },
	}
}

// Get returns the productivity insight for tf. A valid cached insight is
// returned without touching the AI or writing to storage. Below the
// sample thresholds the result is insufficient data and nothing is cached.
func (g *Generator) Get(ctx context.Context, tf model.Timeframe) (*Result, error) {
	if _, err := model.ParseTimeframe(string(tf)); err != nil {
		return nil, err
	}

	cached, err := g.cfg.Store.GetCachedInsights(ctx, model.InsightTypeProductivity, tf, g.now())
	switch {
	case err == nil && !cached.Expired(g.now()):
		return &Result{
			Status:      StatusReady,
			Timeframe:   tf,
			Cached:      true,
			DataPoints:  cached.DataPoints,
			GeneratedAt: cached.GeneratedAt,
			ExpiresAt:   cached.ExpiresAt,
			Payload:     cached.Payload,
		}, nil
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("failed to read cached insights: %w", err)
	}

	now := g.now()
	total, err := g.cfg.Store.CountAnalyses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count analyses: %w", err)
	}
	windowed, err := g.windowed(ctx, tf, now)
	if err != nil {
		return nil, err
	}

	if total < g.cfg.MinTotal || len(windowed) < g.cfg.MinInWindow {
		return &Result{
			Status:     StatusInsufficientData,
			Timeframe:  tf,
			DataPoints: len(windowed),
			Message: fmt.Sprintf("need at least %d analyses in total and %d in the last %s (have %d and %d)",
				g.cfg.MinTotal, g.cfg.MinInWindow, tf, total, len(windowed)),
		}, nil
	}

	if g.cfg.Reporter == nil || !g.cfg.Reporter.Enabled() {
		return &Result{
			Status:    StatusUnavailable,
			Timeframe: tf,
			Message:   ai.ErrUnavailable.Error(),
		}, nil
	}

	stats, err := g.cfg.Store.GetProductivityStats(ctx, tf)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	report, err := g.cfg.Reporter.Report(ctx, windowed, tf)
	if err != nil {
		return nil, fmt.Errorf("failed to generate report: %w", err)
	}

	body, err := json.Marshal(Payload{
		Timeframe:       tf,
		GeneratedAt:     now,
		Stats:           stats,
		Summary:         report.Summary,
		Patterns:        report.Patterns,
		Recommendations: report.Recommendations,
		TopActivities:   topActivities(windowed, 3),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal insights: %w", err)
	}

	in := &model.Insight{
		InsightType: model.InsightTypeProductivity,
		Timeframe:   tf,
		DataPoints:  len(windowed),
		Payload:     body,
		GeneratedAt: now,
		ExpiresAt:   now.Add(g.cfg.TTL),
	}
	if err := g.cfg.Store.StoreInsights(ctx, in); err != nil {
		// the caller still gets the fresh result
		log.Printf("[insights] Failed to cache %s insights: %v", tf, err)
	}

	return &Result{
		Status:      StatusReady,
		Timeframe:   tf,
		DataPoints:  in.DataPoints,
		GeneratedAt: in.GeneratedAt,
		ExpiresAt:   in.ExpiresAt,
		Payload:     body,
	}, nil
}

// windowed returns the owner's stored analyses inside tf, oldest first.
func (g *Generator) windowed(ctx context.Context, tf model.Timeframe, now time.Time) ([]model.Analysis, error) {
	hours := int(math.Ceil(tf.Duration().Hours()))
	recent, err := g.cfg.Store.GetRecentAnalysis(ctx, hours)
	if err != nil {
		return nil, fmt.Errorf("failed to load analyses: %w", err)
	}
	cutoff := tf.Cutoff(now)
	out := recent[:0]
	for _, a := range recent {
		if !a.Timestamp.Before(cutoff) {
			out = append(out, a)
		}
	}
	return out, nil
}

// Sweep deletes expired insights of every owner.
func (g *Generator) Sweep(ctx context.Context) (int, error) {
	n, err := g.cfg.Store.DeleteExpiredInsights(ctx, g.now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired insights: %w", err)
	}
	return n, nil
}

// RunSweeper sweeps every interval until ctx is cancelled.
func (g *Generator) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := g.Sweep(ctx)
			if err != nil {
				log.Printf("[insights] %v", err)
				continue
			}
			if n > 0 {
				log.Printf("[insights] Removed %d expired insights", n)
			}
		}
	}
}

// topActivities returns the most frequent activity types, most common first.
func topActivities(analyses []model.Analysis, n int) []string {
	counts := make(map[string]int)
	for _, a := range analyses {
		if a.ActivityType != "" {
			counts[a.ActivityType]++
		}
	}
	out := make([]string, 0, len(counts))
	for k := range counts {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return out[i] < out[j]
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
