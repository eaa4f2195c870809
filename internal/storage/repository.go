// Package storage persists sessions, analyses, insights and projects.
//
// Two backends implement the same owner-scoped contract:
// - SQLiteStore: embedded database used when no account is signed in
// - RedisStore: cloud document store used for signed-in accounts
//
// Adapter picks the backend and owner on every call from the current
// identity, so signing in or out takes effect immediately. A session that
// is still open keeps the backend it was created in until it is closed.
package storage

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/Atharva-Kanherkar/attentive/internal/model"
	"github.com/oklog/ulid/v2"
)

// ErrNotFound is returned when a row does not exist for the owner.
var ErrNotFound = errors.New("not found")

// LocalOwner scopes rows written while nobody is signed in.
const LocalOwner = "local"

// Repository is the owner-implicit contract used by the engine.
type Repository interface {
	CreateSession(ctx context.Context, s *model.Session) error
	UpdateSession(ctx context.Context, id string, u model.SessionUpdate) (*model.Session, error)
	GetSessionByID(ctx context.Context, id string) (*model.Session, error)
	GetSessions(ctx context.Context, limit, offset int) ([]model.Session, error)
	GetRecentSessions(ctx context.Context, limit int) ([]model.Session, error)
	GetSessionsInRange(ctx context.Context, start, end time.Time) ([]model.Session, error)
	GetSessionsByIDs(ctx context.Context, ids []string) ([]model.Session, error)
	GetDailyStats(ctx context.Context, date time.Time) (*model.DailyStats, error)
	CloseOpenSessions(ctx context.Context, end time.Time) (int, error)

	CreateAnalysis(ctx context.Context, a *model.Analysis) error
	GetSessionAnalysis(ctx context.Context, sessionID string) ([]model.Analysis, error)
	GetRecentAnalysis(ctx context.Context, hours int) ([]model.Analysis, error)
	GetProductivityStats(ctx context.Context, tf model.Timeframe) (*model.ProductivityStats, error)
	CountAnalyses(ctx context.Context) (int, error)

	StoreInsights(ctx context.Context, in *model.Insight) error
	GetCachedInsights(ctx context.Context, insightType string, tf model.Timeframe, now time.Time) (*model.Insight, error)
	DeleteExpiredInsights(ctx context.Context, now time.Time) (int, error)

	CreateProject(ctx context.Context, p *model.Project) error
	UpdateProject(ctx context.Context, p *model.Project) error
	GetProject(ctx context.Context, id string) (*model.Project, error)
	ListProjects(ctx context.Context) ([]model.Project, error)
	DeleteProject(ctx context.Context, id string) error
	GetProjectSessions(ctx context.Context, projectID string) ([]model.Session, error)
}

// Backend is the same contract with the owner passed explicitly.
//
// Ordering conventions shared by both backends:
// session listings are newest first except GetSessionsInRange, which is
// oldest first; analysis listings are oldest first.
type Backend interface {
	CreateSession(ctx context.Context, owner string, s *model.Session) error
	UpdateSession(ctx context.Context, owner, id string, u model.SessionUpdate) (*model.Session, error)
	GetSessionByID(ctx context.Context, owner, id string) (*model.Session, error)
	GetSessions(ctx context.Context, owner string, limit, offset int) ([]model.Session, error)
	GetRecentSessions(ctx context.Context, owner string, limit int) ([]model.Session, error)
	GetSessionsInRange(ctx context.Context, owner string, start, end time.Time) ([]model.Session, error)
	GetSessionsByIDs(ctx context.Context, owner string, ids []string) ([]model.Session, error)
	GetDailyStats(ctx context.Context, owner string, date time.Time) (*model.DailyStats, error)
	CloseOpenSessions(ctx context.Context, owner string, end time.Time) (int, error)

	CreateAnalysis(ctx context.Context, owner string, a *model.Analysis) error
	GetSessionAnalysis(ctx context.Context, owner, sessionID string) ([]model.Analysis, error)
	GetRecentAnalysis(ctx context.Context, owner string, hours int) ([]model.Analysis, error)
	GetProductivityStats(ctx context.Context, owner string, tf model.Timeframe) (*model.ProductivityStats, error)
	CountAnalyses(ctx context.Context, owner string) (int, error)

	StoreInsights(ctx context.Context, owner string, in *model.Insight) error
	GetCachedInsights(ctx context.Context, owner, insightType string, tf model.Timeframe, now time.Time) (*model.Insight, error)
	// DeleteExpiredInsights sweeps expired insights of every owner.
	DeleteExpiredInsights(ctx context.Context, now time.Time) (int, error)

	CreateProject(ctx context.Context, owner string, p *model.Project) error
	UpdateProject(ctx context.Context, owner string, p *model.Project) error
	GetProject(ctx context.Context, owner, id string) (*model.Project, error)
	ListProjects(ctx context.Context, owner string) ([]model.Project, error)
	DeleteProject(ctx context.Context, owner, id string) error
	GetProjectSessions(ctx context.Context, owner, projectID string) ([]model.Session, error)

	Close() error
}

// idSource hands out ULIDs, which sort by creation time.
type idSource struct {
	mu      sync.Mutex
	entropy *rand.Rand
}

func newIDSource() *idSource {
	return &idSource{entropy: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (g *idSource) next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

// dayBounds returns the local calendar day containing t.
func dayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

// applySessionUpdate copies the non-nil fields of u onto s.
func applySessionUpdate(s *model.Session, u model.SessionUpdate) {
	if u.Title != nil {
		s.Title = *u.Title
	}
	if u.EndTime != nil {
		end := *u.EndTime
		s.EndTime = &end
	}
	if u.Duration != nil {
		s.Duration = *u.Duration
	}
	if u.ProjectID != nil {
		s.ProjectID = *u.ProjectID
	}
	if u.Metadata != nil {
		if s.Metadata == nil {
			s.Metadata = make(map[string]string, len(u.Metadata))
		}
		for k, v := range u.Metadata {
			s.Metadata[k] = v
		}
	}
}

// buildDailyStats reduces the sessions that started on one day.
func buildDailyStats(date time.Time, sessions []model.Session) *model.DailyStats {
	stats := &model.DailyStats{
		Date:   date.Format("2006-01-02"),
		ByType: make(map[string]time.Duration),
	}
	for _, s := range sessions {
		stats.TotalSessions++
		stats.TotalDuration += s.Duration
		stats.ByType[s.SessionType] += s.Duration
		if s.Duration > stats.LongestSession {
			stats.LongestSession = s.Duration
		}
	}
	if stats.TotalSessions > 0 {
		stats.AverageDuration = stats.TotalDuration / time.Duration(stats.TotalSessions)
	}
	return stats
}

// buildProductivityStats reduces analyses client-side. Absent scores are
// counted but excluded from score aggregates.
func buildProductivityStats(tf model.Timeframe, analyses []model.Analysis) *model.ProductivityStats {
	stats := &model.ProductivityStats{Timeframe: tf, Count: len(analyses)}
	var sum, confSum float64
	var confN int
	for _, a := range analyses {
		if a.ConfidenceScore != nil {
			confSum += *a.ConfidenceScore
			confN++
		}
		if a.ProductivityScore == nil {
			continue
		}
		v := *a.ProductivityScore
		sum += v
		if stats.ScoredCount == 0 || v < *stats.MinScore {
			stats.MinScore = model.Float(v)
		}
		if stats.ScoredCount == 0 || v > *stats.MaxScore {
			stats.MaxScore = model.Float(v)
		}
		stats.ScoredCount++
	}
	if stats.ScoredCount > 0 {
		stats.AverageScore = model.Float(sum / float64(stats.ScoredCount))
	}
	if confN > 0 {
		stats.AverageConfidence = model.Float(confSum / float64(confN))
	}
	return stats
}

func sortSessionsNewestFirst(sessions []model.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartTime.After(sessions[j].StartTime)
	})
}

func sortProjects(projects []model.Project) {
	sort.SliceStable(projects, func(i, j int) bool {
		if projects[i].Priority != projects[j].Priority {
			return projects[i].Priority > projects[j].Priority
		}
		return projects[i].CreatedAt.Before(projects[j].CreatedAt)
	})
}
