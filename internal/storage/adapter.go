package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Atharva-Kanherkar/attentive/internal/model"
)

// Identity reports the signed-in account, if any.
type Identity interface {
	CurrentUserID() (string, bool)
}

// Adapter implements Repository over a local and an optional cloud backend.
// The backend and owner are resolved on every call, except that updates to
// a session still open go to where it was created, so a session spanning
// a login or logout can still be closed.
type Adapter struct {
	local    Backend
	cloud    Backend
	identity Identity

	mu   sync.Mutex
	pins map[string]pin
}

type pin struct {
	backend Backend
	owner   string
}

// NewAdapter wires the backends. cloud and identity may be nil.
func NewAdapter(local, cloud Backend, identity Identity) *Adapter {
	return &Adapter{local: local, cloud: cloud, identity: identity, pins: make(map[string]pin)}
}

// resolve picks the backend and owner for the current identity.
func (a *Adapter) resolve() (Backend, string) {
	if a.identity != nil {
		if userID, ok := a.identity.CurrentUserID(); ok && userID != "" {
			if a.cloud != nil {
				return a.cloud, userID
			}
			return a.local, userID
		}
	}
	return a.local, LocalOwner
}

// Target describes where the next call would go.
func (a *Adapter) Target() (backend string, owner string) {
	b, owner := a.resolve()
	if b == a.cloud && a.cloud != nil {
		return "cloud", owner
	}
	return "local", owner
}

// Close closes both backends.
func (a *Adapter) Close() error {
	var firstErr error
	if a.cloud != nil {
		firstErr = a.cloud.Close()
	}
	if err := a.local.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (a *Adapter) CreateSession(ctx context.Context, s *model.Session) error {
	b, owner := a.resolve()
	if err := b.CreateSession(ctx, owner, s); err != nil {
		return err
	}
	if s.IsOpen() {
		a.mu.Lock()
		a.pins[s.ID] = pin{backend: b, owner: owner}
		a.mu.Unlock()
	}
	return nil
}

// UpdateSession writes to the session's creation target while it is open
// and unpins it once an end time is stored.
func (a *Adapter) UpdateSession(ctx context.Context, id string, u model.SessionUpdate) (*model.Session, error) {
	a.mu.Lock()
	p, pinned := a.pins[id]
	a.mu.Unlock()
	if !pinned {
		p.backend, p.owner = a.resolve()
	}

	updated, err := p.backend.UpdateSession(ctx, p.owner, id, u)
	if pinned && u.EndTime != nil && (err == nil || errors.Is(err, ErrNotFound)) {
		a.mu.Lock()
		delete(a.pins, id)
		a.mu.Unlock()
	}
	return updated, err
}

func (a *Adapter) GetSessionByID(ctx context.Context, id string) (*model.Session, error) {
	b, owner := a.resolve()
	return b.GetSessionByID(ctx, owner, id)
}

func (a *Adapter) GetSessions(ctx context.Context, limit, offset int) ([]model.Session, error) {
	b, owner := a.resolve()
	return b.GetSessions(ctx, owner, limit, offset)
}

func (a *Adapter) GetRecentSessions(ctx context.Context, limit int) ([]model.Session, error) {
	b, owner := a.resolve()
	return b.GetRecentSessions(ctx, owner, limit)
}

func (a *Adapter) GetSessionsInRange(ctx context.Context, start, end time.Time) ([]model.Session, error) {
	b, owner := a.resolve()
	return b.GetSessionsInRange(ctx, owner, start, end)
}

func (a *Adapter) GetSessionsByIDs(ctx context.Context, ids []string) ([]model.Session, error) {
	b, owner := a.resolve()
	return b.GetSessionsByIDs(ctx, owner, ids)
}

func (a *Adapter) GetDailyStats(ctx context.Context, date time.Time) (*model.DailyStats, error) {
	b, owner := a.resolve()
	return b.GetDailyStats(ctx, owner, date)
}

func (a *Adapter) CloseOpenSessions(ctx context.Context, end time.Time) (int, error) {
	b, owner := a.resolve()
	n, err := b.CloseOpenSessions(ctx, owner, end)
	if err == nil {
		a.unpinOwner(b, owner)
	}
	return n, err
}

func (a *Adapter) unpinOwner(b Backend, owner string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for id, p := range a.pins {
		if p.backend == b && p.owner == owner {
			delete(a.pins, id)
		}
	}
}

func (a *Adapter) CreateAnalysis(ctx context.Context, an *model.Analysis) error {
	b, owner := a.resolve()
	return b.CreateAnalysis(ctx, owner, an)
}

func (a *Adapter) GetSessionAnalysis(ctx context.Context, sessionID string) ([]model.Analysis, error) {
	b, owner := a.resolve()
	return b.GetSessionAnalysis(ctx, owner, sessionID)
}

func (a *Adapter) GetRecentAnalysis(ctx context.Context, hours int) ([]model.Analysis, error) {
	b, owner := a.resolve()
	return b.GetRecentAnalysis(ctx, owner, hours)
}

func (a *Adapter) GetProductivityStats(ctx context.Context, tf model.Timeframe) (*model.ProductivityStats, error) {
	b, owner := a.resolve()
	return b.GetProductivityStats(ctx, owner, tf)
}

func (a *Adapter) CountAnalyses(ctx context.Context) (int, error) {
	b, owner := a.resolve()
	return b.CountAnalyses(ctx, owner)
}

func (a *Adapter) StoreInsights(ctx context.Context, in *model.Insight) error {
	b, owner := a.resolve()
	return b.StoreInsights(ctx, owner, in)
}

func (a *Adapter) GetCachedInsights(ctx context.Context, insightType string, tf model.Timeframe, now time.Time) (*model.Insight, error) {
	b, owner := a.resolve()
	return b.GetCachedInsights(ctx, owner, insightType, tf, now)
}

// DeleteExpiredInsights sweeps both backends regardless of who is signed
// in, so rows of a signed-out owner are still collected.
func (a *Adapter) DeleteExpiredInsights(ctx context.Context, now time.Time) (int, error) {
	n, err := a.local.DeleteExpiredInsights(ctx, now)
	if err != nil || a.cloud == nil {
		return n, err
	}
	m, err := a.cloud.DeleteExpiredInsights(ctx, now)
	return n + m, err
}

func (a *Adapter) CreateProject(ctx context.Context, p *model.Project) error {
	b, owner := a.resolve()
	return b.CreateProject(ctx, owner, p)
}

func (a *Adapter) UpdateProject(ctx context.Context, p *model.Project) error {
	b, owner := a.resolve()
	return b.UpdateProject(ctx, owner, p)
}

func (a *Adapter) GetProject(ctx context.Context, id string) (*model.Project, error) {
	b, owner := a.resolve()
	return b.GetProject(ctx, owner, id)
}

func (a *Adapter) ListProjects(ctx context.Context) ([]model.Project, error) {
	b, owner := a.resolve()
	return b.ListProjects(ctx, owner)
}

func (a *Adapter) DeleteProject(ctx context.Context, id string) error {
	b, owner := a.resolve()
	return b.DeleteProject(ctx, owner, id)
}

func (a *Adapter) GetProjectSessions(ctx context.Context, projectID string) ([]model.Session, error) {
	b, owner := a.resolve()
	return b.GetProjectSessions(ctx, owner, projectID)
}
