package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Atharva-Kanherkar/attentive/internal/model"
	"github.com/redis/go-redis/v9"
)

// mgetChunk bounds how many ids are fetched per round trip, matching the
// `in` query limit of the hosted document store this backend stands in for.
const mgetChunk = 10

// RedisOptions configures the cloud backend connection.
type RedisOptions struct {
	Addr      string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStore is the cloud backend. Every entity is one JSON document and
// listings are served from per-owner sorted-set indexes:
//
//	{prefix}:{owner}:session:{id}                  session document
//	{prefix}:{owner}:sessions                      zset, score = start ms
//	{prefix}:{owner}:sessions:open                 set of open session ids
//	{prefix}:{owner}:project:{id}:sessions         zset, score = start ms
//	{prefix}:{owner}:analysis:{id}                 analysis document
//	{prefix}:{owner}:analyses                      zset, score = timestamp ms
//	{prefix}:{owner}:session:{id}:analyses         zset, score = timestamp ms
//	{prefix}:{owner}:insight:{id}                  insight document
//	{prefix}:_expiry:insights                      zset of {owner}|{id}, score = expires ms
//	{prefix}:{owner}:insights:latest:{type}:{tf}   id of the newest insight
//	{prefix}:{owner}:project:{id}                  project document
//	{prefix}:{owner}:projects                      zset, score = created ms
type RedisStore struct {
	client *redis.Client
	prefix string
	ids    *idSource
}

// NewRedisStore connects and pings the server.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStoreFromClient(client, opts.KeyPrefix), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "att"
	}
	return &RedisStore{client: client, prefix: prefix, ids: newIDSource()}
}

// Close closes the client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) key(owner string, parts ...string) string {
	k := r.prefix + ":" + owner
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

func scoreArg(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// getDoc loads one JSON document into v.
func (r *RedisStore) getDoc(ctx context.Context, key string, v any) error {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// mgetDocs fetches documents in chunks and returns the ones that exist, in
// key order.
func (r *RedisStore) mgetDocs(ctx context.Context, keys []string) ([]string, error) {
	var docs []string
	for start := 0; start < len(keys); start += mgetChunk {
		end := start + mgetChunk
		if end > len(keys) {
			end = len(keys)
		}
		vals, err := r.client.MGet(ctx, keys[start:end]...).Result()
		if err != nil {
			return nil, err
		}
		for _, v := range vals {
			if s, ok := v.(string); ok {
				docs = append(docs, s)
			}
		}
	}
	return docs, nil
}

// ==================== Sessions ====================

func (r *RedisStore) loadSessions(ctx context.Context, owner string, ids []string) ([]model.Session, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(owner, "session", id)
	}
	docs, err := r.mgetDocs(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	sessions := make([]model.Session, 0, len(docs))
	for _, doc := range docs {
		var s model.Session
		if err := json.Unmarshal([]byte(doc), &s); err != nil {
			return nil, fmt.Errorf("failed to decode session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func (r *RedisStore) writeSession(ctx context.Context, owner string, s *model.Session, previousProject string) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(owner, "session", s.ID), doc, 0)
		pipe.ZAdd(ctx, r.key(owner, "sessions"), redis.Z{Score: score(s.StartTime), Member: s.ID})
		if s.IsOpen() {
			pipe.SAdd(ctx, r.key(owner, "sessions", "open"), s.ID)
		} else {
			pipe.SRem(ctx, r.key(owner, "sessions", "open"), s.ID)
		}
		if previousProject != "" && previousProject != s.ProjectID {
			pipe.ZRem(ctx, r.key(owner, "project", previousProject, "sessions"), s.ID)
		}
		if s.ProjectID != "" {
			pipe.ZAdd(ctx, r.key(owner, "project", s.ProjectID, "sessions"),
				redis.Z{Score: score(s.StartTime), Member: s.ID})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// CreateSession stores a session document and indexes it.
func (r *RedisStore) CreateSession(ctx context.Context, owner string, s *model.Session) error {
	s.ID = r.ids.next()
	s.Owner = owner
	return r.writeSession(ctx, owner, s, "")
}

// UpdateSession applies u to the stored document.
func (r *RedisStore) UpdateSession(ctx context.Context, owner, id string, u model.SessionUpdate) (*model.Session, error) {
	s, err := r.GetSessionByID(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	previousProject := s.ProjectID
	applySessionUpdate(s, u)
	if err := r.writeSession(ctx, owner, s, previousProject); err != nil {
		return nil, err
	}
	return s, nil
}

// GetSessionByID returns one session.
func (r *RedisStore) GetSessionByID(ctx context.Context, owner, id string) (*model.Session, error) {
	var s model.Session
	err := r.getDoc(ctx, r.key(owner, "session", id), &s)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// GetSessions pages through sessions, newest first.
func (r *RedisStore) GetSessions(ctx context.Context, owner string, limit, offset int) ([]model.Session, error) {
	if limit <= 0 {
		return nil, nil
	}
	ids, err := r.client.ZRevRange(ctx, r.key(owner, "sessions"), int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	return r.loadSessions(ctx, owner, ids)
}

// GetRecentSessions returns the newest sessions.
func (r *RedisStore) GetRecentSessions(ctx context.Context, owner string, limit int) ([]model.Session, error) {
	return r.GetSessions(ctx, owner, limit, 0)
}

// GetSessionsInRange returns sessions started in [start, end), oldest first.
func (r *RedisStore) GetSessionsInRange(ctx context.Context, owner string, start, end time.Time) ([]model.Session, error) {
	ids, err := r.client.ZRangeByScore(ctx, r.key(owner, "sessions"), &redis.ZRangeBy{
		Min: scoreArg(start),
		Max: "(" + scoreArg(end),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions in range: %w", err)
	}
	return r.loadSessions(ctx, owner, ids)
}

// GetSessionsByIDs returns the sessions found among ids, newest first.
func (r *RedisStore) GetSessionsByIDs(ctx context.Context, owner string, ids []string) ([]model.Session, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	sessions, err := r.loadSessions(ctx, owner, ids)
	if err != nil {
		return nil, err
	}
	sortSessionsNewestFirst(sessions)
	return sessions, nil
}

// GetDailyStats reduces the sessions that started on date's local day.
func (r *RedisStore) GetDailyStats(ctx context.Context, owner string, date time.Time) (*model.DailyStats, error) {
	start, end := dayBounds(date)
	sessions, err := r.GetSessionsInRange(ctx, owner, start, end)
	if err != nil {
		return nil, err
	}
	return buildDailyStats(start, sessions), nil
}

// CloseOpenSessions ends every open session at end.
func (r *RedisStore) CloseOpenSessions(ctx context.Context, owner string, end time.Time) (int, error) {
	ids, err := r.client.SMembers(ctx, r.key(owner, "sessions", "open")).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list open sessions: %w", err)
	}

	closed := 0
	for _, id := range ids {
		s, err := r.GetSessionByID(ctx, owner, id)
		if errors.Is(err, ErrNotFound) {
			r.client.SRem(ctx, r.key(owner, "sessions", "open"), id)
			continue
		}
		if err != nil {
			return closed, err
		}
		if !s.IsOpen() {
			continue
		}
		endTime := end
		if endTime.Before(s.StartTime) {
			endTime = s.StartTime
		}
		s.EndTime = &endTime
		s.Duration = endTime.Sub(s.StartTime)
		if err := r.writeSession(ctx, owner, s, s.ProjectID); err != nil {
			return closed, err
		}
		closed++
	}
	return closed, nil
}

// ==================== Analyses ====================

func (r *RedisStore) loadAnalyses(ctx context.Context, owner string, ids []string) ([]model.Analysis, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(owner, "analysis", id)
	}
	docs, err := r.mgetDocs(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to load analyses: %w", err)
	}
	out := make([]model.Analysis, 0, len(docs))
	for _, doc := range docs {
		var a model.Analysis
		if err := json.Unmarshal([]byte(doc), &a); err != nil {
			return nil, fmt.Errorf("failed to decode analysis: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}

// CreateAnalysis stores an analysis document and indexes it.
func (r *RedisStore) CreateAnalysis(ctx context.Context, owner string, a *model.Analysis) error {
	a.ID = r.ids.next()
	a.Owner = owner
	doc, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		member := redis.Z{Score: score(a.Timestamp), Member: a.ID}
		pipe.Set(ctx, r.key(owner, "analysis", a.ID), doc, 0)
		pipe.ZAdd(ctx, r.key(owner, "analyses"), member)
		if a.SessionID != "" {
			pipe.ZAdd(ctx, r.key(owner, "session", a.SessionID, "analyses"), member)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}
	return nil
}

// GetSessionAnalysis returns a session's analyses, oldest first.
func (r *RedisStore) GetSessionAnalysis(ctx context.Context, owner, sessionID string) ([]model.Analysis, error) {
	ids, err := r.client.ZRange(ctx, r.key(owner, "session", sessionID, "analyses"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query session analyses: %w", err)
	}
	return r.loadAnalyses(ctx, owner, ids)
}

func (r *RedisStore) analysesSince(ctx context.Context, owner string, cutoff time.Time) ([]model.Analysis, error) {
	ids, err := r.client.ZRangeByScore(ctx, r.key(owner, "analyses"), &redis.ZRangeBy{
		Min: scoreArg(cutoff),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	return r.loadAnalyses(ctx, owner, ids)
}

// GetRecentAnalysis returns analyses from the last hours, oldest first.
func (r *RedisStore) GetRecentAnalysis(ctx context.Context, owner string, hours int) ([]model.Analysis, error) {
	return r.analysesSince(ctx, owner, time.Now().Add(-time.Duration(hours)*time.Hour))
}

// GetProductivityStats reduces the analyses inside tf client-side.
func (r *RedisStore) GetProductivityStats(ctx context.Context, owner string, tf model.Timeframe) (*model.ProductivityStats, error) {
	analyses, err := r.analysesSince(ctx, owner, tf.Cutoff(time.Now()))
	if err != nil {
		return nil, err
	}
	return buildProductivityStats(tf, analyses), nil
}

// CountAnalyses returns how many analyses the owner has stored.
func (r *RedisStore) CountAnalyses(ctx context.Context, owner string) (int, error) {
	n, err := r.client.ZCard(ctx, r.key(owner, "analyses")).Result()
	return int(n), err
}

// ==================== Insights ====================

// StoreInsights stores a new insight and points the key's latest marker at it.
func (r *RedisStore) StoreInsights(ctx context.Context, owner string, in *model.Insight) error {
	in.ID = r.ids.next()
	in.Owner = owner
	doc, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode insight: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(owner, "insight", in.ID), doc, 0)
		pipe.ZAdd(ctx, r.expiryKey(), redis.Z{Score: score(in.ExpiresAt), Member: expiryMember(owner, in.ID)})
		pipe.Set(ctx, r.key(owner, "insights", "latest", in.InsightType, string(in.Timeframe)), in.ID, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to insert insight: %w", err)
	}
	return nil
}

// GetCachedInsights returns the newest insight for the key if it is still
// valid at now.
func (r *RedisStore) GetCachedInsights(ctx context.Context, owner, insightType string, tf model.Timeframe, now time.Time) (*model.Insight, error) {
	notFound := fmt.Errorf("insight %s/%s: %w", insightType, tf, ErrNotFound)

	id, err := r.client.Get(ctx, r.key(owner, "insights", "latest", insightType, string(tf))).Result()
	if err == redis.Nil {
		return nil, notFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached insight: %w", err)
	}

	var in model.Insight
	err = r.getDoc(ctx, r.key(owner, "insight", id), &in)
	if errors.Is(err, ErrNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached insight: %w", err)
	}
	if in.Expired(now) {
		return nil, notFound
	}
	return &in, nil
}

// DeleteExpiredInsights removes documents with expires_at <= now for all
// owners, using the shared expiry index.
func (r *RedisStore) DeleteExpiredInsights(ctx context.Context, now time.Time) (int, error) {
	members, err := r.client.ZRangeByScore(ctx, r.expiryKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: scoreArg(now),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to query expired insights: %w", err)
	}
	if len(members) == 0 {
		return 0, nil
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, m := range members {
			if owner, id, ok := splitExpiryMember(m); ok {
				pipe.Del(ctx, r.key(owner, "insight", id))
			}
			pipe.ZRem(ctx, r.expiryKey(), m)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired insights: %w", err)
	}
	return len(members), nil
}

func (r *RedisStore) expiryKey() string {
	return r.prefix + ":_expiry:insights"
}

func expiryMember(owner, id string) string {
	return owner + "|" + id
}

// splitExpiryMember splits on the last separator; ULIDs never contain it.
func splitExpiryMember(m string) (owner, id string, ok bool) {
	i := strings.LastIndexByte(m, '|')
	if i < 0 {
		return "", "", false
	}
	return m[:i], m[i+1:], true
}

// ==================== Projects ====================

func (r *RedisStore) writeProject(ctx context.Context, owner string, p *model.Project) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode project: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(owner, "project", p.ID), doc, 0)
		pipe.ZAdd(ctx, r.key(owner, "projects"), redis.Z{Score: score(p.CreatedAt), Member: p.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write project: %w", err)
	}
	return nil
}

// CreateProject stores a project, assigning its id, owner and timestamps.
func (r *RedisStore) CreateProject(ctx context.Context, owner string, p *model.Project) error {
	now := time.Now().Truncate(time.Millisecond)
	p.ID = r.ids.next()
	p.Owner = owner
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = model.ProjectActive
	}
	return r.writeProject(ctx, owner, p)
}

// UpdateProject overwrites the mutable fields of a project.
func (r *RedisStore) UpdateProject(ctx context.Context, owner string, p *model.Project) error {
	existing, err := r.GetProject(ctx, owner, p.ID)
	if err != nil {
		return err
	}
	p.Owner = owner
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().Truncate(time.Millisecond)
	return r.writeProject(ctx, owner, p)
}

// GetProject returns one project.
func (r *RedisStore) GetProject(ctx context.Context, owner, id string) (*model.Project, error) {
	var p model.Project
	err := r.getDoc(ctx, r.key(owner, "project", id), &p)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &p, nil
}

// ListProjects returns the owner's projects, highest priority first.
func (r *RedisStore) ListProjects(ctx context.Context, owner string) ([]model.Project, error) {
	ids, err := r.client.ZRange(ctx, r.key(owner, "projects"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(owner, "project", id)
	}
	docs, err := r.mgetDocs(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}

	projects := make([]model.Project, 0, len(docs))
	for _, doc := range docs {
		var p model.Project
		if err := json.Unmarshal([]byte(doc), &p); err != nil {
			return nil, fmt.Errorf("failed to decode project: %w", err)
		}
		projects = append(projects, p)
	}
	sortProjects(projects)
	return projects, nil
}

// DeleteProject removes a project and detaches its sessions.
func (r *RedisStore) DeleteProject(ctx context.Context, owner, id string) error {
	if _, err := r.GetProject(ctx, owner, id); err != nil {
		return err
	}
	sessions, err := r.GetProjectSessions(ctx, owner, id)
	if err != nil {
		return err
	}
	for i := range sessions {
		sessions[i].ProjectID = ""
		if err := r.writeSession(ctx, owner, &sessions[i], id); err != nil {
			return err
		}
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key(owner, "project", id))
		pipe.Del(ctx, r.key(owner, "project", id, "sessions"))
		pipe.ZRem(ctx, r.key(owner, "projects"), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// GetProjectSessions returns a project's sessions, newest first.
func (r *RedisStore) GetProjectSessions(ctx context.Context, owner, projectID string) ([]model.Session, error) {
	ids, err := r.client.ZRevRange(ctx, r.key(owner, "project", projectID, "sessions"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query project sessions: %w", err)
	}
	return r.loadSessions(ctx, owner, ids)
}
