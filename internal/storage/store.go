package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Atharva-Kanherkar/attentive/internal/model"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore is the embedded local backend. Instants are stored as unix
// milliseconds, lists and metadata as JSON text.
type SQLiteStore struct {
	db  *sql.DB
	ids *idSource
}

// NewSQLiteStore opens (or creates) attentive.db inside baseDir.
func NewSQLiteStore(baseDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	dbPath := filepath.Join(baseDir, "attentive.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, ids: newIDSource()}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		title TEXT NOT NULL,
		session_type TEXT NOT NULL,
		start_time INTEGER NOT NULL,
		end_time INTEGER,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		source TEXT,
		project_id TEXT,
		metadata TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_owner_start ON sessions(owner, start_time);
	CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(owner, project_id);

	CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		session_id TEXT,
		timestamp INTEGER NOT NULL,
		productivity_score REAL,
		activity_type TEXT,
		applications TEXT,
		focus_quality TEXT,
		confidence_score REAL,
		raw_analysis TEXT,
		categories TEXT,
		tags TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_owner_ts ON analyses(owner, timestamp);
	CREATE INDEX IF NOT EXISTS idx_analyses_session ON analyses(owner, session_id);

	CREATE TABLE IF NOT EXISTS insights (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		insight_type TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		data_points INTEGER NOT NULL DEFAULT 0,
		payload TEXT NOT NULL,
		generated_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_insights_lookup ON insights(owner, insight_type, timeframe, expires_at);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		status TEXT NOT NULL,
		tags TEXT,
		priority INTEGER NOT NULL DEFAULT 0,
		deadline INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

func marshalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// ==================== Sessions ====================

const sessionColumns = `id, owner, title, session_type, start_time, end_time, duration_ms, source, project_id, metadata`

func scanSession(sc rowScanner) (*model.Session, error) {
	var sess model.Session
	var start, durationMS int64
	var end sql.NullInt64
	var source, projectID, metadata sql.NullString

	if err := sc.Scan(&sess.ID, &sess.Owner, &sess.Title, &sess.SessionType, &start, &end,
		&durationMS, &source, &projectID, &metadata); err != nil {
		return nil, err
	}

	sess.StartTime = fromMillis(start)
	if end.Valid {
		t := fromMillis(end.Int64)
		sess.EndTime = &t
	}
	sess.Duration = time.Duration(durationMS) * time.Millisecond
	sess.Source = source.String
	sess.ProjectID = projectID.String
	if metadata.String != "" {
		json.Unmarshal([]byte(metadata.String), &sess.Metadata)
	}
	return &sess, nil
}

func collectSessions(rows *sql.Rows) ([]model.Session, error) {
	defer rows.Close()
	var sessions []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

// CreateSession inserts a session, assigning its id and owner.
func (s *SQLiteStore) CreateSession(ctx context.Context, owner string, sess *model.Session) error {
	sess.ID = s.ids.next()
	sess.Owner = owner

	var end sql.NullInt64
	if sess.EndTime != nil {
		end = sql.NullInt64{Int64: toMillis(*sess.EndTime), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sess.ID, owner, sess.Title, sess.SessionType, toMillis(sess.StartTime), end,
		sess.Duration.Milliseconds(), sess.Source, sess.ProjectID, marshalJSON(sess.Metadata))
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// UpdateSession applies u to the stored session and returns the result.
func (s *SQLiteStore) UpdateSession(ctx context.Context, owner, id string, u model.SessionUpdate) (*model.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sess, err := scanSession(tx.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE owner = ? AND id = ?`, owner, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	applySessionUpdate(sess, u)

	var end sql.NullInt64
	if sess.EndTime != nil {
		end = sql.NullInt64{Int64: toMillis(*sess.EndTime), Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE sessions
		SET title = ?, end_time = ?, duration_ms = ?, project_id = ?, metadata = ?
		WHERE owner = ? AND id = ?
	`, sess.Title, end, sess.Duration.Milliseconds(), sess.ProjectID, marshalJSON(sess.Metadata), owner, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit session update: %w", err)
	}
	return sess, nil
}

// GetSessionByID returns one session.
func (s *SQLiteStore) GetSessionByID(ctx context.Context, owner, id string) (*model.Session, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE owner = ? AND id = ?`, owner, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

// GetSessions pages through sessions, newest first.
func (s *SQLiteStore) GetSessions(ctx context.Context, owner string, limit, offset int) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE owner = ?
		ORDER BY start_time DESC
		LIMIT ? OFFSET ?
	`, owner, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	return collectSessions(rows)
}

// GetRecentSessions returns the newest sessions.
func (s *SQLiteStore) GetRecentSessions(ctx context.Context, owner string, limit int) ([]model.Session, error) {
	return s.GetSessions(ctx, owner, limit, 0)
}

// GetSessionsInRange returns sessions started in [start, end), oldest first.
func (s *SQLiteStore) GetSessionsInRange(ctx context.Context, owner string, start, end time.Time) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE owner = ? AND start_time >= ? AND start_time < ?
		ORDER BY start_time ASC
	`, owner, toMillis(start), toMillis(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions in range: %w", err)
	}
	return collectSessions(rows)
}

// GetSessionsByIDs returns the sessions found among ids, newest first.
func (s *SQLiteStore) GetSessionsByIDs(ctx context.Context, owner string, ids []string) ([]model.Session, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, owner)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE owner = ? AND id IN (`+placeholders+`)
		ORDER BY start_time DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions by id: %w", err)
	}
	return collectSessions(rows)
}

// GetDailyStats aggregates the sessions that started on date's local day.
func (s *SQLiteStore) GetDailyStats(ctx context.Context, owner string, date time.Time) (*model.DailyStats, error) {
	start, end := dayBounds(date)
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_type, COUNT(*), COALESCE(SUM(duration_ms), 0), COALESCE(MAX(duration_ms), 0)
		FROM sessions
		WHERE owner = ? AND start_time >= ? AND start_time < ?
		GROUP BY session_type
	`, owner, toMillis(start), toMillis(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	stats := &model.DailyStats{
		Date:   start.Format("2006-01-02"),
		ByType: make(map[string]time.Duration),
	}
	for rows.Next() {
		var sessionType string
		var count int
		var total, longest int64
		if err := rows.Scan(&sessionType, &count, &total, &longest); err != nil {
			return nil, err
		}
		stats.TotalSessions += count
		stats.TotalDuration += time.Duration(total) * time.Millisecond
		stats.ByType[sessionType] = time.Duration(total) * time.Millisecond
		if d := time.Duration(longest) * time.Millisecond; d > stats.LongestSession {
			stats.LongestSession = d
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if stats.TotalSessions > 0 {
		stats.AverageDuration = stats.TotalDuration / time.Duration(stats.TotalSessions)
	}
	return stats, nil
}

// CloseOpenSessions ends every open session at end. Sessions that started
// after end get a zero duration.
func (s *SQLiteStore) CloseOpenSessions(ctx context.Context, owner string, end time.Time) (int, error) {
	endMS := toMillis(end)
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET end_time = MAX(start_time, ?), duration_ms = MAX(0, ? - start_time)
		WHERE owner = ? AND end_time IS NULL
	`, endMS, endMS, owner)
	if err != nil {
		return 0, fmt.Errorf("failed to close open sessions: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ==================== Analyses ====================

const analysisColumns = `id, owner, session_id, timestamp, productivity_score, activity_type, applications,
	focus_quality, confidence_score, raw_analysis, categories, tags`

func scanAnalysis(sc rowScanner) (*model.Analysis, error) {
	var a model.Analysis
	var ts int64
	var sessionID, activityType, apps, focus, raw, categories, tags sql.NullString
	var score, confidence sql.NullFloat64

	if err := sc.Scan(&a.ID, &a.Owner, &sessionID, &ts, &score, &activityType, &apps,
		&focus, &confidence, &raw, &categories, &tags); err != nil {
		return nil, err
	}

	a.SessionID = sessionID.String
	a.Timestamp = fromMillis(ts)
	if score.Valid {
		a.ProductivityScore = model.Float(score.Float64)
	}
	if confidence.Valid {
		a.ConfidenceScore = model.Float(confidence.Float64)
	}
	a.ActivityType = activityType.String
	a.FocusQuality = model.ParseFocusQuality(focus.String)
	a.RawAnalysis = raw.String
	if apps.String != "" {
		json.Unmarshal([]byte(apps.String), &a.Applications)
	}
	if categories.String != "" {
		json.Unmarshal([]byte(categories.String), &a.Categories)
	}
	if tags.String != "" {
		json.Unmarshal([]byte(tags.String), &a.Tags)
	}
	return &a, nil
}

func collectAnalyses(rows *sql.Rows) ([]model.Analysis, error) {
	defer rows.Close()
	var out []model.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// CreateAnalysis inserts an analysis, assigning its id and owner.
func (s *SQLiteStore) CreateAnalysis(ctx context.Context, owner string, a *model.Analysis) error {
	a.ID = s.ids.next()
	a.Owner = owner

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analyses (`+analysisColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, owner, a.SessionID, toMillis(a.Timestamp), nullFloat(a.ProductivityScore), a.ActivityType,
		marshalJSON(a.Applications), string(a.FocusQuality), nullFloat(a.ConfidenceScore), a.RawAnalysis,
		marshalJSON(a.Categories), marshalJSON(a.Tags))
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}
	return nil
}

// GetSessionAnalysis returns a session's analyses, oldest first.
func (s *SQLiteStore) GetSessionAnalysis(ctx context.Context, owner, sessionID string) ([]model.Analysis, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+analysisColumns+` FROM analyses
		WHERE owner = ? AND session_id = ?
		ORDER BY timestamp ASC
	`, owner, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query session analyses: %w", err)
	}
	return collectAnalyses(rows)
}

// GetRecentAnalysis returns analyses from the last hours, oldest first.
func (s *SQLiteStore) GetRecentAnalysis(ctx context.Context, owner string, hours int) ([]model.Analysis, error) {
	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+analysisColumns+` FROM analyses
		WHERE owner = ? AND timestamp >= ?
		ORDER BY timestamp ASC
	`, owner, toMillis(cutoff))
	if err != nil {
		return nil, fmt.Errorf("failed to query recent analyses: %w", err)
	}
	return collectAnalyses(rows)
}

// GetProductivityStats aggregates the analyses inside tf.
func (s *SQLiteStore) GetProductivityStats(ctx context.Context, owner string, tf model.Timeframe) (*model.ProductivityStats, error) {
	cutoff := tf.Cutoff(time.Now())
	var avg, minScore, maxScore, avgConf sql.NullFloat64
	stats := &model.ProductivityStats{Timeframe: tf}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(productivity_score), AVG(productivity_score),
			MIN(productivity_score), MAX(productivity_score), AVG(confidence_score)
		FROM analyses
		WHERE owner = ? AND timestamp >= ?
	`, owner, toMillis(cutoff)).Scan(&stats.Count, &stats.ScoredCount, &avg, &minScore, &maxScore, &avgConf)
	if err != nil {
		return nil, fmt.Errorf("failed to query productivity stats: %w", err)
	}

	if avg.Valid {
		stats.AverageScore = model.Float(avg.Float64)
	}
	if minScore.Valid {
		stats.MinScore = model.Float(minScore.Float64)
	}
	if maxScore.Valid {
		stats.MaxScore = model.Float(maxScore.Float64)
	}
	if avgConf.Valid {
		stats.AverageConfidence = model.Float(avgConf.Float64)
	}
	return stats, nil
}

// CountAnalyses returns how many analyses the owner has stored.
func (s *SQLiteStore) CountAnalyses(ctx context.Context, owner string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analyses WHERE owner = ?`, owner).Scan(&n)
	return n, err
}

// ==================== Insights ====================

// StoreInsights inserts a new insight row. Older rows for the same key are
// left to expire.
func (s *SQLiteStore) StoreInsights(ctx context.Context, owner string, in *model.Insight) error {
	in.ID = s.ids.next()
	in.Owner = owner

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO insights (id, owner, insight_type, timeframe, data_points, payload, generated_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, in.ID, owner, in.InsightType, string(in.Timeframe), in.DataPoints, string(in.Payload),
		toMillis(in.GeneratedAt), toMillis(in.ExpiresAt))
	if err != nil {
		return fmt.Errorf("failed to insert insight: %w", err)
	}
	return nil
}

// GetCachedInsights returns the newest insight for the key still valid at now.
func (s *SQLiteStore) GetCachedInsights(ctx context.Context, owner, insightType string, tf model.Timeframe, now time.Time) (*model.Insight, error) {
	var in model.Insight
	var timeframe, payload string
	var generated, expires int64

	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner, insight_type, timeframe, data_points, payload, generated_at, expires_at
		FROM insights
		WHERE owner = ? AND insight_type = ? AND timeframe = ? AND expires_at > ?
		ORDER BY generated_at DESC
		LIMIT 1
	`, owner, insightType, string(tf), toMillis(now)).Scan(
		&in.ID, &in.Owner, &in.InsightType, &timeframe, &in.DataPoints, &payload, &generated, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("insight %s/%s: %w", insightType, tf, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached insight: %w", err)
	}

	in.Timeframe = model.Timeframe(timeframe)
	in.Payload = json.RawMessage(payload)
	in.GeneratedAt = fromMillis(generated)
	in.ExpiresAt = fromMillis(expires)
	return &in, nil
}

// DeleteExpiredInsights removes rows with expires_at <= now for all owners.
func (s *SQLiteStore) DeleteExpiredInsights(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM insights WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired insights: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ==================== Projects ====================

const projectColumns = `id, owner, name, description, status, tags, priority, deadline, created_at, updated_at`

func scanProject(sc rowScanner) (*model.Project, error) {
	var p model.Project
	var description, tags sql.NullString
	var deadline sql.NullInt64
	var created, updated int64

	if err := sc.Scan(&p.ID, &p.Owner, &p.Name, &description, &p.Status, &tags, &p.Priority,
		&deadline, &created, &updated); err != nil {
		return nil, err
	}
	p.Description = description.String
	if tags.String != "" {
		json.Unmarshal([]byte(tags.String), &p.Tags)
	}
	if deadline.Valid {
		t := fromMillis(deadline.Int64)
		p.Deadline = &t
	}
	p.CreatedAt = fromMillis(created)
	p.UpdatedAt = fromMillis(updated)
	return &p, nil
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

// CreateProject inserts a project, assigning its id, owner and timestamps.
func (s *SQLiteStore) CreateProject(ctx context.Context, owner string, p *model.Project) error {
	now := time.Now().Truncate(time.Millisecond)
	p.ID = s.ids.next()
	p.Owner = owner
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = model.ProjectActive
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, owner, p.Name, p.Description, p.Status, marshalJSON(p.Tags), p.Priority,
		nullMillis(p.Deadline), toMillis(p.CreatedAt), toMillis(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

// UpdateProject overwrites the mutable fields of a project.
func (s *SQLiteStore) UpdateProject(ctx context.Context, owner string, p *model.Project) error {
	p.UpdatedAt = time.Now().Truncate(time.Millisecond)
	p.Owner = owner

	res, err := s.db.ExecContext(ctx, `
		UPDATE projects
		SET name = ?, description = ?, status = ?, tags = ?, priority = ?, deadline = ?, updated_at = ?
		WHERE owner = ? AND id = ?
	`, p.Name, p.Description, p.Status, marshalJSON(p.Tags), p.Priority, nullMillis(p.Deadline),
		toMillis(p.UpdatedAt), owner, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

// GetProject returns one project.
func (s *SQLiteStore) GetProject(ctx context.Context, owner, id string) (*model.Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE owner = ? AND id = ?`, owner, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// ListProjects returns the owner's projects, highest priority first.
func (s *SQLiteStore) ListProjects(ctx context.Context, owner string) ([]model.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+projectColumns+` FROM projects
		WHERE owner = ?
		ORDER BY priority DESC, created_at ASC
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// DeleteProject removes a project and detaches its sessions.
func (s *SQLiteStore) DeleteProject(ctx context.Context, owner, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE owner = ? AND id = ?`, owner, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET project_id = '' WHERE owner = ? AND project_id = ?`, owner, id); err != nil {
		return fmt.Errorf("failed to detach project sessions: %w", err)
	}
	return tx.Commit()
}

// GetProjectSessions returns a project's sessions, newest first.
func (s *SQLiteStore) GetProjectSessions(ctx context.Context, owner, projectID string) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE owner = ? AND project_id = ?
		ORDER BY start_time DESC
	`, owner, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query project sessions: %w", err)
	}
	return collectSessions(rows)
}
