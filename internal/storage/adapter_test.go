package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Atharva-Kanherkar/attentive/internal/model"
)

type fakeIdentity struct {
	userID string
}

func (f *fakeIdentity) CurrentUserID() (string, bool) {
	return f.userID, f.userID != ""
}

func TestAdapterResolvesPerCall(t *testing.T) {
	ctx := context.Background()
	local := newTestStore(t)
	cloud := newTestRedisStore(t)
	id := &fakeIdentity{}
	repo := NewAdapter(local, cloud, id)

	anon := &model.Session{Title: "anon", SessionType: model.SessionTypePDFReading, StartTime: ms(time.Now())}
	if err := repo.CreateSession(ctx, anon); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if anon.Owner != LocalOwner {
		t.Errorf("expected local owner, got %q", anon.Owner)
	}
	if backend, _ := repo.Target(); backend != "local" {
		t.Errorf("expected local target, got %s", backend)
	}

	id.userID = "user-42"
	signedIn := &model.Session{Title: "cloud", SessionType: model.SessionTypePDFReading, StartTime: ms(time.Now())}
	if err := repo.CreateSession(ctx, signedIn); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if signedIn.Owner != "user-42" {
		t.Errorf("expected user owner, got %q", signedIn.Owner)
	}
	if backend, owner := repo.Target(); backend != "cloud" || owner != "user-42" {
		t.Errorf("unexpected target %s/%s", backend, owner)
	}

	if _, err := cloud.GetSessionByID(ctx, "user-42", signedIn.ID); err != nil {
		t.Errorf("signed-in write should land in the cloud backend: %v", err)
	}
	if _, err := local.GetSessionByID(ctx, LocalOwner, anon.ID); err != nil {
		t.Errorf("anonymous write should land in the local backend: %v", err)
	}

	// Reads follow the identity too.
	recent, err := repo.GetRecentSessions(ctx, 10)
	if err != nil {
		t.Fatalf("GetRecentSessions: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != signedIn.ID {
		t.Errorf("signed-in read should only see cloud rows: %+v", recent)
	}

	id.userID = ""
	recent, _ = repo.GetRecentSessions(ctx, 10)
	if len(recent) != 1 || recent[0].ID != anon.ID {
		t.Errorf("signed-out read should only see local rows: %+v", recent)
	}
}

func TestAdapterWithoutCloud(t *testing.T) {
	ctx := context.Background()
	local := newTestStore(t)
	id := &fakeIdentity{userID: "user-7"}
	repo := NewAdapter(local, nil, id)

	a := &model.Analysis{Timestamp: ms(time.Now()), ProductivityScore: model.Float(5)}
	if err := repo.CreateAnalysis(ctx, a); err != nil {
		t.Fatalf("CreateAnalysis: %v", err)
	}
	if a.Owner != "user-7" {
		t.Errorf("expected user-scoped local row, got owner %q", a.Owner)
	}
	if n, _ := local.CountAnalyses(ctx, "user-7"); n != 1 {
		t.Errorf("expected analysis in local backend under user id, got %d", n)
	}
	if n, _ := local.CountAnalyses(ctx, LocalOwner); n != 0 {
		t.Errorf("local owner should see nothing, got %d", n)
	}
}

func TestAdapterClosesSessionAcrossLogin(t *testing.T) {
	ctx := context.Background()
	local := newTestStore(t)
	cloud := newTestRedisStore(t)
	id := &fakeIdentity{}
	repo := NewAdapter(local, cloud, id)

	start := ms(time.Now())
	reading := &model.Session{Title: "A", SessionType: model.SessionTypePDFReading, StartTime: start}
	if err := repo.CreateSession(ctx, reading); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	id.userID = "user-1"
	end := start.Add(time.Minute)
	d := time.Minute
	closed, err := repo.UpdateSession(ctx, reading.ID, model.SessionUpdate{EndTime: &end, Duration: &d})
	if err != nil {
		t.Fatalf("closing a session opened before login: %v", err)
	}
	if closed.IsOpen() || closed.Owner != LocalOwner {
		t.Errorf("expected closed local row, got %+v", closed)
	}
	if stored, _ := local.GetSessionByID(ctx, LocalOwner, reading.ID); stored == nil || stored.IsOpen() {
		t.Errorf("local row should be closed: %+v", stored)
	}

	// once closed the session is no longer pinned; later writes follow the identity
	title := "renamed"
	if _, err := repo.UpdateSession(ctx, reading.ID, model.SessionUpdate{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Errorf("closed local row should not be reachable as user-1, got %v", err)
	}

	next := &model.Session{Title: "B", SessionType: model.SessionTypePDFReading, StartTime: end}
	if err := repo.CreateSession(ctx, next); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	id.userID = ""
	end2 := end.Add(time.Minute)
	if _, err := repo.UpdateSession(ctx, next.ID, model.SessionUpdate{EndTime: &end2, Duration: &d}); err != nil {
		t.Fatalf("closing a session opened before logout: %v", err)
	}
	if stored, err := cloud.GetSessionByID(ctx, "user-1", next.ID); err != nil || stored.IsOpen() {
		t.Errorf("cloud row should be closed: %+v %v", stored, err)
	}
}

func TestAdapterSweepsEveryOwner(t *testing.T) {
	ctx := context.Background()
	local := newTestStore(t)
	cloud := newTestRedisStore(t)
	repo := NewAdapter(local, cloud, &fakeIdentity{})

	now := ms(time.Now())
	expired := func() *model.Insight {
		return &model.Insight{
			InsightType: model.InsightTypeProductivity,
			Timeframe:   model.Timeframe1h,
			Payload:     []byte(`{}`),
			GeneratedAt: now.Add(-5 * time.Hour),
			ExpiresAt:   now.Add(-time.Hour),
		}
	}
	if err := local.StoreInsights(ctx, LocalOwner, expired()); err != nil {
		t.Fatal(err)
	}
	if err := cloud.StoreInsights(ctx, "user-9", expired()); err != nil {
		t.Fatal(err)
	}

	n, err := repo.DeleteExpiredInsights(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpiredInsights: %v", err)
	}
	if n != 2 {
		t.Errorf("expected both backends swept, got %d", n)
	}
}
