package tracking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Atharva-Kanherkar/attentive/internal/model"
	"github.com/Atharva-Kanherkar/attentive/internal/storage"
)

// SessionStore is the part of the repository the lifecycle writes to.
type SessionStore interface {
	CreateSession(ctx context.Context, s *model.Session) error
	UpdateSession(ctx context.Context, id string, u model.SessionUpdate) (*model.Session, error)
}

// Session event types.
const (
	EventSessionOpened = "session.opened"
	EventSessionClosed = "session.closed"
)

// Event reports a session transition.
type Event struct {
	Type    string         `json:"type"`
	Session *model.Session `json:"session"`
}

// Observer receives session events. It runs with the lifecycle locked, so
// it must not block or call back into the lifecycle.
type Observer func(Event)

// Lifecycle owns the single open session of one tracking stream.
// States: no session, or one open session.
type Lifecycle struct {
	store SessionStore
	now   func() time.Time

	mu        sync.Mutex
	current   *model.Session
	observers []Observer
}

// NewLifecycle creates a lifecycle writing to store.
func NewLifecycle(store SessionStore) *Lifecycle {
	return &Lifecycle{
		store: store,
		now:   func() time.Time { return time.Now().Truncate(time.Millisecond) },
	}
}

// SetClock overrides the time source. Instants are truncated to
// milliseconds so they survive storage round trips unchanged.
func (l *Lifecycle) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = func() time.Time { return now().Truncate(time.Millisecond) }
}

// Subscribe registers an observer.
func (l *Lifecycle) Subscribe(o Observer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, o)
}

// Current returns a copy of the open session, or nil.
func (l *Lifecycle) Current() *model.Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current.Clone()
}

// CurrentID returns the id of the open session, or "".
func (l *Lifecycle) CurrentID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return ""
	}
	return l.current.ID
}

// Open starts a session for sig. An open session is closed first, so a
// title change always produces two rows. If that close fails the old
// session stays open and no new one is created.
func (l *Lifecycle) Open(ctx context.Context, sig Signal, metadata map[string]string) (*model.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var events []Event
	if l.current != nil {
		closed, err := l.closeLocked(ctx)
		if err != nil {
			return nil, err
		}
		events = append(events, Event{Type: EventSessionClosed, Session: closed})
	}

	meta := map[string]string{"window_title": sig.WindowTitle}
	if sig.FileName != "" {
		meta["file_name"] = sig.FileName
	}
	for k, v := range metadata {
		meta[k] = v
	}

	s := &model.Session{
		Title:       sig.Title,
		SessionType: sig.SessionType,
		StartTime:   l.now(),
		Source:      sig.Source,
		Metadata:    meta,
	}
	if err := l.store.CreateSession(ctx, s); err != nil {
		l.notifyLocked(events)
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	l.current = s
	events = append(events, Event{Type: EventSessionOpened, Session: s.Clone()})
	l.notifyLocked(events)
	return s.Clone(), nil
}

// Close ends the open session. With no session open it is a no-op that
// returns nil, nil.
func (l *Lifecycle) Close(ctx context.Context) (*model.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == nil {
		return nil, nil
	}
	closed, err := l.closeLocked(ctx)
	if err != nil {
		return nil, err
	}
	l.notifyLocked([]Event{{Type: EventSessionClosed, Session: closed}})
	return closed.Clone(), nil
}

// closeLocked persists end time and duration. A clock that went backwards
// yields end = start and a zero duration. A row that no longer exists
// cannot be closed, so the session is dropped rather than kept open.
func (l *Lifecycle) closeLocked(ctx context.Context) (*model.Session, error) {
	end := l.now()
	if end.Before(l.current.StartTime) {
		end = l.current.StartTime
	}
	duration := end.Sub(l.current.StartTime)

	updated, err := l.store.UpdateSession(ctx, l.current.ID, model.SessionUpdate{
		EndTime:  &end,
		Duration: &duration,
	})
	if errors.Is(err, storage.ErrNotFound) {
		log.Printf("[detector] Session %s no longer exists, dropping it", l.current.ID)
		updated, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to close session %s: %w", l.current.ID, err)
	}
	if updated == nil {
		updated = l.current.Clone()
		updated.EndTime = &end
		updated.Duration = duration
	}
	l.current = nil
	return updated, nil
}

func (l *Lifecycle) notifyLocked(events []Event) {
	for _, e := range events {
		for _, o := range l.observers {
			o(e)
		}
	}
}
