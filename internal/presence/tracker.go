// Package presence tracks one client's participation in a study room: the participant row,
// its heartbeat and the room roster.
package presence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kavya5cloud/studyroom/internal/repository"
)

const (
	DefaultHeartbeatInterval = 30 * time.Second
	// staleAfterHeartbeats is how many missed heartbeats mark a participant offline.
	staleAfterHeartbeats = 3
	refreshTimeout       = 10 * time.Second
)

var ErrAlreadyJoined = errors.New("already joined a room")

type Store interface {
	repository.ParticipantRepository
	WatchParticipants(ctx context.Context, roomID string, onChange func()) (repository.Subscription, error)
}

type Tracker struct {
	store    Store
	clock    clockwork.Clock
	interval time.Duration

	mu          sync.Mutex
	participant *repository.Participant

	// refreshMu keeps roster handler calls in notification order.
	refreshMu sync.Mutex
}

func NewTracker(store Store, clock clockwork.Clock, interval time.Duration) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &Tracker{store: store, clock: clock, interval: interval}
}

// Join inserts the participant row and keeps its identity. On failure nothing is kept.
func (t *Tracker) Join(ctx context.Context, roomID, displayName string) (*repository.Participant, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.participant != nil {
		return nil, ErrAlreadyJoined
	}
	now := t.clock.Now().UTC()
	p, err := t.store.InsertParticipant(ctx, repository.InsertParticipantInput{
		RoomID:      roomID,
		DisplayName: displayName,
		JoinedAt:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("join room %s: %w", roomID, err)
	}
	t.participant = p
	out := *p
	out.Online = true
	return &out, nil
}

// Participant returns the owned identity, or nil when not joined.
func (t *Tracker) Participant() *repository.Participant {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.participant == nil {
		return nil
	}
	p := *t.participant
	return &p
}

// Heartbeat refreshes last_seen_at. Failures are logged; the next interval retries.
func (t *Tracker) Heartbeat(ctx context.Context) {
	p := t.Participant()
	if p == nil {
		return
	}
	err := t.store.TouchParticipant(ctx, repository.TouchParticipantInput{
		ParticipantID: p.ID,
		LastSeenAt:    t.clock.Now().UTC(),
	})
	if err != nil {
		slog.Warn("heartbeat failed", "room_id", p.RoomID, "participant_id", p.ID, "error", err)
	}
}

// RunHeartbeat sends a heartbeat every interval until ctx is done.
func (t *Tracker) RunHeartbeat(ctx context.Context) {
	ticker := t.clock.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			t.Heartbeat(ctx)
		}
	}
}

// Leave deletes the participant row. Calling it again, or before Join, does nothing.
func (t *Tracker) Leave(ctx context.Context) {
	t.mu.Lock()
	p := t.participant
	t.participant = nil
	t.mu.Unlock()
	if p == nil {
		return
	}
	if err := t.store.DeleteParticipant(ctx, p.ID); err != nil {
		slog.Warn("failed to delete participant", "room_id", p.RoomID, "participant_id", p.ID, "error", err)
	}
}

// Roster reads the current participants of the joined room.
func (t *Tracker) Roster(ctx context.Context) ([]repository.Participant, error) {
	p := t.Participant()
	if p == nil {
		return nil, nil
	}
	return t.roster(ctx, p.RoomID)
}

// OnRosterChanged re-reads the whole roster whenever the room's participants change and hands it
// to handler. Refresh failures are logged and skipped.
func (t *Tracker) OnRosterChanged(ctx context.Context, handler func([]repository.Participant)) (repository.Subscription, error) {
	p := t.Participant()
	if p == nil {
		return nil, errors.New("subscribe to roster: not joined")
	}
	roomID := p.RoomID
	sub, err := t.store.WatchParticipants(ctx, roomID, func() {
		t.refreshMu.Lock()
		defer t.refreshMu.Unlock()
		if ctx.Err() != nil {
			return
		}
		rctx, cancel := context.WithTimeout(ctx, refreshTimeout)
		defer cancel()
		roster, err := t.roster(rctx, roomID)
		if err != nil {
			slog.Warn("roster refresh failed", "room_id", roomID, "error", err)
			return
		}
		handler(roster)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to roster: %w", err)
	}
	return sub, nil
}

// IsOnline reports whether a participant heartbeated within the staleness window.
func (t *Tracker) IsOnline(p repository.Participant) bool {
	return t.clock.Since(p.LastSeenAt) <= staleAfterHeartbeats*t.interval
}

func (t *Tracker) roster(ctx context.Context, roomID string) ([]repository.Participant, error) {
	participants, err := t.store.ListParticipantsByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list participants of room %s: %w", roomID, err)
	}
	for i := range participants {
		participants[i].Online = t.IsOnline(participants[i])
	}
	return participants, nil
}
