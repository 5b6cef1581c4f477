// Package session runs one client's stay in a study room: presence, chat and the room timer.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kavya5cloud/studyroom/internal/announce"
	"github.com/kavya5cloud/studyroom/internal/broadcast"
	"github.com/kavya5cloud/studyroom/internal/chat"
	"github.com/kavya5cloud/studyroom/internal/presence"
	"github.com/kavya5cloud/studyroom/internal/repository"
	"github.com/kavya5cloud/studyroom/internal/timer"
)

const (
	announceTimeout = 15 * time.Second
	releaseTimeout  = 10 * time.Second
)

var (
	ErrDisplayNameRequired = errors.New("display name is required")
	ErrRoomRequired        = errors.New("room id is required")
	ErrAlreadyEntered      = errors.New("already in a room")
	ErrNotEntered          = errors.New("not in a room")
)

// Listener receives room events while the coordinator is entered. Calls may come from several
// goroutines, and must not call back into the Coordinator.
type Listener interface {
	RosterChanged(roster []repository.Participant)
	MessageReceived(msg chat.Message)
	TimerTicked(snap timer.Snapshot)
	TimerNotified(n timer.Notification)
}

type Dependencies struct {
	Store             presence.Store
	Channel           broadcast.Channel
	Announcer         announce.Announcer
	Clock             clockwork.Clock
	HeartbeatInterval time.Duration
}

// Entered is the state a client renders right after entering.
type Entered struct {
	Participant repository.Participant
	Roster      []repository.Participant
	Messages    []chat.Message
	Timer       timer.Snapshot
}

type Coordinator struct {
	deps     Dependencies
	listener Listener

	mu     sync.Mutex
	active *roomSession
}

func NewCoordinator(deps Dependencies, listener Listener) *Coordinator {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Announcer == nil {
		deps.Announcer = announce.Nop{}
	}
	return &Coordinator{deps: deps, listener: listener}
}

// Enter joins the room and subscribes to its roster and chat. If any step fails, or ctx ends
// part way, everything acquired so far is released and the coordinator stays outside.
func (c *Coordinator) Enter(ctx context.Context, roomID, displayName string) (*Entered, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, ErrDisplayNameRequired
	}
	if strings.TrimSpace(roomID) == "" {
		return nil, ErrRoomRequired
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		return nil, ErrAlreadyEntered
	}

	rs := c.newRoomSession(roomID, displayName)
	entered, err := rs.enter(ctx)
	if err != nil {
		releaseCtx, cancel := releaseContext(ctx)
		defer cancel()
		rs.release(releaseCtx)
		return nil, err
	}
	rs.live.Store(true)
	c.active = rs
	slog.Info("entered room", "room_id", roomID, "participant_id", entered.Participant.ID)
	return entered, nil
}

// Leave releases the room session. It is a no-op when not entered and runs to completion even
// when ctx is already cancelled.
func (c *Coordinator) Leave(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rs := c.active
	c.active = nil
	if rs == nil {
		return
	}
	ctx, cancel := releaseContext(ctx)
	defer cancel()
	rs.release(ctx)
	slog.Info("left room", "room_id", rs.roomID)
}

// releaseContext detaches teardown from the caller's cancellation, which also drops its
// deadline, so it carries its own bound.
func releaseContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
}

// RoomID returns the entered room, or "" when outside.
func (c *Coordinator) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return ""
	}
	return c.active.roomID
}

func (c *Coordinator) SendChat(ctx context.Context, body string) (chat.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return chat.Message{}, ErrNotEntered
	}
	return c.active.relay.Send(ctx, c.active.displayName, body)
}

func (c *Coordinator) Messages() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return nil
	}
	return c.active.relay.Messages()
}

func (c *Coordinator) Roster(ctx context.Context) ([]repository.Participant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return nil, ErrNotEntered
	}
	return c.active.tracker.Roster(ctx)
}

func (c *Coordinator) SelectDuration(minutes int) (timer.Snapshot, error) {
	return c.withRunner(func(r *timer.Runner) timer.Snapshot { return r.SelectDuration(minutes) })
}

func (c *Coordinator) StartTimer() (timer.Snapshot, error) {
	return c.withRunner((*timer.Runner).Start)
}

func (c *Coordinator) EndTimer() (timer.Snapshot, error) {
	return c.withRunner((*timer.Runner).End)
}

func (c *Coordinator) AcknowledgeCompletion() (timer.Snapshot, error) {
	return c.withRunner((*timer.Runner).AcknowledgeCompletion)
}

func (c *Coordinator) TimerSnapshot() (timer.Snapshot, error) {
	return c.withRunner((*timer.Runner).Snapshot)
}

func (c *Coordinator) withRunner(fn func(*timer.Runner) timer.Snapshot) (timer.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return timer.Snapshot{}, ErrNotEntered
	}
	return fn(c.active.runner), nil
}

type roomSession struct {
	deps        Dependencies
	listener    Listener
	roomID      string
	displayName string

	tracker *presence.Tracker
	relay   *chat.Relay
	runner  *timer.Runner

	// live gates listener calls; it is true only between a successful enter and release.
	live atomic.Bool
	// liveMu orders the release of live against announcing.Add.
	liveMu sync.Mutex

	cancel        context.CancelFunc
	heartbeatDone chan struct{}
	rosterSub     repository.Subscription
	chatSub       broadcast.Subscription
	announcing    sync.WaitGroup
}

func (c *Coordinator) newRoomSession(roomID, displayName string) *roomSession {
	rs := &roomSession{
		deps:        c.deps,
		listener:    c.listener,
		roomID:      roomID,
		displayName: displayName,
		tracker:     presence.NewTracker(c.deps.Store, c.deps.Clock, c.deps.HeartbeatInterval),
		relay:       chat.NewRelay(c.deps.Channel, roomID, c.deps.Clock),
	}
	rs.runner = timer.NewRunner(c.deps.Clock, timer.Hooks{
		OnTick:         rs.onTick,
		OnNotification: rs.onNotification,
	})
	return rs
}

func (rs *roomSession) enter(ctx context.Context) (*Entered, error) {
	participant, err := rs.tracker.Join(ctx, rs.roomID, rs.displayName)
	if err != nil {
		return nil, err
	}

	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	rs.cancel = cancel
	rs.heartbeatDone = make(chan struct{})
	go func() {
		defer close(rs.heartbeatDone)
		rs.tracker.RunHeartbeat(sessionCtx)
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rs.rosterSub, err = rs.tracker.OnRosterChanged(sessionCtx, rs.onRoster)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rs.chatSub, err = rs.relay.OnMessage(rs.onMessage)
	if err != nil {
		return nil, err
	}
	roster, err := rs.tracker.Roster(ctx)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Entered{
		Participant: *participant,
		Roster:      roster,
		Messages:    rs.relay.Messages(),
		Timer:       rs.runner.Snapshot(),
	}, nil
}

// release undoes whatever enter acquired, in reverse order.
func (rs *roomSession) release(ctx context.Context) {
	rs.liveMu.Lock()
	rs.live.Store(false)
	rs.liveMu.Unlock()
	if rs.chatSub != nil {
		if err := rs.chatSub.Unsubscribe(); err != nil {
			slog.Warn("failed to unsubscribe from room chat", "room_id", rs.roomID, "error", err)
		}
	}
	if rs.rosterSub != nil {
		rs.rosterSub.Unsubscribe()
	}
	if rs.cancel != nil {
		rs.cancel()
		<-rs.heartbeatDone
	}
	rs.runner.Close()
	rs.announcing.Wait()
	rs.tracker.Leave(ctx)
}

func (rs *roomSession) onRoster(roster []repository.Participant) {
	if rs.live.Load() {
		rs.listener.RosterChanged(roster)
	}
}

func (rs *roomSession) onMessage(msg chat.Message) {
	if rs.live.Load() {
		rs.listener.MessageReceived(msg)
	}
}

func (rs *roomSession) onTick(snap timer.Snapshot) {
	if rs.live.Load() {
		rs.listener.TimerTicked(snap)
	}
}

func (rs *roomSession) onNotification(n timer.Notification) {
	if !rs.live.Load() {
		return
	}
	rs.listener.TimerNotified(n)
	if n.Kind == timer.NotificationSessionComplete {
		rs.announceCompletion(n)
	}
}

func (rs *roomSession) announceCompletion(n timer.Notification) {
	completion := announce.Completion{
		RoomID:          rs.roomID,
		DisplayName:     rs.displayName,
		DurationMinutes: rs.runner.Snapshot().SelectedDurationMinutes,
		CompletedCount:  n.CompletedCount,
		CompletedAt:     rs.deps.Clock.Now().UTC(),
	}
	rs.liveMu.Lock()
	defer rs.liveMu.Unlock()
	if !rs.live.Load() {
		return
	}
	rs.announcing.Add(1)
	go func() {
		defer rs.announcing.Done()
		ctx, cancel := context.WithTimeout(context.Background(), announceTimeout)
		defer cancel()
		if err := rs.deps.Announcer.AnnounceCompletion(ctx, completion); err != nil {
			slog.Warn("failed to announce completion", "room_id", completion.RoomID, "error", err)
		}
	}()
}
