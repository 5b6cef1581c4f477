package repository

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kavya5cloud/studyroom/internal/repository"
)

const listenRetryDelay = 2 * time.Second

// changeHub holds one dedicated LISTEN connection and fans notifications out to subscribers.
// It starts on the first subscription.
type changeHub struct {
	pool     *pgxpool.Pool
	channels []string

	mu      sync.Mutex
	nextID  int
	subs    map[int]changeSub
	started bool
	ready   chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
}

type changeSub struct {
	channel  string
	roomID   string
	onChange func()
}

func newChangeHub(pool *pgxpool.Pool, channels ...string) *changeHub {
	return &changeHub{
		pool:     pool,
		channels: channels,
		subs:     make(map[int]changeSub),
		ready:    make(chan struct{}),
	}
}

// subscribe registers onChange and waits until the listener is active, so a caller that reads
// right after subscribing cannot miss a change.
func (h *changeHub) subscribe(ctx context.Context, channel, roomID string, onChange func()) (repository.Subscription, error) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = changeSub{channel: channel, roomID: roomID, onChange: onChange}
	if !h.started {
		h.started = true
		runCtx, cancel := context.WithCancel(context.Background())
		h.cancel = cancel
		h.done = make(chan struct{})
		go h.run(runCtx)
	}
	ready := h.ready
	h.mu.Unlock()

	sub := &hubSubscription{hub: h, id: id}
	select {
	case <-ready:
		return sub, nil
	case <-ctx.Done():
		sub.Unsubscribe()
		return nil, fmt.Errorf("wait for change listener: %w", ctx.Err())
	}
}

func (h *changeHub) remove(id int) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

func (h *changeHub) run(ctx context.Context) {
	defer close(h.done)
	for {
		err := h.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		slog.Warn("change listener disconnected; retrying", "error", err, "retry_in", listenRetryDelay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(listenRetryDelay):
		}
	}
}

func (h *changeHub) listen(ctx context.Context) error {
	conn, err := h.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer conn.Release()

	for _, ch := range h.channels {
		if _, err := conn.Exec(ctx, "LISTEN "+ch); err != nil {
			return fmt.Errorf("listen %s: %w", ch, err)
		}
	}
	h.markReady()
	slog.Info("change listener active", "channels", h.channels)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		h.dispatch(n.Channel, n.Payload)
	}
}

func (h *changeHub) markReady() {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.ready:
	default:
		close(h.ready)
	}
}

// dispatch runs matching handlers on their own goroutines; they re-read from the store and
// must not hold up the listener.
func (h *changeHub) dispatch(channel, roomID string) {
	h.mu.Lock()
	var targets []func()
	for _, s := range h.subs {
		if s.channel != channel {
			continue
		}
		if s.roomID != "" && s.roomID != roomID {
			continue
		}
		targets = append(targets, s.onChange)
	}
	h.mu.Unlock()

	slog.Debug("change notification", "channel", channel, "room_id", roomID, "subscribers", len(targets))
	for _, fn := range targets {
		go fn()
	}
}

func (h *changeHub) close() {
	h.mu.Lock()
	cancel, done := h.cancel, h.done
	h.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

type hubSubscription struct {
	hub  *changeHub
	id   int
	once sync.Once
}

func (s *hubSubscription) Unsubscribe() {
	s.once.Do(func() { s.hub.remove(s.id) })
}
