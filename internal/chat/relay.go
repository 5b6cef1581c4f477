// Package chat keeps a room's chat log for one client and relays messages over the room's
// broadcast channel.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/kavya5cloud/studyroom/internal/broadcast"
)

// EventChatMessage is the broadcast event name chat messages travel under.
const EventChatMessage = "chat-message"

var ErrEmptyMessage = errors.New("chat message is empty")

type Message struct {
	ID         string    `json:"id"`
	SenderName string    `json:"username"`
	Body       string    `json:"message"`
	SentAt     time.Time `json:"timestamp"`
}

type Relay struct {
	channel broadcast.Channel
	roomID  string
	clock   clockwork.Clock

	mu   sync.Mutex
	log  []Message
	seen map[string]struct{}
}

func NewRelay(channel broadcast.Channel, roomID string, clock clockwork.Clock) *Relay {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Relay{
		channel: channel,
		roomID:  roomID,
		clock:   clock,
		seen:    make(map[string]struct{}),
	}
}

// Send appends the message to the local log before publishing it. When the publish fails the
// message is taken back out and the error is returned.
func (r *Relay) Send(ctx context.Context, senderName, body string) (Message, error) {
	if strings.TrimSpace(body) == "" {
		return Message{}, ErrEmptyMessage
	}
	msg := Message{
		ID:         uuid.NewString(),
		SenderName: senderName,
		Body:       body,
		SentAt:     r.clock.Now().UTC(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return Message{}, fmt.Errorf("encode chat message: %w", err)
	}

	r.mu.Lock()
	r.appendLocked(msg)
	r.mu.Unlock()

	if err := r.channel.Publish(ctx, r.roomID, EventChatMessage, payload); err != nil {
		r.remove(msg.ID)
		return Message{}, fmt.Errorf("publish chat message: %w", err)
	}
	return msg, nil
}

// OnMessage subscribes to the room channel. handler sees each message id at most once, and
// never sees this relay's own sends.
func (r *Relay) OnMessage(handler func(Message)) (broadcast.Subscription, error) {
	sub, err := r.channel.Subscribe(r.roomID, EventChatMessage, func(payload []byte) {
		msg, ok := decodeMessage(payload)
		if !ok {
			slog.Warn("dropping malformed chat payload", "room_id", r.roomID, "bytes", len(payload))
			return
		}
		r.mu.Lock()
		if _, dup := r.seen[msg.ID]; dup {
			r.mu.Unlock()
			return
		}
		r.appendLocked(msg)
		r.mu.Unlock()
		if handler != nil {
			handler(msg)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to room chat: %w", err)
	}
	return sub, nil
}

// Messages returns the log in local receipt order.
func (r *Relay) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.log))
	copy(out, r.log)
	return out
}

func (r *Relay) appendLocked(msg Message) {
	r.log = append(r.log, msg)
	r.seen[msg.ID] = struct{}{}
}

func (r *Relay) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.log) - 1; i >= 0; i-- {
		if r.log[i].ID == id {
			r.log = append(r.log[:i], r.log[i+1:]...)
			break
		}
	}
	delete(r.seen, id)
}

func decodeMessage(payload []byte) (Message, bool) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, false
	}
	if msg.ID == "" || strings.TrimSpace(msg.Body) == "" {
		return Message{}, false
	}
	return msg, true
}
