package broadcast

import (
	"context"
	"log/slog"
	"sync"
)

const hubQueueSize = 256

// Hub is an in-process Channel for single-node deployments and tests. Each subscriber has its
// own queue; a full queue drops the message rather than blocking the publisher.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*hubSubscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[*hubSubscriber]struct{})}
}

type hubSubscriber struct {
	hub     *Hub
	topic   string
	queue   chan []byte
	handler Handler
	once    sync.Once
	done    chan struct{}
}

func topicKey(roomID, event string) string {
	return roomID + "/" + event
}

func (h *Hub) Publish(ctx context.Context, roomID, event string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := topicKey(roomID, event)
	h.mu.RLock()
	targets := make([]*hubSubscriber, 0, len(h.topics[key]))
	for s := range h.topics[key] {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		select {
		case s.queue <- payload:
		default:
			slog.Warn("broadcast subscriber queue full, dropping message", "room_id", roomID, "event", event)
		}
	}
	return nil
}

func (h *Hub) Subscribe(roomID, event string, handler Handler) (Subscription, error) {
	s := &hubSubscriber{
		hub:     h,
		topic:   topicKey(roomID, event),
		queue:   make(chan []byte, hubQueueSize),
		handler: handler,
		done:    make(chan struct{}),
	}
	h.mu.Lock()
	if h.topics[s.topic] == nil {
		h.topics[s.topic] = make(map[*hubSubscriber]struct{})
	}
	h.topics[s.topic][s] = struct{}{}
	h.mu.Unlock()

	go s.deliver()
	return s, nil
}

func (s *hubSubscriber) deliver() {
	for {
		select {
		case <-s.done:
			return
		case payload := <-s.queue:
			s.handler(payload)
		}
	}
}

func (s *hubSubscriber) Unsubscribe() error {
	s.once.Do(func() {
		s.hub.mu.Lock()
		if subs, ok := s.hub.topics[s.topic]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(s.hub.topics, s.topic)
			}
		}
		s.hub.mu.Unlock()
		close(s.done)
	})
	return nil
}
