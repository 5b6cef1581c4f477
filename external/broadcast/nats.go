package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kavya5cloud/studyroom/internal/broadcast"
	"github.com/nats-io/nats.go"
)

const subjectPrefix = "studyroom.rooms"

type NATSConfig struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
}

func DefaultNATSConfig(url string) NATSConfig {
	return NATSConfig{
		URL:           url,
		Name:          "studyroom",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// natsConn is the part of *nats.Conn the channel uses.
type natsConn interface {
	Publish(subject string, data []byte) error
	subscribe(subject string, cb nats.MsgHandler) (natsSub, error)
	Drain() error
	IsClosed() bool
}

type natsSub interface {
	IsValid() bool
	Unsubscribe() error
}

type coreConn struct {
	*nats.Conn
}

func (c coreConn) subscribe(subject string, cb nats.MsgHandler) (natsSub, error) {
	sub, err := c.Subscribe(subject, cb)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// NATSChannel publishes room events on core NATS subjects, which gives the at-most-once,
// no-replay semantics the chat relay expects.
type NATSChannel struct {
	nc natsConn
}

func NewNATSChannel(cfg NATSConfig) (*NATSChannel, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Error("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			slog.Error("nats async error", "error", err, "subject", subject)
		}),
	}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATSChannel{nc: coreConn{Conn: nc}}, nil
}

func Subject(roomID, event string) string {
	return fmt.Sprintf("%s.%s.%s", subjectPrefix, roomID, event)
}

func (c *NATSChannel) Publish(ctx context.Context, roomID, event string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.nc.Publish(Subject(roomID, event), payload); err != nil {
		return fmt.Errorf("publish %s: %w", event, err)
	}
	return nil
}

func (c *NATSChannel) Subscribe(roomID, event string, handler broadcast.Handler) (broadcast.Subscription, error) {
	sub, err := c.nc.subscribe(Subject(roomID, event), func(m *nats.Msg) {
		handler(m.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", event, err)
	}
	return &natsSubscription{sub: sub}, nil
}

// Shutdown drains in-flight messages before closing the connection.
func (c *NATSChannel) Shutdown() error {
	if c.nc == nil || c.nc.IsClosed() {
		return nil
	}
	return c.nc.Drain()
}

type natsSubscription struct {
	sub natsSub
}

func (s *natsSubscription) Unsubscribe() error {
	if !s.sub.IsValid() {
		return nil
	}
	return s.sub.Unsubscribe()
}
