// Package broadcast is the per-room fan-out used for chat. Delivery is best effort and at
// most once; nothing is kept for late subscribers.
package broadcast

import "context"

type Handler func(payload []byte)

type Subscription interface {
	Unsubscribe() error
}

type Channel interface {
	Publish(ctx context.Context, roomID, event string, payload []byte) error
	Subscribe(roomID, event string, handler Handler) (Subscription, error)
}
