package webhook

import (
	"context"
	"time"
)

type CompletionWebhookPayload struct {
	Event           string    `json:"event"`
	RoomID          string    `json:"room_id"`
	RoomName        string    `json:"room_name"`
	Username        string    `json:"username"`
	DurationMinutes int       `json:"duration_minutes"`
	CompletedCount  int       `json:"completed_count"`
	CompletedAt     time.Time `json:"completed_at"`
}

type Sender interface {
	SendCompletion(ctx context.Context, payload CompletionWebhookPayload) error
}
