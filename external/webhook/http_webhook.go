package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/kavya5cloud/studyroom/external/httpjson"
	"github.com/kavya5cloud/studyroom/internal/webhook"
)

const requestTimeout = 10 * time.Second

// HTTPSender posts completion payloads to a single configured URL. An empty URL disables it.
type HTTPSender struct {
	webhookURL string
	poster     *httpjson.Client
}

func NewHTTPSender(webhookURL string) webhook.Sender {
	return &HTTPSender{
		webhookURL: webhookURL,
		poster:     httpjson.NewClient(requestTimeout),
	}
}

func (s *HTTPSender) SendCompletion(ctx context.Context, payload webhook.CompletionWebhookPayload) error {
	if s.webhookURL == "" {
		return nil
	}
	if _, err := s.poster.Post(ctx, s.webhookURL, payload); err != nil {
		return fmt.Errorf("send completion webhook for room %s: %w", payload.RoomID, err)
	}
	return nil
}
