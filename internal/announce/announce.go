// Package announce tells the outside world that a room participant finished a focus cycle.
package announce

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kavya5cloud/studyroom/internal/discord"
	"github.com/kavya5cloud/studyroom/internal/repository"
	"github.com/kavya5cloud/studyroom/internal/webhook"
)

const eventSessionComplete = "session_complete"

type Completion struct {
	RoomID          string
	DisplayName     string
	DurationMinutes int
	CompletedCount  int
	CompletedAt     time.Time
}

type Announcer interface {
	AnnounceCompletion(ctx context.Context, c Completion) error
}

type Service struct {
	rooms            repository.RoomRepository
	discord          discord.Client
	discordChannelID string
	webhook          webhook.Sender
}

// NewService sends to Discord only when discordChannelID is set. The webhook sender decides on
// its own whether it is configured.
func NewService(rooms repository.RoomRepository, dc discord.Client, discordChannelID string, wh webhook.Sender) *Service {
	return &Service{
		rooms:            rooms,
		discord:          dc,
		discordChannelID: discordChannelID,
		webhook:          wh,
	}
}

// AnnounceCompletion sends to every configured target and joins their errors.
func (s *Service) AnnounceCompletion(ctx context.Context, c Completion) error {
	roomName := s.resolveRoomName(ctx, c.RoomID)

	var errs []error
	if s.discord != nil && s.discordChannelID != "" {
		if err := s.discord.SendAnnouncement(s.discordChannelID, discord.Announcement{
			Title:       completionTitle(c.DisplayName),
			Description: completionDescription(c.DurationMinutes, roomName),
			Footer:      completionFooter(c.CompletedCount),
			Timestamp:   c.CompletedAt,
		}); err != nil {
			errs = append(errs, err)
		}
	}
	if s.webhook != nil {
		if err := s.webhook.SendCompletion(ctx, webhook.CompletionWebhookPayload{
			Event:           eventSessionComplete,
			RoomID:          c.RoomID,
			RoomName:        roomName,
			Username:        c.DisplayName,
			DurationMinutes: c.DurationMinutes,
			CompletedCount:  c.CompletedCount,
			CompletedAt:     c.CompletedAt,
		}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CheckDiscordChannel logs the configured channel's name, or a warning when it cannot be found.
func (s *Service) CheckDiscordChannel() {
	if s.discord == nil || s.discordChannelID == "" {
		return
	}
	name, err := s.discord.ResolveChannelName(s.discordChannelID)
	if err != nil {
		slog.Warn("failed to resolve discord announce channel", "channel_id", s.discordChannelID, "error", err)
		return
	}
	if name == "" {
		slog.Warn("discord announce channel not found", "channel_id", s.discordChannelID)
		return
	}
	slog.Info("discord announcements enabled", "channel_id", s.discordChannelID, "channel_name", name)
}

func (s *Service) resolveRoomName(ctx context.Context, roomID string) string {
	if s.rooms == nil {
		return ""
	}
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		slog.Warn("failed to resolve room for announcement", "room_id", roomID, "error", err)
		return ""
	}
	return room.Name
}

// Nop drops every announcement.
type Nop struct{}

func (Nop) AnnounceCompletion(context.Context, Completion) error { return nil }
