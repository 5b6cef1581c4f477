// Package lobby lists and creates study rooms.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/kavya5cloud/studyroom/internal/repository"
)

var ErrMissingInformation = errors.New("room name and username are required")

type Store interface {
	repository.RoomRepository
	WatchRooms(ctx context.Context, onChange func()) (repository.Subscription, error)
}

type Service struct {
	store Store
	clock clockwork.Clock
}

func NewService(store Store, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{store: store, clock: clock}
}

// ListRooms returns rooms newest first with their participant counts.
func (s *Service) ListRooms(ctx context.Context) ([]repository.Room, error) {
	rooms, err := s.store.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	if rooms == nil {
		rooms = []repository.Room{}
	}
	return rooms, nil
}

func (s *Service) GetRoom(ctx context.Context, roomID string) (*repository.Room, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("get room %s: %w", roomID, err)
	}
	return room, nil
}

// CreateRoom needs the creator's username too, since the creator enters the room right after.
func (s *Service) CreateRoom(ctx context.Context, name, username string) (*repository.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.TrimSpace(username) == "" {
		return nil, ErrMissingInformation
	}
	room, err := s.store.CreateRoom(ctx, repository.CreateRoomInput{
		Name:      name,
		CreatedAt: s.clock.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}
	return room, nil
}

// WatchRooms calls onChange with a fresh room list whenever rooms or their participants change.
// Failed refreshes are skipped.
func (s *Service) WatchRooms(ctx context.Context, onChange func([]repository.Room)) (repository.Subscription, error) {
	sub, err := s.store.WatchRooms(ctx, func() {
		if ctx.Err() != nil {
			return
		}
		rooms, err := s.ListRooms(ctx)
		if err != nil {
			slog.Warn("room list refresh failed", "error", err)
			return
		}
		onChange(rooms)
	})
	if err != nil {
		return nil, fmt.Errorf("watch rooms: %w", err)
	}
	return sub, nil
}
