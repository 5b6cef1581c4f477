package repository

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = errors.New("not found")

type CreateRoomInput struct {
	Name      string
	CreatedAt time.Time
}

type InsertParticipantInput struct {
	RoomID      string
	DisplayName string
	JoinedAt    time.Time
}

type TouchParticipantInput struct {
	ParticipantID string
	LastSeenAt    time.Time
}

type RoomRepository interface {
	CreateRoom(ctx context.Context, input CreateRoomInput) (*Room, error)
	GetRoom(ctx context.Context, roomID string) (*Room, error)
	// ListRooms returns rooms newest first with their current participant counts.
	ListRooms(ctx context.Context) ([]Room, error)
}

type ParticipantRepository interface {
	InsertParticipant(ctx context.Context, input InsertParticipantInput) (*Participant, error)
	TouchParticipant(ctx context.Context, input TouchParticipantInput) error
	DeleteParticipant(ctx context.Context, participantID string) error
	ListParticipantsByRoom(ctx context.Context, roomID string) ([]Participant, error)
}

// Subscription is a registered change handler; Unsubscribe is safe to call more than once.
type Subscription interface {
	Unsubscribe()
}

// ChangeWatcher reports that rows changed, not what changed. Handlers are expected to re-read.
type ChangeWatcher interface {
	WatchParticipants(ctx context.Context, roomID string, onChange func()) (Subscription, error)
	WatchRooms(ctx context.Context, onChange func()) (Subscription, error)
}

type Repository interface {
	RoomRepository
	ParticipantRepository
	ChangeWatcher
}
