package lobby

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kavya5cloud/studyroom/internal/repository"
)

type mockStore struct {
	rooms       []repository.Room
	listErr     error
	createErr   error
	createCalls []repository.CreateRoomInput
	onChange    func()
}

func (m *mockStore) CreateRoom(_ context.Context, input repository.CreateRoomInput) (*repository.Room, error) {
	m.createCalls = append(m.createCalls, input)
	if m.createErr != nil {
		return nil, m.createErr
	}
	room := repository.Room{ID: "room-new", Name: input.Name, CreatedAt: input.CreatedAt}
	m.rooms = append([]repository.Room{room}, m.rooms...)
	return &room, nil
}

func (m *mockStore) GetRoom(_ context.Context, roomID string) (*repository.Room, error) {
	for _, r := range m.rooms {
		if r.ID == roomID {
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockStore) ListRooms(context.Context) ([]repository.Room, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.rooms, nil
}

func (m *mockStore) WatchRooms(_ context.Context, onChange func()) (repository.Subscription, error) {
	m.onChange = onChange
	return noopSubscription{}, nil
}

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}

func TestCreateRoom_RequiresNameAndUsername(t *testing.T) {
	tests := []struct {
		name     string
		room     string
		username string
	}{
		{name: "blank room", room: "  ", username: "alice"},
		{name: "blank username", room: "Library", username: ""},
		{name: "both blank", room: "", username: " "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{}
			svc := NewService(store, clockwork.NewFakeClock())
			if _, err := svc.CreateRoom(context.Background(), tt.room, tt.username); !errors.Is(err, ErrMissingInformation) {
				t.Fatalf("expected ErrMissingInformation, got %v", err)
			}
			if len(store.createCalls) != 0 {
				t.Fatal("expected no store call")
			}
		})
	}
}

func TestCreateRoom_TrimsNameAndStampsTime(t *testing.T) {
	store := &mockStore{}
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC))
	svc := NewService(store, clock)

	room, err := svc.CreateRoom(context.Background(), "  Library ", "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if room.Name != "Library" {
		t.Fatalf("unexpected room name: %q", room.Name)
	}
	if !store.createCalls[0].CreatedAt.Equal(clock.Now()) {
		t.Fatalf("unexpected created_at: %v", store.createCalls[0].CreatedAt)
	}
}

func TestCreateRoom_WrapsStoreError(t *testing.T) {
	storeErr := errors.New("db down")
	svc := NewService(&mockStore{createErr: storeErr}, nil)
	if _, err := svc.CreateRoom(context.Background(), "Library", "alice"); !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestListRooms_NeverNil(t *testing.T) {
	svc := NewService(&mockStore{}, nil)
	rooms, err := svc.ListRooms(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rooms == nil || len(rooms) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", rooms)
	}
}

func TestWatchRooms_RefreshesList(t *testing.T) {
	store := &mockStore{rooms: []repository.Room{{ID: "room-1", Name: "Library", ParticipantCount: 2}}}
	svc := NewService(store, nil)

	var got [][]repository.Room
	if _, err := svc.WatchRooms(context.Background(), func(rooms []repository.Room) { got = append(got, rooms) }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store.onChange()
	store.listErr = errors.New("db down")
	store.onChange()

	if len(got) != 1 || got[0][0].ParticipantCount != 2 {
		t.Fatalf("expected a single successful refresh, got %+v", got)
	}
}

func TestGetRoom_WrapsNotFound(t *testing.T) {
	svc := NewService(&mockStore{rooms: []repository.Room{{ID: "room-1", Name: "Library"}}}, nil)
	room, err := svc.GetRoom(context.Background(), "room-1")
	if err != nil || room.Name != "Library" {
		t.Fatalf("unexpected result: %+v, %v", room, err)
	}
	if _, err := svc.GetRoom(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
