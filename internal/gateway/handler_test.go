package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kavya5cloud/studyroom/internal/broadcast"
	"github.com/kavya5cloud/studyroom/internal/lobby"
	"github.com/kavya5cloud/studyroom/internal/repository"
	"github.com/kavya5cloud/studyroom/internal/session"
	"github.com/kavya5cloud/studyroom/internal/timer"
)

type memRepository struct {
	mu           sync.Mutex
	rooms        []repository.Room
	participants map[string]repository.Participant
	nextID       int
	// deleteDeadlines records whether each DeleteParticipant call carried a deadline.
	deleteDeadlines []bool
}

func newMemRepository() *memRepository {
	return &memRepository{participants: make(map[string]repository.Participant)}
}

func (m *memRepository) CreateRoom(_ context.Context, input repository.CreateRoomInput) (*repository.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	room := repository.Room{ID: fmt.Sprintf("room-%d", m.nextID), Name: input.Name, CreatedAt: input.CreatedAt}
	m.rooms = append([]repository.Room{room}, m.rooms...)
	return &room, nil
}

func (m *memRepository) GetRoom(_ context.Context, roomID string) (*repository.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rooms {
		if r.ID == roomID {
			r.ParticipantCount = m.countLocked(r.ID)
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memRepository) ListRooms(context.Context) ([]repository.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]repository.Room, len(m.rooms))
	for i, r := range m.rooms {
		r.ParticipantCount = m.countLocked(r.ID)
		out[i] = r
	}
	return out, nil
}

func (m *memRepository) countLocked(roomID string) int {
	n := 0
	for _, p := range m.participants {
		if p.RoomID == roomID {
			n++
		}
	}
	return n
}

func (m *memRepository) InsertParticipant(_ context.Context, input repository.InsertParticipantInput) (*repository.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p := repository.Participant{
		ID:          fmt.Sprintf("participant-%d", m.nextID),
		RoomID:      input.RoomID,
		DisplayName: input.DisplayName,
		JoinedAt:    input.JoinedAt,
		LastSeenAt:  input.JoinedAt,
	}
	m.participants[p.ID] = p
	return &p, nil
}

func (m *memRepository) TouchParticipant(context.Context, repository.TouchParticipantInput) error {
	return nil
}

func (m *memRepository) DeleteParticipant(ctx context.Context, participantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, hasDeadline := ctx.Deadline()
	m.deleteDeadlines = append(m.deleteDeadlines, hasDeadline)
	delete(m.participants, participantID)
	return nil
}

func (m *memRepository) ListParticipantsByRoom(_ context.Context, roomID string) ([]repository.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.Participant
	for _, p := range m.participants {
		if p.RoomID == roomID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memRepository) WatchParticipants(context.Context, string, func()) (repository.Subscription, error) {
	return noopSubscription{}, nil
}

func (m *memRepository) WatchRooms(context.Context, func()) (repository.Subscription, error) {
	return noopSubscription{}, nil
}

func (m *memRepository) participantCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.participants)
}

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}

type stubCompleter struct {
	reply string
	err   error
}

func (s stubCompleter) Complete(context.Context, string) (string, error) {
	return s.reply, s.err
}

type testEnv struct {
	repo    *memRepository
	handler *Handler
	server  *httptest.Server
}

func newTestEnv(t *testing.T, completer stubCompleter) *testEnv {
	t.Helper()
	repo := newMemRepository()
	h := NewHandler(Dependencies{
		Lobby: lobby.NewService(repo, nil),
		Session: session.Dependencies{
			Store:   repo,
			Channel: broadcast.NewHub(),
		},
		Completer: completer,
	}, DefaultConnectionConfig())
	server := httptest.NewServer(h.Routes())
	t.Cleanup(func() {
		_ = h.Shutdown()
		server.Close()
	})
	return &testEnv{repo: repo, handler: h, server: server}
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type receivedEvent struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

func sendCommand(t *testing.T, conn *websocket.Conn, cmdType CommandType, data any) {
	t.Helper()
	cmd := map[string]any{"type": cmdType}
	if data != nil {
		cmd["data"] = data
	}
	if err := conn.WriteJSON(cmd); err != nil {
		t.Fatalf("failed to send command: %v", err)
	}
}

// waitEvent reads until an event of the wanted type arrives and decodes its data into out.
func waitEvent(t *testing.T, conn *websocket.Conn, want EventType, out any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var ev receivedEvent
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("failed waiting for %s event: %v", want, err)
		}
		if ev.Type != want {
			continue
		}
		if out != nil {
			if err := json.Unmarshal(ev.Data, out); err != nil {
				t.Fatalf("failed to decode %s event: %v", want, err)
			}
		}
		return
	}
}

func TestSoloTimerCommands(t *testing.T) {
	env := newTestEnv(t, stubCompleter{reply: "ok"})
	conn := env.dial(t)

	var initial TimerPayload
	waitEvent(t, conn, EventTimer, &initial)
	if initial.Phase != timer.PhaseIdle || initial.Dialogue != timer.Dialogue(timer.PhaseIdle) {
		t.Fatalf("unexpected initial timer: %+v", initial)
	}

	sendCommand(t, conn, CommandSelectDuration, map[string]any{"scope": "solo", "minutes": 15})
	var selected TimerPayload
	waitEvent(t, conn, EventTimer, &selected)
	if selected.SelectedDurationMinutes != 15 {
		t.Fatalf("unexpected selection: %+v", selected)
	}

	sendCommand(t, conn, CommandStart, map[string]any{"scope": "solo"})
	var started TimerPayload
	waitEvent(t, conn, EventTimer, &started)
	if started.Phase != timer.PhaseWork || started.RemainingSeconds != 900 || started.FormattedTime != "15:00" {
		t.Fatalf("unexpected started timer: %+v", started)
	}

	sendCommand(t, conn, CommandEnd, map[string]any{"scope": "solo"})
	var note NotificationPayload
	waitEvent(t, conn, EventTimerNotification, &note)
	if note.Kind != timer.NotificationEnded || note.Title != "Session ended" || note.Scope != ScopeSolo {
		t.Fatalf("unexpected notification: %+v", note)
	}
}

func TestRoomTimerRequiresRoom(t *testing.T) {
	env := newTestEnv(t, stubCompleter{reply: "ok"})
	conn := env.dial(t)

	sendCommand(t, conn, CommandStart, map[string]any{"scope": "room"})
	var errPayload ErrorPayload
	waitEvent(t, conn, EventError, &errPayload)
	if errPayload.Code != codeNotInRoom {
		t.Fatalf("unexpected error: %+v", errPayload)
	}
}

func TestCreateRoomEntersAndChats(t *testing.T) {
	env := newTestEnv(t, stubCompleter{reply: "ok"})
	alice := env.dial(t)

	sendCommand(t, alice, CommandCreateRoom, map[string]any{"name": "Library", "username": "alice"})
	var entered RoomEnteredPayload
	waitEvent(t, alice, EventRoomEntered, &entered)
	if entered.Room.Name != "Library" || entered.Participant.DisplayName != "alice" || len(entered.Roster) != 1 {
		t.Fatalf("unexpected room_entered: %+v", entered)
	}
	if entered.Timer.Scope != ScopeRoom || entered.Timer.Phase != timer.PhaseIdle {
		t.Fatalf("unexpected room timer: %+v", entered.Timer)
	}

	bob := env.dial(t)
	sendCommand(t, bob, CommandEnterRoom, map[string]any{"room_id": entered.Room.ID, "username": "bob"})
	var bobEntered RoomEnteredPayload
	waitEvent(t, bob, EventRoomEntered, &bobEntered)
	if len(bobEntered.Roster) != 2 {
		t.Fatalf("expected two participants, got %+v", bobEntered.Roster)
	}

	sendCommand(t, bob, CommandSendChat, map[string]any{"body": "hi alice"})
	var msg struct {
		SenderName string `json:"username"`
		Body       string `json:"message"`
	}
	waitEvent(t, alice, EventChatMessage, &msg)
	if msg.SenderName != "bob" || msg.Body != "hi alice" {
		t.Fatalf("unexpected chat message: %+v", msg)
	}

	sendCommand(t, bob, CommandLeaveRoom, nil)
	waitEvent(t, bob, EventRoomLeft, nil)
	if got := env.repo.participantCount(); got != 1 {
		t.Fatalf("expected one participant after bob left, got %d", got)
	}
}

func TestLeaveRoomBoundsParticipantDelete(t *testing.T) {
	env := newTestEnv(t, stubCompleter{reply: "ok"})
	conn := env.dial(t)

	sendCommand(t, conn, CommandCreateRoom, map[string]any{"name": "Library", "username": "alice"})
	waitEvent(t, conn, EventRoomEntered, nil)
	sendCommand(t, conn, CommandLeaveRoom, nil)
	waitEvent(t, conn, EventRoomLeft, nil)

	env.repo.mu.Lock()
	defer env.repo.mu.Unlock()
	if len(env.repo.deleteDeadlines) != 1 || !env.repo.deleteDeadlines[0] {
		t.Fatalf("expected one participant delete with a deadline, got %v", env.repo.deleteDeadlines)
	}
}

func TestCreateRoomRequiresInformation(t *testing.T) {
	env := newTestEnv(t, stubCompleter{reply: "ok"})
	conn := env.dial(t)

	sendCommand(t, conn, CommandCreateRoom, map[string]any{"name": "Library", "username": " "})
	var errPayload ErrorPayload
	waitEvent(t, conn, EventError, &errPayload)
	if errPayload.Code != codeMissingInformation || errPayload.Title != "Missing information" {
		t.Fatalf("unexpected error: %+v", errPayload)
	}
}

func TestEnterUnknownRoom(t *testing.T) {
	env := newTestEnv(t, stubCompleter{reply: "ok"})
	conn := env.dial(t)

	sendCommand(t, conn, CommandEnterRoom, map[string]any{"room_id": "missing", "username": "alice"})
	var errPayload ErrorPayload
	waitEvent(t, conn, EventError, &errPayload)
	if errPayload.Code != codeRoomNotFound {
		t.Fatalf("unexpected error: %+v", errPayload)
	}
}

func TestDisconnectLeavesRoom(t *testing.T) {
	env := newTestEnv(t, stubCompleter{reply: "ok"})
	conn := env.dial(t)

	sendCommand(t, conn, CommandCreateRoom, map[string]any{"name": "Library", "username": "alice"})
	waitEvent(t, conn, EventRoomEntered, nil)
	if env.repo.participantCount() != 1 {
		t.Fatal("expected participant row after entering")
	}

	_ = conn.Close()
	deadline := time.Now().Add(3 * time.Second)
	for env.repo.participantCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected participant row to be removed after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestAskAssistant(t *testing.T) {
	env := newTestEnv(t, stubCompleter{reply: "Break it into chunks."})
	conn := env.dial(t)

	sendCommand(t, conn, CommandAskAssistant, map[string]any{"message": "how do I start?"})
	var reply AssistantReplyPayload
	for {
		waitEvent(t, conn, EventAssistantReply, &reply)
		if reply.Reply.Content != "" {
			break
		}
	}
	if reply.Reply.Content != "Break it into chunks." || len(reply.Transcript) != 3 {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

func TestAskAssistantFailure(t *testing.T) {
	env := newTestEnv(t, stubCompleter{err: errors.New("function down")})
	conn := env.dial(t)

	sendCommand(t, conn, CommandAskAssistant, map[string]any{"message": "how do I start?"})
	var errPayload ErrorPayload
	waitEvent(t, conn, EventError, &errPayload)
	if errPayload.Code != codeConnectionIssue || errPayload.Description != messageAssistantIssueDescription {
		t.Fatalf("unexpected error: %+v", errPayload)
	}
}

func TestMalformedCommand(t *testing.T) {
	env := newTestEnv(t, stubCompleter{reply: "ok"})
	conn := env.dial(t)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	var errPayload ErrorPayload
	waitEvent(t, conn, EventError, &errPayload)
	if errPayload.Code != codeInvalidCommand {
		t.Fatalf("unexpected error: %+v", errPayload)
	}
}

func TestListRoomsEndpoint(t *testing.T) {
	env := newTestEnv(t, stubCompleter{reply: "ok"})
	if _, err := env.repo.CreateRoom(context.Background(), repository.CreateRoomInput{Name: "Library"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := http.Get(env.server.URL + "/api/rooms")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	var body RoomsPayload
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(body.Rooms) != 1 || body.Rooms[0].Name != "Library" {
		t.Fatalf("unexpected rooms: %+v", body.Rooms)
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, stubCompleter{reply: "ok"})
	resp, err := http.Get(env.server.URL + "/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestCheckOrigin(t *testing.T) {
	cfg := DefaultConnectionConfig()
	cfg.AllowedOrigins = []string{"https://study.example"}
	h := NewHandler(Dependencies{}, cfg)

	tests := []struct {
		origin string
		want   bool
	}{
		{origin: "", want: true},
		{origin: "https://study.example", want: true},
		{origin: "https://evil.example", want: false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := h.checkOrigin(r); got != tt.want {
			t.Fatalf("origin %q: expected %v, got %v", tt.origin, tt.want, got)
		}
	}
}
