package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kavya5cloud/studyroom/internal/assistant"
	"github.com/kavya5cloud/studyroom/internal/chat"
	"github.com/kavya5cloud/studyroom/internal/repository"
	"github.com/kavya5cloud/studyroom/internal/session"
	"github.com/kavya5cloud/studyroom/internal/timer"
)

const leaveTimeout = 10 * time.Second

var errUnknownScope = errors.New("unknown timer scope")

// Client is one browser connection. It owns the solo timer, the room coordinator and the
// assistant session for that browser.
type Client struct {
	id      string
	handler *Handler
	conn    *websocket.Conn

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc
	tasks  sync.WaitGroup

	solo      *timer.Runner
	room      *session.Coordinator
	assistant *assistant.Session
	roomsSub  repository.Subscription
}

func newClient(h *Handler, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		id:      uuid.NewString(),
		handler: h,
		conn:    conn,
		send:    make(chan []byte, h.config.SendBufferSize),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
	c.solo = timer.NewRunner(h.deps.Clock, timer.Hooks{
		OnTick: func(snap timer.Snapshot) {
			c.emit(EventTimer, newTimerPayload(ScopeSolo, snap))
		},
		OnNotification: func(n timer.Notification) {
			c.emit(EventTimerNotification, newNotificationPayload(ScopeSolo, n))
		},
	})
	c.room = session.NewCoordinator(h.deps.Session, roomListener{c})
	c.assistant = assistant.NewSession(h.deps.Completer)
	return c
}

// run serves the connection until it closes, then releases everything the client holds.
func (c *Client) run() {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump()
	}()

	c.sendInitialState()
	c.readPump()

	c.teardown()
	<-writerDone
}

func (c *Client) disconnect() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *Client) teardown() {
	c.cancel()
	c.tasks.Wait()
	if c.roomsSub != nil {
		c.roomsSub.Unsubscribe()
	}
	ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
	defer cancel()
	c.room.Leave(ctx)
	c.solo.Close()
	c.disconnect()
}

func (c *Client) sendInitialState() {
	c.emit(EventTimer, newTimerPayload(ScopeSolo, c.solo.Snapshot()))
	c.emit(EventAssistantReply, AssistantReplyPayload{Transcript: c.assistant.Transcript()})

	sub, err := c.handler.deps.Lobby.WatchRooms(c.ctx, func(rooms []repository.Room) {
		c.emit(EventRooms, RoomsPayload{Rooms: rooms})
	})
	if err != nil {
		slog.Warn("failed to watch rooms", "connection_id", c.id, "error", err)
	} else {
		c.roomsSub = sub
	}
	c.handleListRooms()
}

func (c *Client) readPump() {
	cfg := c.handler.config
	c.conn.SetReadLimit(cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				slog.Warn("unexpected websocket close", "connection_id", c.id, "error", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		c.handleMessage(message)
	}
}

func (c *Client) writePump() {
	cfg := c.handler.config
	ticker := time.NewTicker(cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Warn("failed to write websocket message", "connection_id", c.id, "error", err)
				c.disconnect()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.disconnect()
				return
			}
		}
	}
}

// emit queues an event for the browser. A client too slow to drain its buffer loses events.
func (c *Client) emit(eventType EventType, data any) {
	b, err := json.Marshal(Event{Type: eventType, Data: data, Timestamp: c.handler.deps.Clock.Now().UTC()})
	if err != nil {
		slog.Error("failed to encode event", "connection_id", c.id, "type", eventType, "error", err)
		return
	}
	select {
	case <-c.done:
	case c.send <- b:
	default:
		slog.Warn("send buffer full, dropping event", "connection_id", c.id, "type", eventType)
	}
}

func (c *Client) emitError(payload ErrorPayload) {
	c.emit(EventError, payload)
}

func (c *Client) handleMessage(message []byte) {
	var cmd Command
	if err := json.Unmarshal(message, &cmd); err != nil {
		slog.Debug("malformed command", "connection_id", c.id, "error", err)
		c.emitError(invalidCommandError())
		return
	}
	slog.Debug("command received", "connection_id", c.id, "type", cmd.Type)

	switch cmd.Type {
	case CommandSelectDuration, CommandStart, CommandEnd, CommandAcknowledge:
		c.handleTimer(cmd)
	case CommandListRooms:
		c.handleListRooms()
	case CommandCreateRoom:
		c.handleCreateRoom(cmd.Data)
	case CommandEnterRoom:
		c.handleEnterRoom(cmd.Data)
	case CommandLeaveRoom:
		c.handleLeaveRoom()
	case CommandSendChat:
		c.handleSendChat(cmd.Data)
	case CommandAskAssistant:
		c.handleAskAssistant(cmd.Data)
	default:
		c.emitError(invalidCommandError())
	}
}

func decodeData[T any](raw json.RawMessage) (T, bool) {
	var v T
	if len(raw) == 0 {
		return v, true
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false
	}
	return v, true
}

func (c *Client) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.ctx, c.handler.deps.RequestTimeout)
}

func (c *Client) handleTimer(cmd Command) {
	data, ok := decodeData[timerCommandData](cmd.Data)
	if !ok {
		c.emitError(invalidCommandError())
		return
	}
	scope := data.Scope
	if scope == "" {
		scope = ScopeSolo
	}
	snap, err := c.applyTimer(scope, cmd.Type, data.Minutes)
	if err != nil {
		if errors.Is(err, errUnknownScope) {
			c.emitError(invalidCommandError())
			return
		}
		c.emitError(errorPayloadFor(err))
		return
	}
	c.emit(EventTimer, newTimerPayload(scope, snap))
}

func (c *Client) applyTimer(scope Scope, command CommandType, minutes int) (timer.Snapshot, error) {
	switch scope {
	case ScopeSolo:
		switch command {
		case CommandSelectDuration:
			return c.solo.SelectDuration(minutes), nil
		case CommandStart:
			return c.solo.Start(), nil
		case CommandEnd:
			return c.solo.End(), nil
		default:
			return c.solo.AcknowledgeCompletion(), nil
		}
	case ScopeRoom:
		switch command {
		case CommandSelectDuration:
			return c.room.SelectDuration(minutes)
		case CommandStart:
			return c.room.StartTimer()
		case CommandEnd:
			return c.room.EndTimer()
		default:
			return c.room.AcknowledgeCompletion()
		}
	default:
		return timer.Snapshot{}, errUnknownScope
	}
}

func (c *Client) handleListRooms() {
	ctx, cancel := c.requestContext()
	defer cancel()
	rooms, err := c.handler.deps.Lobby.ListRooms(ctx)
	if err != nil {
		slog.Warn("failed to list rooms", "connection_id", c.id, "error", err)
		c.emitError(errorPayloadFor(err))
		return
	}
	c.emit(EventRooms, RoomsPayload{Rooms: rooms})
}

func (c *Client) handleCreateRoom(raw json.RawMessage) {
	data, ok := decodeData[createRoomData](raw)
	if !ok {
		c.emitError(invalidCommandError())
		return
	}
	if c.room.RoomID() != "" {
		c.emitError(errorPayloadFor(session.ErrAlreadyEntered))
		return
	}
	ctx, cancel := c.requestContext()
	defer cancel()
	room, err := c.handler.deps.Lobby.CreateRoom(ctx, data.Name, data.Username)
	if err != nil {
		slog.Warn("failed to create room", "connection_id", c.id, "error", err)
		c.emitError(errorPayloadFor(err))
		return
	}
	slog.Info("room created", "room_id", room.ID, "connection_id", c.id)
	c.enterRoom(ctx, room, data.Username)
}

func (c *Client) handleEnterRoom(raw json.RawMessage) {
	data, ok := decodeData[enterRoomData](raw)
	if !ok {
		c.emitError(invalidCommandError())
		return
	}
	ctx, cancel := c.requestContext()
	defer cancel()
	room, err := c.handler.deps.Lobby.GetRoom(ctx, data.RoomID)
	if err != nil {
		slog.Warn("failed to load room", "connection_id", c.id, "room_id", data.RoomID, "error", err)
		c.emitError(errorPayloadFor(err))
		return
	}
	c.enterRoom(ctx, room, data.Username)
}

func (c *Client) enterRoom(ctx context.Context, room *repository.Room, username string) {
	entered, err := c.room.Enter(ctx, room.ID, username)
	if err != nil {
		slog.Warn("failed to enter room", "connection_id", c.id, "room_id", room.ID, "error", err)
		c.emitError(errorPayloadFor(err))
		return
	}
	c.emit(EventRoomEntered, RoomEnteredPayload{
		Room:        *room,
		Participant: entered.Participant,
		Roster:      entered.Roster,
		Messages:    entered.Messages,
		Timer:       newTimerPayload(ScopeRoom, entered.Timer),
	})
}

func (c *Client) handleLeaveRoom() {
	roomID := c.room.RoomID()
	if roomID == "" {
		c.emitError(errorPayloadFor(session.ErrNotEntered))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
	defer cancel()
	c.room.Leave(ctx)
	c.emit(EventRoomLeft, map[string]string{"room_id": roomID})
}

func (c *Client) handleSendChat(raw json.RawMessage) {
	data, ok := decodeData[sendChatData](raw)
	if !ok {
		c.emitError(invalidCommandError())
		return
	}
	ctx, cancel := c.requestContext()
	defer cancel()
	msg, err := c.room.SendChat(ctx, data.Body)
	if err != nil {
		if !errors.Is(err, chat.ErrEmptyMessage) {
			slog.Warn("failed to send chat message", "connection_id", c.id, "error", err)
		}
		c.emitError(errorPayloadFor(err))
		return
	}
	c.emit(EventChatMessage, msg)
}

// handleAskAssistant answers in the background so timer and chat commands keep flowing while the
// backend thinks.
func (c *Client) handleAskAssistant(raw json.RawMessage) {
	data, ok := decodeData[askAssistantData](raw)
	if !ok {
		c.emitError(invalidCommandError())
		return
	}
	c.tasks.Add(1)
	go func() {
		defer c.tasks.Done()
		reply, err := c.assistant.Send(c.ctx, data.Message)
		if err != nil {
			if !errors.Is(err, assistant.ErrEmptyMessage) && !errors.Is(err, assistant.ErrBusy) {
				slog.Warn("assistant request failed", "connection_id", c.id, "error", err)
			}
			c.emitError(assistantErrorPayload(err))
			return
		}
		c.emit(EventAssistantReply, AssistantReplyPayload{Reply: reply, Transcript: c.assistant.Transcript()})
	}()
}

type roomListener struct {
	c *Client
}

func (l roomListener) RosterChanged(roster []repository.Participant) {
	l.c.emit(EventRoster, RosterPayload{Participants: roster})
}

func (l roomListener) MessageReceived(msg chat.Message) {
	l.c.emit(EventChatMessage, msg)
}

func (l roomListener) TimerTicked(snap timer.Snapshot) {
	l.c.emit(EventTimer, newTimerPayload(ScopeRoom, snap))
}

func (l roomListener) TimerNotified(n timer.Notification) {
	l.c.emit(EventTimerNotification, newNotificationPayload(ScopeRoom, n))
}
