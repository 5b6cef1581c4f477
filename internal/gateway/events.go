package gateway

import (
	"encoding/json"
	"time"

	"github.com/kavya5cloud/studyroom/internal/assistant"
	"github.com/kavya5cloud/studyroom/internal/chat"
	"github.com/kavya5cloud/studyroom/internal/repository"
	"github.com/kavya5cloud/studyroom/internal/timer"
)

type CommandType string

const (
	CommandSelectDuration CommandType = "select_duration"
	CommandStart          CommandType = "start"
	CommandEnd            CommandType = "end"
	CommandAcknowledge    CommandType = "acknowledge"
	CommandListRooms      CommandType = "list_rooms"
	CommandCreateRoom     CommandType = "create_room"
	CommandEnterRoom      CommandType = "enter_room"
	CommandLeaveRoom      CommandType = "leave_room"
	CommandSendChat       CommandType = "send_chat"
	CommandAskAssistant   CommandType = "ask_assistant"
)

type EventType string

const (
	EventTimer             EventType = "timer"
	EventTimerNotification EventType = "timer_notification"
	EventRoster            EventType = "roster"
	EventChatMessage       EventType = "chat_message"
	EventRooms             EventType = "rooms"
	EventRoomEntered       EventType = "room_entered"
	EventRoomLeft          EventType = "room_left"
	EventAssistantReply    EventType = "assistant_reply"
	EventError             EventType = "error"
)

// Scope picks which timer a timer command addresses.
type Scope string

const (
	ScopeSolo Scope = "solo"
	ScopeRoom Scope = "room"
)

// Command is what the browser sends.
type Command struct {
	Type CommandType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Event is what the browser receives.
type Event struct {
	Type      EventType `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

type timerCommandData struct {
	Scope   Scope `json:"scope"`
	Minutes int   `json:"minutes,omitempty"`
}

type createRoomData struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

type enterRoomData struct {
	RoomID   string `json:"room_id"`
	Username string `json:"username"`
}

type sendChatData struct {
	Body string `json:"body"`
}

type askAssistantData struct {
	Message string `json:"message"`
}

type TimerPayload struct {
	Scope Scope `json:"scope"`
	timer.Snapshot
	FormattedTime string `json:"formatted_time"`
	Dialogue      string `json:"dialogue"`
}

func newTimerPayload(scope Scope, snap timer.Snapshot) TimerPayload {
	return TimerPayload{
		Scope:         scope,
		Snapshot:      snap,
		FormattedTime: timer.FormatTime(snap.RemainingSeconds),
		Dialogue:      timer.Dialogue(snap.Phase),
	}
}

type NotificationPayload struct {
	Scope Scope `json:"scope"`
	timer.Notification
	Title       string `json:"title"`
	Description string `json:"description"`
}

func newNotificationPayload(scope Scope, n timer.Notification) NotificationPayload {
	return NotificationPayload{
		Scope:        scope,
		Notification: n,
		Title:        n.Title(),
		Description:  n.Description(),
	}
}

type RosterPayload struct {
	Participants []repository.Participant `json:"participants"`
}

type RoomEnteredPayload struct {
	Room        repository.Room          `json:"room"`
	Participant repository.Participant   `json:"participant"`
	Roster      []repository.Participant `json:"roster"`
	Messages    []chat.Message           `json:"messages"`
	Timer       TimerPayload             `json:"timer"`
}

type RoomsPayload struct {
	Rooms []repository.Room `json:"rooms"`
}

type AssistantReplyPayload struct {
	Reply      assistant.Turn   `json:"reply"`
	Transcript []assistant.Turn `json:"transcript"`
}

type ErrorPayload struct {
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description"`
}
