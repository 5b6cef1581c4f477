// Package timer implements the focus/break countdown used by both the solo timer and the
// room-scoped timer.
package timer

import "fmt"

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseWork      Phase = "work"
	PhaseBreak     Phase = "break"
	PhaseCompleted Phase = "completed"
)

// BreakSeconds is the fixed length of the break that follows every work period.
const BreakSeconds = 5 * 60

// Durations lists the work lengths, in minutes, a session may be started with.
var Durations = []int{15, 30, 45, 60}

type NotificationKind string

const (
	NotificationBreakStarted    NotificationKind = "break_started"
	NotificationSessionComplete NotificationKind = "session_complete"
	NotificationEnded           NotificationKind = "ended"
)

type Notification struct {
	Kind           NotificationKind `json:"kind"`
	Phase          Phase            `json:"phase"`
	CompletedCount int              `json:"completed_count"`
}

// Observer receives notifications synchronously from inside the engine's transition.
type Observer func(Notification)

type Snapshot struct {
	Phase                   Phase `json:"phase"`
	RemainingSeconds        int   `json:"remaining_seconds"`
	SelectedDurationMinutes int   `json:"selected_duration_minutes"`
	CompletedCount          int   `json:"completed_count"`
}

// Engine is not safe for concurrent use; Runner serializes access to it.
type Engine struct {
	phase           Phase
	remaining       int
	selectedMinutes int
	completed       int
	observer        Observer
}

func NewEngine(observer Observer) *Engine {
	return &Engine{phase: PhaseIdle, observer: observer}
}

func IsValidDuration(minutes int) bool {
	for _, d := range Durations {
		if d == minutes {
			return true
		}
	}
	return false
}

// SelectDuration reports whether the selection was applied.
func (e *Engine) SelectDuration(minutes int) bool {
	if e.phase != PhaseIdle || !IsValidDuration(minutes) {
		return false
	}
	e.selectedMinutes = minutes
	return true
}

func (e *Engine) Start() bool {
	if e.phase != PhaseIdle || e.selectedMinutes == 0 {
		return false
	}
	e.phase = PhaseWork
	e.remaining = e.selectedMinutes * 60
	return true
}

func (e *Engine) Tick() {
	if !e.Running() {
		return
	}
	if e.remaining > 1 {
		e.remaining--
		return
	}
	switch e.phase {
	case PhaseWork:
		e.phase = PhaseBreak
		e.remaining = BreakSeconds
		e.emit(NotificationBreakStarted)
	case PhaseBreak:
		e.phase = PhaseCompleted
		e.remaining = 0
		e.completed++
		e.emit(NotificationSessionComplete)
	}
}

func (e *Engine) End() bool {
	if !e.Running() {
		return false
	}
	e.phase = PhaseIdle
	e.remaining = 0
	e.selectedMinutes = 0
	e.emit(NotificationEnded)
	return true
}

func (e *Engine) AcknowledgeCompletion() bool {
	if e.phase != PhaseCompleted {
		return false
	}
	e.phase = PhaseIdle
	return true
}

func (e *Engine) Running() bool {
	return e.phase == PhaseWork || e.phase == PhaseBreak
}

func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Phase:                   e.phase,
		RemainingSeconds:        e.remaining,
		SelectedDurationMinutes: e.selectedMinutes,
		CompletedCount:          e.completed,
	}
}

func (e *Engine) emit(kind NotificationKind) {
	if e.observer == nil {
		return
	}
	e.observer(Notification{Kind: kind, Phase: e.phase, CompletedCount: e.completed})
}

// FormatTime renders whole seconds as MM:SS.
func FormatTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
