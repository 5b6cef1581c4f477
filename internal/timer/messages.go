package timer

const (
	dialogueIdle      = "What's the plan for today?"
	dialogueWork      = "Stay focused! You're doing great!"
	dialogueBreak     = "Take it easy for a bit. You've earned it!"
	dialogueCompleted = "I didn't expect you would do this! Good job!"
)

// Dialogue is the companion line shown next to the timer for a phase.
func Dialogue(phase Phase) string {
	switch phase {
	case PhaseIdle:
		return dialogueIdle
	case PhaseWork:
		return dialogueWork
	case PhaseBreak:
		return dialogueBreak
	default:
		return dialogueCompleted
	}
}

// Title and Description give the user-facing feedback for a notification.
func (n Notification) Title() string {
	switch n.Kind {
	case NotificationBreakStarted:
		return "Break time!"
	case NotificationSessionComplete:
		return "Session complete!"
	case NotificationEnded:
		return "Session ended"
	default:
		return ""
	}
}

func (n Notification) Description() string {
	switch n.Kind {
	case NotificationBreakStarted:
		return "Great work! Take a 5-minute break."
	case NotificationSessionComplete:
		return dialogueCompleted
	case NotificationEnded:
		return "Your session has been reset."
	default:
		return ""
	}
}
