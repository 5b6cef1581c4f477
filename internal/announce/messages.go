package announce

import "fmt"

const (
	messageCompletionTitleFormat       = ":tada: **%s finished a focus session**"
	messageCompletionDescriptionFormat = "%d minutes of focus in **%s**, break included."
	messageCompletionNoRoomFormat      = "%d minutes of focus, break included."
	messageCompletionFooterFormat      = "Sessions completed this visit: %d"
)

func completionTitle(displayName string) string {
	return fmt.Sprintf(messageCompletionTitleFormat, displayName)
}

func completionDescription(minutes int, roomName string) string {
	if roomName == "" {
		return fmt.Sprintf(messageCompletionNoRoomFormat, minutes)
	}
	return fmt.Sprintf(messageCompletionDescriptionFormat, minutes, roomName)
}

func completionFooter(completed int) string {
	return fmt.Sprintf(messageCompletionFooterFormat, completed)
}
