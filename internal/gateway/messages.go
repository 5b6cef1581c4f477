package gateway

import (
	"errors"

	"github.com/kavya5cloud/studyroom/internal/assistant"
	"github.com/kavya5cloud/studyroom/internal/chat"
	"github.com/kavya5cloud/studyroom/internal/lobby"
	"github.com/kavya5cloud/studyroom/internal/repository"
	"github.com/kavya5cloud/studyroom/internal/session"
)

const (
	codeInvalidCommand      = "invalid_command"
	codeMissingInformation  = "missing_information"
	codeDisplayNameRequired = "display_name_required"
	codeEmptyMessage        = "empty_message"
	codeBusy                = "busy"
	codeNotInRoom           = "not_in_room"
	codeAlreadyInRoom       = "already_in_room"
	codeRoomNotFound        = "room_not_found"
	codeConnectionIssue     = "connection_issue"
)

const (
	messageInvalidCommandTitle       = "Unknown request"
	messageInvalidCommandDescription = "That request could not be understood."

	messageMissingInformationTitle       = "Missing information"
	messageMissingInformationDescription = "Please enter both room name and your name."

	messageDisplayNameRequiredTitle       = "Missing information"
	messageDisplayNameRequiredDescription = "Please enter your name to join the room."

	messageEmptyMessageTitle       = "Empty message"
	messageEmptyMessageDescription = "Type something before sending."

	messageBusyTitle       = "Please wait"
	messageBusyDescription = "Still thinking about your last question."

	messageNotInRoomTitle       = "Not in a room"
	messageNotInRoomDescription = "Join a room first."

	messageAlreadyInRoomTitle       = "Already in a room"
	messageAlreadyInRoomDescription = "Leave the current room before joining another."

	messageRoomNotFoundTitle       = "Room not found"
	messageRoomNotFoundDescription = "This room no longer exists."

	messageConnectionIssueTitle = "Connection issue"
	messageRoomIssueDescription = "Something went wrong. Please try again."

	messageAssistantIssueDescription = "I'm having trouble responding. Please try again."
)

func invalidCommandError() ErrorPayload {
	return ErrorPayload{Code: codeInvalidCommand, Title: messageInvalidCommandTitle, Description: messageInvalidCommandDescription}
}

// errorPayloadFor maps a domain error to what the user sees. Anything unrecognized is reported
// as a connection issue.
func errorPayloadFor(err error) ErrorPayload {
	switch {
	case errors.Is(err, lobby.ErrMissingInformation):
		return ErrorPayload{Code: codeMissingInformation, Title: messageMissingInformationTitle, Description: messageMissingInformationDescription}
	case errors.Is(err, session.ErrDisplayNameRequired), errors.Is(err, session.ErrRoomRequired):
		return ErrorPayload{Code: codeDisplayNameRequired, Title: messageDisplayNameRequiredTitle, Description: messageDisplayNameRequiredDescription}
	case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, assistant.ErrEmptyMessage):
		return ErrorPayload{Code: codeEmptyMessage, Title: messageEmptyMessageTitle, Description: messageEmptyMessageDescription}
	case errors.Is(err, assistant.ErrBusy):
		return ErrorPayload{Code: codeBusy, Title: messageBusyTitle, Description: messageBusyDescription}
	case errors.Is(err, session.ErrNotEntered):
		return ErrorPayload{Code: codeNotInRoom, Title: messageNotInRoomTitle, Description: messageNotInRoomDescription}
	case errors.Is(err, session.ErrAlreadyEntered):
		return ErrorPayload{Code: codeAlreadyInRoom, Title: messageAlreadyInRoomTitle, Description: messageAlreadyInRoomDescription}
	case errors.Is(err, repository.ErrNotFound):
		return ErrorPayload{Code: codeRoomNotFound, Title: messageRoomNotFoundTitle, Description: messageRoomNotFoundDescription}
	default:
		return ErrorPayload{Code: codeConnectionIssue, Title: messageConnectionIssueTitle, Description: messageRoomIssueDescription}
	}
}

func assistantErrorPayload(err error) ErrorPayload {
	switch {
	case errors.Is(err, assistant.ErrEmptyMessage), errors.Is(err, assistant.ErrBusy):
		return errorPayloadFor(err)
	default:
		return ErrorPayload{Code: codeConnectionIssue, Title: messageConnectionIssueTitle, Description: messageAssistantIssueDescription}
	}
}
