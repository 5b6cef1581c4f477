// Package assistant holds the study companion chat: a transcript and at most one request in
// flight to the completion backend.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

const Greeting = "Greetings. I'm here to support your studies. What can I help you with today?"

var (
	ErrEmptyMessage = errors.New("assistant message is empty")
	ErrBusy         = errors.New("assistant request already in flight")
	ErrEmptyReply   = errors.New("assistant returned an empty reply")
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Completer answers one user message. Backends report their own application errors as Go errors.
type Completer interface {
	Complete(ctx context.Context, message string) (string, error)
}

type Session struct {
	completer Completer

	mu         sync.Mutex
	transcript []Turn
	inFlight   bool
}

func NewSession(completer Completer) *Session {
	return &Session{
		completer:  completer,
		transcript: []Turn{{Role: RoleAssistant, Content: Greeting}},
	}
}

// Send appends the trimmed message, asks the backend and appends its reply. On failure the
// user turn is taken back out so the transcript looks as if nothing was sent.
func (s *Session) Send(ctx context.Context, text string) (Turn, error) {
	message := strings.TrimSpace(text)
	if message == "" {
		return Turn{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return Turn{}, ErrBusy
	}
	s.inFlight = true
	s.transcript = append(s.transcript, Turn{Role: RoleUser, Content: message})
	userIndex := len(s.transcript) - 1
	s.mu.Unlock()

	reply, err := s.completer.Complete(ctx, message)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = ErrEmptyReply
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	if err != nil {
		s.transcript = append(s.transcript[:userIndex], s.transcript[userIndex+1:]...)
		return Turn{}, fmt.Errorf("ask assistant: %w", err)
	}
	turn := Turn{Role: RoleAssistant, Content: reply}
	s.transcript = append(s.transcript, turn)
	return turn, nil
}

func (s *Session) Transcript() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.transcript))
	copy(out, s.transcript)
	return out
}

func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}
