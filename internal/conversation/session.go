// Package conversation drives a user turn through repeated model rounds
// and sequential tool execution until the model answers in plain text.
package conversation

import (
	"sync"

	"github.com/strikeview/strikeview/internal/models"
)

// SessionStatus is the explicit per-session state value. Transitions are
// plain assignments under the session lock.
type SessionStatus string

const (
	// StatusIdle: no turn in flight, ready for input.
	StatusIdle SessionStatus = "idle"
	// StatusLoading: the durable transcript is being loaded in.
	StatusLoading SessionStatus = "loading"
	// StatusActive: a turn is in flight.
	StatusActive SessionStatus = "active"
)

// Session holds one conversation's volatile state: the model-facing tool
// history and the visible display transcript. History excludes the system
// prompt, which the loop prepends per round.
type Session struct {
	ID string

	mu      sync.Mutex
	status  SessionStatus
	history []models.Turn
	display []models.DisplayMessage
}

func NewSession(id string) *Session {
	return &Session{ID: id, status: StatusIdle}
}

func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) setStatus(st SessionStatus) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

// Messages returns a snapshot of the visible transcript.
func (s *Session) Messages() []models.DisplayMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.DisplayMessage(nil), s.display...)
}

// History returns a snapshot of the model-facing tool history.
func (s *Session) History() []models.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Turn(nil), s.history...)
}

// ReplaceDisplay swaps the visible transcript wholesale. Used on session
// load so a prior session's messages never leak through.
func (s *Session) ReplaceDisplay(msgs []models.DisplayMessage) {
	s.mu.Lock()
	s.display = append([]models.DisplayMessage(nil), msgs...)
	s.mu.Unlock()
}

// ResetHistory discards the per-session tool history.
func (s *Session) ResetHistory() {
	s.mu.Lock()
	s.history = nil
	s.mu.Unlock()
}

func (s *Session) appendDisplay(msg models.DisplayMessage) {
	s.mu.Lock()
	s.display = append(s.display, msg)
	s.mu.Unlock()
}

// truncateDisplay rolls the visible transcript back to n messages.
func (s *Session) truncateDisplay(n int) {
	s.mu.Lock()
	if n >= 0 && n <= len(s.display) {
		s.display = s.display[:n]
	}
	s.mu.Unlock()
}

func (s *Session) displayLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.display)
}

// appendAssistantContent merges content into the open assistant bubble,
// or opens a new one, so the UI shows one growing message per turn. It
// returns the bubble's index.
func (s *Session) appendAssistantContent(content string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.display); n > 0 {
		last := &s.display[n-1]
		if last.Role == models.RoleAssistant && last.Loading {
			last.Content += content
			return n - 1
		}
	}
	s.display = append(s.display, models.DisplayMessage{
		ID:      newMessageID(),
		Role:    models.RoleAssistant,
		Content: content,
		Loading: true,
	})
	return len(s.display) - 1
}

// closeAssistantBubble marks the bubble terminal and returns its full
// accumulated content.
func (s *Session) closeAssistantBubble(idx int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx < 0 || idx >= len(s.display) {
		return ""
	}
	s.display[idx].Loading = false
	return s.display[idx].Content
}

func (s *Session) setHistory(turns []models.Turn) {
	s.mu.Lock()
	s.history = turns
	s.mu.Unlock()
}
