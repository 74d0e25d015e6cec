package models

import (
	"context"
	"sync"
	"time"

	"finsight/internal/uuid"
)

// Sender identifies who wrote a chat message.
type Sender string

const (
	SenderUser      Sender = "USER"
	SenderAssistant Sender = "ASSISTANT"
)

// ChatState is the request state of a chat session.
type ChatState string

const (
	ChatStateIdle      ChatState = "IDLE"
	ChatStateSending   ChatState = "SENDING"
	ChatStateCancelled ChatState = "CANCELLED"
)

// ChatMessage is one transcript entry.
type ChatMessage struct {
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatSession holds one conversation. The transcript only grows by Append and
// keeps insertion order; Clear is the only way to shorten it. At most one
// request may be in flight, tracked by the session state.
type ChatSession struct {
	ID        string
	UserID    string
	CreatedAt time.Time

	mu          sync.RWMutex
	lastUpdated time.Time
	transcript  []ChatMessage
	state       ChatState
	cancel      context.CancelFunc
}

// ChatSessionView is the JSON shape of a session.
type ChatSessionView struct {
	ID          string        `json:"id"`
	CreatedAt   time.Time     `json:"created_at"`
	LastUpdated time.Time     `json:"last_updated"`
	State       ChatState     `json:"state"`
	Messages    []ChatMessage `json:"messages"`
}

// NewChatSession starts an empty idle session for userID.
func NewChatSession(userID string) *ChatSession {
	now := time.Now()
	return &ChatSession{
		ID:          uuid.New(),
		UserID:      userID,
		CreatedAt:   now,
		lastUpdated: now,
		transcript:  []ChatMessage{},
		state:       ChatStateIdle,
	}
}

// Append adds a message to the end of the transcript and refreshes
// LastUpdated.
func (s *ChatSession) Append(sender Sender, content string) ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := ChatMessage{Sender: sender, Content: content, Timestamp: time.Now()}
	s.transcript = append(s.transcript, msg)
	s.lastUpdated = msg.Timestamp
	return msg
}

// Transcript returns a copy of the messages in append order.
func (s *ChatSession) Transcript() []ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ChatMessage, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Len returns the number of transcript messages.
func (s *ChatSession) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.transcript)
}

// LastUpdated returns the time of the last append or clear.
func (s *ChatSession) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}

// State returns the current request state.
func (s *ChatSession) State() ChatState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Clear empties the transcript. ID and CreatedAt are untouched.
func (s *ChatSession) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transcript = []ChatMessage{}
	s.lastUpdated = time.Now()
}

// TryClear clears the transcript unless a request is outstanding, in which
// case it returns false and leaves the session untouched.
func (s *ChatSession) TryClear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != ChatStateIdle {
		return false
	}
	s.transcript = []ChatMessage{}
	s.lastUpdated = time.Now()
	return true
}

// TryBegin moves an idle session to SENDING and remembers cancel as the
// way to abandon the request. It returns false if a request is already
// outstanding.
func (s *ChatSession) TryBegin(cancel context.CancelFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != ChatStateIdle {
		return false
	}
	s.state = ChatStateSending
	s.cancel = cancel
	return true
}

// RequestCancel signals the outstanding request, moving SENDING to
// CANCELLED. It returns false, doing nothing, when no request is in flight
// or it was already cancelled.
func (s *ChatSession) RequestCancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != ChatStateSending || s.cancel == nil {
		return false
	}
	s.state = ChatStateCancelled
	s.cancel()
	return true
}

// Finish returns the session to IDLE once the outstanding request has
// produced its transcript entry.
func (s *ChatSession) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = nil
	s.state = ChatStateIdle
}

// View snapshots the session for rendering.
func (s *ChatSession) View() ChatSessionView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := make([]ChatMessage, len(s.transcript))
	copy(msgs, s.transcript)
	return ChatSessionView{
		ID:          s.ID,
		CreatedAt:   s.CreatedAt,
		LastUpdated: s.lastUpdated,
		State:       s.state,
		Messages:    msgs,
	}
}
