package services

import (
	"time"

	"github.com/patrickmn/go-cache"

	apperrors "finsight/internal/errors"
	"finsight/internal/models"
)

// chatSessionStore keeps sessions in memory. A session idle for longer than
// the TTL is dropped and any outstanding request on it is cancelled.
type chatSessionStore struct {
	sessions *cache.Cache
}

// NewChatSessionStore creates a new ChatSessionStorer. A non-positive ttl
// keeps sessions until they are deleted.
func NewChatSessionStore(ttl time.Duration) ChatSessionStorer {
	var c *cache.Cache
	if ttl > 0 {
		c = cache.New(ttl, ttl/2)
	} else {
		c = cache.New(cache.NoExpiration, 0)
	}
	c.OnEvicted(func(_ string, v interface{}) {
		if session, ok := v.(*models.ChatSession); ok {
			session.RequestCancel()
		}
	})
	return &chatSessionStore{sessions: c}
}

// Create starts a new session for userID.
func (s *chatSessionStore) Create(userID string) *models.ChatSession {
	session := models.NewChatSession(userID)
	s.sessions.Set(session.ID, session, cache.DefaultExpiration)
	return session
}

// Get returns the session if it exists and belongs to userID, extending its
// lifetime.
func (s *chatSessionStore) Get(userID, sessionID string) (*models.ChatSession, error) {
	v, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, apperrors.ErrChatSessionNotFound
	}
	session, ok := v.(*models.ChatSession)
	if !ok || session.UserID != userID {
		return nil, apperrors.ErrChatSessionNotFound
	}
	s.Touch(session)
	return session, nil
}

// Touch resets the idle timer of session.
func (s *chatSessionStore) Touch(session *models.ChatSession) {
	s.sessions.Set(session.ID, session, cache.DefaultExpiration)
}

// Delete removes the session, cancelling any outstanding request.
func (s *chatSessionStore) Delete(userID, sessionID string) error {
	if _, err := s.Get(userID, sessionID); err != nil {
		return err
	}
	s.sessions.Delete(sessionID)
	return nil
}
