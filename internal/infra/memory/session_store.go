package memory

import (
	"context"
	"sync"

	"quizroom/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// Sessions live for the lifetime of the process.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Add(_ context.Context, session *app.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.sessions[session.Code()]; taken {
		return false
	}
	s.sessions[session.Code()] = session
	return true
}

func (s *SessionStore) Get(_ context.Context, code string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[code]
	return session, ok
}

// Len reports how many quizzes are registered.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
