package symptom

import (
	"context"
	"errors"
	"sync"
)

var ErrSessionNotFound = errors.New("triage session not found")

// SessionStore keeps at most one open triage session per user.
type SessionStore interface {
	Get(ctx context.Context, userID int64) (*Session, error)
	Put(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, userID int64) error
}

type memoryStore struct {
	mu       sync.Mutex
	sessions map[int64]Session
}

func NewMemoryStore() SessionStore {
	return &memoryStore{sessions: make(map[int64]Session)}
}

func (m *memoryStore) Get(_ context.Context, userID int64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return cloneSession(s), nil
}

func (m *memoryStore) Put(_ context.Context, sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.UserID] = *cloneSession(*sess)
	return nil
}

func (m *memoryStore) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

func cloneSession(s Session) *Session {
	answers := make([]Answer, len(s.Answers))
	copy(answers, s.Answers)
	s.Answers = answers
	return &s
}
