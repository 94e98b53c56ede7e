package memory

import (
	"context"
	"sync"
	"time"

	"quiz-session-service/internal/domain"

	"github.com/google/uuid"
)

// SessionRegistry is an in-memory implementation of app.SessionRegistry.
type SessionRegistry struct {
	mu     sync.RWMutex
	byName map[string]domain.QuizSession
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		byName: make(map[string]domain.QuizSession),
	}
}

func (r *SessionRegistry) Create(_ context.Context, session domain.QuizSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[session.Name]; ok {
		return domain.ErrSessionNameTaken
	}
	r.byName[session.Name] = session
	return nil
}

func (r *SessionRegistry) GetByName(_ context.Context, name string) (domain.QuizSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.byName[name]
	if !ok {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (r *SessionRegistry) GetByID(_ context.Context, id uuid.UUID) (domain.QuizSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, session := range r.byName {
		if session.ID == id {
			return session, nil
		}
	}
	return domain.QuizSession{}, domain.ErrSessionNotFound
}

func (r *SessionRegistry) ListOpen(_ context.Context, now time.Time) ([]domain.QuizSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	open := make([]domain.QuizSession, 0, len(r.byName))
	for _, session := range r.byName {
		if session.WindowState(now) == domain.WindowOpen {
			open = append(open, session)
		}
	}
	return open, nil
}

func (r *SessionRegistry) UpdateWindow(_ context.Context, name string, openFrom time.Time, openUntil *time.Time) (domain.QuizSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.byName[name]
	if !ok {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	session.OpenFrom = openFrom
	session.OpenUntil = openUntil
	r.byName[name] = session
	return session, nil
}

func (r *SessionRegistry) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(r.byName, name)
	return nil
}
