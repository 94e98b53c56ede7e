package memory

import (
	"context"
	"sync"

	"quiz-session-service/internal/domain"

	"github.com/google/uuid"
)

type identityKey struct {
	sessionID uuid.UUID
	identity  string
}

// SubmissionLedger is an in-memory implementation of app.SubmissionLedger.
// A single mutex covers the duplicate check and the insert, so concurrent
// Create calls for the same (session, identity) pair admit exactly one.
type SubmissionLedger struct {
	mu         sync.RWMutex
	byID       map[uuid.UUID]domain.Submission
	byIdentity map[identityKey]uuid.UUID
}

func NewSubmissionLedger() *SubmissionLedger {
	return &SubmissionLedger{
		byID:       make(map[uuid.UUID]domain.Submission),
		byIdentity: make(map[identityKey]uuid.UUID),
	}
}

func (l *SubmissionLedger) Create(_ context.Context, submission domain.Submission) error {
	key := identityKey{sessionID: submission.SessionID, identity: submission.ParticipantIdentity}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.byIdentity[key]; ok {
		return &domain.DuplicateSubmissionError{
			SessionID:           submission.SessionID,
			ParticipantIdentity: submission.ParticipantIdentity,
		}
	}
	l.byID[submission.ID] = submission
	l.byIdentity[key] = submission.ID
	return nil
}

func (l *SubmissionLedger) Get(_ context.Context, id uuid.UUID) (domain.Submission, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	submission, ok := l.byID[id]
	if !ok {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	return submission, nil
}

func (l *SubmissionLedger) FindByIdentity(_ context.Context, sessionID uuid.UUID, identity string) (domain.Submission, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	id, ok := l.byIdentity[identityKey{sessionID: sessionID, identity: identity}]
	if !ok {
		return domain.Submission{}, false, nil
	}
	return l.byID[id], true, nil
}

func (l *SubmissionLedger) ListBySession(_ context.Context, sessionID uuid.UUID) ([]domain.Submission, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	submissions := make([]domain.Submission, 0)
	for _, submission := range l.byID {
		if submission.SessionID == sessionID {
			submissions = append(submissions, submission)
		}
	}
	return submissions, nil
}

func (l *SubmissionLedger) DeleteBySession(_ context.Context, sessionID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, submission := range l.byID {
		if submission.SessionID == sessionID {
			delete(l.byID, id)
			delete(l.byIdentity, identityKey{sessionID: sessionID, identity: submission.ParticipantIdentity})
		}
	}
	return nil
}
