package app

import (
	"context"
	"sync"
	"time"

	"quiz-session-service/internal/domain"

	"github.com/google/uuid"
)

// SessionRegistry abstracts how quiz sessions are stored (in-memory, Postgres).
type SessionRegistry interface {
	Create(ctx context.Context, session domain.QuizSession) error
	GetByName(ctx context.Context, name string) (domain.QuizSession, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.QuizSession, error)
	ListOpen(ctx context.Context, now time.Time) ([]domain.QuizSession, error)
	UpdateWindow(ctx context.Context, name string, openFrom time.Time, openUntil *time.Time) (domain.QuizSession, error)
	Delete(ctx context.Context, name string) error
}

// SubmissionLedger stores scored submissions. Create must detect a concurrent
// insert for the same (session, identity) pair atomically and report it as
// DuplicateSubmissionError; the service's own lookup is only a fast path.
type SubmissionLedger interface {
	Create(ctx context.Context, submission domain.Submission) error
	Get(ctx context.Context, id uuid.UUID) (domain.Submission, error)
	FindByIdentity(ctx context.Context, sessionID uuid.UUID, identity string) (domain.Submission, bool, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.Submission, error)
	DeleteBySession(ctx context.Context, sessionID uuid.UUID) error
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.QuizDefinition, error)
}

// SessionService contains the session lifecycle and submission use cases.
type SessionService struct {
	registry SessionRegistry
	ledger   SubmissionLedger
	quizzes  QuizRepository
	now      func() time.Time

	mu       sync.Mutex
	watchers map[string]map[chan domain.SessionStatistics]struct{}
}

func NewSessionService(registry SessionRegistry, ledger SubmissionLedger, quizzes QuizRepository) *SessionService {
	return NewSessionServiceWithClock(registry, ledger, quizzes, time.Now)
}

// NewSessionServiceWithClock allows deterministic timestamps in tests.
func NewSessionServiceWithClock(registry SessionRegistry, ledger SubmissionLedger, quizzes QuizRepository, now func() time.Time) *SessionService {
	return &SessionService{
		registry: registry,
		ledger:   ledger,
		quizzes:  quizzes,
		now:      now,
		watchers: make(map[string]map[chan domain.SessionStatistics]struct{}),
	}
}

// CreateSession registers a new submission window for an existing quiz.
func (s *SessionService) CreateSession(ctx context.Context, quizID, name string, openFrom time.Time, openUntil *time.Time) (domain.QuizSession, error) {
	if openUntil != nil && openUntil.Before(openFrom) {
		return domain.QuizSession{}, domain.ErrInvalidWindow
	}
	// Sessions cannot reference unknown quizzes.
	if _, err := s.quizzes.GetQuiz(ctx, quizID); err != nil {
		return domain.QuizSession{}, err
	}

	session := domain.QuizSession{
		ID:        uuid.New(),
		Name:      name,
		QuizID:    quizID,
		OpenFrom:  openFrom,
		OpenUntil: openUntil,
	}
	if err := s.registry.Create(ctx, session); err != nil {
		return domain.QuizSession{}, err
	}
	return session, nil
}

// UpdateSessionWindow adjusts an existing session's window. The window is the
// only mutable part of a session.
func (s *SessionService) UpdateSessionWindow(ctx context.Context, name string, openFrom time.Time, openUntil *time.Time) (domain.QuizSession, error) {
	if openUntil != nil && openUntil.Before(openFrom) {
		return domain.QuizSession{}, domain.ErrInvalidWindow
	}
	return s.registry.UpdateWindow(ctx, name, openFrom, openUntil)
}

// DeleteSession removes a session together with its submissions.
func (s *SessionService) DeleteSession(ctx context.Context, name string) error {
	session, err := s.registry.GetByName(ctx, name)
	if err != nil {
		return err
	}
	if err := s.ledger.DeleteBySession(ctx, session.ID); err != nil {
		return err
	}
	return s.registry.Delete(ctx, name)
}

// ListOpenSessions filters the registry with the window rules evaluated at
// the supplied instant. Nothing is cached; staleness is bounded by the caller.
func (s *SessionService) ListOpenSessions(ctx context.Context, now time.Time) ([]domain.QuizSession, error) {
	return s.registry.ListOpen(ctx, now)
}

// Submit grades and persists one participant's answers. The ledger's atomic
// conflict detection guarantees that of N concurrent submits for the same
// identity exactly one succeeds; all validation and grading happen before the
// single write, so a failed submit leaves nothing behind.
func (s *SessionService) Submit(ctx context.Context, sessionName, identity string, answers domain.AnswerSet) (domain.ScoredResult, error) {
	session, err := s.registry.GetByName(ctx, sessionName)
	if err != nil {
		return domain.ScoredResult{}, err
	}

	now := s.now()
	if state := session.WindowState(now); state != domain.WindowOpen {
		return domain.ScoredResult{}, &domain.SessionNotOpenError{
			SessionName: session.Name,
			State:       state,
			OpenFrom:    session.OpenFrom,
			OpenUntil:   session.OpenUntil,
		}
	}

	if _, exists, err := s.ledger.FindByIdentity(ctx, session.ID, identity); err != nil {
		return domain.ScoredResult{}, err
	} else if exists {
		return domain.ScoredResult{}, &domain.DuplicateSubmissionError{SessionID: session.ID, ParticipantIdentity: identity}
	}

	// The quiz may have been deleted after the session was created; surface
	// that instead of crashing mid-submit.
	quiz, err := s.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return domain.ScoredResult{}, err
	}

	_, score, maxScore, err := Grade(quiz, answers)
	if err != nil {
		return domain.ScoredResult{}, err
	}

	submission := domain.Submission{
		ID:                  uuid.New(),
		SessionID:           session.ID,
		ParticipantIdentity: identity,
		Answers:             answers,
		Score:               score,
		MaxScore:            maxScore,
		CreatedAt:           now,
	}
	if err := s.ledger.Create(ctx, submission); err != nil {
		return domain.ScoredResult{}, err
	}

	s.broadcastStatistics(ctx, session, quiz)

	return domain.ScoredResult{
		Handle:              submission.ID,
		SessionName:         session.Name,
		ParticipantIdentity: identity,
		Score:               score,
		MaxScore:            maxScore,
		SubmittedAt:         submission.CreatedAt,
	}, nil
}

// GetResult retrieves a scored result by its handle, applying the visibility
// policy: open-ended sessions show results immediately, bounded sessions
// withhold them (as ResultWithheldError) until the window closes.
func (s *SessionService) GetResult(ctx context.Context, handle uuid.UUID) (domain.ScoredResult, error) {
	submission, err := s.ledger.Get(ctx, handle)
	if err != nil {
		return domain.ScoredResult{}, err
	}
	session, err := s.registry.GetByID(ctx, submission.SessionID)
	if err != nil {
		return domain.ScoredResult{}, err
	}
	if !session.ResultsVisible(s.now()) {
		return domain.ScoredResult{}, &domain.ResultWithheldError{VisibleAt: *session.OpenUntil}
	}
	return domain.ScoredResult{
		Handle:              submission.ID,
		SessionName:         session.Name,
		ParticipantIdentity: submission.ParticipantIdentity,
		Score:               submission.Score,
		MaxScore:            submission.MaxScore,
		SubmittedAt:         submission.CreatedAt,
	}, nil
}

// SessionStatistics aggregates a session's submissions. Per-question
// correctness is an exact set match, not the partial-credit points rule.
func (s *SessionService) SessionStatistics(ctx context.Context, sessionName string) (domain.SessionStatistics, error) {
	session, err := s.registry.GetByName(ctx, sessionName)
	if err != nil {
		return domain.SessionStatistics{}, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return domain.SessionStatistics{}, err
	}
	submissions, err := s.ledger.ListBySession(ctx, session.ID)
	if err != nil {
		return domain.SessionStatistics{}, err
	}
	return aggregateStatistics(session.Name, quiz, submissions), nil
}

func aggregateStatistics(sessionName string, quiz domain.QuizDefinition, submissions []domain.Submission) domain.SessionStatistics {
	stats := domain.SessionStatistics{
		SessionName:      sessionName,
		ParticipantCount: len(submissions),
		PerQuestion:      make([]domain.QuestionStatistics, 0, len(quiz.Questions)),
	}
	for _, q := range quiz.Questions {
		correctIDs := q.CorrectOptionIDs()
		qs := domain.QuestionStatistics{QuestionID: q.ID}
		for _, sub := range submissions {
			chosen := sub.Answers[q.ID]
			if len(chosen) == 0 {
				continue
			}
			qs.TotalAnswers++
			if sameSet(chosen, correctIDs) {
				qs.CorrectCount++
			}
		}
		stats.PerQuestion = append(stats.PerQuestion, qs)
	}
	return stats
}

func sameSet(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	if len(set) != len(b) {
		return false
	}
	for _, id := range b {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}

// WatchSession returns a channel receiving a statistics snapshot after every
// accepted submission. The caller must invoke the returned cancel function to
// avoid leaks.
func (s *SessionService) WatchSession(ctx context.Context, sessionName string) (<-chan domain.SessionStatistics, func(), error) {
	initial, err := s.SessionStatistics(ctx, sessionName)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan domain.SessionStatistics, 8)

	s.mu.Lock()
	if s.watchers[sessionName] == nil {
		s.watchers[sessionName] = make(map[chan domain.SessionStatistics]struct{})
	}
	s.watchers[sessionName][ch] = struct{}{}
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if set, ok := s.watchers[sessionName]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(s.watchers, sessionName)
			}
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

func (s *SessionService) broadcastStatistics(ctx context.Context, session domain.QuizSession, quiz domain.QuizDefinition) {
	s.mu.Lock()
	watching := len(s.watchers[session.Name]) > 0
	s.mu.Unlock()
	if !watching {
		return
	}

	submissions, err := s.ledger.ListBySession(ctx, session.ID)
	if err != nil {
		return
	}
	stats := aggregateStatistics(session.Name, quiz, submissions)

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.watchers[session.Name] {
		select {
		case ch <- stats:
		default:
			// Drop the stale snapshot so a slow watcher never blocks submits.
			select {
			case <-ch:
			default:
			}
			ch <- stats
		}
	}
}
