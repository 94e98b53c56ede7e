package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound is returned when no session exists under the given name.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionNameTaken is returned when creating a session whose name is in use.
	ErrSessionNameTaken = errors.New("session name already taken")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrSubmissionNotFound is returned when a result handle matches nothing.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrInvalidWindow is returned when a window would close before it opens.
	ErrInvalidWindow = errors.New("session window closes before it opens")
)

// SessionNotOpenError rejects a submission outside the session window. State
// is either WindowNotYetOpen or WindowClosed.
type SessionNotOpenError struct {
	SessionName string
	State       WindowState
	OpenFrom    time.Time
	OpenUntil   *time.Time
}

func (e *SessionNotOpenError) Error() string {
	if e.State == WindowNotYetOpen {
		return fmt.Sprintf("session %q not open yet, opens at %s", e.SessionName, e.OpenFrom.Format(time.RFC3339))
	}
	return fmt.Sprintf("session %q is closed", e.SessionName)
}

// DuplicateSubmissionError rejects a second submission by the same identity.
// The first submission is never overwritten or merged.
type DuplicateSubmissionError struct {
	SessionID           uuid.UUID
	ParticipantIdentity string
}

func (e *DuplicateSubmissionError) Error() string {
	return fmt.Sprintf("identity %q already submitted to this session", e.ParticipantIdentity)
}

// InvalidAnswerError rejects an answer set referencing an unknown question or
// option id. OptionID is empty when the question id itself is unknown.
type InvalidAnswerError struct {
	QuestionID string
	OptionID   string
}

func (e *InvalidAnswerError) Error() string {
	if e.OptionID == "" {
		return fmt.Sprintf("answer references unknown question %q", e.QuestionID)
	}
	return fmt.Sprintf("answer for question %q references unknown option %q", e.QuestionID, e.OptionID)
}

// ResultWithheldError is returned by result retrieval while a bounded session
// is still inside its window. VisibleAt is when the result becomes available.
type ResultWithheldError struct {
	VisibleAt time.Time
}

func (e *ResultWithheldError) Error() string {
	return fmt.Sprintf("result withheld until session closes at %s", e.VisibleAt.Format(time.RFC3339))
}
