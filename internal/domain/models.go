package domain

import (
	"time"

	"github.com/google/uuid"
)

// QuestionType distinguishes single-answer from multi-select questions.
type QuestionType string

const (
	QuestionSingle   QuestionType = "single"
	QuestionMultiple QuestionType = "multiple"
)

// Option represents a possible answer for a question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models a quiz question. Single-type questions have exactly one
// correct option; multiple-type questions may have several.
type Question struct {
	ID      string       `json:"id"`
	Type    QuestionType `json:"type"`
	Prompt  string       `json:"prompt"`
	Options []Option     `json:"options"`
	Weight  int          `json:"weight"` // defaults to 1 if zero
}

// CorrectOptionIDs returns the ids of the options marked correct, in option order.
func (q Question) CorrectOptionIDs() []string {
	ids := make([]string, 0, len(q.Options))
	for _, opt := range q.Options {
		if opt.Correct {
			ids = append(ids, opt.ID)
		}
	}
	return ids
}

// QuizDefinition is the immutable quiz content this service reads. Authoring
// happens elsewhere; a definition is only ever replaced wholesale.
type QuizDefinition struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// QuizSession is a window of time during which one quiz accepts submissions.
// OpenUntil == nil means the session never closes (practice mode).
type QuizSession struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	QuizID    string     `json:"quizId"`
	OpenFrom  time.Time  `json:"openFrom"`
	OpenUntil *time.Time `json:"openUntil,omitempty"`
}

// AnswerSet maps question ids to the option ids a participant chose.
type AnswerSet map[string][]string

// Submission is one participant's scored answer sheet for a session. At most
// one exists per (SessionID, ParticipantIdentity) pair, and it never changes
// after creation.
type Submission struct {
	ID                  uuid.UUID `json:"id"`
	SessionID           uuid.UUID `json:"sessionId"`
	ParticipantIdentity string    `json:"participantIdentity"`
	Answers             AnswerSet `json:"answers"`
	Score               int       `json:"score"`
	MaxScore            int       `json:"maxScore"`
	CreatedAt           time.Time `json:"createdAt"`
}

// QuestionScore is the grading outcome for one question.
type QuestionScore struct {
	QuestionID string `json:"questionId"`
	Points     int    `json:"points"`
	MaxPoints  int    `json:"maxPoints"`
}

// ScoredResult is the participant-facing view of a submission. Handle is the
// opaque token handed back for later retrieval.
type ScoredResult struct {
	Handle              uuid.UUID `json:"handle"`
	SessionName         string    `json:"sessionName"`
	ParticipantIdentity string    `json:"participantIdentity"`
	Score               int       `json:"score"`
	MaxScore            int       `json:"maxScore"`
	SubmittedAt         time.Time `json:"submittedAt"`
}

// QuestionStatistics counts answers for one question across a session.
// Correct here means the chosen set equals the correct set exactly,
// independent of the partial credit awarded for points.
type QuestionStatistics struct {
	QuestionID   string `json:"questionId"`
	TotalAnswers int    `json:"totalAnswers"`
	CorrectCount int    `json:"correctCount"`
}

// SessionStatistics aggregates a session's submissions for reporting.
type SessionStatistics struct {
	SessionName      string               `json:"sessionName"`
	ParticipantCount int                  `json:"participantCount"`
	PerQuestion      []QuestionStatistics `json:"perQuestion"`
}
