package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"quiz-session-service/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// SubmissionLedger stores scored submissions in Postgres. The unique index on
// (session_id, participant_identity) is the atomic duplicate check: a losing
// concurrent insert affects zero rows and surfaces as DuplicateSubmissionError.
type SubmissionLedger struct {
	pool *pgxpool.Pool
}

func NewSubmissionLedger(pool *pgxpool.Pool) *SubmissionLedger {
	return &SubmissionLedger{pool: pool}
}

func (l *SubmissionLedger) Create(ctx context.Context, submission domain.Submission) error {
	answers, err := json.Marshal(submission.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	tag, err := l.pool.Exec(ctx,
		`INSERT INTO submissions (id, session_id, participant_identity, answers, score, max_score, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (session_id, participant_identity) DO NOTHING`,
		submission.ID, submission.SessionID, submission.ParticipantIdentity,
		answers, submission.Score, submission.MaxScore, submission.CreatedAt)
	if err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.DuplicateSubmissionError{
			SessionID:           submission.SessionID,
			ParticipantIdentity: submission.ParticipantIdentity,
		}
	}
	return nil
}

func (l *SubmissionLedger) Get(ctx context.Context, id uuid.UUID) (domain.Submission, error) {
	submission, err := l.scanOne(l.pool.QueryRow(ctx,
		`SELECT id, session_id, participant_identity, answers, score, max_score, created_at
		 FROM submissions WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	return submission, err
}

func (l *SubmissionLedger) FindByIdentity(ctx context.Context, sessionID uuid.UUID, identity string) (domain.Submission, bool, error) {
	submission, err := l.scanOne(l.pool.QueryRow(ctx,
		`SELECT id, session_id, participant_identity, answers, score, max_score, created_at
		 FROM submissions WHERE session_id=$1 AND participant_identity=$2`, sessionID, identity))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Submission{}, false, nil
	}
	if err != nil {
		return domain.Submission{}, false, err
	}
	return submission, true, nil
}

func (l *SubmissionLedger) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.Submission, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, session_id, participant_identity, answers, score, max_score, created_at
		 FROM submissions WHERE session_id=$1`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	submissions := make([]domain.Submission, 0)
	for rows.Next() {
		submission, err := l.scanOne(rows)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, submission)
	}
	return submissions, rows.Err()
}

func (l *SubmissionLedger) DeleteBySession(ctx context.Context, sessionID uuid.UUID) error {
	if _, err := l.pool.Exec(ctx, `DELETE FROM submissions WHERE session_id=$1`, sessionID); err != nil {
		return fmt.Errorf("delete submissions: %w", err)
	}
	return nil
}

func (l *SubmissionLedger) scanOne(row pgx.Row) (domain.Submission, error) {
	var submission domain.Submission
	var answers []byte
	err := row.Scan(&submission.ID, &submission.SessionID, &submission.ParticipantIdentity,
		&answers, &submission.Score, &submission.MaxScore, &submission.CreatedAt)
	if err != nil {
		return domain.Submission{}, err
	}
	if err := json.Unmarshal(answers, &submission.Answers); err != nil {
		return domain.Submission{}, fmt.Errorf("unmarshal answers: %w", err)
	}
	return submission, nil
}
