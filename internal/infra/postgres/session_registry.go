package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quiz-session-service/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// SessionRegistry stores quiz sessions in Postgres.
type SessionRegistry struct {
	pool *pgxpool.Pool
}

func NewSessionRegistry(pool *pgxpool.Pool) *SessionRegistry {
	return &SessionRegistry{pool: pool}
}

func (r *SessionRegistry) Create(ctx context.Context, session domain.QuizSession) error {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO quiz_sessions (id, name, quiz_id, open_from, open_until)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (name) DO NOTHING`,
		session.ID, session.Name, session.QuizID, session.OpenFrom, session.OpenUntil)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNameTaken
	}
	return nil
}

func (r *SessionRegistry) GetByName(ctx context.Context, name string) (domain.QuizSession, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT id, name, quiz_id, open_from, open_until FROM quiz_sessions WHERE name=$1`, name))
}

func (r *SessionRegistry) GetByID(ctx context.Context, id uuid.UUID) (domain.QuizSession, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT id, name, quiz_id, open_from, open_until FROM quiz_sessions WHERE id=$1`, id))
}

// ListOpen applies the window boundaries in SQL; both edges are inclusive to
// match the state machine.
func (r *SessionRegistry) ListOpen(ctx context.Context, now time.Time) ([]domain.QuizSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, quiz_id, open_from, open_until FROM quiz_sessions
		 WHERE open_from <= $1 AND (open_until IS NULL OR open_until >= $1)`, now)
	if err != nil {
		return nil, fmt.Errorf("list open sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]domain.QuizSession, 0)
	for rows.Next() {
		var session domain.QuizSession
		if err := rows.Scan(&session.ID, &session.Name, &session.QuizID, &session.OpenFrom, &session.OpenUntil); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (r *SessionRegistry) UpdateWindow(ctx context.Context, name string, openFrom time.Time, openUntil *time.Time) (domain.QuizSession, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`UPDATE quiz_sessions SET open_from=$2, open_until=$3 WHERE name=$1
		 RETURNING id, name, quiz_id, open_from, open_until`,
		name, openFrom, openUntil))
}

// Delete removes the session; the submissions foreign key cascades.
func (r *SessionRegistry) Delete(ctx context.Context, name string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM quiz_sessions WHERE name=$1`, name)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRegistry) scanOne(row pgx.Row) (domain.QuizSession, error) {
	var session domain.QuizSession
	err := row.Scan(&session.ID, &session.Name, &session.QuizID, &session.OpenFrom, &session.OpenUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.QuizSession{}, fmt.Errorf("scan session: %w", err)
	}
	return session, nil
}
