package repository

import (
	"context"
	"errors"
	"fmt"

	"highroll/database"
	"highroll/models"

	"github.com/jackc/pgx/v5"
)

// SessionRepository implements the SessionRepository interface
type SessionRepository struct {
	q queryable
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{q: db.Pool}
}

func newSessionRepositoryWithTx(tx queryable) *SessionRepository {
	return &SessionRepository{q: tx}
}

func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, username, high_score, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.q.QueryRow(ctx, query,
		session.ID,
		session.UserID,
		session.Username,
		session.HighScore,
		session.ExpiresAt,
	).Scan(&session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session for user %d: %w", session.UserID, err)
	}
	return nil
}

// GetByID ignores sessions that have already expired
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, user_id, username, high_score, created_at, expires_at
		FROM sessions
		WHERE id = $1 AND expires_at > NOW()
	`

	var session models.Session
	err := r.q.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.Username,
		&session.HighScore,
		&session.CreatedAt,
		&session.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &session, nil
}

func (r *SessionRepository) UpdateHighScore(ctx context.Context, id string, highScore int) error {
	query := `
		UPDATE sessions
		SET high_score = GREATEST(high_score, $1)
		WHERE id = $2
	`

	if _, err := r.q.Exec(ctx, query, highScore, id); err != nil {
		return fmt.Errorf("failed to update session high score: %w", err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.q.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected(), nil
}
