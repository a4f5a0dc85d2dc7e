package repository

import (
	"context"
	"errors"
	"fmt"

	"highroll/database"
	"highroll/models"
	"highroll/service"

	"github.com/jackc/pgx/v5"
)

const usernameConstraint = "users_username_key"

// UserRepository implements the UserRepository interface
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository with a transaction
func newUserRepositoryWithTx(tx queryable) *UserRepository {
	return &UserRepository{q: tx}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, username, high_score, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	user, err := scanUser(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return user, nil
}

// GetByIDForUpdate locks the user row until the surrounding transaction ends
func (r *UserRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, username, high_score, created_at, updated_at
		FROM users
		WHERE id = $1
		FOR UPDATE
	`
	user, err := scanUser(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to lock user %d: %w", id, err)
	}
	return user, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT id, username, high_score, created_at, updated_at
		FROM users
		WHERE username = $1
	`
	user, err := scanUser(r.q.QueryRow(ctx, query, username))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username %q: %w", username, err)
	}
	return user, nil
}

// Create inserts a user with a high score of zero. A taken username
// surfaces as service.ErrUsernameTaken.
func (r *UserRepository) Create(ctx context.Context, username string) (*models.User, error) {
	query := `
		INSERT INTO users (username)
		VALUES ($1)
		RETURNING id, username, high_score, created_at, updated_at
	`

	var user models.User
	err := r.q.QueryRow(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.HighScore,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, usernameConstraint) {
			return nil, fmt.Errorf("failed to create user %q: %w", username, service.ErrUsernameTaken)
		}
		return nil, fmt.Errorf("failed to create user %q: %w", username, err)
	}

	return &user, nil
}

// RaiseHighScore never lowers the stored high score
func (r *UserRepository) RaiseHighScore(ctx context.Context, id int64, value int) (int, error) {
	query := `
		UPDATE users
		SET high_score = GREATEST(high_score, $1),
		    updated_at = CASE WHEN $1 > high_score THEN NOW() ELSE updated_at END
		WHERE id = $2
		RETURNING high_score
	`

	var highScore int
	err := r.q.QueryRow(ctx, query, value, id).Scan(&highScore)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("user with id %d not found", id)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to raise high score for user %d: %w", id, err)
	}

	return highScore, nil
}

// GetTopByHighScore orders ties by who reached the score first
func (r *UserRepository) GetTopByHighScore(ctx context.Context, limit int) ([]*models.User, error) {
	query := `
		SELECT id, username, high_score, created_at, updated_at
		FROM users
		WHERE high_score > 0
		ORDER BY high_score DESC, updated_at ASC, id ASC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0, limit)
	for rows.Next() {
		var user models.User
		if err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.HighScore,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// scanUser returns nil, nil when the row does not exist
func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.HighScore,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
