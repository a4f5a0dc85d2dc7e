package repository

import (
	"context"
	"fmt"

	"highroll/database"
	"highroll/models"
)

// ScoreRepository implements the ScoreRepository interface
type ScoreRepository struct {
	q queryable
}

// NewScoreRepository creates a new score repository
func NewScoreRepository(db *database.DB) *ScoreRepository {
	return &ScoreRepository{q: db.Pool}
}

func newScoreRepositoryWithTx(tx queryable) *ScoreRepository {
	return &ScoreRepository{q: tx}
}

// Create appends a score and fills in its ID and CreatedAt
func (r *ScoreRepository) Create(ctx context.Context, score *models.Score) error {
	query := `
		INSERT INTO scores (user_id, value)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query, score.UserID, score.Value).Scan(&score.ID, &score.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create score for user %d: %w", score.UserID, err)
	}
	return nil
}

func (r *ScoreRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*models.Score, error) {
	query := `
		SELECT id, user_id, value, created_at
		FROM scores
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores for user %d: %w", userID, err)
	}
	defer rows.Close()

	scores := make([]*models.Score, 0)
	for rows.Next() {
		var score models.Score
		if err := rows.Scan(&score.ID, &score.UserID, &score.Value, &score.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		scores = append(scores, &score)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scores: %w", err)
	}

	return scores, nil
}

func (r *ScoreRepository) GetStats(ctx context.Context, userID int64) (*models.ScoreStats, error) {
	query := `
		SELECT value, COUNT(*)
		FROM scores
		WHERE user_id = $1
		GROUP BY value
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query score stats for user %d: %w", userID, err)
	}
	defer rows.Close()

	stats := &models.ScoreStats{Distribution: make(map[int]int64)}
	var sum int64
	for rows.Next() {
		var value int
		var count int64
		if err := rows.Scan(&value, &count); err != nil {
			return nil, fmt.Errorf("failed to scan score stats: %w", err)
		}
		stats.Distribution[value] = count
		stats.TotalRolls += count
		sum += int64(value) * count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating score stats: %w", err)
	}

	if stats.TotalRolls > 0 {
		stats.Average = float64(sum) / float64(stats.TotalRolls)
	}

	return stats, nil
}

// CountByUsers omits users without scores from the result
func (r *ScoreRepository) CountByUsers(ctx context.Context, userIDs []int64) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(userIDs))
	if len(userIDs) == 0 {
		return counts, nil
	}

	query := `
		SELECT user_id, COUNT(*)
		FROM scores
		WHERE user_id = ANY($1)
		GROUP BY user_id
	`

	rows, err := r.q.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to count scores: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID, count int64
		if err := rows.Scan(&userID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan score count: %w", err)
		}
		counts[userID] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating score counts: %w", err)
	}

	return counts, nil
}
