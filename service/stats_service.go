package service

import (
	"context"
	"fmt"

	"highroll/models"
)

const (
	// recentScoresInStats is how many scores GetUserStats includes
	recentScoresInStats = 10

	// MaxListLimit caps list sizes requested by clients
	MaxListLimit = 100
)

type statsService struct {
	uowFactory UnitOfWorkFactory
}

// NewStatsService creates a new stats service
func NewStatsService(uowFactory UnitOfWorkFactory) StatsService {
	return &statsService{
		uowFactory: uowFactory,
	}
}

// GetScoreboard returns the top users ordered by high score. Users sharing a
// high score share a rank, and the next rank skips accordingly (1, 1, 3).
func (s *statsService) GetScoreboard(ctx context.Context, limit int) ([]*models.ScoreboardEntry, error) {
	limit = clampLimit(limit)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	users, err := uow.UserRepository().GetTopByHighScore(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}

	userIDs := make([]int64, len(users))
	for i, user := range users {
		userIDs[i] = user.ID
	}

	counts, err := uow.ScoreRepository().CountByUsers(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to count scores: %w", err)
	}

	entries := make([]*models.ScoreboardEntry, 0, len(users))
	for i, user := range users {
		rank := i + 1
		if i > 0 && user.HighScore == users[i-1].HighScore {
			rank = entries[i-1].Rank
		}
		entries = append(entries, &models.ScoreboardEntry{
			Rank:       rank,
			UserID:     user.ID,
			Username:   user.Username,
			HighScore:  user.HighScore,
			TotalRolls: counts[user.ID],
		})
	}

	return entries, nil
}

func (s *statsService) GetUserStats(ctx context.Context, userID int64) (*models.UserStats, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	stats, err := uow.ScoreRepository().GetStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get score stats: %w", err)
	}

	recent, err := uow.ScoreRepository().GetByUser(ctx, userID, recentScoresInStats)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent scores: %w", err)
	}

	return &models.UserStats{
		User:         user,
		TotalRolls:   stats.TotalRolls,
		Average:      stats.Average,
		Distribution: stats.Distribution,
		RecentScores: recent,
	}, nil
}

func (s *statsService) GetRecentScores(ctx context.Context, userID int64, limit int) ([]*models.Score, error) {
	limit = clampLimit(limit)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	scores, err := uow.ScoreRepository().GetByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get scores: %w", err)
	}
	return scores, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 1
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
