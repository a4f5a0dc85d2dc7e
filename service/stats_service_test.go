package service

import (
	"context"
	"errors"
	"testing"

	"highroll/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsService_GetScoreboard_CompetitionRanking(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	service := NewStatsService(m.factory)

	users := []*models.User{
		{ID: 1, Username: "alice", HighScore: 6},
		{ID: 2, Username: "bob", HighScore: 6},
		{ID: 3, Username: "carol", HighScore: 4},
		{ID: 4, Username: "dave", HighScore: 4},
		{ID: 5, Username: "erin", HighScore: 1},
	}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.users.On("GetTopByHighScore", ctx, 10).Return(users, nil)
	m.scores.On("CountByUsers", ctx, []int64{1, 2, 3, 4, 5}).Return(map[int64]int64{1: 12, 2: 3, 3: 8, 5: 1}, nil)

	entries, err := service.GetScoreboard(ctx, 10)

	require.NoError(t, err)
	require.Len(t, entries, 5)

	ranks := make([]int, len(entries))
	for i, e := range entries {
		ranks[i] = e.Rank
	}
	assert.Equal(t, []int{1, 1, 3, 3, 5}, ranks)
	assert.Equal(t, "alice", entries[0].Username)
	assert.Equal(t, int64(12), entries[0].TotalRolls)
	assert.Equal(t, int64(0), entries[3].TotalRolls)
	m.uow.AssertNotCalled(t, "Commit")
	m.assertExpectations(t)
}

func TestStatsService_GetScoreboard_Empty(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	service := NewStatsService(m.factory)

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.users.On("GetTopByHighScore", ctx, 10).Return([]*models.User{}, nil)
	m.scores.On("CountByUsers", ctx, []int64{}).Return(map[int64]int64{}, nil)

	entries, err := service.GetScoreboard(ctx, 10)

	require.NoError(t, err)
	assert.Empty(t, entries)
	m.assertExpectations(t)
}

func TestStatsService_GetScoreboard_ClampsLimit(t *testing.T) {
	tests := []struct {
		name     string
		limit    int
		expected int
	}{
		{"zero", 0, 1},
		{"negative", -5, 1},
		{"within range", 25, 25},
		{"too large", 5000, MaxListLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			m := newServiceMocks()
			service := NewStatsService(m.factory)

			m.uow.On("Begin", ctx).Return(nil)
			m.uow.On("Rollback").Return(nil)
			m.users.On("GetTopByHighScore", ctx, tt.expected).Return([]*models.User{}, nil)
			m.scores.On("CountByUsers", ctx, []int64{}).Return(map[int64]int64{}, nil)

			_, err := service.GetScoreboard(ctx, tt.limit)

			require.NoError(t, err)
			m.assertExpectations(t)
		})
	}
}

func TestStatsService_GetScoreboard_RepositoryError(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	service := NewStatsService(m.factory)

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.users.On("GetTopByHighScore", ctx, 10).Return(nil, errors.New("db down"))

	entries, err := service.GetScoreboard(ctx, 10)

	assert.Nil(t, entries)
	assert.Contains(t, err.Error(), "failed to get top users")
	m.assertExpectations(t)
}

func TestStatsService_GetUserStats(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	service := NewStatsService(m.factory)

	user := &models.User{ID: 3, Username: "carol", HighScore: 5}
	stats := &models.ScoreStats{TotalRolls: 4, Average: 3.5, Distribution: map[int]int64{2: 1, 3: 1, 4: 1, 5: 1}}
	recent := []*models.Score{{ID: 10, UserID: 3, Value: 5}, {ID: 9, UserID: 3, Value: 2}}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.users.On("GetByID", ctx, int64(3)).Return(user, nil)
	m.scores.On("GetStats", ctx, int64(3)).Return(stats, nil)
	m.scores.On("GetByUser", ctx, int64(3), recentScoresInStats).Return(recent, nil)

	result, err := service.GetUserStats(ctx, 3)

	require.NoError(t, err)
	assert.Equal(t, user, result.User)
	assert.Equal(t, int64(4), result.TotalRolls)
	assert.InDelta(t, 3.5, result.Average, 0.0001)
	assert.Equal(t, stats.Distribution, result.Distribution)
	assert.Equal(t, recent, result.RecentScores)
	m.assertExpectations(t)
}

func TestStatsService_GetUserStats_UserNotFound(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	service := NewStatsService(m.factory)

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.users.On("GetByID", ctx, int64(3)).Return(nil, nil)

	result, err := service.GetUserStats(ctx, 3)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrUserNotFound)
	m.assertExpectations(t)
}

func TestStatsService_GetRecentScores(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	service := NewStatsService(m.factory)

	recent := []*models.Score{{ID: 2, UserID: 1, Value: 6}}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.scores.On("GetByUser", ctx, int64(1), MaxListLimit).Return(recent, nil)

	scores, err := service.GetRecentScores(ctx, 1, 1000)

	require.NoError(t, err)
	assert.Equal(t, recent, scores)
	m.assertExpectations(t)
}
