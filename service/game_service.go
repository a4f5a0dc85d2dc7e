package service

import (
	"context"
	"fmt"

	"highroll/events"
	"highroll/models"
)

type gameService struct {
	uowFactory UnitOfWorkFactory
	roller     DiceRoller
}

// NewGameService creates a new game service
func NewGameService(uowFactory UnitOfWorkFactory, roller DiceRoller) GameService {
	return &gameService{
		uowFactory: uowFactory,
		roller:     roller,
	}
}

// RollDice rolls one die for the user. The score insert and the high score
// update share a transaction, and the user row stays locked between the
// comparison and the write.
func (s *gameService) RollDice(ctx context.Context, userID int64) (*models.RollResult, error) {
	value := s.roller.Roll()
	if !models.IsValidDiceValue(value) {
		return nil, fmt.Errorf("dice roller produced invalid value %d", value)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	user, err := uow.UserRepository().GetByIDForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	score := &models.Score{
		UserID: userID,
		Value:  value,
	}
	if err := uow.ScoreRepository().Create(ctx, score); err != nil {
		return nil, fmt.Errorf("failed to record score: %w", err)
	}

	highScore := user.HighScore
	newHighScore := false
	if value > user.HighScore {
		highScore, err = uow.UserRepository().RaiseHighScore(ctx, userID, value)
		if err != nil {
			return nil, fmt.Errorf("failed to update high score: %w", err)
		}
		newHighScore = true

		uow.EventBus().Publish(events.HighScoreBeatenEvent{
			UserID:            userID,
			Username:          user.Username,
			PreviousHighScore: user.HighScore,
			NewHighScore:      highScore,
		})
	}

	uow.EventBus().Publish(events.DiceRolledEvent{
		UserID:    userID,
		Username:  user.Username,
		ScoreID:   score.ID,
		Value:     value,
		HighScore: highScore,
		RolledAt:  score.CreatedAt,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.RollResult{
		Result:       value,
		HighScore:    highScore,
		NewHighScore: newHighScore,
	}, nil
}
