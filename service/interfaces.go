package service

import (
	"context"

	"highroll/events"
	"highroll/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByID retrieves a user by id, returning nil if none exists
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// GetByIDForUpdate retrieves a user by id and locks the row until the transaction ends
	GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error)

	// GetByUsername retrieves a user by their unique username, returning nil if none exists
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// Create creates a new user with a high score of zero
	Create(ctx context.Context, username string) (*models.User, error)

	// RaiseHighScore sets the high score to the greater of the stored value and value,
	// returning the resulting high score
	RaiseHighScore(ctx context.Context, id int64, value int) (int, error)

	// GetTopByHighScore returns users that have rolled at least once, best first
	GetTopByHighScore(ctx context.Context, limit int) ([]*models.User, error)
}

// ScoreRepository defines the interface for score data access
type ScoreRepository interface {
	// Create appends a new score, filling in its ID and CreatedAt
	Create(ctx context.Context, score *models.Score) error

	// GetByUser returns the most recent scores for a user, newest first
	GetByUser(ctx context.Context, userID int64, limit int) ([]*models.Score, error)

	// GetStats returns aggregate statistics over all scores of a user
	GetStats(ctx context.Context, userID int64) (*models.ScoreStats, error)

	// CountByUsers returns the number of scores per user for the given users
	CountByUsers(ctx context.Context, userIDs []int64) (map[int64]int64, error)
}

// SessionRepository defines the interface for server-side session storage
type SessionRepository interface {
	// Create stores a new session, filling in CreatedAt
	Create(ctx context.Context, session *models.Session) error

	// GetByID returns an unexpired session, or nil if none exists
	GetByID(ctx context.Context, id string) (*models.Session, error)

	// UpdateHighScore updates the high score snapshot held by a session
	UpdateHighScore(ctx context.Context, id string, highScore int) error

	// Delete removes a session; deleting a missing session is not an error
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes all expired sessions and returns how many were removed
	DeleteExpired(ctx context.Context) (int64, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// DiceRoller produces dice values between models.MinDiceValue and models.MaxDiceValue
type DiceRoller interface {
	Roll() int
}

// UserService defines the interface for registration and login
type UserService interface {
	// Register creates a new user with the given username
	Register(ctx context.Context, username string) (*models.User, error)

	// Login looks up an existing user by username
	Login(ctx context.Context, username string) (*models.User, error)

	// GetUser returns a user by id
	GetUser(ctx context.Context, userID int64) (*models.User, error)
}

// GameService defines the interface for dice rolling
type GameService interface {
	// RollDice rolls a die for the user, records the score and raises the high score if beaten
	RollDice(ctx context.Context, userID int64) (*models.RollResult, error)
}

// SessionService defines the interface for server-side sessions
type SessionService interface {
	// Start creates a new session for the user
	Start(ctx context.Context, user *models.User) (*models.Session, error)

	// Get returns the live session with the given id
	Get(ctx context.Context, sessionID string) (*models.Session, error)

	// UpdateHighScore keeps the session's high score snapshot current
	UpdateHighScore(ctx context.Context, sessionID string, highScore int) error

	// Destroy ends a session
	Destroy(ctx context.Context, sessionID string) error

	// PurgeExpired removes expired sessions from storage
	PurgeExpired(ctx context.Context) (int64, error)
}

// StatsService defines the interface for statistics operations
type StatsService interface {
	// GetScoreboard returns the top users by high score
	GetScoreboard(ctx context.Context, limit int) ([]*models.ScoreboardEntry, error)

	// GetUserStats returns detailed statistics for a specific user
	GetUserStats(ctx context.Context, userID int64) (*models.UserStats, error)

	// GetRecentScores returns a user's most recent scores, newest first
	GetRecentScores(ctx context.Context, userID int64, limit int) ([]*models.Score, error)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes pending events
	Commit() error

	// Rollback rolls back the transaction and discards pending events
	Rollback() error

	// Repository getters
	UserRepository() UserRepository
	ScoreRepository() ScoreRepository
	SessionRepository() SessionRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
