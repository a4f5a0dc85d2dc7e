package service

import (
	"context"

	"highroll/events"
	"highroll/models"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) RaiseHighScore(ctx context.Context, id int64, value int) (int, error) {
	args := m.Called(ctx, id, value)
	return args.Int(0), args.Error(1)
}

func (m *MockUserRepository) GetTopByHighScore(ctx context.Context, limit int) ([]*models.User, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

// MockScoreRepository is a mock implementation of ScoreRepository
type MockScoreRepository struct {
	mock.Mock
}

func (m *MockScoreRepository) Create(ctx context.Context, score *models.Score) error {
	args := m.Called(ctx, score)
	return args.Error(0)
}

func (m *MockScoreRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*models.Score, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Score), args.Error(1)
}

func (m *MockScoreRepository) GetStats(ctx context.Context, userID int64) (*models.ScoreStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ScoreStats), args.Error(1)
}

func (m *MockScoreRepository) CountByUsers(ctx context.Context, userIDs []int64) (map[int64]int64, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]int64), args.Error(1)
}

// MockSessionRepository is a mock implementation of SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionRepository) UpdateHighScore(ctx context.Context, id string, highScore int) error {
	args := m.Called(ctx, id, highScore)
	return args.Error(0)
}

func (m *MockSessionRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repository getters
// return whatever was passed to SetRepositories and are not tracked as calls.
type MockUnitOfWork struct {
	mock.Mock
	userRepo       UserRepository
	scoreRepo      ScoreRepository
	sessionRepo    SessionRepository
	eventPublisher EventPublisher
}

// SetRepositories wires the repositories returned by the getters
func (m *MockUnitOfWork) SetRepositories(userRepo UserRepository, scoreRepo ScoreRepository, sessionRepo SessionRepository, eventPublisher EventPublisher) {
	m.userRepo = userRepo
	m.scoreRepo = scoreRepo
	m.sessionRepo = sessionRepo
	m.eventPublisher = eventPublisher
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) UserRepository() UserRepository {
	return m.userRepo
}

func (m *MockUnitOfWork) ScoreRepository() ScoreRepository {
	return m.scoreRepo
}

func (m *MockUnitOfWork) SessionRepository() SessionRepository {
	return m.sessionRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.eventPublisher
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// MockDiceRoller returns a fixed sequence of values
type MockDiceRoller struct {
	Values []int
	calls  int
}

func (m *MockDiceRoller) Roll() int {
	v := m.Values[m.calls%len(m.Values)]
	m.calls++
	return v
}
