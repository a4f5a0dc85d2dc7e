package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"highroll/events"
	"highroll/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type serviceMocks struct {
	factory   *MockUnitOfWorkFactory
	uow       *MockUnitOfWork
	users     *MockUserRepository
	scores    *MockScoreRepository
	sessions  *MockSessionRepository
	publisher *MockEventPublisher
}

func newServiceMocks() *serviceMocks {
	m := &serviceMocks{
		factory:   new(MockUnitOfWorkFactory),
		uow:       new(MockUnitOfWork),
		users:     new(MockUserRepository),
		scores:    new(MockScoreRepository),
		sessions:  new(MockSessionRepository),
		publisher: new(MockEventPublisher),
	}
	m.uow.SetRepositories(m.users, m.scores, m.sessions, m.publisher)
	m.factory.On("Create").Return(m.uow)
	return m
}

func (m *serviceMocks) assertExpectations(t *testing.T) {
	m.factory.AssertExpectations(t)
	m.uow.AssertExpectations(t)
	m.users.AssertExpectations(t)
	m.scores.AssertExpectations(t)
	m.sessions.AssertExpectations(t)
	m.publisher.AssertExpectations(t)
}

func TestNormalizeUsername(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{"plain", "alice", "alice", false},
		{"trimmed", "  alice\t", "alice", false},
		{"unicode", "Ålesund", "Ålesund", false},
		{"max length", strings.Repeat("x", MaxUsernameLength), strings.Repeat("x", MaxUsernameLength), false},
		{"empty", "", "", true},
		{"only spaces", "   ", "", true},
		{"too long", strings.Repeat("x", MaxUsernameLength+1), "", true},
		{"inner space", "alice smith", "", true},
		{"control char", "ali\x00ce", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeUsername(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidUsername)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestUserService_Register_NewUser(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	service := NewUserService(m.factory)

	created := &models.User{ID: 7, Username: "alice"}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Commit").Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.users.On("GetByUsername", ctx, "alice").Return(nil, nil)
	m.users.On("Create", ctx, "alice").Return(created, nil)
	m.publisher.On("Publish", events.UserRegisteredEvent{UserID: 7, Username: "alice"}).Return()

	user, err := service.Register(ctx, "  alice ")

	require.NoError(t, err)
	assert.Equal(t, created, user)
	assert.Equal(t, 0, user.HighScore)
	m.assertExpectations(t)
}

func TestUserService_Register_UsernameTaken(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	service := NewUserService(m.factory)

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.users.On("GetByUsername", ctx, "alice").Return(&models.User{ID: 1, Username: "alice"}, nil)

	user, err := service.Register(ctx, "alice")

	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrUsernameTaken)
	m.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	m.uow.AssertNotCalled(t, "Commit")
	m.publisher.AssertNotCalled(t, "Publish", mock.Anything)
	m.assertExpectations(t)
}

func TestUserService_Register_LosesRaceOnUniqueConstraint(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	service := NewUserService(m.factory)

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.users.On("GetByUsername", ctx, "alice").Return(nil, nil)
	m.users.On("Create", ctx, "alice").Return(nil, fmt.Errorf("insert user: %w", ErrUsernameTaken))

	user, err := service.Register(ctx, "alice")

	assert.Nil(t, user)
	assert.Equal(t, ErrUsernameTaken, err)
	m.uow.AssertNotCalled(t, "Commit")
	m.assertExpectations(t)
}

func TestUserService_Register_InvalidUsername(t *testing.T) {
	ctx := context.Background()
	m := &serviceMocks{factory: new(MockUnitOfWorkFactory)}
	service := NewUserService(m.factory)

	user, err := service.Register(ctx, "   ")

	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrInvalidUsername)
	m.factory.AssertNotCalled(t, "Create")
}

func TestUserService_Register_CreateError(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	service := NewUserService(m.factory)

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.users.On("GetByUsername", ctx, "alice").Return(nil, nil)
	m.users.On("Create", ctx, "alice").Return(nil, errors.New("connection reset"))

	user, err := service.Register(ctx, "alice")

	assert.Nil(t, user)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUsernameTaken)
	assert.Contains(t, err.Error(), "failed to create user")
	m.assertExpectations(t)
}

func TestUserService_Register_BeginError(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	service := NewUserService(m.factory)

	m.uow.On("Begin", ctx).Return(errors.New("pool closed"))

	user, err := service.Register(ctx, "alice")

	assert.Nil(t, user)
	assert.Contains(t, err.Error(), "failed to begin transaction")
	m.assertExpectations(t)
}

func TestUserService_Login_ExistingUser(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	service := NewUserService(m.factory)

	existing := &models.User{ID: 3, Username: "bob", HighScore: 5}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Commit").Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.users.On("GetByUsername", ctx, "bob").Return(existing, nil)
	m.publisher.On("Publish", events.UserLoggedInEvent{UserID: 3, Username: "bob"}).Return()

	user, err := service.Login(ctx, " bob ")

	require.NoError(t, err)
	assert.Equal(t, existing, user)
	m.assertExpectations(t)
}

func TestUserService_Login_UnknownUser(t *testing.T) {
	ctx := context.Background()
	m := newServiceMocks()
	service := NewUserService(m.factory)

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.users.On("GetByUsername", ctx, "Bob").Return(nil, nil)

	user, err := service.Login(ctx, "Bob")

	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrUserNotFound)
	m.publisher.AssertNotCalled(t, "Publish", mock.Anything)
	m.assertExpectations(t)
}

func TestUserService_Login_EmptyUsername(t *testing.T) {
	m := &serviceMocks{factory: new(MockUnitOfWorkFactory)}
	service := NewUserService(m.factory)

	user, err := service.Login(context.Background(), "  ")

	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrUserNotFound)
	m.factory.AssertNotCalled(t, "Create")
}

func TestUserService_GetUser(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		m := newServiceMocks()
		service := NewUserService(m.factory)
		existing := &models.User{ID: 9, Username: "carol", HighScore: 2}

		m.uow.On("Begin", ctx).Return(nil)
		m.uow.On("Rollback").Return(nil)
		m.users.On("GetByID", ctx, int64(9)).Return(existing, nil)

		user, err := service.GetUser(ctx, 9)

		require.NoError(t, err)
		assert.Equal(t, existing, user)
		m.uow.AssertNotCalled(t, "Commit")
		m.assertExpectations(t)
	})

	t.Run("missing", func(t *testing.T) {
		m := newServiceMocks()
		service := NewUserService(m.factory)

		m.uow.On("Begin", ctx).Return(nil)
		m.uow.On("Rollback").Return(nil)
		m.users.On("GetByID", ctx, int64(9)).Return(nil, nil)

		user, err := service.GetUser(ctx, 9)

		assert.Nil(t, user)
		assert.ErrorIs(t, err, ErrUserNotFound)
		m.assertExpectations(t)
	})
}
