package service

import (
	"context"
	"fmt"
	"time"

	"highroll/models"

	cache "github.com/go-pkgz/expirable-cache/v3"
	"github.com/google/uuid"
)

// maxCachedSessionAge bounds how long a session is served from memory before
// it is re-read from storage, so a logout on another replica is picked up.
const maxCachedSessionAge = 5 * time.Minute

// SessionConfig holds session lifetime settings
type SessionConfig struct {
	TTL       time.Duration
	CacheSize int
}

type sessionService struct {
	uowFactory UnitOfWorkFactory
	config     SessionConfig
	cache      cache.Cache[string, models.Session]
	now        func() time.Time
	newID      func() string
}

// NewSessionService creates a new session service backed by the session
// repository with an in-memory cache in front of it.
func NewSessionService(uowFactory UnitOfWorkFactory, config SessionConfig) SessionService {
	return newSessionService(uowFactory, config, time.Now, uuid.NewString)
}

func newSessionService(uowFactory UnitOfWorkFactory, config SessionConfig, now func() time.Time, newID func() string) *sessionService {
	if config.CacheSize <= 0 {
		config.CacheSize = 10000
	}
	return &sessionService{
		uowFactory: uowFactory,
		config:     config,
		cache: cache.NewCache[string, models.Session]().
			WithMaxKeys(config.CacheSize).
			WithLRU().
			WithTTL(maxCachedSessionAge),
		now:   now,
		newID: newID,
	}
}

func (s *sessionService) Start(ctx context.Context, user *models.User) (*models.Session, error) {
	now := s.now().UTC()
	session := &models.Session{
		ID:        s.newID(),
		UserID:    user.ID,
		Username:  user.Username,
		HighScore: user.HighScore,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.TTL),
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.SessionRepository().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.remember(session)
	return session, nil
}

func (s *sessionService) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	now := s.now()
	if cached, ok := s.cache.Get(sessionID); ok {
		if !cached.IsExpired(now) {
			return &cached, nil
		}
		s.cache.Invalidate(sessionID)
		return nil, ErrSessionNotFound
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	session, err := uow.SessionRepository().GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil || session.IsExpired(now) {
		return nil, ErrSessionNotFound
	}

	s.remember(session)
	return session, nil
}

func (s *sessionService) UpdateHighScore(ctx context.Context, sessionID string, highScore int) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.SessionRepository().UpdateHighScore(ctx, sessionID, highScore); err != nil {
		return fmt.Errorf("failed to update session high score: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if cached, ok := s.cache.Peek(sessionID); ok && highScore > cached.HighScore {
		cached.HighScore = highScore
		s.remember(&cached)
	}
	return nil
}

func (s *sessionService) Destroy(ctx context.Context, sessionID string) error {
	s.cache.Invalidate(sessionID)
	if sessionID == "" {
		return nil
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.SessionRepository().Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *sessionService) PurgeExpired(ctx context.Context) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	removed, err := uow.SessionRepository().DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.cache.DeleteExpired()
	return removed, nil
}

// remember caches a copy of the session until it expires or maxCachedSessionAge passes
func (s *sessionService) remember(session *models.Session) {
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return
	}
	if ttl > maxCachedSessionAge {
		ttl = maxCachedSessionAge
	}
	s.cache.Set(session.ID, *session, ttl)
}
