package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingSessionService struct {
	MockSessionService
	purges atomic.Int32
	err    error
}

func (s *countingSessionService) PurgeExpired(ctx context.Context) (int64, error) {
	s.purges.Add(1)
	if s.err != nil {
		return 0, s.err
	}
	return 2, nil
}

func TestStartSessionCleanupWorker_PurgesImmediatelyAndOnTick(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessions := &countingSessionService{}

	stop := StartSessionCleanupWorker(ctx, sessions, 20*time.Millisecond)
	defer stop()

	assert.Eventually(t, func() bool {
		return sessions.purges.Load() >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestStartSessionCleanupWorker_SurvivesErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessions := &countingSessionService{err: errors.New("db down")}

	stop := StartSessionCleanupWorker(ctx, sessions, 10*time.Millisecond)
	defer stop()

	assert.Eventually(t, func() bool {
		return sessions.purges.Load() >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestStartSessionCleanupWorker_StopsOnStopFunc(t *testing.T) {
	sessions := &countingSessionService{}

	stop := StartSessionCleanupWorker(context.Background(), sessions, time.Hour)

	assert.Eventually(t, func() bool {
		return sessions.purges.Load() == 1
	}, time.Second, 5*time.Millisecond)

	stop()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), sessions.purges.Load())
}

func TestStartSessionCleanupWorker_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sessions := &countingSessionService{}

	stop := StartSessionCleanupWorker(ctx, sessions, 10*time.Millisecond)
	defer stop()

	assert.Eventually(t, func() bool {
		return sessions.purges.Load() >= 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	time.Sleep(30 * time.Millisecond)
	seen := sessions.purges.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, seen, sessions.purges.Load())
}
