package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEventDeliveryIntegration tests the complete event flow from TransactionalBus to main Bus
func TestEventDeliveryIntegration(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	eventReceived := make(chan DiceRolledEvent, 1)
	mainBus.Subscribe(EventTypeDiceRolled, func(ctx context.Context, event Event) {
		if rolled, ok := event.(DiceRolledEvent); ok {
			eventReceived <- rolled
		} else {
			t.Errorf("Expected DiceRolledEvent, got %T", event)
		}
	})

	testEvent := DiceRolledEvent{
		UserID:    42,
		Username:  "alice",
		ScoreID:   7,
		Value:     5,
		HighScore: 5,
		RolledAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	transactionalBus.Publish(testEvent)
	assert.Equal(t, 1, transactionalBus.Pending())

	transactionalBus.Flush(context.Background())
	assert.Equal(t, 0, transactionalBus.Pending())

	select {
	case received := <-eventReceived:
		assert.Equal(t, testEvent, received)
	case <-time.After(2 * time.Second):
		t.Fatal("Event was not received within timeout")
	}
}

// TestMultipleEventsDelivery tests delivering multiple events in sequence
func TestMultipleEventsDelivery(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	eventsReceived := make(chan HighScoreBeatenEvent, 3)
	var wg sync.WaitGroup
	wg.Add(3)

	mainBus.Subscribe(EventTypeHighScoreBeaten, func(ctx context.Context, event Event) {
		defer wg.Done()
		if beaten, ok := event.(HighScoreBeatenEvent); ok {
			eventsReceived <- beaten
		}
	})

	for i := 1; i <= 3; i++ {
		transactionalBus.Publish(HighScoreBeatenEvent{
			UserID:            int64(i),
			Username:          "player",
			PreviousHighScore: i,
			NewHighScore:      i + 1,
		})
	}

	transactionalBus.Flush(context.Background())
	wg.Wait()
	close(eventsReceived)

	// Order may vary since handlers run on their own goroutines
	userIDs := make(map[int64]bool)
	for received := range eventsReceived {
		userIDs[received.UserID] = true
	}
	assert.Len(t, userIDs, 3)
	assert.True(t, userIDs[1])
	assert.True(t, userIDs[2])
	assert.True(t, userIDs[3])
}

// TestTransactionalBusDiscard tests that discarded events are not delivered
func TestTransactionalBusDiscard(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	eventReceived := make(chan bool, 1)
	mainBus.Subscribe(EventTypeUserRegistered, func(ctx context.Context, event Event) {
		eventReceived <- true
	})

	transactionalBus.Publish(UserRegisteredEvent{UserID: 1, Username: "bob"})
	transactionalBus.Discard()
	transactionalBus.Flush(context.Background())

	select {
	case <-eventReceived:
		t.Fatal("Event was received despite being discarded")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBus_OnlyMatchingHandlersReceive(t *testing.T) {
	bus := NewBus()

	loggedIn := make(chan Event, 1)
	registered := make(chan Event, 1)
	bus.Subscribe(EventTypeUserLoggedIn, func(ctx context.Context, event Event) { loggedIn <- event })
	bus.Subscribe(EventTypeUserRegistered, func(ctx context.Context, event Event) { registered <- event })

	bus.Emit(context.Background(), UserLoggedInEvent{UserID: 3, Username: "carol"})

	select {
	case event := <-loggedIn:
		assert.Equal(t, EventTypeUserLoggedIn, event.Type())
	case <-time.After(2 * time.Second):
		t.Fatal("login handler was not called")
	}

	select {
	case <-registered:
		t.Fatal("registration handler should not be called for login events")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBus_PanickingHandlerDoesNotStopOthers(t *testing.T) {
	bus := NewBus()

	done := make(chan struct{})
	bus.Subscribe(EventTypeDiceRolled, func(ctx context.Context, event Event) {
		panic("boom")
	})
	bus.Subscribe(EventTypeDiceRolled, func(ctx context.Context, event Event) {
		close(done)
	})

	require.NotPanics(t, func() {
		bus.Emit(context.Background(), DiceRolledEvent{UserID: 1, Value: 3})
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second handler was not called")
	}
}

func TestTransactionalBus_FlushContextSurvivesCancel(t *testing.T) {
	bus := NewBus()
	transactionalBus := NewTransactionalBus(bus)

	ctxErr := make(chan error, 1)
	bus.Subscribe(EventTypeUserRegistered, func(ctx context.Context, event Event) {
		ctxErr <- ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	transactionalBus.Publish(UserRegisteredEvent{UserID: 9, Username: "dave"})
	transactionalBus.Flush(ctx)
	cancel()

	select {
	case err := <-ctxErr:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not called")
	}
}
