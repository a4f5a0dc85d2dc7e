package events

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeUserRegistered  EventType = "user_registered"
	EventTypeUserLoggedIn    EventType = "user_logged_in"
	EventTypeDiceRolled      EventType = "dice_rolled"
	EventTypeHighScoreBeaten EventType = "high_score_beaten"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// UserRegisteredEvent represents a new user registration
type UserRegisteredEvent struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

func (e UserRegisteredEvent) Type() EventType {
	return EventTypeUserRegistered
}

// UserLoggedInEvent represents a successful login
type UserLoggedInEvent struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

func (e UserLoggedInEvent) Type() EventType {
	return EventTypeUserLoggedIn
}

// DiceRolledEvent represents a recorded dice roll
type DiceRolledEvent struct {
	UserID    int64     `json:"userId"`
	Username  string    `json:"username"`
	ScoreID   int64     `json:"scoreId"`
	Value     int       `json:"value"`
	HighScore int       `json:"highScore"`
	RolledAt  time.Time `json:"rolledAt"`
}

func (e DiceRolledEvent) Type() EventType {
	return EventTypeDiceRolled
}

// HighScoreBeatenEvent represents a user improving their high score
type HighScoreBeatenEvent struct {
	UserID            int64  `json:"userId"`
	Username          string `json:"username"`
	PreviousHighScore int    `json:"previousHighScore"`
	NewHighScore      int    `json:"newHighScore"`
}

func (e HighScoreBeatenEvent) Type() EventType {
	return EventTypeHighScoreBeaten
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers.
// Handlers run on their own goroutines; a panicking handler is logged and dropped.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds events raised inside a unit of work until the
// transaction commits, then flushes them to the underlying bus.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Adding event to transactional bus pending queue")
	b.pending = append(b.pending, e)
}

// Flush is called after a successful commit.
func (b *TransactionalBus) Flush(ctx context.Context) {
	log.WithField("pendingEventCount", len(b.pending)).Debug("Flushing pending events to main event bus")

	// Handlers outlive the request that committed the transaction
	eventCtx := context.WithoutCancel(ctx)

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard is called after a rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}

// Pending returns the number of events waiting for Flush
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}
