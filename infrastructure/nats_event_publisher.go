package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"highroll/events"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// EventStreamName is the JetStream stream holding mirrored events
const EventStreamName = "highroll_events"

var eventSubjects = map[events.EventType]string{
	events.EventTypeUserRegistered:  "highroll.users.registered",
	events.EventTypeUserLoggedIn:    "highroll.users.logged_in",
	events.EventTypeDiceRolled:      "highroll.dice.rolled",
	events.EventTypeHighScoreBeaten: "highroll.dice.high_score",
}

// MessagePublisher sends raw payloads to a subject
type MessagePublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// EventEnvelope wraps a serialized event on the wire
type EventEnvelope struct {
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"sourceService"`
	Payload       json.RawMessage `json:"payload"`
}

// NATSEventPublisher mirrors committed bus events to NATS subjects
type NATSEventPublisher struct {
	client MessagePublisher
	now    func() time.Time
}

// NewNATSEventPublisher creates a new NATS event publisher
func NewNATSEventPublisher(client MessagePublisher) *NATSEventPublisher {
	return &NATSEventPublisher{
		client: client,
		now:    time.Now,
	}
}

// SubjectFor returns the subject for an event type
func SubjectFor(eventType events.EventType) (string, bool) {
	subject, ok := eventSubjects[eventType]
	return subject, ok
}

// AllSubjects lists every subject events are published to
func AllSubjects() []string {
	subjects := make([]string, 0, len(eventSubjects))
	for _, s := range eventSubjects {
		subjects = append(subjects, s)
	}
	return subjects
}

// SubscribeTo forwards every mapped event type from the bus
func (p *NATSEventPublisher) SubscribeTo(bus *events.Bus) {
	for eventType := range eventSubjects {
		bus.Subscribe(eventType, func(ctx context.Context, e events.Event) {
			if err := p.Publish(ctx, e); err != nil {
				log.WithField("eventType", e.Type()).WithError(err).Error("Failed to publish event to NATS")
			}
		})
	}
}

// Publish serializes the event into an envelope and sends it
func (p *NATSEventPublisher) Publish(ctx context.Context, event events.Event) error {
	subject, ok := SubjectFor(event.Type())
	if !ok {
		return fmt.Errorf("no subject for event type %s", event.Type())
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     string(event.Type()),
		Timestamp:     p.now().UTC(),
		SourceService: "highroll",
		Payload:       payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	if err := p.client.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Published event to NATS")

	return nil
}
