package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// ErrNATSNotConnected is returned by NATSClient calls made before Connect or after Close
var ErrNATSNotConnected = errors.New("not connected to NATS")

const (
	natsClientName     = "highroll"
	natsReconnectWait  = 2 * time.Second
	natsMaxReconnects  = 10
	eventStreamMaxAge  = 24 * time.Hour
	eventStreamSummary = "HighRoll game events"
)

// NATSClient is a JetStream publishing connection for game events
type NATSClient struct {
	url string

	mu sync.RWMutex
	nc *nats.Conn
	js nats.JetStreamContext
}

func NewNATSClient(url string) *NATSClient {
	return &NATSClient{url: url}
}

// Connect dials the server and opens a JetStream context
func (c *NATSClient) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	nc, err := nats.Connect(c.url,
		nats.Name(natsClientName),
		nats.MaxReconnects(natsMaxReconnects),
		nats.ReconnectWait(natsReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.WithError(err).Warn("Lost NATS connection")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("server", nc.ConnectedUrl()).Info("Reconnected to NATS")
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", c.url, err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return fmt.Errorf("failed to open JetStream: %w", err)
	}

	c.mu.Lock()
	c.nc, c.js = nc, js
	c.mu.Unlock()

	log.WithField("url", c.url).Info("Connected to NATS")
	return nil
}

func (c *NATSClient) jetStream() (nats.JetStreamContext, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.js == nil {
		return nil, ErrNATSNotConnected
	}
	return c.js, nil
}

// eventStreamConfig describes the stream that retains published game events for a day
func eventStreamConfig(name string, subjects []string) *nats.StreamConfig {
	return &nats.StreamConfig{
		Name:        name,
		Description: eventStreamSummary,
		Subjects:    subjects,
		Retention:   nats.LimitsPolicy,
		Storage:     nats.FileStorage,
		MaxAge:      eventStreamMaxAge,
		Replicas:    1,
	}
}

// EnsureStream creates the named stream unless it already exists
func (c *NATSClient) EnsureStream(name string, subjects []string) error {
	js, err := c.jetStream()
	if err != nil {
		return err
	}

	_, err = js.StreamInfo(name)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, nats.ErrStreamNotFound):
		return fmt.Errorf("failed to look up stream %s: %w", name, err)
	}

	if _, err := js.AddStream(eventStreamConfig(name, subjects)); err != nil {
		return fmt.Errorf("failed to create stream %s: %w", name, err)
	}
	log.WithFields(log.Fields{"stream": name, "subjects": subjects}).Info("Created event stream")
	return nil
}

// Publish sends data to subject and waits for the JetStream ack
func (c *NATSClient) Publish(ctx context.Context, subject string, data []byte) error {
	js, err := c.jetStream()
	if err != nil {
		return err
	}
	if _, err := js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

func (c *NATSClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nc != nil && c.nc.IsConnected()
}

// Close drains pending publishes and drops the connection. Closing twice is a no-op.
func (c *NATSClient) Close() error {
	c.mu.Lock()
	nc := c.nc
	c.nc, c.js = nil, nil
	c.mu.Unlock()

	if nc == nil {
		return nil
	}
	if err := nc.Drain(); err != nil {
		nc.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}
