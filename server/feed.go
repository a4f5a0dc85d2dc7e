package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"highroll/events"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	feedSendBuffer = 64
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = (feedPongWait * 9) / 10
)

// FeedMessage is one event pushed to feed subscribers
type FeedMessage struct {
	Type events.EventType `json:"type"`
	Data events.Event     `json:"data"`
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Feed pushes roll and high score events to connected websocket clients
type Feed struct {
	mu       sync.Mutex
	clients  map[*feedClient]struct{}
	upgrader websocket.Upgrader
	closed   bool
}

// NewFeed creates a feed. Cross-origin connections are accepted only from allowedOrigins.
func NewFeed(allowedOrigins []string) *Feed {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}

	return &Feed{
		clients: make(map[*feedClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				if _, ok := origins[origin]; ok {
					return true
				}
				u, err := url.Parse(origin)
				return err == nil && u.Host == r.Host
			},
		},
	}
}

// SubscribeTo forwards committed roll and high score events to the feed
func (f *Feed) SubscribeTo(bus *events.Bus) {
	forward := func(_ context.Context, e events.Event) {
		f.Broadcast(FeedMessage{Type: e.Type(), Data: e})
	}
	bus.Subscribe(events.EventTypeDiceRolled, forward)
	bus.Subscribe(events.EventTypeHighScoreBeaten, forward)
}

// Broadcast sends msg to every client. Clients with a full buffer miss the message.
func (f *Feed) Broadcast(msg FeedMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.WithError(err).Error("Failed to encode feed message")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for c := range f.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

// ClientCount returns the number of connected clients
func (f *Feed) ClientCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// ServeHTTP upgrades the request and keeps the connection until the client leaves
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("Feed upgrade failed")
		return
	}

	c := &feedClient{conn: conn, send: make(chan []byte, feedSendBuffer)}
	if !f.register(c) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
		conn.Close()
		return
	}

	go c.writer()
	c.reader()
	f.unregister(c)
}

// Close disconnects every client and rejects new ones
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	for c := range f.clients {
		delete(f.clients, c)
		close(c.send)
	}
}

func (f *Feed) register(c *feedClient) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.clients[c] = struct{}{}
	return true
}

func (f *Feed) unregister(c *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.clients[c]; ok {
		delete(f.clients, c)
		close(c.send)
	}
}

// reader discards client messages and returns when the connection drops
func (c *feedClient) reader() {
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *feedClient) writer() {
	ticker := time.NewTicker(feedPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
