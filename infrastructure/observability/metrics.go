package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"highroll/events"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Metrics holds the Prometheus registry and instruments for the service
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	diceRolls     *prometheus.CounterVec
	highScores    prometheus.Counter
	registrations prometheus.Counter
	logins        prometheus.Counter
}

// NewMetrics creates a registry with process and Go collectors plus the service instruments
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: HTTPRequestsTotal,
			Help: "HTTP requests by method, route and status code.",
		}, []string{LabelMethod, LabelRoute, LabelStatus}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    HTTPRequestDuration,
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{LabelMethod, LabelRoute}),
		diceRolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: DiceRollsTotal,
			Help: "Recorded dice rolls by face.",
		}, []string{LabelFace}),
		highScores: prometheus.NewCounter(prometheus.CounterOpts{
			Name: HighScoresTotal,
			Help: "Times a user beat their own high score.",
		}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: RegistrationsTotal,
			Help: "Registered users.",
		}),
		logins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: LoginsTotal,
			Help: "Successful logins.",
		}),
	}

	registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.diceRolls,
		m.highScores,
		m.registrations,
		m.logins,
	)

	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records a finished HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// SubscribeTo feeds the game counters from committed domain events
func (m *Metrics) SubscribeTo(bus *events.Bus) {
	bus.Subscribe(events.EventTypeDiceRolled, func(_ context.Context, e events.Event) {
		if rolled, ok := e.(events.DiceRolledEvent); ok {
			m.diceRolls.WithLabelValues(strconv.Itoa(rolled.Value)).Inc()
		}
	})
	bus.Subscribe(events.EventTypeHighScoreBeaten, func(context.Context, events.Event) {
		m.highScores.Inc()
	})
	bus.Subscribe(events.EventTypeUserRegistered, func(context.Context, events.Event) {
		m.registrations.Inc()
	})
	bus.Subscribe(events.EventTypeUserLoggedIn, func(context.Context, events.Event) {
		m.logins.Inc()
	})

	log.Debug("Metrics subscribed to event bus")
}
