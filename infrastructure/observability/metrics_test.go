package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"highroll/events"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveRequest(t *testing.T) {
	m := NewMetrics()

	m.ObserveRequest(http.MethodGet, "/roll-dice", http.StatusOK, 15*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/roll-dice", http.StatusOK, 5*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/roll-dice", http.StatusForbidden, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/roll-dice", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/roll-dice", "403")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.httpDuration))
}

func TestMetrics_SubscribeTo(t *testing.T) {
	m := NewMetrics()
	bus := events.NewBus()
	m.SubscribeTo(bus)

	ctx := context.Background()
	bus.Emit(ctx, events.DiceRolledEvent{UserID: 1, Value: 6})
	bus.Emit(ctx, events.DiceRolledEvent{UserID: 1, Value: 6})
	bus.Emit(ctx, events.DiceRolledEvent{UserID: 2, Value: 2})
	bus.Emit(ctx, events.HighScoreBeatenEvent{UserID: 1, NewHighScore: 6})
	bus.Emit(ctx, events.UserRegisteredEvent{UserID: 1})
	bus.Emit(ctx, events.UserLoggedInEvent{UserID: 1})
	bus.Emit(ctx, events.UserLoggedInEvent{UserID: 2})

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.diceRolls.WithLabelValues("6")) == 2 &&
			testutil.ToFloat64(m.diceRolls.WithLabelValues("2")) == 1 &&
			testutil.ToFloat64(m.highScores) == 1 &&
			testutil.ToFloat64(m.registrations) == 1 &&
			testutil.ToFloat64(m.logins) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.ObserveRequest(http.MethodGet, "/health", http.StatusOK, time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), HTTPRequestsTotal)
	assert.Contains(t, string(body), `route="/health"`)
}
