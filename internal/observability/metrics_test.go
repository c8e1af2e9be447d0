package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_IndependentRegistries(t *testing.T) {
	t.Parallel()

	a := NewMetrics(nil)
	b := NewMetrics(nil)

	a.Ticks.Inc()
	assert.Equal(t, 1.0, promtest.ToFloat64(a.Ticks))
	assert.Equal(t, 0.0, promtest.ToFloat64(b.Ticks))
	assert.NotSame(t, a.Registry(), b.Registry())
}

func TestNewMetrics_UsesGivenRegistry(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	assert.Same(t, reg, m.Registry())

	assert.Panics(t, func() { NewMetrics(reg) }, "Registering twice on one registry should panic")
}

func TestSetGauges(t *testing.T) {
	t.Parallel()

	m := NewMetrics(nil)

	m.SetTxEnabled(true)
	m.SetPaused(true)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.TxEnabled))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Paused))

	m.SetTxEnabled(false)
	m.SetPaused(false)
	assert.Equal(t, 0.0, promtest.ToFloat64(m.TxEnabled))
	assert.Equal(t, 0.0, promtest.ToFloat64(m.Paused))
}

func TestObserveHTTP(t *testing.T) {
	t.Parallel()

	m := NewMetrics(nil)
	m.ObserveHTTP("/callsigns", http.StatusOK, 3*time.Millisecond)
	m.ObserveHTTP("/callsigns", http.StatusOK, 7*time.Millisecond)
	m.ObserveHTTP("/file", http.StatusInternalServerError, time.Millisecond)

	assert.Equal(t, 2.0, promtest.ToFloat64(m.HTTPRequests.WithLabelValues("/callsigns", "200")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.HTTPRequests.WithLabelValues("/file", "500")))
	assert.Equal(t, 2, promtest.CollectAndCount(m.HTTPDuration))
}

func TestHandler_Exposition(t *testing.T) {
	t.Parallel()

	m := NewMetrics(nil)
	m.Pauses.Inc()
	m.Reconnects.WithLabelValues("ok").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "txmon_pauses_total 1")
	assert.Contains(t, body, `txmon_reconnects_total{result="ok"} 1`)
	assert.False(t, strings.Contains(body, "go_goroutines"), "Runtime collectors are opt-in")
}

func TestWithRuntimeCollectors(t *testing.T) {
	t.Parallel()

	m := NewMetrics(nil).WithRuntimeCollectors()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
