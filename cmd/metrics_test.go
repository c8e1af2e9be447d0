package cmd

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/txmon/internal/observability"
	"github.com/Norgate-AV/txmon/internal/testutil"
)

func TestStartMetrics_ServesSupervisorCounters(t *testing.T) {
	t.Parallel()

	metrics := observability.NewMetrics(nil)
	metrics.Ticks.Add(3)
	metrics.Pauses.Inc()

	log := testutil.NewRecordingLogger()
	ms, err := startMetrics(log, "127.0.0.1:0", metrics)
	require.NoError(t, err)

	resp, err := http.Get("http://" + ms.Addr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "txmon_ticks_total 3")
	assert.Contains(t, string(body), "txmon_pauses_total 1")

	ms.Stop()
	assert.True(t, log.Contains("Serving metrics on http://"+ms.Addr()))

	_, err = http.Get("http://" + ms.Addr() + "/metrics")
	assert.Error(t, err, "Stop closes the listener")
}

func TestStartMetrics_OnlyMetricsRoute(t *testing.T) {
	t.Parallel()

	ms, err := startMetrics(testutil.NewRecordingLogger(), "127.0.0.1:0", observability.NewMetrics(nil))
	require.NoError(t, err)
	defer ms.Stop()

	resp, err := http.Get("http://" + ms.Addr() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStartMetrics_BadAddr(t *testing.T) {
	t.Parallel()

	_, err := startMetrics(testutil.NewRecordingLogger(), "not-an-addr", observability.NewMetrics(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen on not-an-addr")
}
