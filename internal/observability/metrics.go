// Package observability holds the Prometheus instruments shared by the
// supervisor, the DX call poller and the HTTP server.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every txmon metric
const Namespace = "txmon"

// Metrics groups all Prometheus instruments used by txmon.
type Metrics struct {
	Ticks           prometheus.Counter
	TickErrors      prometheus.Counter
	TxEnabled       prometheus.Gauge
	Paused          prometheus.Gauge
	Pauses          prometheus.Counter
	GraceSkips      prometheus.Counter
	ReportResets    prometheus.Counter
	TxRestarts      prometheus.Counter
	LogQSODismissed prometheus.Counter
	Reconnects      *prometheus.CounterVec
	DXCallChanges   prometheus.Counter
	DXCallErrors    prometheus.Counter
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	WSClients       prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics registers every instrument on reg. A nil reg gets a fresh
// registry so that tests and multiple instances never collide.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	f := promauto.With(reg)

	return &Metrics{
		Ticks: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ticks_total",
			Help:      "Supervisor ticks executed.",
		}),
		TickErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "tick_errors_total",
			Help:      "Supervisor ticks that failed and triggered a reconnect.",
		}),
		TxEnabled: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "tx_enabled",
			Help:      "1 while the Enable Tx checkbox was last read as checked.",
		}),
		Paused: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "paused",
			Help:      "1 while a TX6 timeout pause is in effect.",
		}),
		Pauses: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "pauses_total",
			Help:      "TX6 timeouts that disabled TX and started a pause.",
		}),
		GraceSkips: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "report_grace_skips_total",
			Help:      "TX6 timeouts suppressed because a signal report was in progress.",
		}),
		ReportResets: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "report_resets_total",
			Help:      "Stuck signal reports that were reset.",
		}),
		TxRestarts: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "tx_restarts_total",
			Help:      "Times TX was re-enabled after clicking Tx 6.",
		}),
		LogQSODismissed: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "log_qso_dismissed_total",
			Help:      "Log QSO dialogs confirmed.",
		}),
		Reconnects: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "reconnects_total",
			Help:      "Window re-acquisition attempts by result.",
		}, []string{"result"}),
		DXCallChanges: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "dxcall_changes_total",
			Help:      "Changes observed in the DX Call field.",
		}),
		DXCallErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "dxcall_errors_total",
			Help:      "Failed DX Call reads or writes.",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"route"}),
		WSClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "ws_clients",
			Help:      "Connected DX call websocket clients.",
		}),
		registry: reg,
	}
}

// WithRuntimeCollectors adds the Go runtime and process collectors
func (m *Metrics) WithRuntimeCollectors() *Metrics {
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) ObserveHTTP(route string, code int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(float64(d.Milliseconds()))
}

func (m *Metrics) SetTxEnabled(on bool) {
	m.TxEnabled.Set(boolToFloat(on))
}

func (m *Metrics) SetPaused(on bool) {
	m.Paused.Set(boolToFloat(on))
}

// Registry returns the registry the instruments live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}

	return 0
}
