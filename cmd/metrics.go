package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Norgate-AV/txmon/internal/logger"
	"github.com/Norgate-AV/txmon/internal/observability"
	"github.com/Norgate-AV/txmon/internal/timeouts"
)

// metricsServer exposes the supervisor's registry while the monitor runs
type metricsServer struct {
	srv  *http.Server
	ln   net.Listener
	done chan struct{}
}

// startMetrics binds addr and serves /metrics in the background. Binding
// happens up front so a bad address fails the command before monitoring.
func startMetrics(log logger.LoggerInterface, addr string, metrics *observability.Metrics) (*metricsServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	m := &metricsServer{
		srv:  &http.Server{Handler: r, ReadHeaderTimeout: 10 * time.Second},
		ln:   ln,
		done: make(chan struct{}),
	}

	go func() {
		defer close(m.done)

		log.Info("Serving metrics on http://" + ln.Addr().String() + "/metrics")
		if err := m.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server stopped", slog.Any("error", err))
		}
	}()

	return m, nil
}

// Addr is the bound listen address
func (m *metricsServer) Addr() string {
	return m.ln.Addr().String()
}

// Stop shuts the server down gracefully, closing it if that times out
func (m *metricsServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.ServerShutdownTimeout)
	defer cancel()

	if err := m.srv.Shutdown(ctx); err != nil {
		_ = m.srv.Close()
	}

	<-m.done
}
