// Package server exposes the WSJT-X log and the live DX call over HTTP for
// the browser extension.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/Norgate-AV/txmon/internal/adif"
	"github.com/Norgate-AV/txmon/internal/dxcall"
	"github.com/Norgate-AV/txmon/internal/logger"
	"github.com/Norgate-AV/txmon/internal/observability"
	"github.com/Norgate-AV/txmon/internal/timeouts"
	"github.com/Norgate-AV/txmon/internal/version"
)

// DXSource provides the most recent DX call
type DXSource interface {
	Last() dxcall.Update
}

// Options configures the server
type Options struct {
	Addr      string
	ADIFPath  string
	EnableWS  bool
	ReadLimit int64
	RunID     string
}

type Server struct {
	log      logger.LoggerInterface
	opts     Options
	metrics  *observability.Metrics
	dx       DXSource
	hub      *Hub
	upgrader websocket.Upgrader
}

// New creates a server. dx may be nil when the DX call is not being watched.
func New(log logger.LoggerInterface, opts Options, metrics *observability.Metrics, dx DXSource) *Server {
	if metrics == nil {
		metrics = observability.NewMetrics(nil)
	}

	return &Server{
		log:     log,
		opts:    opts,
		metrics: metrics,
		dx:      dx,
		hub:     NewHub(log, metrics),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The extension connects from its own origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Hub returns the websocket hub DX call changes are published to
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors)
	r.Use(s.instrument)

	r.Get("/file", s.handleFile)
	r.Get("/callsigns", s.handleCallsigns)
	r.Get("/callsigns/{call}", s.handleCallsign)
	r.Get("/dxcall", s.handleDXCall)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	if s.opts.EnableWS {
		r.Get("/ws", s.handleWS)
	}

	return r
}

// ListenAndServe serves on Addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.Addr, err)
	}

	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info(fmt.Sprintf("Server running at http://%s", ln.Addr()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down server...")
	s.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.ServerShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}

func (s *Server) handleFile(w http.ResponseWriter, _ *http.Request) {
	data, err := os.ReadFile(s.opts.ADIFPath)
	if err != nil {
		s.log.Error("Error reading file", slog.String("path", s.opts.ADIFPath), slog.Any("error", err))
		http.Error(w, "Error reading file", http.StatusInternalServerError)
		return
	}

	s.log.Debug("Sending data", slog.Int("bytes", len(data)))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(data)
}

func (s *Server) loadIndex(w http.ResponseWriter) (*adif.Index, bool) {
	records, err := adif.ParseFile(s.opts.ADIFPath)
	if err != nil {
		s.log.Error("Error reading log", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "log_unreadable", "Error reading file")
		return nil, false
	}

	return adif.NewIndex(records), true
}

func (s *Server) handleCallsigns(w http.ResponseWriter, _ *http.Request) {
	idx, ok := s.loadIndex(w)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"callsigns": idx.Callsigns()})
}

func (s *Server) handleCallsign(w http.ResponseWriter, r *http.Request) {
	call := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "call")))
	if call == "" {
		respondError(w, http.StatusBadRequest, "invalid_call", "missing callsign")
		return
	}

	idx, ok := s.loadIndex(w)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"call":   call,
		"worked": idx.Worked(call),
		"qsos":   idx.QSOs(call),
	})
}

func (s *Server) handleDXCall(w http.ResponseWriter, _ *http.Request) {
	if s.dx == nil {
		respondError(w, http.StatusServiceUnavailable, "unavailable", "DX call is not being watched")
		return
	}

	respondJSON(w, http.StatusOK, s.dx.Last())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"run_id":  s.opts.RunID,
		"version": version.GetVersion(),
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	var current dxcall.Update
	if s.dx != nil {
		current = s.dx.Last()
	}

	c := s.hub.Add(conn, current)
	defer s.hub.Remove(c)

	if s.opts.ReadLimit > 0 {
		conn.SetReadLimit(s.opts.ReadLimit)
	}

	// Clients only listen; reading detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// instrument records request counts and latency by route pattern
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		s.metrics.ObserveHTTP(route, status, time.Since(start))
	})
}

// cors allows any origin, answering preflight requests directly
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", "GET,HEAD,PUT,PATCH,POST,DELETE")
			if headers := r.Header.Get("Access-Control-Request-Headers"); headers != "" {
				h.Set("Access-Control-Allow-Headers", headers)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
