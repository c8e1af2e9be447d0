// Package dxcall mirrors the WSJT-X DX Call field into a text file and
// notifies subscribers when it changes.
package dxcall

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/Norgate-AV/txmon/internal/interfaces"
	"github.com/Norgate-AV/txmon/internal/logger"
	"github.com/Norgate-AV/txmon/internal/observability"
	"github.com/Norgate-AV/txmon/internal/timeouts"
	"github.com/Norgate-AV/txmon/internal/windows"
)

// Update is an observed DX call value
type Update struct {
	Call      string    `json:"call"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Options configures a Poller
type Options struct {
	Control  windows.Control
	File     string
	Interval time.Duration
}

// Poller reads the DX Call field on an interval
type Poller struct {
	log     logger.LoggerInterface
	src     interfaces.TextSource
	clock   interfaces.Clock
	metrics *observability.Metrics
	opts    Options

	mu   sync.RWMutex
	last Update

	subsMu sync.Mutex
	subs   []func(Update)
}

// NewPoller creates a poller. clock and metrics may be nil.
func NewPoller(log logger.LoggerInterface, src interfaces.TextSource, opts Options, clock interfaces.Clock, metrics *observability.Metrics) *Poller {
	if clock == nil {
		clock = interfaces.SystemClock{}
	}

	if metrics == nil {
		metrics = observability.NewMetrics(nil)
	}

	if opts.Interval <= 0 {
		opts.Interval = timeouts.DXCallInterval
	}

	return &Poller{
		log:     log,
		src:     src,
		clock:   clock,
		metrics: metrics,
		opts:    opts,
	}
}

// OnChange registers fn to be called with every new value
func (p *Poller) OnChange(fn func(Update)) {
	p.subsMu.Lock()
	defer p.subsMu.Unlock()

	p.subs = append(p.subs, fn)
}

// Last returns the most recently observed value
func (p *Poller) Last() Update {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.last
}

// Poll reads the field once and writes it to the output file. Subscribers
// are notified only when the value differs from the previous one.
func (p *Poller) Poll() (string, error) {
	call, err := p.src.Text(p.opts.Control)
	if err != nil {
		p.metrics.DXCallErrors.Inc()
		return "", fmt.Errorf("read DX call: %w", err)
	}

	if err := os.WriteFile(p.opts.File, []byte(call), 0o644); err != nil {
		p.metrics.DXCallErrors.Inc()
		return call, fmt.Errorf("write %s: %w", p.opts.File, err)
	}

	p.mu.Lock()
	changed := call != p.last.Call
	if changed {
		p.last = Update{Call: call, UpdatedAt: p.clock.Now()}
	}
	update := p.last
	p.mu.Unlock()

	if changed {
		p.log.Debug("DX call changed", slog.String("call", call))
		p.metrics.DXCallChanges.Inc()
		p.notify(update)
	}

	return call, nil
}

func (p *Poller) notify(u Update) {
	p.subsMu.Lock()
	subs := make([]func(Update), len(p.subs))
	copy(subs, p.subs)
	p.subsMu.Unlock()

	for _, fn := range subs {
		fn(u)
	}
}

// Run polls until ctx is cancelled. A failed read re-acquires the window and
// polling carries on.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Info("Writing DX call to " + p.opts.File)

	for {
		if _, err := p.Poll(); err != nil {
			p.log.Warn("Error occurred", slog.Any("error", err))

			if err := p.src.Reconnect(ctx); err != nil {
				p.log.Debug("Reconnect failed", slog.Any("error", err))
			}
		}

		if err := timeouts.Wait(ctx, p.clock, p.opts.Interval); err != nil {
			return nil
		}
	}
}
