// Package timeouts defines timeout and delay constants for WSJT-X supervision.
package timeouts

import (
	"context"
	"time"
)

const (
	// TX Supervisor Timings

	// TickInterval is the cadence of the supervisor loop while TX is
	// being watched.
	TickInterval = 1 * time.Second

	// TX6Timeout is how long TX may stay enabled on the Tx 6 (CQ) message
	// before the supervisor disables it and pauses.
	TX6Timeout = 150 * time.Second

	// Pause is how long TX stays disabled after a TX6 timeout fires.
	Pause = 120 * time.Second

	// PausePollInterval is how often the pause is re-checked. Polling is
	// less frequent while paused since nothing is clicked.
	PausePollInterval = 15 * time.Second

	// ReportMax is the longest the report radio button (txrb2) may stay
	// selected. It also bounds the grace period that suppresses a TX6 timeout
	// while a signal report is being sent.
	ReportMax = 90 * time.Second

	// Rest is how long TX stays disabled after escaping a stuck report
	// before Tx 6 is clicked again.
	Rest = 30 * time.Second

	// UI Automation Interaction Delays

	// ClickSettle is the delay after clicking a control before its state is
	// read back to verify the click took effect.
	ClickSettle = 500 * time.Millisecond

	// LogQSODelay is how long a "Log QSO" dialog is left open before its OK
	// button is clicked.
	LogQSODelay = 15200 * time.Millisecond

	// Connection Handling

	// ConnectRetryDelay is the delay between attempts to locate the WSJT-X
	// main window.
	ConnectRetryDelay = 3 * time.Second

	// ConnectAttempts bounds the initial search for the WSJT-X window before
	// the command gives up.
	ConnectAttempts = 10

	// ErrorRetryDelay is the delay after a failed tick before the window is
	// re-acquired and polling resumes.
	ErrorRetryDelay = 3 * time.Second

	// DX Call Polling

	// DXCallInterval is how often the DX Call field is read and persisted.
	DXCallInterval = 1 * time.Second

	// Inspection

	// RadioProbeDelay is the delay between radio button reads when dumping
	// txrb1 through txrb6.
	RadioProbeDelay = 200 * time.Millisecond

	// HTTP Server

	// ServerShutdownTimeout bounds graceful HTTP shutdown.
	ServerShutdownTimeout = 5 * time.Second

	// WebsocketWriteTimeout bounds a single websocket frame write.
	WebsocketWriteTimeout = 10 * time.Second
)

// Timer is the part of a clock Wait needs
type Timer interface {
	After(d time.Duration) <-chan time.Time
}

// Wait blocks for d on the given timer, returning early with the context's
// error if ctx is cancelled first
func Wait(ctx context.Context, timer Timer, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if d <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.After(d):
		return nil
	}
}
