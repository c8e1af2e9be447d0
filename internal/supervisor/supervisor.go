// Package supervisor keeps WSJT-X transmitting: it re-enables TX when it
// drops, pauses after TX has sat on Tx 6 too long, and resets signal reports
// that never complete.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Norgate-AV/txmon/internal/interfaces"
	"github.com/Norgate-AV/txmon/internal/logger"
	"github.com/Norgate-AV/txmon/internal/observability"
	"github.com/Norgate-AV/txmon/internal/timeouts"
	"github.com/Norgate-AV/txmon/internal/windows"
	"github.com/Norgate-AV/txmon/internal/wsjtx"
)

const clockLayout = "15:04:05"

// TxSession is the timer state owned by the supervisor loop. Nil fields are unset.
type TxSession struct {
	RunID           uuid.UUID
	TX6StartedAt    *time.Time
	ReportStartedAt *time.Time
	PausedUntil     *time.Time
}

// NewTxSession creates an empty session with a fresh run id
func NewTxSession() *TxSession {
	return &TxSession{RunID: uuid.New()}
}

// Paused reports whether a pause is in effect at now
func (s TxSession) Paused(now time.Time) bool {
	return s.PausedUntil != nil && now.Before(*s.PausedUntil)
}

func (s *TxSession) clearTimers() {
	s.TX6StartedAt = nil
	s.ReportStartedAt = nil
}

// Settings are the controls and timings the supervisor works with
type Settings struct {
	EnableTx windows.Control
	Tx6      windows.Control
	Report   windows.Control

	TickInterval      time.Duration
	TX6Timeout        time.Duration
	Pause             time.Duration
	PausePollInterval time.Duration
	ReportMax         time.Duration
	Rest              time.Duration
	ClickSettle       time.Duration
	ErrorRetryDelay   time.Duration

	DismissLogQSO bool
	CloseAlerts   bool
}

// DefaultSettings returns the stock WSJT-X controls and timings
func DefaultSettings() Settings {
	return Settings{
		EnableTx:          wsjtx.EnableTx,
		Tx6:               wsjtx.Tx6,
		Report:            wsjtx.Report,
		TickInterval:      timeouts.TickInterval,
		TX6Timeout:        timeouts.TX6Timeout,
		Pause:             timeouts.Pause,
		PausePollInterval: timeouts.PausePollInterval,
		ReportMax:         timeouts.ReportMax,
		Rest:              timeouts.Rest,
		ClickSettle:       timeouts.ClickSettle,
		ErrorRetryDelay:   timeouts.ErrorRetryDelay,
		DismissLogQSO:     true,
		CloseAlerts:       true,
	}
}

// Dependencies holds all external dependencies for the supervisor
type Dependencies struct {
	Window  interfaces.TxWindow
	Clock   interfaces.Clock
	Metrics *observability.Metrics
	RunID   uuid.UUID // generated when zero
}

// Supervisor runs the TX polling loop against one WSJT-X window
type Supervisor struct {
	log      logger.LoggerInterface
	settings Settings
	deps     *Dependencies
	session  *TxSession
}

// NewSupervisor creates a supervisor for a connected App using the real clock
func NewSupervisor(log logger.LoggerInterface, app *wsjtx.App, settings Settings, metrics *observability.Metrics, runID uuid.UUID) *Supervisor {
	return NewSupervisorWithDeps(log, settings, &Dependencies{
		Window:  app,
		Clock:   interfaces.SystemClock{},
		Metrics: metrics,
		RunID:   runID,
	})
}

// NewSupervisorWithDeps creates a supervisor with injected dependencies (for testing)
func NewSupervisorWithDeps(log logger.LoggerInterface, settings Settings, deps *Dependencies) *Supervisor {
	if deps.Clock == nil {
		deps.Clock = interfaces.SystemClock{}
	}

	if deps.Metrics == nil {
		deps.Metrics = observability.NewMetrics(nil)
	}

	session := NewTxSession()
	if deps.RunID != uuid.Nil {
		session.RunID = deps.RunID
	}

	return &Supervisor{
		log:      log,
		settings: settings,
		deps:     deps,
		session:  session,
	}
}

// Session returns a copy of the current session state
func (s *Supervisor) Session() TxSession {
	return *s.session
}

// Run ticks until ctx is cancelled. Tick errors are logged, followed by a
// delay and an attempt to re-acquire the window; they never end the loop.
func (s *Supervisor) Run(ctx context.Context) error {
	s.log.Info("Starting continuous monitoring of 'Enable Tx' checkbox...",
		slog.String(logger.RunIDKey, s.session.RunID.String()),
	)
	s.log.Info("Press Ctrl+C to stop monitoring.")

	for {
		if ctx.Err() != nil {
			s.log.Info("Monitoring stopped by user (Ctrl+C).")
			return nil
		}

		wait, err := s.Tick(ctx, s.deps.Clock.Now())
		s.deps.Metrics.Ticks.Inc()

		if err != nil {
			if ctx.Err() != nil {
				continue
			}

			s.log.Error("Error during check", slog.Any("error", err))
			s.log.Info(fmt.Sprintf("Will retry in %s...", s.settings.ErrorRetryDelay))
			s.deps.Metrics.TickErrors.Inc()

			if err := timeouts.Wait(ctx, s.deps.Clock, s.settings.ErrorRetryDelay); err != nil {
				continue
			}

			s.reconnect(ctx)
			continue
		}

		_ = timeouts.Wait(ctx, s.deps.Clock, wait)
	}
}

func (s *Supervisor) reconnect(ctx context.Context) {
	if err := s.deps.Window.Reconnect(ctx); err != nil {
		s.deps.Metrics.Reconnects.WithLabelValues("failed").Inc()
		s.log.Warn("WSJT-X window not found; will retry after the next failure", slog.Any("error", err))
		return
	}

	s.deps.Metrics.Reconnects.WithLabelValues("ok").Inc()
}

// Tick performs one supervision step at now and returns how long to wait
// before the next one.
func (s *Supervisor) Tick(ctx context.Context, now time.Time) (time.Duration, error) {
	sess := s.session

	if sess.PausedUntil != nil {
		if now.Before(*sess.PausedUntil) {
			remaining := sess.PausedUntil.Sub(now)
			s.log.Info(fmt.Sprintf("Still in pause mode. %.1f seconds remaining.", remaining.Seconds()))
			return min(s.settings.PausePollInterval, remaining), nil
		}

		if err := s.resume(ctx); err != nil {
			return 0, err
		}
	}

	enabled, err := s.deps.Window.ToggleState(s.settings.EnableTx)
	if err != nil {
		return 0, fmt.Errorf("read '%s': %w", s.settings.EnableTx.Label(), err)
	}

	s.deps.Metrics.SetTxEnabled(enabled)

	if enabled && sess.TX6StartedAt != nil {
		elapsed := now.Sub(*sess.TX6StartedAt)

		if elapsed > s.settings.TX6Timeout {
			paused, err := s.timeout(ctx, now, elapsed)
			if err != nil {
				return 0, err
			}

			if paused {
				return min(s.settings.PausePollInterval, s.settings.Pause), nil
			}
		}
	}

	if enabled {
		if sess.TX6StartedAt == nil {
			started := now
			sess.TX6StartedAt = &started
			s.log.Info("Started tracking TX6 button activity at " + now.Format(clockLayout))
		}
	} else {
		if err := s.restartTx(ctx); err != nil {
			return 0, err
		}
	}

	if err := s.checkReport(ctx, now); err != nil {
		return 0, err
	}

	return s.settings.TickInterval, nil
}

// resume ends an elapsed pause and re-enables TX
func (s *Supervisor) resume(ctx context.Context) error {
	sess := s.session

	s.log.Info(fmt.Sprintf("Completed %s pause after TX6 timeout. Resuming normal operation.", s.settings.Pause))
	sess.PausedUntil = nil
	sess.clearTimers()
	s.deps.Metrics.SetPaused(false)

	enabled, err := s.deps.Window.ToggleState(s.settings.EnableTx)
	if err != nil {
		return fmt.Errorf("read '%s' after pause: %w", s.settings.EnableTx.Label(), err)
	}

	if enabled {
		return nil
	}

	s.log.Info("Re-enabling TX...")

	ok, err := s.deps.Window.SetToggle(ctx, s.settings.EnableTx, true)
	if err != nil {
		return fmt.Errorf("re-enable TX after pause: %w", err)
	}

	if ok {
		s.log.Info("Successfully re-enabled TX after pause period.")
	}

	return nil
}

// timeout handles TX having been enabled longer than TX6Timeout. It reports
// whether a pause was started; a signal report in progress gets a grace
// period instead.
func (s *Supervisor) timeout(ctx context.Context, now time.Time, elapsed time.Duration) (bool, error) {
	sess := s.session

	inReport, err := s.deps.Window.ToggleState(s.settings.Report)
	if err != nil {
		s.log.Warn("Error checking report mode state", slog.Any("error", err))
		inReport = false
	}

	// Grace needs a measured report time; a report first seen here pauses
	if inReport && sess.ReportStartedAt != nil {
		inReportFor := now.Sub(*sess.ReportStartedAt)
		if inReportFor < s.settings.ReportMax {
			s.log.Info(fmt.Sprintf(
				"TX6 timeout detected but we're in report mode for less than %s (%.1fs), continuing without pause",
				s.settings.ReportMax, inReportFor.Seconds(),
			))
			s.deps.Metrics.GraceSkips.Inc()
			return false, nil
		}

		s.log.Info("In report mode but exceeded time limit, proceeding with TX timeout pause")
	} else if inReport {
		s.log.Info("In report mode with no recorded start, proceeding with TX timeout pause")
	} else {
		s.log.Info("Not in report mode, proceeding with TX timeout pause")
	}

	s.log.Info(fmt.Sprintf("TX6 has been active for %.1f seconds, which exceeds %s", elapsed.Seconds(), s.settings.TX6Timeout))
	s.log.Info(fmt.Sprintf("Initiating %s pause and disabling TX...", s.settings.Pause))
	s.log.Info("Clicking 'Enable Tx' checkbox to stop TX...")

	ok, err := s.deps.Window.SetToggle(ctx, s.settings.EnableTx, false)
	if err != nil {
		return false, fmt.Errorf("disable TX for pause: %w", err)
	}

	if ok {
		s.log.Info("Successfully disabled TX for pause period.")
	}

	until := now.Add(s.settings.Pause)
	sess.PausedUntil = &until
	s.deps.Metrics.Pauses.Inc()
	s.deps.Metrics.SetPaused(true)
	s.log.Info(fmt.Sprintf("Beginning %s pause at %s", s.settings.Pause, now.Format(clockLayout)))

	return true, nil
}

// restartTx handles TX found disabled: clear the TX6 timer, confirm any
// pending Log QSO dialog, then click Tx 6 and Enable Tx. The TX6 timer is
// started by the next enabled tick rather than at the click, so a timeout
// fires at most one TickInterval later than the click time would give.
func (s *Supervisor) restartTx(ctx context.Context) error {
	sess := s.session

	s.log.Info("'Enable Tx' is not checked.")

	if sess.TX6StartedAt != nil {
		s.log.Info("TX disabled, resetting TX6 timer.")
		sess.TX6StartedAt = nil
	}

	if s.settings.DismissLogQSO {
		found, err := s.deps.Window.DismissLogQSO(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			s.log.Warn("Error handling Log QSO window", slog.Any("error", err))
		}

		if found && err == nil {
			s.deps.Metrics.LogQSODismissed.Inc()

			if s.settings.CloseAlerts {
				s.deps.Window.CloseAlerts()
			}
		}
	}

	s.log.Info("Clicking 'Tx 6' button first...")
	if err := s.deps.Window.Click(s.settings.Tx6); err != nil {
		return fmt.Errorf("click '%s': %w", s.settings.Tx6.Label(), err)
	}

	if err := timeouts.Wait(ctx, s.deps.Clock, s.settings.ClickSettle); err != nil {
		return err
	}

	s.log.Info("Now clicking 'Enable Tx' checkbox...")

	ok, err := s.deps.Window.SetToggle(ctx, s.settings.EnableTx, true)
	if err != nil {
		return fmt.Errorf("enable TX: %w", err)
	}

	if ok {
		s.log.Info("Successfully enabled TX after clicking 'Tx 6'.")
		s.deps.Metrics.TxRestarts.Inc()
	}

	return nil
}

// checkReport tracks how long the report radio button has been selected and
// resets a report that has run past ReportMax
func (s *Supervisor) checkReport(ctx context.Context, now time.Time) error {
	sess := s.session

	inReport, err := s.deps.Window.ToggleState(s.settings.Report)
	if err != nil {
		if errors.Is(err, wsjtx.ErrNotConnected) {
			return err
		}

		s.log.Warn(fmt.Sprintf("Error checking RadioButton '%s'", s.settings.Report.Label()), slog.Any("error", err))
		return nil
	}

	if !inReport {
		if sess.ReportStartedAt != nil {
			s.log.Info("No longer in report mode, resetting timer.")
			sess.ReportStartedAt = nil
		}

		return nil
	}

	if sess.ReportStartedAt == nil {
		started := now
		sess.ReportStartedAt = &started
		s.log.Info("Responding with signal report")
		s.log.Info("Started tracking time in report mode at " + now.Format(clockLayout))
		return nil
	}

	inReportFor := now.Sub(*sess.ReportStartedAt)
	s.log.Debug("Responding with signal report", slog.Duration("elapsed", inReportFor))

	if inReportFor <= s.settings.ReportMax {
		return nil
	}

	return s.resetReport(ctx, inReportFor)
}

// resetReport escapes a stuck signal report: disable TX, rest, click Tx 6
func (s *Supervisor) resetReport(ctx context.Context, inReportFor time.Duration) error {
	s.log.Info(fmt.Sprintf("Been in report mode for %.1f seconds, which exceeds %s", inReportFor.Seconds(), s.settings.ReportMax))
	s.log.Info("Taking action to reset stuck state...")

	enabled, err := s.deps.Window.ToggleState(s.settings.EnableTx)
	if err != nil {
		return fmt.Errorf("read '%s' before report reset: %w", s.settings.EnableTx.Label(), err)
	}

	if enabled {
		s.log.Info("Clicking 'Enable Tx' checkbox to stop TX...")

		ok, err := s.deps.Window.SetToggle(ctx, s.settings.EnableTx, false)
		if err != nil {
			return fmt.Errorf("disable TX for report reset: %w", err)
		}

		if ok {
			s.log.Info("Successfully disabled TX to reset from stuck state.")
		}
	}

	s.log.Info(fmt.Sprintf("Waiting %s before resuming normal operation...", s.settings.Rest))
	if err := timeouts.Wait(ctx, s.deps.Clock, s.settings.Rest); err != nil {
		return err
	}

	s.log.Info("Resuming normal operation after reset.")
	s.log.Info("Clicking 'Tx 6' button after reset...")

	if err := s.deps.Window.Click(s.settings.Tx6); err != nil {
		s.log.Warn("Error clicking Tx 6 button after reset", slog.Any("error", err))
	} else if err := timeouts.Wait(ctx, s.deps.Clock, s.settings.ClickSettle); err != nil {
		return err
	}

	s.session.ReportStartedAt = nil
	s.deps.Metrics.ReportResets.Inc()

	return nil
}
