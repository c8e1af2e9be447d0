package wsjtx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/Norgate-AV/txmon/internal/interfaces"
	"github.com/Norgate-AV/txmon/internal/logger"
	"github.com/Norgate-AV/txmon/internal/timeouts"
	"github.com/Norgate-AV/txmon/internal/windows"
)

// ErrNotConnected is returned when the WSJT-X main window cannot be located
var ErrNotConnected = errors.New("not connected to WSJT-X")

var errNotRunning = errors.New("WSJT-X not running")

// Options configures how the App finds and drives WSJT-X
type Options struct {
	TitlePattern      *regexp.Regexp
	LogQSOPattern     *regexp.Regexp
	AlertsPattern     *regexp.Regexp
	OKButton          windows.Control
	ConnectAttempts   int
	ConnectRetryDelay time.Duration
	ClickSettle       time.Duration
	LogQSODelay       time.Duration
}

// DefaultOptions returns the stock WSJT-X window patterns and timings
func DefaultOptions() Options {
	return Options{
		TitlePattern:      regexp.MustCompile(TitlePattern),
		LogQSOPattern:     regexp.MustCompile(LogQSOPattern),
		AlertsPattern:     regexp.MustCompile(AlertsPattern),
		OKButton:          OKButton,
		ConnectAttempts:   timeouts.ConnectAttempts,
		ConnectRetryDelay: timeouts.ConnectRetryDelay,
		ClickSettle:       timeouts.ClickSettle,
		LogQSODelay:       timeouts.LogQSODelay,
	}
}

// App is a connection to the WSJT-X main window. It is the single place the
// window handle is acquired and re-acquired.
type App struct {
	ui    interfaces.UIAccessor
	clock interfaces.Clock
	log   logger.LoggerInterface
	opts  Options

	hwnd  uintptr
	title string
	class string
	pid   uint32
}

// NewApp creates an App. Call Connect before using controls.
func NewApp(ui interfaces.UIAccessor, clock interfaces.Clock, log logger.LoggerInterface, opts Options) *App {
	if opts.ConnectAttempts <= 0 {
		opts.ConnectAttempts = 1
	}

	return &App{
		ui:    ui,
		clock: clock,
		log:   log,
		opts:  opts,
	}
}

// Hwnd returns the connected window handle, or 0
func (a *App) Hwnd() uintptr {
	return a.hwnd
}

// Window describes the connected window
func (a *App) Window() windows.WindowInfo {
	return windows.WindowInfo{Hwnd: a.hwnd, Title: a.title, Pid: a.pid, Class: a.class}
}

// attach makes one attempt to find exactly one main window
func (a *App) attach() error {
	matches := a.ui.FindWindows(a.opts.TitlePattern)

	switch len(matches) {
	case 0:
		return errNotRunning
	case 1:
		a.hwnd = matches[0].Hwnd
		a.title = matches[0].Title
		a.class = matches[0].Class
		a.pid = matches[0].Pid
		return nil
	default:
		return fmt.Errorf("multiple windows found (%d) matching WSJT-X", len(matches))
	}
}

// Connect searches for the WSJT-X window, retrying up to ConnectAttempts
// times. It returns ErrNotConnected once every attempt has failed.
func (a *App) Connect(ctx context.Context) error {
	a.log.Info("Searching for WSJT-X application window...")

	for attempt := 1; attempt <= a.opts.ConnectAttempts; attempt++ {
		err := a.attach()
		if err == nil {
			a.log.Info("Successfully connected to WSJT-X window.")
			a.log.Debug("Connected",
				slog.String("title", a.title),
				slog.Uint64("hwnd", uint64(a.hwnd)),
				slog.Uint64("pid", uint64(a.pid)),
			)
			return nil
		}

		if attempt == a.opts.ConnectAttempts {
			break
		}

		a.log.Info(fmt.Sprintf("%s. Retrying in %s...", err, a.opts.ConnectRetryDelay),
			slog.Int("attempt", attempt),
		)

		if err := timeouts.Wait(ctx, a.clock, a.opts.ConnectRetryDelay); err != nil {
			return err
		}
	}

	a.log.Error(fmt.Sprintf("Failed to connect to WSJT-X after %d attempts.", a.opts.ConnectAttempts))
	return fmt.Errorf("%w after %d attempts", ErrNotConnected, a.opts.ConnectAttempts)
}

// Reconnect re-acquires the window handle if the current one is no longer
// valid. It makes a single attempt.
func (a *App) Reconnect(_ context.Context) error {
	if a.hwnd != 0 && a.ui.IsWindowValid(a.hwnd) {
		return nil
	}

	a.log.Warn("Window may have closed. Attempting to reconnect...")
	a.hwnd = 0

	if err := a.attach(); err != nil {
		return fmt.Errorf("%w: %w", ErrNotConnected, err)
	}

	a.log.Info("Reconnected to WSJT-X window.", slog.Uint64("hwnd", uint64(a.hwnd)))
	return nil
}

// ToggleState reads a control in the main window
func (a *App) ToggleState(ctrl windows.Control) (bool, error) {
	if a.hwnd == 0 {
		return false, ErrNotConnected
	}

	return a.ui.ToggleState(a.hwnd, ctrl)
}

// Click clicks a control in the main window
func (a *App) Click(ctrl windows.Control) error {
	if a.hwnd == 0 {
		return ErrNotConnected
	}

	return a.ui.Click(a.hwnd, ctrl)
}

// Text reads a text control in the main window
func (a *App) Text(ctrl windows.Control) (string, error) {
	if a.hwnd == 0 {
		return "", ErrNotConnected
	}

	return a.ui.Text(a.hwnd, ctrl)
}

// SetToggle clicks ctrl if its state differs from want, then re-reads it
// after ClickSettle. It reports whether the control ended in the wanted state.
func (a *App) SetToggle(ctx context.Context, ctrl windows.Control, want bool) (bool, error) {
	state, err := a.ToggleState(ctrl)
	if err != nil {
		return false, err
	}

	if state == want {
		return true, nil
	}

	if err := a.Click(ctrl); err != nil {
		return false, err
	}

	if err := timeouts.Wait(ctx, a.clock, a.opts.ClickSettle); err != nil {
		return false, err
	}

	state, err = a.ToggleState(ctrl)
	if err != nil {
		return false, err
	}

	if state != want {
		a.log.Warn("Checkbox was clicked but did not change state.", slog.String("control", ctrl.Label()))
		return false, nil
	}

	return true, nil
}

// DismissLogQSO confirms an open Log QSO dialog after LogQSODelay.
// It reports whether a dialog was found.
func (a *App) DismissLogQSO(ctx context.Context) (bool, error) {
	dialogs := a.ui.FindWindows(a.opts.LogQSOPattern)
	if len(dialogs) == 0 {
		return false, nil
	}

	dialog := dialogs[0]
	a.log.Info(fmt.Sprintf("Found a 'Log QSO' window. Waiting %s before clicking OK...", a.opts.LogQSODelay))

	if err := timeouts.Wait(ctx, a.clock, a.opts.LogQSODelay); err != nil {
		return true, err
	}

	if err := a.ui.Click(dialog.Hwnd, a.opts.OKButton); err != nil {
		return true, fmt.Errorf("click OK on Log QSO window: %w", err)
	}

	a.log.Info("Clicked OK on the 'Log QSO' window.")

	return true, timeouts.Wait(ctx, a.clock, a.opts.ClickSettle)
}

// CloseAlerts closes the first window whose title matches AlertsPattern
func (a *App) CloseAlerts() bool {
	alerts := a.ui.FindWindows(a.opts.AlertsPattern)
	if len(alerts) == 0 {
		a.log.Info("No 'Alerts' window found.")
		return false
	}

	a.log.Info(fmt.Sprintf("Found %d 'Alerts' window(s). Attempting to close...", len(alerts)))
	a.ui.CloseWindow(alerts[0].Hwnd, alerts[0].Title)
	a.log.Info("Closed 'Alerts' window.")

	return true
}
