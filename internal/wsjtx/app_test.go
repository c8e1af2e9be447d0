package wsjtx_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/txmon/internal/testutil"
	"github.com/Norgate-AV/txmon/internal/timeouts"
	"github.com/Norgate-AV/txmon/internal/windows"
	"github.com/Norgate-AV/txmon/internal/wsjtx"
)

const mainTitle = "WSJT-X   v2.6.1   by K1JT et al."

var epoch = time.Date(2024, 5, 17, 14, 0, 0, 0, time.UTC)

func newApp(ui *testutil.MockUI) (*wsjtx.App, *testutil.FakeClock, *testutil.RecordingLogger) {
	clock := testutil.NewFakeClock(epoch)
	log := testutil.NewRecordingLogger()

	return wsjtx.NewApp(ui, clock, log, wsjtx.DefaultOptions()), clock, log
}

func TestConnect_SingleWindow(t *testing.T) {
	t.Parallel()

	ui := testutil.NewMockUI().WithWindow(100, mainTitle)
	app, clock, log := newApp(ui)

	require.NoError(t, app.Connect(context.Background()))
	assert.Equal(t, uintptr(100), app.Hwnd())
	assert.Equal(t, mainTitle, app.Window().Title)
	assert.Equal(t, 1, ui.FindWindowsCalls)
	assert.Empty(t, clock.Sleeps)
	assert.True(t, log.Contains("Successfully connected to WSJT-X window."))
}

func TestConnect_IgnoresOtherWindows(t *testing.T) {
	t.Parallel()

	ui := testutil.NewMockUI().
		WithWindow(1, "Untitled - Notepad").
		WithWindow(2, "WSJT-X - Log QSO").
		WithWindow(100, mainTitle)
	app, _, _ := newApp(ui)

	require.NoError(t, app.Connect(context.Background()))
	assert.Equal(t, uintptr(100), app.Hwnd())
}

func TestConnect_NotRunningExhaustsAttempts(t *testing.T) {
	t.Parallel()

	ui := testutil.NewMockUI()
	app, clock, log := newApp(ui)

	err := app.Connect(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, wsjtx.ErrNotConnected)
	assert.Equal(t, timeouts.ConnectAttempts, ui.FindWindowsCalls, "Should make exactly ConnectAttempts attempts")
	assert.Len(t, clock.Sleeps, timeouts.ConnectAttempts-1, "Should not wait after the last attempt")
	assert.Equal(t, timeouts.ConnectRetryDelay*time.Duration(timeouts.ConnectAttempts-1), clock.TotalSlept())
	assert.True(t, log.Contains("WSJT-X not running"))
	assert.True(t, log.Contains("Failed to connect to WSJT-X after 10 attempts."))
	assert.Zero(t, app.Hwnd())
}

func TestConnect_MultipleWindowsIsAFailedAttempt(t *testing.T) {
	t.Parallel()

	both := []windows.WindowInfo{
		{Hwnd: 100, Title: mainTitle},
		{Hwnd: 200, Title: mainTitle},
	}

	ui := testutil.NewMockUI()
	ui.WindowsSeq = [][]windows.WindowInfo{both, both}
	ui.Windows = []windows.WindowInfo{{Hwnd: 200, Title: mainTitle}}
	app, clock, log := newApp(ui)

	require.NoError(t, app.Connect(context.Background()))
	assert.Equal(t, uintptr(200), app.Hwnd())
	assert.Equal(t, 3, ui.FindWindowsCalls)
	assert.Len(t, clock.Sleeps, 2)
	assert.Equal(t, 2, log.Count("multiple windows found (2)"))
}

func TestConnect_CancelledWhileWaiting(t *testing.T) {
	t.Parallel()

	ui := testutil.NewMockUI()
	app, _, _ := newApp(ui)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := app.Connect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, ui.FindWindowsCalls)
}

func TestReconnect_ValidHandleIsNoOp(t *testing.T) {
	t.Parallel()

	ui := testutil.NewMockUI().WithWindow(100, mainTitle)
	app, _, _ := newApp(ui)
	require.NoError(t, app.Connect(context.Background()))

	require.NoError(t, app.Reconnect(context.Background()))
	assert.Equal(t, 1, ui.FindWindowsCalls, "Should not search while the handle is valid")
}

func TestReconnect_ReacquiresClosedWindow(t *testing.T) {
	t.Parallel()

	ui := testutil.NewMockUI().WithWindow(100, mainTitle)
	app, _, log := newApp(ui)
	require.NoError(t, app.Connect(context.Background()))

	// WSJT-X restarted with a new handle
	ui.ValidWindows[100] = false
	ui.Windows = []windows.WindowInfo{{Hwnd: 300, Title: mainTitle}}

	require.NoError(t, app.Reconnect(context.Background()))
	assert.Equal(t, uintptr(300), app.Hwnd())
	assert.True(t, log.Contains("Reconnected to WSJT-X window."))
}

func TestReconnect_WindowGone(t *testing.T) {
	t.Parallel()

	ui := testutil.NewMockUI().WithWindow(100, mainTitle)
	app, _, _ := newApp(ui)
	require.NoError(t, app.Connect(context.Background()))

	ui.ValidWindows[100] = false
	ui.Windows = nil

	err := app.Reconnect(context.Background())
	assert.ErrorIs(t, err, wsjtx.ErrNotConnected)
	assert.Zero(t, app.Hwnd())

	_, err = app.ToggleState(wsjtx.EnableTx)
	assert.ErrorIs(t, err, wsjtx.ErrNotConnected, "Controls are unavailable until reconnected")
}

func TestSetToggle_AlreadyInState(t *testing.T) {
	t.Parallel()

	ui := testutil.NewMockUI().WithWindow(100, mainTitle).WithToggle(wsjtx.EnableTx, true)
	app, clock, _ := newApp(ui)
	require.NoError(t, app.Connect(context.Background()))

	ok, err := app.SetToggle(context.Background(), wsjtx.EnableTx, true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, ui.Clicks)
	assert.Empty(t, clock.Sleeps)
}

func TestSetToggle_ClicksAndVerifies(t *testing.T) {
	t.Parallel()

	ui := testutil.NewMockUI().WithWindow(100, mainTitle).WithToggle(wsjtx.EnableTx, false)
	app, clock, _ := newApp(ui)
	require.NoError(t, app.Connect(context.Background()))

	ok, err := app.SetToggle(context.Background(), wsjtx.EnableTx, true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, ui.Toggled(wsjtx.EnableTx))
	assert.Equal(t, []time.Duration{timeouts.ClickSettle}, clock.Sleeps)
	assert.Equal(t, uintptr(100), ui.Clicks[0].Hwnd)
}

func TestSetToggle_StuckControl(t *testing.T) {
	t.Parallel()

	ui := testutil.NewMockUI().
		WithWindow(100, mainTitle).
		WithToggle(wsjtx.EnableTx, false).
		WithStuck(wsjtx.EnableTx)
	app, _, log := newApp(ui)
	require.NoError(t, app.Connect(context.Background()))

	ok, err := app.SetToggle(context.Background(), wsjtx.EnableTx, true)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, log.Contains("Checkbox was clicked but did not change state."))
}

func TestSetToggle_ClickError(t *testing.T) {
	t.Parallel()

	ui := testutil.NewMockUI().WithWindow(100, mainTitle).WithToggle(wsjtx.EnableTx, false)
	ui.ClickErrs[testutil.Key(wsjtx.EnableTx)] = windows.ErrPatternUnsupported
	app, _, _ := newApp(ui)
	require.NoError(t, app.Connect(context.Background()))

	_, err := app.SetToggle(context.Background(), wsjtx.EnableTx, true)
	assert.ErrorIs(t, err, windows.ErrPatternUnsupported)
}

func TestDismissLogQSO_NoDialog(t *testing.T) {
	t.Parallel()

	ui := testutil.NewMockUI().WithWindow(100, mainTitle)
	app, clock, _ := newApp(ui)
	require.NoError(t, app.Connect(context.Background()))

	found, err := app.DismissLogQSO(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, clock.Sleeps)
	assert.Empty(t, ui.Clicks)
}

func TestDismissLogQSO_ClicksOK(t *testing.T) {
	t.Parallel()

	ui := testutil.NewMockUI().
		WithWindow(100, mainTitle).
		WithWindow(200, "WSJT-X - Log QSO").
		WithWindow(300, "GridTracker Alerts")
	app, clock, _ := newApp(ui)
	require.NoError(t, app.Connect(context.Background()))

	found, err := app.DismissLogQSO(context.Background())
	require.NoError(t, err)
	assert.True(t, found)

	require.Len(t, ui.Clicks, 1)
	assert.Equal(t, uintptr(200), ui.Clicks[0].Hwnd, "OK is clicked in the dialog, not the main window")
	assert.Equal(t, wsjtx.OKButton, ui.Clicks[0].Control)
	assert.Equal(t, []time.Duration{timeouts.LogQSODelay, timeouts.ClickSettle}, clock.Sleeps)
	assert.Empty(t, ui.CloseWindowCalls, "Alerts are left to the caller")
}

func TestCloseAlerts_ClosesFirstMatch(t *testing.T) {
	t.Parallel()

	ui := testutil.NewMockUI().
		WithWindow(100, mainTitle).
		WithWindow(300, "GridTracker Alerts").
		WithWindow(301, "Alerts - Call Roster")
	app, _, log := newApp(ui)

	assert.True(t, app.CloseAlerts())
	require.Len(t, ui.CloseWindowCalls, 1)
	assert.Equal(t, uintptr(300), ui.CloseWindowCalls[0].Hwnd)
	assert.True(t, log.Contains("Found 2 'Alerts' window(s)."))
}

func TestDismissLogQSO_OKMissing(t *testing.T) {
	t.Parallel()

	ui := testutil.NewMockUI().WithWindow(100, mainTitle).WithWindow(200, "WSJT-X - Log QSO")
	ui.ClickErrs[testutil.Key(wsjtx.OKButton)] = windows.ErrElementNotFound
	app, _, _ := newApp(ui)
	require.NoError(t, app.Connect(context.Background()))

	found, err := app.DismissLogQSO(context.Background())
	assert.True(t, found)
	assert.True(t, errors.Is(err, windows.ErrElementNotFound))
	assert.Empty(t, ui.CloseWindowCalls)
}

func TestCloseAlerts_NoneOpen(t *testing.T) {
	t.Parallel()

	ui := testutil.NewMockUI().WithWindow(100, mainTitle)
	app, _, log := newApp(ui)

	assert.False(t, app.CloseAlerts())
	assert.Equal(t, []string{"No 'Alerts' window found."}, log.Messages("INFO"))
	assert.Empty(t, ui.CloseWindowCalls)
}
