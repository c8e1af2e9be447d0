package inspect

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/txmon/internal/interfaces"
	"github.com/Norgate-AV/txmon/internal/testutil"
	"github.com/Norgate-AV/txmon/internal/timeouts"
	"github.com/Norgate-AV/txmon/internal/windows"
	"github.com/Norgate-AV/txmon/internal/wsjtx"
)

var epoch = time.Date(2024, 5, 17, 14, 0, 0, 0, time.UTC)

var mainWindow = windows.WindowInfo{
	Hwnd:  100,
	Title: "WSJT-X   v2.6.1   by K1JT et al.",
	Class: "Qt5152QWindowIcon",
	Pid:   4242,
}

func newInspector(ui *testutil.MockUI, procs *testutil.MockProcessInspector) (*Inspector, *testutil.FakeClock) {
	clock := testutil.NewFakeClock(epoch)
	deps := Dependencies{UI: ui, Clock: clock}

	if procs != nil {
		deps.Processes = procs
	}

	return NewWithDeps(testutil.NewRecordingLogger(), mainWindow, "", deps), clock
}

func TestReport(t *testing.T) {
	t.Parallel()

	ui := testutil.NewMockUI().
		WithDescendants("Button",
			windows.ElementInfo{Name: "Tx 6", AutomationID: wsjtx.Tx6.AutomationID, ClassName: "QPushButton", Toggle: windows.ToggleNone},
			windows.ElementInfo{Name: "Halt Tx", ClassName: "QPushButton", Toggle: windows.ToggleNone},
		).
		WithDescendants("CheckBox",
			windows.ElementInfo{Name: "Enable Tx", AutomationID: wsjtx.EnableTx.AutomationID, Toggle: windows.ToggleOn,
				Rect: windows.Rect{Left: 10, Top: 20, Right: 110, Bottom: 40}},
		)

	procs := testutil.NewMockProcessInspector().WithProcess(interfaces.ProcessInfo{
		Pid:        4242,
		Name:       "wsjtx.exe",
		Executable: `C:\WSJT\wsjtx\bin\wsjtx.exe`,
		StartedAt:  epoch.Add(-time.Hour),
	})

	insp, _ := newInspector(ui, procs)

	var buf bytes.Buffer
	require.NoError(t, insp.Report(&buf))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "WSJT-X UI Inspection Report\nGenerated: 2024-05-17 14:00:00\n"))
	assert.Contains(t, out, "Title: WSJT-X   v2.6.1   by K1JT et al.")
	assert.Contains(t, out, "Class: Qt5152QWindowIcon")
	assert.Contains(t, out, "Process ID: 4242")
	assert.Contains(t, out, "Process: wsjtx.exe")
	assert.Contains(t, out, `Executable: C:\WSJT\wsjtx\bin\wsjtx.exe`)
	assert.Contains(t, out, "Found 2 Button controls in the UI.")
	assert.Contains(t, out, "Found 1 CheckBox controls in the UI.")
	assert.Contains(t, out, "Found 0 RadioButton controls in the UI.")
	assert.Contains(t, out, "Toggle State: on")
	assert.Contains(t, out, "Rectangle: Left=10, Top=20, Right=110, Bottom=40")
	assert.Contains(t, out, "Automation ID: N/A")
	assert.Contains(t, out, "1. Score: 18 - Text: 'Enable Tx'")
	assert.Equal(t, []uint32{4242}, procs.Calls)
}

func TestReport_ProcessUnavailable(t *testing.T) {
	t.Parallel()

	procs := testutil.NewMockProcessInspector()
	procs.Err = errors.New("access denied")
	insp, _ := newInspector(testutil.NewMockUI(), procs)

	var buf bytes.Buffer
	require.NoError(t, insp.Report(&buf))
	assert.Contains(t, buf.String(), "Process: unavailable (access denied)")
	assert.Contains(t, buf.String(), "No clear TX button candidates identified.")
}

func TestReport_DescendantsError(t *testing.T) {
	t.Parallel()

	ui := testutil.NewMockUI()
	ui.DescendantErr = windows.ErrUnsupported
	insp, _ := newInspector(ui, nil)

	err := insp.Report(&bytes.Buffer{})
	assert.ErrorIs(t, err, windows.ErrUnsupported)
}

func TestReport_WriterError(t *testing.T) {
	t.Parallel()

	insp, _ := newInspector(testutil.NewMockUI(), nil)

	f, err := os.CreateTemp(t.TempDir(), "report")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.Error(t, insp.Report(f), "Writing to a closed file should fail")
}

func TestTxCandidates_Ranking(t *testing.T) {
	t.Parallel()

	elements := []windows.ElementInfo{
		{Name: "Log QSO"},
		{Name: "Tx 6", AutomationID: "tab.txb6"},
		{Name: "Enable Tx", AutomationID: "lower_panel_widget.autoButton"},
		{Name: "Tx", AutomationID: "other"},
	}

	candidates := TxCandidates(elements)
	require.Len(t, candidates, 3)
	assert.Equal(t, "Enable Tx", candidates[0].Element.Name)
	assert.Equal(t, 18, candidates[0].Score)
	assert.Equal(t, "Tx 6", candidates[1].Element.Name)
	assert.Equal(t, 10, candidates[1].Score)
	assert.Equal(t, "Tx", candidates[2].Element.Name)
}

func TestRadioStates(t *testing.T) {
	t.Parallel()

	ui := testutil.NewMockUI()
	for n := 1; n <= wsjtx.TxRadioCount; n++ {
		toggle := windows.ToggleOff
		if n == 2 {
			toggle = windows.ToggleOn
		}
		if n == 5 {
			continue
		}

		ui.WithElement(wsjtx.TxRadio(wsjtx.TxRadioPrefix, n), windows.ElementInfo{
			Toggle: toggle,
			Rect:   windows.Rect{Left: int32(n * 10)},
		})
	}

	insp, clock := newInspector(ui, nil)

	states, err := insp.RadioStates(context.Background())
	require.NoError(t, err)
	require.Len(t, states, wsjtx.TxRadioCount)

	assert.True(t, states[1].Checked)
	assert.False(t, states[0].Checked)
	assert.Equal(t, int32(30), states[2].Rect.Left)
	assert.ErrorIs(t, states[4].Err, windows.ErrElementNotFound)
	assert.Equal(t, "RadioButton 'txrb2' is CHECKED", states[1].String())
	assert.Equal(t, "RadioButton 'txrb1' is NOT checked", states[0].String())
	assert.Contains(t, states[4].String(), "Error checking RadioButton 'txrb5'")

	assert.Len(t, clock.Sleeps, wsjtx.TxRadioCount-1, "No delay after the last read")
	assert.Equal(t, timeouts.RadioProbeDelay, clock.Sleeps[0])
}

func TestRadioStates_Cancelled(t *testing.T) {
	t.Parallel()

	insp, _ := newInspector(testutil.NewMockUI(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	states, err := insp.RadioStates(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, states, 1)
}

func TestProcessTable_Self(t *testing.T) {
	t.Parallel()

	info, err := NewProcessTable().Inspect(uint32(os.Getpid()))
	require.NoError(t, err)
	assert.NotEmpty(t, info.Name)
	assert.Equal(t, uint32(os.Getpid()), info.Pid)
	assert.False(t, info.StartedAt.IsZero())
}

func TestProcessTable_Missing(t *testing.T) {
	t.Parallel()

	_, err := NewProcessTable().Inspect(0x7ffffffe)
	assert.Error(t, err)
}
