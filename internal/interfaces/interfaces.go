// Package interfaces defines core interfaces for dependency injection and testing.
package interfaces

import (
	"context"
	"regexp"
	"time"

	"github.com/Norgate-AV/txmon/internal/windows"
)

// WindowFinder locates top-level windows
type WindowFinder interface {
	FindWindows(pattern *regexp.Regexp) []windows.WindowInfo
	IsWindowValid(hwnd uintptr) bool
	CloseWindow(hwnd uintptr, title string)
}

// ControlAccessor reads and operates controls inside a window
type ControlAccessor interface {
	ToggleState(hwnd uintptr, ctrl windows.Control) (bool, error)
	Click(hwnd uintptr, ctrl windows.Control) error
	Text(hwnd uintptr, ctrl windows.Control) (string, error)
}

// ElementDescriber exposes automation tree details for inspection
type ElementDescriber interface {
	Describe(hwnd uintptr, ctrl windows.Control) (windows.ElementInfo, error)
	Descendants(hwnd uintptr, controlType string) ([]windows.ElementInfo, error)
}

// UIAccessor is everything the tools need from the GUI automation backend
type UIAccessor interface {
	WindowFinder
	ControlAccessor
	ElementDescriber
}

// Clock abstracts time so timer logic can be driven by tests
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// ProcessInfo describes the process owning a window
type ProcessInfo struct {
	Pid        uint32
	Name       string
	Executable string
	StartedAt  time.Time
}

// ProcessInspector looks up process details by PID
type ProcessInspector interface {
	Inspect(pid uint32) (ProcessInfo, error)
}

// SystemClock is the real Clock
type SystemClock struct{}

func (SystemClock) Now() time.Time                         { return time.Now() }
func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// TxWindow is the connected WSJT-X main window as the supervisor drives it
type TxWindow interface {
	ToggleState(ctrl windows.Control) (bool, error)
	Click(ctrl windows.Control) error
	SetToggle(ctx context.Context, ctrl windows.Control, want bool) (bool, error)
	DismissLogQSO(ctx context.Context) (bool, error)
	CloseAlerts() bool
	Reconnect(ctx context.Context) error
}

// TextSource reads a text control from the connected window
type TextSource interface {
	Text(ctrl windows.Control) (string, error)
	Reconnect(ctx context.Context) error
}
