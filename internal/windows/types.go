// Package windows provides Win32 window discovery and UI Automation control
// access. Types in this file are platform neutral so that code depending on
// them builds and tests everywhere; the implementations are Windows only.
package windows

import (
	"errors"
	"fmt"
)

var (
	// ErrElementNotFound is returned when no element in a window matches a Control
	ErrElementNotFound = errors.New("element not found")

	// ErrPatternUnsupported is returned when an element does not implement the
	// automation pattern an operation needs
	ErrPatternUnsupported = errors.New("automation pattern not supported")

	// ErrUnsupported is returned by every operation on non-Windows platforms
	ErrUnsupported = errors.New("UI automation is only available on Windows")
)

// Control identifies an element inside a window's automation tree.
// Empty fields are not matched on.
type Control struct {
	AutomationID string `yaml:"automation_id" json:"automation_id,omitempty"`
	Name         string `yaml:"name" json:"name,omitempty"`
	ControlType  string `yaml:"control_type" json:"control_type,omitempty"`
}

// IsZero reports whether the control has nothing to match on
func (c Control) IsZero() bool {
	return c.AutomationID == "" && c.Name == ""
}

// Label returns the most readable identifier for log output
func (c Control) Label() string {
	if c.Name != "" {
		return c.Name
	}

	return c.AutomationID
}

func (c Control) String() string {
	return fmt.Sprintf("%s[%s]", c.ControlType, c.Label())
}

// WindowInfo describes a top-level window
type WindowInfo struct {
	Hwnd  uintptr
	Title string
	Pid   uint32
	Class string
}

// ToggleState mirrors the UIA ToggleState enumeration
type ToggleState int

const (
	ToggleOff ToggleState = iota
	ToggleOn
	ToggleIndeterminate
	// ToggleNone marks elements that are neither togglable nor selectable
	ToggleNone ToggleState = -1
)

func (s ToggleState) String() string {
	switch s {
	case ToggleOff:
		return "off"
	case ToggleOn:
		return "on"
	case ToggleIndeterminate:
		return "indeterminate"
	default:
		return "n/a"
	}
}

// Rect is a screen rectangle in pixels
type Rect struct {
	Left, Top, Right, Bottom int32
}

func (r Rect) String() string {
	return fmt.Sprintf("Left=%d, Top=%d, Right=%d, Bottom=%d", r.Left, r.Top, r.Right, r.Bottom)
}

// ElementInfo is a snapshot of an automation element's properties
type ElementInfo struct {
	Name         string
	AutomationID string
	ControlType  string
	ClassName    string
	Toggle       ToggleState
	Rect         Rect
}

// Console control event types
const (
	CTRL_C_EVENT        = 0
	CTRL_BREAK_EVENT    = 1
	CTRL_CLOSE_EVENT    = 2
	CTRL_LOGOFF_EVENT   = 5
	CTRL_SHUTDOWN_EVENT = 6
)

// GetCtrlTypeName returns a human-readable name for a control event type
func GetCtrlTypeName(ctrlType uint32) string {
	switch ctrlType {
	case CTRL_C_EVENT:
		return "CTRL_C"
	case CTRL_BREAK_EVENT:
		return "CTRL_BREAK"
	case CTRL_CLOSE_EVENT:
		return "CTRL_CLOSE"
	case CTRL_LOGOFF_EVENT:
		return "CTRL_LOGOFF"
	case CTRL_SHUTDOWN_EVENT:
		return "CTRL_SHUTDOWN"
	default:
		return "UNKNOWN"
	}
}
