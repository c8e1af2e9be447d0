//go:build windows

package windows

import (
	"fmt"
	"log/slog"
	"regexp"

	ole "github.com/go-ole/go-ole"

	"github.com/Norgate-AV/txmon/internal/logger"
)

// Client is the Windows UI accessor. Window discovery goes through Win32;
// control access goes through UI Automation. The COM client is created on
// first use, so a Client must only be used from the goroutine that first
// touches a control, and that goroutine must be locked to its OS thread.
type Client struct {
	log  logger.LoggerInterface
	auto *automation
}

// NewClient creates a Client
func NewClient(log logger.LoggerInterface) *Client {
	return &Client{log: log}
}

func (c *Client) automation() (*automation, error) {
	if c.auto != nil {
		return c.auto, nil
	}

	a, err := newAutomation()
	if err != nil {
		return nil, err
	}

	c.log.Debug("UI Automation client created")
	c.auto = a

	return a, nil
}

// withElement finds ctrl in the window and passes it to fn, releasing it afterwards
func (c *Client) withElement(hwnd uintptr, ctrl Control, fn func(el *ole.IUnknown) error) error {
	a, err := c.automation()
	if err != nil {
		return err
	}

	el, err := a.find(hwnd, ctrl)
	if err != nil {
		return err
	}
	defer release(el)

	return fn(el)
}

// FindWindows returns every visible top-level window whose title matches pattern
func (c *Client) FindWindows(pattern *regexp.Regexp) []WindowInfo {
	var matches []WindowInfo

	for _, w := range EnumerateWindows() {
		if pattern.MatchString(w.Title) {
			c.log.Trace("Window matched",
				slog.String("title", w.Title),
				slog.Uint64("hwnd", uint64(w.Hwnd)),
				slog.Uint64("pid", uint64(w.Pid)),
			)
			matches = append(matches, w)
		}
	}

	return matches
}

// IsWindowValid reports whether hwnd still identifies a window
func (c *Client) IsWindowValid(hwnd uintptr) bool {
	return IsWindow(hwnd)
}

// CloseWindow asks a window to close by posting WM_CLOSE
func (c *Client) CloseWindow(hwnd uintptr, title string) {
	c.log.Debug("Closing window", slog.String("title", title), slog.Uint64("hwnd", uint64(hwnd)))

	if err := postClose(hwnd); err != nil {
		c.log.Warn("Failed to close window", slog.String("title", title), slog.Any("error", err))
	}
}

// ToggleState reports whether ctrl is checked or selected
func (c *Client) ToggleState(hwnd uintptr, ctrl Control) (bool, error) {
	var on bool

	err := c.withElement(hwnd, ctrl, func(el *ole.IUnknown) error {
		state, err := toggleState(el)
		if err != nil {
			return fmt.Errorf("%s: %w", ctrl, err)
		}

		on = state == ToggleOn
		return nil
	})

	return on, err
}

// Click performs the default action of ctrl
func (c *Client) Click(hwnd uintptr, ctrl Control) error {
	return c.withElement(hwnd, ctrl, func(el *ole.IUnknown) error {
		if err := click(el); err != nil {
			return fmt.Errorf("click %s: %w", ctrl, err)
		}

		c.log.Trace("Clicked", slog.String("control", ctrl.String()))
		return nil
	})
}

// Text returns the value of ctrl, or its name when it has no value
func (c *Client) Text(hwnd uintptr, ctrl Control) (string, error) {
	var text string

	err := c.withElement(hwnd, ctrl, func(el *ole.IUnknown) error {
		v, err := value(el)
		if err != nil {
			return fmt.Errorf("read %s: %w", ctrl, err)
		}

		text = v
		return nil
	})

	return text, err
}

// Describe returns a snapshot of ctrl's properties
func (c *Client) Describe(hwnd uintptr, ctrl Control) (ElementInfo, error) {
	var info ElementInfo

	err := c.withElement(hwnd, ctrl, func(el *ole.IUnknown) error {
		var err error
		info, err = describe(el)
		return err
	})

	return info, err
}

// Descendants describes every element of the given control type in the window
func (c *Client) Descendants(hwnd uintptr, controlType string) ([]ElementInfo, error) {
	a, err := c.automation()
	if err != nil {
		return nil, err
	}

	elements, err := a.findAll(hwnd, Control{ControlType: controlType})
	if err != nil {
		return nil, err
	}
	defer release(elements...)

	infos := make([]ElementInfo, 0, len(elements))
	for _, el := range elements {
		info, err := describe(el)
		if err != nil {
			c.log.Debug("Skipping element", slog.String("control_type", controlType), slog.Any("error", err))
			continue
		}

		infos = append(infos, info)
	}

	return infos, nil
}

// Close releases the automation client
func (c *Client) Close() {
	if c.auto != nil {
		c.auto.close()
		c.auto = nil
	}
}
