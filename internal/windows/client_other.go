//go:build !windows

package windows

import (
	"regexp"

	"github.com/Norgate-AV/txmon/internal/logger"
)

// Client is a stand-in on platforms without UI Automation. Every control
// operation fails with ErrUnsupported and no windows are ever found.
type Client struct {
	log logger.LoggerInterface
}

func NewClient(log logger.LoggerInterface) *Client {
	return &Client{log: log}
}

func (c *Client) FindWindows(_ *regexp.Regexp) []WindowInfo { return nil }

func (c *Client) IsWindowValid(_ uintptr) bool { return false }

func (c *Client) CloseWindow(_ uintptr, _ string) {}

func (c *Client) ToggleState(_ uintptr, _ Control) (bool, error) { return false, ErrUnsupported }

func (c *Client) Click(_ uintptr, _ Control) error { return ErrUnsupported }

func (c *Client) Text(_ uintptr, _ Control) (string, error) { return "", ErrUnsupported }

func (c *Client) Describe(_ uintptr, _ Control) (ElementInfo, error) {
	return ElementInfo{}, ErrUnsupported
}

func (c *Client) Descendants(_ uintptr, _ string) ([]ElementInfo, error) { return nil, ErrUnsupported }

func (c *Client) Close() {}

// IsElevated is always false off Windows
func IsElevated() bool { return false }

// RelaunchAsAdmin is only possible on Windows
func RelaunchAsAdmin() error { return ErrUnsupported }

// OnConsoleClose is a no-op off Windows; signals cover Ctrl+C there
func OnConsoleClose(_ func(ctrlType uint32)) error { return nil }
