package testutil

import (
	"regexp"
	"sync"

	"github.com/Norgate-AV/txmon/internal/windows"
)

// MockUI implements interfaces.UIAccessor for testing. Controls are keyed by
// automation id, or by name when they have none. Clicking a control that has
// a toggle state flips it unless the control is marked stuck.
type MockUI struct {
	mu sync.Mutex

	Windows       []windows.WindowInfo
	WindowsSeq    [][]windows.WindowInfo // Consumed one per FindWindows call before Windows is used
	ValidWindows  map[uintptr]bool
	Toggles       map[string]bool
	Stuck         map[string]bool
	Texts         map[string]string
	Elements      map[string]windows.ElementInfo
	Descendant    map[string][]windows.ElementInfo
	ToggleErrs    map[string]error
	ClickErrs     map[string]error
	TextErrs      map[string]error
	DescendantErr error

	// OnClick, if set, runs after every successful click
	OnClick func(ctrl windows.Control)

	FindWindowsCalls int
	Clicks           []ClickCall
	CloseWindowCalls []CloseWindowCall
}

type ClickCall struct {
	Hwnd    uintptr
	Control windows.Control
}

type CloseWindowCall struct {
	Hwnd  uintptr
	Title string
}

func NewMockUI() *MockUI {
	return &MockUI{
		ValidWindows: make(map[uintptr]bool),
		Toggles:      make(map[string]bool),
		Stuck:        make(map[string]bool),
		Texts:        make(map[string]string),
		Elements:     make(map[string]windows.ElementInfo),
		Descendant:   make(map[string][]windows.ElementInfo),
		ToggleErrs:   make(map[string]error),
		ClickErrs:    make(map[string]error),
		TextErrs:     make(map[string]error),
	}
}

// Key returns the map key MockUI uses for ctrl
func Key(ctrl windows.Control) string {
	if ctrl.AutomationID != "" {
		return ctrl.AutomationID
	}

	return ctrl.Name
}

func (m *MockUI) FindWindows(pattern *regexp.Regexp) []windows.WindowInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FindWindowsCalls++

	candidates := m.Windows
	if len(m.WindowsSeq) > 0 {
		candidates = m.WindowsSeq[0]
		m.WindowsSeq = m.WindowsSeq[1:]
	}

	var matches []windows.WindowInfo
	for _, w := range candidates {
		if pattern.MatchString(w.Title) {
			matches = append(matches, w)
		}
	}

	return matches
}

func (m *MockUI) IsWindowValid(hwnd uintptr) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.ValidWindows[hwnd]
}

func (m *MockUI) CloseWindow(hwnd uintptr, title string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CloseWindowCalls = append(m.CloseWindowCalls, CloseWindowCall{hwnd, title})
}

func (m *MockUI) ToggleState(_ uintptr, ctrl windows.Control) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := Key(ctrl)
	if err := m.ToggleErrs[key]; err != nil {
		return false, err
	}

	on, ok := m.Toggles[key]
	if !ok {
		return false, windows.ErrElementNotFound
	}

	return on, nil
}

func (m *MockUI) Click(hwnd uintptr, ctrl windows.Control) error {
	m.mu.Lock()

	key := Key(ctrl)
	if err := m.ClickErrs[key]; err != nil {
		m.mu.Unlock()
		return err
	}

	m.Clicks = append(m.Clicks, ClickCall{hwnd, ctrl})

	if on, ok := m.Toggles[key]; ok && !m.Stuck[key] {
		m.Toggles[key] = !on
	}

	hook := m.OnClick
	m.mu.Unlock()

	if hook != nil {
		hook(ctrl)
	}

	return nil
}

func (m *MockUI) Text(_ uintptr, ctrl windows.Control) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := Key(ctrl)
	if err := m.TextErrs[key]; err != nil {
		return "", err
	}

	text, ok := m.Texts[key]
	if !ok {
		return "", windows.ErrElementNotFound
	}

	return text, nil
}

func (m *MockUI) Describe(_ uintptr, ctrl windows.Control) (windows.ElementInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, ok := m.Elements[Key(ctrl)]
	if !ok {
		return windows.ElementInfo{}, windows.ErrElementNotFound
	}

	return info, nil
}

func (m *MockUI) Descendants(_ uintptr, controlType string) ([]windows.ElementInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.DescendantErr != nil {
		return nil, m.DescendantErr
	}

	return m.Descendant[controlType], nil
}

// Helper methods for fluent configuration

func (m *MockUI) WithWindow(hwnd uintptr, title string) *MockUI {
	m.Windows = append(m.Windows, windows.WindowInfo{Hwnd: hwnd, Title: title, Pid: uint32(hwnd)})
	m.ValidWindows[hwnd] = true
	return m
}

func (m *MockUI) WithToggle(ctrl windows.Control, on bool) *MockUI {
	m.Toggles[Key(ctrl)] = on
	return m
}

func (m *MockUI) WithStuck(ctrl windows.Control) *MockUI {
	m.Stuck[Key(ctrl)] = true
	return m
}

func (m *MockUI) WithText(ctrl windows.Control, text string) *MockUI {
	m.Texts[Key(ctrl)] = text
	return m
}

func (m *MockUI) WithElement(ctrl windows.Control, info windows.ElementInfo) *MockUI {
	m.Elements[Key(ctrl)] = info
	return m
}

func (m *MockUI) WithDescendants(controlType string, infos ...windows.ElementInfo) *MockUI {
	m.Descendant[controlType] = infos
	return m
}

// SetToggle changes a toggle state safely while the mock is in use
func (m *MockUI) SetToggle(ctrl windows.Control, on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Toggles[Key(ctrl)] = on
}

// SetText changes a text value safely while the mock is in use
func (m *MockUI) SetText(ctrl windows.Control, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Texts[Key(ctrl)] = text
}

// Toggled returns the current toggle state of ctrl
func (m *MockUI) Toggled(ctrl windows.Control) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.Toggles[Key(ctrl)]
}

// ClickCount returns how many times ctrl was clicked
func (m *MockUI) ClickCount(ctrl windows.Control) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, c := range m.Clicks {
		if Key(c.Control) == Key(ctrl) {
			n++
		}
	}

	return n
}

// ClickedKeys returns the keys of every clicked control in order
func (m *MockUI) ClickedKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.Clicks))
	for _, c := range m.Clicks {
		keys = append(keys, Key(c.Control))
	}

	return keys
}

// ResetClicks clears the recorded clicks
func (m *MockUI) ResetClicks() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Clicks = nil
}
