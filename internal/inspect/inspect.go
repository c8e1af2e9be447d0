// Package inspect dumps the WSJT-X automation tree so control identifiers
// can be checked against a new WSJT-X release.
package inspect

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Norgate-AV/txmon/internal/interfaces"
	"github.com/Norgate-AV/txmon/internal/logger"
	"github.com/Norgate-AV/txmon/internal/timeouts"
	"github.com/Norgate-AV/txmon/internal/windows"
	"github.com/Norgate-AV/txmon/internal/wsjtx"
)

// DefaultReportFile is where inspect writes its report unless told otherwise
const DefaultReportFile = "wsjt_x_ui_inspection.log"

// ControlTypes are listed in the report, in this order
var ControlTypes = []string{"Button", "CheckBox", "RadioButton", "Edit"}

// Dependencies holds the backends an Inspector reads from
type Dependencies struct {
	UI        interfaces.ElementDescriber
	Processes interfaces.ProcessInspector
	Clock     interfaces.Clock
}

// Inspector reports on a connected WSJT-X window
type Inspector struct {
	log         logger.LoggerInterface
	deps        Dependencies
	window      windows.WindowInfo
	radioPrefix string
}

// New creates an Inspector with the real process table and clock
func New(log logger.LoggerInterface, ui interfaces.ElementDescriber, window windows.WindowInfo, radioPrefix string) *Inspector {
	return NewWithDeps(log, window, radioPrefix, Dependencies{
		UI:        ui,
		Processes: NewProcessTable(),
		Clock:     interfaces.SystemClock{},
	})
}

// NewWithDeps creates an Inspector with custom dependencies (for testing)
func NewWithDeps(log logger.LoggerInterface, window windows.WindowInfo, radioPrefix string, deps Dependencies) *Inspector {
	if deps.Clock == nil {
		deps.Clock = interfaces.SystemClock{}
	}

	if radioPrefix == "" {
		radioPrefix = wsjtx.TxRadioPrefix
	}

	return &Inspector{
		log:         log,
		deps:        deps,
		window:      window,
		radioPrefix: radioPrefix,
	}
}

// Report writes the window, its owning process and every interactive
// control to w
func (i *Inspector) Report(w io.Writer) error {
	p := &printer{w: w}

	p.line("WSJT-X UI Inspection Report")
	p.line("Generated: %s", i.deps.Clock.Now().Format(logger.TimestampLayout))
	p.line("%s", strings.Repeat("=", 50))

	p.section("BASIC WINDOW INFORMATION")
	p.line("Title: %s", i.window.Title)
	p.line("Class: %s", i.window.Class)
	p.line("Handle: %d", i.window.Hwnd)
	p.line("Process ID: %d", i.window.Pid)

	if i.deps.Processes != nil {
		info, err := i.deps.Processes.Inspect(i.window.Pid)
		if err != nil {
			i.log.Debug("Process lookup failed", slog.Any("error", err))
			p.line("Process: unavailable (%v)", err)
		} else {
			p.line("Process: %s", info.Name)
			p.line("Executable: %s", info.Executable)
			if !info.StartedAt.IsZero() {
				p.line("Started: %s", info.StartedAt.Format(logger.TimestampLayout))
			}
		}
	}

	var all []windows.ElementInfo

	for _, ct := range ControlTypes {
		elements, err := i.deps.UI.Descendants(i.window.Hwnd, ct)
		if err != nil {
			return fmt.Errorf("list %s controls: %w", ct, err)
		}

		p.section(strings.ToUpper(ct) + " CONTROLS")
		p.line("Found %d %s controls in the UI.", len(elements), ct)

		for n, el := range elements {
			p.line("")
			p.line("%s #%d:", ct, n+1)
			p.line("  Text: %s", el.Name)
			p.line("  Automation ID: %s", orNA(el.AutomationID))
			p.line("  Class Name: %s", orNA(el.ClassName))
			p.line("  Toggle State: %s", el.Toggle)
			p.line("  Rectangle: %s", el.Rect)
		}

		all = append(all, elements...)
	}

	p.section("TX BUTTON CANDIDATES")

	candidates := TxCandidates(all)
	if len(candidates) == 0 {
		p.line("No clear TX button candidates identified. Please review the controls above.")
	}

	for n, c := range candidates {
		p.line("%d. Score: %d - Text: '%s', ID: '%s', Class: '%s'",
			n+1, c.Score, c.Element.Name, c.Element.AutomationID, c.Element.ClassName)
	}

	return p.err
}

// Candidate is a control that looks like it enables TX
type Candidate struct {
	Element windows.ElementInfo
	Score   int
}

// TxCandidates ranks elements by how likely they are to be the TX toggle
func TxCandidates(elements []windows.ElementInfo) []Candidate {
	var out []Candidate

	for _, el := range elements {
		if score := txScore(el); score > 0 {
			out = append(out, Candidate{Element: el, Score: score})
		}
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })

	return out
}

func txScore(el windows.ElementInfo) int {
	text := strings.ToLower(el.Name)
	id := strings.ToLower(el.AutomationID)
	score := 0

	switch {
	case strings.Contains(text, "enable tx"):
		score += 10
	case text == "tx":
		score += 8
	case strings.Contains(text, "tx"):
		score += 5
	case strings.Contains(text, "transmit"), strings.Contains(text, "xmit"):
		score += 4
	}

	switch {
	case strings.Contains(id, "autobutton"), strings.Contains(id, "txbutton"):
		score += 8
	case strings.Contains(id, "tx"):
		score += 5
	case strings.Contains(id, "transmit"), strings.Contains(id, "xmit"):
		score += 4
	}

	return score
}

// RadioState is the state of one txrbN radio button
type RadioState struct {
	Index   int
	Control windows.Control
	Checked bool
	Text    string
	Rect    windows.Rect
	Err     error
}

func (r RadioState) String() string {
	if r.Err != nil {
		return fmt.Sprintf("Error checking RadioButton 'txrb%d': %v", r.Index, r.Err)
	}

	state := "NOT checked"
	if r.Checked {
		state = "CHECKED"
	}

	text := ""
	if r.Text != "" {
		text = fmt.Sprintf(" (Text: '%s')", r.Text)
	}

	return fmt.Sprintf("RadioButton 'txrb%d' is %s%s", r.Index, state, text)
}

// RadioStates reads txrb1..txrb6 with a short delay between reads. A
// button that cannot be read is reported in its Err field.
func (i *Inspector) RadioStates(ctx context.Context) ([]RadioState, error) {
	states := make([]RadioState, 0, wsjtx.TxRadioCount)

	for n := 1; n <= wsjtx.TxRadioCount; n++ {
		if n > 1 {
			if err := timeouts.Wait(ctx, i.deps.Clock, timeouts.RadioProbeDelay); err != nil {
				return states, err
			}
		}

		ctrl := wsjtx.TxRadio(i.radioPrefix, n)
		state := RadioState{Index: n, Control: ctrl}

		el, err := i.deps.UI.Describe(i.window.Hwnd, ctrl)
		if err != nil {
			state.Err = err
		} else {
			state.Checked = el.Toggle == windows.ToggleOn
			state.Text = el.Name
			state.Rect = el.Rect
		}

		states = append(states, state)
	}

	return states, nil
}

// printer writes lines until the first error
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}

	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) section(title string) {
	p.line("")
	p.line("=== %s ===", title)
	p.line("")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}

	return s
}

// startTime converts a gopsutil creation time in milliseconds
func startTime(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}

	return time.UnixMilli(ms)
}
