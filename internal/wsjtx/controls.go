// Package wsjtx binds the supervisor tools to the WSJT-X main window: control
// identifiers, window title patterns, the ADIF log location and the connected
// application handle.
package wsjtx

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Norgate-AV/txmon/internal/windows"
)

// Window title patterns
const (
	TitlePattern  = `WSJT-X\s+.*by K1JT`
	LogQSOPattern = `.*- Log QSO.*`
	AlertsPattern = `.*Alerts.*`
)

// TxRadioPrefix is the automation id prefix of the txrb1..txrb6 radio
// buttons and the Tx 1..6 buttons on the QSO tab
const TxRadioPrefix = "MainWindow.centralWidget.lower_panel_widget.controls_stack_widget.page.QSO_controls_widget.tabWidget.qt_tabwidget_stackedwidget.tab."

// TxRadioCount is the number of Tx message radio buttons
const TxRadioCount = 6

var (
	EnableTx = windows.Control{
		AutomationID: "MainWindow.centralWidget.lower_panel_widget.autoButton",
		Name:         "Enable Tx",
		ControlType:  "CheckBox",
	}

	Tx6 = windows.Control{
		AutomationID: TxRadioPrefix + "txb6",
		Name:         "Tx 6",
		ControlType:  "Button",
	}

	// Report is selected while WSJT-X is sending a signal report
	Report = TxRadio(TxRadioPrefix, 2)

	DXCall = windows.Control{
		AutomationID: "MainWindow.centralWidget.lower_panel_widget.DX_controls_widget.dxCallEntry",
		ControlType:  "Edit",
	}

	// OKButton confirms the Log QSO dialog
	OKButton = windows.Control{
		Name:        "OK",
		ControlType: "Button",
	}
)

// TxRadio returns the control for radio button txrbN under prefix
func TxRadio(prefix string, n int) windows.Control {
	return windows.Control{
		AutomationID: fmt.Sprintf("%stxrb%d", prefix, n),
		ControlType:  "RadioButton",
	}
}

// DefaultADIFPath returns the WSJT-X log location under %LOCALAPPDATA%
func DefaultADIFPath() string {
	localAppData := os.Getenv("LOCALAPPDATA")
	if localAppData == "" {
		localAppData = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Local")
	}

	return filepath.Join(localAppData, "WSJT-X", "wsjtx_log.adi")
}
