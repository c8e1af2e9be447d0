package wsjtx

import (
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTxRadio(t *testing.T) {
	t.Parallel()

	c := TxRadio(TxRadioPrefix, 2)
	assert.Equal(t, TxRadioPrefix+"txrb2", c.AutomationID)
	assert.Equal(t, "RadioButton", c.ControlType)
	assert.Equal(t, Report, c)
}

func TestTitlePatterns(t *testing.T) {
	t.Parallel()

	main := regexp.MustCompile(TitlePattern)
	assert.True(t, main.MatchString("WSJT-X   v2.6.1   by K1JT et al."))
	assert.False(t, main.MatchString("WSJT-X - Log QSO"))

	logQSO := regexp.MustCompile(LogQSOPattern)
	assert.True(t, logQSO.MatchString("WSJT-X - Log QSO"))

	alerts := regexp.MustCompile(AlertsPattern)
	assert.True(t, alerts.MatchString("GridTracker Alerts"))
}

func TestDefaultADIFPath(t *testing.T) {
	// Cannot use t.Parallel() - modifies environment variables
	tmpDir := t.TempDir()
	t.Setenv("LOCALAPPDATA", tmpDir)

	assert.Equal(t, filepath.Join(tmpDir, "WSJT-X", "wsjtx_log.adi"), DefaultADIFPath())
}

func TestDefaultADIFPath_FallbackToUserProfile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("LOCALAPPDATA", "")
	t.Setenv("USERPROFILE", tmpDir)

	expected := filepath.Join(tmpDir, "AppData", "Local", "WSJT-X", "wsjtx_log.adi")
	assert.Equal(t, expected, DefaultADIFPath())
}
