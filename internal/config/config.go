// Package config loads txmon settings from an optional YAML file layered over
// built-in defaults and environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Norgate-AV/txmon/internal/timeouts"
	"github.com/Norgate-AV/txmon/internal/windows"
	"github.com/Norgate-AV/txmon/internal/wsjtx"
)

// EnvConfigPath names the config file when --config is not given
const EnvConfigPath = "TXMON_CONFIG"

// EnvADIFPath overrides server.adif_path
const EnvADIFPath = "ADI_FILE_PATH"

// DefaultServerAddr is where serve listens unless configured otherwise
const DefaultServerAddr = "localhost:3088"

// DefaultDXCallFile is the file the DX call is written to
const DefaultDXCallFile = "dx_input_log.txt"

// Config is the complete txmon configuration
type Config struct {
	Window     WindowConfig     `yaml:"window"`
	Controls   ControlsConfig   `yaml:"controls"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	DXCall     DXCallConfig     `yaml:"dxcall"`
	Server     ServerConfig     `yaml:"server"`
}

// WindowConfig controls how the WSJT-X windows are found
type WindowConfig struct {
	TitlePattern      string        `yaml:"title_pattern"`
	LogQSOPattern     string        `yaml:"log_qso_pattern"`
	AlertsPattern     string        `yaml:"alerts_pattern"`
	ConnectAttempts   int           `yaml:"connect_attempts"`
	ConnectRetryDelay time.Duration `yaml:"connect_retry_delay"`
}

// ControlsConfig identifies the WSJT-X controls
type ControlsConfig struct {
	EnableTx      windows.Control `yaml:"enable_tx"`
	Tx6           windows.Control `yaml:"tx6"`
	Report        windows.Control `yaml:"report"`
	DXCall        windows.Control `yaml:"dx_call"`
	OKButton      windows.Control `yaml:"ok_button"`
	TxRadioPrefix string          `yaml:"tx_radio_prefix"`
}

// SupervisorConfig holds the TX supervisor timings
type SupervisorConfig struct {
	TickInterval      time.Duration `yaml:"tick_interval"`
	TX6Timeout        time.Duration `yaml:"tx6_timeout"`
	Pause             time.Duration `yaml:"pause"`
	PausePollInterval time.Duration `yaml:"pause_poll_interval"`
	ReportMax         time.Duration `yaml:"report_max"`
	Rest              time.Duration `yaml:"rest"`
	ClickSettle       time.Duration `yaml:"click_settle"`
	ErrorRetryDelay   time.Duration `yaml:"error_retry_delay"`
	LogQSODelay       time.Duration `yaml:"log_qso_delay"`
	DismissLogQSO     bool          `yaml:"dismiss_log_qso"`
	CloseAlerts       bool          `yaml:"close_alerts"`
}

// DXCallConfig configures the DX call poller
type DXCallConfig struct {
	File     string        `yaml:"file"`
	Interval time.Duration `yaml:"interval"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	ADIFPath  string `yaml:"adif_path"`
	WatchDX   bool   `yaml:"watch_dx"`
	EnableWS  bool   `yaml:"enable_ws"`
	ReadLimit int64  `yaml:"read_limit"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			TitlePattern:      wsjtx.TitlePattern,
			LogQSOPattern:     wsjtx.LogQSOPattern,
			AlertsPattern:     wsjtx.AlertsPattern,
			ConnectAttempts:   timeouts.ConnectAttempts,
			ConnectRetryDelay: timeouts.ConnectRetryDelay,
		},
		Controls: ControlsConfig{
			EnableTx:      wsjtx.EnableTx,
			Tx6:           wsjtx.Tx6,
			Report:        wsjtx.Report,
			DXCall:        wsjtx.DXCall,
			OKButton:      wsjtx.OKButton,
			TxRadioPrefix: wsjtx.TxRadioPrefix,
		},
		Supervisor: SupervisorConfig{
			TickInterval:      timeouts.TickInterval,
			TX6Timeout:        timeouts.TX6Timeout,
			Pause:             timeouts.Pause,
			PausePollInterval: timeouts.PausePollInterval,
			ReportMax:         timeouts.ReportMax,
			Rest:              timeouts.Rest,
			ClickSettle:       timeouts.ClickSettle,
			ErrorRetryDelay:   timeouts.ErrorRetryDelay,
			LogQSODelay:       timeouts.LogQSODelay,
			DismissLogQSO:     true,
			CloseAlerts:       true,
		},
		DXCall: DXCallConfig{
			File:     DefaultDXCallFile,
			Interval: timeouts.DXCallInterval,
		},
		Server: ServerConfig{
			Addr:      DefaultServerAddr,
			ADIFPath:  wsjtx.DefaultADIFPath(),
			WatchDX:   true,
			EnableWS:  true,
			ReadLimit: 512,
		},
	}
}

// Load builds the configuration. An empty path falls back to $TXMON_CONFIG,
// and when that is unset too only defaults and environment overrides apply.
// A path that was named explicitly must exist.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}

		if err := cfg.decode(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// decode overlays YAML from r onto cfg. Unknown keys are rejected.
func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvADIFPath); v != "" {
		c.Server.ADIFPath = v
	}
}

// Validate reports the first problem with the configuration
func (c *Config) Validate() error {
	patterns := map[string]string{
		"window.title_pattern":   c.Window.TitlePattern,
		"window.log_qso_pattern": c.Window.LogQSOPattern,
		"window.alerts_pattern":  c.Window.AlertsPattern,
	}

	for _, name := range []string{"window.title_pattern", "window.log_qso_pattern", "window.alerts_pattern"} {
		if patterns[name] == "" {
			return fmt.Errorf("%s must not be empty", name)
		}

		if _, err := regexp.Compile(patterns[name]); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	if c.Window.ConnectAttempts < 1 {
		return fmt.Errorf("window.connect_attempts must be at least 1, got %d", c.Window.ConnectAttempts)
	}

	controls := []struct {
		name string
		ctrl windows.Control
	}{
		{"controls.enable_tx", c.Controls.EnableTx},
		{"controls.tx6", c.Controls.Tx6},
		{"controls.report", c.Controls.Report},
		{"controls.dx_call", c.Controls.DXCall},
		{"controls.ok_button", c.Controls.OKButton},
	}

	for _, ctl := range controls {
		if ctl.ctrl.IsZero() {
			return fmt.Errorf("%s needs an automation_id or a name", ctl.name)
		}
	}

	if c.Controls.TxRadioPrefix == "" {
		return errors.New("controls.tx_radio_prefix must not be empty")
	}

	durations := []struct {
		name string
		d    time.Duration
	}{
		{"window.connect_retry_delay", c.Window.ConnectRetryDelay},
		{"supervisor.tick_interval", c.Supervisor.TickInterval},
		{"supervisor.tx6_timeout", c.Supervisor.TX6Timeout},
		{"supervisor.pause", c.Supervisor.Pause},
		{"supervisor.pause_poll_interval", c.Supervisor.PausePollInterval},
		{"supervisor.report_max", c.Supervisor.ReportMax},
		{"supervisor.rest", c.Supervisor.Rest},
		{"supervisor.click_settle", c.Supervisor.ClickSettle},
		{"supervisor.error_retry_delay", c.Supervisor.ErrorRetryDelay},
		{"supervisor.log_qso_delay", c.Supervisor.LogQSODelay},
		{"dxcall.interval", c.DXCall.Interval},
	}

	for _, d := range durations {
		if d.d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.d)
		}
	}

	if c.DXCall.File == "" {
		return errors.New("dxcall.file must not be empty")
	}

	if c.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}

	if c.Server.ReadLimit <= 0 {
		return fmt.Errorf("server.read_limit must be positive, got %d", c.Server.ReadLimit)
	}

	return nil
}

// AppOptions converts the window settings for wsjtx.NewApp. Call after Validate.
func (c *Config) AppOptions() wsjtx.Options {
	return wsjtx.Options{
		TitlePattern:      regexp.MustCompile(c.Window.TitlePattern),
		LogQSOPattern:     regexp.MustCompile(c.Window.LogQSOPattern),
		AlertsPattern:     regexp.MustCompile(c.Window.AlertsPattern),
		OKButton:          c.Controls.OKButton,
		ConnectAttempts:   c.Window.ConnectAttempts,
		ConnectRetryDelay: c.Window.ConnectRetryDelay,
		ClickSettle:       c.Supervisor.ClickSettle,
		LogQSODelay:       c.Supervisor.LogQSODelay,
	}
}

// Marshal renders the configuration as YAML
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(c); err != nil {
		return nil, err
	}

	if err := enc.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
