// Package cmd implements the command-line interface for txmon.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/txmon/internal/config"
	"github.com/Norgate-AV/txmon/internal/supervisor"
)

// Config holds the flags shared by every command
type Config struct {
	Verbose     bool
	ShowLogs    bool
	Elevate     bool
	ConfigPath  string
	MetricsAddr string
}

// NewConfigFromFlags creates a Config from parsed command flags
func NewConfigFromFlags(cmd *cobra.Command) *Config {
	return &Config{
		Verbose:     getBoolFlag(cmd, "verbose"),
		ShowLogs:    getBoolFlag(cmd, "logs"),
		Elevate:     getBoolFlag(cmd, "elevate"),
		ConfigPath:  getStringFlag(cmd, "config"),
		MetricsAddr: getStringFlag(cmd, "metrics-addr"),
	}
}

// getBoolFlag retrieves a boolean flag, checking both local and persistent flags
func getBoolFlag(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		// Try persistent flags if not found in local flags
		val, _ = cmd.PersistentFlags().GetBool(name)
	}

	return val
}

func getStringFlag(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		val, _ = cmd.PersistentFlags().GetString(name)
	}

	return val
}

// loadSettings reads the YAML configuration named by --config
func loadSettings(cfg *Config) (*config.Config, error) {
	settings, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}

	return settings, nil
}

// supervisorSettings maps the configuration file onto supervisor settings
func supervisorSettings(c *config.Config) supervisor.Settings {
	s := c.Supervisor

	return supervisor.Settings{
		EnableTx:          c.Controls.EnableTx,
		Tx6:               c.Controls.Tx6,
		Report:            c.Controls.Report,
		TickInterval:      s.TickInterval,
		TX6Timeout:        s.TX6Timeout,
		Pause:             s.Pause,
		PausePollInterval: s.PausePollInterval,
		ReportMax:         s.ReportMax,
		Rest:              s.Rest,
		ClickSettle:       s.ClickSettle,
		ErrorRetryDelay:   s.ErrorRetryDelay,
		DismissLogQSO:     s.DismissLogQSO,
		CloseAlerts:       s.CloseAlerts,
	}
}

// applyOverride sets *dst to val when the flag was given on the command line
func applyOverride(cmd *cobra.Command, name string, dst *string) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}

	val, err := cmd.Flags().GetString(name)
	if err != nil {
		return fmt.Errorf("flag --%s: %w", name, err)
	}

	*dst = val
	return nil
}
