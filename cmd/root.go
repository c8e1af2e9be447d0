package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/txmon/internal/config"
	"github.com/Norgate-AV/txmon/internal/interfaces"
	"github.com/Norgate-AV/txmon/internal/logger"
	"github.com/Norgate-AV/txmon/internal/observability"
	"github.com/Norgate-AV/txmon/internal/supervisor"
	"github.com/Norgate-AV/txmon/internal/version"
	"github.com/Norgate-AV/txmon/internal/windows"
	"github.com/Norgate-AV/txmon/internal/wsjtx"
)

// consoleCloseGrace is how long a console close event waits for the running
// command to finish before Windows terminates the process
const consoleCloseGrace = 3 * time.Second

// ExecutionContext holds state shared by every command
type ExecutionContext struct {
	cfg      *Config
	settings *config.Config
	log      logger.LoggerInterface
	runID    uuid.UUID
	exitFunc func(int) // Injectable for testing; defaults to os.Exit
}

// RootCmd is the root command for the txmon CLI application.
var RootCmd = &cobra.Command{
	Use:   "txmon",
	Short: "txmon - Keep WSJT-X transmitting CQ without babysitting it",
	Long: `txmon watches the WSJT-X main window and keeps "Enable Tx" on while
calling CQ. It pauses after a long unanswered CQ run, escapes stuck signal
reports and confirms the Log QSO dialog.`,
	Version:      version.GetVersion(),
	Args:         cobra.NoArgs,
	RunE:         Execute,
	SilenceUsage: true, // Don't show usage on runtime errors
}

func init() {
	// Set custom version template to show full version info
	RootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	RootCmd.PersistentFlags().BoolP("verbose", "V", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolP("logs", "l", false, "print the current log file to stdout and exit")
	RootCmd.PersistentFlags().StringP("config", "c", "", "path to a YAML config file (default $"+config.EnvConfigPath+")")
	RootCmd.PersistentFlags().Bool("elevate", false, "relaunch as administrator if not elevated (needed when WSJT-X runs elevated)")
	RootCmd.Flags().String("metrics-addr", "", "serve supervisor metrics at http://ADDR/metrics while monitoring")
}

// handleLogsFlag prints the log file and exits when --logs is set
func handleLogsFlag(cfg *Config, exitFunc func(int)) error {
	if !cfg.ShowLogs {
		return nil
	}

	err := logger.PrintLogFile(nil, logger.LoggerOptions{})

	switch {
	case err == nil:
		exitFunc(0)
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintf(os.Stderr, "Log file does not exist: %s\n", logger.GetLogPath(logger.LoggerOptions{}))
		exitFunc(1)
	default:
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		exitFunc(1)
	}

	return nil
}

// initializeLogger creates a logger with timestamped console output whose
// file records carry runID
func initializeLogger(cfg *Config, runID uuid.UUID) (logger.LoggerInterface, error) {
	log, err := logger.NewLogger(logger.LoggerOptions{
		Verbose:    cfg.Verbose,
		Timestamps: true,
		Compress:   true,
		RunID:      runID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

// ensureElevated checks for admin privileges and relaunches if needed
func ensureElevated(log logger.LoggerInterface) error {
	return ensureElevatedWithDeps(log, windows.IsElevated, windows.RelaunchAsAdmin, os.Exit)
}

// ensureElevatedWithDeps relaunches through UAC when not elevated and exits
// this instance once the elevated one has started
func ensureElevatedWithDeps(
	log logger.LoggerInterface,
	isElevated func() bool,
	relaunchAsAdmin func() error,
	exitFunc func(int),
) error {
	if isElevated() {
		log.Debug("Running with administrator privileges")
		return nil
	}

	log.Info("Not elevated, relaunching as administrator")

	if err := relaunchAsAdmin(); err != nil {
		log.Error("Relaunch as administrator failed", slog.Any("error", err))
		return fmt.Errorf("error relaunching as admin: %w", err)
	}

	log.Debug("Elevated instance started, exiting")
	log.Close()
	exitFunc(0)

	return nil
}

// signalContext returns a context cancelled by Ctrl+C, SIGTERM or the console
// window closing. finish must be called when the command is done; console
// close events wait for it so cleanup can complete.
func signalContext(parent context.Context, log logger.LoggerInterface) (ctx context.Context, finish func()) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	err := windows.OnConsoleClose(func(ctrlType uint32) {
		log.Debug("Received console control event",
			slog.String("type", windows.GetCtrlTypeName(ctrlType)),
			slog.Uint64("code", uint64(ctrlType)),
		)
		cancel()

		if ctrlType == windows.CTRL_C_EVENT || ctrlType == windows.CTRL_BREAK_EVENT {
			return
		}

		select {
		case <-done:
		case <-time.After(consoleCloseGrace):
		}
	})
	if err != nil {
		log.Debug("Console control handler not installed", slog.Any("error", err))
	}

	return ctx, func() {
		cancel()
		stop()
		close(done)
	}
}

// prepare parses flags, loads configuration and creates the logger
func prepare(cmd *cobra.Command) (*ExecutionContext, error) {
	cfg := NewConfigFromFlags(cmd)

	if err := handleLogsFlag(cfg, os.Exit); err != nil {
		return nil, err
	}

	settings, err := loadSettings(cfg)
	if err != nil {
		return nil, err
	}

	runID := uuid.New()

	log, err := initializeLogger(cfg, runID)
	if err != nil {
		return nil, err
	}

	log.Debug("Starting txmon",
		slog.String("command", cmd.Name()),
		slog.String("version", version.GetVersion()),
	)
	log.Debug("Flags set",
		slog.Bool("verbose", cfg.Verbose),
		slog.Bool("elevate", cfg.Elevate),
		slog.String("config", cfg.ConfigPath),
		slog.String("metrics_addr", cfg.MetricsAddr),
	)

	if cfg.Elevate {
		if err := ensureElevated(log); err != nil {
			log.Close()
			return nil, err
		}
	}

	return &ExecutionContext{
		cfg:      cfg,
		settings: settings,
		log:      log,
		runID:    runID,
		exitFunc: os.Exit,
	}, nil
}

// run prepares the command, then calls fn with a cancellable context,
// recovering and logging any panic
func run(cmd *cobra.Command, fn func(ctx context.Context, ec *ExecutionContext) error) (err error) {
	ec, err := prepare(cmd)
	if err != nil {
		return err
	}

	defer ec.log.Close()

	// Recover from panics and log them
	defer func() {
		if r := recover(); r != nil {
			ec.log.Error("PANIC RECOVERED",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)

			fmt.Fprintf(os.Stderr, "\n*** PANIC: %v ***\n", r)
			fmt.Fprintf(os.Stderr, "Check log file for details\n")
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	ctx, finish := signalContext(cmd.Context(), ec.log)
	defer finish()

	return fn(ctx, ec)
}

// connect creates the UI Automation client and attaches to WSJT-X. The
// caller must be locked to its OS thread and must close the client.
func connect(ctx context.Context, ec *ExecutionContext) (*wsjtx.App, *windows.Client, error) {
	client := windows.NewClient(ec.log)
	app := wsjtx.NewApp(client, interfaces.SystemClock{}, ec.log, ec.settings.AppOptions())

	if err := app.Connect(ctx); err != nil {
		client.Close()
		return nil, nil, err
	}

	return app, client, nil
}

// Execute runs the TX supervisor until interrupted.
func Execute(cmd *cobra.Command, _ []string) error {
	return run(cmd, runMonitor)
}

func runMonitor(ctx context.Context, ec *ExecutionContext) error {
	// UI Automation is bound to the thread that created it
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	app, client, err := connect(ctx, ec)
	if err != nil {
		return err
	}
	defer client.Close()

	metrics := observability.NewMetrics(nil)

	if ec.cfg.MetricsAddr != "" {
		ms, err := startMetrics(ec.log, ec.cfg.MetricsAddr, metrics.WithRuntimeCollectors())
		if err != nil {
			return err
		}
		defer ms.Stop()
	}

	sup := supervisor.NewSupervisor(ec.log, app, supervisorSettings(ec.settings), metrics, ec.runID)
	return sup.Run(ctx)
}
