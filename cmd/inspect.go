package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/txmon/internal/inspect"
)

var inspectCmd = &cobra.Command{
	Use:          "inspect",
	Short:        "Write a report of the WSJT-X controls for troubleshooting",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, _ := cmd.Flags().GetString("out")

		return run(cmd, func(ctx context.Context, ec *ExecutionContext) error {
			return runInspect(ctx, ec, out)
		})
	},
}

func init() {
	inspectCmd.Flags().StringP("out", "o", inspect.DefaultReportFile, "report file, also printed to stdout")
	RootCmd.AddCommand(inspectCmd)
}

func runInspect(ctx context.Context, ec *ExecutionContext, out string) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	app, client, err := connect(ctx, ec)
	if err != nil {
		return err
	}
	defer client.Close()

	insp := inspect.New(ec.log, client, app.Window(), ec.settings.Controls.TxRadioPrefix)

	return writeReport(insp, os.Stdout, out)
}

// writeReport writes the report to stdout and to the file at path
func writeReport(insp *inspect.Inspector, stdout io.Writer, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	if err := insp.Report(io.MultiWriter(stdout, f)); err != nil {
		return fmt.Errorf("error during UI inspection: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	fmt.Fprintf(stdout, "\nComplete inspection saved to: %s\n", abs)
	return nil
}
