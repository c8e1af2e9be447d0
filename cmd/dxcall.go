package cmd

import (
	"context"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/txmon/internal/dxcall"
	"github.com/Norgate-AV/txmon/internal/interfaces"
	"github.com/Norgate-AV/txmon/internal/observability"
)

var dxcallCmd = &cobra.Command{
	Use:          "dxcall",
	Short:        "Mirror the WSJT-X DX Call field into a text file",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, func(ctx context.Context, ec *ExecutionContext) error {
			if err := applyOverride(cmd, "file", &ec.settings.DXCall.File); err != nil {
				return err
			}

			return runDXCall(ctx, ec)
		})
	},
}

func init() {
	dxcallCmd.Flags().StringP("file", "f", "", "file the DX call is written to (default from config)")
	RootCmd.AddCommand(dxcallCmd)
}

// newPoller builds the DX call poller for src from the configuration
func newPoller(ec *ExecutionContext, src interfaces.TextSource, metrics *observability.Metrics) *dxcall.Poller {
	return dxcall.NewPoller(ec.log, src, dxcall.Options{
		Control:  ec.settings.Controls.DXCall,
		File:     ec.settings.DXCall.File,
		Interval: ec.settings.DXCall.Interval,
	}, interfaces.SystemClock{}, metrics)
}

func runDXCall(ctx context.Context, ec *ExecutionContext) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	app, client, err := connect(ctx, ec)
	if err != nil {
		return err
	}
	defer client.Close()

	return newPoller(ec, app, observability.NewMetrics(nil)).Run(ctx)
}
