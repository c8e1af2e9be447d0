package cmd

import (
	"context"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/txmon/internal/inspect"
)

var radiosCmd = &cobra.Command{
	Use:          "radios",
	Short:        "Show the state of the Tx message radio buttons (txrb1-txrb6)",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, runRadios)
	},
}

func init() {
	RootCmd.AddCommand(radiosCmd)
}

func runRadios(ctx context.Context, ec *ExecutionContext) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	app, client, err := connect(ctx, ec)
	if err != nil {
		return err
	}
	defer client.Close()

	ec.log.Info("Checking status of radio buttons txrb1 through txrb6...")

	insp := inspect.New(ec.log, client, app.Window(), ec.settings.Controls.TxRadioPrefix)

	states, err := insp.RadioStates(ctx)
	printRadioStates(ec, states)
	if err != nil {
		return err
	}

	ec.log.Info("Radio button check complete.")
	return nil
}

func printRadioStates(ec *ExecutionContext, states []inspect.RadioState) {
	for _, s := range states {
		if s.Err != nil {
			ec.log.Warn(s.String())
			continue
		}

		ec.log.Info(s.String())
		ec.log.Info("  Position: " + s.Rect.String())
	}
}
