package cmd

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/txmon/internal/dxcall"
	"github.com/Norgate-AV/txmon/internal/interfaces"
	"github.com/Norgate-AV/txmon/internal/observability"
	"github.com/Norgate-AV/txmon/internal/server"
	"github.com/Norgate-AV/txmon/internal/windows"
	"github.com/Norgate-AV/txmon/internal/wsjtx"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the WSJT-X log and live DX call to the browser extension",
	Long: `serve exposes the WSJT-X ADIF log over HTTP, as the browser extension
expects on localhost:3088. With --watch-dx it also polls the DX Call field and
pushes every change to websocket clients.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd, func(ctx context.Context, ec *ExecutionContext) error {
			if err := applyOverride(cmd, "addr", &ec.settings.Server.Addr); err != nil {
				return err
			}

			if cmd.Flags().Changed("watch-dx") {
				ec.settings.Server.WatchDX, _ = cmd.Flags().GetBool("watch-dx")
			}

			return runServe(ctx, ec)
		})
	},
}

func init() {
	serveCmd.Flags().StringP("addr", "a", "", "listen address (default from config, localhost:3088)")
	serveCmd.Flags().Bool("watch-dx", true, "poll the DX Call field and publish changes")
	RootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context, ec *ExecutionContext) error {
	metrics := observability.NewMetrics(nil).WithRuntimeCollectors()
	opts := server.Options{
		Addr:      ec.settings.Server.Addr,
		ADIFPath:  ec.settings.Server.ADIFPath,
		EnableWS:  ec.settings.Server.EnableWS,
		ReadLimit: ec.settings.Server.ReadLimit,
		RunID:     ec.runID.String(),
	}

	ec.log.Debug("Serving ADIF log", slog.String("path", opts.ADIFPath))

	if !ec.settings.Server.WatchDX {
		return server.New(ec.log, opts, metrics, nil).ListenAndServe(ctx)
	}

	client := windows.NewClient(ec.log)
	app := wsjtx.NewApp(client, interfaces.SystemClock{}, ec.log, ec.settings.AppOptions())
	poller := newPoller(ec, app, metrics)

	srv := server.New(ec.log, opts, metrics, poller)
	poller.OnChange(srv.Hub().Publish)

	go watchDX(ctx, ec, app, client, poller)

	return srv.ListenAndServe(ctx)
}

// watchDX connects and polls on a dedicated OS thread. Failing to find
// WSJT-X leaves the server running without live DX calls.
func watchDX(ctx context.Context, ec *ExecutionContext, app *wsjtx.App, client *windows.Client, poller *dxcall.Poller) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer client.Close()

	if err := app.Connect(ctx); err != nil {
		ec.log.Error("DX call watching disabled", slog.Any("error", err))
		return
	}

	_ = poller.Run(ctx)
}
