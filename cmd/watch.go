/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"gasdock/internal/bootstrap"
	"gasdock/internal/bootstrap/logging"
	"gasdock/internal/errs"
	"gasdock/internal/infrastructure/watch"
	"gasdock/internal/transport/httpapi"
	"gasdock/internal/usecase/ingest"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the import folder and ingest new certificates",
	Long:  "Runs until SIGINT/SIGTERM. On shutdown no new files are accepted and in-flight certificates get ingest.shutdown_grace to finish.",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *ingest.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		release, err := acquireIngestLock(ctx, app.Config.Paths.LockFile())
		if err != nil {
			logging.Error(ctx, "acquire ingest lock failed", slog.Any("err", errs.Loggable(err)))
			return err
		}
		defer release()

		if err := app.EnsureLayout(ctx); err != nil {
			return errs.Wrap(err, "create folder layout")
		}
		if err := app.InitSchema(ctx); err != nil {
			return errs.Wrap(err, "initialize schema")
		}

		watcher, err := watch.NewWatcher(app.Config.Paths.ImportDir)
		if err != nil {
			return errs.Wrap(err, "create watcher")
		}

		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		serve, _ := cmd.Flags().GetBool("serve")
		listen, _ := cmd.Flags().GetString("listen")
		if !cmd.Flags().Changed("serve") {
			serve = app.Config.Server.Enabled
		}
		if !cmd.Flags().Changed("listen") {
			listen = app.Config.Server.Listen
		}

		logging.Info(
			ctx,
			"watch starting",
			slog.String("import_dir", app.Config.Paths.ImportDir),
			slog.String("sorted_dir", app.Config.Paths.SortedDir),
			slog.String("quarantine_dir", app.Config.Paths.QuarantineDir),
			slog.String("incident_journal", app.Config.Paths.IncidentFile()),
		)

		g, gctx := errgroup.WithContext(sigCtx)
		g.Go(func() error {
			return svc.Run(gctx, watcher)
		})
		if serve {
			g.Go(func() error {
				return httpapi.Serve(gctx, listen, svc)
			})
		}

		if err := g.Wait(); err != nil {
			logging.Error(ctx, "watch stopped with error", slog.Any("err", errs.Loggable(err)))
			return err
		}
		logging.Info(ctx, "watch stopped")
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Bool("serve", false, "Also serve the read-only query API (overrides server.enabled)")
	watchCmd.Flags().String("listen", "", "Listen address for the query API (overrides server.listen)")
}
