/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"gasdock/internal/bootstrap"
	"gasdock/internal/bootstrap/logging"
	"gasdock/internal/errs"
	"gasdock/internal/usecase/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a single certificate without the watcher",
	Long:  "Runs one file through the same pipeline as watch, e.g. to re-drop a corrected file from quarantine.",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *ingest.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		file, _ := cmd.Flags().GetString("file")
		if file == "" {
			return errors.New("--file is required")
		}
		abs, err := filepath.Abs(file)
		if err != nil {
			return errs.Wrap(err, "resolve file path")
		}
		if info, err := os.Stat(abs); err != nil {
			return errs.Wrap(err, "stat certificate")
		} else if info.IsDir() {
			return fmt.Errorf("%s is a directory", abs)
		}
		if !svc.Accepts(abs) {
			return fmt.Errorf("%s does not have the configured extension %s", abs, app.Config.Ingest.Extension)
		}

		release, err := acquireIngestLock(ctx, app.Config.Paths.LockFile())
		if err != nil {
			return err
		}
		defer release()

		if err := app.EnsureLayout(ctx); err != nil {
			return errs.Wrap(err, "create folder layout")
		}
		if err := app.InitSchema(ctx); err != nil {
			return errs.Wrap(err, "initialize schema")
		}

		out, err := svc.ProcessFile(ctx, abs)
		if err != nil {
			return errs.Wrap(err, "process certificate")
		}

		w := cmd.OutOrStdout()
		if out.Quarantined() {
			_, err = fmt.Fprintf(w, "quarantined: %s\nreason: %v\nevent: %d\n", out.Destination, out.Cause, out.Event.ID)
		} else {
			_, err = fmt.Fprintf(w, "%s %s -> %s\nevent: %d\n", out.Event.Serial, renderResult(out.Event.Result), out.Destination, out.Event.ID)
		}
		return errs.Wrap(err, "write ingest output")
	}),
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().String("file", "", "Certificate to ingest")
}
