/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"gasdock/internal/bootstrap"
	"gasdock/internal/bootstrap/logging"
	"gasdock/internal/errs"
	"gasdock/internal/usecase/ingest"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export test events as CSV",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *ingest.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		query, err := eventQueryFromFlags(cmd)
		if err != nil {
			return err
		}
		if err := query.Validate(); err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		output, _ := cmd.Flags().GetString("output")
		if output != "" && output != "-" {
			f, err := os.Create(output)
			if err != nil {
				return errs.Wrap(err, "create output file")
			}
			defer f.Close()
			w = f
		}

		n, err := svc.ExportCSV(ctx, w, query)
		if err != nil {
			logging.Error(ctx, "export events failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "export events")
		}
		logging.Info(ctx, "events exported", slog.Int("rows", n), slog.String("output", output))
		if output != "" && output != "-" {
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "exported %d events to %s\n", n, output)
			return errs.Wrap(err, "write export output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(exportCmd)

	addRangeFlags(exportCmd)
	exportCmd.Flags().StringP("output", "o", "", "Write CSV to this file instead of stdout")
}
