/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"gasdock/internal/bootstrap"
	"gasdock/internal/bootstrap/logging"
	"gasdock/internal/errs"
	"gasdock/internal/usecase/ingest"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List recorded test events, newest first",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *ingest.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		query, err := eventQueryFromFlags(cmd)
		if err != nil {
			return err
		}
		events, err := svc.ListEvents(ctx, query)
		if err != nil {
			logging.Error(ctx, "list events failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "list events")
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		if _, err := fmt.Fprintln(w, "id\tserial\ttested_at\tresult\tdevice_type\tstatus\tfile"); err != nil {
			return errs.Wrap(err, "write events header")
		}
		for _, ev := range events {
			status := ev.ParseStatus
			if ev.ParseError != "" {
				status += ": " + ev.ParseError
			}
			if _, err := fmt.Fprintf(
				w,
				"%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
				ev.ID,
				ev.Serial,
				ev.TestedAt.UTC().Format(time.RFC3339),
				renderResult(ev.Result),
				orDash(ev.DeviceType),
				status,
				ev.SourceFilePath,
			); err != nil {
				return errs.Wrap(err, "write event row")
			}
		}
		return errs.Wrap(w.Flush(), "flush events")
	}),
}

func init() {
	rootCmd.AddCommand(eventsCmd)

	addRangeFlags(eventsCmd)
	eventsCmd.Flags().Int("limit", 50, "Maximum rows, 0 for all")
}
