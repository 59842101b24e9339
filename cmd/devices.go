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

var devicesCmd = &cobra.Command{
	Use:   "devices [serial]",
	Short: "List device snapshots, or show one device with its history",
	Args:  cobra.MaximumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *ingest.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		out := cmd.OutOrStdout()

		if args := cmd.Flags().Args(); len(args) == 1 {
			detail, err := svc.DeviceDetail(ctx, args[0])
			if err != nil {
				return errs.Wrap(err, "load device")
			}
			d := detail.Device
			if _, err := fmt.Fprintf(
				out,
				"%s\nserial: %s\ndevice type: %s\nlast result: %s\nlast tested: %s\n\n%s\n",
				sectionStyle.Render("Device"),
				d.Serial,
				orDash(d.DeviceType),
				renderResult(d.LastResult),
				d.LastTestedAt.UTC().Format(time.RFC3339),
				sectionStyle.Render("History"),
			); err != nil {
				return errs.Wrap(err, "write device")
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, ev := range detail.Events {
				if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", ev.TestedAt.UTC().Format(time.RFC3339), renderResult(ev.Result), ev.SourceFilePath); err != nil {
					return errs.Wrap(err, "write device history")
				}
			}
			return errs.Wrap(w.Flush(), "flush device history")
		}

		query, err := eventQueryFromFlags(cmd)
		if err != nil {
			return err
		}
		devices, err := svc.ListDevices(ctx, ingest.DeviceQuery{
			Serial:     query.Serial,
			LastResult: query.Result,
			From:       query.From,
			To:         query.To,
		})
		if err != nil {
			logging.Error(ctx, "list devices failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "list devices")
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		if _, err := fmt.Fprintln(w, "serial\tdevice_type\tlast_tested_at\tlast_result"); err != nil {
			return errs.Wrap(err, "write devices header")
		}
		for _, d := range devices {
			if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Serial, orDash(d.DeviceType), d.LastTestedAt.UTC().Format(time.RFC3339), renderResult(d.LastResult)); err != nil {
				return errs.Wrap(err, "write device row")
			}
		}
		return errs.Wrap(w.Flush(), "flush devices")
	}),
}

func init() {
	rootCmd.AddCommand(devicesCmd)

	addRangeFlags(devicesCmd)
}
