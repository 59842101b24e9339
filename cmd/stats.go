/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gasdock/internal/bootstrap"
	"gasdock/internal/bootstrap/logging"
	"gasdock/internal/errs"
	"gasdock/internal/usecase/ingest"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show ledger totals and recent failures",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *ingest.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		days, _ := cmd.Flags().GetInt("window-days")
		if days < 1 {
			return errors.New("--window-days must be at least 1")
		}
		stats, err := svc.Stats(ctx, time.Duration(days)*24*time.Hour)
		if err != nil {
			logging.Error(ctx, "load stats failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "load stats")
		}

		var b strings.Builder
		b.WriteString(sectionStyle.Render("Ledger"))
		b.WriteString("\n")
		fmt.Fprintf(&b, "devices: %d\n", stats.TotalDevices)
		fmt.Fprintf(&b, "tests:   %d\n", stats.TotalEvents)
		fmt.Fprintf(&b, "failures in last %d days: %s\n\n", days, failStyle.Render(fmt.Sprint(stats.FailuresInWindow)))

		b.WriteString(sectionStyle.Render("Recent failures"))
		b.WriteString("\n")
		if len(stats.RecentFailures) == 0 {
			b.WriteString(dimStyle.Render("- none"))
			b.WriteString("\n")
		}
		for _, ev := range stats.RecentFailures {
			fmt.Fprintf(&b, "- %s %s %s\n", ev.TestedAt.UTC().Format(time.RFC3339), ev.Serial, dimStyle.Render(ev.SourceFilePath))
		}

		_, err = fmt.Fprint(cmd.OutOrStdout(), b.String())
		return errs.Wrap(err, "write stats")
	}),
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().Int("window-days", 7, "Trailing window for the failure count")
}
