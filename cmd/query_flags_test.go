package cmd

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"gasdock/internal/usecase/ingest"
)

func newQueryTestCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()

	cmd := &cobra.Command{Use: "test"}
	addRangeFlags(cmd)
	cmd.Flags().Int("limit", 50, "")
	if err := cmd.Flags().Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return cmd
}

func TestEventQueryFromFlags(t *testing.T) {
	cmd := newQueryTestCommand(t, "--serial", "arr", "--result", "fail", "--from", "2026-02-01", "--to", "2026-02-03", "--limit", "5")

	query, err := eventQueryFromFlags(cmd)
	if err != nil {
		t.Fatalf("eventQueryFromFlags() error = %v", err)
	}
	if query.Serial != "arr" || query.Result != "fail" || query.Limit != 5 {
		t.Fatalf("query = %+v", query)
	}
	if query.From == nil || !query.From.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("From = %v, want start of 2026-02-01", query.From)
	}
	if query.To == nil || query.To.Before(time.Date(2026, 2, 3, 23, 59, 59, 0, time.UTC)) {
		t.Fatalf("To = %v, want end of 2026-02-03", query.To)
	}
	if err := query.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestEventQueryFromFlagsRejectsBadDate(t *testing.T) {
	cmd := newQueryTestCommand(t, "--from", "03/02/2026")

	_, err := eventQueryFromFlags(cmd)
	if !errors.Is(err, ingest.ErrInvalidFilter) {
		t.Fatalf("eventQueryFromFlags() error = %v, want ErrInvalidFilter", err)
	}
}

func TestEventQueryFromFlagsDefaults(t *testing.T) {
	query, err := eventQueryFromFlags(newQueryTestCommand(t))
	if err != nil {
		t.Fatalf("eventQueryFromFlags() error = %v", err)
	}
	if query.From != nil || query.To != nil || query.Limit != 50 {
		t.Fatalf("query = %+v, want open range with limit 50", query)
	}
}
