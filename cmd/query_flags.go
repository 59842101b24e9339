package cmd

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"gasdock/internal/usecase/ingest"
)

var (
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	passStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	unknownStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func addRangeFlags(cmd *cobra.Command) {
	cmd.Flags().String("serial", "", "Serial substring (case-insensitive)")
	cmd.Flags().String("result", "", "Result filter: PASS, FAIL or UNKNOWN")
	cmd.Flags().String("from", "", "Earliest tested date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().String("to", "", "Latest tested date, inclusive (YYYY-MM-DD or RFC3339)")
}

func eventQueryFromFlags(cmd *cobra.Command) (ingest.EventQuery, error) {
	serial, _ := cmd.Flags().GetString("serial")
	result, _ := cmd.Flags().GetString("result")
	rawFrom, _ := cmd.Flags().GetString("from")
	rawTo, _ := cmd.Flags().GetString("to")

	from, err := ingest.ParseDateBound(rawFrom, false)
	if err != nil {
		return ingest.EventQuery{}, err
	}
	to, err := ingest.ParseDateBound(rawTo, true)
	if err != nil {
		return ingest.EventQuery{}, err
	}

	query := ingest.EventQuery{Serial: serial, Result: result, From: from, To: to}
	if cmd.Flags().Lookup("limit") != nil {
		query.Limit, _ = cmd.Flags().GetInt("limit")
	}
	return query, nil
}

// renderResult colors a result when stdout is a terminal; lipgloss drops
// the styling otherwise.
func renderResult(result string) string {
	switch strings.ToUpper(result) {
	case "PASS":
		return passStyle.Render(result)
	case "FAIL":
		return failStyle.Render(result)
	default:
		return unknownStyle.Render(result)
	}
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
