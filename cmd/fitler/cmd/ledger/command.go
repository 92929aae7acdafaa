// Package ledger implements the ledger command.
package ledger

import (
	"github.com/spf13/cobra"

	"github.com/ckdake/fitler/cmd/application"
	"github.com/ckdake/fitler/internal/cmd/cmdutil"
	"github.com/ckdake/fitler/internal/cmd/table"
	pkgledger "github.com/ckdake/fitler/pkg/ledger"
)

// NewCommand creates the ledger command.
func NewCommand(app application.Application) *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:     "ledger",
		GroupID: "management",
		Short:   "Show which months each source has synced",
		Example: `  fitler ledger                  # Every entry, newest month first
  fitler ledger --period 2024-08 # One month`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var want string
			if period != "" {
				p, err := cmdutil.ParsePeriod("period", period)
				if err != nil {
					return err
				}
				want = p.String()
			}

			f, err := app.Fitler()
			if err != nil {
				return err
			}

			entries, err := f.Ledger(cmd.Context())
			if err != nil {
				return err
			}
			if want != "" {
				entries = filter(entries, want)
			}

			return cmdutil.Write(cmd.OutOrStdout(), app.OutputFormat(), entries, table.EntriesToTableData(entries, app.Location()))
		},
	}

	cmd.Flags().StringVarP(&period, "period", "p", "", "Only show this month (YYYY-MM)")

	return cmd
}

func filter(entries []pkgledger.Entry, period string) []pkgledger.Entry {
	out := entries[:0:0]
	for _, e := range entries {
		if e.Period == period {
			out = append(out, e)
		}
	}
	return out
}
