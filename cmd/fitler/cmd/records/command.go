// Package records implements the records export command.
package records

import (
	"github.com/spf13/cobra"

	"github.com/ckdake/fitler/cmd/application"
	"github.com/ckdake/fitler/internal/cmd/cmdutil"
	"github.com/ckdake/fitler/internal/cmd/table"
	"github.com/ckdake/fitler/pkg/store"
)

// Flags holds the records command flags.
type Flags struct {
	From  string
	To    string
	Limit int
}

// NewCommand creates the records command.
func NewCommand(app application.Application) *cobra.Command {
	var (
		flags       = &Flags{}
		sourceFlags *cmdutil.SourceFlags
	)

	cmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"export", "ls"},
		GroupID: "core",
		Short:   "Export canonical activity records",
		Long: `Records lists canonical records ordered by start time. --from and --to select
whole months in the home time zone; --to is inclusive.`,
		Example: `  fitler records --from 2024-08                 # August 2024 onwards
  fitler records --from 2024-01 --to 2024-12 -o csv
  fitler records --source garmin --limit 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := flags.query(app, sourceFlags)
			if err != nil {
				return err
			}

			f, err := app.Fitler()
			if err != nil {
				return err
			}

			recs, err := f.Records(cmd.Context(), q)
			if err != nil {
				return err
			}
			app.Logger().Debug().Int("records", len(recs)).Msg("Exported records")

			return cmdutil.Write(cmd.OutOrStdout(), app.OutputFormat(), recs, table.RecordsToTableData(recs, app.Location()))
		},
	}

	cmd.Flags().StringVar(&flags.From, "from", "", "First month (YYYY-MM)")
	cmd.Flags().StringVar(&flags.To, "to", "", "Last month (YYYY-MM), inclusive")
	cmd.Flags().IntVarP(&flags.Limit, "limit", "l", 0, "Limit number of results")
	sourceFlags = cmdutil.AddSourceFlags(cmd, "Only records linked to these sources")

	return cmd
}

// query builds the store query from the flags.
func (f *Flags) query(app application.Application, sourceFlags *cmdutil.SourceFlags) (store.Query, error) {
	loc := app.Location()
	q := store.Query{Limit: f.Limit}

	if f.From != "" {
		p, err := cmdutil.ParsePeriod("from", f.From)
		if err != nil {
			return q, err
		}
		q.From, _ = p.Bounds(loc)
	}
	if f.To != "" {
		p, err := cmdutil.ParsePeriod("to", f.To)
		if err != nil {
			return q, err
		}
		_, q.To = p.Bounds(loc)
	}

	srcs, err := sourceFlags.Parsed()
	if err != nil {
		return q, err
	}
	q.Sources = srcs
	return q, nil
}
