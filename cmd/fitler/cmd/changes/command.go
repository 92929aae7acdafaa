// Package changes implements the changes command.
package changes

import (
	"github.com/spf13/cobra"

	"github.com/ckdake/fitler/cmd/application"
	"github.com/ckdake/fitler/internal/cmd/cmdutil"
	"github.com/ckdake/fitler/internal/cmd/table"
)

// NewCommand creates the changes command.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "changes <YYYY-MM>",
		GroupID: "core",
		Short:   "List provider edits needed to match the canonical records",
		Long: `Changes compares what each source last reported for the month with the
canonical record it is linked to. A differing name or equipment becomes an
update for that source, and records missing from a configured spreadsheet
become add_activity entries. Nothing is written.`,
		Example: `  fitler changes 2024-08
  fitler changes 2024-08 -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := cmdutil.ParsePeriod("period", args[0])
			if err != nil {
				return err
			}

			f, err := app.Fitler()
			if err != nil {
				return err
			}

			changes, err := f.Changes(cmd.Context(), p)
			if err != nil {
				return err
			}
			app.Logger().Debug().Str("period", p.String()).Int("changes", len(changes)).Msg("Computed changes")

			return cmdutil.Write(cmd.OutOrStdout(), app.OutputFormat(), changes, table.ChangesToTableData(changes))
		},
	}
	return cmd
}
