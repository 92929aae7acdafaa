// Package reset implements the reset command.
package reset

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ckdake/fitler/cmd/application"
	"github.com/ckdake/fitler/internal/cmd/cmdutil"
	"github.com/ckdake/fitler/internal/cmd/table"
)

// NewCommand creates the reset command.
func NewCommand(app application.Application) *cobra.Command {
	var (
		yes         bool
		periodFlags *cmdutil.PeriodFlags
	)

	cmd := &cobra.Command{
		Use:     "reset <YYYY-MM>",
		GroupID: "core",
		Short:   "Forget a month so the next sync rebuilds it",
		Long: `Reset clears every ledger entry for the month and removes the source links
that syncing it produced. Records left without any link are deleted;
records still linked from another month are kept. The next sync of the
month fetches every source again.`,
		Example: `  fitler reset 2024-08                      # Reset August 2024
  fitler reset 2024-01 --to 2024-03 --yes   # Reset a quarter without asking`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := periodFlags.Range(args[0])
			if err != nil {
				return err
			}

			if !yes {
				question := fmt.Sprintf("Reset %s", from)
				if to != from {
					question = fmt.Sprintf("Reset %s through %s", from, to)
				}
				if !cmdutil.Confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), question+"?") {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Reset cancelled")
					return nil
				}
			}

			f, err := app.Fitler()
			if err != nil {
				return err
			}

			results, resetErr := f.ResetRange(cmd.Context(), from, to)
			if len(results) > 0 {
				if err := cmdutil.Write(cmd.OutOrStdout(), app.OutputFormat(), results, table.ResetsToTableData(results)); err != nil {
					return err
				}
			}
			return resetErr
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	periodFlags = cmdutil.AddPeriodFlags(cmd)

	return cmd
}
