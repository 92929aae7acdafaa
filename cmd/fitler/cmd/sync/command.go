// Package sync implements the sync command.
package sync

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ckdake/fitler/cmd/application"
	"github.com/ckdake/fitler/internal/cmd/cmdutil"
	"github.com/ckdake/fitler/internal/cmd/table"
	pkgsync "github.com/ckdake/fitler/pkg/sync"
)

// Flags holds the sync command flags.
type Flags struct {
	DryRun  bool
	Force   bool
	Timeout time.Duration
}

// NewCommand creates the sync command.
func NewCommand(app application.Application) *cobra.Command {
	var (
		flags       = &Flags{}
		periodFlags *cmdutil.PeriodFlags
		sourceFlags *cmdutil.SourceFlags
	)

	cmd := &cobra.Command{
		Use:     "sync <YYYY-MM>",
		GroupID: "core",
		Short:   "Reconcile a month of activities across all sources",
		Long: `Sync fetches one calendar month from every configured source, matches the
activities against stored records and merges them field by field in
precedence order. Each source that completes is marked synced for the month
in the ledger and is skipped by later syncs until the month is reset or
--force is given.

A source that fails does not stop the others; it stays unsynced and is
retried by the next sync.`,
		Example: `  fitler sync 2024-08                       # Sync August 2024
  fitler sync 2024-01 --to 2024-06          # Sync the first half of 2024
  fitler sync 2024-08 --source strava       # Only sync Strava
  fitler sync 2024-08 --dry-run             # Preview changes
  fitler sync 2024-08 --force               # Re-fetch already synced sources`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := periodFlags.Range(args[0])
			if err != nil {
				return err
			}
			srcs, err := sourceFlags.Parsed()
			if err != nil {
				return err
			}

			f, err := app.Fitler()
			if err != nil {
				return err
			}

			opts := []pkgsync.Option{
				pkgsync.WithDryRun(flags.DryRun),
				pkgsync.WithForce(flags.Force),
				pkgsync.WithTimeout(flags.Timeout),
			}
			if len(srcs) > 0 {
				opts = append(opts, pkgsync.WithSources(srcs...))
			}

			reports, syncErr := f.SyncRange(cmd.Context(), from, to, opts...)

			logger := app.Logger()
			for _, r := range reports {
				logger.Info().Str("run_id", r.RunID).Msg(r.Summary())
			}

			if err := cmdutil.Write(cmd.OutOrStdout(), app.OutputFormat(), reports, table.ReportsToTableData(reports)); err != nil {
				return err
			}
			if syncErr != nil {
				return syncErr
			}
			if failed := failedSources(reports); failed > 0 {
				return fmt.Errorf("%d source syncs failed; they will be retried on the next sync", failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "Show what would change without writing")
	cmd.Flags().BoolVarP(&flags.Force, "force", "f", false, "Fetch sources even when the ledger marks them synced")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", 0, "Bound each month's sync (0 means no bound)")
	periodFlags = cmdutil.AddPeriodFlags(cmd)
	sourceFlags = cmdutil.AddSourceFlags(cmd, "Only sync these sources")

	return cmd
}

func failedSources(reports []*pkgsync.Report) int {
	n := 0
	for _, r := range reports {
		n += len(r.Failed())
	}
	return n
}
