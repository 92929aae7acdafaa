package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/ckdake/fitler/cmd/fitler/cmd/changes"
	"github.com/ckdake/fitler/cmd/fitler/cmd/ledger"
	"github.com/ckdake/fitler/cmd/fitler/cmd/records"
	"github.com/ckdake/fitler/cmd/fitler/cmd/reset"
	synccmd "github.com/ckdake/fitler/cmd/fitler/cmd/sync"
	"github.com/ckdake/fitler/cmd/fitler/cmd/version"
	"github.com/ckdake/fitler/internal/cmd/output"
	"github.com/ckdake/fitler/pkg/errors"
)

// Execute runs the fitler CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "fitler",
		Short:   "Reconcile fitness activities across sources",
		Version: a.version,
		Long: `Fitler merges the activities that Strava, Garmin, RideWithGPS, a spreadsheet
and local export files report into one canonical record per real-world
activity, one calendar month at a time.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "Core Commands:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "management",
		Title: "Management Commands:",
	})

	rootCmd.PersistentFlags().StringVar(&a.config.ConfigFile, "config", "", "config file (default is $HOME/.fitler.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&a.config.Verbose, "verbose", "v", a.config.Verbose, "verbose output (shortcut for --log-level=debug)")
	rootCmd.PersistentFlags().BoolVarP(&a.config.Quiet, "quiet", "q", a.config.Quiet, "minimal output (shortcut for --log-level=warn)")
	rootCmd.PersistentFlags().BoolVar(&a.config.NoColor, "no-color", a.config.NoColor, "disable colored output")
	rootCmd.PersistentFlags().StringVarP(&a.config.Output, "output", "o", a.config.Output, "output format: table, json, yaml, csv")
	rootCmd.PersistentFlags().StringVar(&a.config.LogLevel, "log-level", a.config.LogLevel, "log level: trace, debug, info, warn, error (overrides -v/-q)")
	rootCmd.PersistentFlags().StringVar(&a.config.Database, "database", a.config.Database, "path of the sqlite database")

	if a.in != nil {
		rootCmd.SetIn(a.in)
	}
	if a.out != nil {
		rootCmd.SetOut(a.out)
	}
	if a.errOut != nil {
		rootCmd.SetErr(a.errOut)
	}

	rootCmd.SetVersionTemplate("fitler {{.Version}}\n")

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand is called before any command runs. A --config file is read
// here, with flags still taking precedence over it.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	if path := a.config.ConfigFile; path != "" && flags.Changed("config") {
		loaded, err := LoadConfig(path)
		if err != nil {
			return err
		}
		for name, apply := range map[string]func(){
			"verbose":   func() { loaded.Verbose = a.config.Verbose },
			"quiet":     func() { loaded.Quiet = a.config.Quiet },
			"no-color":  func() { loaded.NoColor = a.config.NoColor },
			"output":    func() { loaded.Output = a.config.Output },
			"log-level": func() { loaded.LogLevel = a.config.LogLevel },
			"database":  func() { loaded.Database = a.config.Database },
		} {
			if flags.Changed(name) {
				apply()
			}
		}
		*a.config = *loaded
	}

	if _, err := output.ParseFormat(a.config.Output); err != nil {
		return errors.WrapValidation("output", err)
	}

	logger := NewLogger(a.config)
	a.logger = &logger

	return nil
}

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(synccmd.NewCommand(a))
	rootCmd.AddCommand(reset.NewCommand(a))
	rootCmd.AddCommand(records.NewCommand(a))
	rootCmd.AddCommand(changes.NewCommand(a))

	// Management commands
	rootCmd.AddCommand(ledger.NewCommand(a))

	// Utility commands
	rootCmd.AddCommand(version.NewCommand(a))
}

// ExitOnError is a helper that prints an error and exits with status 1.
// This is meant to be used in main.go for top-level error handling.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
