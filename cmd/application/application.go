// Package application provides the application interface for fitler commands.
//
// The Application interface defines the contract between the application layer and
// command implementations, enabling dependency injection and testability.
//
// Usage in Commands:
//
//	func NewCommand(app application.Application) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            f, err := app.Fitler()
//	            if err != nil {
//	                return err
//	            }
//	            report, err := f.Sync(cmd.Context(), p)
//	            // ...
//	        },
//	    }
//	}
//
// Testing with Mocks:
//
//	mock := &application.Mock{
//	    FitlerFunc: func() (fitler.Fitler, error) {
//	        return testFitler, nil
//	    },
//	}
//	cmd := sync.NewCommand(mock)
package application

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ckdake/fitler"
)

// Application provides the application interface that commands need.
// The App struct from cmd/fitler/app implements this interface.
//
// Thread Safety: All methods must be safe for concurrent access.
type Application interface {
	// Fitler returns the engine, opening the store on first use.
	Fitler() (fitler.Fitler, error)

	// Location returns the home time zone used for months and display.
	Location() *time.Location

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, json, yaml, csv).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
