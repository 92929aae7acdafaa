// Package main is the fitler command line entry point.
package main

import (
	"context"
	"os"

	"github.com/ckdake/fitler/cmd/fitler/app"
)

// Build information, populated by the linker.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "source"
)

func main() {
	a, err := app.New(version, commit, date, builtBy)
	app.ExitOnError(err)

	ctx, cancel := app.ContextWithSignals(context.Background())

	err = a.Execute(ctx, os.Args[1:])
	cancel()
	if shutdownErr := a.Shutdown(); err == nil {
		err = shutdownErr
	}
	app.ExitOnError(err)
}
