// Package version implements the version command.
package version

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ckdake/fitler/cmd/application"
)

// NewCommand creates the version command.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "fitler version %s\n", app.Version())
			_, _ = fmt.Fprintf(w, "commit: %s\n", app.Commit())
			_, _ = fmt.Fprintf(w, "built: %s\n", app.Date())
			_, _ = fmt.Fprintf(w, "built by: %s\n", app.BuiltBy())
			_, _ = fmt.Fprintf(w, "go version: %s\n", runtime.Version())
			_, _ = fmt.Fprintf(w, "platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
