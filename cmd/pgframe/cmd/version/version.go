// Package version provides the pgframe version CLI subcommand.
package version

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version, Commit, and BuildDate are set via -ldflags at build time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// NewCommand creates the version command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pgframe %s\n", Version)
			fmt.Fprintf(out, "  commit:     %s\n", Commit)
			fmt.Fprintf(out, "  built:      %s\n", BuildDate)
			fmt.Fprintf(out, "  go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "  platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}
