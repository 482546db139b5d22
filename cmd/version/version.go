package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modpack-run/modsync/pkg/version"
)

// New creates a new `version` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of modsync.",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("modsync version: %s\n", version.Version)
		},
	}
}
