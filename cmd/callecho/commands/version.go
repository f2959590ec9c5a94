package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags "-X ...commands.version=...";
// the default "dev" identifies an unreleased build.
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the callecho CLI version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(version)
		return nil
	},
}
