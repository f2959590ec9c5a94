package commands

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "callecho",
	Short: "Real-time acoustic call-matching demo CLI",
	Long: `callecho drives the call-matching engine: "run" streams a recorded
attempt WAV against a recorded reference WAV, and "demo" does the same
with synthetic signals, for exercising the pipeline without recorded
audio fixtures.`,
}

// Execute runs the CLI's root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}
