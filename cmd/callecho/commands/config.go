package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wildmatch/callecho/pkg/engine"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage engine configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init <path>",
	Short: "Write the default engine configuration to a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if err := engine.WriteConfig(path, engine.Defaults()); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
		fmt.Printf("wrote default config to %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show <path>",
	Short: "Load and print an engine configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := engine.LoadConfig(args[0])
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		fmt.Printf("%+v\n", cfg)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
