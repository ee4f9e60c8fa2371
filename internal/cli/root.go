// Package cli holds the pitwall command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/pitwall/internal/config"
	"github.com/MrSnakeDoc/pitwall/internal/version"
)

// NewRootCmd builds the command tree. Without a subcommand it runs the service.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "pitwall",
		Short:         "Live Formula 1 timing relay",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile == "" {
				return nil
			}
			if _, err := os.Stat(cfgFile); err != nil {
				return fmt.Errorf("config file: %w", err)
			}
			return os.Setenv(config.EnvConfigFile, cfgFile)
		},
		RunE: runServe,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "",
		"YAML config file (keys as in PITWALL_* without the prefix, environment wins)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newSessionsCmd())
	root.AddCommand(newStandingsCmd())
	return root
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return NewRootCmd().Execute()
}
