// Package cmd holds the quickfix command line: the API server plus the
// schema, seed and token maintenance commands.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kendall-kelly/quickfix-api/config"
)

var rootCmd = &cobra.Command{
	Use:   "quickfix",
	Short: "QuickFix home-repair booking API",
	RunE:  runServe,
}

// Execute runs the command selected by os.Args
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.SilenceUsage = true
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func connect() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := config.ConnectDatabase(cfg); err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	return cfg, nil
}
