package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kendall-kelly/quickfix-api/config"
	"github.com/kendall-kelly/quickfix-api/database"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo users, technicians and the service catalog",
	RunE:  runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	if _, err := connect(); err != nil {
		return err
	}
	db := config.GetDB()
	if err := database.MigrateUp(cmd.Context(), db); err != nil {
		return err
	}
	_, err := database.Seed(cmd.Context(), db)
	return err
}
