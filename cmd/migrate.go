package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/kendall-kelly/quickfix-api/config"
	"github.com/kendall-kelly/quickfix-api/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE:  migration(database.MigrateUp),
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE:  migration(database.MigrateDown),
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied migrations",
	RunE:  migration(database.MigrationStatus),
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
}

func migration(step func(context.Context, *gorm.DB) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if _, err := connect(); err != nil {
			return err
		}
		if err := step(cmd.Context(), config.GetDB()); err != nil {
			return err
		}
		log.Printf("migrate %s: ok", cmd.Name())
		return nil
	}
}
