// Package database owns the schema: versioned goose migrations for postgres
// and gorm's AutoMigrate for the sqlite development and test databases.
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"github.com/kendall-kelly/quickfix-api/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

// Models lists every persisted model in dependency order
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Service{},
		&models.Technician{},
		&models.Booking{},
	}
}

// MigrateUp brings the schema up to date
func MigrateUp(ctx context.Context, db *gorm.DB) error {
	if isSQLite(db) {
		if err := db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		log.Println("migrate: sqlite schema synchronized")
		return nil
	}

	sqlDB, err := prepare(db)
	if err != nil {
		return err
	}
	if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	log.Println("migrate: up ok")
	return nil
}

// MigrateDown rolls back the most recent migration
func MigrateDown(ctx context.Context, db *gorm.DB) error {
	if isSQLite(db) {
		return fmt.Errorf("migrate down is only supported on postgres")
	}
	sqlDB, err := prepare(db)
	if err != nil {
		return err
	}
	if err := goose.DownContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	log.Println("migrate: down ok")
	return nil
}

// MigrationStatus logs the applied state of every migration
func MigrationStatus(ctx context.Context, db *gorm.DB) error {
	if isSQLite(db) {
		return fmt.Errorf("migrate status is only supported on postgres")
	}
	sqlDB, err := prepare(db)
	if err != nil {
		return err
	}
	if err := goose.StatusContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("migrate status: %w", err)
	}
	return nil
}

func prepare(db *gorm.DB) (*sql.DB, error) {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("goose dialect: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access sql pool: %w", err)
	}
	return sqlDB, nil
}

func isSQLite(db *gorm.DB) bool {
	return db.Dialector.Name() == "sqlite"
}
