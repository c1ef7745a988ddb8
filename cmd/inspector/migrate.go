package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration commands",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		err := withSQLDB(func(db *sql.DB, driver string) error {
			return database.RunMigrations(db, driver)
		})
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied successfully")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Rollback the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		err := withSQLDB(func(db *sql.DB, driver string) error {
			return database.RollbackMigration(db, driver)
		})
		if err != nil {
			return fmt.Errorf("failed to rollback migration: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Migration rolled back successfully")
		return nil
	},
}

// withSQLDB connects using the loaded config and hands the raw handle to fn.
func withSQLDB(fn func(db *sql.DB, driver string) error) error {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.Connect(cfg.Database.toDatabase())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	defer sqlDB.Close()

	return fn(sqlDB, cfg.Database.Driver)
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)

	rootCmd.AddCommand(migrateCmd)
}
