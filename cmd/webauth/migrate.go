// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/webauth/internal/store"
)

// migrator is the part of *store.Migrator the migrate commands drive.
type migrator interface {
	Up() error
	Down() error
	Version() (uint, bool, error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	Close() error
}

// migratorFactory opens a migrator. Replaced in tests.
var migratorFactory = func(databaseURL string) (migrator, error) {
	return store.NewMigrator(databaseURL)
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply, roll back or inspect the schema migrations of the users table.`,
		RunE:  withMigrator(migrateUp),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  withMigrator(migrateUp),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		RunE:  withMigrator(migrateDown),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the applied version and pending migrations",
		RunE:  withMigrator(migrateStatus),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied without running it",
		Long: `Mark VERSION as applied without running it. Use this to clear the
dirty flag after fixing a failed migration by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: withMigrator(migrateForce),
	})

	return cmd
}

type migrateFunc func(cmd *cobra.Command, m migrator, args []string) error

// withMigrator loads configuration, opens a migrator for the duration of fn
// and closes it afterwards.
func withMigrator(fn migrateFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		m, err := migratorFactory(cfg.Database.URL)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := m.Close(); closeErr != nil {
				cmd.PrintErrf("warning: closing migrator: %v\n", closeErr)
			}
		}()

		return fn(cmd, m, args)
	}
}

func migrateUp(cmd *cobra.Command, m migrator, _ []string) error {
	pending, err := m.PendingMigrations()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		cmd.Println("Database schema is up to date")
		return nil
	}

	cmd.Printf("Applying %d migration(s)...\n", len(pending))
	if err := m.Up(); err != nil {
		return err
	}
	cmd.Println("Migrations completed successfully")
	return nil
}

func migrateDown(cmd *cobra.Command, m migrator, _ []string) error {
	cmd.Println("Rolling back all migrations...")
	if err := m.Down(); err != nil {
		return err
	}
	cmd.Println("Rollback completed successfully")
	return nil
}

func migrateStatus(cmd *cobra.Command, m migrator, _ []string) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	pending, err := m.PendingMigrations()
	if err != nil {
		return err
	}

	current := "none"
	if version > 0 {
		current = fmt.Sprintf("%d", version)
		if name, nameErr := store.MigrationName(version); nameErr == nil && name != "" {
			current = fmt.Sprintf("%d (%s)", version, name)
		}
	}
	cmd.Printf("Current version: %s\n", current)
	if dirty {
		cmd.Println("Database is DIRTY: fix the failed migration, then run 'migrate force VERSION'")
	}
	cmd.Printf("Pending migrations: %d\n", len(pending))
	for _, v := range pending {
		name, nameErr := store.MigrationName(v)
		if nameErr != nil || name == "" {
			name = fmt.Sprintf("%06d", v)
		}
		cmd.Printf("  %s\n", name)
	}
	return nil
}

func migrateForce(cmd *cobra.Command, m migrator, args []string) error {
	version, err := parseForceVersion(args[0])
	if err != nil {
		return err
	}
	if err := m.Force(version); err != nil {
		return err
	}
	cmd.Printf("Forced version %d\n", version)
	return nil
}

// parseForceVersion parses the VERSION argument of migrate force.
func parseForceVersion(s string) (int, error) {
	version, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be an integer, got %q", s)
	}
	return version, nil
}
