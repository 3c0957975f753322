package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/banshee-data/sonarmap/internal/db"
)

func newMigrateCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the run database schema",
	}

	open := func() (*db.DB, error) {
		path, err := g.dbPath()
		if err != nil {
			return nil, err
		}
		return db.OpenDB(path)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := open()
			if err != nil {
				return err
			}
			defer database.Close()
			if err := database.MigrateUp(); err != nil {
				return err
			}
			return printStatus(cmd, database)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := open()
			if err != nil {
				return err
			}
			defer database.Close()
			if err := database.MigrateDown(); err != nil {
				return err
			}
			return printStatus(cmd, database)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := open()
			if err != nil {
				return err
			}
			defer database.Close()
			return printStatus(cmd, database)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "force <version>",
		Short: "Set the schema version without running migrations (recovers a dirty state)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			database, err := open()
			if err != nil {
				return err
			}
			defer database.Close()
			if err := database.MigrateForce(v); err != nil {
				return err
			}
			return printStatus(cmd, database)
		},
	})
	return cmd
}

func printStatus(cmd *cobra.Command, database *db.DB) error {
	status, err := database.Status()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema %s\n", status)
	return nil
}
