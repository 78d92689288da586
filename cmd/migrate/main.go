package main

import (
	"fmt"
	"os"

	"github.com/dafibh/proflow/proflow-backend/db"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Database migration commands",
		Long:          `Apply, roll back and inspect the embedded Proflow schema migrations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			if databaseURL == "" {
				databaseURL = os.Getenv("DATABASE_URL")
			}
			if databaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required (flag --database-url or environment)")
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&databaseURL, "database-url", "d", "", "postgres connection string")

	cmd.AddCommand(
		newUpCommand(&databaseURL),
		newDownCommand(&databaseURL),
		newStatusCommand(&databaseURL),
		newForceCommand(&databaseURL),
	)

	return cmd
}

func newUpCommand(databaseURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.Up(*databaseURL); err != nil {
				log.Error().Err(err).Msg("Migration failed")
				return err
			}
			log.Info().Msg("Migrations applied")
			return nil
		},
	}
}

func newDownCommand(databaseURL *string) *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the last migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.Down(*databaseURL, steps); err != nil {
				log.Error().Err(err).Int("steps", steps).Msg("Rollback failed")
				return err
			}
			log.Info().Int("steps", steps).Msg("Migrations rolled back")
			return nil
		},
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "number of migrations to roll back")
	return cmd
}

func newStatusCommand(databaseURL *string) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Aliases: []string{"version"},
		Short:   "Show the current schema version",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := db.Status(*databaseURL)
			if err != nil {
				return err
			}
			log.Info().
				Uint("current", status.CurrentVersion).
				Uint("latest", status.LatestVersion).
				Bool("dirty", status.Dirty).
				Bool("pending", status.Pending).
				Msg("Migration status")
			return nil
		},
	}
}

func newForceCommand(databaseURL *string) *cobra.Command {
	var version int

	cmd := &cobra.Command{
		Use:   "force",
		Short: "Force the schema version and clear the dirty flag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.Force(*databaseURL, version); err != nil {
				return err
			}
			log.Warn().Int("version", version).Msg("Schema version forced")
			return nil
		},
	}

	cmd.Flags().IntVar(&version, "version", 0, "schema version to force")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}
