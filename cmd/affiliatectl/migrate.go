package main

import (
	"errors"
	"fmt"

	"github.com/Dhoini/affiliate-service/internal/config"
	"github.com/Dhoini/affiliate-service/internal/repository/postgres"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded SQL migrations to the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.Driver != config.DriverPostgres {
				return errors.New("migrate requires database.driver=postgres")
			}

			pool, err := postgres.NewConnection(cmd.Context(), postgres.PoolConfig{
				DSN:      cfg.Database.DSN,
				MaxConns: 2,
			}, log)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := postgres.Migrate(cmd.Context(), pool, log); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
