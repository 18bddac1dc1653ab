package main

import (
	"context"
	"errors"
	"time"

	"github.com/deppfellow/covid-api/internal/database"
	"github.com/spf13/cobra"
)

const migrateTimeout = 2 * time.Minute

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := bootstrap()
			if err != nil {
				return err
			}
			defer rt.close()

			if rt.cfg.Database.UsesMemory() {
				return errors.New("migrate requires the postgres driver")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), migrateTimeout)
			defer cancel()

			if err := database.Migrate(ctx, &rt.logger, rt.cfg); err != nil {
				rt.logger.Error().Err(err).Msg("migration failed")
				return err
			}
			return nil
		},
	}
}
