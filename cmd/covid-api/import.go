package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/deppfellow/covid-api/internal/model"
	"github.com/deppfellow/covid-api/internal/repository"
	"github.com/deppfellow/covid-api/internal/server"
	"github.com/deppfellow/covid-api/internal/service"
	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import observations, year_week included, from a JSON array",
		Long: "Import stores rows as given. It loads the baseline weeks that " +
			"POST /api/covid/data/post continues from.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap()
			if err != nil {
				return err
			}
			defer rt.close()

			if rt.cfg.Database.UsesMemory() {
				return errors.New("import requires the postgres driver; use serve --seed with the memory driver")
			}

			srv, err := server.New(rt.cfg, &rt.logger, rt.loggerService)
			if err != nil {
				return err
			}
			defer func() {
				if err := srv.Shutdown(context.Background()); err != nil {
					rt.logger.Error().Err(err).Msg("failed to close server resources")
				}
			}()

			services, err := service.NewService(srv, repository.NewRepositories(srv))
			if err != nil {
				return err
			}

			n, err := importFile(cmd.Context(), services.Covid, args[0])
			if err != nil {
				rt.logger.Error().Err(err).Int("rows", n).Msg("import failed")
				return err
			}

			rt.logger.Info().Int("rows", n).Str("file", args[0]).Msg("import complete")
			return nil
		},
	}
}

func importFile(ctx context.Context, covid *service.CovidService, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var rows []model.Observation
	if err := json.Unmarshal(raw, &rows); err != nil {
		return 0, fmt.Errorf("decode %s: %w", path, err)
	}

	return covid.Import(ctx, rows)
}
