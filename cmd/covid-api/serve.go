package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deppfellow/covid-api/internal/handler"
	"github.com/deppfellow/covid-api/internal/repository"
	"github.com/deppfellow/covid-api/internal/router"
	"github.com/deppfellow/covid-api/internal/server"
	"github.com/deppfellow/covid-api/internal/service"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	var seedFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := bootstrap()
			if err != nil {
				return err
			}
			defer rt.close()

			srv, err := server.New(rt.cfg, &rt.logger, rt.loggerService)
			if err != nil {
				rt.logger.Error().Err(err).Msg("failed to initialize server")
				return err
			}

			repos := repository.NewRepositories(srv)
			services, err := service.NewService(srv, repos)
			if err != nil {
				rt.logger.Error().Err(err).Msg("could not create services")
				return err
			}

			if seedFile != "" {
				n, err := importFile(cmd.Context(), services.Covid, seedFile)
				if err != nil {
					rt.logger.Error().Err(err).Str("file", seedFile).Msg("failed to seed observations")
					return err
				}
				rt.logger.Info().Int("rows", n).Str("file", seedFile).Msg("seeded observations")
			}

			handlers := handler.NewHandlers(srv, services)
			srv.SetupHTTPServer(router.NewRouter(srv, handlers, services))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			serveErr := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			select {
			case err := <-serveErr:
				if err != nil {
					rt.logger.Error().Err(err).Msg("server stopped")
					return err
				}
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				rt.logger.Error().Err(err).Msg("server forced to shutdown")
				return err
			}

			rt.logger.Info().Msg("server exited properly")
			return nil
		},
	}

	cmd.Flags().StringVar(&seedFile, "seed", "", "JSON file of observations to import before serving")
	return cmd
}
