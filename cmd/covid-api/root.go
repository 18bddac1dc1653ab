package main

import (
	"github.com/deppfellow/covid-api/internal/config"
	"github.com/deppfellow/covid-api/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "covid-api",
		Short:         "COVID-19 weekly statistics API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serve := newServeCmd()
	root.AddCommand(serve, newMigrateCmd(), newImportCmd())

	// Running the bare binary serves, matching the container entrypoint.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

// runtime is what every command needs before doing its work.
type runtime struct {
	cfg           *config.Config
	logger        zerolog.Logger
	loggerService *logger.LoggerService
}

func (r *runtime) close() {
	r.loggerService.Shutdown()
}

// bootstrap loads config and builds the root logger. Config errors are
// logged with a plain console logger since the configured one does not
// exist yet.
func bootstrap() (*runtime, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		fallback := logger.NewLogger("info", false)
		fallback.Error().Err(err).Msg("failed to load config")
		return nil, err
	}

	loggerService := logger.NewLoggerService(cfg.Observability)
	return &runtime{
		cfg:           cfg,
		logger:        logger.NewLoggerWithService(cfg.Observability, loggerService),
		loggerService: loggerService,
	}, nil
}
