package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"quizzapp-service/internal/infra/postgres"
	transport "quizzapp-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	rt, err := loadRuntime(ctx, configPath, wiringOptions{})
	if err != nil {
		return err
	}
	defer rt.close()
	logger := rt.logger

	if rt.cfg.Postgres.URL != "" {
		applied, err := postgres.Migrate(ctx, rt.cfg.Postgres.URL)
		if err != nil {
			return err
		}
		logger.Info().Strs("migrations", applied).Msg("migrations applied")

		stored, err := postgres.NewSubjectStore(rt.pool).LoadSubjects(ctx)
		if err != nil {
			return err
		}
		if len(stored) == 0 {
			if err := syncSubjects(ctx, rt); err != nil {
				logger.Warn().Err(err).Msg("initial subject sync failed")
			}
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = rt.cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	// warm the subject cache without blocking startup
	go func() {
		if _, err := rt.service.ListSubjects(ctx); err != nil {
			logger.Warn().Err(err).Msg("initial subject fetch failed")
		}
	}()

	api := transport.NewAPI(rt.service, rt.icons, logger)
	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      api.Routes(transport.NewWSHandler(rt.service, logger), rt.metrics.Handler()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info().Str("port", finalPort).Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
