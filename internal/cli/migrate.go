package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"quizzapp-service/internal/config"
	"quizzapp-service/internal/infra/postgres"
	"quizzapp-service/internal/logging"
)

var errNoPostgres = errors.New("postgres url not configured")

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), *configPath)
		},
	}
}

func runMigrations(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return errNoPostgres
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	applied, err := postgres.Migrate(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		logger.Info().Msg("no new migrations")
		return nil
	}
	logger.Info().Strs("migrations", applied).Msg("migrations applied")
	return nil
}
