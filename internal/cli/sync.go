package cli

import (
	"context"

	"github.com/spf13/cobra"

	"quizzapp-service/internal/infra/postgres"
	"quizzapp-service/internal/subjects"
)

// NewSyncCmd copies the upstream subject list into postgres.
func NewSyncCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch subjects from the upstream endpoint and store them in postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd.Context(), *configPath, wiringOptions{})
			if err != nil {
				return err
			}
			defer rt.close()
			if rt.pool == nil {
				return errNoPostgres
			}
			if _, err := postgres.Migrate(cmd.Context(), rt.cfg.Postgres.URL); err != nil {
				return err
			}
			return syncSubjects(cmd.Context(), rt)
		},
	}
}

func syncSubjects(ctx context.Context, rt *runtime) error {
	var result subjects.Result
	select {
	case result = <-rt.fetcher.FetchAsync(ctx):
	case <-ctx.Done():
		return ctx.Err()
	}
	if result.Err != nil {
		return result.Err
	}
	if err := postgres.NewSubjectStore(rt.pool).ReplaceSubjects(ctx, result.Subjects); err != nil {
		return err
	}
	rt.logger.Info().Int("subjects", len(result.Subjects)).Msg("subjects synced")
	return nil
}
