package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"quizzapp-service/internal/app"
	"quizzapp-service/internal/config"
	"quizzapp-service/internal/infra/memory"
	"quizzapp-service/internal/infra/postgres"
	redisstore "quizzapp-service/internal/infra/redis"
	"quizzapp-service/internal/infra/sqlite"
	"quizzapp-service/internal/logging"
	"quizzapp-service/internal/metrics"
	"quizzapp-service/internal/subjects"
)

// runtime holds everything built from the configuration. close releases the
// connections in reverse order of creation.
type runtime struct {
	cfg     config.Config
	logger  zerolog.Logger
	metrics *metrics.Metrics
	fetcher *subjects.Fetcher
	icons   *subjects.IconLoader
	pool    *pgxpool.Pool
	redis   *redis.Client
	service *app.QuizService

	closers []func()
}

type wiringOptions struct {
	// lockout overrides the configured lockout when set.
	lockout *time.Duration
}

func loadRuntime(ctx context.Context, configPath string, opts wiringOptions) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	rt := &runtime{
		cfg:     cfg,
		logger:  logging.New(cfg.Log.Level, cfg.Log.Format),
		metrics: metrics.New(),
	}
	if err := rt.build(ctx, opts); err != nil {
		rt.close()
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) build(ctx context.Context, opts wiringOptions) error {
	cfg := rt.cfg

	fetcher, err := newFetcher(cfg, rt.logger, rt.metrics)
	if err != nil {
		return err
	}
	rt.fetcher = fetcher
	rt.icons = subjects.NewIconLoader(
		&http.Client{Timeout: config.TTLDuration(cfg.Subjects.Timeout, 10*time.Second)},
		config.TTLDuration(cfg.Subjects.IconTTL, time.Hour),
		rt.logger,
	)

	if cfg.Redis.Addr != "" {
		rt.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, func() { _ = rt.redis.Close() })
	}

	if cfg.Postgres.URL != "" {
		rt.pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		rt.closers = append(rt.closers, rt.pool.Close)
	}

	// a synced postgres copy takes over from the upstream endpoint
	var loader memory.SubjectLoader = fetcher
	if rt.pool != nil {
		loader = postgres.NewSubjectStore(rt.pool)
	}

	cacheTTL := config.TTLDuration(cfg.Subjects.CacheTTL, 10*time.Minute)
	var subjectRepo app.SubjectRepository
	if rt.redis != nil {
		subjectRepo = redisstore.NewSubjectRepository(rt.redis, loader, cacheTTL)
	} else {
		subjectRepo = memory.NewSubjectRepository(loader, cacheTTL)
	}

	var sessions app.SessionRepository
	if rt.redis != nil {
		sessions = redisstore.NewSessionStore(rt.redis, config.TTLDuration(cfg.Redis.TTL, 30*time.Minute))
	} else {
		sessions = memory.NewSessionStore()
	}

	scores, err := rt.scoreRecorder(ctx)
	if err != nil {
		return err
	}

	lockout := config.TTLDuration(cfg.Quiz.Lockout, app.DefaultLockout)
	if opts.lockout != nil {
		lockout = *opts.lockout
	}

	rt.service = app.NewQuizService(subjectRepo, sessions, scores, app.Options{
		Lockout: lockout,
		Logger:  rt.logger,
		Metrics: rt.metrics,
	})
	return nil
}

// scoreRecorder prefers postgres, then redis, then a sqlite file, then memory.
func (rt *runtime) scoreRecorder(ctx context.Context) (app.ScoreRecorder, error) {
	switch {
	case rt.pool != nil:
		return postgres.NewScoreStore(rt.pool), nil
	case rt.redis != nil:
		return redisstore.NewScoreStore(rt.redis), nil
	case rt.cfg.SQLite.Path != "":
		store, err := sqlite.NewScoreStore(ctx, rt.cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		rt.closers = append(rt.closers, func() { _ = store.Close() })
		return store, nil
	default:
		return memory.NewScoreStore(), nil
	}
}

func (rt *runtime) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

func newFetcher(cfg config.Config, logger zerolog.Logger, m *metrics.Metrics) (*subjects.Fetcher, error) {
	opts := subjects.Options{
		URL:     cfg.Subjects.URL,
		Timeout: config.TTLDuration(cfg.Subjects.Timeout, 10*time.Second),
		Logger:  logger,
		Metrics: m,
	}
	if cfg.Subjects.Retry.Enabled {
		opts.Retry = &subjects.Retry{
			MinWait:     config.TTLDuration(cfg.Subjects.Retry.MinWait, 200*time.Millisecond),
			MaxWait:     config.TTLDuration(cfg.Subjects.Retry.MaxWait, 2*time.Second),
			MaxAttempts: cfg.Subjects.Retry.MaxAttempts,
		}
	}
	return subjects.NewFetcher(opts)
}
