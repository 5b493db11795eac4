package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	app "github.com/mohammadpnp/user-directory/internal/application/user"
	"github.com/mohammadpnp/user-directory/internal/config"
	domain "github.com/mohammadpnp/user-directory/internal/domain/user"
	"github.com/mohammadpnp/user-directory/internal/infrastructure/db"
	infrafile "github.com/mohammadpnp/user-directory/internal/infrastructure/file"
	"github.com/mohammadpnp/user-directory/internal/infrastructure/metrics"
	"github.com/mohammadpnp/user-directory/internal/infrastructure/objectstore"
	"github.com/mohammadpnp/user-directory/internal/infrastructure/queue"
	"github.com/mohammadpnp/user-directory/internal/infrastructure/repository"
	"github.com/mohammadpnp/user-directory/internal/infrastructure/security"
	"github.com/mohammadpnp/user-directory/internal/infrastructure/spreadsheet"
)

// JobStore is the enqueue/status side and the worker side of one backend.
type JobStore interface {
	domain.ImportJobRepository
	domain.ImportJobQueue
}

type Staging interface {
	Save(ctx context.Context, name string, content io.Reader) (string, error)
	Open(ctx context.Context, stagedPath string) (io.ReadCloser, error)
	Remove(ctx context.Context, stagedPath string) error
}

// App holds the process-wide dependencies built from Config.
type App struct {
	Config  *config.Config
	Log     zerolog.Logger
	DB      *gorm.DB
	Pool    *pgxpool.Pool
	Jobs    JobStore
	Staging Staging
	Metrics *metrics.ImportMetrics

	closers []func() error
}

func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	gdb, err := db.OpenGorm(cfg.Database.URL, log.With().Str("component", "gorm").Logger())
	if err != nil {
		return nil, err
	}
	a.DB = gdb
	a.closers = append(a.closers, func() error {
		sqlDB, err := gdb.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	pool, err := db.OpenPool(ctx, cfg.Database.URL)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Pool = pool
	a.closers = append(a.closers, func() error { pool.Close(); return nil })

	if err := a.initJobs(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initStaging(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.NewImportMetrics()
	}

	return a, nil
}

func (a *App) initJobs(ctx context.Context) error {
	switch a.Config.Queue.Backend {
	case config.QueueBackendRedis:
		client, err := queue.NewRedisClient(ctx, a.Config.Redis.URL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, client.Close)
		a.Jobs = queue.NewRedisJobQueue(client, a.Config.Redis.KeyPrefix, a.Config.Import.MaxAttempts)
	default:
		a.Jobs = repository.NewImportJobRepository(a.DB, a.Config.Import.MaxAttempts)
	}
	a.Log.Info().Str("backend", a.Config.Queue.Backend).Msg("import job queue ready")
	return nil
}

func (a *App) initStaging(ctx context.Context) error {
	switch a.Config.Staging.Backend {
	case config.StagingBackendS3:
		s3cfg := a.Config.Staging.S3
		staging, err := objectstore.NewS3Staging(ctx, objectstore.S3Options{
			Bucket:    s3cfg.Bucket,
			Region:    s3cfg.Region,
			Endpoint:  s3cfg.Endpoint,
			AccessKey: s3cfg.AccessKey,
			SecretKey: s3cfg.SecretKey,
			Prefix:    s3cfg.Prefix,
		})
		if err != nil {
			return fmt.Errorf("init s3 staging: %w", err)
		}
		a.Staging = staging
	default:
		staging, err := infrafile.NewLocalStaging(a.Config.Staging.Dir)
		if err != nil {
			return err
		}
		a.Staging = staging
	}
	a.Log.Info().Str("backend", a.Config.Staging.Backend).Msg("upload staging ready")
	return nil
}

func (a *App) NewImportWorker() *app.ImportWorker {
	cfg := a.Config
	opts := []app.ImportWorkerOption{
		app.WithPasswordHasher(passwordHasher(cfg.Security)),
		app.WithWorkerLogger(a.Log.With().Str("component", "import_worker").Logger()),
	}
	if a.Metrics != nil {
		opts = append(opts, app.WithImportObserver(a.Metrics))
	}

	return app.NewImportWorker(
		a.Jobs,
		a.Staging,
		spreadsheet.NewParser(),
		repository.NewUserUpsertRepository(a.Pool),
		app.ImportWorkerConfig{
			Workers:       cfg.Import.Workers,
			PollInterval:  cfg.Queue.PollInterval,
			LeaseDuration: cfg.Queue.LeaseDuration,
			Retry: app.RetryPolicy{
				EmptyDatasetDelay: cfg.Import.EmptyDatasetDelay,
				FileNotFoundDelay: cfg.Import.FileNotFoundDelay,
				FailureDelay:      cfg.Import.FailureDelay,
			},
		},
		opts...,
	)
}

func passwordHasher(cfg config.SecurityConfig) app.PasswordHasher {
	if cfg.PasswordHashing == config.PasswordHashingBcrypt {
		return security.NewBcryptHasher(cfg.BcryptCost)
	}
	return app.PlaintextPasswords{}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
