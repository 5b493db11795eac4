package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	QueueBackendPostgres = "postgres"
	QueueBackendRedis    = "redis"

	StagingBackendLocal = "local"
	StagingBackendS3    = "s3"

	PasswordHashingPlaintext = "plaintext"
	PasswordHashingBcrypt    = "bcrypt"
)

type HTTPConfig struct {
	Port            int           `env:"PORT" envDefault:"5000"`
	BodyLimit       string        `env:"HTTP_BODY_LIMIT" envDefault:"32M"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

type DatabaseConfig struct {
	URL string `env:"DATABASE_URL,required"`
}

type QueueConfig struct {
	Backend       string        `env:"QUEUE_BACKEND" envDefault:"postgres"`
	PollInterval  time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"500ms"`
	LeaseDuration time.Duration `env:"IMPORT_JOB_LEASE" envDefault:"60s"`
}

type RedisConfig struct {
	URL       string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"userdir:import"`
}

type S3Config struct {
	Bucket    string `env:"S3_BUCKET"`
	Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	Endpoint  string `env:"S3_ENDPOINT"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`
	Prefix    string `env:"S3_PREFIX" envDefault:"uploads/"`
}

type StagingConfig struct {
	Backend string `env:"STAGING_BACKEND" envDefault:"local"`
	Dir     string `env:"UPLOADS_DIR" envDefault:"uploads"`
	S3      S3Config
}

type ImportConfig struct {
	Workers           int           `env:"IMPORT_WORKERS" envDefault:"2"`
	MaxAttempts       int           `env:"IMPORT_MAX_ATTEMPTS" envDefault:"3"`
	EmptyDatasetDelay time.Duration `env:"IMPORT_RETRY_EMPTY_DATASET" envDefault:"10s"`
	FileNotFoundDelay time.Duration `env:"IMPORT_RETRY_FILE_NOT_FOUND" envDefault:"30s"`
	FailureDelay      time.Duration `env:"IMPORT_RETRY_FAILURE" envDefault:"60s"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type MetricsConfig struct {
	Enabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	Path    string `env:"METRICS_PATH" envDefault:"/metrics"`
}

type SecurityConfig struct {
	PasswordHashing string `env:"PASSWORD_HASHING" envDefault:"plaintext"`
	BcryptCost      int    `env:"BCRYPT_COST" envDefault:"10"`
}

// Config is read once at process start and handed to constructors.
type Config struct {
	HTTP     HTTPConfig
	Database DatabaseConfig
	Queue    QueueConfig
	Redis    RedisConfig
	Staging  StagingConfig
	Import   ImportConfig
	Log      LogConfig
	Metrics  MetricsConfig
	Security SecurityConfig
}

// Load reads the optional env files, then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env", ".env.local"}
	}
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnvFiles(files []string) error {
	existing := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Queue.Backend {
	case QueueBackendPostgres, QueueBackendRedis:
	default:
		errs = append(errs, fmt.Errorf("QUEUE_BACKEND must be %q or %q, got %q", QueueBackendPostgres, QueueBackendRedis, c.Queue.Backend))
	}

	switch c.Staging.Backend {
	case StagingBackendLocal:
		if c.Staging.Dir == "" {
			errs = append(errs, errors.New("UPLOADS_DIR is required for local staging"))
		}
	case StagingBackendS3:
		if c.Staging.S3.Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for s3 staging"))
		}
	default:
		errs = append(errs, fmt.Errorf("STAGING_BACKEND must be %q or %q, got %q", StagingBackendLocal, StagingBackendS3, c.Staging.Backend))
	}

	if c.Import.Workers <= 0 || c.Import.Workers > 10 {
		errs = append(errs, fmt.Errorf("IMPORT_WORKERS must be between 1 and 10, got %d", c.Import.Workers))
	}
	if c.Import.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("IMPORT_MAX_ATTEMPTS must be positive, got %d", c.Import.MaxAttempts))
	}
	if c.Queue.LeaseDuration <= 0 {
		errs = append(errs, fmt.Errorf("IMPORT_JOB_LEASE must be positive, got %s", c.Queue.LeaseDuration))
	}

	switch c.Security.PasswordHashing {
	case PasswordHashingPlaintext, PasswordHashingBcrypt:
	default:
		errs = append(errs, fmt.Errorf("PASSWORD_HASHING must be %q or %q, got %q", PasswordHashingPlaintext, PasswordHashingBcrypt, c.Security.PasswordHashing))
	}

	return errors.Join(errs...)
}
