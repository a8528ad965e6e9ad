package appconfig

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"datingapp/core/jobs"
	"datingapp/core/member/adapters/cache"
	"datingapp/modules/auth"
	"datingapp/modules/db/postgres"
	"datingapp/modules/db/redis"
	"datingapp/modules/fs"
	"datingapp/modules/hmac"
	"datingapp/modules/middleware/ratelimit"
	"datingapp/modules/paging"
	"datingapp/modules/telemetry"

	"github.com/caarlos0/env/v11"
)

const EnvProd = "prod"

type Config struct {
	Env      string     `env:"ENV" envDefault:"dev"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"info"`

	HTTP HTTPConfig `envPrefix:"HTTP_"`

	// --- core infra ----
	HMAC hmac.HMACConfig `envPrefix:"HMAC_"`
	JWT  auth.JWTConfig  `envPrefix:"JWT_"`
	// BcryptCost of 0 means bcrypt.DefaultCost.
	BcryptCost int                     `env:"BCRYPT_COST" envDefault:"0"`
	Redis      redis.RedisConfig       `envPrefix:"REDIS_"`
	Postgres   postgres.PostgresConfig `envPrefix:"POSTGRES_"`
	Images     fs.Config               `envPrefix:"IMAGES_"`
	Cache      cache.Config            `envPrefix:"CACHE_"`
	Paging     paging.Config           `envPrefix:"PAGING_"`

	// --- middlewares ----
	RateLimit ratelimit.RestHTTPConfig `envPrefix:"RATE_LIMIT_"`

	// --- background work ----
	Activity jobs.ActivityConfig   `envPrefix:"ACTIVITY_"`
	Jobs     jobs.PhotoPurgeConfig `envPrefix:"JOBS_"`

	// ThreadCursorTTL bounds how long a message thread cursor stays valid.
	ThreadCursorTTL time.Duration `env:"THREAD_CURSOR_TTL" envDefault:"24h"`
	// ThreadConnectionTTL expires an open thread unless the client joins again.
	ThreadConnectionTTL time.Duration `env:"THREAD_CONNECTION_TTL" envDefault:"10m"`
	// BootstrapAdmins are granted admin and moderator when they register.
	BootstrapAdmins []string `env:"BOOTSTRAP_ADMINS" envSeparator:","`

	// --- otel ----
	// since it has special naming conventions, we do not use prefix here
	Otel telemetry.Config
}

type HTTPConfig struct {
	Host         string        `env:"HOST" envDefault:"0.0.0.0"`
	Port         int           `env:"PORT" envDefault:"8080"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(c *Config) error {
	var errs []error

	if strings.EqualFold(c.Env, EnvProd) {
		if c.JWT.Secret == "" || c.JWT.Secret == auth.DevSecret {
			errs = append(errs, errors.New("JWT_SECRET must be set in prod"))
		}
		if c.HMAC.Secret == "" || c.HMAC.Secret == hmac.DevSecret {
			errs = append(errs, errors.New("HMAC_SECRET must be set in prod"))
		}
	}
	if c.Paging.MaxPageSize <= 0 {
		errs = append(errs, fmt.Errorf("PAGING_MAX_PAGE_SIZE must be positive, got %d", c.Paging.MaxPageSize))
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("HTTP_PORT out of range: %d", c.HTTP.Port))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if c.Images.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("IMAGES_MAX_UPLOAD_BYTES must be positive"))
	}

	return errors.Join(errs...)
}
