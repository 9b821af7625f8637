// Package config loads the service configuration from TOML files and
// COHORT_ environment variables.
package config

import (
	"cmp"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/cohort/pkg/auth"
	"github.com/JaimeStill/cohort/pkg/database"
	"github.com/JaimeStill/cohort/pkg/envvar"
	"github.com/JaimeStill/cohort/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvCohortEnv             = "COHORT_ENV"
	EnvCohortShutdownTimeout = "COHORT_SHUTDOWN_TIMEOUT"
	EnvCohortVersion         = "COHORT_VERSION"
	EnvCohortLogLevel        = "COHORT_LOG_LEVEL"
)

var databaseEnv = &database.Env{
	Host:            "COHORT_DB_HOST",
	Port:            "COHORT_DB_PORT",
	Name:            "COHORT_DB_NAME",
	User:            "COHORT_DB_USER",
	Password:        "COHORT_DB_PASSWORD",
	SSLMode:         "COHORT_DB_SSL_MODE",
	MaxOpenConns:    "COHORT_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "COHORT_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "COHORT_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "COHORT_DB_CONN_TIMEOUT",
	ApplicationName: "COHORT_DB_APPLICATION_NAME",
}

var storageEnv = &storage.Env{
	ContainerName:    "COHORT_STORAGE_CONTAINER_NAME",
	ConnectionString: "COHORT_STORAGE_CONNECTION_STRING",
	ServiceURL:       "COHORT_STORAGE_SERVICE_URL",
}

var authEnv = &auth.Env{
	Mode:             "COHORT_AUTH_MODE",
	Issuer:           "COHORT_AUTH_ISSUER",
	ClientID:         "COHORT_AUTH_CLIENT_ID",
	IdentityClaim:    "COHORT_AUTH_IDENTITY_CLAIM",
	Header:           "COHORT_AUTH_HEADER",
	CallbackUsername: "COHORT_AUTH_CALLBACK_USERNAME",
	CallbackSecret:   "COHORT_AUTH_CALLBACK_SECRET",
}

// Config is the root configuration for the cohort review service.
type Config struct {
	Server          ServerConfig    `toml:"server"`
	Database        database.Config `toml:"database"`
	Storage         storage.Config  `toml:"storage"`
	Redis           RedisConfig     `toml:"redis"`
	API             APIConfig       `toml:"api"`
	Auth            auth.Config     `toml:"auth"`
	Executor        ExecutorConfig  `toml:"executor"`
	Review          ReviewConfig    `toml:"review"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	Version         string          `toml:"version"`
	LogLevel        string          `toml:"log_level"`
}

// Env returns the COHORT_ENV value, defaulting to "local".
func (c *Config) Env() string {
	return cmp.Or(os.Getenv(EnvCohortEnv), "local")
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return duration(c.ShutdownTimeout)
}

// Level returns LogLevel as a slog.Level, falling back to info.
func (c *Config) Level() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// CallbackBase returns the externally reachable API root executors report to.
func (c *Config) CallbackBase() string {
	return c.Review.ApplicationURL + c.API.BasePath
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Parse decodes TOML data into a Config without finalizing it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	mergeString(&c.ShutdownTimeout, overlay.ShutdownTimeout)
	mergeString(&c.Version, overlay.Version)
	mergeString(&c.LogLevel, overlay.LogLevel)

	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.Redis.Merge(&overlay.Redis)
	c.API.Merge(&overlay.API)
	c.Auth.Merge(&overlay.Auth)
	c.Executor.Merge(&overlay.Executor)
	c.Review.Merge(&overlay.Review)
}

// Finalize applies defaults, environment overrides, and validation to every
// section. Sections are finalized in order and the first failure is returned
// prefixed with the section name.
func (c *Config) Finalize() error {
	c.loadDefaults()
	if err := c.loadEnv(); err != nil {
		return err
	}
	if err := c.validate(); err != nil {
		return err
	}

	sections := []struct {
		name     string
		finalize func() error
	}{
		{"server", c.Server.Finalize},
		{"database", func() error { return c.Database.Finalize(databaseEnv) }},
		{"storage", func() error { return c.Storage.Finalize(storageEnv) }},
		{"redis", c.Redis.Finalize},
		{"api", c.API.Finalize},
		{"auth", func() error { return c.Auth.Finalize(authEnv) }},
		{"executor", c.Executor.Finalize},
		{"review", c.Review.Finalize},
	}
	for _, s := range sections {
		if err := s.finalize(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}

	if c.Executor.Kind == ExecutorQueue && !c.Redis.Enabled() {
		return fmt.Errorf("executor: queue kind requires redis.addr")
	}
	return nil
}

func (c *Config) loadDefaults() {
	c.ShutdownTimeout = cmp.Or(c.ShutdownTimeout, "30s")
	c.Version = cmp.Or(c.Version, "0.1.0")
	c.LogLevel = cmp.Or(c.LogLevel, "info")
}

func (c *Config) loadEnv() error {
	envvar.String(EnvCohortVersion, &c.Version)
	envvar.String(EnvCohortLogLevel, &c.LogLevel)
	return envvar.Duration(EnvCohortShutdownTimeout, &c.ShutdownTimeout)
}

func (c *Config) validate() error {
	if d, err := time.ParseDuration(c.ShutdownTimeout); err != nil || d <= 0 {
		return fmt.Errorf("shutdown_timeout must be a positive duration: %q", c.ShutdownTimeout)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %s", c.LogLevel)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(s))
	return level, err
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// overlayPath returns the environment overlay file when COHORT_ENV names one
// that exists.
func overlayPath() string {
	env := os.Getenv(EnvCohortEnv)
	if env == "" {
		return ""
	}
	path := fmt.Sprintf(OverlayConfigPattern, env)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
