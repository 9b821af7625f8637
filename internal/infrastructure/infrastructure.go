// Package infrastructure wires the backing systems every domain module shares:
// logging, PostgreSQL, blob storage, Redis and the authorization gate.
package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/JaimeStill/cohort/internal/authz"
	"github.com/JaimeStill/cohort/internal/config"
	"github.com/JaimeStill/cohort/pkg/database"
	"github.com/JaimeStill/cohort/pkg/lifecycle"
	"github.com/JaimeStill/cohort/pkg/storage"
)

// Infrastructure holds the shared systems. Storage and Redis are nil when not configured.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Redis     *redis.Client
	Gate      *authz.Gate
}

// New builds every configured system without contacting any of them.
func New(cfg *config.Config) (*Infrastructure, error) {
	logger := NewLogger(cfg, os.Stderr)

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	switch {
	case errors.Is(err, storage.ErrDisabled):
		store = nil
	case err != nil:
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lifecycle.New(),
		Logger:    logger,
		Database:  db,
		Storage:   store,
		Redis:     newRedis(&cfg.Redis),
		Gate:      authz.New(cfg.Auth.CallbackUsername, logger),
	}, nil
}

// NewLogger returns the service logger. The local environment logs text;
// every other environment logs JSON for collection.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level()}

	var handler slog.Handler
	if cfg.Env() == "local" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler).With("service", "cohort", "version", cfg.Version)
}

func newRedis(cfg *config.RedisConfig) *redis.Client {
	if !cfg.Enabled() {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Start registers the startup and shutdown hooks of every configured system.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}

	if i.Storage == nil {
		i.Logger.Warn("storage not configured, exports disabled")
	} else if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}

	if i.Redis != nil {
		i.startRedis()
	}
	return nil
}

// Ready pings every configured dependency and joins the failures.
func (i *Infrastructure) Ready(ctx context.Context) error {
	var errs []error
	if err := i.Database.Ping(ctx); err != nil {
		errs = append(errs, err)
	}
	if i.Redis != nil {
		if err := i.Redis.Ping(ctx).Err(); err != nil {
			errs = append(errs, fmt.Errorf("redis not ready: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (i *Infrastructure) startRedis() {
	logger := i.Logger.With("system", "redis", "addr", i.Redis.Options().Addr)

	i.Lifecycle.OnStartup("redis", func(ctx context.Context) error {
		if err := i.Redis.Ping(ctx).Err(); err != nil {
			logger.Error("redis ping failed", "error", err)
			return err
		}
		logger.Info("redis connection established")
		return nil
	})

	i.Lifecycle.OnShutdown("redis", func(context.Context) error {
		if err := i.Redis.Close(); err != nil {
			return err
		}
		logger.Info("redis connection closed")
		return nil
	})
}
