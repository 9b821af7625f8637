// Package database owns the PostgreSQL pool and ties it to the service lifecycle.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/JaimeStill/cohort/pkg/lifecycle"
)

// System exposes the pool and its lifecycle hooks.
type System interface {
	// Connection returns the pool.
	Connection() *sql.DB
	// Start registers a startup ping and a shutdown close.
	Start(lc *lifecycle.Coordinator) error
	// Ping reports ErrNotReady when the server cannot be reached within the connect timeout.
	Ping(ctx context.Context) error
	// FanOut returns how many pooled sessions a single request may hold at once.
	FanOut() int
}

type database struct {
	conn    *sql.DB
	logger  *slog.Logger
	timeout time.Duration
	maxOpen int
}

// New parses the connection settings and sizes the pool. No connection is
// made until Start or Ping.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	connCfg, err := pgx.ParseConfig(cfg.Dsn())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if timeout := cfg.ConnTimeoutDuration(); timeout > 0 {
		connCfg.ConnectTimeout = timeout
	}

	db := stdlib.OpenDB(*connCfg)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return &database{
		conn:    db,
		logger:  logger.With("system", "database", "host", cfg.Host, "name", cfg.Name),
		timeout: cfg.ConnTimeoutDuration(),
		maxOpen: cfg.MaxOpenConns,
	}, nil
}

func (d *database) Connection() *sql.DB {
	return d.conn
}

func (d *database) Ping(ctx context.Context) error {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if err := d.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}
	return nil
}

// FanOut leaves one pool slot for the request's own statements.
func (d *database) FanOut() int {
	return max(d.maxOpen-1, 1)
}

func (d *database) Start(lc *lifecycle.Coordinator) error {
	lc.OnStartup("database", func(ctx context.Context) error {
		if err := d.Ping(ctx); err != nil {
			d.logger.Error("database ping failed", "error", err)
			return err
		}
		d.logger.Info("database connection established", "max_open", d.maxOpen, "fan_out", d.FanOut())
		return nil
	})

	lc.OnShutdown("database", func(context.Context) error {
		stats := d.conn.Stats()
		if err := d.conn.Close(); err != nil {
			return fmt.Errorf("close database: %w", err)
		}
		d.logger.Info("database connection closed", "in_use", stats.InUse, "wait_count", stats.WaitCount)
		return nil
	})

	return nil
}
