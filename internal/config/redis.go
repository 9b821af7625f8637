package config

import (
	"errors"
	"fmt"

	"github.com/JaimeStill/cohort/pkg/envvar"
)

const (
	EnvRedisAddr         = "COHORT_REDIS_ADDR"
	EnvRedisPassword     = "COHORT_REDIS_PASSWORD"
	EnvRedisDB           = "COHORT_REDIS_DB"
	EnvRedisPrefix       = "COHORT_REDIS_PREFIX"
	EnvRedisStreamMaxLen = "COHORT_REDIS_STREAM_MAX_LEN"
)

// RedisConfig holds the Redis connection used by the queue executor.
// An empty Addr disables Redis.
type RedisConfig struct {
	Addr         string `toml:"addr"`
	Password     string `toml:"password"`
	DB           int    `toml:"db"`
	Prefix       string `toml:"prefix"`
	StreamMaxLen int64  `toml:"stream_max_len"`
}

// Enabled reports whether a Redis address is configured.
func (c *RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *RedisConfig) Finalize() error {
	c.loadDefaults()
	if err := c.loadEnv(); err != nil {
		return err
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *RedisConfig) Merge(overlay *RedisConfig) {
	if overlay.Addr != "" {
		c.Addr = overlay.Addr
	}
	if overlay.Password != "" {
		c.Password = overlay.Password
	}
	if overlay.DB != 0 {
		c.DB = overlay.DB
	}
	if overlay.Prefix != "" {
		c.Prefix = overlay.Prefix
	}
	if overlay.StreamMaxLen != 0 {
		c.StreamMaxLen = overlay.StreamMaxLen
	}
}

func (c *RedisConfig) loadDefaults() {
	if c.Prefix == "" {
		c.Prefix = "cohort"
	}
	if c.StreamMaxLen == 0 {
		c.StreamMaxLen = 10000
	}
}

func (c *RedisConfig) loadEnv() error {
	envvar.String(EnvRedisAddr, &c.Addr)
	envvar.String(EnvRedisPassword, &c.Password)
	envvar.String(EnvRedisPrefix, &c.Prefix)
	return errors.Join(
		envvar.Int(EnvRedisDB, &c.DB),
		envvar.Int64(EnvRedisStreamMaxLen, &c.StreamMaxLen),
	)
}

func (c *RedisConfig) validate() error {
	if c.DB < 0 {
		return fmt.Errorf("invalid db: %d", c.DB)
	}
	if c.StreamMaxLen < 0 {
		return fmt.Errorf("invalid stream_max_len: %d", c.StreamMaxLen)
	}
	return nil
}
