package flink

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds Flink REST connection and job submission parameters.
// JarID names a jar already uploaded to the cluster; JarPath names a local
// jar uploaded at startup and removed at shutdown. Exactly one is required
// when the flink executor is selected.
type Config struct {
	RestEndpoint string `toml:"rest_endpoint"`
	JarID        string `toml:"jar_id"`
	JarPath      string `toml:"jar_path"`
	EntryClass   string `toml:"entry_class"`
	Parallelism  int    `toml:"parallelism"`
	Timeout      string `toml:"timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	RestEndpoint string
	JarID        string
	JarPath      string
	EntryClass   string
	Parallelism  string
	Timeout      string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.RestEndpoint != "" {
		c.RestEndpoint = overlay.RestEndpoint
	}
	if overlay.JarID != "" {
		c.JarID = overlay.JarID
	}
	if overlay.JarPath != "" {
		c.JarPath = overlay.JarPath
	}
	if overlay.EntryClass != "" {
		c.EntryClass = overlay.EntryClass
	}
	if overlay.Parallelism != 0 {
		c.Parallelism = overlay.Parallelism
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}

func (c *Config) loadDefaults() {
	if c.RestEndpoint == "" {
		c.RestEndpoint = "http://localhost:8081"
	}
	if c.EntryClass == "" {
		c.EntryClass = "org.ohnlp.ir.cat.CohortIdentificationJob"
	}
	if c.Parallelism <= 0 {
		c.Parallelism = 1
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.RestEndpoint != "" {
		if v := os.Getenv(env.RestEndpoint); v != "" {
			c.RestEndpoint = v
		}
	}
	if env.JarID != "" {
		if v := os.Getenv(env.JarID); v != "" {
			c.JarID = v
		}
	}
	if env.JarPath != "" {
		if v := os.Getenv(env.JarPath); v != "" {
			c.JarPath = v
		}
	}
	if env.EntryClass != "" {
		if v := os.Getenv(env.EntryClass); v != "" {
			c.EntryClass = v
		}
	}
	if env.Parallelism != "" {
		if v := os.Getenv(env.Parallelism); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.Parallelism = n
			}
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
}

func (c *Config) validate() error {
	u, err := url.Parse(c.RestEndpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid rest_endpoint: %s", c.RestEndpoint)
	}
	if c.JarID != "" && c.JarPath != "" {
		return fmt.Errorf("jar_id and jar_path are mutually exclusive")
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	return nil
}
