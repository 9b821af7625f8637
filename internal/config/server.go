package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/JaimeStill/cohort/pkg/envvar"
)

const (
	EnvServerHost              = "COHORT_SERVER_HOST"
	EnvServerPort              = "COHORT_SERVER_PORT"
	EnvServerReadTimeout       = "COHORT_SERVER_READ_TIMEOUT"
	EnvServerReadHeaderTimeout = "COHORT_SERVER_READ_HEADER_TIMEOUT"
	EnvServerWriteTimeout      = "COHORT_SERVER_WRITE_TIMEOUT"
	EnvServerShutdownTimeout   = "COHORT_SERVER_SHUTDOWN_TIMEOUT"
)

// ServerConfig holds HTTP listener settings. Timeouts are Go duration strings.
type ServerConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	ReadTimeout       string `toml:"read_timeout"`
	ReadHeaderTimeout string `toml:"read_header_timeout"`
	WriteTimeout      string `toml:"write_timeout"`
	ShutdownTimeout   string `toml:"shutdown_timeout"`
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Timeouts returns the parsed read, read-header, write and shutdown timeouts.
func (c *ServerConfig) Timeouts() (read, header, write, shutdown time.Duration) {
	return duration(c.ReadTimeout), duration(c.ReadHeaderTimeout),
		duration(c.WriteTimeout), duration(c.ShutdownTimeout)
}

// Finalize applies defaults, environment overrides and validation.
func (c *ServerConfig) Finalize() error {
	c.loadDefaults()
	if err := c.loadEnv(); err != nil {
		return err
	}
	return c.validate()
}

// Merge overwrites fields that are set in overlay.
func (c *ServerConfig) Merge(overlay *ServerConfig) {
	if overlay.Host != "" {
		c.Host = overlay.Host
	}
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
	mergeString(&c.ReadTimeout, overlay.ReadTimeout)
	mergeString(&c.ReadHeaderTimeout, overlay.ReadHeaderTimeout)
	mergeString(&c.WriteTimeout, overlay.WriteTimeout)
	mergeString(&c.ShutdownTimeout, overlay.ShutdownTimeout)
}

func (c *ServerConfig) loadDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == "" {
		c.ReadTimeout = "1m"
	}
	if c.ReadHeaderTimeout == "" {
		c.ReadHeaderTimeout = "10s"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "2m"
	}
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "20s"
	}
}

func (c *ServerConfig) loadEnv() error {
	envvar.String(EnvServerHost, &c.Host)
	return errors.Join(
		envvar.Int(EnvServerPort, &c.Port),
		envvar.Duration(EnvServerReadTimeout, &c.ReadTimeout),
		envvar.Duration(EnvServerReadHeaderTimeout, &c.ReadHeaderTimeout),
		envvar.Duration(EnvServerWriteTimeout, &c.WriteTimeout),
		envvar.Duration(EnvServerShutdownTimeout, &c.ShutdownTimeout),
	)
}

func (c *ServerConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	for name, v := range map[string]string{
		"read_timeout":        c.ReadTimeout,
		"read_header_timeout": c.ReadHeaderTimeout,
		"write_timeout":       c.WriteTimeout,
		"shutdown_timeout":    c.ShutdownTimeout,
	} {
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			return fmt.Errorf("invalid %s: %q", name, v)
		}
	}
	return nil
}

func duration(v string) time.Duration {
	d, _ := time.ParseDuration(v)
	return d
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
