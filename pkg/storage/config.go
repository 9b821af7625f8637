package storage

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/JaimeStill/cohort/pkg/envvar"
)

// Config holds Azure Blob Storage connection parameters.
// Either ConnectionString or ServiceURL enables storage; ServiceURL
// authenticates with the default Azure credential chain.
type Config struct {
	ContainerName    string `toml:"container_name"`
	ConnectionString string `toml:"connection_string"`
	ServiceURL       string `toml:"service_url"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	ContainerName    string
	ConnectionString string
	ServiceURL       string
}

// Enabled reports whether any storage endpoint is configured.
func (c *Config) Enabled() bool {
	return c.ConnectionString != "" || c.ServiceURL != ""
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge takes every field overlay sets.
func (c *Config) Merge(overlay *Config) {
	c.ContainerName = cmp.Or(overlay.ContainerName, c.ContainerName)
	c.ConnectionString = cmp.Or(overlay.ConnectionString, c.ConnectionString)
	c.ServiceURL = cmp.Or(overlay.ServiceURL, c.ServiceURL)
}

func (c *Config) loadDefaults() {
	c.ContainerName = cmp.Or(c.ContainerName, "adjudications")
}

func (c *Config) loadEnv(env *Env) {
	envvar.String(env.ContainerName, &c.ContainerName)
	envvar.String(env.ConnectionString, &c.ConnectionString)
	envvar.String(env.ServiceURL, &c.ServiceURL)
}

func (c *Config) validate() error {
	if n := len(c.ContainerName); n < 3 || n > 63 || strings.ToLower(c.ContainerName) != c.ContainerName {
		return fmt.Errorf("container_name must be 3-63 lowercase characters: %q", c.ContainerName)
	}
	if c.ConnectionString != "" && c.ServiceURL != "" {
		return fmt.Errorf("connection_string and service_url are mutually exclusive")
	}
	if c.ServiceURL != "" && !strings.HasPrefix(c.ServiceURL, "https://") {
		return fmt.Errorf("service_url must use https: %s", c.ServiceURL)
	}
	return nil
}
