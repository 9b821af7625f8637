package config

import (
	"fmt"

	"github.com/JaimeStill/cohort/pkg/envvar"
	"github.com/JaimeStill/cohort/pkg/formatting"
	"github.com/JaimeStill/cohort/pkg/middleware"
	"github.com/JaimeStill/cohort/pkg/pagination"
)

const (
	EnvAPIBasePath    = "COHORT_API_BASE_PATH"
	EnvAPIMaxBodySize = "COHORT_API_MAX_BODY_SIZE"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "COHORT_CORS_ENABLED",
	Origins:          "COHORT_CORS_ORIGINS",
	AllowedMethods:   "COHORT_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "COHORT_CORS_ALLOWED_HEADERS",
	ExposedHeaders:   "COHORT_CORS_EXPOSED_HEADERS",
	AllowCredentials: "COHORT_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "COHORT_CORS_MAX_AGE",
}

var paginationEnv = &pagination.Env{
	DefaultPageSize: "COHORT_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "COHORT_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig holds API routing, CORS, and pagination settings.
type APIConfig struct {
	BasePath    string                `toml:"base_path"`
	MaxBodySize string                `toml:"max_body_size"`
	CORS        middleware.CORSConfig `toml:"cors"`
	Pagination  pagination.Config     `toml:"pagination"`
}

// MaxBodySizeBytes returns MaxBodySize in bytes.
func (c *APIConfig) MaxBodySizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxBodySize)
	if err != nil {
		return 4 * 1024 * 1024
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS and pagination configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if _, err := formatting.ParseBytes(c.MaxBodySize); err != nil {
		return fmt.Errorf("invalid max_body_size: %w", err)
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxBodySize != "" {
		c.MaxBodySize = overlay.MaxBodySize
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "4MB"
	}
}

func (c *APIConfig) loadEnv() {
	envvar.String(EnvAPIBasePath, &c.BasePath)
	envvar.String(EnvAPIMaxBodySize, &c.MaxBodySize)
}
