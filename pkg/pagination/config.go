package pagination

import (
	"cmp"
	"errors"
	"fmt"

	"github.com/JaimeStill/cohort/pkg/envvar"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Config bounds the page sizes list endpoints accept.
type Config struct {
	DefaultPageSize int `toml:"default_page_size"`
	MaxPageSize     int `toml:"max_page_size"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	DefaultPageSize string
	MaxPageSize     string
}

// Finalize fills unset sizes, applies environment overrides and checks that
// the default fits within the maximum.
func (c *Config) Finalize(env *Env) error {
	c.DefaultPageSize = positiveOr(c.DefaultPageSize, defaultPageSize)
	c.MaxPageSize = positiveOr(c.MaxPageSize, maxPageSize)

	if env != nil {
		err := errors.Join(
			envvar.Int(env.DefaultPageSize, &c.DefaultPageSize),
			envvar.Int(env.MaxPageSize, &c.MaxPageSize),
		)
		if err != nil {
			return err
		}
	}

	switch {
	case c.DefaultPageSize < 1, c.MaxPageSize < 1:
		return fmt.Errorf("page sizes must be positive: default %d, max %d", c.DefaultPageSize, c.MaxPageSize)
	case c.DefaultPageSize > c.MaxPageSize:
		return fmt.Errorf("default_page_size %d cannot exceed max_page_size %d", c.DefaultPageSize, c.MaxPageSize)
	}
	return nil
}

// Merge takes every size overlay sets.
func (c *Config) Merge(overlay *Config) {
	c.DefaultPageSize = cmp.Or(overlay.DefaultPageSize, c.DefaultPageSize)
	c.MaxPageSize = cmp.Or(overlay.MaxPageSize, c.MaxPageSize)
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
