package auth

import (
	"fmt"
	"os"
)

const (
	ModeOIDC   = "oidc"
	ModeHeader = "header"
)

// Config selects how callers are identified.
type Config struct {
	Mode             string `toml:"mode"`
	Issuer           string `toml:"issuer"`
	ClientID         string `toml:"client_id"`
	IdentityClaim    string `toml:"identity_claim"`
	Header           string `toml:"header"`
	CallbackUsername string `toml:"callback_username"`
	CallbackSecret   string `toml:"callback_secret"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Mode             string
	Issuer           string
	ClientID         string
	IdentityClaim    string
	Header           string
	CallbackUsername string
	CallbackSecret   string
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
	if overlay.Mode != "" {
		c.Mode = overlay.Mode
	}
	if overlay.Issuer != "" {
		c.Issuer = overlay.Issuer
	}
	if overlay.ClientID != "" {
		c.ClientID = overlay.ClientID
	}
	if overlay.IdentityClaim != "" {
		c.IdentityClaim = overlay.IdentityClaim
	}
	if overlay.Header != "" {
		c.Header = overlay.Header
	}
	if overlay.CallbackUsername != "" {
		c.CallbackUsername = overlay.CallbackUsername
	}
	if overlay.CallbackSecret != "" {
		c.CallbackSecret = overlay.CallbackSecret
	}
}

func (c *Config) loadDefaults() {
	if c.Mode == "" {
		c.Mode = ModeHeader
	}
	if c.IdentityClaim == "" {
		c.IdentityClaim = "preferred_username"
	}
	if c.Header == "" {
		c.Header = "X-Remote-User"
	}
	if c.CallbackUsername == "" {
		c.CallbackUsername = "pipeline"
	}
}

func (c *Config) loadEnv(env *Env) {
	set := func(name string, dst *string) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	set(env.Mode, &c.Mode)
	set(env.Issuer, &c.Issuer)
	set(env.ClientID, &c.ClientID)
	set(env.IdentityClaim, &c.IdentityClaim)
	set(env.Header, &c.Header)
	set(env.CallbackUsername, &c.CallbackUsername)
	set(env.CallbackSecret, &c.CallbackSecret)
}

func (c *Config) validate() error {
	switch c.Mode {
	case ModeOIDC:
		if c.Issuer == "" {
			return fmt.Errorf("issuer required for oidc mode")
		}
		if c.ClientID == "" {
			return fmt.Errorf("client_id required for oidc mode")
		}
	case ModeHeader:
	default:
		return fmt.Errorf("invalid mode: %s", c.Mode)
	}
	return nil
}
