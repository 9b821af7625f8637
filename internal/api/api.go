// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/cohort/internal/config"
	"github.com/JaimeStill/cohort/internal/infrastructure"
	"github.com/JaimeStill/cohort/pkg/auth"
	"github.com/JaimeStill/cohort/pkg/middleware"
	"github.com/JaimeStill/cohort/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// Every route requires a resolved caller identity.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime, err := NewRuntime(cfg, infra)
	if err != nil {
		return nil, err
	}
	domain := NewDomain(runtime)

	var verifier auth.TokenVerifier
	if cfg.Auth.Mode == auth.ModeOIDC {
		verifier, err = auth.NewOIDCVerifier(infra.Lifecycle.Context(), &cfg.Auth)
		if err != nil {
			return nil, fmt.Errorf("oidc init failed: %w", err)
		}
	}

	mux := http.NewServeMux()
	patterns := registerRoutes(mux, domain, runtime.MaxBodySize)
	runtime.Logger.Debug("routes registered", "count", len(patterns))

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(auth.Middleware(&cfg.Auth, verifier, runtime.Logger))

	return m, nil
}
