package main

import (
	"context"
	"net/http"
	"time"

	"github.com/JaimeStill/cohort/internal/api"
	"github.com/JaimeStill/cohort/internal/config"
	"github.com/JaimeStill/cohort/internal/infrastructure"
	"github.com/JaimeStill/cohort/pkg/handlers"
	"github.com/JaimeStill/cohort/pkg/module"
)

const readyTimeout = 2 * time.Second

// Modules lists the prefix-mounted modules served alongside the probes.
type Modules struct {
	API *module.Module
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}
	return &Modules{API: apiModule}, nil
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
}

type probe struct {
	Status string `json:"status"`
}

func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()
	router.HandleNative("GET /healthz", healthz)
	router.HandleNative("GET /readyz", readyz(infra))
	return router
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, probe{Status: "ok"})
}

// readyz reports not ready until every startup hook succeeded and degraded
// when a backing system stops answering afterwards.
func readyz(infra *infrastructure.Infrastructure) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !infra.Lifecycle.Ready() {
			handlers.RespondJSON(w, http.StatusServiceUnavailable, probe{Status: "not ready"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := infra.Ready(ctx); err != nil {
			infra.Logger.Warn("readiness check failed", "error", err)
			handlers.RespondJSON(w, http.StatusServiceUnavailable, probe{Status: "degraded"})
			return
		}
		handlers.RespondJSON(w, http.StatusOK, probe{Status: "ready"})
	}
}
