package api

import (
	"net/http"

	"github.com/JaimeStill/cohort/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain, maxBodySize int64) []string {
	return routes.Register(
		mux,
		domain.Projects.Handler(maxBodySize).Routes(),
		domain.Jobs.Handler(maxBodySize).Routes(),
		domain.Cohorts.Handler(maxBodySize).Routes(),
		domain.Adjudication.Handler(maxBodySize).Routes(),
	)
}
