package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/cohort/internal/config"
	"github.com/JaimeStill/cohort/internal/infrastructure"
	"github.com/JaimeStill/cohort/pkg/database"
)

// unstarted builds infrastructure whose database refuses connections.
func unstarted(t *testing.T) *infrastructure.Infrastructure {
	t.Helper()
	infra, err := infrastructure.New(&config.Config{
		Database: database.Config{
			Host:            "127.0.0.1",
			Port:            1,
			Name:            "cohort",
			User:            "cohort",
			SSLMode:         "disable",
			MaxOpenConns:    2,
			MaxIdleConns:    1,
			ConnMaxLifetime: "1m",
			ConnTimeout:     "1s",
		},
		LogLevel: "error",
	})
	if err != nil {
		t.Fatalf("infrastructure.New() error = %v", err)
	}
	return infra
}

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body probe
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s body: %v", path, err)
	}
	return rec.Code, body.Status
}

func TestProbes(t *testing.T) {
	infra := unstarted(t)
	router := buildRouter(infra)

	if code, status := get(t, router, "/healthz"); code != http.StatusOK || status != "ok" {
		t.Errorf("healthz: got %d %q", code, status)
	}
	if code, status := get(t, router, "/readyz"); code != http.StatusServiceUnavailable || status != "not ready" {
		t.Errorf("readyz before startup: got %d %q", code, status)
	}

	// No hooks registered, so startup settles immediately and the database
	// ping is what fails the probe.
	if err := infra.Lifecycle.WaitForStartup(); err != nil {
		t.Fatalf("WaitForStartup() error = %v", err)
	}
	if code, status := get(t, router, "/readyz"); code != http.StatusServiceUnavailable || status != "degraded" {
		t.Errorf("readyz after startup: got %d %q", code, status)
	}
}

func TestProbesTolerateTrailingSlash(t *testing.T) {
	router := buildRouter(unstarted(t))

	if code, status := get(t, router, "/healthz/"); code != http.StatusOK || status != "ok" {
		t.Errorf("healthz/: got %d %q", code, status)
	}
}
