package middleware_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/cohort/pkg/middleware"
)

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) middleware.Func {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	var chain middleware.Chain
	chain.Use(tag("outer"))
	chain.Use(tag("inner"))

	handler := chain.Then(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if strings.Join(order, ",") != "outer,inner,handler" {
		t.Errorf("order: got %v", order)
	}
}

func TestEmptyChain(t *testing.T) {
	var chain middleware.Chain
	handler := chain.Then(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status: got %d, want 418", rec.Code)
	}
}

func corsHandler(cfg *middleware.CORSConfig, called *bool) http.Handler {
	return middleware.CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if called != nil {
			*called = true
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCORSDisabled(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://review.example.org")
	corsHandler(&middleware.CORSConfig{Origins: []string{"https://review.example.org"}}, nil).ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("CORS headers should not be set when disabled")
	}
}

func TestCORSAllowedOrigin(t *testing.T) {
	cfg := &middleware.CORSConfig{
		Enabled:        true,
		Origins:        []string{"https://review.example.org"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         600,
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://review.example.org")
	corsHandler(cfg, nil).ServeHTTP(rec, req)

	h := rec.Header()
	want := map[string]string{
		"Access-Control-Allow-Origin":   "https://review.example.org",
		"Access-Control-Allow-Methods":  "GET, POST",
		"Access-Control-Allow-Headers":  "Content-Type",
		"Access-Control-Expose-Headers": "Content-Disposition",
		"Access-Control-Max-Age":        "600",
		"Vary":                          "Origin",
	}
	for k, v := range want {
		if got := h.Get(k); got != v {
			t.Errorf("%s: got %q, want %q", k, got, v)
		}
	}
	if h.Get("Access-Control-Allow-Credentials") != "" {
		t.Error("credentials header should be absent")
	}
}

func TestCORSDisallowedOrigin(t *testing.T) {
	cfg := &middleware.CORSConfig{Enabled: true, Origins: []string{"https://review.example.org"}}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://elsewhere.example.com")
	corsHandler(cfg, nil).ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("should not set allow-origin for disallowed origin")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	cfg := &middleware.CORSConfig{
		Enabled:          true,
		Origins:          []string{"https://review.example.org"},
		AllowCredentials: true,
	}

	var called bool
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("OPTIONS", "/projects", nil)
	req.Header.Set("Origin", "https://review.example.org")
	req.Header.Set("Access-Control-Request-Method", "POST")
	corsHandler(cfg, &called).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status: got %d, want 204", rec.Code)
	}
	if called {
		t.Error("handler should not be called for preflight")
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("allow-credentials: got %q, want true", got)
	}
}

func TestCORSPlainOptionsPassesThrough(t *testing.T) {
	cfg := &middleware.CORSConfig{Enabled: true, Origins: []string{"https://review.example.org"}}

	var called bool
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("OPTIONS", "/projects", nil)
	corsHandler(cfg, &called).ServeHTTP(rec, req)

	if !called {
		t.Error("OPTIONS without a preflight header should reach the handler")
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	var seen string
	handler := middleware.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.RequestID(r.Context())
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("hello"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/jobs?x=1", nil))

	if seen == "" {
		t.Fatal("request id not available to handler")
	}
	if got := rec.Header().Get(middleware.RequestIDHeader); got != seen {
		t.Errorf("response id: got %q, want %q", got, seen)
	}

	line := buf.String()
	for _, want := range []string{"status=201", "bytes=5", "method=POST", "uri=\"/jobs?x=1\"", "request_id=" + seen} {
		if !strings.Contains(line, want) {
			t.Errorf("log line missing %s: %s", want, line)
		}
	}
}

func TestLoggerReusesInboundID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := middleware.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(middleware.RequestIDHeader); got != "abc-123" {
		t.Errorf("response id: got %q, want abc-123", got)
	}
	if !strings.Contains(buf.String(), "status=200") {
		t.Errorf("implicit status should log as 200: %s", buf.String())
	}
}

func TestLoggerServerErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := middleware.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if !strings.Contains(buf.String(), "level=ERROR") {
		t.Errorf("5xx should log at error level: %s", buf.String())
	}
}

func TestCORSConfigFinalizeDefaults(t *testing.T) {
	cfg := middleware.CORSConfig{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if len(cfg.AllowedMethods) != 5 {
		t.Errorf("allowed_methods: got %d, want 5", len(cfg.AllowedMethods))
	}
	if len(cfg.ExposedHeaders) != 2 || cfg.ExposedHeaders[0] != "Content-Disposition" {
		t.Errorf("exposed_headers: got %v", cfg.ExposedHeaders)
	}
	if cfg.MaxAge != 3600 {
		t.Errorf("max_age: got %d, want 3600", cfg.MaxAge)
	}
}

func TestCORSConfigFinalizeEnv(t *testing.T) {
	t.Setenv("TEST_CORS_ENABLED", "true")
	t.Setenv("TEST_CORS_ORIGINS", "https://a.example.org, ,https://b.example.org")
	t.Setenv("TEST_CORS_EXPOSED", "X-Total")
	t.Setenv("TEST_CORS_MAX_AGE", "60")

	env := &middleware.CORSEnv{
		Enabled:        "TEST_CORS_ENABLED",
		Origins:        "TEST_CORS_ORIGINS",
		ExposedHeaders: "TEST_CORS_EXPOSED",
		MaxAge:         "TEST_CORS_MAX_AGE",
	}

	cfg := middleware.CORSConfig{}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if !cfg.Enabled {
		t.Error("enabled should be true")
	}
	if len(cfg.Origins) != 2 || cfg.Origins[1] != "https://b.example.org" {
		t.Errorf("origins: got %v", cfg.Origins)
	}
	if len(cfg.ExposedHeaders) != 1 || cfg.ExposedHeaders[0] != "X-Total" {
		t.Errorf("exposed_headers: got %v", cfg.ExposedHeaders)
	}
	if cfg.MaxAge != 60 {
		t.Errorf("max_age: got %d, want 60", cfg.MaxAge)
	}
}

func TestCORSConfigFinalizeInvalidEnv(t *testing.T) {
	tests := []struct {
		name string
		env  middleware.CORSEnv
		val  string
	}{
		{"bool", middleware.CORSEnv{Enabled: "TEST_CORS_BAD"}, "maybe"},
		{"int", middleware.CORSEnv{MaxAge: "TEST_CORS_BAD"}, "forever"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_CORS_BAD", tt.val)
			cfg := middleware.CORSConfig{}
			err := cfg.Finalize(&tt.env)
			if err == nil || !strings.Contains(err.Error(), "TEST_CORS_BAD") {
				t.Errorf("Finalize() error = %v, want named env error", err)
			}
		})
	}
}

func TestCORSConfigMerge(t *testing.T) {
	base := middleware.CORSConfig{
		Origins:        []string{"https://base.example.org"},
		AllowedMethods: []string{"GET"},
		MaxAge:         3600,
	}

	base.Merge(&middleware.CORSConfig{
		Enabled: true,
		Origins: []string{"https://overlay.example.org"},
	})

	if !base.Enabled {
		t.Error("enabled should be true after merge")
	}
	if len(base.Origins) != 1 || base.Origins[0] != "https://overlay.example.org" {
		t.Errorf("origins: got %v", base.Origins)
	}
	if len(base.AllowedMethods) != 1 {
		t.Errorf("allowed_methods should be kept: got %v", base.AllowedMethods)
	}
	if base.MaxAge != 3600 {
		t.Errorf("max_age should be kept: got %d", base.MaxAge)
	}
}
