// Package auth resolves the calling identity for each request and places it
// on the request context. Downstream code only sees the identity string.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JaimeStill/cohort/pkg/handlers"
)

var (
	// ErrUnauthenticated indicates no identity could be established.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrReservedIdentity indicates a token or header named the callback
	// account, which is only reachable through Basic credentials.
	ErrReservedIdentity = errors.New("identity reserved for backend callback")
)

// TokenVerifier resolves a bearer token to an identity.
type TokenVerifier interface {
	Identity(ctx context.Context, token string) (string, error)
}

type callerKey struct{}

// WithCaller returns a context carrying the caller identity.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// Caller returns the identity stored by the middleware.
func Caller(ctx context.Context) (string, bool) {
	c, ok := ctx.Value(callerKey{}).(string)
	return c, ok && c != ""
}

// Middleware rejects requests without an identity with 401.
// Basic credentials matching the callback account are checked first; then a
// bearer token when a verifier is configured; then the trusted header in
// header mode.
func Middleware(cfg *Config, verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With("system", "auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := resolve(r, cfg, verifier)
			if err != nil {
				if errors.Is(err, ErrReservedIdentity) {
					logger.Warn("delegated identity claims callback account", "path", r.URL.Path)
				}
				handlers.RespondError(w, logger, http.StatusUnauthorized, ErrUnauthenticated)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

func resolve(r *http.Request, cfg *Config, verifier TokenVerifier) (string, error) {
	if user, pass, ok := r.BasicAuth(); ok {
		if cfg.CallbackSecret != "" && matches(user, cfg.CallbackUsername) && matches(pass, cfg.CallbackSecret) {
			return cfg.CallbackUsername, nil
		}
		return "", ErrUnauthenticated
	}

	caller, err := delegated(r, cfg, verifier)
	if err != nil {
		return "", err
	}
	if reserved(caller, cfg.CallbackUsername) {
		return "", ErrReservedIdentity
	}
	return caller, nil
}

// delegated resolves an identity asserted by the IdP or the fronting proxy.
func delegated(r *http.Request, cfg *Config, verifier TokenVerifier) (string, error) {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && verifier != nil {
		return verifier.Identity(r.Context(), strings.TrimSpace(token))
	}

	if cfg.Mode == ModeHeader {
		if v := strings.TrimSpace(r.Header.Get(cfg.Header)); v != "" {
			return v, nil
		}
	}

	return "", ErrUnauthenticated
}

// reserved compares identities the way the authorization gate normalizes them.
func reserved(caller, backend string) bool {
	canon := func(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
	return backend != "" && canon(caller) == canon(backend)
}

func matches(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
