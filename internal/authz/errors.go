package authz

import (
	"errors"
	"net/http"
)

var (
	// ErrUnauthorized indicates the caller lacks the required grant.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnresolved indicates a job or project reference did not resolve to a project.
	ErrUnresolved = errors.New("unresolved project reference")
	// ErrInvalidGrant indicates an unknown grant name.
	ErrInvalidGrant = errors.New("invalid grant")
)

// Denied reports whether err is an authorization denial of either kind.
func Denied(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrUnresolved)
}

// Conceal replaces either denial with ErrUnauthorized so responses never
// reveal whether the referenced resource exists.
func Conceal(err error) error {
	if Denied(err) {
		return ErrUnauthorized
	}
	return err
}

// MapHTTPStatus maps authorization errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if Denied(err) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrInvalidGrant) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
