package projects

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/JaimeStill/cohort/internal/authz"
	"github.com/JaimeStill/cohort/internal/criteria"
	"github.com/JaimeStill/cohort/pkg/handlers"
	"github.com/JaimeStill/cohort/pkg/repository"
)

// Domain errors for project operations.
var (
	ErrNotFound          = errors.New("project not found")
	ErrDuplicate         = errors.New("project already exists")
	ErrInvalidID         = errors.New("invalid project id")
	ErrInvalidName       = errors.New("project name required")
	ErrInvalidUser       = errors.New("user required")
	ErrInvalidDataSource = errors.New("data source requires id and type")
	ErrNoCriterion       = fmt.Errorf("%w: no active criterion", repository.ErrPrecondition)
)

// MapHTTPStatus maps project domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if authz.Denied(err) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, repository.ErrPrecondition) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrInvalidUser) ||
		errors.Is(err, ErrInvalidDataSource) ||
		errors.Is(err, authz.ErrInvalidGrant) ||
		errors.Is(err, criteria.ErrMalformed) ||
		errors.Is(err, handlers.ErrInvalidBody) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
