package cohorts

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/JaimeStill/cohort/internal/authz"
	"github.com/JaimeStill/cohort/internal/criteria"
	"github.com/JaimeStill/cohort/internal/jobs"
	"github.com/JaimeStill/cohort/internal/judgement"
	"github.com/JaimeStill/cohort/pkg/handlers"
	"github.com/JaimeStill/cohort/pkg/repository"
)

// Domain errors for cohort review operations.
var (
	ErrInvalidID     = errors.New("invalid id")
	ErrInvalidRecord = errors.New("invalid ingest record")
	ErrNoCandidate   = fmt.Errorf("%w: judgement on nonexistent candidate", repository.ErrPrecondition)
	ErrNoEvidence    = fmt.Errorf("%w: judgement on nonexistent evidence", repository.ErrPrecondition)
)

// MapHTTPStatus maps cohort domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if authz.Denied(err) {
		return http.StatusForbidden
	}
	if errors.Is(err, jobs.ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidRecord) ||
		errors.Is(err, judgement.ErrInvalid) ||
		errors.Is(err, handlers.ErrInvalidBody) {
		return http.StatusBadRequest
	}
	if errors.Is(err, repository.ErrPrecondition) || errors.Is(err, criteria.ErrMalformed) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
