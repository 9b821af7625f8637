package adjudication

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
	"github.com/JaimeStill/cohort/pkg/storage"
)

// Domain errors for adjudication operations.
var (
	ErrInvalidID      = errors.New("invalid id")
	ErrInvalidStamp   = errors.New("invalid export stamp")
	ErrExportNotFound = errors.New("export not found")
	ErrExportDisabled = fmt.Errorf("%w: export storage is not configured", repository.ErrPrecondition)
)

// MapHTTPStatus maps adjudication domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if authz.Denied(err) {
		return http.StatusForbidden
	}
	if errors.Is(err, jobs.ErrNotFound) || errors.Is(err, ErrExportNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidStamp) ||
		errors.Is(err, judgement.ErrInvalid) ||
		errors.Is(err, handlers.ErrInvalidBody) {
		return http.StatusBadRequest
	}
	if errors.Is(err, repository.ErrPrecondition) || errors.Is(err, criteria.ErrMalformed) {
		return http.StatusConflict
	}
	return storage.MapHTTPStatus(err)
}
