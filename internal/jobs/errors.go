package jobs

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/JaimeStill/cohort/internal/authz"
	"github.com/JaimeStill/cohort/internal/criteria"
	"github.com/JaimeStill/cohort/pkg/handlers"
	"github.com/JaimeStill/cohort/pkg/repository"
)

// Domain errors for job operations.
var (
	ErrNotFound      = errors.New("job not found")
	ErrInvalidID     = errors.New("invalid id")
	ErrInvalidStatus = errors.New("invalid job status")
	ErrDispatch      = errors.New("job dispatch failed")
	ErrNoCriterion   = fmt.Errorf("%w: no active criterion", repository.ErrPrecondition)
	ErrIneligible    = fmt.Errorf("%w: job state does not permit the transition", repository.ErrPrecondition)
)

// MapHTTPStatus maps job domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if authz.Denied(err) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDispatch) {
		return http.StatusBadGateway
	}
	if errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, criteria.ErrMalformed) ||
		errors.Is(err, handlers.ErrInvalidBody) {
		return http.StatusBadRequest
	}
	if errors.Is(err, repository.ErrPrecondition) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
