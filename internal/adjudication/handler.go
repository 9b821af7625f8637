package adjudication

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/cohort/internal/authz"
	"github.com/JaimeStill/cohort/internal/judgement"
	"github.com/JaimeStill/cohort/pkg/auth"
	"github.com/JaimeStill/cohort/pkg/handlers"
	"github.com/JaimeStill/cohort/pkg/routes"
)

// Handler provides HTTP endpoints for cross-judger adjudication.
type Handler struct {
	sys         System
	logger      *slog.Logger
	maxBodySize int64
}

// CohortOverrideRequest carries a tiebreaker inclusion value.
type CohortOverrideRequest struct {
	Judgement judgement.Inclusion `json:"judgement"`
}

// NodeOverrideRequest carries a tiebreaker node judgement.
type NodeOverrideRequest struct {
	Judgement judgement.Criterion `json:"judgement"`
}

// NewHandler creates a Handler backed by the given System.
func NewHandler(sys System, logger *slog.Logger, maxBodySize int64) *Handler {
	return &Handler{
		sys:         sys,
		logger:      logger.With("handler", "adjudication"),
		maxBodySize: maxBodySize,
	}
}

// Routes returns the route group for adjudication endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/adjudication/{job}",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/cohort", Handler: h.CohortState},
			{Method: "PUT", Pattern: "/cohort/{person}", Handler: h.SetCohortOverride},
			{Method: "GET", Pattern: "/persons/{person}", Handler: h.CriteriaState},
			{Method: "PUT", Pattern: "/persons/{person}/criteria/{node}", Handler: h.SetNodeOverride},
			{Method: "POST", Pattern: "/export", Handler: h.Export},
			{Method: "GET", Pattern: "/exports", Handler: h.Exports},
			{Method: "GET", Pattern: "/exports/{stamp}", Handler: h.Download},
		},
	}
}

// CohortState returns every candidate's inclusion tally in score order.
func (h *Handler) CohortState(w http.ResponseWriter, r *http.Request) {
	caller, job, ok := h.job(w, r)
	if !ok {
		return
	}

	state, err := h.sys.CohortState(r.Context(), caller, job)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, state)
}

// SetCohortOverride records the tiebreaker inclusion for a candidate.
func (h *Handler) SetCohortOverride(w http.ResponseWriter, r *http.Request) {
	caller, job, ok := h.job(w, r)
	if !ok {
		return
	}

	req, err := handlers.DecodeJSON[CohortOverrideRequest](w, r, h.maxBodySize)
	if err != nil {
		h.fail(w, err)
		return
	}

	stored, err := h.sys.SetCohortOverride(r.Context(), caller, job, r.PathValue("person"), req.Judgement)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, CohortOverrideRequest{Judgement: stored})
}

// CriteriaState returns the node judgement tallies for one patient.
func (h *Handler) CriteriaState(w http.ResponseWriter, r *http.Request) {
	caller, job, ok := h.job(w, r)
	if !ok {
		return
	}

	state, err := h.sys.CriteriaState(r.Context(), caller, job, r.PathValue("person"))
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, state)
}

// SetNodeOverride records the tiebreaker for one node and patient and
// returns the refreshed criteria state.
func (h *Handler) SetNodeOverride(w http.ResponseWriter, r *http.Request) {
	caller, job, ok := h.job(w, r)
	if !ok {
		return
	}

	node, err := uuid.Parse(r.PathValue("node"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return
	}

	req, err := handlers.DecodeJSON[NodeOverrideRequest](w, r, h.maxBodySize)
	if err != nil {
		h.fail(w, err)
		return
	}

	state, err := h.sys.SetNodeOverride(r.Context(), caller, job, node, r.PathValue("person"), req.Judgement)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, state)
}

// Export snapshots the cohort state to blob storage.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	caller, job, ok := h.job(w, r)
	if !ok {
		return
	}

	result, err := h.sys.Export(r.Context(), caller, job)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, result)
}

// Exports lists the stored snapshot stamps for a job, newest first.
func (h *Handler) Exports(w http.ResponseWriter, r *http.Request) {
	caller, job, ok := h.job(w, r)
	if !ok {
		return
	}

	stamps, err := h.sys.Exports(r.Context(), caller, job)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, stamps)
}

// Download streams a stored cohort state snapshot.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	caller, job, ok := h.job(w, r)
	if !ok {
		return
	}

	stamp := r.PathValue("stamp")
	body, err := h.sys.Download(r.Context(), caller, job, stamp)
	if err != nil {
		h.fail(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("%s-%s.json", job, stamp)),
	)
	w.WriteHeader(http.StatusOK)
	io.Copy(w, body)
}

func (h *Handler) job(w http.ResponseWriter, r *http.Request) (string, uuid.UUID, bool) {
	caller, _ := auth.Caller(r.Context())

	job, err := uuid.Parse(r.PathValue("job"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return "", uuid.Nil, false
	}
	return caller, job, true
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	handlers.RespondError(w, h.logger, MapHTTPStatus(err), authz.Conceal(err))
}
