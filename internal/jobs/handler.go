package jobs

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/cohort/internal/authz"
	"github.com/JaimeStill/cohort/pkg/auth"
	"github.com/JaimeStill/cohort/pkg/handlers"
	"github.com/JaimeStill/cohort/pkg/pagination"
	"github.com/JaimeStill/cohort/pkg/routes"
)

// Handler provides HTTP endpoints for job operations.
type Handler struct {
	sys         System
	logger      *slog.Logger
	pagination  pagination.Config
	maxBodySize int64
}

// StatusRequest is the body of an executor status callback.
type StatusRequest struct {
	Status Status `json:"status"`
}

// TransitionResponse reports that a guarded transition was applied.
type TransitionResponse struct {
	Changed bool `json:"changed"`
}

// NewHandler creates a Handler with the given system, logger, pagination config, and body size limit.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
	maxBodySize int64,
) *Handler {
	return &Handler{
		sys:         sys,
		logger:      logger.With("handler", "jobs"),
		pagination:  pagination,
		maxBodySize: maxBodySize,
	}
}

// Routes returns the route groups for job endpoints. Project-scoped
// listing and dispatch live beneath the project path.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Children: []routes.Group{
			{
				Prefix: "/jobs",
				Routes: []routes.Route{
					{Method: "GET", Pattern: "", Handler: h.ListForUser},
					{Method: "GET", Pattern: "/{id}", Handler: h.Find},
					{Method: "DELETE", Pattern: "/{id}", Handler: h.Archive},
					{Method: "GET", Pattern: "/{id}/criterion", Handler: h.Criterion},
					{Method: "PUT", Pattern: "/{id}/status", Handler: h.SetStatus},
					{Method: "POST", Pattern: "/{id}/cancel", Handler: h.Cancel},
				},
			},
			{
				Prefix: "/projects/{id}/jobs",
				Routes: []routes.Route{
					{Method: "GET", Pattern: "", Handler: h.ListForProject},
					{Method: "POST", Pattern: "", Handler: h.Dispatch},
				},
			},
		},
	}
}

// ListForUser returns the caller's own active jobs.
func (h *Handler) ListForUser(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.Caller(r.Context())
	page := pagination.FromQuery(r.URL.Query(), h.pagination)

	result, err := h.sys.ListForUser(r.Context(), caller, page)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// ListForProject returns a project's active jobs.
func (h *Handler) ListForProject(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}
	page := pagination.FromQuery(r.URL.Query(), h.pagination)

	result, err := h.sys.ListForProject(r.Context(), caller, id, page)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Dispatch creates a job for the project's active criterion and starts it.
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}

	j, err := h.sys.CreateAndDispatch(r.Context(), caller, id)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, j)
}

// Find returns a single job.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}

	j, err := h.sys.Find(r.Context(), caller, id)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, j)
}

// Criterion returns the criterion tree the job was dispatched with.
func (h *Handler) Criterion(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}

	tree, err := h.sys.Criterion(r.Context(), caller, id)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, tree)
}

// SetStatus records a status reported by the executor.
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}

	req, err := handlers.DecodeJSON[StatusRequest](w, r, h.maxBodySize)
	if err != nil {
		h.fail(w, err)
		return
	}

	j, err := h.sys.SetStatus(r.Context(), caller, id, req.Status)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, j)
}

// Cancel moves an unfinished job to CANCELLED.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}

	changed, err := h.sys.Cancel(r.Context(), caller, id)
	h.respondTransition(w, changed, err)
}

// Archive hides a finished job from listings.
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}

	changed, err := h.sys.Archive(r.Context(), caller, id)
	h.respondTransition(w, changed, err)
}

func (h *Handler) respondTransition(w http.ResponseWriter, changed bool, err error) {
	if err != nil {
		h.fail(w, err)
		return
	}
	if !changed {
		h.fail(w, ErrIneligible)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, TransitionResponse{Changed: true})
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (string, uuid.UUID, bool) {
	caller, _ := auth.Caller(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return "", uuid.Nil, false
	}
	return caller, id, true
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	handlers.RespondError(w, h.logger, MapHTTPStatus(err), authz.Conceal(err))
}
