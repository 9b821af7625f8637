package projects

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/cohort/internal/authz"
	"github.com/JaimeStill/cohort/internal/criteria"
	"github.com/JaimeStill/cohort/pkg/auth"
	"github.com/JaimeStill/cohort/pkg/handlers"
	"github.com/JaimeStill/cohort/pkg/pagination"
	"github.com/JaimeStill/cohort/pkg/routes"
)

// Handler provides HTTP endpoints for project operations.
type Handler struct {
	sys         System
	logger      *slog.Logger
	pagination  pagination.Config
	maxBodySize int64
}

// RenameRequest is the body of a rename request.
type RenameRequest struct {
	Name string `json:"name"`
}

// RoleRequest is the body of a role grant update.
type RoleRequest struct {
	User  string      `json:"user"`
	Grant authz.Grant `json:"grant"`
}

// ArchiveResponse reports whether an archive call changed state.
type ArchiveResponse struct {
	Archived bool `json:"archived"`
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
		logger:      logger.With("handler", "projects"),
		pagination:  pagination,
		maxBodySize: maxBodySize,
	}
}

// Routes returns the route group definition for project endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/projects",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "POST", Pattern: "", Handler: h.Create},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Archive},
			{Method: "PUT", Pattern: "/{id}/name", Handler: h.Rename},
			{Method: "GET", Pattern: "/{id}/roles", Handler: h.Roles},
			{Method: "PUT", Pattern: "/{id}/roles", Handler: h.UpdateRole},
			{Method: "GET", Pattern: "/{id}/criterion", Handler: h.Criterion},
			{Method: "POST", Pattern: "/{id}/criterion", Handler: h.WriteCriterion},
			{Method: "GET", Pattern: "/{id}/criterion/revisions", Handler: h.Revisions},
			{Method: "GET", Pattern: "/{id}/data-sources", Handler: h.DataSources},
			{Method: "PUT", Pattern: "/{id}/data-sources", Handler: h.WriteDataSources},
		},
	}
}

// List returns the caller's active projects.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.Caller(r.Context())
	page := pagination.FromQuery(r.URL.Query(), h.pagination)

	result, err := h.sys.List(r.Context(), caller, page)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Create creates a project owned by the caller.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.Caller(r.Context())

	cmd, err := handlers.DecodeJSON[CreateCommand](w, r, h.maxBodySize)
	if err != nil {
		h.fail(w, err)
		return
	}

	p, err := h.sys.Create(r.Context(), caller, cmd)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, p)
}

// Find returns a single project by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}

	p, err := h.sys.Find(r.Context(), caller, id)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, p)
}

// Rename replaces a project's name.
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}

	req, err := handlers.DecodeJSON[RenameRequest](w, r, h.maxBodySize)
	if err != nil {
		h.fail(w, err)
		return
	}

	p, err := h.sys.Rename(r.Context(), caller, id, req.Name)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, p)
}

// Archive marks a project archived.
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}

	archived, err := h.sys.Archive(r.Context(), caller, id)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, ArchiveResponse{Archived: archived})
}

// Roles lists the role grants of a project.
func (h *Handler) Roles(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}

	grants, err := h.sys.Roles(r.Context(), caller, id)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, grants)
}

// UpdateRole sets the grant of one user on a project.
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}

	req, err := handlers.DecodeJSON[RoleRequest](w, r, h.maxBodySize)
	if err != nil {
		h.fail(w, err)
		return
	}

	g, err := h.sys.UpdateRole(r.Context(), caller, id, req.User, req.Grant)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, g)
}

// Criterion returns the active criterion revision.
func (h *Handler) Criterion(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}

	rev, err := h.sys.Criterion(r.Context(), caller, id)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, rev)
}

// WriteCriterion appends a criterion revision.
func (h *Handler) WriteCriterion(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}

	tree, err := handlers.DecodeJSON[criteria.Node](w, r, h.maxBodySize)
	if err != nil {
		h.fail(w, err)
		return
	}

	rev, err := h.sys.WriteCriterion(r.Context(), caller, id, tree)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, rev)
}

// Revisions returns criterion revision history, newest first.
func (h *Handler) Revisions(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}

	revs, err := h.sys.Revisions(r.Context(), caller, id)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, revs)
}

// DataSources returns the data-source bindings of a project.
func (h *Handler) DataSources(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}

	sources, err := h.sys.DataSources(r.Context(), caller, id)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, sources)
}

// WriteDataSources replaces the data-source bindings of a project.
func (h *Handler) WriteDataSources(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}

	sources, err := handlers.DecodeJSON[[]DataSource](w, r, h.maxBodySize)
	if err != nil {
		h.fail(w, err)
		return
	}

	stored, err := h.sys.WriteDataSources(r.Context(), caller, id, sources)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, stored)
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
