package cohorts

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/cohort/internal/authz"
	"github.com/JaimeStill/cohort/internal/judgement"
	"github.com/JaimeStill/cohort/pkg/auth"
	"github.com/JaimeStill/cohort/pkg/handlers"
	"github.com/JaimeStill/cohort/pkg/routes"
)

// Handler provides HTTP endpoints for per-judger review.
type Handler struct {
	sys         System
	logger      *slog.Logger
	maxBodySize int64
}

// InclusionRequest carries a cohort inclusion judgement.
type InclusionRequest struct {
	Judgement judgement.Inclusion `json:"judgement"`
}

// CriterionRequest carries an evidence judgement.
type CriterionRequest struct {
	Judgement judgement.Criterion `json:"judgement"`
}

// PersonsRequest names the candidates to look up.
type PersonsRequest struct {
	Persons []string `json:"persons"`
}

// EvidenceRequest names the evidence items to look up.
type EvidenceRequest struct {
	Evidence []string `json:"evidence"`
}

// IngestResponse reports how many records were newly stored.
type IngestResponse struct {
	Inserted int64 `json:"inserted"`
}

// NewHandler creates a Handler with the given system, logger, and body size limit.
func NewHandler(sys System, logger *slog.Logger, maxBodySize int64) *Handler {
	return &Handler{
		sys:         sys,
		logger:      logger.With("handler", "cohorts"),
		maxBodySize: maxBodySize,
	}
}

// Routes returns the route group definition for cohort review endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/cohorts/{job}",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.Candidates},
			{Method: "POST", Pattern: "/inclusions", Handler: h.Inclusions},
			{Method: "POST", Pattern: "/candidates", Handler: h.RecordCandidates},
			{Method: "POST", Pattern: "/evidence", Handler: h.RecordEvidence},
			{Method: "PUT", Pattern: "/persons/{person}", Handler: h.SetCohortJudgement},
			{Method: "GET", Pattern: "/persons/{person}/criteria", Handler: h.CriterionStatus},
			{Method: "GET", Pattern: "/persons/{person}/criteria/{node}", Handler: h.NodeStatus},
			{Method: "PUT", Pattern: "/persons/{person}/criteria/{node}", Handler: h.SetNodeJudgement},
			{Method: "GET", Pattern: "/persons/{person}/criteria/{node}/evidence", Handler: h.EvidenceForNode},
			{Method: "POST", Pattern: "/criteria/{node}/evidence/judgements", Handler: h.EvidenceJudgements},
			{Method: "PUT", Pattern: "/criteria/{node}/evidence/{evidence}", Handler: h.SetEvidenceJudgement},
		},
	}
}

// Candidates lists the job's candidates with the caller's inclusion calls.
func (h *Handler) Candidates(w http.ResponseWriter, r *http.Request) {
	caller, job, ok := h.job(w, r)
	if !ok {
		return
	}

	candidates, err := h.sys.Candidates(r.Context(), caller, job)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, candidates)
}

// Inclusions returns the caller's inclusion calls for the named persons.
func (h *Handler) Inclusions(w http.ResponseWriter, r *http.Request) {
	caller, job, ok := h.job(w, r)
	if !ok {
		return
	}

	req, err := handlers.DecodeJSON[PersonsRequest](w, r, h.maxBodySize)
	if err != nil {
		h.fail(w, err)
		return
	}

	result, err := h.sys.Inclusions(r.Context(), caller, job, req.Persons...)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// SetCohortJudgement records the caller's inclusion call for a candidate.
func (h *Handler) SetCohortJudgement(w http.ResponseWriter, r *http.Request) {
	caller, job, ok := h.job(w, r)
	if !ok {
		return
	}

	req, err := handlers.DecodeJSON[InclusionRequest](w, r, h.maxBodySize)
	if err != nil {
		h.fail(w, err)
		return
	}

	stored, err := h.sys.SetCohortJudgement(r.Context(), caller, job, r.PathValue("person"), req.Judgement)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, InclusionRequest{Judgement: stored})
}

// CriterionStatus returns the caller's effective status for every leaf node.
func (h *Handler) CriterionStatus(w http.ResponseWriter, r *http.Request) {
	caller, job, ok := h.job(w, r)
	if !ok {
		return
	}

	result, err := h.sys.CriterionStatus(r.Context(), caller, job, r.PathValue("person"))
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// NodeStatus returns the caller's effective status for one node.
func (h *Handler) NodeStatus(w http.ResponseWriter, r *http.Request) {
	caller, job, node, ok := h.node(w, r)
	if !ok {
		return
	}

	status, err := h.sys.NodeStatus(r.Context(), caller, job, node, r.PathValue("person"))
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, status)
}

// SetNodeJudgement records or clears the caller's explicit node status and
// returns the refreshed criterion status.
func (h *Handler) SetNodeJudgement(w http.ResponseWriter, r *http.Request) {
	caller, job, node, ok := h.node(w, r)
	if !ok {
		return
	}

	cmd, err := handlers.DecodeJSON[NodeCommand](w, r, h.maxBodySize)
	if err != nil {
		h.fail(w, err)
		return
	}

	result, err := h.sys.SetNodeJudgement(r.Context(), caller, job, node, r.PathValue("person"), cmd)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// EvidenceForNode lists evidence for a node and patient.
func (h *Handler) EvidenceForNode(w http.ResponseWriter, r *http.Request) {
	caller, job, node, ok := h.node(w, r)
	if !ok {
		return
	}

	evidence, err := h.sys.EvidenceForNode(r.Context(), caller, job, node, r.PathValue("person"))
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, evidence)
}

// EvidenceJudgements returns the caller's judgements for the named evidence.
func (h *Handler) EvidenceJudgements(w http.ResponseWriter, r *http.Request) {
	caller, job, node, ok := h.node(w, r)
	if !ok {
		return
	}

	req, err := handlers.DecodeJSON[EvidenceRequest](w, r, h.maxBodySize)
	if err != nil {
		h.fail(w, err)
		return
	}

	result, err := h.sys.EvidenceJudgements(r.Context(), caller, job, node, req.Evidence...)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// SetEvidenceJudgement records the caller's judgement of one evidence item.
func (h *Handler) SetEvidenceJudgement(w http.ResponseWriter, r *http.Request) {
	caller, job, node, ok := h.node(w, r)
	if !ok {
		return
	}

	req, err := handlers.DecodeJSON[CriterionRequest](w, r, h.maxBodySize)
	if err != nil {
		h.fail(w, err)
		return
	}

	stored, err := h.sys.SetEvidenceJudgement(r.Context(), caller, job, node, r.PathValue("evidence"), req.Judgement)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, CriterionRequest{Judgement: stored})
}

// RecordCandidates stores pipeline-produced candidates.
func (h *Handler) RecordCandidates(w http.ResponseWriter, r *http.Request) {
	caller, job, ok := h.job(w, r)
	if !ok {
		return
	}

	records, err := handlers.DecodeJSON[[]CandidateRecord](w, r, h.maxBodySize)
	if err != nil {
		h.fail(w, err)
		return
	}

	n, err := h.sys.RecordCandidates(r.Context(), caller, job, records)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, IngestResponse{Inserted: n})
}

// RecordEvidence stores pipeline-produced evidence.
func (h *Handler) RecordEvidence(w http.ResponseWriter, r *http.Request) {
	caller, job, ok := h.job(w, r)
	if !ok {
		return
	}

	records, err := handlers.DecodeJSON[[]EvidenceRecord](w, r, h.maxBodySize)
	if err != nil {
		h.fail(w, err)
		return
	}

	n, err := h.sys.RecordEvidence(r.Context(), caller, job, records)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, IngestResponse{Inserted: n})
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

func (h *Handler) node(w http.ResponseWriter, r *http.Request) (string, uuid.UUID, uuid.UUID, bool) {
	caller, job, ok := h.job(w, r)
	if !ok {
		return "", uuid.Nil, uuid.Nil, false
	}

	node, err := uuid.Parse(r.PathValue("node"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return "", uuid.Nil, uuid.Nil, false
	}
	return caller, job, node, true
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	handlers.RespondError(w, h.logger, MapHTTPStatus(err), authz.Conceal(err))
}
