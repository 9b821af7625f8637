package cohorts_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/cohort/internal/authz"
	"github.com/JaimeStill/cohort/internal/cohorts"
	"github.com/JaimeStill/cohort/internal/judgement"
	"github.com/JaimeStill/cohort/pkg/auth"
	"github.com/JaimeStill/cohort/pkg/routes"
)

type mockSystem struct {
	candidatesFn         func(ctx context.Context, caller string, job uuid.UUID) ([]cohorts.Candidate, error)
	inclusionsFn         func(ctx context.Context, caller string, job uuid.UUID, persons ...string) (map[string]judgement.Inclusion, error)
	setCohortFn          func(ctx context.Context, caller string, job uuid.UUID, person string, value judgement.Inclusion) (judgement.Inclusion, error)
	evidenceForNodeFn    func(ctx context.Context, caller string, job, node uuid.UUID, person string) ([]cohorts.Evidence, error)
	evidenceJudgementsFn func(ctx context.Context, caller string, job, node uuid.UUID, evidence ...string) (map[string]judgement.Criterion, error)
	setEvidenceFn        func(ctx context.Context, caller string, job, node uuid.UUID, evidence string, value judgement.Criterion) (judgement.Criterion, error)
	nodeStatusFn         func(ctx context.Context, caller string, job, node uuid.UUID, person string) (cohorts.NodeJudgement, error)
	criterionStatusFn    func(ctx context.Context, caller string, job uuid.UUID, person string) (map[uuid.UUID]cohorts.NodeJudgement, error)
	setNodeFn            func(ctx context.Context, caller string, job, node uuid.UUID, person string, cmd cohorts.NodeCommand) (map[uuid.UUID]cohorts.NodeJudgement, error)
	recordCandidatesFn   func(ctx context.Context, caller string, job uuid.UUID, records []cohorts.CandidateRecord) (int64, error)
	recordEvidenceFn     func(ctx context.Context, caller string, job uuid.UUID, records []cohorts.EvidenceRecord) (int64, error)
}

func (m *mockSystem) Handler(int64) *cohorts.Handler {
	return newTestHandler(m)
}

func (m *mockSystem) Candidates(ctx context.Context, caller string, job uuid.UUID) ([]cohorts.Candidate, error) {
	return m.candidatesFn(ctx, caller, job)
}

func (m *mockSystem) Inclusions(ctx context.Context, caller string, job uuid.UUID, persons ...string) (map[string]judgement.Inclusion, error) {
	return m.inclusionsFn(ctx, caller, job, persons...)
}

func (m *mockSystem) SetCohortJudgement(ctx context.Context, caller string, job uuid.UUID, person string, value judgement.Inclusion) (judgement.Inclusion, error) {
	return m.setCohortFn(ctx, caller, job, person, value)
}

func (m *mockSystem) EvidenceForNode(ctx context.Context, caller string, job, node uuid.UUID, person string) ([]cohorts.Evidence, error) {
	return m.evidenceForNodeFn(ctx, caller, job, node, person)
}

func (m *mockSystem) EvidenceJudgements(ctx context.Context, caller string, job, node uuid.UUID, evidence ...string) (map[string]judgement.Criterion, error) {
	return m.evidenceJudgementsFn(ctx, caller, job, node, evidence...)
}

func (m *mockSystem) SetEvidenceJudgement(ctx context.Context, caller string, job, node uuid.UUID, evidence string, value judgement.Criterion) (judgement.Criterion, error) {
	return m.setEvidenceFn(ctx, caller, job, node, evidence, value)
}

func (m *mockSystem) NodeStatus(ctx context.Context, caller string, job, node uuid.UUID, person string) (cohorts.NodeJudgement, error) {
	return m.nodeStatusFn(ctx, caller, job, node, person)
}

func (m *mockSystem) CriterionStatus(ctx context.Context, caller string, job uuid.UUID, person string) (map[uuid.UUID]cohorts.NodeJudgement, error) {
	return m.criterionStatusFn(ctx, caller, job, person)
}

func (m *mockSystem) SetNodeJudgement(ctx context.Context, caller string, job, node uuid.UUID, person string, cmd cohorts.NodeCommand) (map[uuid.UUID]cohorts.NodeJudgement, error) {
	return m.setNodeFn(ctx, caller, job, node, person, cmd)
}

func (m *mockSystem) RecordCandidates(ctx context.Context, caller string, job uuid.UUID, records []cohorts.CandidateRecord) (int64, error) {
	return m.recordCandidatesFn(ctx, caller, job, records)
}

func (m *mockSystem) RecordEvidence(ctx context.Context, caller string, job uuid.UUID, records []cohorts.EvidenceRecord) (int64, error) {
	return m.recordEvidenceFn(ctx, caller, job, records)
}

func newTestHandler(sys *mockSystem) *cohorts.Handler {
	return cohorts.NewHandler(sys, slog.New(slog.NewTextHandler(io.Discard, nil)), 64*1024)
}

func setupMux(h *cohorts.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	routes.Register(mux, h.Routes())
	return mux
}

var (
	jobID  = uuid.MustParse("a3bb189e-8bf9-3888-9912-ace4e6543002")
	nodeID = uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")
)

func jobPath(suffix string) string {
	return "/cohorts/" + jobID.String() + suffix
}

func TestHandlerCandidates(t *testing.T) {
	var gotCaller string
	sys := &mockSystem{
		candidatesFn: func(_ context.Context, caller string, _ uuid.UUID) ([]cohorts.Candidate, error) {
			gotCaller = caller
			return []cohorts.Candidate{
				{PersonUID: "P2", Score: 0.9, Judgement: judgement.Include},
				{PersonUID: "P1", Score: 0.4, Judgement: judgement.InclusionUnjudged},
			}, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", jobPath(""), nil)
	mux.ServeHTTP(rec, req.WithContext(auth.WithCaller(req.Context(), "u1")))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotCaller != "u1" {
		t.Errorf("caller = %q, want u1", gotCaller)
	}

	var got []cohorts.Candidate
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0].PersonUID != "P2" {
		t.Errorf("unexpected candidates: %+v", got)
	}
}

func TestHandlerSetCohortJudgement(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{"records judgement", `{"judgement":"INCLUDE"}`, nil, http.StatusOK},
		{"nonexistent candidate", `{"judgement":"EXCLUDE"}`, fmt.Errorf("job %s person P9: %w", jobID, cohorts.ErrNoCandidate), http.StatusConflict},
		{"invalid value", `{"judgement":"MAYBE"}`, fmt.Errorf("%w: inclusion %q", judgement.ErrInvalid, "MAYBE"), http.StatusBadRequest},
		{"unauthorized", `{"judgement":"INCLUDE"}`, authz.ErrUnauthorized, http.StatusForbidden},
		{"malformed body", `{`, nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPerson string
			sys := &mockSystem{
				setCohortFn: func(_ context.Context, _ string, _ uuid.UUID, person string, value judgement.Inclusion) (judgement.Inclusion, error) {
					gotPerson = person
					if tt.err != nil {
						return "", tt.err
					}
					return value, nil
				},
			}
			mux := setupMux(newTestHandler(sys))

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("PUT", jobPath("/persons/P1"), strings.NewReader(tt.body)))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && gotPerson != "P1" {
				t.Errorf("person = %q, want P1", gotPerson)
			}
		})
	}
}

func TestHandlerSetNodeJudgement(t *testing.T) {
	t.Run("null judgement clears", func(t *testing.T) {
		var captured cohorts.NodeCommand
		sys := &mockSystem{
			setNodeFn: func(_ context.Context, _ string, _, node uuid.UUID, _ string, cmd cohorts.NodeCommand) (map[uuid.UUID]cohorts.NodeJudgement, error) {
				captured = cmd
				return map[uuid.UUID]cohorts.NodeJudgement{
					node: {Judgement: judgement.EvidenceFound, Comment: cmd.Comment},
				}, nil
			},
		}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		body := strings.NewReader(`{"judgement":null,"comment":"revisit"}`)
		mux.ServeHTTP(rec, httptest.NewRequest("PUT", jobPath("/persons/P1/criteria/"+nodeID.String()), body))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if captured.Judgement != nil {
			t.Errorf("judgement = %v, want nil", *captured.Judgement)
		}
		if captured.Comment != "revisit" {
			t.Errorf("comment = %q, want revisit", captured.Comment)
		}

		var got map[uuid.UUID]cohorts.NodeJudgement
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got[nodeID].Judgement != judgement.EvidenceFound {
			t.Errorf("status = %s, want EVIDENCE_FOUND", got[nodeID].Judgement)
		}
	})

	t.Run("explicit judgement", func(t *testing.T) {
		var captured cohorts.NodeCommand
		sys := &mockSystem{
			setNodeFn: func(_ context.Context, _ string, _, _ uuid.UUID, _ string, cmd cohorts.NodeCommand) (map[uuid.UUID]cohorts.NodeJudgement, error) {
				captured = cmd
				return map[uuid.UUID]cohorts.NodeJudgement{}, nil
			},
		}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		body := strings.NewReader(`{"judgement":"JUDGED_MISMATCH"}`)
		mux.ServeHTTP(rec, httptest.NewRequest("PUT", jobPath("/persons/P1/criteria/"+nodeID.String()), body))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if captured.Judgement == nil || *captured.Judgement != judgement.JudgedMismatch {
			t.Errorf("judgement = %v, want JUDGED_MISMATCH", captured.Judgement)
		}
	})

	t.Run("invalid node id", func(t *testing.T) {
		mux := setupMux(newTestHandler(&mockSystem{}))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("PUT", jobPath("/persons/P1/criteria/n1"), strings.NewReader(`{}`)))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandlerEvidenceJudgements(t *testing.T) {
	var gotEvidence []string
	sys := &mockSystem{
		evidenceJudgementsFn: func(_ context.Context, _ string, _, _ uuid.UUID, evidence ...string) (map[string]judgement.Criterion, error) {
			gotEvidence = evidence
			return map[string]judgement.Criterion{
				"e1": judgement.EvidenceFound,
				"e2": judgement.Unjudged,
			}, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"evidence":["e1","e2"]}`)
	mux.ServeHTTP(rec, httptest.NewRequest("POST", jobPath("/criteria/"+nodeID.String()+"/evidence/judgements"), body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(gotEvidence) != 2 {
		t.Errorf("evidence = %v, want [e1 e2]", gotEvidence)
	}

	var got map[string]judgement.Criterion
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["e2"] != judgement.Unjudged {
		t.Errorf("e2 = %s, want UNJUDGED", got["e2"])
	}
}

func TestHandlerSetEvidenceJudgementMissing(t *testing.T) {
	sys := &mockSystem{
		setEvidenceFn: func(context.Context, string, uuid.UUID, uuid.UUID, string, judgement.Criterion) (judgement.Criterion, error) {
			return "", cohorts.ErrNoEvidence
		},
	}
	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"judgement":"JUDGED_MATCH"}`)
	mux.ServeHTTP(rec, httptest.NewRequest("PUT", jobPath("/criteria/"+nodeID.String()+"/evidence/e404"), body))

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestHandlerRecordEvidence(t *testing.T) {
	var got []cohorts.EvidenceRecord
	sys := &mockSystem{
		recordEvidenceFn: func(_ context.Context, _ string, _ uuid.UUID, records []cohorts.EvidenceRecord) (int64, error) {
			got = records
			return int64(len(records)), nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	body := fmt.Sprintf(`[{"node_uid":"%s","person_uid":"P1","evidence_uid":"note-17","score":0.8}]`, nodeID)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", jobPath("/evidence"), strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(got) != 1 || got[0].NodeUID != nodeID || got[0].EvidenceUID != "note-17" {
		t.Errorf("unexpected records: %+v", got)
	}

	var resp cohorts.IngestResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Inserted != 1 {
		t.Errorf("inserted = %d, want 1", resp.Inserted)
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unresolved job", authz.ErrUnresolved, http.StatusForbidden},
		{"no candidate", cohorts.ErrNoCandidate, http.StatusConflict},
		{"no evidence", cohorts.ErrNoEvidence, http.StatusConflict},
		{"invalid record", cohorts.ErrInvalidRecord, http.StatusBadRequest},
		{"invalid judgement", judgement.ErrInvalid, http.StatusBadRequest},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cohorts.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}
