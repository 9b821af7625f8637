package cohorts

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/cohort/internal/judgement"
)

// System defines the public contract for per-judger review operations.
// Reads require READ, judgement writes require JUDGE, and pipeline ingest
// requires EXECUTE on the job's project.
type System interface {
	Handler(maxBodySize int64) *Handler

	Candidates(ctx context.Context, caller string, job uuid.UUID) ([]Candidate, error)
	Inclusions(ctx context.Context, caller string, job uuid.UUID, persons ...string) (map[string]judgement.Inclusion, error)
	SetCohortJudgement(ctx context.Context, caller string, job uuid.UUID, person string, value judgement.Inclusion) (judgement.Inclusion, error)

	EvidenceForNode(ctx context.Context, caller string, job, node uuid.UUID, person string) ([]Evidence, error)
	EvidenceJudgements(ctx context.Context, caller string, job, node uuid.UUID, evidence ...string) (map[string]judgement.Criterion, error)
	SetEvidenceJudgement(ctx context.Context, caller string, job, node uuid.UUID, evidence string, value judgement.Criterion) (judgement.Criterion, error)

	NodeStatus(ctx context.Context, caller string, job, node uuid.UUID, person string) (NodeJudgement, error)
	CriterionStatus(ctx context.Context, caller string, job uuid.UUID, person string) (map[uuid.UUID]NodeJudgement, error)
	SetNodeJudgement(ctx context.Context, caller string, job, node uuid.UUID, person string, cmd NodeCommand) (map[uuid.UUID]NodeJudgement, error)

	RecordCandidates(ctx context.Context, caller string, job uuid.UUID, records []CandidateRecord) (int64, error)
	RecordEvidence(ctx context.Context, caller string, job uuid.UUID, records []EvidenceRecord) (int64, error)
}
