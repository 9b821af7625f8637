package adjudication

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/JaimeStill/cohort/internal/judgement"
)

// System defines the public contract for cross-judger adjudication.
// Cohort-wide views and exports require WRITE; per-patient views and
// overrides require JUDGE.
type System interface {
	Handler(maxBodySize int64) *Handler

	CohortState(ctx context.Context, caller string, job uuid.UUID) (CohortState, error)
	CriteriaState(ctx context.Context, caller string, job uuid.UUID, person string) (map[uuid.UUID]PatientStatus, error)
	SetCohortOverride(ctx context.Context, caller string, job uuid.UUID, person string, value judgement.Inclusion) (judgement.Inclusion, error)
	SetNodeOverride(ctx context.Context, caller string, job, node uuid.UUID, person string, value judgement.Criterion) (map[uuid.UUID]PatientStatus, error)

	Export(ctx context.Context, caller string, job uuid.UUID) (ExportResponse, error)
	Download(ctx context.Context, caller string, job uuid.UUID, stamp string) (io.ReadCloser, error)
	Exports(ctx context.Context, caller string, job uuid.UUID) ([]string, error)
}
