package jobs

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/cohort/internal/criteria"
	"github.com/JaimeStill/cohort/pkg/pagination"
)

// System defines the public contract for job domain operations.
type System interface {
	Handler(maxBodySize int64) *Handler

	ListForUser(ctx context.Context, caller string, page pagination.PageRequest) (*pagination.PageResult[Job], error)
	ListForProject(ctx context.Context, caller string, project uuid.UUID, page pagination.PageRequest) (*pagination.PageResult[Job], error)
	Find(ctx context.Context, caller string, id uuid.UUID) (*Job, error)
	Criterion(ctx context.Context, caller string, id uuid.UUID) (criteria.Node, error)

	CreateAndDispatch(ctx context.Context, caller string, project uuid.UUID) (*Job, error)
	SetStatus(ctx context.Context, caller string, id uuid.UUID, status Status) (*Job, error)
	Cancel(ctx context.Context, caller string, id uuid.UUID) (bool, error)
	Archive(ctx context.Context, caller string, id uuid.UUID) (bool, error)
}
