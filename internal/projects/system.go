package projects

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/cohort/internal/authz"
	"github.com/JaimeStill/cohort/internal/criteria"
	"github.com/JaimeStill/cohort/pkg/pagination"
)

// System defines the public contract for project domain operations.
// Every method except Create and List authorizes caller against the
// project before reading or writing its data.
type System interface {
	Handler(maxBodySize int64) *Handler

	List(ctx context.Context, caller string, page pagination.PageRequest) (*pagination.PageResult[Project], error)
	Find(ctx context.Context, caller string, id uuid.UUID) (*Project, error)
	Create(ctx context.Context, caller string, cmd CreateCommand) (*Project, error)
	Rename(ctx context.Context, caller string, id uuid.UUID, name string) (*Project, error)
	Archive(ctx context.Context, caller string, id uuid.UUID) (bool, error)

	Roles(ctx context.Context, caller string, id uuid.UUID) ([]RoleGrant, error)
	UpdateRole(ctx context.Context, caller string, id uuid.UUID, user string, grant authz.Grant) (*RoleGrant, error)

	Criterion(ctx context.Context, caller string, id uuid.UUID) (*Revision, error)
	Revisions(ctx context.Context, caller string, id uuid.UUID) ([]Revision, error)
	WriteCriterion(ctx context.Context, caller string, id uuid.UUID, tree criteria.Node) (*Revision, error)

	DataSources(ctx context.Context, caller string, id uuid.UUID) ([]DataSource, error)
	WriteDataSources(ctx context.Context, caller string, id uuid.UUID, sources []DataSource) ([]DataSource, error)
}
