package authz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/cohort/pkg/repository"
)

// Gate checks callers against the project role table.
// It only reads; callers must invoke it before touching project data.
type Gate struct {
	backend string
	logger  *slog.Logger
}

// New creates a Gate. backend is the executor callback identity, which is
// authorized for every project regardless of grants.
func New(backend string, logger *slog.Logger) *Gate {
	return &Gate{
		backend: NormalizeUser(backend),
		logger:  logger.With("system", "authz"),
	}
}

// Backend returns the normalized callback identity.
func (g *Gate) Backend() string {
	return g.backend
}

// Authorize returns ErrUnauthorized unless caller holds a grant on project
// at least as permissive as min.
func (g *Gate) Authorize(ctx context.Context, q repository.Querier, caller string, project uuid.UUID, min Grant) error {
	caller = NormalizeUser(caller)

	var grants []Grant
	if caller != g.backend {
		var err error
		grants, err = repository.QueryMany(
			ctx, q,
			"SELECT grant_type FROM project_role_grants WHERE project_uid = $1 AND user_uid = $2",
			[]any{project, caller},
			scanGrant,
		)
		if err != nil {
			return repository.Persistence(err, "load grants", project, caller)
		}
	}

	if !Decide(caller, g.backend, grants, min) {
		g.logger.Warn("authorization denied", "caller", caller, "project", project, "required", min)
		return ErrUnauthorized
	}
	return nil
}

// AuthorizeJob resolves the project owning job, then applies Authorize.
// An unknown job yields ErrUnresolved.
func (g *Gate) AuthorizeJob(ctx context.Context, q repository.Querier, caller string, job uuid.UUID, min Grant) (uuid.UUID, error) {
	var project uuid.UUID
	err := q.QueryRowContext(ctx, "SELECT project_uid FROM jobs WHERE job_uid = $1", job).Scan(&project)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			g.logger.Warn("job reference unresolved", "caller", NormalizeUser(caller), "job", job)
			return uuid.Nil, fmt.Errorf("job %s: %w", job, ErrUnresolved)
		}
		return uuid.Nil, repository.Persistence(err, "resolve job project", job)
	}

	if err := g.Authorize(ctx, q, caller, project, min); err != nil {
		return uuid.Nil, err
	}
	return project, nil
}

func scanGrant(s repository.Scanner) (Grant, error) {
	var g Grant
	err := s.Scan(&g)
	return g, err
}
