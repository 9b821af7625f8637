package projects

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/cohort/internal/authz"
	"github.com/JaimeStill/cohort/internal/criteria"
	"github.com/JaimeStill/cohort/pkg/pagination"
	"github.com/JaimeStill/cohort/pkg/query"
	"github.com/JaimeStill/cohort/pkg/repository"
)

type repo struct {
	db         *sql.DB
	gate       *authz.Gate
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a project repository implementing the System interface.
func New(
	db *sql.DB,
	gate *authz.Gate,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		gate:       gate,
		logger:     logger.With("system", "projects"),
		pagination: pagination,
	}
}

func (r *repo) Handler(maxBodySize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxBodySize)
}

func (r *repo) List(
	ctx context.Context,
	caller string,
	page pagination.PageRequest,
) (*pagination.PageResult[Project], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(listProjection, defaultSort).
		WhereEquals("g.user_uid", authz.NormalizeUser(caller)).
		WhereNull("a.project_uid").
		WhereSearch(page.Search, "Name")

	qb.OrderBy(page.Sort)

	countSQL, countArgs := qb.Count()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, repository.Persistence(err, "count projects", caller)
	}

	pageSQL, pageArgs := qb.Page(page.Page, page.PageSize)
	projects, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanListed)
	if err != nil {
		return nil, repository.Persistence(err, "query projects", caller)
	}

	result := pagination.NewPageResult(projects, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, caller string, id uuid.UUID) (*Project, error) {
	return repository.WithConn(ctx, r.db, func(conn *sql.Conn) (*Project, error) {
		if err := r.gate.Authorize(ctx, conn, caller, id, authz.Read); err != nil {
			return nil, err
		}

		p, err := repository.QueryOne(
			ctx, conn,
			"SELECT "+projectColumns+" FROM projects WHERE project_uid = $1",
			[]any{id},
			scanProject,
		)
		if err != nil {
			return nil, r.mapError(err, "find project", id)
		}
		return &p, nil
	})
}

func (r *repo) Create(ctx context.Context, caller string, cmd CreateCommand) (*Project, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return nil, ErrInvalidName
	}

	owner := authz.NormalizeUser(caller)
	if owner == "" {
		return nil, authz.ErrUnauthorized
	}

	id := uuid.New()

	p, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Project, error) {
		p, err := repository.QueryOne(
			ctx, tx,
			`INSERT INTO projects(project_uid, name, description)
			VALUES ($1, $2, $3)
			RETURNING `+projectColumns,
			[]any{id, name, cmd.Description},
			scanProject,
		)
		if err != nil {
			return p, err
		}

		if _, err := tx.ExecContext(
			ctx,
			"INSERT INTO project_role_grants(project_uid, user_uid, grant_type) VALUES ($1, $2, $3)",
			id, owner, string(authz.Admin),
		); err != nil {
			return p, err
		}

		grant := authz.Admin
		p.Grant = &grant
		return p, nil
	})

	if err != nil {
		return nil, r.mapError(err, "create project", id)
	}

	r.logger.Info("project created", "id", p.ID, "name", p.Name, "owner", owner)
	return &p, nil
}

func (r *repo) Rename(ctx context.Context, caller string, id uuid.UUID, name string) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	return repository.WithConn(ctx, r.db, func(conn *sql.Conn) (*Project, error) {
		if err := r.gate.Authorize(ctx, conn, caller, id, authz.Admin); err != nil {
			return nil, err
		}

		p, err := repository.QueryOne(
			ctx, conn,
			"UPDATE projects SET name = $2 WHERE project_uid = $1 RETURNING "+projectColumns,
			[]any{id, name},
			scanProject,
		)
		if err != nil {
			return nil, r.mapError(err, "rename project", id)
		}

		r.logger.Info("project renamed", "id", id, "name", name)
		return &p, nil
	})
}

func (r *repo) Archive(ctx context.Context, caller string, id uuid.UUID) (bool, error) {
	return repository.WithConn(ctx, r.db, func(conn *sql.Conn) (bool, error) {
		if err := r.gate.Authorize(ctx, conn, caller, id, authz.Admin); err != nil {
			return false, err
		}

		n, err := repository.ExecAffected(
			ctx, conn,
			`INSERT INTO project_archive(project_uid, archived_by)
			VALUES ($1, $2)
			ON CONFLICT (project_uid) DO NOTHING`,
			id, authz.NormalizeUser(caller),
		)
		if err != nil {
			return false, repository.Persistence(err, "archive project", id)
		}

		if n > 0 {
			r.logger.Info("project archived", "id", id, "by", authz.NormalizeUser(caller))
		}
		return n > 0, nil
	})
}

func (r *repo) Roles(ctx context.Context, caller string, id uuid.UUID) ([]RoleGrant, error) {
	return repository.WithConn(ctx, r.db, func(conn *sql.Conn) ([]RoleGrant, error) {
		if err := r.gate.Authorize(ctx, conn, caller, id, authz.Read); err != nil {
			return nil, err
		}

		grants, err := repository.QueryMany(
			ctx, conn,
			`SELECT project_uid, user_uid, grant_type, updated_at
			FROM project_role_grants
			WHERE project_uid = $1
			ORDER BY user_uid`,
			[]any{id},
			scanGrant,
		)
		if err != nil {
			return nil, repository.Persistence(err, "list roles", id)
		}
		return grants, nil
	})
}

func (r *repo) UpdateRole(
	ctx context.Context,
	caller string,
	id uuid.UUID,
	user string,
	grant authz.Grant,
) (*RoleGrant, error) {
	user = authz.NormalizeUser(user)
	if user == "" {
		return nil, ErrInvalidUser
	}
	if !grant.Valid() {
		return nil, fmt.Errorf("%w: %q", authz.ErrInvalidGrant, grant)
	}

	return repository.WithConn(ctx, r.db, func(conn *sql.Conn) (*RoleGrant, error) {
		if err := r.gate.Authorize(ctx, conn, caller, id, authz.Write); err != nil {
			return nil, err
		}

		g, err := repository.QueryOne(
			ctx, conn,
			`INSERT INTO project_role_grants(project_uid, user_uid, grant_type)
			VALUES ($1, $2, $3)
			ON CONFLICT (project_uid, user_uid)
			DO UPDATE SET grant_type = EXCLUDED.grant_type, updated_at = NOW()
			RETURNING project_uid, user_uid, grant_type, updated_at`,
			[]any{id, user, string(grant)},
			scanGrant,
		)
		if err != nil {
			return nil, repository.Persistence(err, "update role", id, user)
		}

		r.logger.Info("role updated", "project", id, "user", user, "grant", grant)
		return &g, nil
	})
}

func (r *repo) Criterion(ctx context.Context, caller string, id uuid.UUID) (*Revision, error) {
	return repository.WithConn(ctx, r.db, func(conn *sql.Conn) (*Revision, error) {
		if err := r.gate.Authorize(ctx, conn, caller, id, authz.Read); err != nil {
			return nil, err
		}

		rev, err := repository.QueryOne(
			ctx, conn,
			`SELECT project_uid, criterion, author_uid, revision_date
			FROM project_criterion
			WHERE project_uid = $1
			ORDER BY revision_date DESC, row_uid DESC
			LIMIT 1`,
			[]any{id},
			scanRevision,
		)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("project %s: %w", id, ErrNoCriterion)
			}
			if errors.Is(err, criteria.ErrMalformed) {
				return nil, fmt.Errorf("project %s: %w", id, err)
			}
			return nil, repository.Persistence(err, "load criterion", id)
		}
		return &rev, nil
	})
}

func (r *repo) Revisions(ctx context.Context, caller string, id uuid.UUID) ([]Revision, error) {
	return repository.WithConn(ctx, r.db, func(conn *sql.Conn) ([]Revision, error) {
		if err := r.gate.Authorize(ctx, conn, caller, id, authz.Read); err != nil {
			return nil, err
		}

		revs, err := repository.QueryMany(
			ctx, conn,
			`SELECT project_uid, criterion, author_uid, revision_date
			FROM project_criterion
			WHERE project_uid = $1
			ORDER BY revision_date DESC, row_uid DESC`,
			[]any{id},
			scanRevision,
		)
		if err != nil {
			if errors.Is(err, criteria.ErrMalformed) {
				return nil, fmt.Errorf("project %s: %w", id, err)
			}
			return nil, repository.Persistence(err, "list revisions", id)
		}
		return revs, nil
	})
}

func (r *repo) WriteCriterion(
	ctx context.Context,
	caller string,
	id uuid.UUID,
	tree criteria.Node,
) (*Revision, error) {
	if err := tree.Validate(); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("encode criterion: %w", err)
	}

	return repository.WithConn(ctx, r.db, func(conn *sql.Conn) (*Revision, error) {
		if err := r.gate.Authorize(ctx, conn, caller, id, authz.Write); err != nil {
			return nil, err
		}

		rev, err := repository.QueryOne(
			ctx, conn,
			`INSERT INTO project_criterion(project_uid, criterion, author_uid)
			VALUES ($1, $2, $3)
			RETURNING project_uid, criterion, author_uid, revision_date`,
			[]any{id, raw, authz.NormalizeUser(caller)},
			scanRevision,
		)
		if err != nil {
			return nil, repository.Persistence(err, "write criterion", id)
		}

		r.logger.Info("criterion revised", "project", id, "author", rev.Author, "leaves", len(criteria.Leaves(tree)))
		return &rev, nil
	})
}

func (r *repo) DataSources(ctx context.Context, caller string, id uuid.UUID) ([]DataSource, error) {
	return repository.WithConn(ctx, r.db, func(conn *sql.Conn) ([]DataSource, error) {
		if err := r.gate.Authorize(ctx, conn, caller, id, authz.Read); err != nil {
			return nil, err
		}

		var raw []byte
		err := conn.QueryRowContext(
			ctx,
			"SELECT sources FROM project_data_sources WHERE project_uid = $1",
			id,
		).Scan(&raw)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return []DataSource{}, nil
			}
			return nil, repository.Persistence(err, "load data sources", id)
		}

		sources := make([]DataSource, 0)
		if err := json.Unmarshal(raw, &sources); err != nil {
			return nil, fmt.Errorf("decode data sources %s: %w", id, err)
		}
		return sources, nil
	})
}

func (r *repo) WriteDataSources(
	ctx context.Context,
	caller string,
	id uuid.UUID,
	sources []DataSource,
) ([]DataSource, error) {
	if sources == nil {
		sources = []DataSource{}
	}
	for i, s := range sources {
		if strings.TrimSpace(s.ID) == "" || strings.TrimSpace(s.Type) == "" {
			return nil, fmt.Errorf("%w: index %d", ErrInvalidDataSource, i)
		}
	}

	raw, err := json.Marshal(sources)
	if err != nil {
		return nil, fmt.Errorf("encode data sources: %w", err)
	}

	return repository.WithConn(ctx, r.db, func(conn *sql.Conn) ([]DataSource, error) {
		if err := r.gate.Authorize(ctx, conn, caller, id, authz.Write); err != nil {
			return nil, err
		}

		if _, err := conn.ExecContext(
			ctx,
			`INSERT INTO project_data_sources(project_uid, sources)
			VALUES ($1, $2)
			ON CONFLICT (project_uid)
			DO UPDATE SET sources = EXCLUDED.sources, updated_at = NOW()`,
			id, raw,
		); err != nil {
			return nil, repository.Persistence(err, "write data sources", id)
		}

		r.logger.Info("data sources updated", "project", id, "count", len(sources))
		return sources, nil
	})
}

func (r *repo) mapError(err error, op string, id uuid.UUID) error {
	mapped := repository.MapError(err, ErrNotFound, ErrDuplicate)
	if errors.Is(mapped, ErrNotFound) || errors.Is(mapped, ErrDuplicate) {
		return fmt.Errorf("%s %s: %w", op, id, mapped)
	}
	return repository.Persistence(err, op, id)
}
