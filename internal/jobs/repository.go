package jobs

import (
	"context"
	"database/sql"
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
	db           *sql.DB
	gate         *authz.Gate
	executor     Executor
	callbackBase string
	logger       *slog.Logger
	pagination   pagination.Config
}

// New creates a job repository implementing the System interface.
// callbackBase is the externally reachable API root; status callbacks are
// addressed to {callbackBase}/jobs/{id}/status.
func New(
	db *sql.DB,
	gate *authz.Gate,
	executor Executor,
	callbackBase string,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:           db,
		gate:         gate,
		executor:     executor,
		callbackBase: strings.TrimSuffix(callbackBase, "/"),
		logger:       logger.With("system", "jobs"),
		pagination:   pagination,
	}
}

func (r *repo) Handler(maxBodySize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxBodySize)
}

func (r *repo) ListForUser(
	ctx context.Context,
	caller string,
	page pagination.PageRequest,
) (*pagination.PageResult[Job], error) {
	owner := authz.NormalizeUser(caller)
	if owner == "" {
		return nil, authz.ErrUnauthorized
	}

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("Owner", owner)

	return r.list(ctx, qb, page, "list user jobs", owner)
}

func (r *repo) ListForProject(
	ctx context.Context,
	caller string,
	project uuid.UUID,
	page pagination.PageRequest,
) (*pagination.PageResult[Job], error) {
	if err := r.gate.Authorize(ctx, r.db, caller, project, authz.Read); err != nil {
		return nil, err
	}

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("ProjectID", project)

	return r.list(ctx, qb, page, "list project jobs", project)
}

func (r *repo) list(
	ctx context.Context,
	qb *query.Builder,
	page pagination.PageRequest,
	op string,
	id any,
) (*pagination.PageResult[Job], error) {
	page.Normalize(r.pagination)

	qb.WhereEquals("Archived", false).
		WhereSearch(page.Search, "Status", "Owner")

	qb.OrderBy(page.Sort)

	countSQL, countArgs := qb.Count()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, repository.Persistence(err, op, id)
	}

	pageSQL, pageArgs := qb.Page(page.Page, page.PageSize)
	jobs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanJob)
	if err != nil {
		return nil, repository.Persistence(err, op, id)
	}

	result := pagination.NewPageResult(jobs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, caller string, id uuid.UUID) (*Job, error) {
	return repository.WithConn(ctx, r.db, func(conn *sql.Conn) (*Job, error) {
		if _, err := r.gate.AuthorizeJob(ctx, conn, caller, id, authz.Read); err != nil {
			return nil, err
		}

		q, args := query.NewBuilder(projection).Single("ID", id)
		j, err := repository.QueryOne(ctx, conn, q, args, scanJob)
		if err != nil {
			return nil, r.mapError(err, "find job", id)
		}
		return &j, nil
	})
}

func (r *repo) Criterion(ctx context.Context, caller string, id uuid.UUID) (criteria.Node, error) {
	return repository.WithConn(ctx, r.db, func(conn *sql.Conn) (criteria.Node, error) {
		if _, err := r.gate.AuthorizeJob(ctx, conn, caller, id, authz.Read); err != nil {
			return criteria.Node{}, err
		}
		return LoadCriterion(ctx, conn, id)
	})
}

func (r *repo) CreateAndDispatch(ctx context.Context, caller string, project uuid.UUID) (*Job, error) {
	owner := authz.NormalizeUser(caller)

	type queued struct {
		job  Job
		tree criteria.Node
	}

	q, err := repository.WithConn(ctx, r.db, func(conn *sql.Conn) (queued, error) {
		if err := r.gate.Authorize(ctx, conn, caller, project, authz.Execute); err != nil {
			return queued{}, err
		}

		rev, err := currentRevision(ctx, conn, project)
		if err != nil {
			return queued{}, err
		}

		j, err := repository.QueryOne(
			ctx, conn,
			`INSERT INTO jobs(job_uid, project_uid, criterion_row_uid, owner_uid, job_status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+jobColumns,
			[]any{uuid.New(), project, rev.row, owner, string(StatusQueued)},
			scanJob,
		)
		if err != nil {
			return queued{}, repository.Persistence(err, "insert job", project)
		}
		return queued{job: j, tree: rev.tree}, nil
	})
	if err != nil {
		return nil, err
	}

	handle, err := r.executor.Start(ctx, q.job.ID, q.tree, r.callbackURL(q.job.ID))
	if err != nil {
		r.compensate(context.WithoutCancel(ctx), q.job.ID)
		return nil, fmt.Errorf("job %s: %w: %w", q.job.ID, ErrDispatch, err)
	}

	j, err := repository.QueryOne(
		ctx, r.db,
		"UPDATE jobs SET executor_handle = $2 WHERE job_uid = $1 RETURNING "+jobColumns,
		[]any{q.job.ID, handle},
		scanJob,
	)
	if err != nil {
		r.logger.Error("job dispatched but handle not stored", "id", q.job.ID, "handle", handle, "error", err)
		return nil, r.mapError(err, "store executor handle", q.job.ID)
	}

	r.logger.Info("job dispatched", "id", j.ID, "project", project, "owner", owner, "handle", handle)
	return &j, nil
}

func (r *repo) compensate(ctx context.Context, id uuid.UUID) {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM jobs WHERE job_uid = $1", id); err != nil {
		r.logger.Warn("compensating job delete failed", "id", id, "error", err)
		return
	}
	r.logger.Info("undispatched job removed", "id", id)
}

func (r *repo) SetStatus(ctx context.Context, caller string, id uuid.UUID, status Status) (*Job, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	return repository.WithConn(ctx, r.db, func(conn *sql.Conn) (*Job, error) {
		if _, err := r.gate.AuthorizeJob(ctx, conn, caller, id, authz.Execute); err != nil {
			return nil, err
		}

		j, err := repository.QueryOne(
			ctx, conn,
			"UPDATE jobs SET job_status = $2 WHERE job_uid = $1 RETURNING "+jobColumns,
			[]any{id, string(status)},
			scanJob,
		)
		if err != nil {
			return nil, r.mapError(err, "set job status", id)
		}

		r.logger.Info("job status updated", "id", id, "status", status)
		return &j, nil
	})
}

func (r *repo) Cancel(ctx context.Context, caller string, id uuid.UUID) (bool, error) {
	return r.transition(
		ctx, caller, id, authz.Execute, "cancel job",
		`UPDATE jobs SET job_status = 'CANCELLED'
		WHERE job_uid = $1 AND job_status NOT IN ('COMPLETE', 'FAILED', 'CANCELLED')`,
	)
}

func (r *repo) Archive(ctx context.Context, caller string, id uuid.UUID) (bool, error) {
	return r.transition(
		ctx, caller, id, authz.Write, "archive job",
		`UPDATE jobs SET archived = TRUE
		WHERE job_uid = $1 AND job_status IN ('COMPLETE', 'FAILED') AND NOT archived`,
	)
}

// transition runs a single conditional update and reports whether the
// guarded row changed.
func (r *repo) transition(
	ctx context.Context,
	caller string,
	id uuid.UUID,
	min authz.Grant,
	op string,
	stmt string,
) (bool, error) {
	return repository.WithConn(ctx, r.db, func(conn *sql.Conn) (bool, error) {
		if _, err := r.gate.AuthorizeJob(ctx, conn, caller, id, min); err != nil {
			return false, err
		}

		if err := repository.ExecExpectOne(ctx, conn, stmt, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				r.logger.Info("job transition skipped", "op", op, "id", id)
				return false, nil
			}
			return false, repository.Persistence(err, op, id)
		}

		r.logger.Info("job transitioned", "op", op, "id", id)
		return true, nil
	})
}

func (r *repo) callbackURL(id uuid.UUID) string {
	return fmt.Sprintf("%s/jobs/%s/status", r.callbackBase, id)
}

func (r *repo) mapError(err error, op string, id uuid.UUID) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", op, id, ErrNotFound)
	}
	return repository.Persistence(err, op, id)
}
