package adjudication

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/cohort/internal/authz"
	"github.com/JaimeStill/cohort/internal/cohorts"
	"github.com/JaimeStill/cohort/internal/criteria"
	"github.com/JaimeStill/cohort/internal/jobs"
	"github.com/JaimeStill/cohort/internal/judgement"
	"github.com/JaimeStill/cohort/pkg/formatting"
	"github.com/JaimeStill/cohort/pkg/repository"
	"github.com/JaimeStill/cohort/pkg/storage"
)

type repo struct {
	db     *sql.DB
	fanOut int
	gate   *authz.Gate
	store  storage.System
	logger *slog.Logger
}

// New creates an adjudication repository implementing the System interface.
// A nil store disables exports.
func New(db *sql.DB, fanOut int, gate *authz.Gate, store storage.System, logger *slog.Logger) System {
	return &repo{
		db:     db,
		fanOut: fanOut,
		gate:   gate,
		store:  store,
		logger: logger.With("system", "adjudication"),
	}
}

func (r *repo) Handler(maxBodySize int64) *Handler {
	return NewHandler(r, r.logger, maxBodySize)
}

func (r *repo) CohortState(ctx context.Context, caller string, job uuid.UUID) (CohortState, error) {
	return repository.WithConn(ctx, r.db, func(conn *sql.Conn) (CohortState, error) {
		if _, err := r.gate.AuthorizeJob(ctx, conn, caller, job, authz.Write); err != nil {
			return nil, err
		}
		return cohortState(ctx, conn, job)
	})
}

func cohortState(ctx context.Context, q repository.Querier, job uuid.UUID) (CohortState, error) {
	rows, err := repository.QueryMany(
		ctx, q,
		`SELECT c.person_uid, c.score, cj.judgement, COUNT(cj.row_uid), ca.judgement
		FROM cohort c
		LEFT JOIN cohort_judgements cj ON cj.cohort_row_uid = c.row_uid
		LEFT JOIN cohort_adjudications ca ON ca.cohort_row_uid = c.row_uid
		WHERE c.job_uid = $1
		GROUP BY c.row_uid, c.person_uid, c.score, cj.judgement, ca.judgement
		ORDER BY c.score DESC, c.person_uid`,
		[]any{job},
		scanCohortRow,
	)
	if err != nil {
		return nil, repository.Persistence(err, "load cohort state", job)
	}
	return foldCohort(rows), nil
}

func (r *repo) CriteriaState(
	ctx context.Context,
	caller string,
	job uuid.UUID,
	person string,
) (map[uuid.UUID]PatientStatus, error) {
	leaves, err := r.leaves(ctx, caller, job)
	if err != nil {
		return nil, err
	}

	return repository.FanOut(ctx, r.db, r.fanOut, leaves,
		func(ctx context.Context, conn *sql.Conn, node uuid.UUID) (PatientStatus, error) {
			return patientStatus(ctx, conn, job, node, person)
		},
	)
}

func patientStatus(ctx context.Context, conn *sql.Conn, job, node uuid.UUID, person string) (PatientStatus, error) {
	counts, err := repository.QueryMany(
		ctx, conn,
		`SELECT judgement, COUNT(*)
		FROM node_judgements
		WHERE job_uid = $1 AND node_uid = $2 AND person_uid = $3 AND judgement IS NOT NULL
		GROUP BY judgement`,
		[]any{job, node, person},
		scanNodeCount,
	)
	if err != nil {
		return PatientStatus{}, repository.Persistence(err, "tally node judgements", job, node, person)
	}

	status := PatientStatus{Status: judgement.Tally[judgement.Criterion]{}}
	for _, c := range counts {
		status.Status.Add(c.value, c.count)
	}
	status.NumAdjudicators = status.Status.Total()

	var override judgement.Criterion
	err = conn.QueryRowContext(
		ctx,
		`SELECT judgement FROM node_adjudications
		WHERE job_uid = $1 AND node_uid = $2 AND person_uid = $3`,
		job, node, person,
	).Scan(&override)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return PatientStatus{}, repository.Persistence(err, "load node override", job, node, person)
	default:
		status.TiebreakerOverride = &override
	}

	return status, nil
}

func (r *repo) SetCohortOverride(
	ctx context.Context,
	caller string,
	job uuid.UUID,
	person string,
	value judgement.Inclusion,
) (judgement.Inclusion, error) {
	if !value.Valid() {
		return "", fmt.Errorf("%w: inclusion %q", judgement.ErrInvalid, value)
	}

	return repository.WithConn(ctx, r.db, func(conn *sql.Conn) (judgement.Inclusion, error) {
		if _, err := r.gate.AuthorizeJob(ctx, conn, caller, job, authz.Judge); err != nil {
			return "", err
		}

		var stored judgement.Inclusion
		adjudicator := authz.NormalizeUser(caller)
		err := conn.QueryRowContext(
			ctx,
			`INSERT INTO cohort_adjudications(cohort_row_uid, judgement, adjudicator_uid)
			SELECT row_uid, $3, $4 FROM cohort WHERE job_uid = $1 AND person_uid = $2
			ON CONFLICT (cohort_row_uid)
			DO UPDATE SET judgement = EXCLUDED.judgement, adjudicator_uid = EXCLUDED.adjudicator_uid, updated_at = NOW()
			RETURNING judgement`,
			job, person, string(value), adjudicator,
		).Scan(&stored)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", fmt.Errorf("job %s person %s: %w", job, person, cohorts.ErrNoCandidate)
			}
			return "", repository.Persistence(err, "set cohort override", job, person)
		}

		r.logger.Info("cohort override recorded", "job", job, "person", person, "adjudicator", adjudicator, "judgement", stored)
		return stored, nil
	})
}

func (r *repo) SetNodeOverride(
	ctx context.Context,
	caller string,
	job, node uuid.UUID,
	person string,
	value judgement.Criterion,
) (map[uuid.UUID]PatientStatus, error) {
	if !value.Valid() {
		return nil, fmt.Errorf("%w: judgement %q", judgement.ErrInvalid, value)
	}

	adjudicator := authz.NormalizeUser(caller)
	_, err := repository.WithConn(ctx, r.db, func(conn *sql.Conn) (struct{}, error) {
		if _, err := r.gate.AuthorizeJob(ctx, conn, caller, job, authz.Judge); err != nil {
			return struct{}{}, err
		}

		if _, err := conn.ExecContext(
			ctx,
			`INSERT INTO node_adjudications(job_uid, node_uid, person_uid, judgement, adjudicator_uid)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (job_uid, node_uid, person_uid)
			DO UPDATE SET judgement = EXCLUDED.judgement, adjudicator_uid = EXCLUDED.adjudicator_uid, updated_at = NOW()`,
			job, node, person, string(value), adjudicator,
		); err != nil {
			return struct{}{}, repository.Persistence(err, "set node override", job, node, person)
		}
		return struct{}{}, nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("node override recorded", "job", job, "node", node, "person", person, "adjudicator", adjudicator, "judgement", value)
	return r.CriteriaState(ctx, caller, job, person)
}

func (r *repo) Export(ctx context.Context, caller string, job uuid.UUID) (ExportResponse, error) {
	if r.store == nil {
		return ExportResponse{}, ErrExportDisabled
	}

	state, err := r.CohortState(ctx, caller, job)
	if err != nil {
		return ExportResponse{}, err
	}

	data, err := json.Marshal(state)
	if err != nil {
		return ExportResponse{}, fmt.Errorf("encode cohort state: %w", err)
	}

	stamp := FormatStamp(time.Now())
	key := ExportKey(job, stamp)
	if err := r.store.Upload(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		return ExportResponse{}, repository.Persistence(err, "upload cohort export", job)
	}

	r.logger.Info("cohort state exported", "job", job, "key", key, "candidates", len(state), "size", formatting.FormatBytes(int64(len(data)), 1))
	return ExportResponse{Key: key, Stamp: stamp}, nil
}

func (r *repo) Download(ctx context.Context, caller string, job uuid.UUID, stamp string) (io.ReadCloser, error) {
	if r.store == nil {
		return nil, ErrExportDisabled
	}

	stamp, err := ParseStamp(stamp)
	if err != nil {
		return nil, err
	}

	_, err = repository.WithConn(ctx, r.db, func(conn *sql.Conn) (uuid.UUID, error) {
		return r.gate.AuthorizeJob(ctx, conn, caller, job, authz.Write)
	})
	if err != nil {
		return nil, err
	}

	body, err := r.store.Download(ctx, ExportKey(job, stamp))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("job %s stamp %s: %w", job, stamp, ErrExportNotFound)
		}
		return nil, repository.Persistence(err, "download cohort export", job, stamp)
	}
	return body, nil
}

func (r *repo) Exports(ctx context.Context, caller string, job uuid.UUID) ([]string, error) {
	if r.store == nil {
		return nil, ErrExportDisabled
	}

	_, err := repository.WithConn(ctx, r.db, func(conn *sql.Conn) (uuid.UUID, error) {
		return r.gate.AuthorizeJob(ctx, conn, caller, job, authz.Write)
	})
	if err != nil {
		return nil, err
	}

	prefix := ExportPrefix(job)
	keys, err := r.store.List(ctx, prefix)
	if err != nil {
		return nil, repository.Persistence(err, "list cohort exports", job)
	}

	stamps := make([]string, 0, len(keys))
	for _, key := range keys {
		stamp, ok := strings.CutSuffix(strings.TrimPrefix(key, prefix), ".json")
		if !ok {
			continue
		}
		if stamp, err = ParseStamp(stamp); err == nil {
			stamps = append(stamps, stamp)
		}
	}
	slices.Sort(stamps)
	slices.Reverse(stamps)
	return stamps, nil
}

// leaves authorizes caller for JUDGE on job and enumerates the bound
// criterion's leaves.
func (r *repo) leaves(ctx context.Context, caller string, job uuid.UUID) ([]uuid.UUID, error) {
	return repository.WithConn(ctx, r.db, func(conn *sql.Conn) ([]uuid.UUID, error) {
		if _, err := r.gate.AuthorizeJob(ctx, conn, caller, job, authz.Judge); err != nil {
			return nil, err
		}

		tree, err := jobs.LoadCriterion(ctx, conn, job)
		if err != nil {
			return nil, err
		}
		return criteria.Leaves(tree), nil
	})
}
