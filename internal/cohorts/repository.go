package cohorts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/cohort/internal/authz"
	"github.com/JaimeStill/cohort/internal/criteria"
	"github.com/JaimeStill/cohort/internal/jobs"
	"github.com/JaimeStill/cohort/internal/judgement"
	"github.com/JaimeStill/cohort/pkg/repository"
)

type repo struct {
	db     *sql.DB
	fanOut int
	gate   *authz.Gate
	logger *slog.Logger
}

// New creates a cohort review repository implementing the System interface.
// fanOut bounds the sessions a single criterion-wide read may hold.
func New(db *sql.DB, fanOut int, gate *authz.Gate, logger *slog.Logger) System {
	return &repo{
		db:     db,
		fanOut: fanOut,
		gate:   gate,
		logger: logger.With("system", "cohorts"),
	}
}

func (r *repo) Handler(maxBodySize int64) *Handler {
	return NewHandler(r, r.logger, maxBodySize)
}

func (r *repo) Candidates(ctx context.Context, caller string, job uuid.UUID) ([]Candidate, error) {
	return repository.WithConn(ctx, r.db, func(conn *sql.Conn) ([]Candidate, error) {
		if _, err := r.gate.AuthorizeJob(ctx, conn, caller, job, authz.Read); err != nil {
			return nil, err
		}

		candidates, err := repository.QueryMany(
			ctx, conn,
			`SELECT c.person_uid, c.score, COALESCE(cj.judgement, 'UNJUDGED')
			FROM cohort c
			LEFT JOIN cohort_judgements cj
				ON cj.cohort_row_uid = c.row_uid AND cj.judger_uid = $2
			WHERE c.job_uid = $1
			ORDER BY c.score DESC, c.person_uid`,
			[]any{job, authz.NormalizeUser(caller)},
			scanCandidate,
		)
		if err != nil {
			return nil, repository.Persistence(err, "list candidates", job)
		}
		return candidates, nil
	})
}

func (r *repo) Inclusions(
	ctx context.Context,
	caller string,
	job uuid.UUID,
	persons ...string,
) (map[string]judgement.Inclusion, error) {
	return repository.WithConn(ctx, r.db, func(conn *sql.Conn) (map[string]judgement.Inclusion, error) {
		if _, err := r.gate.AuthorizeJob(ctx, conn, caller, job, authz.Read); err != nil {
			return nil, err
		}

		rows, err := repository.QueryMany(
			ctx, conn,
			`SELECT c.person_uid, cj.judgement
			FROM cohort c
			JOIN cohort_judgements cj ON cj.cohort_row_uid = c.row_uid
			WHERE c.job_uid = $1 AND cj.judger_uid = $2 AND c.person_uid = ANY($3)`,
			[]any{job, authz.NormalizeUser(caller), persons},
			scanKeyedInclusion,
		)
		if err != nil {
			return nil, repository.Persistence(err, "load inclusions", job)
		}

		out := make(map[string]judgement.Inclusion, len(persons))
		for _, p := range persons {
			out[p] = judgement.InclusionUnjudged
		}
		for _, row := range rows {
			out[row.key] = row.value
		}
		return out, nil
	})
}

func (r *repo) SetCohortJudgement(
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
		judger := authz.NormalizeUser(caller)
		err := conn.QueryRowContext(
			ctx,
			`INSERT INTO cohort_judgements(cohort_row_uid, judger_uid, judgement)
			SELECT row_uid, $3, $4 FROM cohort WHERE job_uid = $1 AND person_uid = $2
			ON CONFLICT (cohort_row_uid, judger_uid)
			DO UPDATE SET judgement = EXCLUDED.judgement, updated_at = NOW()
			RETURNING judgement`,
			job, person, judger, string(value),
		).Scan(&stored)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", fmt.Errorf("job %s person %s: %w", job, person, ErrNoCandidate)
			}
			return "", repository.Persistence(err, "set cohort judgement", job, person)
		}

		r.logger.Info("cohort judgement recorded", "job", job, "person", person, "judger", judger, "judgement", stored)
		return stored, nil
	})
}

func (r *repo) EvidenceForNode(
	ctx context.Context,
	caller string,
	job, node uuid.UUID,
	person string,
) ([]Evidence, error) {
	return repository.WithConn(ctx, r.db, func(conn *sql.Conn) ([]Evidence, error) {
		if _, err := r.gate.AuthorizeJob(ctx, conn, caller, job, authz.Read); err != nil {
			return nil, err
		}

		evidence, err := repository.QueryMany(
			ctx, conn,
			`SELECT e.evidence_uid, e.node_uid, e.person_uid, e.score, COALESCE(ej.judgement, 'UNJUDGED')
			FROM evidence e
			LEFT JOIN evidence_judgements ej
				ON ej.evidence_row_uid = e.row_uid AND ej.judger_uid = $4
			WHERE e.job_uid = $1 AND e.node_uid = $2 AND e.person_uid = $3
			ORDER BY e.score DESC, e.evidence_uid`,
			[]any{job, node, person, authz.NormalizeUser(caller)},
			scanEvidence,
		)
		if err != nil {
			return nil, repository.Persistence(err, "list evidence", job, node, person)
		}
		return evidence, nil
	})
}

func (r *repo) EvidenceJudgements(
	ctx context.Context,
	caller string,
	job, node uuid.UUID,
	evidence ...string,
) (map[string]judgement.Criterion, error) {
	return repository.WithConn(ctx, r.db, func(conn *sql.Conn) (map[string]judgement.Criterion, error) {
		if _, err := r.gate.AuthorizeJob(ctx, conn, caller, job, authz.Read); err != nil {
			return nil, err
		}

		rows, err := repository.QueryMany(
			ctx, conn,
			`SELECT e.evidence_uid, ej.judgement
			FROM evidence e
			JOIN evidence_judgements ej ON ej.evidence_row_uid = e.row_uid
			WHERE e.job_uid = $1 AND e.node_uid = $2 AND ej.judger_uid = $3 AND e.evidence_uid = ANY($4)`,
			[]any{job, node, authz.NormalizeUser(caller), evidence},
			scanKeyedCriterion,
		)
		if err != nil {
			return nil, repository.Persistence(err, "load evidence judgements", job, node)
		}

		out := make(map[string]judgement.Criterion, len(evidence))
		for _, e := range evidence {
			out[e] = judgement.Unjudged
		}
		for _, row := range rows {
			out[row.key] = row.value
		}
		return out, nil
	})
}

func (r *repo) SetEvidenceJudgement(
	ctx context.Context,
	caller string,
	job, node uuid.UUID,
	evidence string,
	value judgement.Criterion,
) (judgement.Criterion, error) {
	if !value.Valid() {
		return "", fmt.Errorf("%w: judgement %q", judgement.ErrInvalid, value)
	}

	return repository.WithConn(ctx, r.db, func(conn *sql.Conn) (judgement.Criterion, error) {
		if _, err := r.gate.AuthorizeJob(ctx, conn, caller, job, authz.Judge); err != nil {
			return "", err
		}

		var stored judgement.Criterion
		judger := authz.NormalizeUser(caller)
		err := conn.QueryRowContext(
			ctx,
			`INSERT INTO evidence_judgements(evidence_row_uid, judger_uid, judgement)
			SELECT row_uid, $4, $5 FROM evidence
			WHERE job_uid = $1 AND node_uid = $2 AND evidence_uid = $3
			ON CONFLICT (evidence_row_uid, judger_uid)
			DO UPDATE SET judgement = EXCLUDED.judgement, updated_at = NOW()
			RETURNING judgement`,
			job, node, evidence, judger, string(value),
		).Scan(&stored)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", fmt.Errorf("job %s node %s evidence %s: %w", job, node, evidence, ErrNoEvidence)
			}
			return "", repository.Persistence(err, "set evidence judgement", job, node, evidence)
		}

		r.logger.Info("evidence judgement recorded", "job", job, "node", node, "evidence", evidence, "judger", judger, "judgement", stored)
		return stored, nil
	})
}

func (r *repo) NodeStatus(
	ctx context.Context,
	caller string,
	job, node uuid.UUID,
	person string,
) (NodeJudgement, error) {
	return repository.WithConn(ctx, r.db, func(conn *sql.Conn) (NodeJudgement, error) {
		if _, err := r.gate.AuthorizeJob(ctx, conn, caller, job, authz.Read); err != nil {
			return NodeJudgement{}, err
		}
		return nodeStatus(ctx, conn, job, node, person, authz.NormalizeUser(caller))
	})
}

func (r *repo) CriterionStatus(
	ctx context.Context,
	caller string,
	job uuid.UUID,
	person string,
) (map[uuid.UUID]NodeJudgement, error) {
	leaves, err := r.leaves(ctx, caller, job, authz.Read)
	if err != nil {
		return nil, err
	}

	judger := authz.NormalizeUser(caller)
	return repository.FanOut(ctx, r.db, r.fanOut, leaves,
		func(ctx context.Context, conn *sql.Conn, node uuid.UUID) (NodeJudgement, error) {
			return nodeStatus(ctx, conn, job, node, person, judger)
		},
	)
}

func (r *repo) SetNodeJudgement(
	ctx context.Context,
	caller string,
	job, node uuid.UUID,
	person string,
	cmd NodeCommand,
) (map[uuid.UUID]NodeJudgement, error) {
	if cmd.Judgement != nil && !cmd.Judgement.Valid() {
		return nil, fmt.Errorf("%w: judgement %q", judgement.ErrInvalid, *cmd.Judgement)
	}

	var value *string
	if cmd.Judgement != nil {
		v := string(*cmd.Judgement)
		value = &v
	}

	judger := authz.NormalizeUser(caller)
	_, err := repository.WithConn(ctx, r.db, func(conn *sql.Conn) (struct{}, error) {
		if _, err := r.gate.AuthorizeJob(ctx, conn, caller, job, authz.Judge); err != nil {
			return struct{}{}, err
		}

		if _, err := conn.ExecContext(
			ctx,
			`INSERT INTO node_judgements(job_uid, node_uid, person_uid, judger_uid, judgement, user_comment)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (job_uid, node_uid, person_uid, judger_uid)
			DO UPDATE SET judgement = EXCLUDED.judgement, user_comment = EXCLUDED.user_comment, updated_at = NOW()`,
			job, node, person, judger, value, cmd.Comment,
		); err != nil {
			return struct{}{}, repository.Persistence(err, "set node judgement", job, node, person)
		}
		return struct{}{}, nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("node judgement recorded", "job", job, "node", node, "person", person, "judger", judger, "cleared", cmd.Judgement == nil)
	return r.CriterionStatus(ctx, caller, job, person)
}

func (r *repo) RecordCandidates(
	ctx context.Context,
	caller string,
	job uuid.UUID,
	records []CandidateRecord,
) (int64, error) {
	for i, rec := range records {
		if strings.TrimSpace(rec.PersonUID) == "" {
			return 0, fmt.Errorf("%w: candidate %d has no person_uid", ErrInvalidRecord, i)
		}
	}

	inserted, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (int64, error) {
		if _, err := r.gate.AuthorizeJob(ctx, tx, caller, job, authz.Execute); err != nil {
			return 0, err
		}

		stmt, err := tx.PrepareContext(
			ctx,
			`INSERT INTO cohort(job_uid, person_uid, score)
			VALUES ($1, $2, $3)
			ON CONFLICT (job_uid, person_uid) DO NOTHING`,
		)
		if err != nil {
			return 0, repository.Persistence(err, "prepare candidate insert", job)
		}
		defer stmt.Close()

		return execEach(ctx, stmt, records, func(rec CandidateRecord) []any {
			return []any{job, rec.PersonUID, rec.Score}
		})
	})
	if err != nil {
		return 0, ingestError(err, "record candidates", job)
	}

	r.logger.Info("candidates recorded", "job", job, "received", len(records), "inserted", inserted)
	return inserted, nil
}

func (r *repo) RecordEvidence(
	ctx context.Context,
	caller string,
	job uuid.UUID,
	records []EvidenceRecord,
) (int64, error) {
	inserted, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (int64, error) {
		if _, err := r.gate.AuthorizeJob(ctx, tx, caller, job, authz.Execute); err != nil {
			return 0, err
		}

		tree, err := jobs.LoadCriterion(ctx, tx, job)
		if err != nil {
			return 0, err
		}
		leaves := criteria.Leaves(tree)

		for i, rec := range records {
			if strings.TrimSpace(rec.PersonUID) == "" || strings.TrimSpace(rec.EvidenceUID) == "" {
				return 0, fmt.Errorf("%w: evidence %d requires person_uid and evidence_uid", ErrInvalidRecord, i)
			}
			if !slices.Contains(leaves, rec.NodeUID) {
				return 0, fmt.Errorf("%w: evidence %d targets unknown node %s", ErrInvalidRecord, i, rec.NodeUID)
			}
		}

		stmt, err := tx.PrepareContext(
			ctx,
			`INSERT INTO evidence(job_uid, node_uid, person_uid, evidence_uid, score)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (job_uid, node_uid, evidence_uid) DO NOTHING`,
		)
		if err != nil {
			return 0, repository.Persistence(err, "prepare evidence insert", job)
		}
		defer stmt.Close()

		return execEach(ctx, stmt, records, func(rec EvidenceRecord) []any {
			return []any{job, rec.NodeUID, rec.PersonUID, rec.EvidenceUID, rec.Score}
		})
	})
	if err != nil {
		return 0, ingestError(err, "record evidence", job)
	}

	r.logger.Info("evidence recorded", "job", job, "received", len(records), "inserted", inserted)
	return inserted, nil
}

// leaves authorizes caller on job and enumerates the bound criterion's leaves.
func (r *repo) leaves(ctx context.Context, caller string, job uuid.UUID, min authz.Grant) ([]uuid.UUID, error) {
	return repository.WithConn(ctx, r.db, func(conn *sql.Conn) ([]uuid.UUID, error) {
		if _, err := r.gate.AuthorizeJob(ctx, conn, caller, job, min); err != nil {
			return nil, err
		}

		tree, err := jobs.LoadCriterion(ctx, conn, job)
		if err != nil {
			return nil, err
		}
		return criteria.Leaves(tree), nil
	})
}

// ingestError passes domain failures through and wraps the rest as
// persistence failures.
func ingestError(err error, op string, job uuid.UUID) error {
	if authz.Denied(err) ||
		errors.Is(err, ErrInvalidRecord) ||
		errors.Is(err, jobs.ErrNotFound) ||
		errors.Is(err, criteria.ErrMalformed) {
		return err
	}
	return repository.Persistence(err, op, job)
}

func execEach[T any](ctx context.Context, stmt *sql.Stmt, records []T, args func(T) []any) (int64, error) {
	var total int64
	for _, rec := range records {
		result, err := stmt.ExecContext(ctx, args(rec)...)
		if err != nil {
			return 0, err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
