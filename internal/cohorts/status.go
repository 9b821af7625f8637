package cohorts

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/JaimeStill/cohort/internal/judgement"
	"github.com/JaimeStill/cohort/pkg/repository"
)

// nodeStatus resolves the judger's effective status for one node and
// patient. An explicit node judgement wins; otherwise the judger's evidence
// judgements are merged by priority.
func nodeStatus(
	ctx context.Context,
	q repository.Querier,
	job, node uuid.UUID,
	person, judger string,
) (NodeJudgement, error) {
	var (
		explicit *judgement.Criterion
		comment  string
	)
	err := q.QueryRowContext(
		ctx,
		`SELECT judgement, user_comment
		FROM node_judgements
		WHERE job_uid = $1 AND node_uid = $2 AND person_uid = $3 AND judger_uid = $4`,
		job, node, person, judger,
	).Scan(&explicit, &comment)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return NodeJudgement{}, repository.Persistence(err, "load node judgement", job, node, person)
	}

	if explicit != nil {
		return NodeJudgement{Judgement: *explicit, Comment: comment}, nil
	}

	judged, err := repository.QueryMany(
		ctx, q,
		`SELECT ej.judgement
		FROM evidence e
		LEFT JOIN evidence_judgements ej
			ON ej.evidence_row_uid = e.row_uid AND ej.judger_uid = $4
		WHERE e.job_uid = $1 AND e.node_uid = $2 AND e.person_uid = $3`,
		[]any{job, node, person, judger},
		scanOptionalCriterion,
	)
	if err != nil {
		return NodeJudgement{}, repository.Persistence(err, "load evidence judgements", job, node, person)
	}

	return NodeJudgement{
		Judgement: judgement.MergeEvidence(judged),
		Comment:   comment,
	}, nil
}
