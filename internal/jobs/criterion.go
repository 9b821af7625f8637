package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/JaimeStill/cohort/internal/criteria"
	"github.com/JaimeStill/cohort/pkg/repository"
)

// LoadCriterion returns the criterion tree bound to job at dispatch.
// The caller is responsible for authorization.
func LoadCriterion(ctx context.Context, q repository.Querier, job uuid.UUID) (criteria.Node, error) {
	var raw []byte
	err := q.QueryRowContext(
		ctx,
		`SELECT pc.criterion
		FROM jobs j
		JOIN project_criterion pc ON pc.row_uid = j.criterion_row_uid
		WHERE j.job_uid = $1`,
		job,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return criteria.Node{}, fmt.Errorf("job %s: %w", job, ErrNotFound)
		}
		return criteria.Node{}, repository.Persistence(err, "load job criterion", job)
	}

	node, err := criteria.Parse(raw)
	if err != nil {
		return criteria.Node{}, fmt.Errorf("job %s: %w", job, err)
	}
	return node, nil
}

type revision struct {
	row  int64
	tree criteria.Node
}

func currentRevision(ctx context.Context, q repository.Querier, project uuid.UUID) (revision, error) {
	var (
		rev revision
		raw []byte
	)
	err := q.QueryRowContext(
		ctx,
		`SELECT row_uid, criterion
		FROM project_criterion
		WHERE project_uid = $1
		ORDER BY revision_date DESC, row_uid DESC
		LIMIT 1`,
		project,
	).Scan(&rev.row, &raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rev, fmt.Errorf("project %s: %w", project, ErrNoCriterion)
		}
		return rev, repository.Persistence(err, "load current criterion", project)
	}

	rev.tree, err = criteria.Parse(raw)
	if err != nil {
		return rev, fmt.Errorf("project %s: %w", project, err)
	}
	return rev, nil
}
