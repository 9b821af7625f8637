package adjudication

import (
	"github.com/JaimeStill/cohort/internal/judgement"
	"github.com/JaimeStill/cohort/pkg/repository"
)

// cohortRow is one (candidate, judgement value) group. Value is nil for
// candidates with no judgements.
type cohortRow struct {
	person   string
	score    float64
	value    *judgement.Inclusion
	count    int
	override *judgement.Inclusion
}

func scanCohortRow(s repository.Scanner) (cohortRow, error) {
	var r cohortRow
	err := s.Scan(&r.person, &r.score, &r.value, &r.count, &r.override)
	return r, err
}

type nodeCount struct {
	value judgement.Criterion
	count int
}

func scanNodeCount(s repository.Scanner) (nodeCount, error) {
	var n nodeCount
	err := s.Scan(&n.value, &n.count)
	return n, err
}

// foldCohort groups rows ordered by candidate into one status per candidate.
func foldCohort(rows []cohortRow) CohortState {
	state := make(CohortState, 0, len(rows))
	index := make(map[string]int, len(rows))

	for _, row := range rows {
		i, ok := index[row.person]
		if !ok {
			i = len(state)
			index[row.person] = i
			state = append(state, CohortStatus{
				PersonUID:          row.person,
				Score:              row.score,
				Status:             judgement.Tally[judgement.Inclusion]{},
				TiebreakerOverride: row.override,
			})
		}
		if row.value != nil {
			state[i].Status.Add(*row.value, row.count)
		}
	}

	for i := range state {
		state[i].NumAdjudicators = state[i].Status.Total()
	}
	return state
}
