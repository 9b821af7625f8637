package cohorts

import (
	"github.com/JaimeStill/cohort/internal/judgement"
	"github.com/JaimeStill/cohort/pkg/repository"
)

func scanCandidate(s repository.Scanner) (Candidate, error) {
	var c Candidate
	err := s.Scan(&c.PersonUID, &c.Score, &c.Judgement)
	return c, err
}

func scanEvidence(s repository.Scanner) (Evidence, error) {
	var e Evidence
	err := s.Scan(&e.EvidenceUID, &e.NodeUID, &e.PersonUID, &e.Score, &e.Judgement)
	return e, err
}

func scanOptionalCriterion(s repository.Scanner) (*judgement.Criterion, error) {
	var c *judgement.Criterion
	err := s.Scan(&c)
	return c, err
}

type keyed[V any] struct {
	key   string
	value V
}

func scanKeyedInclusion(s repository.Scanner) (keyed[judgement.Inclusion], error) {
	var k keyed[judgement.Inclusion]
	err := s.Scan(&k.key, &k.value)
	return k, err
}

func scanKeyedCriterion(s repository.Scanner) (keyed[judgement.Criterion], error) {
	var k keyed[judgement.Criterion]
	err := s.Scan(&k.key, &k.value)
	return k, err
}
