// Package cohorts implements per-judger review: candidate inclusion,
// evidence and node judgements, the synthesized node status a judger sees,
// and pipeline ingest of candidates and evidence.
package cohorts

import (
	"github.com/google/uuid"

	"github.com/JaimeStill/cohort/internal/judgement"
)

// Candidate is a patient surfaced by a job, with the caller's inclusion call.
type Candidate struct {
	PersonUID string              `json:"person_uid"`
	Score     float64             `json:"score"`
	Judgement judgement.Inclusion `json:"judgement"`
}

// Evidence is one evidence item for a node and patient, with the caller's judgement.
type Evidence struct {
	EvidenceUID string              `json:"evidence_uid"`
	NodeUID     uuid.UUID           `json:"node_uid"`
	PersonUID   string              `json:"person_uid"`
	Score       float64             `json:"score"`
	Judgement   judgement.Criterion `json:"judgement"`
}

// NodeJudgement is a judger's effective status for one node and patient.
type NodeJudgement struct {
	Judgement judgement.Criterion `json:"judgement"`
	Comment   string              `json:"comment"`
}

// NodeCommand sets or clears a judger's explicit node status. A nil
// Judgement clears the explicit status and keeps the comment.
type NodeCommand struct {
	Judgement *judgement.Criterion `json:"judgement"`
	Comment   string               `json:"comment"`
}

// CandidateRecord is a pipeline-produced cohort candidate.
type CandidateRecord struct {
	PersonUID string  `json:"person_uid"`
	Score     float64 `json:"score"`
}

// EvidenceRecord is a pipeline-produced evidence item.
type EvidenceRecord struct {
	NodeUID     uuid.UUID `json:"node_uid"`
	PersonUID   string    `json:"person_uid"`
	EvidenceUID string    `json:"evidence_uid"`
	Score       float64   `json:"score"`
}
