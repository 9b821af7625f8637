// Package adjudication aggregates judgements across judgers so an
// adjudicator can see disagreement and record tiebreaker overrides.
package adjudication

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/cohort/internal/judgement"
)

// CohortStatus is the cross-judger inclusion tally for one candidate.
type CohortStatus struct {
	PersonUID          string                               `json:"person_uid"`
	Score              float64                              `json:"score"`
	Status             judgement.Tally[judgement.Inclusion] `json:"status"`
	NumAdjudicators    int                                  `json:"num_adjudicators"`
	TiebreakerOverride *judgement.Inclusion                 `json:"tiebreaker_override,omitempty"`
}

// CohortState lists candidates by descending score. It encodes as a JSON
// object keyed by person UID with members in slice order.
type CohortState []CohortStatus

// MarshalJSON writes the state as an ordered object.
func (s CohortState) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.PersonUID)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(entry)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// PatientStatus is the cross-judger tally of explicit node judgements for
// one criterion leaf and patient.
type PatientStatus struct {
	Status             judgement.Tally[judgement.Criterion] `json:"status"`
	NumAdjudicators    int                                  `json:"num_adjudicators"`
	TiebreakerOverride *judgement.Criterion                 `json:"tiebreaker_override,omitempty"`
}

// ExportResponse identifies a stored cohort state snapshot.
type ExportResponse struct {
	Key   string `json:"key"`
	Stamp string `json:"stamp"`
}

const exportPrefix = "adjudications"

// ExportKey returns the blob key for a snapshot of job taken at stamp.
func ExportKey(job uuid.UUID, stamp string) string {
	return ExportPrefix(job) + stamp + ".json"
}

// ExportPrefix returns the blob key prefix shared by every snapshot of job.
func ExportPrefix(job uuid.UUID) string {
	return fmt.Sprintf("%s/%s/", exportPrefix, job)
}

// StampLayout is RFC3339 in UTC with a fixed nine-digit fraction. Stamps
// compare chronologically as strings.
const StampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatStamp renders t as an export stamp.
func FormatStamp(t time.Time) string {
	return t.UTC().Format(StampLayout)
}

// ParseStamp validates an RFC3339 export stamp, with or without fractional
// seconds, and returns it in canonical form.
func ParseStamp(s string) (string, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidStamp, s)
	}
	return FormatStamp(t), nil
}
