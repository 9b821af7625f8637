// Package judgement defines the judgement value domains and the pure merge
// rules used to combine per-judger rows into effective statuses.
package judgement

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid indicates an unknown judgement value.
var ErrInvalid = errors.New("invalid judgement")

// Criterion is a judgement on evidence or on a criterion node for one patient.
type Criterion string

const (
	JudgedMatch      Criterion = "JUDGED_MATCH"
	JudgedMismatch   Criterion = "JUDGED_MISMATCH"
	EvidenceFound    Criterion = "EVIDENCE_FOUND"
	EvidenceFoundNLP Criterion = "EVIDENCE_FOUND_NLP"
	NoEvidenceFound  Criterion = "NO_EVIDENCE_FOUND"
	Unjudged         Criterion = "UNJUDGED"
)

// priority ranks criterion values by evidentiary weight; lower wins.
var priority = map[Criterion]int{
	JudgedMatch:      0,
	JudgedMismatch:   1,
	EvidenceFound:    2,
	EvidenceFoundNLP: 3,
	NoEvidenceFound:  4,
	Unjudged:         5,
}

// Rank returns the merge rank of c, or -1 for unknown values.
func (c Criterion) Rank() int {
	r, ok := priority[c]
	if !ok {
		return -1
	}
	return r
}

// Valid reports whether c is a known criterion judgement.
func (c Criterion) Valid() bool {
	_, ok := priority[c]
	return ok
}

// ParseCriterion validates s as a criterion judgement, case-insensitively.
func ParseCriterion(s string) (Criterion, error) {
	c := Criterion(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	return c, nil
}

// Prefer returns whichever of a and b carries more evidentiary weight.
// Ties and unknown values keep a.
func Prefer(a, b Criterion) Criterion {
	if !b.Valid() {
		return a
	}
	if !a.Valid() || b.Rank() < a.Rank() {
		return b
	}
	return a
}

// MergeEvidence synthesizes a node status from one judger's view of every
// evidence item for a (node, patient). Each entry is that judger's judgement
// on one item, nil where the item is unreviewed.
//
// With no items the result is NO_EVIDENCE_FOUND. Items that exist but carry
// no stronger judgement promote the result to EVIDENCE_FOUND.
func MergeEvidence(items []*Criterion) Criterion {
	result := NoEvidenceFound
	for _, j := range items {
		if j == nil {
			continue
		}
		result = Prefer(result, *j)
	}
	if len(items) > 0 && result == NoEvidenceFound {
		result = EvidenceFound
	}
	return result
}

// Inclusion is a judger's call on whether a candidate belongs in the cohort.
type Inclusion string

const (
	Include           Inclusion = "INCLUDE"
	Exclude           Inclusion = "EXCLUDE"
	InclusionUnjudged Inclusion = "UNJUDGED"
)

// Valid reports whether i is a known inclusion value.
func (i Inclusion) Valid() bool {
	switch i {
	case Include, Exclude, InclusionUnjudged:
		return true
	}
	return false
}

// ParseInclusion validates s as an inclusion value, case-insensitively.
func ParseInclusion(s string) (Inclusion, error) {
	i := Inclusion(strings.ToUpper(strings.TrimSpace(s)))
	if !i.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	return i, nil
}
