// Package authz implements the project-scoped authorization gate.
//
// Grants form a total order from most to least permissive:
// ADMIN, WRITE, EXECUTE, JUDGE, READ. A grant satisfies any requirement
// at or below its own rank.
package authz

import (
	"fmt"
	"strings"
)

// Grant is a project-scoped permission tier.
type Grant string

const (
	Admin   Grant = "ADMIN"
	Write   Grant = "WRITE"
	Execute Grant = "EXECUTE"
	Judge   Grant = "JUDGE"
	Read    Grant = "READ"
)

// rank orders grants independently of declaration order; lower is more permissive.
var rank = map[Grant]int{
	Admin:   0,
	Write:   1,
	Execute: 2,
	Judge:   3,
	Read:    4,
}

// Grants lists every grant from most to least permissive.
func Grants() []Grant {
	return []Grant{Admin, Write, Execute, Judge, Read}
}

// ParseGrant validates s as a grant name, case-insensitively.
func ParseGrant(s string) (Grant, error) {
	g := Grant(strings.ToUpper(strings.TrimSpace(s)))
	if !g.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidGrant, s)
	}
	return g, nil
}

// Valid reports whether g is a known grant.
func (g Grant) Valid() bool {
	_, ok := rank[g]
	return ok
}

// Satisfies reports whether g is at least as permissive as min.
// Unknown grants never satisfy anything.
func (g Grant) Satisfies(min Grant) bool {
	have, ok := rank[g]
	if !ok {
		return false
	}
	need, ok := rank[min]
	if !ok {
		return false
	}
	return have <= need
}

// NormalizeUser canonicalizes a user identity for storage and comparison.
func NormalizeUser(user string) string {
	return strings.ToUpper(strings.TrimSpace(user))
}

// Decide is the authorization rule: the backend identity always passes,
// otherwise any grant at least as permissive as min passes.
func Decide(caller, backend string, grants []Grant, min Grant) bool {
	caller = NormalizeUser(caller)
	if caller == "" {
		return false
	}
	if backend != "" && caller == NormalizeUser(backend) {
		return true
	}
	for _, g := range grants {
		if g.Satisfies(min) {
			return true
		}
	}
	return false
}
