// Package criteria models criterion trees: logical nodes combining children,
// and entity leaves carrying a stable node UID and an opaque match definition.
package criteria

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrMalformed indicates a criterion tree failed structural validation.
var ErrMalformed = errors.New("malformed criterion")

// Kind discriminates the node variants.
type Kind string

const (
	KindLogical Kind = "logical"
	KindEntity  Kind = "entity"
)

// Op is the combinator applied by a logical node to its children.
type Op string

const (
	OpAnd       Op = "AND"
	OpOr        Op = "OR"
	OpNot       Op = "NOT"
	OpMinOrMore Op = "MIN_OR_MORE"
	OpMaxOrLess Op = "MAX_OR_LESS"
)

// Node is one vertex of a criterion tree. Kind selects which fields apply:
// logical nodes use Op, the counts and Children; entity nodes use UID and Entity.
type Node struct {
	Kind     Kind            `json:"type"`
	UID      uuid.UUID       `json:"node_uid,omitzero"`
	Op       Op              `json:"op,omitempty"`
	MinCount *int            `json:"min_count,omitempty"`
	MaxCount *int            `json:"max_count,omitempty"`
	Children []Node          `json:"children,omitempty"`
	Entity   json.RawMessage `json:"entity,omitempty"`
}

// Parse decodes and validates a serialized criterion tree.
func Parse(data []byte) (Node, error) {
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return Node{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if err := n.Validate(); err != nil {
		return Node{}, err
	}
	return n, nil
}

// Validate checks the structure of the tree rooted at n.
func (n Node) Validate() error {
	return n.validate("$")
}

func (n Node) validate(path string) error {
	switch n.Kind {
	case KindEntity:
		if n.UID == uuid.Nil {
			return malformed(path, "entity node requires node_uid")
		}
		if len(n.Children) > 0 {
			return malformed(path, "entity node cannot have children")
		}
		return nil
	case KindLogical:
		if len(n.Children) == 0 {
			return malformed(path, "logical node requires children")
		}
		if err := n.validateOp(path); err != nil {
			return err
		}
		for i, c := range n.Children {
			if err := c.validate(fmt.Sprintf("%s.children[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	default:
		return malformed(path, fmt.Sprintf("unknown node type %q", n.Kind))
	}
}

func (n Node) validateOp(path string) error {
	switch n.Op {
	case OpAnd, OpOr:
		return nil
	case OpNot:
		if len(n.Children) != 1 {
			return malformed(path, "NOT requires exactly one child")
		}
		return nil
	case OpMinOrMore:
		if n.MinCount == nil || *n.MinCount < 0 {
			return malformed(path, "MIN_OR_MORE requires non-negative min_count")
		}
		return nil
	case OpMaxOrLess:
		if n.MaxCount == nil || *n.MaxCount < 0 {
			return malformed(path, "MAX_OR_LESS requires non-negative max_count")
		}
		return nil
	default:
		return malformed(path, fmt.Sprintf("unknown op %q", n.Op))
	}
}

// Leaves returns the entity node UIDs under n in pre-order, without duplicates.
func Leaves(n Node) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID

	var walk func(Node)
	walk = func(n Node) {
		switch n.Kind {
		case KindEntity:
			if _, ok := seen[n.UID]; ok {
				return
			}
			seen[n.UID] = struct{}{}
			out = append(out, n.UID)
		case KindLogical:
			for _, c := range n.Children {
				walk(c)
			}
		}
	}
	walk(n)

	return out
}

func malformed(path, msg string) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformed, path, msg)
}
