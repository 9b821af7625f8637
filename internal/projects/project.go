// Package projects implements project metadata, role grants, append-only
// criterion revisions, and data-source bindings.
package projects

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/cohort/internal/authz"
	"github.com/JaimeStill/cohort/internal/criteria"
)

// Project is a review project. Grant is the caller's own grant when listed.
type Project struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Description *string      `json:"description"`
	CreatedAt   time.Time    `json:"created_at"`
	Grant       *authz.Grant `json:"grant,omitempty"`
}

// CreateCommand carries the fields of a new project.
type CreateCommand struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// RoleGrant binds a user to a grant level on a project.
type RoleGrant struct {
	ProjectID uuid.UUID   `json:"project_id"`
	User      string      `json:"user"`
	Grant     authz.Grant `json:"grant"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Revision is one stored version of a project's criterion tree.
type Revision struct {
	ProjectID    uuid.UUID     `json:"project_id"`
	Criterion    criteria.Node `json:"criterion"`
	Author       string        `json:"author"`
	RevisionDate time.Time     `json:"revision_date"`
}

// DataSource describes one evidence source the pipeline should query.
// Options are connector-specific and stored opaquely.
type DataSource struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	Options json.RawMessage `json:"options,omitempty"`
}
