package projects

import (
	"github.com/JaimeStill/cohort/internal/criteria"
	"github.com/JaimeStill/cohort/pkg/query"
	"github.com/JaimeStill/cohort/pkg/repository"
)

var listProjection = query.
	NewProjection("projects", "p").
	Project("project_uid", "ID").
	Project("name", "Name").
	Project("description", "Description").
	Project("created_at", "CreatedAt").
	Join("JOIN", "project_role_grants", "g", "g.project_uid = p.project_uid").
	Project("grant_type", "Grant").
	Join("LEFT JOIN", "project_archive", "a", "a.project_uid = p.project_uid")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

const projectColumns = "project_uid, name, description, created_at"

func scanProject(s repository.Scanner) (Project, error) {
	var p Project
	err := s.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt)
	return p, err
}

func scanListed(s repository.Scanner) (Project, error) {
	var p Project
	err := s.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.Grant)
	return p, err
}

func scanGrant(s repository.Scanner) (RoleGrant, error) {
	var g RoleGrant
	err := s.Scan(&g.ProjectID, &g.User, &g.Grant, &g.UpdatedAt)
	return g, err
}

func scanRevision(s repository.Scanner) (Revision, error) {
	var (
		rev Revision
		raw []byte
	)
	if err := s.Scan(&rev.ProjectID, &raw, &rev.Author, &rev.RevisionDate); err != nil {
		return rev, err
	}

	node, err := criteria.Parse(raw)
	if err != nil {
		return rev, err
	}
	rev.Criterion = node
	return rev, nil
}
