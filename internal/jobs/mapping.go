package jobs

import (
	"github.com/JaimeStill/cohort/pkg/query"
	"github.com/JaimeStill/cohort/pkg/repository"
)

var projection = query.
	NewProjection("jobs", "j").
	Project("job_uid", "ID").
	Project("project_uid", "ProjectID").
	Project("owner_uid", "Owner").
	Project("start_dtm", "StartedAt").
	Project("job_status", "Status").
	Project("executor_handle", "Handle").
	Project("archived", "Archived")

var defaultSort = query.SortField{
	Field:      "StartedAt",
	Descending: true,
}

const jobColumns = "job_uid, project_uid, owner_uid, start_dtm, job_status, executor_handle, archived"

func scanJob(s repository.Scanner) (Job, error) {
	var j Job
	err := s.Scan(&j.ID, &j.ProjectID, &j.Owner, &j.StartedAt, &j.Status, &j.Handle, &j.Archived)
	return j, err
}
