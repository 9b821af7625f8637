package api

import (
	"github.com/JaimeStill/cohort/internal/adjudication"
	"github.com/JaimeStill/cohort/internal/cohorts"
	"github.com/JaimeStill/cohort/internal/jobs"
	"github.com/JaimeStill/cohort/internal/projects"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Projects     projects.System
	Jobs         jobs.System
	Cohorts      cohorts.System
	Adjudication adjudication.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	db := runtime.Database.Connection()
	fanOut := runtime.Database.FanOut()

	return &Domain{
		Projects: projects.New(
			db,
			runtime.Gate,
			runtime.Logger,
			runtime.Pagination,
		),
		Jobs: jobs.New(
			db,
			runtime.Gate,
			runtime.Executor,
			runtime.CallbackBase,
			runtime.Logger,
			runtime.Pagination,
		),
		Cohorts: cohorts.New(
			db,
			fanOut,
			runtime.Gate,
			runtime.Logger,
		),
		Adjudication: adjudication.New(
			db,
			fanOut,
			runtime.Gate,
			runtime.Storage,
			runtime.Logger,
		),
	}
}
