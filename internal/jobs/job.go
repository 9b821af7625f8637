// Package jobs implements the job record store: pipeline jobs bound to a
// criterion snapshot, dispatched to an external executor and driven by its
// status callbacks.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/cohort/internal/criteria"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued    Status = "QUEUED"
	StatusRunning   Status = "RUNNING"
	StatusComplete  Status = "COMPLETE"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Statuses returns every status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusQueued, StatusRunning, StatusComplete, StatusFailed, StatusCancelled}
}

// ParseStatus returns the Status named by s.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusRunning, StatusComplete, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s is a finished state that can be archived.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Job is one pipeline run against a project's criterion revision.
type Job struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	Owner     string    `json:"owner"`
	StartedAt time.Time `json:"started_at"`
	Status    Status    `json:"status"`
	Handle    *string   `json:"executor_handle,omitempty"`
	Archived  bool      `json:"archived"`
}

// Executor starts a job on the external pipeline. The returned handle
// identifies the run on the executor side.
type Executor interface {
	Start(ctx context.Context, jobUID uuid.UUID, criterion criteria.Node, callbackURL string) (string, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, jobUID uuid.UUID, criterion criteria.Node, callbackURL string) (string, error)

func (f ExecutorFunc) Start(ctx context.Context, jobUID uuid.UUID, criterion criteria.Node, callbackURL string) (string, error) {
	return f(ctx, jobUID, criterion, callbackURL)
}
