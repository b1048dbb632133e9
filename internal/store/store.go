package store

import (
	"context"
	"errors"

	"github.com/playbookpilot/api/internal/model"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

// JobStore persists job records.
type JobStore interface {
	Create(ctx context.Context, job *model.Job) error
	FindByID(ctx context.Context, id string) (*model.Job, error)
	Save(ctx context.Context, job *model.Job) error
}

// ExecutionStore persists execution records.
type ExecutionStore interface {
	Create(ctx context.Context, execution *model.Execution) error
	FindByID(ctx context.Context, id string) (*model.Execution, error)
	Save(ctx context.Context, execution *model.Execution) error
}

// PlaybookStore persists playbook records and their counters.
// IncrementRuns and IncrementVersion must be atomic: concurrent executions
// of the same playbook contend on the run counter.
type PlaybookStore interface {
	Create(ctx context.Context, playbook *model.Playbook) error
	FindByID(ctx context.Context, id string) (*model.Playbook, error)
	Save(ctx context.Context, playbook *model.Playbook) error
	IncrementRuns(ctx context.Context, id string, delta int64) (int64, error)
	IncrementVersion(ctx context.Context, id string) (int64, error)
}
