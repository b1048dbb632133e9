package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/playbookpilot/api/internal/model"
	"github.com/playbookpilot/api/internal/notify"
	"github.com/playbookpilot/api/internal/queue"
	"github.com/playbookpilot/api/internal/store"
)

// runner carries the job state machine shared by every worker: load the job,
// move it to processing, persist monotonic progress and finish with exactly
// one terminal transition. Only the worker holding the task message calls
// these methods, which is what keeps the records single-writer.
type runner struct {
	jobs store.JobStore
	bus  notify.Publisher
}

// begin loads the job and moves it to processing. A missing job is a
// permanent failure; a job that is already terminal (including cancelled
// while still queued) drops the task without retrying.
func (r *runner) begin(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := r.jobs.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("job %s not found: %w", jobID, queue.ErrSkipRetry)
		}
		return nil, err
	}
	if job.Terminal() {
		return nil, fmt.Errorf("job %s already %s: %w", jobID, job.Status, queue.ErrSkipRetry)
	}

	job.Status = model.JobStatusProcessing
	if job.Progress < 10 {
		job.Progress = 10
	}
	job.UpdatedAt = time.Now().UTC()
	if err := r.jobs.Save(ctx, job); err != nil {
		return nil, err
	}

	r.publishProgress(job)
	return job, nil
}

// progress persists a progress update. Values that do not advance the job
// are ignored so published progress never decreases.
func (r *runner) progress(ctx context.Context, job *model.Job, progress int, step string) {
	if progress <= job.Progress {
		return
	}
	job.Progress = progress
	job.CurrentStep = step
	job.UpdatedAt = time.Now().UTC()
	if err := r.jobs.Save(ctx, job); err != nil {
		log.Printf("Failed to update progress for job %s: %v", job.ID, err)
		return
	}
	r.publishProgress(job)
}

// complete persists the terminal completed state and publishes the result
// event on the job channel plus any extra channels (execution, playbook).
func (r *runner) complete(ctx context.Context, job *model.Job, result interface{}, extraChannels ...string) error {
	resultBytes, err := json.Marshal(result)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	job.Status = model.JobStatusCompleted
	job.Progress = 100
	job.CurrentStep = ""
	job.Error = nil
	job.Result = resultBytes
	job.UpdatedAt = now
	job.CompletedAt = &now
	if err := r.jobs.Save(ctx, job); err != nil {
		return err
	}

	event := model.Event{
		Type:      model.EventTypeResult,
		Channel:   model.JobChannel(job.ID),
		JobID:     job.ID,
		Status:    string(job.Status),
		Result:    result,
		Timestamp: now,
	}
	r.bus.Publish(event)
	for _, channel := range extraChannels {
		extra := event
		extra.Channel = channel
		r.bus.Publish(extra)
	}

	log.Printf("Job %s (%s) completed", job.ID, job.Type)
	return nil
}

// fail persists the terminal failed state. No partial result is kept next to
// the error.
func (r *runner) fail(ctx context.Context, job *model.Job, errMsg string) {
	now := time.Now().UTC()
	job.Status = model.JobStatusFailed
	job.Error = &errMsg
	job.Result = nil
	job.UpdatedAt = now
	job.CompletedAt = &now
	if err := r.jobs.Save(ctx, job); err != nil {
		log.Printf("Failed to mark job %s as failed: %v", job.ID, err)
	}

	r.bus.Publish(model.Event{
		Type:      model.EventTypeResult,
		Channel:   model.JobChannel(job.ID),
		JobID:     job.ID,
		Status:    string(job.Status),
		Timestamp: now,
	})

	log.Printf("Job %s (%s) failed: %s", job.ID, job.Type, errMsg)
}

func (r *runner) publishProgress(job *model.Job) {
	progress := job.Progress
	r.bus.Publish(model.Event{
		Type:      model.EventTypeProgress,
		Channel:   model.JobChannel(job.ID),
		JobID:     job.ID,
		Progress:  &progress,
		Status:    string(job.Status),
		Timestamp: time.Now().UTC(),
	})
}

// unmarshalTask decodes the task envelope and its type-specific payload.
func unmarshalTask(t queue.Task, payload interface{}) (string, error) {
	var envelope model.TaskEnvelope
	if err := json.Unmarshal(t.Payload(), &envelope); err != nil {
		return "", fmt.Errorf("failed to unmarshal task envelope: %w", err)
	}
	if err := json.Unmarshal(envelope.Payload, payload); err != nil {
		return envelope.JobID, fmt.Errorf("failed to unmarshal task payload: %w", err)
	}
	return envelope.JobID, nil
}
