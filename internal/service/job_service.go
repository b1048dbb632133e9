package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/playbookpilot/api/internal/model"
	"github.com/playbookpilot/api/internal/notify"
	"github.com/playbookpilot/api/internal/queue"
	"github.com/playbookpilot/api/internal/store"
)

// Queue names, one durable queue per job type so worker pools are sized
// independently.
const (
	QueueGenerate = "generate"
	QueueValidate = "validate"
	QueueLint     = "lint"
	QueueExecute  = "execute"
	QueueRefine   = "refine"
)

// Task type names
const (
	TaskTypeGenerate = "playbook:generate"
	TaskTypeValidate = "playbook:validate"
	TaskTypeLint     = "playbook:lint"
	TaskTypeExecute  = "playbook:execute"
	TaskTypeRefine   = "playbook:refine"
)

// ErrJobFinished is returned when cancelling a job that already reached a
// terminal state.
var ErrJobFinished = errors.New("job already finished")

// ErrExecutionFinished is the execution-side counterpart of ErrJobFinished.
var ErrExecutionFinished = errors.New("execution already finished")

// JobService is the single entry point for enqueueing background work and
// the only component allowed to move a job out of its initial state from
// outside a worker (cancellation).
type JobService struct {
	jobs       store.JobStore
	executions store.ExecutionStore
	playbooks  store.PlaybookStore
	enqueuer   queue.Enqueuer
	bus        notify.Publisher
}

func NewJobService(
	jobs store.JobStore,
	executions store.ExecutionStore,
	playbooks store.PlaybookStore,
	enqueuer queue.Enqueuer,
	bus notify.Publisher,
) *JobService {
	return &JobService{
		jobs:       jobs,
		executions: executions,
		playbooks:  playbooks,
		enqueuer:   enqueuer,
		bus:        bus,
	}
}

// QueueGenerateJob persists and enqueues a generate job.
func (s *JobService) QueueGenerateJob(ctx context.Context, req *model.PlaybookGenerateRequest, userID string) (*model.Job, error) {
	payload := &model.GenerateJobPayload{
		Prompt:      req.Prompt,
		Template:    req.Template,
		Name:        req.Name,
		TargetHosts: req.TargetHosts,
		Environment: req.Environment,
		Tags:        req.Tags,
	}
	return s.queueJob(ctx, model.JobTypeGenerate, QueueGenerate, TaskTypeGenerate, payload, nil, nil, userID)
}

// QueueValidateJob persists and enqueues a validate job for a playbook.
func (s *JobService) QueueValidateJob(ctx context.Context, playbookID, userID string) (*model.Job, error) {
	if _, err := s.playbooks.FindByID(ctx, playbookID); err != nil {
		return nil, err
	}
	payload := &model.ValidateJobPayload{PlaybookID: playbookID}
	return s.queueJob(ctx, model.JobTypeValidate, QueueValidate, TaskTypeValidate, payload, &playbookID, nil, userID)
}

// QueueLintJob persists and enqueues a lint job for a playbook.
func (s *JobService) QueueLintJob(ctx context.Context, playbookID string, req *model.PlaybookLintRequest, userID string) (*model.Job, error) {
	if _, err := s.playbooks.FindByID(ctx, playbookID); err != nil {
		return nil, err
	}
	payload := &model.LintJobPayload{PlaybookID: playbookID, Profile: req.Profile}
	return s.queueJob(ctx, model.JobTypeLint, QueueLint, TaskTypeLint, payload, &playbookID, nil, userID)
}

// QueueExecuteJob persists an execution record and its owning execute job,
// then enqueues the task. The execution is persisted before the task message
// exists, so a worker never observes a dangling executionId.
func (s *JobService) QueueExecuteJob(ctx context.Context, playbookID string, req *model.PlaybookExecuteRequest, userID string) (*model.Job, *model.Execution, error) {
	if _, err := s.playbooks.FindByID(ctx, playbookID); err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	execution := &model.Execution{
		ID:         uuid.New().String(),
		PlaybookID: playbookID,
		Status:     model.ExecutionStatusPending,
		Inventory:  req.Inventory,
		ExtraVars:  req.ExtraVars,
		CheckMode:  req.CheckMode,
		Tags:       req.Tags,
		ExecutedBy: userID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.executions.Create(ctx, execution); err != nil {
		return nil, nil, fmt.Errorf("failed to save execution: %w", err)
	}

	payload := &model.ExecuteJobPayload{
		PlaybookID:  playbookID,
		ExecutionID: execution.ID,
		Inventory:   req.Inventory,
		ExtraVars:   req.ExtraVars,
		Limit:       req.Limit,
		Tags:        req.Tags,
		SkipTags:    req.SkipTags,
		CheckMode:   req.CheckMode,
		DiffMode:    req.DiffMode,
		Verbosity:   req.Verbosity,
	}

	job, err := s.queueJob(ctx, model.JobTypeExecute, QueueExecute, TaskTypeExecute, payload, &playbookID, &execution.ID, userID)
	if err != nil {
		return nil, nil, err
	}
	return job, execution, nil
}

// QueueRefineJob persists and enqueues a refine job for a playbook.
func (s *JobService) QueueRefineJob(ctx context.Context, playbookID string, req *model.PlaybookRefineRequest, userID string) (*model.Job, error) {
	if _, err := s.playbooks.FindByID(ctx, playbookID); err != nil {
		return nil, err
	}
	payload := &model.RefineJobPayload{PlaybookID: playbookID, Instructions: req.Instructions}
	return s.queueJob(ctx, model.JobTypeRefine, QueueRefine, TaskTypeRefine, payload, &playbookID, nil, userID)
}

// GetJob returns the current state of a job.
func (s *JobService) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	return s.jobs.FindByID(ctx, jobID)
}

// GetJobResult returns the result payload of a completed job.
func (s *JobService) GetJobResult(ctx context.Context, jobID string) (json.RawMessage, error) {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusCompleted {
		return nil, fmt.Errorf("job not completed")
	}
	return job.Result, nil
}

// CancelJob marks a queued or processing job as cancelled. Cancellation is a
// state marker only: a task already dispatched to the automation service is
// not interrupted.
func (s *JobService) CancelJob(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Terminal() {
		return nil, ErrJobFinished
	}

	now := time.Now().UTC()
	job.Status = model.JobStatusCancelled
	job.UpdatedAt = now
	job.CompletedAt = &now
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, err
	}

	if job.ExecutionID != nil {
		if err := s.cancelLinkedExecution(ctx, *job.ExecutionID, now); err != nil {
			log.Printf("Failed to cancel execution %s for job %s: %v", *job.ExecutionID, jobID, err)
		}
	}

	s.bus.Publish(model.Event{
		Type:      model.EventTypeResult,
		Channel:   model.JobChannel(job.ID),
		JobID:     job.ID,
		Status:    string(job.Status),
		Timestamp: now,
	})

	return job, nil
}

// GetExecution returns the current state of an execution.
func (s *JobService) GetExecution(ctx context.Context, executionID string) (*model.Execution, error) {
	return s.executions.FindByID(ctx, executionID)
}

// CancelExecution marks a pending or running execution as cancelled.
func (s *JobService) CancelExecution(ctx context.Context, executionID string) (*model.Execution, error) {
	execution, err := s.executions.FindByID(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if execution.Terminal() {
		return nil, ErrExecutionFinished
	}

	now := time.Now().UTC()
	execution.Status = model.ExecutionStatusCancelled
	execution.UpdatedAt = now
	execution.CompletedAt = &now
	if err := s.executions.Save(ctx, execution); err != nil {
		return nil, err
	}

	s.bus.Publish(model.Event{
		Type:        model.EventTypeResult,
		Channel:     model.ExecutionChannel(execution.ID),
		ExecutionID: execution.ID,
		Status:      string(execution.Status),
		Timestamp:   now,
	})

	return execution, nil
}

// queueJob persists a job record, publishes the queued event and places the
// task message on its queue. Persistence failure aborts before anything is
// enqueued; an enqueue failure after persistence leaves the job queued with
// no task message, which is surfaced to the caller rather than hidden.
func (s *JobService) queueJob(
	ctx context.Context,
	jobType model.JobType,
	queueName, taskType string,
	payload interface{},
	playbookID, executionID *string,
	userID string,
) (*model.Job, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	now := time.Now().UTC()
	job := &model.Job{
		ID:          uuid.New().String(),
		Type:        jobType,
		Status:      model.JobStatusQueued,
		Progress:    0,
		Input:       payloadBytes,
		PlaybookID:  playbookID,
		ExecutionID: executionID,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	progress := 0
	s.bus.Publish(model.Event{
		Type:      model.EventTypeProgress,
		Channel:   model.JobChannel(job.ID),
		JobID:     job.ID,
		Progress:  &progress,
		Status:    string(job.Status),
		Timestamp: now,
	})

	envelope, err := json.Marshal(model.TaskEnvelope{JobID: job.ID, Payload: payloadBytes})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task: %w", err)
	}
	if err := s.enqueuer.Enqueue(ctx, queueName, taskType, envelope); err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return job, nil
}

func (s *JobService) cancelLinkedExecution(ctx context.Context, executionID string, now time.Time) error {
	execution, err := s.executions.FindByID(ctx, executionID)
	if err != nil {
		return err
	}
	if execution.Terminal() {
		return nil
	}
	execution.Status = model.ExecutionStatusCancelled
	execution.UpdatedAt = now
	execution.CompletedAt = &now
	if err := s.executions.Save(ctx, execution); err != nil {
		return err
	}
	s.bus.Publish(model.Event{
		Type:        model.EventTypeResult,
		Channel:     model.ExecutionChannel(execution.ID),
		ExecutionID: execution.ID,
		Status:      string(execution.Status),
		Timestamp:   now,
	})
	return nil
}
