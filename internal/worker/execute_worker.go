package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/playbookpilot/api/internal/client"
	"github.com/playbookpilot/api/internal/model"
	"github.com/playbookpilot/api/internal/notify"
	"github.com/playbookpilot/api/internal/queue"
	"github.com/playbookpilot/api/internal/store"
)

// ExecuteWorker processes execute jobs. It owns the linked execution record
// for the duration of the run: pending → running before the external call,
// running → success/failed from its outcome, and a successful run bumps the
// playbook's run counter with a single atomic increment.
type ExecuteWorker struct {
	runner
	executions store.ExecutionStore
	playbooks  store.PlaybookStore
	generator  *client.GeneratorClient
}

// NewExecuteWorker creates a new execute worker
func NewExecuteWorker(jobs store.JobStore, executions store.ExecutionStore, playbooks store.PlaybookStore, generator *client.GeneratorClient, bus notify.Publisher) *ExecuteWorker {
	return &ExecuteWorker{
		runner:     runner{jobs: jobs, bus: bus},
		executions: executions,
		playbooks:  playbooks,
		generator:  generator,
	}
}

// ProcessTask handles execute task processing
func (w *ExecuteWorker) ProcessTask(ctx context.Context, t queue.Task) error {
	var payload model.ExecuteJobPayload
	jobID, err := unmarshalTask(t, &payload)
	if err != nil {
		return fmt.Errorf("%v: %w", err, queue.ErrSkipRetry)
	}

	job, err := w.begin(ctx, jobID)
	if err != nil {
		return err
	}

	log.Printf("Starting execute job %s (execution %s)", jobID, payload.ExecutionID)

	execution, err := w.executions.FindByID(ctx, payload.ExecutionID)
	if err != nil {
		w.fail(ctx, job, fmt.Sprintf("execution %s not found", payload.ExecutionID))
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("execution %s not found: %w", payload.ExecutionID, queue.ErrSkipRetry)
		}
		return err
	}
	if execution.Terminal() {
		// Cancelled (or already finished) between enqueue and pickup.
		w.fail(ctx, job, fmt.Sprintf("execution already %s", execution.Status))
		return fmt.Errorf("execution %s already %s: %w", execution.ID, execution.Status, queue.ErrSkipRetry)
	}

	playbook, err := w.playbooks.FindByID(ctx, payload.PlaybookID)
	if err != nil {
		w.failExecution(ctx, execution, "playbook not found")
		w.fail(ctx, job, fmt.Sprintf("playbook %s not found", payload.PlaybookID))
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("playbook %s not found: %w", payload.PlaybookID, queue.ErrSkipRetry)
		}
		return err
	}

	// Running is set only here, by the worker that owns the in-flight call.
	now := time.Now().UTC()
	execution.Status = model.ExecutionStatusRunning
	execution.Command = resolveCommand(&payload)
	execution.StartedAt = &now
	execution.UpdatedAt = now
	if err := w.executions.Save(ctx, execution); err != nil {
		w.fail(ctx, job, "Failed to update execution")
		return err
	}
	w.publishExecution(execution, model.EventTypeProgress)

	w.progress(ctx, job, 25, "Running playbook...")

	run, err := w.generator.Execute(ctx, &client.ExecuteRequest{
		Content:   playbook.Content,
		Inventory: payload.Inventory,
		ExtraVars: payload.ExtraVars,
		Limit:     payload.Limit,
		Tags:      payload.Tags,
		SkipTags:  payload.SkipTags,
		CheckMode: payload.CheckMode,
		DiffMode:  payload.DiffMode,
		Verbosity: payload.Verbosity,
	})
	if err != nil {
		w.failExecution(ctx, execution, err.Error())
		w.fail(ctx, job, fmt.Sprintf("execution service: %v", err))
		return err
	}

	w.progress(ctx, job, 90, "Recording run result...")

	finished := time.Now().UTC()
	execution.Output = run.Output
	execution.Stats = run.Stats
	execution.DurationSeconds = run.DurationSeconds
	execution.CompletedAt = &finished
	execution.UpdatedAt = finished

	if !run.Success {
		errMsg := run.Error
		if errMsg == "" {
			errMsg = "playbook run failed"
		}
		execution.Status = model.ExecutionStatusFailed
		execution.Error = &errMsg
		if err := w.executions.Save(ctx, execution); err != nil {
			log.Printf("Failed to save execution %s: %v", execution.ID, err)
		}
		w.publishExecution(execution, model.EventTypeResult)
		w.fail(ctx, job, errMsg)
		return errors.New(errMsg)
	}

	execution.Status = model.ExecutionStatusSuccess
	if err := w.executions.Save(ctx, execution); err != nil {
		w.fail(ctx, job, "Failed to save execution")
		return err
	}
	w.publishExecution(execution, model.EventTypeResult)

	// Atomic: concurrent executions of the same playbook contend here.
	if _, err := w.playbooks.IncrementRuns(ctx, playbook.ID, 1); err != nil {
		log.Printf("Failed to increment run counter for playbook %s: %v", playbook.ID, err)
	}

	result := &model.ExecuteJobResult{
		ExecutionID:     execution.ID,
		PlaybookID:      playbook.ID,
		Success:         true,
		Stats:           run.Stats,
		DurationSeconds: run.DurationSeconds,
	}
	return w.complete(ctx, job, result, model.ExecutionChannel(execution.ID), model.PlaybookChannel(playbook.ID))
}

func (w *ExecuteWorker) failExecution(ctx context.Context, execution *model.Execution, errMsg string) {
	now := time.Now().UTC()
	execution.Status = model.ExecutionStatusFailed
	execution.Error = &errMsg
	execution.CompletedAt = &now
	execution.UpdatedAt = now
	if err := w.executions.Save(ctx, execution); err != nil {
		log.Printf("Failed to mark execution %s as failed: %v", execution.ID, err)
	}
	w.publishExecution(execution, model.EventTypeResult)
}

func (w *ExecuteWorker) publishExecution(execution *model.Execution, eventType model.EventType) {
	w.bus.Publish(model.Event{
		Type:        eventType,
		Channel:     model.ExecutionChannel(execution.ID),
		ExecutionID: execution.ID,
		Status:      string(execution.Status),
		Timestamp:   time.Now().UTC(),
	})
}

// resolveCommand renders the ansible-playbook invocation the run corresponds
// to, for display and audit.
func resolveCommand(payload *model.ExecuteJobPayload) string {
	parts := []string{"ansible-playbook", "playbook.yml", "-i", "inventory.ini"}
	if payload.Limit != "" {
		parts = append(parts, "--limit", payload.Limit)
	}
	if len(payload.Tags) > 0 {
		parts = append(parts, "--tags", strings.Join(payload.Tags, ","))
	}
	if len(payload.SkipTags) > 0 {
		parts = append(parts, "--skip-tags", strings.Join(payload.SkipTags, ","))
	}
	if payload.CheckMode {
		parts = append(parts, "--check")
	}
	if payload.DiffMode {
		parts = append(parts, "--diff")
	}
	if payload.Verbosity > 0 {
		parts = append(parts, "-"+strings.Repeat("v", payload.Verbosity))
	}
	if len(payload.ExtraVars) > 0 {
		parts = append(parts, "-e", "@extra_vars.json")
	}
	return strings.Join(parts, " ")
}
