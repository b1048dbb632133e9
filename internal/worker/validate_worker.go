package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/playbookpilot/api/internal/client"
	"github.com/playbookpilot/api/internal/model"
	"github.com/playbookpilot/api/internal/notify"
	"github.com/playbookpilot/api/internal/queue"
	"github.com/playbookpilot/api/internal/store"
)

// ValidateWorker processes validate jobs. The job completing means the
// validation ran; whether the playbook itself is valid lands on the playbook
// record and in the job result.
type ValidateWorker struct {
	runner
	playbooks store.PlaybookStore
	generator *client.GeneratorClient
}

// NewValidateWorker creates a new validate worker
func NewValidateWorker(jobs store.JobStore, playbooks store.PlaybookStore, generator *client.GeneratorClient, bus notify.Publisher) *ValidateWorker {
	return &ValidateWorker{
		runner:    runner{jobs: jobs, bus: bus},
		playbooks: playbooks,
		generator: generator,
	}
}

// ProcessTask handles validate task processing
func (w *ValidateWorker) ProcessTask(ctx context.Context, t queue.Task) error {
	var payload model.ValidateJobPayload
	jobID, err := unmarshalTask(t, &payload)
	if err != nil {
		return fmt.Errorf("%v: %w", err, queue.ErrSkipRetry)
	}

	job, err := w.begin(ctx, jobID)
	if err != nil {
		return err
	}

	log.Printf("Starting validate job %s for playbook %s", jobID, payload.PlaybookID)

	playbook, err := w.playbooks.FindByID(ctx, payload.PlaybookID)
	if err != nil {
		w.fail(ctx, job, fmt.Sprintf("playbook %s not found", payload.PlaybookID))
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("playbook %s not found: %w", payload.PlaybookID, queue.ErrSkipRetry)
		}
		return err
	}

	w.progress(ctx, job, 40, "Validating playbook...")

	report, err := w.generator.Validate(ctx, &client.ValidateRequest{Content: playbook.Content})
	if err != nil {
		w.fail(ctx, job, fmt.Sprintf("validation service: %v", err))
		return err
	}

	w.progress(ctx, job, 80, "Recording validation result...")

	playbook.Status = validationStatus(report.Valid)
	playbook.UpdatedAt = time.Now().UTC()
	if err := w.playbooks.Save(ctx, playbook); err != nil {
		w.fail(ctx, job, "Failed to save playbook status")
		return err
	}

	result := &model.ValidateJobResult{
		PlaybookID:  playbook.ID,
		Valid:       report.Valid,
		YAMLValid:   report.YAMLValid,
		SyntaxValid: report.SyntaxValid,
		Errors:      report.Errors,
		Warnings:    report.Warnings,
	}
	return w.complete(ctx, job, result, model.PlaybookChannel(playbook.ID))
}
