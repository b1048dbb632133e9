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

// RefineWorker processes refine jobs: it regenerates a playbook from its
// current content plus the requested changes and bumps the version counter.
type RefineWorker struct {
	runner
	playbooks store.PlaybookStore
	generator *client.GeneratorClient
}

// NewRefineWorker creates a new refine worker
func NewRefineWorker(jobs store.JobStore, playbooks store.PlaybookStore, generator *client.GeneratorClient, bus notify.Publisher) *RefineWorker {
	return &RefineWorker{
		runner:    runner{jobs: jobs, bus: bus},
		playbooks: playbooks,
		generator: generator,
	}
}

// ProcessTask handles refine task processing
func (w *RefineWorker) ProcessTask(ctx context.Context, t queue.Task) error {
	var payload model.RefineJobPayload
	jobID, err := unmarshalTask(t, &payload)
	if err != nil {
		return fmt.Errorf("%v: %w", err, queue.ErrSkipRetry)
	}

	job, err := w.begin(ctx, jobID)
	if err != nil {
		return err
	}

	log.Printf("Starting refine job %s for playbook %s", jobID, payload.PlaybookID)

	playbook, err := w.playbooks.FindByID(ctx, payload.PlaybookID)
	if err != nil {
		w.fail(ctx, job, fmt.Sprintf("playbook %s not found", payload.PlaybookID))
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("playbook %s not found: %w", payload.PlaybookID, queue.ErrSkipRetry)
		}
		return err
	}

	w.progress(ctx, job, 30, "Requesting refinement...")

	generated, err := w.generator.Generate(ctx, &client.GenerateRequest{
		Prompt: buildRefinePrompt(playbook.Content, payload.Instructions),
	})
	if err != nil {
		w.fail(ctx, job, fmt.Sprintf("generation service: %v", err))
		return err
	}

	w.progress(ctx, job, 70, "Saving refined playbook...")

	playbook.Content = generated.Content
	if generated.ContentType != "" {
		playbook.ContentType = generated.ContentType
	}
	playbook.Status = validationStatus(generated.Validation.Valid)
	playbook.UpdatedAt = time.Now().UTC()
	if err := w.playbooks.Save(ctx, playbook); err != nil {
		w.fail(ctx, job, "Failed to save playbook")
		return err
	}

	version, err := w.playbooks.IncrementVersion(ctx, playbook.ID)
	if err != nil {
		w.fail(ctx, job, "Failed to bump playbook version")
		return err
	}

	result := &model.RefineJobResult{
		PlaybookID: playbook.ID,
		Version:    version,
		Content:    playbook.Content,
		Validation: model.ValidationReport{
			Valid:  generated.Validation.Valid,
			Errors: generated.Validation.Errors,
		},
	}
	return w.complete(ctx, job, result, model.PlaybookChannel(playbook.ID))
}

func buildRefinePrompt(content, instructions string) string {
	return "Refine the following Ansible playbook.\n\nRequested changes:\n" +
		instructions + "\n\nCurrent playbook:\n" + content
}
