package worker

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/playbookpilot/api/internal/client"
	"github.com/playbookpilot/api/internal/model"
	"github.com/playbookpilot/api/internal/notify"
	"github.com/playbookpilot/api/internal/queue"
	"github.com/playbookpilot/api/internal/store"
)

// LintWorker processes lint jobs
type LintWorker struct {
	runner
	playbooks store.PlaybookStore
	generator *client.GeneratorClient
}

// NewLintWorker creates a new lint worker
func NewLintWorker(jobs store.JobStore, playbooks store.PlaybookStore, generator *client.GeneratorClient, bus notify.Publisher) *LintWorker {
	return &LintWorker{
		runner:    runner{jobs: jobs, bus: bus},
		playbooks: playbooks,
		generator: generator,
	}
}

// ProcessTask handles lint task processing
func (w *LintWorker) ProcessTask(ctx context.Context, t queue.Task) error {
	var payload model.LintJobPayload
	jobID, err := unmarshalTask(t, &payload)
	if err != nil {
		return fmt.Errorf("%v: %w", err, queue.ErrSkipRetry)
	}

	job, err := w.begin(ctx, jobID)
	if err != nil {
		return err
	}

	log.Printf("Starting lint job %s for playbook %s", jobID, payload.PlaybookID)

	playbook, err := w.playbooks.FindByID(ctx, payload.PlaybookID)
	if err != nil {
		w.fail(ctx, job, fmt.Sprintf("playbook %s not found", payload.PlaybookID))
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("playbook %s not found: %w", payload.PlaybookID, queue.ErrSkipRetry)
		}
		return err
	}

	w.progress(ctx, job, 40, "Linting playbook...")

	report, err := w.generator.Lint(ctx, &client.LintRequest{
		Content: playbook.Content,
		Profile: payload.Profile,
	})
	if err != nil {
		w.fail(ctx, job, fmt.Sprintf("lint service: %v", err))
		return err
	}

	issues := make([]model.LintIssue, 0, len(report.Issues))
	for _, issue := range report.Issues {
		issues = append(issues, model.LintIssue{
			Rule:     issue.Rule,
			Severity: issue.Severity,
			Line:     issue.Line,
			Message:  issue.Message,
		})
	}

	result := &model.LintJobResult{
		PlaybookID: playbook.ID,
		Passed:     report.Passed,
		Issues:     issues,
		Summary:    report.Summary,
	}
	return w.complete(ctx, job, result, model.PlaybookChannel(playbook.ID))
}
