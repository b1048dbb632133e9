package worker

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/playbookpilot/api/internal/client"
	"github.com/playbookpilot/api/internal/model"
	"github.com/playbookpilot/api/internal/notify"
	"github.com/playbookpilot/api/internal/queue"
	"github.com/playbookpilot/api/internal/store"
)

// GenerateWorker processes generate jobs
type GenerateWorker struct {
	runner
	playbooks store.PlaybookStore
	generator *client.GeneratorClient
}

// NewGenerateWorker creates a new generate worker
func NewGenerateWorker(jobs store.JobStore, playbooks store.PlaybookStore, generator *client.GeneratorClient, bus notify.Publisher) *GenerateWorker {
	return &GenerateWorker{
		runner:    runner{jobs: jobs, bus: bus},
		playbooks: playbooks,
		generator: generator,
	}
}

// ProcessTask handles generate task processing
func (w *GenerateWorker) ProcessTask(ctx context.Context, t queue.Task) error {
	var payload model.GenerateJobPayload
	jobID, err := unmarshalTask(t, &payload)
	if err != nil {
		return fmt.Errorf("%v: %w", err, queue.ErrSkipRetry)
	}

	job, err := w.begin(ctx, jobID)
	if err != nil {
		return err
	}

	log.Printf("Starting generate job %s", jobID)
	w.progress(ctx, job, 30, "Requesting generation...")

	generated, err := w.generator.Generate(ctx, &client.GenerateRequest{
		Prompt:   buildGeneratePrompt(&payload),
		Template: payload.Template,
	})
	if err != nil {
		w.fail(ctx, job, fmt.Sprintf("generation service: %v", err))
		return err
	}

	w.progress(ctx, job, 70, "Saving playbook...")

	now := time.Now().UTC()
	playbook := &model.Playbook{
		ID:          uuid.New().String(),
		Name:        playbookName(&payload),
		Content:     generated.Content,
		ContentType: generated.ContentType,
		Type:        detectPlaybookType(generated.Content),
		Status:      validationStatus(generated.Validation.Valid),
		Version:     1,
		CreatedBy:   job.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := w.playbooks.Create(ctx, playbook); err != nil {
		w.fail(ctx, job, "Failed to save playbook")
		return err
	}
	job.PlaybookID = &playbook.ID

	result := &model.GenerateJobResult{
		PlaybookID:  playbook.ID,
		Content:     playbook.Content,
		ContentType: playbook.ContentType,
		Type:        playbook.Type,
		Validation: model.ValidationReport{
			Valid:  generated.Validation.Valid,
			Errors: generated.Validation.Errors,
		},
	}
	return w.complete(ctx, job, result, model.PlaybookChannel(playbook.ID))
}

func buildGeneratePrompt(payload *model.GenerateJobPayload) string {
	var context []string
	if payload.TargetHosts != "" && payload.TargetHosts != "all" {
		context = append(context, "Target hosts: "+payload.TargetHosts)
	}
	if payload.Environment != "" {
		context = append(context, "Environment: "+payload.Environment)
	}
	if len(payload.Tags) > 0 {
		context = append(context, "Tags: "+strings.Join(payload.Tags, ", "))
	}
	if len(context) == 0 {
		return payload.Prompt
	}
	return payload.Prompt + "\n\nAdditional context:\n" + strings.Join(context, "\n")
}

func playbookName(payload *model.GenerateJobPayload) string {
	if payload.Name != "" {
		return payload.Name
	}
	name := payload.Prompt
	if len(name) > 64 {
		name = name[:64]
	}
	return name
}

func validationStatus(valid bool) model.PlaybookStatus {
	if valid {
		return model.PlaybookStatusValid
	}
	return model.PlaybookStatusInvalid
}

// detectPlaybookType classifies generated content by keyword, mirroring the
// generation service's own categories.
func detectPlaybookType(content string) model.PlaybookType {
	lower := strings.ToLower(content)

	switch {
	case strings.Contains(lower, "kubernetes"), strings.Contains(lower, "k8s"):
		return model.PlaybookTypeKubernetes
	case strings.Contains(lower, "docker"):
		return model.PlaybookTypeDocker
	case strings.Contains(lower, "nginx"), strings.Contains(lower, "apache"):
		return model.PlaybookTypeNetwork
	case strings.Contains(lower, "postgres"), strings.Contains(lower, "mysql"):
		return model.PlaybookTypeDatabase
	case strings.Contains(lower, "prometheus"), strings.Contains(lower, "grafana"):
		return model.PlaybookTypeMonitoring
	case strings.Contains(lower, "firewall"), strings.Contains(lower, "ssh"):
		return model.PlaybookTypeSecurity
	default:
		return model.PlaybookTypeGeneral
	}
}
